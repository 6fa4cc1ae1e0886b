package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"course-player-backend/internal/models"
)

type ProgressRepository interface {
	MarkComplete(completion *models.LectureCompletion) error
	Unmark(userID, courseID uint, itemID string) error
	ListItemIDs(userID, courseID uint) ([]string, error)
	CountCompleted(userID, courseID uint) (int64, error)
	ResetCourse(userID, courseID uint) error
}

type progressRepository struct {
	db *gorm.DB
}

func NewProgressRepository(db *gorm.DB) ProgressRepository {
	return &progressRepository{db: db}
}

// MarkComplete records a finished item. Re-marking an already completed item
// is a no-op so the operation stays idempotent under retries.
func (r *progressRepository) MarkComplete(completion *models.LectureCompletion) error {
	if r == nil || r.db == nil {
		return errors.New("progress repository is not initialised")
	}
	if completion == nil {
		return errors.New("completion is required")
	}
	if strings.TrimSpace(completion.ItemID) == "" {
		return errors.New("item id is required")
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}, {Name: "item_id"}},
		DoNothing: true,
	}).Create(completion).Error
}

func (r *progressRepository) Unmark(userID, courseID uint, itemID string) error {
	if r == nil || r.db == nil {
		return errors.New("progress repository is not initialised")
	}
	return r.db.Where("user_id = ? AND course_id = ? AND item_id = ?", userID, courseID, itemID).
		Delete(&models.LectureCompletion{}).Error
}

func (r *progressRepository) ListItemIDs(userID, courseID uint) ([]string, error) {
	itemIDs := make([]string, 0)
	if r == nil || r.db == nil {
		return itemIDs, errors.New("progress repository is not initialised")
	}
	err := r.db.Model(&models.LectureCompletion{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Order("created_at ASC").
		Pluck("item_id", &itemIDs).Error
	return itemIDs, err
}

func (r *progressRepository) CountCompleted(userID, courseID uint) (int64, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("progress repository is not initialised")
	}
	var count int64
	err := r.db.Model(&models.LectureCompletion{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Count(&count).Error
	return count, err
}

func (r *progressRepository) ResetCourse(userID, courseID uint) error {
	if r == nil || r.db == nil {
		return errors.New("progress repository is not initialised")
	}
	return r.db.Where("user_id = ? AND course_id = ?", userID, courseID).
		Delete(&models.LectureCompletion{}).Error
}
