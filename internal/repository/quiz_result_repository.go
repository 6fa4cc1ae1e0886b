package repository

import (
	"errors"

	"gorm.io/gorm"

	"course-player-backend/internal/models"
)

type QuizResultRepository interface {
	Save(result *models.QuizResult) error
	GetBestResult(quizID, userID uint) (*models.QuizResult, int64, error)
	ListByUserAndCourse(userID, courseID uint) ([]models.QuizResult, error)
}

type quizResultRepository struct {
	db *gorm.DB
}

func NewQuizResultRepository(db *gorm.DB) QuizResultRepository {
	return &quizResultRepository{db: db}
}

func (r *quizResultRepository) Save(result *models.QuizResult) error {
	if r == nil || r.db == nil {
		return errors.New("quiz result repository is not initialised")
	}
	if result == nil {
		return errors.New("result is required")
	}
	return r.db.Create(result).Error
}

// GetBestResult returns the highest-scoring attempt and the total attempt
// count. Ties resolve to the earliest attempt.
func (r *quizResultRepository) GetBestResult(quizID, userID uint) (*models.QuizResult, int64, error) {
	if r == nil || r.db == nil {
		return nil, 0, errors.New("quiz result repository is not initialised")
	}
	if quizID == 0 {
		return nil, 0, errors.New("quiz id is required")
	}
	if userID == 0 {
		return nil, 0, errors.New("user id is required")
	}

	var attempts int64
	query := r.db.Model(&models.QuizResult{}).Where("quiz_id = ? AND user_id = ?", quizID, userID)
	if err := query.Count(&attempts).Error; err != nil {
		return nil, 0, err
	}
	if attempts == 0 {
		return nil, 0, nil
	}

	var record models.QuizResult
	err := r.db.
		Where("quiz_id = ? AND user_id = ?", quizID, userID).
		Order("score DESC, created_at ASC, id ASC").
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, attempts, nil
		}
		return nil, 0, err
	}

	return &record, attempts, nil
}

func (r *quizResultRepository) ListByUserAndCourse(userID, courseID uint) ([]models.QuizResult, error) {
	results := make([]models.QuizResult, 0)
	if r == nil || r.db == nil {
		return results, errors.New("quiz result repository is not initialised")
	}
	err := r.db.Where("user_id = ? AND course_id = ?", userID, courseID).
		Order("created_at DESC").
		Find(&results).Error
	return results, err
}
