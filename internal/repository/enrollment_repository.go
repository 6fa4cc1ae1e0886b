package repository

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"course-player-backend/internal/models"
)

type EnrollmentRepository interface {
	Create(enrollment *models.Enrollment) error
	Delete(userID, courseID uint) error
	GetByUserAndCourse(userID, courseID uint) (*models.Enrollment, error)
	ListByUser(userID uint) ([]models.Enrollment, error)
	Exists(userID, courseID uint) (bool, error)
	CountByCourse(courseID uint) (int64, error)
}

type enrollmentRepository struct {
	db *gorm.DB
}

func NewEnrollmentRepository(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (r *enrollmentRepository) Create(enrollment *models.Enrollment) error {
	if r == nil || r.db == nil {
		return errors.New("enrollment repository is not initialised")
	}
	if enrollment == nil {
		return errors.New("enrollment is required")
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
		DoNothing: true,
	}).Create(enrollment).Error
}

func (r *enrollmentRepository) Delete(userID, courseID uint) error {
	if r == nil || r.db == nil {
		return errors.New("enrollment repository is not initialised")
	}
	return r.db.Where("user_id = ? AND course_id = ?", userID, courseID).Delete(&models.Enrollment{}).Error
}

func (r *enrollmentRepository) GetByUserAndCourse(userID, courseID uint) (*models.Enrollment, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("enrollment repository is not initialised")
	}
	var enrollment models.Enrollment
	if err := r.db.Where("user_id = ? AND course_id = ?", userID, courseID).First(&enrollment).Error; err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (r *enrollmentRepository) ListByUser(userID uint) ([]models.Enrollment, error) {
	enrollments := make([]models.Enrollment, 0)
	if r == nil || r.db == nil {
		return enrollments, errors.New("enrollment repository is not initialised")
	}
	if userID == 0 {
		return enrollments, nil
	}
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&enrollments).Error
	return enrollments, err
}

func (r *enrollmentRepository) Exists(userID, courseID uint) (bool, error) {
	if r == nil || r.db == nil {
		return false, errors.New("enrollment repository is not initialised")
	}
	var count int64
	if err := r.db.Model(&models.Enrollment{}).Where("user_id = ? AND course_id = ?", userID, courseID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *enrollmentRepository) CountByCourse(courseID uint) (int64, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("enrollment repository is not initialised")
	}
	var count int64
	if err := r.db.Model(&models.Enrollment{}).Where("course_id = ?", courseID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
