package service

import (
	"errors"

	"gorm.io/gorm"

	"course-player-backend/internal/models"
	"course-player-backend/internal/repository"
	"course-player-backend/pkg/logger"
)

type EnrollmentService struct {
	enrollmentRepo repository.EnrollmentRepository
	courseRepo     repository.CourseRepository
}

func NewEnrollmentService(enrollmentRepo repository.EnrollmentRepository, courseRepo repository.CourseRepository) *EnrollmentService {
	return &EnrollmentService{
		enrollmentRepo: enrollmentRepo,
		courseRepo:     courseRepo,
	}
}

func (s *EnrollmentService) Enroll(userID, courseID uint) (*models.Enrollment, error) {
	if userID == 0 {
		return nil, newValidationError("user id is required")
	}
	exists, err := s.courseRepo.Exists(courseID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, gorm.ErrRecordNotFound
	}

	enrollment := &models.Enrollment{UserID: userID, CourseID: courseID}
	if err := s.enrollmentRepo.Create(enrollment); err != nil {
		return nil, err
	}

	logger.Info("Learner enrolled", map[string]interface{}{
		"user_id":   userID,
		"course_id": courseID,
	})

	return enrollment, nil
}

func (s *EnrollmentService) Unenroll(userID, courseID uint) error {
	return s.enrollmentRepo.Delete(userID, courseID)
}

func (s *EnrollmentService) IsEnrolled(userID, courseID uint) (bool, error) {
	return s.enrollmentRepo.Exists(userID, courseID)
}

// ListCourses returns the courses the learner is enrolled in, newest
// enrollment first.
func (s *EnrollmentService) ListCourses(userID uint) ([]models.Course, error) {
	enrollments, err := s.enrollmentRepo.ListByUser(userID)
	if err != nil {
		return nil, err
	}

	courses := make([]models.Course, 0, len(enrollments))
	for _, enrollment := range enrollments {
		course, err := s.courseRepo.GetByID(enrollment.CourseID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, err
		}
		courses = append(courses, *course)
	}
	return courses, nil
}
