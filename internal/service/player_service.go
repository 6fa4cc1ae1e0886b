package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"course-player-backend/internal/player"
	"course-player-backend/internal/repository"
	"course-player-backend/pkg/logger"
)

var (
	ErrNotEnrolled     = errors.New("learner is not enrolled in this course")
	ErrSessionNotFound = errors.New("no active player session for this course")
)

// PlayerService owns the live player sessions, one per learner and course.
// Re-entering a course resumes the existing session instead of resetting it.
type PlayerService struct {
	mu       sync.Mutex
	sessions map[string]*player.Session

	enrollmentRepo repository.EnrollmentRepository
	courses        *CourseService
	progress       *ProgressService
	quizzes        *QuizService
	scheduler      player.Scheduler

	lectureDelay time.Duration
	quizDelay    time.Duration
}

func NewPlayerService(
	enrollmentRepo repository.EnrollmentRepository,
	courses *CourseService,
	progress *ProgressService,
	quizzes *QuizService,
	scheduler player.Scheduler,
	lectureDelay, quizDelay time.Duration,
) *PlayerService {
	return &PlayerService{
		sessions:       make(map[string]*player.Session),
		enrollmentRepo: enrollmentRepo,
		courses:        courses,
		progress:       progress,
		quizzes:        quizzes,
		scheduler:      scheduler,
		lectureDelay:   lectureDelay,
		quizDelay:      quizDelay,
	}
}

func sessionKey(userID, courseID uint) string {
	return fmt.Sprintf("%d:%d", userID, courseID)
}

// StartSession opens (or resumes) the player for an enrolled learner. The
// course tree is loaded with the learner's stored completions so a resumed
// course starts with the right progress.
func (s *PlayerService) StartSession(ctx context.Context, userID, courseID uint) (*player.Session, error) {
	enrolled, err := s.enrollmentRepo.Exists(userID, courseID)
	if err != nil {
		return nil, err
	}
	if !enrolled {
		return nil, ErrNotEnrolled
	}

	key := sessionKey(userID, courseID)

	s.mu.Lock()
	if existing, ok := s.sessions[key]; ok {
		s.mu.Unlock()
		return existing, nil
	}
	s.mu.Unlock()

	tree, err := s.courses.GetTree(courseID, userID)
	if err != nil {
		return nil, err
	}

	session := player.NewSession(player.SessionConfig{
		UserID:              userID,
		CourseID:            courseID,
		Course:              tree,
		Reporter:            s.progress,
		Grader:              s.quizzes,
		Scheduler:           s.scheduler,
		LectureAdvanceDelay: s.lectureDelay,
		QuizAdvanceDelay:    s.quizDelay,
	})

	s.mu.Lock()
	if existing, ok := s.sessions[key]; ok {
		// Lost the race; keep the first session.
		s.mu.Unlock()
		session.Close()
		return existing, nil
	}
	s.sessions[key] = session
	s.mu.Unlock()

	logger.Info("Player session started", map[string]interface{}{
		"user_id":   userID,
		"course_id": courseID,
		"session":   session.Token(),
	})

	return session, nil
}

func (s *PlayerService) GetSession(userID, courseID uint) (*player.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionKey(userID, courseID)]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (s *PlayerService) CloseSession(userID, courseID uint) {
	key := sessionKey(userID, courseID)

	s.mu.Lock()
	session, ok := s.sessions[key]
	if ok {
		delete(s.sessions, key)
	}
	s.mu.Unlock()

	if ok {
		session.Close()
	}
}

// CloseAll tears down every live session; called on shutdown.
func (s *PlayerService) CloseAll() {
	s.mu.Lock()
	sessions := make([]*player.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	s.sessions = make(map[string]*player.Session)
	s.mu.Unlock()

	for _, session := range sessions {
		session.Close()
	}
}
