package service

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"course-player-backend/internal/models"
	"course-player-backend/internal/repository"
)

type mockQuizResultRepository struct {
	saved []*models.QuizResult
}

func (m *mockQuizResultRepository) Save(result *models.QuizResult) error {
	m.saved = append(m.saved, result)
	return nil
}

func (m *mockQuizResultRepository) GetBestResult(quizID, userID uint) (*models.QuizResult, int64, error) {
	var attempts int64
	var best *models.QuizResult
	for _, result := range m.saved {
		if result.QuizID != quizID || result.UserID != userID {
			continue
		}
		attempts++
		if best == nil || result.Score > best.Score {
			copied := *result
			best = &copied
		}
	}
	return best, attempts, nil
}

func (m *mockQuizResultRepository) ListByUserAndCourse(userID, courseID uint) ([]models.QuizResult, error) {
	results := make([]models.QuizResult, 0)
	for _, result := range m.saved {
		if result.UserID == userID && result.CourseID == courseID {
			results = append(results, *result)
		}
	}
	return results, nil
}

var _ repository.QuizResultRepository = (*mockQuizResultRepository)(nil)

func quizServiceFixture() (*QuizService, *mockQuizResultRepository, *mockProgressRepository) {
	courseRepo := &mockCourseRepository{
		course: &models.Course{ID: 1, Title: "T", Slug: "t"},
		chapters: []models.Chapter{
			{ID: 10, Title: "C", Quizzes: []models.Quiz{
				{ID: 7, Title: "Quiz", Position: 0, Questions: []models.QuizQuestion{
					{Prompt: "?", Options: models.QuestionOptions{"a", "b"}, CorrectOption: 1, Position: 0, Explanation: "b is right"},
					{Prompt: "??", Options: models.QuestionOptions{"x", "y", "z"}, CorrectOption: 0, Position: 1, Explanation: "x is right"},
				}},
			}},
		},
	}
	progressRepo := &mockProgressRepository{}
	resultRepo := &mockQuizResultRepository{}

	courses := NewCourseService(courseRepo, progressRepo, nil)
	progress := NewProgressService(progressRepo, courses, nil)
	return NewQuizService(resultRepo, courses, progress), resultRepo, progressRepo
}

func TestSubmitQuizAnswersPerfectScore(t *testing.T) {
	svc, resultRepo, progressRepo := quizServiceFixture()

	result, err := svc.SubmitQuizAnswers(context.Background(), 5, 1, "quiz-7", []int{1, 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Score != 100 || result.CorrectCount != 2 || result.TotalCount != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}

	if len(resultRepo.saved) != 1 {
		t.Fatalf("result not persisted")
	}
	saved := resultRepo.saved[0]
	if saved.QuizID != 7 || saved.UserID != 5 || saved.CourseID != 1 || saved.Score != 100 {
		t.Fatalf("unexpected stored result: %#v", saved)
	}

	// Perfect score also records the quiz as a completed item.
	if len(progressRepo.items) != 1 || progressRepo.items[0] != "quiz-7" {
		t.Fatalf("perfect score should record completion, got %v", progressRepo.items)
	}
}

func TestSubmitQuizAnswersImperfectScore(t *testing.T) {
	svc, resultRepo, progressRepo := quizServiceFixture()

	result, err := svc.SubmitQuizAnswers(context.Background(), 5, 1, "quiz-7", []int{1, 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Score != 50 || result.CorrectCount != 1 {
		t.Fatalf("expected 50%%, got %+v", result)
	}

	// Per-question feedback carries correctness, the learner's selection and
	// the explanation, but never the correct option.
	if len(result.Questions) != 2 {
		t.Fatalf("expected feedback for both questions, got %+v", result.Questions)
	}
	first, second := result.Questions[0], result.Questions[1]
	if !first.Correct || first.Selected != 1 || first.Explanation != "b is right" {
		t.Fatalf("unexpected feedback for correct answer: %+v", first)
	}
	if second.Correct || second.Selected != 1 || second.Explanation != "x is right" {
		t.Fatalf("unexpected feedback for wrong answer: %+v", second)
	}

	if len(progressRepo.items) != 0 {
		t.Fatalf("imperfect score must not record completion")
	}
	if len(resultRepo.saved) != 1 {
		t.Fatalf("every attempt is persisted")
	}
}

func TestSubmitQuizAnswersRoundsHalfUp(t *testing.T) {
	courseRepo := &mockCourseRepository{
		course: &models.Course{ID: 1, Slug: "t"},
		chapters: []models.Chapter{
			{ID: 10, Quizzes: []models.Quiz{
				{ID: 7, Title: "Q", Questions: []models.QuizQuestion{
					{Prompt: "1", Options: models.QuestionOptions{"a", "b"}, CorrectOption: 0},
					{Prompt: "2", Options: models.QuestionOptions{"a", "b"}, CorrectOption: 0},
					{Prompt: "3", Options: models.QuestionOptions{"a", "b"}, CorrectOption: 0},
				}},
			}},
		},
	}
	progressRepo := &mockProgressRepository{}
	courses := NewCourseService(courseRepo, progressRepo, nil)
	progress := NewProgressService(progressRepo, courses, nil)
	svc := NewQuizService(&mockQuizResultRepository{}, courses, progress)

	result, err := svc.SubmitQuizAnswers(context.Background(), 5, 1, "quiz-7", []int{0, 0, 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Score != 67 {
		t.Fatalf("2/3 should round to 67, got %d", result.Score)
	}
}

func TestSubmitQuizAnswersValidation(t *testing.T) {
	svc, _, _ := quizServiceFixture()

	if _, err := svc.SubmitQuizAnswers(context.Background(), 5, 1, "quiz-7", []int{1}); !IsValidationError(err) {
		t.Errorf("answer count mismatch: got %v", err)
	}
	if _, err := svc.SubmitQuizAnswers(context.Background(), 5, 1, "quiz-7", []int{1, 9}); !IsValidationError(err) {
		t.Errorf("out-of-range option: got %v", err)
	}
	if _, err := svc.SubmitQuizAnswers(context.Background(), 5, 1, "quiz-99", []int{0, 0}); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("unknown quiz: got %v", err)
	}
}

func TestBestResultPicksHighestScore(t *testing.T) {
	svc, _, _ := quizServiceFixture()

	if _, err := svc.SubmitQuizAnswers(context.Background(), 5, 1, "quiz-7", []int{1, 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.SubmitQuizAnswers(context.Background(), 5, 1, "quiz-7", []int{1, 0}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	best, attempts, err := svc.BestResult("quiz-7", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
	if best == nil || best.Score != 100 {
		t.Fatalf("best attempt should be the perfect one: %+v", best)
	}

	if _, _, err := svc.BestResult("not-a-quiz", 5); !IsValidationError(err) {
		t.Fatalf("malformed quiz id must be rejected, got %v", err)
	}
}

func TestProgressSummaryIgnoresStaleCompletions(t *testing.T) {
	courseRepo := &mockCourseRepository{
		course: &models.Course{ID: 1, Slug: "t"},
		chapters: []models.Chapter{
			{ID: 10, Lectures: []models.Lecture{
				{ID: 1, Title: "L1", Position: 0},
				{ID: 2, Title: "L2", Position: 1},
			}},
		},
	}
	// One valid completion and one referencing an item removed by re-import.
	progressRepo := &mockProgressRepository{items: []string{"lecture-1", "lecture-99"}}
	courses := NewCourseService(courseRepo, progressRepo, nil)
	progress := NewProgressService(progressRepo, courses, nil)

	summary, err := progress.Summary(context.Background(), 5, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.CompletedCount != 1 || summary.TotalItems != 2 || summary.Percentage != 50 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestReportLectureCompleteRejectsUnknownItem(t *testing.T) {
	svc, _, progressRepo := quizServiceFixture()
	progress := NewProgressService(progressRepo, svc.courses, nil)

	if err := progress.ReportLectureComplete(context.Background(), 5, 1, "lecture-404"); !IsValidationError(err) {
		t.Fatalf("unknown item must be rejected, got %v", err)
	}
	if err := progress.ReportLectureComplete(context.Background(), 5, 1, ""); !IsValidationError(err) {
		t.Fatalf("empty item id must be rejected, got %v", err)
	}
}
