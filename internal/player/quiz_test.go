package player

import (
	"errors"
	"testing"

	"course-player-backend/internal/content"
)

func quizItem(questions int) content.Item {
	item := content.Item{ID: "quiz-1", Kind: content.KindQuiz, Title: "Quiz"}
	for i := 0; i < questions; i++ {
		item.Questions = append(item.Questions, content.Question{
			Prompt:        "?",
			Options:       []string{"a", "b", "c"},
			CorrectOption: 1,
		})
	}
	return item
}

func TestQuizAttemptAnswerFlow(t *testing.T) {
	attempt := NewQuizAttempt(quizItem(2))

	if attempt.Status() != QuizUnanswered {
		t.Fatalf("fresh attempt should be unanswered")
	}
	if attempt.AllAnswered() {
		t.Fatalf("nothing answered yet")
	}

	if err := attempt.SelectAnswer(1, 2); err != nil {
		t.Fatalf("answering out of order should work: %v", err)
	}
	if attempt.Status() != QuizAnswering {
		t.Fatalf("expected answering state")
	}

	// change an existing selection
	if err := attempt.SelectAnswer(1, 0); err != nil {
		t.Fatalf("changing a selection should work: %v", err)
	}
	if attempt.Answers()[1] != 0 {
		t.Fatalf("selection not updated")
	}

	if err := attempt.BeginSubmit(); !errors.Is(err, ErrIncompleteAnswers) {
		t.Fatalf("submit with gaps should fail, got %v", err)
	}

	if err := attempt.SelectAnswer(0, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !attempt.AllAnswered() {
		t.Fatalf("all questions answered now")
	}
}

func TestQuizAttemptInvalidSelections(t *testing.T) {
	attempt := NewQuizAttempt(quizItem(1))

	if err := attempt.SelectAnswer(-1, 0); !errors.Is(err, ErrInvalidAnswer) {
		t.Errorf("negative question index: got %v", err)
	}
	if err := attempt.SelectAnswer(1, 0); !errors.Is(err, ErrInvalidAnswer) {
		t.Errorf("question index past end: got %v", err)
	}
	if err := attempt.SelectAnswer(0, 3); !errors.Is(err, ErrInvalidAnswer) {
		t.Errorf("option index past end: got %v", err)
	}
}

func TestQuizAttemptSubmitMutualExclusion(t *testing.T) {
	attempt := NewQuizAttempt(quizItem(1))
	if err := attempt.SelectAnswer(0, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := attempt.BeginSubmit(); err != nil {
		t.Fatalf("first submit should start: %v", err)
	}
	if err := attempt.BeginSubmit(); !errors.Is(err, ErrSubmitInProgress) {
		t.Fatalf("second submit must be rejected, got %v", err)
	}
	if err := attempt.SelectAnswer(0, 0); !errors.Is(err, ErrSubmitInProgress) {
		t.Fatalf("answering while submitting must be rejected, got %v", err)
	}
}

func TestQuizAttemptFailSubmitKeepsAnswers(t *testing.T) {
	attempt := NewQuizAttempt(quizItem(2))
	attempt.SelectAnswer(0, 1)
	attempt.SelectAnswer(1, 2)
	if err := attempt.BeginSubmit(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	attempt.FailSubmit()
	if attempt.Status() != QuizAnswering {
		t.Fatalf("failed submit returns to answering")
	}
	if len(attempt.Answers()) != 2 {
		t.Fatalf("selections must survive a failed submit")
	}
}

func TestQuizAttemptPerfectScoreAccepts(t *testing.T) {
	attempt := NewQuizAttempt(quizItem(1))
	attempt.SelectAnswer(0, 1)
	attempt.BeginSubmit()

	if err := attempt.CompleteSubmit(GradeResult{Score: 100, CorrectCount: 1, TotalCount: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !attempt.Accepted() {
		t.Fatalf("perfect score should accept the attempt")
	}

	if err := attempt.SelectAnswer(0, 0); !errors.Is(err, ErrQuizLocked) {
		t.Errorf("accepted attempt is read-only, got %v", err)
	}
	if err := attempt.Retry(); !errors.Is(err, ErrRetryUnavailable) {
		t.Errorf("accepted attempt cannot be retried, got %v", err)
	}
}

func TestQuizAttemptImperfectScoreAllowsRetry(t *testing.T) {
	attempt := NewQuizAttempt(quizItem(2))
	attempt.SelectAnswer(0, 1)
	attempt.SelectAnswer(1, 0)
	attempt.BeginSubmit()

	if err := attempt.CompleteSubmit(GradeResult{Score: 50, CorrectCount: 1, TotalCount: 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempt.Status() != QuizGraded {
		t.Fatalf("99 or less stays graded")
	}
	if attempt.Result() == nil || attempt.Result().Score != 50 {
		t.Fatalf("result not recorded")
	}

	if err := attempt.Retry(); err != nil {
		t.Fatalf("retry after imperfect grading: %v", err)
	}
	if attempt.Status() != QuizAnswering {
		t.Fatalf("retry returns to answering")
	}
	if len(attempt.Answers()) != 0 {
		t.Fatalf("retry must clear every selection, got %v", attempt.Answers())
	}
	if attempt.Result() != nil {
		t.Fatalf("retry must clear the prior result")
	}
}

func TestQuizAttemptCompleteSubmitRequiresSubmitting(t *testing.T) {
	attempt := NewQuizAttempt(quizItem(1))
	if err := attempt.CompleteSubmit(GradeResult{Score: 100}); !errors.Is(err, ErrNotSubmitting) {
		t.Fatalf("grading result without submit must be rejected, got %v", err)
	}
}

func TestNewAcceptedAttempt(t *testing.T) {
	attempt := NewAcceptedAttempt(quizItem(3))
	if !attempt.Accepted() {
		t.Fatalf("restored attempt should be accepted")
	}
	result := attempt.Result()
	if result == nil || result.Score != PerfectScore || result.TotalCount != 3 {
		t.Fatalf("unexpected restored result: %#v", result)
	}
	if len(result.Questions) != 3 {
		t.Fatalf("restored result should carry per-question feedback: %#v", result.Questions)
	}
	for idx, feedback := range result.Questions {
		if !feedback.Correct || feedback.Selected != 1 {
			t.Fatalf("question %d should render as correctly answered: %+v", idx, feedback)
		}
	}
}
