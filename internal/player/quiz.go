package player

import (
	"errors"

	"course-player-backend/internal/content"
)

type QuizStatus string

const (
	QuizUnanswered QuizStatus = "unanswered"
	QuizAnswering  QuizStatus = "answering"
	QuizSubmitting QuizStatus = "submitting"
	QuizGraded     QuizStatus = "graded"
	QuizAccepted   QuizStatus = "accepted"
)

// PerfectScore is the sole score that completes a quiz.
const PerfectScore = 100

var (
	ErrQuizLocked        = errors.New("quiz is completed and read-only")
	ErrSubmitInProgress  = errors.New("quiz submission already in progress")
	ErrIncompleteAnswers = errors.New("every question needs an answer before submitting")
	ErrRetryUnavailable  = errors.New("retry is only available after an imperfect grading")
	ErrInvalidAnswer     = errors.New("answer references an unknown question or option")
	ErrNotSubmitting     = errors.New("quiz is not awaiting a grading result")
)

// GradeResult is the grading outcome returned by the quiz grader.
type GradeResult struct {
	Score        int                `json:"score"`
	CorrectCount int                `json:"correct_count"`
	TotalCount   int                `json:"total_count"`
	Questions    []QuestionFeedback `json:"questions,omitempty"`
}

// QuestionFeedback renders one graded question: whether the selection was
// right, which option the learner picked, and the stored explanation. The
// correct option itself is never included, so an imperfect grade does not
// hand over the answer key for the retry.
type QuestionFeedback struct {
	Correct     bool   `json:"correct"`
	Selected    int    `json:"selected"`
	Explanation string `json:"explanation,omitempty"`
}

// QuizAttempt is the per-quiz state machine:
// Unanswered -> Answering -> Submitting -> Graded(score) -> Retry | Accepted.
// Only a perfect score reaches Accepted; Accepted attempts are read-only for
// the rest of the session.
type QuizAttempt struct {
	QuizID    string
	questions []content.Question
	answers   map[int]int
	status    QuizStatus
	result    *GradeResult
}

func NewQuizAttempt(item content.Item) *QuizAttempt {
	return &QuizAttempt{
		QuizID:    item.ID,
		questions: item.Questions,
		answers:   make(map[int]int),
		status:    QuizUnanswered,
	}
}

// NewAcceptedAttempt restores the read-only state for a quiz the learner
// already completed, so re-entering it renders as done.
func NewAcceptedAttempt(item content.Item) *QuizAttempt {
	attempt := NewQuizAttempt(item)
	attempt.status = QuizAccepted
	result := &GradeResult{
		Score:        PerfectScore,
		CorrectCount: len(item.Questions),
		TotalCount:   len(item.Questions),
	}
	for _, question := range item.Questions {
		result.Questions = append(result.Questions, QuestionFeedback{
			Correct:     true,
			Selected:    question.CorrectOption,
			Explanation: question.Explanation,
		})
	}
	attempt.result = result
	return attempt
}

func (a *QuizAttempt) Status() QuizStatus {
	return a.status
}

func (a *QuizAttempt) Result() *GradeResult {
	if a.result == nil {
		return nil
	}
	copied := *a.result
	return &copied
}

// Answers returns the touched question index -> option index selections.
func (a *QuizAttempt) Answers() map[int]int {
	copied := make(map[int]int, len(a.answers))
	for k, v := range a.answers {
		copied[k] = v
	}
	return copied
}

// SelectAnswer sets or changes the selected option for a question. Allowed
// in any order, any number of times, until the attempt is submitting or
// accepted.
func (a *QuizAttempt) SelectAnswer(questionIdx, optionIdx int) error {
	switch a.status {
	case QuizSubmitting:
		return ErrSubmitInProgress
	case QuizAccepted:
		return ErrQuizLocked
	}
	if questionIdx < 0 || questionIdx >= len(a.questions) {
		return ErrInvalidAnswer
	}
	if optionIdx < 0 || optionIdx >= len(a.questions[questionIdx].Options) {
		return ErrInvalidAnswer
	}
	a.answers[questionIdx] = optionIdx
	a.status = QuizAnswering
	return nil
}

// AllAnswered reports whether every question has a selection; submission is
// blocked until it does.
func (a *QuizAttempt) AllAnswered() bool {
	if len(a.questions) == 0 {
		return false
	}
	return len(a.answers) == len(a.questions)
}

// AnswerSlice flattens the selections positionally, one option index per
// question in question order. Only meaningful once AllAnswered holds.
func (a *QuizAttempt) AnswerSlice() []int {
	answers := make([]int, len(a.questions))
	for idx := range a.questions {
		answers[idx] = a.answers[idx]
	}
	return answers
}

// BeginSubmit moves to Submitting, the mutual exclusion against duplicate
// grading calls for the same quiz.
func (a *QuizAttempt) BeginSubmit() error {
	switch a.status {
	case QuizSubmitting:
		return ErrSubmitInProgress
	case QuizAccepted:
		return ErrQuizLocked
	}
	if !a.AllAnswered() {
		return ErrIncompleteAnswers
	}
	a.status = QuizSubmitting
	return nil
}

// FailSubmit returns to Answering after a grading failure, preserving the
// learner's selections.
func (a *QuizAttempt) FailSubmit() {
	if a.status == QuizSubmitting {
		a.status = QuizAnswering
	}
}

// CompleteSubmit applies the grading outcome. A perfect score accepts the
// attempt and locks it; anything lower leaves it graded with Retry open.
func (a *QuizAttempt) CompleteSubmit(result GradeResult) error {
	if a.status != QuizSubmitting {
		return ErrNotSubmitting
	}
	a.result = &result
	if result.Score == PerfectScore {
		a.status = QuizAccepted
	} else {
		a.status = QuizGraded
	}
	return nil
}

// Retry discards every previous selection and returns to Answering. Only
// valid after an imperfect grading; a completed quiz cannot be retried.
func (a *QuizAttempt) Retry() error {
	if a.status != QuizGraded {
		return ErrRetryUnavailable
	}
	a.answers = make(map[int]int)
	a.result = nil
	a.status = QuizAnswering
	return nil
}

// Accepted reports whether the quiz reached a perfect score.
func (a *QuizAttempt) Accepted() bool {
	return a.status == QuizAccepted
}
