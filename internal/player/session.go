package player

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"course-player-backend/internal/content"
	"course-player-backend/pkg/logger"
)

var (
	ErrSessionClosed        = errors.New("player session is closed")
	ErrNoActiveItem         = errors.New("no content item is active")
	ErrNotLecture           = errors.New("active item is not a lecture")
	ErrNotQuiz              = errors.New("active item is not a quiz")
	ErrCompletionInProgress = errors.New("completion report already in progress")
)

// ProgressReporter persists completion events and serves the authoritative
// progress percentage. Implementations are the session's only I/O for
// lecture completion.
type ProgressReporter interface {
	ReportLectureComplete(ctx context.Context, userID, courseID uint, itemID string) error
	FetchCourseProgress(ctx context.Context, userID, courseID uint) (int, error)
}

// QuizGrader scores a positional answer slice for a quiz.
type QuizGrader interface {
	SubmitQuizAnswers(ctx context.Context, userID, courseID uint, quizID string, answers []int) (GradeResult, error)
}

// Scheduler defers a single cancellable task. The returned cancel function
// must prevent the task from running if invoked before it fires.
type Scheduler interface {
	ScheduleAfter(name string, delay time.Duration, run func(ctx context.Context) error) (cancel func(), err error)
}

var (
	metricsOnce          sync.Once
	completionsTotal     *prometheus.CounterVec
	quizSubmissionsTotal *prometheus.CounterVec
	autoAdvancesTotal    *prometheus.CounterVec
)

func initMetrics() {
	metricsOnce.Do(func() {
		completionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "course_player",
			Subsystem: "session",
			Name:      "completions_total",
			Help:      "Content item completions recorded by player sessions",
		}, []string{"kind"})

		quizSubmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "course_player",
			Subsystem: "session",
			Name:      "quiz_submissions_total",
			Help:      "Quiz grading outcomes observed by player sessions",
		}, []string{"outcome"})

		autoAdvancesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "course_player",
			Subsystem: "session",
			Name:      "auto_advances_total",
			Help:      "Auto-advance timer outcomes",
		}, []string{"status"})
	})
}

// SessionConfig wires a session to its course tree and collaborators.
type SessionConfig struct {
	UserID   uint
	CourseID uint
	Course   content.Course

	Reporter  ProgressReporter
	Grader    QuizGrader
	Scheduler Scheduler

	LectureAdvanceDelay time.Duration
	QuizAdvanceDelay    time.Duration
}

// Session owns one learner's player state for one course: current position,
// completion set and the active quiz attempt. A mutex serializes all state
// mutations; blocking I/O (completion reports, grading) happens outside the
// lock so the session stays responsive while a call is outstanding.
type Session struct {
	mu sync.Mutex

	token    string
	userID   uint
	courseID uint

	nav       *Navigator
	completed *CompletionSet
	pos       Position
	attempt   *QuizAttempt

	reporting map[string]bool

	reporter  ProgressReporter
	grader    QuizGrader
	scheduler Scheduler

	lectureDelay time.Duration
	quizDelay    time.Duration

	// serverProgress supersedes the local percentage after an
	// authoritative refresh; any local mutation clears it.
	serverProgress *int

	advanceSeq    uint64
	cancelAdvance func()

	closed bool
}

func NewSession(cfg SessionConfig) *Session {
	initMetrics()

	s := &Session{
		token:        uuid.NewString(),
		userID:       cfg.UserID,
		courseID:     cfg.CourseID,
		nav:          NewNavigator(cfg.Course),
		completed:    NewCompletionSet(),
		reporting:    make(map[string]bool),
		reporter:     cfg.Reporter,
		grader:       cfg.Grader,
		scheduler:    cfg.Scheduler,
		lectureDelay: cfg.LectureAdvanceDelay,
		quizDelay:    cfg.QuizAdvanceDelay,
	}

	s.completed.Seed(cfg.Course)
	s.pos = s.nav.First()
	s.syncAttemptLocked()

	return s
}

func (s *Session) Token() string {
	return s.token
}

// QuizView is the attempt state exposed to clients.
type QuizView struct {
	Status   QuizStatus   `json:"status"`
	Answers  map[int]int  `json:"answers"`
	Result   *GradeResult `json:"result,omitempty"`
	ReadOnly bool         `json:"read_only"`
}

// Snapshot is a consistent view of the session for rendering.
type Snapshot struct {
	Position       Position         `json:"position"`
	ItemID         string           `json:"item_id,omitempty"`
	ItemKind       content.ItemKind `json:"item_kind,omitempty"`
	ItemTitle      string           `json:"item_title,omitempty"`
	HasPrevious    bool             `json:"has_previous"`
	HasNext        bool             `json:"has_next"`
	Progress       int              `json:"progress"`
	ProgressState  string           `json:"progress_state"`
	CompletedCount int              `json:"completed_count"`
	TotalItems     int              `json:"total_items"`
	CompletedItems []string         `json:"completed_items"`
	Quiz           *QuizView        `json:"quiz,omitempty"`
}

func (s *Session) State() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		Position:       s.pos,
		HasPrevious:    s.nav.HasPrevious(s.pos),
		HasNext:        s.nav.HasNext(s.pos),
		Progress:       s.progressLocked(),
		CompletedCount: s.completed.Count(),
		TotalItems:     s.nav.Course().TotalItems(),
		CompletedItems: s.completed.IDs(),
	}
	snap.ProgressState = ProgressState(snap.Progress)

	if item, ok := s.nav.ItemAt(s.pos); ok {
		snap.ItemID = item.ID
		snap.ItemKind = item.Kind
		snap.ItemTitle = item.Title
	}

	if s.attempt != nil {
		snap.Quiz = &QuizView{
			Status:   s.attempt.Status(),
			Answers:  s.attempt.Answers(),
			Result:   s.attempt.Result(),
			ReadOnly: s.attempt.Accepted(),
		}
	}

	return snap
}

func (s *Session) progressLocked() int {
	if s.serverProgress != nil {
		return *s.serverProgress
	}
	return Percentage(s.nav.Course(), s.completed)
}

// Next moves to the following item. Any pending auto-advance is cancelled
// first; moving past the end is a no-op.
func (s *Session) Next() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelAdvanceLocked()
	s.pos = s.nav.Next(s.pos)
	s.syncAttemptLocked()
	return s.snapshotLocked()
}

// Previous moves to the preceding item, with the same guarantees as Next.
func (s *Session) Previous() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelAdvanceLocked()
	s.pos = s.nav.Previous(s.pos)
	s.syncAttemptLocked()
	return s.snapshotLocked()
}

// SelectItem jumps to a sidebar selection. An identifier absent from the
// tree keeps the current position.
func (s *Session) SelectItem(itemID string) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelAdvanceLocked()
	s.pos = s.nav.SelectByID(itemID, s.pos)
	s.syncAttemptLocked()
	return s.snapshotLocked()
}

// syncAttemptLocked keeps the active quiz attempt aligned with the current
// position: a fresh attempt when a quiz becomes active, restored read-only
// when the quiz was already completed, nil for lectures.
func (s *Session) syncAttemptLocked() {
	item, ok := s.nav.ItemAt(s.pos)
	if !ok || item.Kind != content.KindQuiz {
		s.attempt = nil
		return
	}
	if s.attempt != nil && s.attempt.QuizID == item.ID {
		return
	}
	if item.ID != "" && s.completed.IsComplete(item.ID) {
		s.attempt = NewAcceptedAttempt(item)
		return
	}
	s.attempt = NewQuizAttempt(item)
}

// CompleteCurrentLecture marks the active lecture as done. The local set is
// updated optimistically before the store call for immediate feedback; a
// store failure rolls the mark back and surfaces the error.
func (s *Session) CompleteCurrentLecture(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Snapshot{}, ErrSessionClosed
	}
	item, ok := s.nav.ItemAt(s.pos)
	if !ok {
		s.mu.Unlock()
		return Snapshot{}, ErrNoActiveItem
	}
	if item.Kind != content.KindLecture {
		s.mu.Unlock()
		return Snapshot{}, ErrNotLecture
	}
	if s.completed.IsComplete(item.ID) {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, nil
	}
	if s.reporting[item.ID] {
		s.mu.Unlock()
		return Snapshot{}, ErrCompletionInProgress
	}
	s.reporting[item.ID] = true
	s.completed.MarkComplete(item.ID)
	s.serverProgress = nil
	s.mu.Unlock()

	err := s.reporter.ReportLectureComplete(ctx, s.userID, s.courseID, item.ID)

	s.mu.Lock()
	delete(s.reporting, item.ID)
	if err != nil {
		s.completed.Unmark(item.ID)
		s.serverProgress = nil
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, fmt.Errorf("failed to record lecture completion: %w", err)
	}
	completionsTotal.WithLabelValues(string(content.KindLecture)).Inc()
	s.scheduleAdvanceLocked(s.lectureDelay)
	s.mu.Unlock()

	s.refreshProgress(ctx)

	s.mu.Lock()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	return snap, nil
}

// AnswerQuestion records a selection on the active quiz.
func (s *Session) AnswerQuestion(questionIdx, optionIdx int) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Snapshot{}, ErrSessionClosed
	}
	if s.attempt == nil {
		return Snapshot{}, ErrNotQuiz
	}
	if err := s.attempt.SelectAnswer(questionIdx, optionIdx); err != nil {
		return Snapshot{}, err
	}
	return s.snapshotLocked(), nil
}

// SubmitQuiz grades the active quiz attempt. Duplicate submissions are
// rejected locally; a grading failure returns the attempt to Answering with
// its selections intact. The result is dropped if the learner navigated
// away while the call was in flight.
func (s *Session) SubmitQuiz(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Snapshot{}, ErrSessionClosed
	}
	attempt := s.attempt
	if attempt == nil {
		s.mu.Unlock()
		return Snapshot{}, ErrNotQuiz
	}
	if err := attempt.BeginSubmit(); err != nil {
		s.mu.Unlock()
		return Snapshot{}, err
	}
	quizID := attempt.QuizID
	answers := attempt.AnswerSlice()
	s.mu.Unlock()

	result, err := s.grader.SubmitQuizAnswers(ctx, s.userID, s.courseID, quizID, answers)

	s.mu.Lock()
	defer s.mu.Unlock()

	// Stale-response guard: the attempt only still matters if the learner
	// is still on this quiz.
	if s.attempt != attempt {
		attempt.FailSubmit()
		logger.Debug("Dropping grading result for inactive quiz", map[string]interface{}{
			"quiz_id": quizID,
			"user_id": s.userID,
		})
		return s.snapshotLocked(), nil
	}

	if err != nil {
		attempt.FailSubmit()
		quizSubmissionsTotal.WithLabelValues("failed").Inc()
		return s.snapshotLocked(), fmt.Errorf("failed to grade quiz: %w", err)
	}

	if applyErr := attempt.CompleteSubmit(result); applyErr != nil {
		return s.snapshotLocked(), applyErr
	}

	if result.Score == PerfectScore {
		quizSubmissionsTotal.WithLabelValues("perfect").Inc()
		completionsTotal.WithLabelValues(string(content.KindQuiz)).Inc()
		s.completed.MarkComplete(quizID)
		s.serverProgress = nil
		s.scheduleAdvanceLocked(s.quizDelay)
	} else {
		quizSubmissionsTotal.WithLabelValues("imperfect").Inc()
	}

	return s.snapshotLocked(), nil
}

// RetryQuiz clears all selections of an imperfectly graded quiz and returns
// it to Answering.
func (s *Session) RetryQuiz() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Snapshot{}, ErrSessionClosed
	}
	if s.attempt == nil {
		return Snapshot{}, ErrNotQuiz
	}
	if err := s.attempt.Retry(); err != nil {
		return Snapshot{}, err
	}
	return s.snapshotLocked(), nil
}

// RefreshProgress replaces the locally computed percentage with the
// authoritative store value. Failures are non-fatal; the local value keeps
// serving until a later refresh succeeds.
func (s *Session) RefreshProgress(ctx context.Context) Snapshot {
	s.refreshProgress(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) refreshProgress(ctx context.Context) {
	if s.reporter == nil {
		return
	}
	percentage, err := s.reporter.FetchCourseProgress(ctx, s.userID, s.courseID)
	if err != nil {
		logger.Warn("Progress refresh failed, keeping local value", map[string]interface{}{
			"user_id":   s.userID,
			"course_id": s.courseID,
			"error":     err,
		})
		return
	}
	s.mu.Lock()
	if !s.closed {
		s.serverProgress = &percentage
	}
	s.mu.Unlock()
}

// scheduleAdvanceLocked arms a single deferred Next. A later navigation or
// Close bumps the sequence so an already queued timer fires into nothing.
func (s *Session) scheduleAdvanceLocked(delay time.Duration) {
	if s.scheduler == nil {
		return
	}
	s.cancelAdvanceLocked()
	s.advanceSeq++
	seq := s.advanceSeq

	name := fmt.Sprintf("player:advance:%s:%d", s.token, seq)
	cancel, err := s.scheduler.ScheduleAfter(name, delay, func(ctx context.Context) error {
		s.fireAdvance(seq)
		return nil
	})
	if err != nil {
		logger.Warn("Failed to schedule auto-advance", map[string]interface{}{
			"session": s.token,
			"error":   err,
		})
		return
	}
	s.cancelAdvance = cancel
}

func (s *Session) fireAdvance(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || seq != s.advanceSeq {
		autoAdvancesTotal.WithLabelValues("cancelled").Inc()
		return
	}
	s.cancelAdvance = nil
	if !s.nav.HasNext(s.pos) {
		autoAdvancesTotal.WithLabelValues("dropped").Inc()
		return
	}
	s.pos = s.nav.Next(s.pos)
	s.syncAttemptLocked()
	autoAdvancesTotal.WithLabelValues("fired").Inc()
}

func (s *Session) cancelAdvanceLocked() {
	s.advanceSeq++
	if s.cancelAdvance != nil {
		s.cancelAdvance()
		s.cancelAdvance = nil
	}
}

// Close tears the session down and defuses any pending auto-advance.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.cancelAdvanceLocked()
	s.closed = true
}
