package player

import (
	"context"
	"errors"
	"testing"
	"time"

	"course-player-backend/internal/background"
)

type stubReporter struct {
	reported  []string
	reportErr error

	progress int
	fetchErr error
	fetched  int
}

func (r *stubReporter) ReportLectureComplete(ctx context.Context, userID, courseID uint, itemID string) error {
	if r.reportErr != nil {
		return r.reportErr
	}
	r.reported = append(r.reported, itemID)
	return nil
}

func (r *stubReporter) FetchCourseProgress(ctx context.Context, userID, courseID uint) (int, error) {
	r.fetched++
	if r.fetchErr != nil {
		return 0, r.fetchErr
	}
	return r.progress, nil
}

type stubGrader struct {
	result   GradeResult
	err      error
	onSubmit func()
	calls    int
}

func (g *stubGrader) SubmitQuizAnswers(ctx context.Context, userID, courseID uint, quizID string, answers []int) (GradeResult, error) {
	g.calls++
	if g.onSubmit != nil {
		g.onSubmit()
	}
	return g.result, g.err
}

type stubJob struct {
	name      string
	delay     time.Duration
	run       func(ctx context.Context) error
	cancelled bool
}

type stubScheduler struct {
	jobs []*stubJob
}

func (s *stubScheduler) ScheduleAfter(name string, delay time.Duration, run func(ctx context.Context) error) (func(), error) {
	job := &stubJob{name: name, delay: delay, run: run}
	s.jobs = append(s.jobs, job)
	return func() { job.cancelled = true }, nil
}

// fire runs the most recent job as if its timer elapsed, regardless of the
// cancel flag, to exercise the session's own staleness guard.
func (s *stubScheduler) fire(t *testing.T) {
	t.Helper()
	if len(s.jobs) == 0 {
		t.Fatalf("no job scheduled")
	}
	job := s.jobs[len(s.jobs)-1]
	if err := job.run(context.Background()); err != nil {
		t.Fatalf("job run failed: %v", err)
	}
}

func newTestSession(reporter *stubReporter, grader *stubGrader, sched *stubScheduler) *Session {
	return NewSession(SessionConfig{
		UserID:              1,
		CourseID:            2,
		Course:              testCourse(),
		Reporter:            reporter,
		Grader:              grader,
		Scheduler:           sched,
		LectureAdvanceDelay: 2 * time.Second,
		QuizAdvanceDelay:    5 * time.Second,
	})
}

func TestSessionStartsAtFirstItem(t *testing.T) {
	session := newTestSession(&stubReporter{}, &stubGrader{}, &stubScheduler{})

	state := session.State()
	if state.Position != (Position{Chapter: 0, Item: 0}) {
		t.Fatalf("unexpected start position: %+v", state.Position)
	}
	if state.ItemID != "lecture-1" || state.TotalItems != 4 {
		t.Fatalf("unexpected snapshot: %+v", state)
	}
	if state.HasPrevious || !state.HasNext {
		t.Fatalf("availability flags wrong at start")
	}
}

func TestSessionCompleteLectureOptimisticSuccess(t *testing.T) {
	reporter := &stubReporter{progress: 25}
	sched := &stubScheduler{}
	session := newTestSession(reporter, &stubGrader{}, sched)

	state, err := session.CompleteCurrentLecture(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.CompletedCount != 1 {
		t.Fatalf("lecture not marked: %+v", state)
	}
	if len(reporter.reported) != 1 || reporter.reported[0] != "lecture-1" {
		t.Fatalf("reporter not called: %v", reporter.reported)
	}
	if state.Progress != 25 {
		t.Fatalf("authoritative progress should replace local, got %d", state.Progress)
	}

	if len(sched.jobs) != 1 || sched.jobs[0].delay != 2*time.Second {
		t.Fatalf("lecture advance not scheduled with short delay: %+v", sched.jobs)
	}

	sched.fire(t)
	if got := session.State().Position; got != (Position{Chapter: 0, Item: 1}) {
		t.Fatalf("auto-advance did not move, got %+v", got)
	}
}

func TestSessionCompleteLectureRollsBackOnFailure(t *testing.T) {
	reporter := &stubReporter{reportErr: errors.New("store down")}
	sched := &stubScheduler{}
	session := newTestSession(reporter, &stubGrader{}, sched)

	before := session.State()
	state, err := session.CompleteCurrentLecture(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	if state.CompletedCount != before.CompletedCount {
		t.Fatalf("optimistic mark not rolled back: %+v", state)
	}
	if state.Progress != before.Progress {
		t.Fatalf("progress should revert to pre-mark value")
	}
	if len(sched.jobs) != 0 {
		t.Fatalf("no advance may be scheduled on failure")
	}
}

func TestSessionCompleteLectureIdempotent(t *testing.T) {
	reporter := &stubReporter{}
	session := newTestSession(reporter, &stubGrader{}, &stubScheduler{})

	if _, err := session.CompleteCurrentLecture(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := session.CompleteCurrentLecture(context.Background()); err != nil {
		t.Fatalf("re-completing should be a no-op: %v", err)
	}
	if len(reporter.reported) != 1 {
		t.Fatalf("reporter called again for a completed lecture")
	}
}

func TestSessionCompleteRejectsQuizItem(t *testing.T) {
	session := newTestSession(&stubReporter{}, &stubGrader{}, &stubScheduler{})
	session.SelectItem("quiz-1")

	if _, err := session.CompleteCurrentLecture(context.Background()); !errors.Is(err, ErrNotLecture) {
		t.Fatalf("expected ErrNotLecture, got %v", err)
	}
}

func TestSessionNavigationCancelsPendingAdvance(t *testing.T) {
	sched := &stubScheduler{}
	session := newTestSession(&stubReporter{}, &stubGrader{}, sched)

	if _, err := session.CompleteCurrentLecture(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	session.Next()
	if !sched.jobs[0].cancelled {
		t.Fatalf("navigation must cancel the scheduled advance")
	}

	// Timer goes off anyway; the generation guard must drop it.
	pos := session.State().Position
	sched.fire(t)
	if got := session.State().Position; got != pos {
		t.Fatalf("stale advance moved the player: %+v", got)
	}
}

func TestSessionQuizFlowPerfectScore(t *testing.T) {
	grader := &stubGrader{result: GradeResult{Score: 100, CorrectCount: 1, TotalCount: 1}}
	sched := &stubScheduler{}
	session := newTestSession(&stubReporter{}, grader, sched)

	state := session.SelectItem("quiz-1")
	if state.Quiz == nil || state.Quiz.Status != QuizUnanswered {
		t.Fatalf("quiz attempt not created: %+v", state.Quiz)
	}

	if _, err := session.AnswerQuestion(0, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	state, err := session.SubmitQuiz(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Quiz.Status != QuizAccepted || !state.Quiz.ReadOnly {
		t.Fatalf("perfect score should accept: %+v", state.Quiz)
	}
	if state.CompletedCount != 1 {
		t.Fatalf("quiz completion not tracked")
	}
	if len(sched.jobs) != 1 || sched.jobs[0].delay != 5*time.Second {
		t.Fatalf("quiz advance not scheduled with long delay: %+v", sched.jobs)
	}
}

func TestSessionQuizFlowImperfectScore(t *testing.T) {
	grader := &stubGrader{result: GradeResult{Score: 0, CorrectCount: 0, TotalCount: 1}}
	sched := &stubScheduler{}
	session := newTestSession(&stubReporter{}, grader, sched)

	session.SelectItem("quiz-1")
	session.AnswerQuestion(0, 1)

	state, err := session.SubmitQuiz(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Quiz.Status != QuizGraded {
		t.Fatalf("imperfect score stays graded: %+v", state.Quiz)
	}
	if state.CompletedCount != 0 {
		t.Fatalf("imperfect quiz must not complete")
	}
	if len(sched.jobs) != 0 {
		t.Fatalf("no advance on imperfect score")
	}

	state, err = session.RetryQuiz()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Quiz.Status != QuizAnswering || len(state.Quiz.Answers) != 0 {
		t.Fatalf("retry should clear answers: %+v", state.Quiz)
	}
}

func TestSessionSubmitRequiresAllAnswers(t *testing.T) {
	session := newTestSession(&stubReporter{}, &stubGrader{}, &stubScheduler{})
	session.SelectItem("quiz-1")

	if _, err := session.SubmitQuiz(context.Background()); !errors.Is(err, ErrIncompleteAnswers) {
		t.Fatalf("expected ErrIncompleteAnswers, got %v", err)
	}
}

func TestSessionDoubleSubmitRejected(t *testing.T) {
	var session *Session
	var nestedErr error
	grader := &stubGrader{result: GradeResult{Score: 100, CorrectCount: 1, TotalCount: 1}}
	grader.onSubmit = func() {
		_, nestedErr = session.SubmitQuiz(context.Background())
	}

	session = newTestSession(&stubReporter{}, grader, &stubScheduler{})
	session.SelectItem("quiz-1")
	session.AnswerQuestion(0, 0)

	if _, err := session.SubmitQuiz(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !errors.Is(nestedErr, ErrSubmitInProgress) {
		t.Fatalf("in-flight submit must block a second one, got %v", nestedErr)
	}
	if grader.calls != 1 {
		t.Fatalf("grader called %d times", grader.calls)
	}
}

func TestSessionDropsStaleGradingResult(t *testing.T) {
	var session *Session
	grader := &stubGrader{result: GradeResult{Score: 100, CorrectCount: 1, TotalCount: 1}}
	grader.onSubmit = func() {
		// Learner navigates away while the grading call is outstanding.
		session.SelectItem("lecture-1")
	}

	session = newTestSession(&stubReporter{}, grader, &stubScheduler{})
	session.SelectItem("quiz-1")
	session.AnswerQuestion(0, 0)

	state, err := session.SubmitQuiz(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.ItemID != "lecture-1" {
		t.Fatalf("position should reflect the navigation: %+v", state)
	}
	if state.CompletedCount != 0 {
		t.Fatalf("stale result must not complete the quiz")
	}
}

func TestSessionQuizReentryAfterAccept(t *testing.T) {
	grader := &stubGrader{result: GradeResult{Score: 100, CorrectCount: 1, TotalCount: 1}}
	session := newTestSession(&stubReporter{}, grader, &stubScheduler{})

	session.SelectItem("quiz-1")
	session.AnswerQuestion(0, 0)
	if _, err := session.SubmitQuiz(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	session.SelectItem("lecture-1")
	state := session.SelectItem("quiz-1")
	if state.Quiz == nil || !state.Quiz.ReadOnly || state.Quiz.Status != QuizAccepted {
		t.Fatalf("completed quiz should render read-only on re-entry: %+v", state.Quiz)
	}
}

func TestSessionGradingFailureReturnsToAnswering(t *testing.T) {
	grader := &stubGrader{err: errors.New("grader down")}
	session := newTestSession(&stubReporter{}, grader, &stubScheduler{})

	session.SelectItem("quiz-1")
	session.AnswerQuestion(0, 0)

	state, err := session.SubmitQuiz(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	if state.Quiz.Status != QuizAnswering {
		t.Fatalf("failed grading returns to answering: %+v", state.Quiz)
	}
	if len(state.Quiz.Answers) != 1 {
		t.Fatalf("selections must survive a grading failure")
	}
}

func TestSessionRefreshProgressFailureKeepsLocal(t *testing.T) {
	reporter := &stubReporter{fetchErr: errors.New("offline")}
	session := newTestSession(reporter, &stubGrader{}, &stubScheduler{})

	before := session.State().Progress
	state := session.RefreshProgress(context.Background())
	if state.Progress != before {
		t.Fatalf("failed refresh must keep the local value")
	}
}

func TestSessionAdvanceAtEndIsDropped(t *testing.T) {
	sched := &stubScheduler{}
	session := newTestSession(&stubReporter{}, &stubGrader{}, sched)

	// Move to the last item, a lecture, and complete it.
	session.SelectItem("lecture-3")
	if _, err := session.CompleteCurrentLecture(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pos := session.State().Position
	sched.fire(t)
	if got := session.State().Position; got != pos {
		t.Fatalf("advance past the end must be a no-op, got %+v", got)
	}
}

func TestSessionStaysResponsiveWhenSchedulerIsSaturated(t *testing.T) {
	sched := background.NewScheduler(background.SchedulerConfig{WorkerCount: 1, QueueSize: 1})
	ctx, cancel := context.WithCancel(context.Background())
	sched.Start(ctx)
	t.Cleanup(func() {
		cancel()
		shutdownCtx, stop := context.WithTimeout(context.Background(), 2*time.Second)
		defer stop()
		sched.Shutdown(shutdownCtx)
	})

	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	// Occupy the only worker and fill the queue so the auto-advance has
	// nowhere to go.
	if err := sched.Schedule(background.Job{Name: "busy", Run: func(ctx context.Context) error { <-release; return nil }}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if err := sched.Schedule(background.Job{Name: "filler", Run: func(ctx context.Context) error { return nil }}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	session := NewSession(SessionConfig{
		UserID:              1,
		CourseID:            2,
		Course:              testCourse(),
		Reporter:            &stubReporter{},
		Grader:              &stubGrader{},
		Scheduler:           sched,
		LectureAdvanceDelay: time.Millisecond,
		QuizAdvanceDelay:    time.Millisecond,
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := session.CompleteCurrentLecture(context.Background()); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		session.State()
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("session blocked behind a saturated scheduler")
	}
}

func TestSessionClosedRejectsMutations(t *testing.T) {
	session := newTestSession(&stubReporter{}, &stubGrader{}, &stubScheduler{})
	session.Close()

	if _, err := session.CompleteCurrentLecture(context.Background()); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
	if _, err := session.SubmitQuiz(context.Background()); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
}
