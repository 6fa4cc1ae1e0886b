package background

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func startedScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s := NewScheduler(SchedulerConfig{WorkerCount: 1, QueueSize: 4})
	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	t.Cleanup(func() {
		cancel()
		shutdownCtx, stop := context.WithTimeout(context.Background(), 2*time.Second)
		defer stop()
		s.Shutdown(shutdownCtx)
	})
	return s
}

func TestScheduleRequiresStart(t *testing.T) {
	s := NewScheduler(SchedulerConfig{})
	err := s.Schedule(Job{Name: "x", Run: func(ctx context.Context) error { return nil }})
	if !errors.Is(err, ErrSchedulerNotStarted) {
		t.Fatalf("expected ErrSchedulerNotStarted, got %v", err)
	}
}

func TestScheduleAfterRuns(t *testing.T) {
	s := startedScheduler(t)

	done := make(chan struct{})
	_, err := s.ScheduleAfter("fires", 5*time.Millisecond, func(ctx context.Context) error {
		close(done)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("job never ran")
	}
}

func TestScheduleAfterCancelPreventsRun(t *testing.T) {
	s := startedScheduler(t)

	var ran atomic.Bool
	cancel, err := s.ScheduleAfter("revoked", 50*time.Millisecond, func(ctx context.Context) error {
		ran.Store(true)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cancel()
	cancel() // safe to call twice

	time.Sleep(150 * time.Millisecond)
	if ran.Load() {
		t.Fatalf("cancelled job must not run")
	}
}

func TestScheduleAfterDoesNotBlockWhenQueueIsFull(t *testing.T) {
	s := NewScheduler(SchedulerConfig{WorkerCount: 1, QueueSize: 1})
	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	t.Cleanup(func() {
		cancel()
		shutdownCtx, stop := context.WithTimeout(context.Background(), 2*time.Second)
		defer stop()
		s.Shutdown(shutdownCtx)
	})

	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	// Occupy the only worker, then fill the queue.
	if err := s.Schedule(Job{Name: "busy", Run: func(ctx context.Context) error { <-release; return nil }}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if err := s.Schedule(Job{Name: "filler", Run: func(ctx context.Context) error { return nil }}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var ran atomic.Bool
	returned := make(chan struct{})
	go func() {
		defer close(returned)
		if _, err := s.ScheduleAfter("crowded-out", 10*time.Millisecond, func(ctx context.Context) error {
			ran.Store(true)
			return nil
		}); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	}()

	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatalf("ScheduleAfter blocked on a full queue")
	}

	time.Sleep(100 * time.Millisecond)
	if ran.Load() {
		t.Fatalf("job must be dropped, not run, when the queue is full")
	}
}

func TestScheduleUniqueRejectsDuplicate(t *testing.T) {
	s := startedScheduler(t)

	job := Job{
		Name:  "only-one",
		Delay: time.Second,
		Run:   func(ctx context.Context) error { return nil },
	}
	if err := s.ScheduleUnique(job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.ScheduleUnique(job); !errors.Is(err, ErrJobAlreadyScheduled) {
		t.Fatalf("expected ErrJobAlreadyScheduled, got %v", err)
	}
	if s.ActiveJobCount() != 1 {
		t.Fatalf("expected 1 active job, got %d", s.ActiveJobCount())
	}
}

func TestScheduleValidatesJob(t *testing.T) {
	s := startedScheduler(t)

	if err := s.Schedule(Job{Run: func(ctx context.Context) error { return nil }}); err == nil {
		t.Fatalf("job without name must be rejected")
	}
	if err := s.Schedule(Job{Name: "no-runner"}); err == nil {
		t.Fatalf("job without runner must be rejected")
	}
}
