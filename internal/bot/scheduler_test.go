package bot

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/edgard/habitbot/internal/config"
)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := NewScheduler(logger, &config.SchedulerConfig{}, nil)
	if err != nil {
		t.Fatalf("NewScheduler() error = %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Stop() })
	return s
}

func TestScheduleAtRunsWithOwnHandle(t *testing.T) {
	t.Parallel()
	s := newTestScheduler(t)

	got := make(chan uuid.UUID, 1)
	id, err := s.ScheduleAt("reminder_1", time.Now().Add(100*time.Millisecond), func(_ context.Context, jobID uuid.UUID) {
		got <- jobID
	})
	if err != nil {
		t.Fatalf("ScheduleAt() error = %v", err)
	}

	select {
	case jobID := <-got:
		if jobID != id {
			t.Errorf("task received %s, want %s", jobID, id)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("deferred job did not run")
	}
}

func TestCancelPreventsRun(t *testing.T) {
	t.Parallel()
	s := newTestScheduler(t)

	ran := make(chan struct{}, 1)
	id, err := s.ScheduleAt("reminder_2", time.Now().Add(300*time.Millisecond), func(context.Context, uuid.UUID) {
		ran <- struct{}{}
	})
	if err != nil {
		t.Fatalf("ScheduleAt() error = %v", err)
	}
	if err := s.Cancel(id); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if err := s.Cancel(id); err != nil {
		t.Errorf("second Cancel() error = %v, want nil", err)
	}
	if err := s.Cancel(uuid.New()); err != nil {
		t.Errorf("Cancel(unknown) error = %v, want nil", err)
	}

	select {
	case <-ran:
		t.Fatal("cancelled job ran")
	case <-time.After(time.Second):
	}
}

func TestFiredJobsAreRemoved(t *testing.T) {
	t.Parallel()
	s := newTestScheduler(t)

	const n = 5
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		_, err := s.ScheduleAt("reminder_"+strconv.Itoa(i), time.Now().Add(100*time.Millisecond), func(context.Context, uuid.UUID) {
			wg.Done()
		})
		if err != nil {
			t.Fatalf("ScheduleAt() error = %v", err)
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("deferred jobs did not run")
	}

	// Removal happens after the task returns.
	deadline := time.Now().Add(5 * time.Second)
	for len(s.scheduler.Jobs()) > 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if left := len(s.scheduler.Jobs()); left != 0 {
		t.Errorf("jobs left after firing = %d, want 0", left)
	}
}
