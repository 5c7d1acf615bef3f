package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestScheduler_RunsAtInterval(t *testing.T) {
	var runs atomic.Int32
	s := New(testLogger(), time.Second, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() returned an error: %v", err)
	}
	defer s.Stop()

	deadline := time.After(5 * time.Second)
	for runs.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("expected at least 2 runs, got %d", runs.Load())
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestScheduler_FailureDoesNotStopSchedule(t *testing.T) {
	var runs atomic.Int32
	s := New(testLogger(), time.Second, func(ctx context.Context) error {
		runs.Add(1)
		return errors.New("feed unavailable")
	})

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() returned an error: %v", err)
	}
	defer s.Stop()

	deadline := time.After(5 * time.Second)
	for runs.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("expected the schedule to continue after a failure, got %d runs", runs.Load())
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestScheduler_StopWaitsForInFlightRun(t *testing.T) {
	started := make(chan struct{})
	var startOnce sync.Once
	var finished atomic.Bool

	s := New(testLogger(), time.Second, func(ctx context.Context) error {
		startOnce.Do(func() { close(started) })
		time.Sleep(100 * time.Millisecond)
		finished.Store(true)
		return nil
	})

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() returned an error: %v", err)
	}

	<-started
	s.Stop()

	if !finished.Load() {
		t.Error("Stop() returned before the in-flight run finished")
	}
}
