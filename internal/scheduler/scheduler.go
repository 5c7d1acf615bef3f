// Package scheduler runs the periodic reconciliation checks.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/beekhof/calwatch/internal/lib/logger/sl"
)

// Scheduler triggers a reconciliation check at a fixed interval. A
// failed run is logged and the schedule keeps going.
type Scheduler struct {
	log      *slog.Logger
	cron     *cron.Cron
	interval time.Duration
	run      func(ctx context.Context) error
}

// New builds a scheduler around the given run function.
func New(log *slog.Logger, interval time.Duration, run func(ctx context.Context) error) *Scheduler {
	return &Scheduler{
		log:      log,
		cron:     cron.New(),
		interval: interval,
		run:      run,
	}
}

// Start registers the job and starts the cron loop. The context bounds
// each individual run, not the loop itself; call Stop to end the loop.
func (s *Scheduler) Start(ctx context.Context) error {
	spec := fmt.Sprintf("@every %s", s.interval)
	_, err := s.cron.AddFunc(spec, func() {
		runCtx, cancel := context.WithTimeout(ctx, s.interval)
		defer cancel()

		if err := s.run(runCtx); err != nil {
			s.log.Error("scheduled check failed", sl.Err(err))
		}
	})
	if err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}

	s.cron.Start()
	s.log.Info("scheduler started", slog.Duration("interval", s.interval))
	return nil
}

// Stop ends the schedule and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}
