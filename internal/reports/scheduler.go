package reports

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Scheduler drives the Recomputer on a fixed cadence.  Failures are
// logged and the next tick retries; a skipped (already-running) tick is
// a successful no-op.
type Scheduler struct {
	recomputer *Recomputer
	interval   time.Duration
	logger     *zap.Logger
}

func NewScheduler(recomputer *Recomputer, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{recomputer: recomputer, interval: interval, logger: logger}
}

// RunInitial performs one synchronous recomputation, used at bootstrap
// so a fresh deployment serves data before the first scheduled run.
func (s *Scheduler) RunInitial(ctx context.Context) error {
	return s.recomputer.Recompute(ctx, time.Now().UTC())
}

// Run blocks until ctx is done, recomputing every interval.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.recomputer.Recompute(ctx, time.Now().UTC()); err != nil {
				s.logger.Error("scheduled recomputation failed", zap.Error(err))
			}
		case <-ctx.Done():
			return
		}
	}
}
