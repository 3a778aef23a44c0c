package poll

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ijug-ev/cindy/internal/metrics"
)

// Scheduler drives sequential, non-overlapping cycles with fixed-delay
// semantics: the first tick fires after the startup delay, and each
// subsequent tick is scheduled only after the previous cycle body has
// finished. A failing cycle is logged and swallowed; the next tick is
// always scheduled.
type Scheduler struct {
	interval     time.Duration
	startupDelay time.Duration
	logger       *zap.Logger
}

// NewScheduler constructs a Scheduler.
func NewScheduler(interval, startupDelay time.Duration, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{interval: interval, startupDelay: startupDelay, logger: logger}
}

// Run blocks, firing task until the context finishes. Cancellation is
// observed at each tick boundary.
func (s *Scheduler) Run(ctx context.Context, task func(context.Context) error) {
	timer := time.NewTimer(s.startupDelay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		s.fire(ctx, task)

		if ctx.Err() != nil {
			return
		}
		s.logger.Debug("waiting for next polling interval", zap.Duration("interval", s.interval))
		timer.Reset(s.interval)
	}
}

// fire runs one cycle body, containing any error or panic so a single
// bad cycle is never fatal to the scheduler.
func (s *Scheduler) fire(ctx context.Context, task func(context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("cycle panicked", zap.Any("panic", r))
			metrics.ObserveCycle("panic")
		}
	}()

	if err := task(ctx); err != nil {
		s.logger.Error("cycle failed", zap.Error(err))
		metrics.ObserveCycle("error")
		return
	}
	metrics.ObserveCycle("ok")
}
