package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mvlzerz/loan-reminder/pkg/retry"
)

// DefaultInterval is the pause between the end of one cycle and the start of
// the next.
const DefaultInterval = 48 * time.Hour

// Runner runs a single reminder cycle.
type Runner interface {
	RunOnce(ctx context.Context) (*CycleResult, error)
}

// Scheduler runs a cycle immediately and then again after every Interval until
// its context is cancelled. Cycle errors are logged and never stop the loop.
type Scheduler struct {
	Log      *zap.SugaredLogger
	Cycle    Runner
	Interval time.Duration
	// Wait blocks for the interval or until ctx is done. Defaults to retry.Sleep.
	Wait func(ctx context.Context, d time.Duration) error
}

func (s Scheduler) Run(ctx context.Context) {
	lg := s.Log
	if lg == nil {
		lg = zap.NewNop().Sugar()
	}
	interval := s.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	wait := s.Wait
	if wait == nil {
		wait = retry.Sleep
	}

	lg.Infow("Reminder scheduler started", "interval", interval.String())
	for {
		select {
		case <-ctx.Done():
			lg.Info("Reminder scheduler stopping (context canceled)")
			return
		default:
		}

		if _, err := s.Cycle.RunOnce(ctx); err != nil && ctx.Err() == nil {
			lg.Errorw("Reminder cycle failed", "error", err)
		}

		lg.Infow("Next check scheduled", "in", interval.String(), "at", time.Now().Add(interval).Format(time.RFC3339))
		if err := wait(ctx, interval); err != nil {
			lg.Info("Reminder scheduler stopping (context canceled)")
			return
		}
	}
}
