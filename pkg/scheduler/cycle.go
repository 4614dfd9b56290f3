package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mvlzerz/loan-reminder/pkg/loan"
	"github.com/mvlzerz/loan-reminder/pkg/metrics"
	"github.com/mvlzerz/loan-reminder/pkg/reminder"
)

// Loader reads the full set of loan accounts.
type Loader interface {
	Load(ctx context.Context) ([]loan.Account, error)
}

// Dispatcher delivers reminders to a batch of defaulters.
type Dispatcher interface {
	Dispatch(ctx context.Context, defaulters []loan.Account) (*reminder.Report, error)
}

// CycleResult describes one completed cycle. Report is nil when nothing was
// dispatched.
type CycleResult struct {
	ID         string
	Today      loan.Date
	Loaded     int
	Defaulters int
	Report     *reminder.Report
}

type Cycle struct {
	loader     Loader
	dispatcher Dispatcher
	now        func() time.Time
	log        *zap.SugaredLogger
}

type CycleOption func(*Cycle)

// WithClock overrides the clock used to determine today's date.
func WithClock(now func() time.Time) CycleOption {
	return func(c *Cycle) {
		c.now = now
	}
}

func NewCycle(loader Loader, dispatcher Dispatcher, log *zap.SugaredLogger, opts ...CycleOption) *Cycle {
	c := &Cycle{
		loader:     loader,
		dispatcher: dispatcher,
		now:        time.Now,
		log:        log.Named("cycle"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunOnce performs a single load, filter and dispatch pass. The dispatcher is
// only invoked when at least one account is overdue.
func (c *Cycle) RunOnce(ctx context.Context) (*CycleResult, error) {
	result := &CycleResult{
		ID:    uuid.NewString(),
		Today: loan.DateOf(c.now()),
	}
	log := c.log.With("cycle", result.ID, "today", result.Today.String())

	log.Info("Checking for overdue loans")
	accounts, err := c.loader.Load(ctx)
	if err != nil {
		metrics.CyclesTotal.WithLabelValues(metrics.OutcomeLoadFailed).Inc()
		log.Errorw("Failed to load loan data", "error", err)
		return result, fmt.Errorf("cycle %s: %w", result.ID, err)
	}
	result.Loaded = len(accounts)
	metrics.AccountsLoaded.Add(float64(len(accounts)))

	defaulters := loan.FindDefaulters(result.Today, accounts)
	result.Defaulters = len(defaulters)
	metrics.DefaultersFound.Add(float64(len(defaulters)))

	if len(defaulters) == 0 {
		metrics.CyclesTotal.WithLabelValues(metrics.OutcomeNoDefaulters).Inc()
		metrics.LastCycleTimestamp.SetToCurrentTime()
		log.Infow("No overdue loans found", "accounts", len(accounts))
		return result, nil
	}
	log.Infow("Found overdue loans", "accounts", len(accounts), "defaulters", len(defaulters))

	report, err := c.dispatcher.Dispatch(ctx, defaulters)
	result.Report = report
	if err != nil {
		if errors.Is(err, reminder.ErrTransportSetup) {
			metrics.CyclesTotal.WithLabelValues(metrics.OutcomeTransportSetup).Inc()
		}
		return result, fmt.Errorf("cycle %s: %w", result.ID, err)
	}

	metrics.CyclesTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	metrics.LastCycleTimestamp.SetToCurrentTime()
	log.Infow("Cycle finished", "sent", report.Sent, "failed", report.Failed)
	return result, nil
}
