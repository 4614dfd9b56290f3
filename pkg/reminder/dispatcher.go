package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mvlzerz/loan-reminder/pkg/loan"
	"github.com/mvlzerz/loan-reminder/pkg/mail"
	"github.com/mvlzerz/loan-reminder/pkg/metrics"
	"github.com/mvlzerz/loan-reminder/pkg/retry"
)

// ErrTransportSetup is returned when no mail session could be opened for a
// batch. No reminder of the batch has been sent in that case.
var ErrTransportSetup = errors.New("mail transport setup failed")

const (
	DefaultMaxAttempts  = 2
	DefaultRetryDelay   = 5 * time.Second
	DefaultBrandingName = "Mvlzerz App"
)

type Options struct {
	// MaxAttempts is the number of delivery attempts per account.
	MaxAttempts int
	// RetryDelay is the pause between two attempts for the same account.
	RetryDelay   time.Duration
	BrandingName string
	// Wait overrides the pause between attempts. Used by tests.
	Wait func(ctx context.Context, d time.Duration) error
}

func DefaultOptions() Options {
	return Options{
		MaxAttempts:  DefaultMaxAttempts,
		RetryDelay:   DefaultRetryDelay,
		BrandingName: DefaultBrandingName,
	}
}

// Failure describes an account whose reminder could not be delivered.
type Failure struct {
	Account  loan.Account
	Attempts int
	Err      error
}

// Report summarizes one dispatched batch.
type Report struct {
	Total    int
	Sent     int
	Failed   int
	Failures []Failure
}

type Dispatcher struct {
	transport mail.Transport
	opts      Options
	log       *zap.SugaredLogger
}

func NewDispatcher(transport mail.Transport, opts Options, log *zap.SugaredLogger) *Dispatcher {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.RetryDelay < 0 {
		opts.RetryDelay = 0
	}
	return &Dispatcher{
		transport: transport,
		opts:      opts,
		log:       log.Named("reminder"),
	}
}

// NewReminderParams maps an account onto the reminder template fields.
func NewReminderParams(account loan.Account, brandingName string) mail.ReminderMailParams {
	return mail.ReminderMailParams{
		Name:         account.Name,
		Amount:       account.FormattedAmount(),
		LoanType:     account.LoanType,
		DueDate:      account.DueDate.String(),
		AccountID:    account.ID,
		BrandingName: brandingName,
	}
}

// Dispatch sends one reminder per defaulter, in order, over a single mail
// session. Delivery failures are recorded in the report and never abort the
// batch. An error is returned only when the session cannot be opened or ctx
// is cancelled.
func (d *Dispatcher) Dispatch(ctx context.Context, defaulters []loan.Account) (*Report, error) {
	report := &Report{Total: len(defaulters)}
	if len(defaulters) == 0 {
		return report, nil
	}

	session, err := d.transport.Open(ctx)
	if err != nil {
		d.log.Errorw("Failed to open mail session, skipping batch", "defaulters", len(defaulters), "error", err)
		return nil, fmt.Errorf("%w: %w", ErrTransportSetup, err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			d.log.Warnw("Failed to close mail session", "error", cerr)
		}
	}()

	for _, account := range defaulters {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		d.remind(ctx, session, account, report)
	}

	d.log.Infow("Reminder batch finished", "total", report.Total, "sent", report.Sent, "failed", report.Failed)
	return report, ctx.Err()
}

func (d *Dispatcher) remind(ctx context.Context, session mail.Session, account loan.Account, report *Report) {
	log := d.log.With("account", account.ID, "email", account.Email)

	body, err := mail.RenderReminder(NewReminderParams(account, d.opts.BrandingName))
	if err != nil {
		log.Errorw("Failed to render reminder", "error", err)
		d.fail(report, account, 0, err)
		return
	}

	cfg := retry.FixedConfig(d.opts.MaxAttempts, d.opts.RetryDelay)
	cfg.Wait = d.opts.Wait
	cfg.OnFailure = func(attempt int, err error) {
		metrics.SendAttemptsFailed.Inc()
		log.Warnw("Reminder delivery attempt failed",
			"attempt", attempt, "maxAttempts", d.opts.MaxAttempts, "error", err)
	}

	attempts, err := retry.Do(ctx, cfg, func(int) error {
		return session.Send([]string{account.Email}, mail.ReminderSubject, body)
	})
	if err != nil {
		log.Errorw("Giving up on reminder", "attempts", attempts, "error", err)
		d.fail(report, account, attempts, err)
		return
	}

	log.Infow("Reminder sent", "attempts", attempts)
	metrics.RemindersSent.Inc()
	report.Sent++
}

func (d *Dispatcher) fail(report *Report, account loan.Account, attempts int, err error) {
	metrics.RemindersFailed.Inc()
	report.Failed++
	report.Failures = append(report.Failures, Failure{Account: account, Attempts: attempts, Err: err})
}
