package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cycle outcome label values.
const (
	OutcomeSuccess        = "success"
	OutcomeNoDefaulters   = "no_defaulters"
	OutcomeLoadFailed     = "load_failed"
	OutcomeTransportSetup = "transport_setup_failed"
)

var (
	// Cycle metrics
	CyclesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "loan_reminder_cycles_total",
		Help: "Total number of reminder cycles grouped by outcome",
	}, []string{"outcome"})
	LastCycleTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "loan_reminder_last_cycle_timestamp_seconds",
		Help: "Unix time of the last successful reminder cycle",
	})
	AccountsLoaded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "loan_reminder_accounts_loaded_total",
		Help: "Total number of loan account records read from the data file",
	})
	DefaultersFound = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "loan_reminder_defaulters_found_total",
		Help: "Total number of overdue accounts selected for a reminder",
	})

	// Reminder delivery metrics
	RemindersSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "loan_reminder_reminders_sent_total",
		Help: "Total number of reminders delivered",
	})
	RemindersFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "loan_reminder_reminders_failed_total",
		Help: "Total number of reminders that failed after all attempts",
	})
	SendAttemptsFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "loan_reminder_send_attempts_failed_total",
		Help: "Total number of failed individual send attempts",
	})

	// Mail metrics
	MailSendSuccess = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "loan_reminder_mail_send_success_total",
		Help: "Total number of successful mail sends",
	}, []string{"host"})
	MailSendFailure = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "loan_reminder_mail_send_failure_total",
		Help: "Total number of failed mail sends",
	}, []string{"host"})
	MailDialFailure = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "loan_reminder_mail_dial_failure_total",
		Help: "Total number of failed SMTP connection or authentication attempts",
	}, []string{"host"})
)

func init() {
	prometheus.MustRegister(CyclesTotal)
	prometheus.MustRegister(LastCycleTimestamp)
	prometheus.MustRegister(AccountsLoaded)
	prometheus.MustRegister(DefaultersFound)
	prometheus.MustRegister(RemindersSent)
	prometheus.MustRegister(RemindersFailed)
	prometheus.MustRegister(SendAttemptsFailed)
	prometheus.MustRegister(MailSendSuccess)
	prometheus.MustRegister(MailSendFailure)
	prometheus.MustRegister(MailDialFailure)
}

// MetricsHandler returns an http.Handler exposing Prometheus metrics.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
