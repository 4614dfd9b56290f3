// Package scheduler runs the reminder cycle: load the loan data, select the
// overdue accounts and dispatch reminders, then wait for the next check.
package scheduler
