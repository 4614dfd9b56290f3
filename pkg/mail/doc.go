// Package mail provides the SMTP transport used to deliver loan reminders,
// including per-batch authenticated sessions with reconnect-on-failure and
// HTML reminder template rendering.
package mail
