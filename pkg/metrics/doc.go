// Package metrics defines Prometheus metrics for the loan reminder, covering
// reminder cycles, loaded and overdue accounts, and mail delivery.
package metrics
