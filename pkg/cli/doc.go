// Package cli defines the loan-reminder command tree: the scheduled run, a
// single cycle, a dry-run preview of the overdue accounts and the version.
package cli
