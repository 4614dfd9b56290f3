// Package reminder delivers overdue-loan reminders to a batch of defaulting
// accounts over a single mail session, retrying each delivery a bounded
// number of times.
package reminder
