// Package api serves the optional operational HTTP endpoints of the reminder
// process: Prometheus metrics, a health probe and build information.
package api
