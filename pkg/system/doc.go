// Package system holds process-wide helpers: logger construction and the
// request-scoped logger used by the HTTP endpoints.
package system
