// Package loan holds the loan account record read from the tabular data file,
// the CSV loader that produces it, and the overdue (defaulter) filter.
package loan
