package loan

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrLoad marks every failure to read the loan data file. Callers skip the
// cycle on it.
var ErrLoad = errors.New("error loading loan data")

var (
	errMissingColumn = errors.New("required column missing")
	errInvalidAmount = errors.New("invalid outstanding amount")
)

// LoadError wraps err as a load failure for source.
func LoadError(source string, err error) error {
	return fmt.Errorf("%w from %s: %w", ErrLoad, source, err)
}

// FileLoader reads accounts from a CSV file on every call to Load.
type FileLoader struct {
	path string
	log  *zap.SugaredLogger
}

// NewFileLoader creates a loader for the CSV file at path.
func NewFileLoader(path string, log *zap.SugaredLogger) *FileLoader {
	return &FileLoader{
		path: path,
		log:  log.Named("loader"),
	}
}

// Path returns the data file the loader reads.
func (l *FileLoader) Path() string {
	return l.path
}

// Load reads and parses every record of the data file.
func (l *FileLoader) Load(ctx context.Context) ([]Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.log.Debugw("Loading loan data", "path", l.path)

	file, err := os.Open(l.path)
	if err != nil {
		return nil, LoadError(l.path, err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			l.log.Warnw("Failed to close loan data file", "path", l.path, "error", closeErr)
		}
	}()

	accounts, err := ParseAccounts(file)
	if err != nil {
		return nil, LoadError(l.path, err)
	}

	l.log.Infow("Loaded loan data", "path", l.path, "records", len(accounts))
	return accounts, nil
}

// ParseAccounts reads CSV content with a header row into accounts. Header
// names are matched case-insensitively and extra columns are ignored.
func ParseAccounts(r io.Reader) ([]Account, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file, expected header", errMissingColumn)
		}
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	colIndex := make(map[string]int, len(header))
	for i, col := range header {
		colIndex[normalizeHeader(col)] = i
	}
	for _, required := range RequiredColumns {
		if _, ok := colIndex[normalizeHeader(required)]; !ok {
			return nil, fmt.Errorf("%w: %q", errMissingColumn, required)
		}
	}
	field := func(record []string, column string) string {
		return strings.TrimSpace(record[colIndex[normalizeHeader(column)]])
	}

	var accounts []Account
	for {
		record, readErr := reader.Read()
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to read CSV record: %w", readErr)
		}
		line, _ := reader.FieldPos(0)

		dueDate, dateErr := ParseDate(field(record, ColumnDueDate))
		if dateErr != nil {
			return nil, fmt.Errorf("line %d: %w", line, dateErr)
		}

		amount, amountErr := parseAmount(field(record, ColumnOutstandingAmount))
		if amountErr != nil {
			return nil, fmt.Errorf("line %d: %w", line, amountErr)
		}

		accounts = append(accounts, Account{
			ID:                field(record, ColumnUserID),
			Name:              field(record, ColumnName),
			Email:             field(record, ColumnEmail),
			OutstandingAmount: amount,
			LoanType:          field(record, ColumnLoanType),
			DueDate:           dueDate,
		})
	}

	return accounts, nil
}

// parseAmount accepts plain decimals as well as values with a leading
// currency symbol and thousands separators ("$1,250.00").
func parseAmount(raw string) (decimal.Decimal, error) {
	cleaned := strings.TrimPrefix(strings.TrimSpace(raw), "$")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w %q: %w", errInvalidAmount, raw, err)
	}
	return amount, nil
}

func normalizeHeader(col string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")))
}
