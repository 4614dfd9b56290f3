package loan

import (
	"github.com/shopspring/decimal"
)

// Column headers of the loan data file. Matching is case-insensitive.
const (
	ColumnUserID            = "User ID"
	ColumnName              = "Name"
	ColumnEmail             = "Email"
	ColumnOutstandingAmount = "Outstanding Amount"
	ColumnLoanType          = "Loan Type"
	ColumnDueDate           = "Due Date"
)

// RequiredColumns lists the headers every data file must carry.
var RequiredColumns = []string{
	ColumnUserID,
	ColumnName,
	ColumnEmail,
	ColumnOutstandingAmount,
	ColumnLoanType,
	ColumnDueDate,
}

// Account is a single loan account row. It is rebuilt on every load and
// never written back.
type Account struct {
	// ID is the account holder's reference ID.
	ID                string
	Name              string
	Email             string
	OutstandingAmount decimal.Decimal
	// LoanType is the loan category, e.g. "Personal Loan".
	LoanType string
	DueDate  Date
}

// IsOverdue reports whether the account's due date is on or before today.
func (a Account) IsOverdue(today Date) bool {
	return !a.DueDate.After(today)
}

// FormattedAmount renders the outstanding amount padded to two decimals.
// Amounts with more precision are printed as read, never rounded.
func (a Account) FormattedAmount() string {
	if a.OutstandingAmount.Exponent() >= -2 {
		return a.OutstandingAmount.StringFixed(2)
	}
	return a.OutstandingAmount.String()
}
