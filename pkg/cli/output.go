package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/mvlzerz/loan-reminder/pkg/loan"
)

type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// DefaulterView is the printable form of an overdue account.
type DefaulterView struct {
	ID                string `json:"id" yaml:"id"`
	Name              string `json:"name" yaml:"name"`
	Email             string `json:"email" yaml:"email"`
	OutstandingAmount string `json:"outstandingAmount" yaml:"outstandingAmount"`
	LoanType          string `json:"loanType" yaml:"loanType"`
	DueDate           string `json:"dueDate" yaml:"dueDate"`
}

func NewDefaulterViews(accounts []loan.Account) []DefaulterView {
	views := make([]DefaulterView, 0, len(accounts))
	for _, a := range accounts {
		views = append(views, DefaulterView{
			ID:                a.ID,
			Name:              a.Name,
			Email:             a.Email,
			OutstandingAmount: a.FormattedAmount(),
			LoanType:          a.LoanType,
			DueDate:           a.DueDate.String(),
		})
	}
	return views
}

func WriteObject(w io.Writer, format Format, obj any) error {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(obj, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case FormatYAML:
		data, err := yaml.Marshal(obj)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(w, string(data))
		return err
	case FormatTable:
		return fmt.Errorf("table format requires a specific formatter")
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}

func WriteDefaulterTable(w io.Writer, accounts []loan.Account) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tAMOUNT\tLOAN_TYPE\tDUE_DATE")
	for _, a := range accounts {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", a.ID, a.Name, a.Email, a.FormattedAmount(), a.LoanType, a.DueDate)
	}
	_ = tw.Flush()
}
