package loan

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func account(id string, due Date) Account {
	return Account{
		ID:                id,
		Name:              "Holder " + id,
		Email:             id + "@example.com",
		OutstandingAmount: decimal.NewFromInt(100),
		LoanType:          "Personal Loan",
		DueDate:           due,
	}
}

func TestFindDefaulters(t *testing.T) {
	today := Date{Year: 2026, Month: time.October, Day: 16}

	tests := []struct {
		name     string
		accounts []Account
		want     []string
	}{
		{
			name:     "no accounts",
			accounts: nil,
			want:     []string{},
		},
		{
			name: "due today is included",
			accounts: []Account{
				account("today", today),
			},
			want: []string{"today"},
		},
		{
			name: "due tomorrow is excluded",
			accounts: []Account{
				account("tomorrow", today.AddDays(1)),
			},
			want: []string{},
		},
		{
			name: "mixed keeps input order",
			accounts: []Account{
				account("future", today.AddDays(30)),
				account("yesterday", today.AddDays(-1)),
				account("last-year", today.AddDays(-365)),
				account("today", today),
			},
			want: []string{"yesterday", "last-year", "today"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindDefaulters(today, tt.accounts)
			ids := make([]string, 0, len(got))
			for _, a := range got {
				ids = append(ids, a.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestFindDefaulters_DoesNotMutateInput(t *testing.T) {
	today := Date{Year: 2026, Month: time.October, Day: 16}
	accounts := []Account{
		account("a", today.AddDays(5)),
		account("b", today.AddDays(-5)),
	}

	_ = FindDefaulters(today, accounts)

	assert.Equal(t, "a", accounts[0].ID)
	assert.Equal(t, "b", accounts[1].ID)
}
