package plaid

import (
	"context"
	"time"

	"github.com/Veraticus/spendwise/internal/model"
)

// TransactionFetcher defines the contract for fetching card spending.
// Implementations return debits only, already mapped to spendwise categories.
type TransactionFetcher interface {
	GetTransactions(ctx context.Context, startDate, endDate time.Time) ([]model.Transaction, error)
	GetAccounts(ctx context.Context) ([]string, error)
}
