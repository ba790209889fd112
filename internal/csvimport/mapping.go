package csvimport

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/spendwise/internal/model"
)

// ErrIncompleteMapping is returned when a required column is not mapped.
var ErrIncompleteMapping = errors.New("date, merchant, and amount columns are required")

// ColumnMapping names the CSV header that feeds each transaction field.
// Category and CardLabel are optional.
type ColumnMapping struct {
	Date      string `json:"date"`
	Merchant  string `json:"merchant"`
	Amount    string `json:"amount"`
	Category  string `json:"category,omitempty"`
	CardLabel string `json:"cardLabel,omitempty"`
}

// Validate checks that the required columns are set.
func (m ColumnMapping) Validate() error {
	if m.Date == "" || m.Merchant == "" || m.Amount == "" {
		return ErrIncompleteMapping
	}
	return nil
}

// ValidateHeaders checks that every mapped column exists in headers.
func (m ColumnMapping) ValidateHeaders(headers []string) error {
	known := make(map[string]bool, len(headers))
	for _, h := range headers {
		known[h] = true
	}
	for _, col := range []string{m.Date, m.Merchant, m.Amount, m.Category, m.CardLabel} {
		if col != "" && !known[col] {
			return fmt.Errorf("column %q not found in CSV headers", col)
		}
	}
	return nil
}

// MapRows converts parsed rows into transactions using mapping. Rows with an
// unreadable date, a missing or zero amount, or no merchant are skipped and
// reported as warnings numbered by their line in the file.
func MapRows(result *ParseResult, mapping ColumnMapping) ([]model.Transaction, []string, error) {
	if err := mapping.Validate(); err != nil {
		return nil, nil, err
	}

	transactions := make([]model.Transaction, 0, len(result.Rows))
	warnings := []string{}

	for idx, row := range result.Rows {
		line := idx + 2

		date, ok := ParseDate(row[mapping.Date])
		if !ok {
			warnings = append(warnings, fmt.Sprintf("Row %d: Invalid date format", line))
			continue
		}
		amount, ok := CoerceAmount(row[mapping.Amount])
		if !ok || amount == 0 {
			warnings = append(warnings, fmt.Sprintf("Row %d: Invalid amount", line))
			continue
		}
		merchant := strings.TrimSpace(row[mapping.Merchant])
		if merchant == "" {
			warnings = append(warnings, fmt.Sprintf("Row %d: Missing merchant", line))
			continue
		}

		category := model.DefaultCategory
		if mapping.Category != "" && row[mapping.Category] != "" {
			category = row[mapping.Category]
		}
		var cardLabel string
		if mapping.CardLabel != "" {
			cardLabel = row[mapping.CardLabel]
		}

		txn := model.Transaction{
			Date:           date,
			Merchant:       merchant,
			Amount:         amount,
			Currency:       model.DefaultCurrency,
			Category:       category,
			CardLabel:      cardLabel,
			RawDescription: strings.Join(result.Values(row), " | "),
		}
		txn.Hash = txn.GenerateHash()
		transactions = append(transactions, txn)
	}

	return transactions, warnings, nil
}

var (
	dateHeaders     = []string{"date", "transaction date", "trans date", "posted date", "post date", "posting date"}
	merchantHeaders = []string{"merchant", "description", "payee", "name", "merchant name", "details"}
	amountHeaders   = []string{"amount", "debit", "charge", "transaction amount", "value"}
	categoryHeaders = []string{"category", "type", "merchant category"}
	cardHeaders     = []string{"card", "card label", "card name", "account", "account name", "card member"}
)

// SuggestMapping guesses a mapping from common statement header names.
// Unrecognized fields are left empty.
func SuggestMapping(headers []string) ColumnMapping {
	return ColumnMapping{
		Date:      findHeader(headers, dateHeaders),
		Merchant:  findHeader(headers, merchantHeaders),
		Amount:    findHeader(headers, amountHeaders),
		Category:  findHeader(headers, categoryHeaders),
		CardLabel: findHeader(headers, cardHeaders),
	}
}

// findHeader returns the first header matching a candidate, preferring
// earlier candidates.
func findHeader(headers, candidates []string) string {
	for _, candidate := range candidates {
		for _, h := range headers {
			if strings.EqualFold(strings.TrimSpace(h), candidate) {
				return h
			}
		}
	}
	return ""
}
