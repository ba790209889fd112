package model

import (
	"crypto/sha256"
	"fmt"
	"math"
	"strings"
	"time"
)

// DateLayout is the canonical calendar-day format used for transaction dates.
const DateLayout = "2006-01-02"

// DefaultCurrency is applied when a transaction arrives without one.
const DefaultCurrency = "USD"

// DefaultCategory is applied when a transaction arrives without a category.
const DefaultCategory = "Other"

// Categories lists the spending categories offered to users.
var Categories = []string{
	"Dining",
	"Travel",
	"Groceries",
	"Gas",
	"Entertainment",
	"Shopping",
	"Bills & Utilities",
	"Healthcare",
	"Transportation",
	"Other",
}

// Currencies lists the currencies a transaction may be recorded in.
var Currencies = []string{"USD", "EUR", "GBP", "CAD", "BTC", "ETH", "ICP"}

// Transaction represents a single card purchase.
type Transaction struct {
	Date           time.Time `json:"date"`
	ID             string    `json:"id"`
	Merchant       string    `json:"merchant"`
	Currency       string    `json:"currency"`
	Category       string    `json:"category"`
	CardLabel      string    `json:"cardLabel"`
	Notes          string    `json:"notes"`
	RawDescription string    `json:"rawDescription"` // Original row or statement text
	Hash           string    `json:"-"`
	Amount         float64   `json:"amount"`
}

// Validate checks the fields every stored transaction must carry.
func (t *Transaction) Validate() error {
	if strings.TrimSpace(t.Merchant) == "" {
		return fmt.Errorf("merchant is required")
	}
	if t.Date.IsZero() {
		return fmt.Errorf("date is required")
	}
	if t.Amount < 0 || !IsFinite(t.Amount) {
		return fmt.Errorf("amount must be a non-negative number, got %v", t.Amount)
	}
	return nil
}

// IsFinite reports whether v is neither NaN nor an infinity.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Normalize fills defaulted fields and truncates the date to a calendar day.
func (t *Transaction) Normalize() {
	t.Merchant = strings.TrimSpace(t.Merchant)
	if t.Currency == "" {
		t.Currency = DefaultCurrency
	}
	if strings.TrimSpace(t.Category) == "" {
		t.Category = DefaultCategory
	}
	t.Date = Day(t.Date)
}

// GenerateHash creates a unique hash for duplicate detection.
func (t *Transaction) GenerateHash() string {
	data := fmt.Sprintf("%s:%.2f:%s:%s",
		t.Date.Format(DateLayout),
		t.Amount,
		strings.ToLower(t.Merchant),
		t.CardLabel)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// Day truncates a time to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IsKnownCategory reports whether category is one of Categories.
func IsKnownCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

// IsKnownCurrency reports whether currency is one of Currencies.
func IsKnownCurrency(currency string) bool {
	for _, c := range Currencies {
		if c == currency {
			return true
		}
	}
	return false
}

// TransactionFilter narrows a transaction list the way the filter bar does.
// Zero values mean "no constraint".
type TransactionFilter struct {
	DateFrom  *time.Time
	DateTo    *time.Time
	Merchant  string // case-insensitive substring
	Category  string
	CardLabel string
	Limit     int
	Offset    int
}

// IsEmpty reports whether the filter constrains nothing.
func (f TransactionFilter) IsEmpty() bool {
	return f.DateFrom == nil && f.DateTo == nil && f.Merchant == "" &&
		f.Category == "" && f.CardLabel == ""
}

// Matches reports whether t passes every constraint in the filter.
func (f TransactionFilter) Matches(t Transaction) bool {
	day := Day(t.Date)
	if f.DateFrom != nil && day.Before(Day(*f.DateFrom)) {
		return false
	}
	if f.DateTo != nil && day.After(Day(*f.DateTo)) {
		return false
	}
	if f.Merchant != "" && !strings.Contains(strings.ToLower(t.Merchant), strings.ToLower(f.Merchant)) {
		return false
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if f.CardLabel != "" && t.CardLabel != f.CardLabel {
		return false
	}
	return true
}

// Apply returns the transactions that match the filter, preserving order.
// Limit and Offset are ignored here; they only page storage queries.
func (f TransactionFilter) Apply(transactions []Transaction) []Transaction {
	result := make([]Transaction, 0, len(transactions))
	for _, t := range transactions {
		if f.Matches(t) {
			result = append(result, t)
		}
	}
	return result
}
