package pattern

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Veraticus/spendwise/internal/model"
	"github.com/Veraticus/spendwise/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(f float64) *float64 { return &f }

func TestMatcher_Match(t *testing.T) {
	tests := []struct {
		name     string
		rules    []Rule
		txn      model.Transaction
		wantID   int64
		wantNone bool
	}{
		{
			name:   "plain pattern is a case-insensitive substring",
			rules:  []Rule{{ID: 1, MerchantPattern: "amazon", Category: "Shopping", IsActive: true}},
			txn:    model.Transaction{Merchant: "AMAZON MKTPLACE", Amount: 50},
			wantID: 1,
		},
		{
			name:     "inactive rules are ignored",
			rules:    []Rule{{ID: 1, MerchantPattern: "amazon", Category: "Shopping"}},
			txn:      model.Transaction{Merchant: "Amazon", Amount: 50},
			wantNone: true,
		},
		{
			name:   "regex is case-insensitive",
			rules:  []Rule{{ID: 2, MerchantPattern: `^uber\s+trip`, IsRegex: true, Category: "Transportation", IsActive: true}},
			txn:    model.Transaction{Merchant: "Uber Trip", Amount: 18},
			wantID: 2,
		},
		{
			name:   "regex sees the raw description",
			rules:  []Rule{{ID: 3, MerchantPattern: `SQ \*`, IsRegex: true, Category: "Dining", IsActive: true}},
			txn:    model.Transaction{Merchant: "Corner Bakery", RawDescription: "SQ *CORNER BAKERY", Amount: 9},
			wantID: 3,
		},
		{
			name:     "invalid regex is skipped",
			rules:    []Rule{{ID: 4, MerchantPattern: `([`, IsRegex: true, Category: "Dining", IsActive: true}},
			txn:      model.Transaction{Merchant: "([", Amount: 9},
			wantNone: true,
		},
		{
			name: "amount condition filters",
			rules: []Rule{
				{ID: 5, MerchantPattern: "costco", Category: "Shopping", IsActive: true,
					AmountCondition: "gt", AmountValue: floatPtr(200), Priority: 5},
				{ID: 6, MerchantPattern: "costco", Category: "Groceries", IsActive: true},
			},
			txn:    model.Transaction{Merchant: "Costco", Amount: 120},
			wantID: 6,
		},
		{
			name: "higher priority wins",
			rules: []Rule{
				{ID: 7, MerchantPattern: "shell", Category: "Other", IsActive: true},
				{ID: 8, MerchantPattern: "shell", Category: "Gas", IsActive: true, Priority: 1},
			},
			txn:    model.Transaction{Merchant: "Shell Oil", Amount: 40},
			wantID: 8,
		},
		{
			name: "equal priority keeps order",
			rules: []Rule{
				{ID: 9, MerchantPattern: "target", Category: "Shopping", IsActive: true},
				{ID: 10, MerchantPattern: "target", Category: "Groceries", IsActive: true},
			},
			txn:    model.Transaction{Merchant: "Target", Amount: 40},
			wantID: 9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, ok := NewMatcher(tt.rules).Match(tt.txn)
			if tt.wantNone {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.wantID, rule.ID)
		})
	}
}

func TestMatcher_Categorize(t *testing.T) {
	stored := []Rule{{ID: 11, MerchantPattern: "blue bottle", Category: "Dining", IsActive: true}}
	m := NewMatcher(append(stored, DefaultRules()...))

	txns := []model.Transaction{
		{Merchant: "Blue Bottle", Category: model.DefaultCategory, Amount: 6},
		{Merchant: "Whole Foods Market", Category: model.DefaultCategory, Amount: 80},
		{Merchant: "Shell", Category: "Travel", Amount: 40},
		{Merchant: "Mystery Vendor", Category: model.DefaultCategory, Amount: 12},
		{Merchant: "Blue Bottle", Category: "", Amount: 7},
	}

	res := m.Categorize(txns)
	assert.Equal(t, 3, res.Categorized)
	assert.Equal(t, 1, res.BuiltIn)
	assert.Equal(t, map[int64]int{11: 2}, res.Uses)
	assert.Equal(t, []int64{11, 0, 0, 0, 11}, res.RuleIDs)

	assert.Equal(t, "Dining", txns[0].Category)
	assert.Equal(t, "Groceries", txns[1].Category)
	assert.Equal(t, "Travel", txns[2].Category, "an explicit category is kept")
	assert.Equal(t, model.DefaultCategory, txns[3].Category)
	assert.Equal(t, "Dining", txns[4].Category)
}

func TestDefaultRules(t *testing.T) {
	rules := DefaultRules()
	require.NotEmpty(t, rules)
	for _, r := range rules {
		assert.NoError(t, r.Validate(), r.Name)
		assert.Zero(t, r.ID)
		assert.Less(t, r.Priority, 0)
	}

	m := NewMatcher(rules)
	assert.Equal(t, len(rules), m.Len())

	tests := map[string]string{
		"STARBUCKS STORE 1234": "Dining",
		"Uber Eats":            "Dining",
		"Uber":                 "Transportation",
		"Trader Joe's":         "Groceries",
		"DELTA AIR LINES":      "Travel",
		"Netflix.com":          "Entertainment",
		"T-Mobile":             "Bills & Utilities",
		"CVS/Pharmacy":         "Healthcare",
		"AMZN Mktp US":         "Shopping",
		"Chevron 0091":         "Gas",
	}
	for merchant, want := range tests {
		rule, ok := m.Match(model.Transaction{Merchant: merchant, Amount: 10})
		if assert.True(t, ok, merchant) {
			assert.Equal(t, want, rule.Category, merchant)
		}
	}

	_, ok := m.Match(model.Transaction{Merchant: "Hometown Hardware", Amount: 10})
	assert.False(t, ok)
}

type fakeRuleStore struct {
	listErr error
	rules   []model.CategoryRule
	uses    map[int64]int
}

func (f *fakeRuleStore) ListCategoryRules(_ context.Context, _ bool) ([]model.CategoryRule, error) {
	return f.rules, f.listErr
}

func (f *fakeRuleStore) RecordRuleUse(_ context.Context, uses map[int64]int) error {
	f.uses = uses
	return nil
}

func TestRecordStoredUses(t *testing.T) {
	store := &fakeRuleStore{rules: []model.CategoryRule{
		{ID: 4, MerchantPattern: "corner", Category: "Dining", IsActive: true},
	}}
	m, err := LoadMatcher(context.Background(), store, true)
	require.NoError(t, err)

	txns := []model.Transaction{
		{Merchant: "Corner Bakery", Category: model.DefaultCategory},
		{Merchant: "Corner Bakery", Category: model.DefaultCategory},
		{Merchant: "Chipotle", Category: model.DefaultCategory},
	}
	res := m.Categorize(txns)
	assert.Equal(t, 3, res.Categorized)
	assert.Equal(t, "Dining", txns[2].Category)

	// Only the first row made it into storage.
	txns[0].ID = "a"
	require.NoError(t, RecordStoredUses(context.Background(), store, res, txns, []string{"a"}))
	assert.Equal(t, map[int64]int{4: 1}, store.uses)

	store.uses = nil
	require.NoError(t, RecordStoredUses(context.Background(), store, res, txns, nil))
	assert.Nil(t, store.uses, "nothing stored, nothing recorded")

	store.listErr = errors.New("disk on fire")
	_, err = LoadMatcher(context.Background(), store, true)
	assert.Error(t, err)
}

func TestSuggest(t *testing.T) {
	txns := testutil.SampleTransactions()
	txns = append(txns,
		model.Transaction{Merchant: "whole foods", Category: "Groceries"},
		model.Transaction{Merchant: "Chipotle", Category: "Dining"},
		model.Transaction{Merchant: "Shell", Category: "Gas"},
		model.Transaction{Merchant: "Shell", Category: "Travel"},
		model.Transaction{Merchant: "Mystery", Category: model.DefaultCategory},
		model.Transaction{Merchant: "Mystery", Category: model.DefaultCategory},
		model.Transaction{Merchant: "Mystery", Category: model.DefaultCategory},
	)

	suggestions := Suggest(txns, nil, 3)
	require.Len(t, suggestions, 2)
	assert.Equal(t, "Chipotle", suggestions[0].Merchant)
	assert.Equal(t, "Dining", suggestions[0].Category)
	assert.Equal(t, 3, suggestions[0].Count)
	assert.Equal(t, "Whole Foods", suggestions[1].Merchant)
	assert.Contains(t, suggestions[1].Reason, "All 3 transactions from Whole Foods are filed as Groceries")

	existing := []Rule{{ID: 1, MerchantPattern: "chipotle", Category: "Dining", IsActive: true}}
	suggestions = Suggest(txns, existing, 3)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "Whole Foods", suggestions[0].Merchant)

	rule := suggestions[0].Rule()
	rule.Normalize()
	assert.NoError(t, rule.Validate())
	assert.Equal(t, "Whole Foods", rule.MerchantPattern)
	assert.True(t, rule.IsActive)

	assert.Len(t, Suggest(txns, nil, 0), 2, "non-positive minimum falls back to the default")
}

func TestRecordStoredUses_SQLite(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	rule := model.CategoryRule{MerchantPattern: "bakery", Category: "Dining", IsActive: true, Priority: 1}
	id, err := db.Storage.AddCategoryRule(ctx, &rule)
	require.NoError(t, err)
	off := model.CategoryRule{MerchantPattern: "corner", Category: "Shopping", IsActive: false, Priority: 9}
	_, err = db.Storage.AddCategoryRule(ctx, &off)
	require.NoError(t, err)

	batch := func() []model.Transaction {
		return []model.Transaction{
			{Date: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), Merchant: "Corner Bakery", Amount: 8, Category: model.DefaultCategory},
			{Date: time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), Merchant: "Corner Bakery", Amount: 11, Category: ""},
			{Date: time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC), Merchant: "Corner Bakery", Amount: 5, Category: "Travel"},
		}
	}
	importOnce := func() []model.Transaction {
		m, err := LoadMatcher(ctx, db.Storage, true)
		require.NoError(t, err)
		txns := batch()
		res := m.Categorize(txns)
		assert.Equal(t, 2, res.Categorized)
		ids, err := db.Storage.BulkAddTransactions(ctx, txns)
		require.NoError(t, err)
		require.NoError(t, RecordStoredUses(ctx, db.Storage, res, txns, ids))
		return txns
	}

	txns := importOnce()
	assert.Equal(t, "Dining", txns[0].Category, "inactive rules are ignored")
	assert.Equal(t, "Dining", txns[1].Category)
	assert.Equal(t, "Travel", txns[2].Category)

	// Re-importing the same rows stores nothing and must not bump the count.
	importOnce()

	rules, err := db.Storage.ListCategoryRules(ctx, true)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, id, rules[0].ID)
	assert.Equal(t, 2, rules[0].UseCount)
}
