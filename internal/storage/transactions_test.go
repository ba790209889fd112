package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/Veraticus/spendwise/internal/common"
	"github.com/Veraticus/spendwise/internal/model"
)

func TestAddAndGetTransaction(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	txn := &model.Transaction{
		Date:           day(2024, 3, 15),
		Merchant:       "  Blue Bottle  ",
		Amount:         6.25,
		Category:       "Dining",
		CardLabel:      "Amex Gold",
		Notes:          "latte",
		RawDescription: "BLUE BOTTLE COFFEE",
	}

	id, err := store.AddTransaction(ctx, txn)
	if err != nil {
		t.Fatalf("AddTransaction() error = %v", err)
	}
	if id == "" {
		t.Fatal("AddTransaction() returned empty id")
	}

	got, err := store.GetTransaction(ctx, id)
	if err != nil {
		t.Fatalf("GetTransaction() error = %v", err)
	}
	if got.Merchant != "Blue Bottle" {
		t.Errorf("Merchant = %q, want %q", got.Merchant, "Blue Bottle")
	}
	if got.Currency != model.DefaultCurrency {
		t.Errorf("Currency = %q, want %q", got.Currency, model.DefaultCurrency)
	}
	if !got.Date.Equal(day(2024, 3, 15)) {
		t.Errorf("Date = %v, want 2024-03-15", got.Date)
	}
	if got.Amount != 6.25 || got.Category != "Dining" || got.CardLabel != "Amex Gold" {
		t.Errorf("unexpected transaction: %+v", got)
	}
	if got.Notes != "latte" || got.RawDescription != "BLUE BOTTLE COFFEE" {
		t.Errorf("notes/raw description not stored: %+v", got)
	}
}

func TestAddTransaction_Defaults(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	id, err := store.AddTransaction(ctx, &model.Transaction{Date: day(2024, 1, 1), Merchant: "Target", Amount: 10})
	if err != nil {
		t.Fatalf("AddTransaction() error = %v", err)
	}
	got, err := store.GetTransaction(ctx, id)
	if err != nil {
		t.Fatalf("GetTransaction() error = %v", err)
	}
	if got.Category != model.DefaultCategory {
		t.Errorf("Category = %q, want %q", got.Category, model.DefaultCategory)
	}
}

func TestAddTransaction_Invalid(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	tests := []struct {
		txn  *model.Transaction
		name string
	}{
		{name: "nil", txn: nil},
		{name: "missing merchant", txn: &model.Transaction{Date: day(2024, 1, 1), Amount: 1}},
		{name: "missing date", txn: &model.Transaction{Merchant: "x", Amount: 1}},
		{name: "negative amount", txn: &model.Transaction{Date: day(2024, 1, 1), Merchant: "x", Amount: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := store.AddTransaction(ctx, tt.txn); err == nil {
				t.Error("AddTransaction() expected error")
			}
		})
	}
}

func TestBulkAddTransactions_SkipsDuplicates(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	txns := createTestTransactions(5)
	ids, err := store.BulkAddTransactions(ctx, txns)
	if err != nil {
		t.Fatalf("BulkAddTransactions() error = %v", err)
	}
	if len(ids) != 5 {
		t.Fatalf("inserted %d, want 5", len(ids))
	}

	// Re-importing the same rows plus one new row inserts only the new one.
	again := append(createTestTransactions(5), model.Transaction{
		Date: day(2024, 2, 1), Merchant: "New Place", Amount: 3,
	})
	ids, err = store.BulkAddTransactions(ctx, again)
	if err != nil {
		t.Fatalf("BulkAddTransactions() error = %v", err)
	}
	if len(ids) != 1 {
		t.Errorf("re-import inserted %d, want 1", len(ids))
	}

	// Duplicates inside one batch collapse too.
	dup := model.Transaction{Date: day(2024, 3, 1), Merchant: "Twice", Amount: 2}
	ids, err = store.BulkAddTransactions(ctx, []model.Transaction{dup, dup})
	if err != nil {
		t.Fatalf("BulkAddTransactions() error = %v", err)
	}
	if len(ids) != 1 {
		t.Errorf("in-batch duplicate inserted %d, want 1", len(ids))
	}

	count, err := store.GetTransactionCount(ctx)
	if err != nil {
		t.Fatalf("GetTransactionCount() error = %v", err)
	}
	if count != 7 {
		t.Errorf("count = %d, want 7", count)
	}
}

func TestBulkAddTransactions_WritesBackIDs(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	dup := model.Transaction{Date: day(2024, 3, 1), Merchant: "Twice", Amount: 2}
	txns := []model.Transaction{dup, dup, {Date: day(2024, 3, 2), Merchant: "Once", Amount: 4}}
	ids, err := store.BulkAddTransactions(ctx, txns)
	if err != nil {
		t.Fatalf("BulkAddTransactions() error = %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("inserted %d, want 2", len(ids))
	}
	if txns[0].ID != ids[0] || txns[2].ID != ids[1] {
		t.Errorf("IDs = %q, %q, want %q", txns[0].ID, txns[2].ID, ids)
	}
	if txns[1].ID != "" {
		t.Errorf("skipped duplicate got ID %q", txns[1].ID)
	}
	if txns[0].Hash != "" {
		t.Error("only the ID is written back")
	}
}

func TestBulkAddTransactions_InvalidRollsBack(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	txns := createTestTransactions(3)
	txns[2].Merchant = ""

	if _, err := store.BulkAddTransactions(ctx, txns); err == nil {
		t.Fatal("BulkAddTransactions() expected error")
	}

	count, _ := store.GetTransactionCount(ctx)
	if count != 0 {
		t.Errorf("count = %d after failed batch, want 0", count)
	}
}

func TestListTransactions_Filter(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := store.BulkAddTransactions(ctx, []model.Transaction{
		{Date: day(2024, 1, 5), Merchant: "Whole Foods Market", Category: "Groceries", CardLabel: "Amex Gold", Amount: 80},
		{Date: day(2024, 1, 20), Merchant: "Chipotle", Category: "Dining", CardLabel: "Sapphire", Amount: 12},
		{Date: day(2024, 2, 3), Merchant: "whole foods", Category: "Groceries", CardLabel: "Sapphire", Amount: 40},
		{Date: day(2024, 3, 1), Merchant: "100% Pure", Category: "Shopping", CardLabel: "Sapphire", Amount: 5},
	}); err != nil {
		t.Fatalf("BulkAddTransactions() error = %v", err)
	}

	from := day(2024, 1, 5)
	to := day(2024, 2, 3)

	tests := []struct {
		name   string
		filter model.TransactionFilter
		want   []string
	}{
		{name: "no filter newest first", want: []string{"100% Pure", "whole foods", "Chipotle", "Whole Foods Market"}},
		{name: "inclusive date range", filter: model.TransactionFilter{DateFrom: &from, DateTo: &to}, want: []string{"whole foods", "Chipotle", "Whole Foods Market"}},
		{name: "merchant substring any case", filter: model.TransactionFilter{Merchant: "WHOLE"}, want: []string{"whole foods", "Whole Foods Market"}},
		{name: "merchant with like wildcard", filter: model.TransactionFilter{Merchant: "%"}, want: []string{"100% Pure"}},
		{name: "category", filter: model.TransactionFilter{Category: "Dining"}, want: []string{"Chipotle"}},
		{name: "card", filter: model.TransactionFilter{CardLabel: "Amex Gold"}, want: []string{"Whole Foods Market"}},
		{name: "limit and offset", filter: model.TransactionFilter{Limit: 2, Offset: 1}, want: []string{"whole foods", "Chipotle"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.ListTransactions(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListTransactions() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d transactions, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i].Merchant != tt.want[i] {
					t.Errorf("index %d: merchant = %q, want %q", i, got[i].Merchant, tt.want[i])
				}
			}
		})
	}
}

func TestUpdateTransaction(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	id, err := store.AddTransaction(ctx, &model.Transaction{Date: day(2024, 1, 1), Merchant: "Shell", Amount: 30, Category: "Gas"})
	if err != nil {
		t.Fatalf("AddTransaction() error = %v", err)
	}

	update := &model.Transaction{ID: id, Date: day(2024, 1, 2), Merchant: "Chevron", Amount: 45, Category: "Gas", Notes: "road trip"}
	if err := store.UpdateTransaction(ctx, update); err != nil {
		t.Fatalf("UpdateTransaction() error = %v", err)
	}

	got, err := store.GetTransaction(ctx, id)
	if err != nil {
		t.Fatalf("GetTransaction() error = %v", err)
	}
	if got.Merchant != "Chevron" || got.Amount != 45 || got.Notes != "road trip" || !got.Date.Equal(day(2024, 1, 2)) {
		t.Errorf("transaction not updated: %+v", got)
	}

	missing := &model.Transaction{ID: "nope", Date: day(2024, 1, 2), Merchant: "x", Amount: 1}
	if err := store.UpdateTransaction(ctx, missing); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("UpdateTransaction(missing) error = %v, want ErrNotFound", err)
	}
}

func TestDeleteTransaction(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	id, err := store.AddTransaction(ctx, &model.Transaction{Date: day(2024, 1, 1), Merchant: "Shell", Amount: 30})
	if err != nil {
		t.Fatalf("AddTransaction() error = %v", err)
	}

	if err := store.DeleteTransaction(ctx, id); err != nil {
		t.Fatalf("DeleteTransaction() error = %v", err)
	}
	if _, err := store.GetTransaction(ctx, id); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("GetTransaction() after delete error = %v, want ErrNotFound", err)
	}
	if err := store.DeleteTransaction(ctx, id); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("second DeleteTransaction() error = %v, want ErrNotFound", err)
	}
}

func TestCardLabels(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := store.BulkAddTransactions(ctx, []model.Transaction{
		{Date: day(2024, 1, 1), Merchant: "a", Amount: 1, CardLabel: "Sapphire"},
		{Date: day(2024, 1, 2), Merchant: "b", Amount: 1, CardLabel: "Amex Gold"},
		{Date: day(2024, 1, 3), Merchant: "c", Amount: 1, CardLabel: "Sapphire"},
		{Date: day(2024, 1, 4), Merchant: "d", Amount: 1},
	}); err != nil {
		t.Fatalf("BulkAddTransactions() error = %v", err)
	}

	labels, err := store.CardLabels(ctx)
	if err != nil {
		t.Fatalf("CardLabels() error = %v", err)
	}
	if len(labels) != 2 || labels[0] != "Amex Gold" || labels[1] != "Sapphire" {
		t.Errorf("CardLabels() = %v, want [Amex Gold Sapphire]", labels)
	}
}
