// Package testutil provides test utilities for the spendwise project.
// It offers an isolated in-memory database and a small set of realistic fixtures.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/spendwise/internal/model"
	"github.com/Veraticus/spendwise/internal/service"
	"github.com/Veraticus/spendwise/internal/storage"
)

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Storage service.Storage
	t       *testing.T
}

// TestDBOptions provides configuration options for test database setup.
type TestDBOptions struct {
	CustomSetup  func(context.Context, service.Storage) error
	Rates        *model.EarningRates
	Transactions []model.Transaction
	Profiles     []model.RewardProfile
}

// SetupTestDB creates a new migrated in-memory test database.
// It is closed automatically when the test finishes.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	return SetupTestDBWithOptions(t, TestDBOptions{})
}

// SetupTestDBWithOptions creates a test database seeded from opts.
//
// Example:
//
//	db := testutil.SetupTestDBWithOptions(t, testutil.TestDBOptions{
//		Transactions: testutil.SampleTransactions(),
//		Profiles:     testutil.SampleProfiles(),
//	})
func SetupTestDBWithOptions(t *testing.T, opts TestDBOptions) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	db := &TestDB{Storage: store, t: t}

	if len(opts.Transactions) > 0 {
		db.MustAddTransactions(opts.Transactions...)
	}
	for _, p := range opts.Profiles {
		db.MustAddProfile(p)
	}
	if opts.Rates != nil {
		if err := store.SaveEarningRates(ctx, *opts.Rates); err != nil {
			t.Fatalf("failed to seed earning rates: %v", err)
		}
	}
	if opts.CustomSetup != nil {
		if err := opts.CustomSetup(ctx, store); err != nil {
			t.Fatalf("custom setup failed: %v", err)
		}
	}

	return db
}

// MustAddTransactions stores transactions or fails the test. It returns the new IDs.
func (db *TestDB) MustAddTransactions(txns ...model.Transaction) []string {
	db.t.Helper()
	ids, err := db.Storage.BulkAddTransactions(context.Background(), txns)
	if err != nil {
		db.t.Fatalf("failed to seed transactions: %v", err)
	}
	return ids
}

// MustAddProfile stores a reward profile with its options or fails the test.
func (db *TestDB) MustAddProfile(p model.RewardProfile) int64 {
	db.t.Helper()
	id, err := db.Storage.AddRewardProfile(context.Background(), p.Name, p.Balance, p.Options)
	if err != nil {
		db.t.Fatalf("failed to seed reward profile %q: %v", p.Name, err)
	}
	return id
}
