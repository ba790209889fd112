package storage

import (
	"context"
	"testing"
)

func TestMigrations_CreateTables(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	for _, table := range []string{"transactions", "reward_profiles", "redemption_options", "settings", "user_profile", "category_rules"} {
		var count int
		err := store.db.QueryRow(`
			SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?
		`, table).Scan(&count)
		if err != nil {
			t.Fatalf("Failed to check table %s: %v", table, err)
		}
		if count != 1 {
			t.Errorf("table %s was not created", table)
		}
	}
}

func TestMigrations_VersionsAreSequential(t *testing.T) {
	for i, m := range migrations {
		if m.Version != i+1 {
			t.Errorf("migration at index %d has version %d, want %d", i, m.Version, i+1)
		}
		if m.Description == "" {
			t.Errorf("migration %d has no description", m.Version)
		}
	}
	if got := migrations[len(migrations)-1].Version; got != ExpectedSchemaVersion {
		t.Errorf("last migration version = %d, want ExpectedSchemaVersion %d", got, ExpectedSchemaVersion)
	}
}

func TestMigrations_AmountCheckConstraint(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	_, err := store.db.ExecContext(context.Background(), `
		INSERT INTO transactions (id, hash, date, merchant, amount) VALUES ('x', 'h', '2024-01-01', 'm', -1)
	`)
	if err == nil {
		t.Error("expected negative amount to violate the CHECK constraint")
	}
}
