package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/Veraticus/spendwise/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBackupFixture(t *testing.T) (*SQLiteStorage, *BackupManager, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "spend.db")

	store, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close() })

	bm, err := store.NewBackupManager()
	require.NoError(t, err)
	return store, bm, dbPath
}

func TestBackupManager_CreateAndList(t *testing.T) {
	store, bm, _ := newBackupFixture(t)
	ctx := context.Background()

	_, err := store.BulkAddTransactions(ctx, createTestTransactions(3))
	require.NoError(t, err)
	_, err = store.AddRewardProfile(ctx, "UR", 100, sampleOptions())
	require.NoError(t, err)

	info, err := bm.Create(ctx, "before-cleanup", "manual snapshot")
	require.NoError(t, err)
	assert.Equal(t, "before-cleanup", info.ID)
	assert.Equal(t, 3, info.Transactions)
	assert.Equal(t, 1, info.RewardProfiles)
	assert.Equal(t, 2, info.RedemptionOptions)
	assert.Equal(t, ExpectedSchemaVersion, info.SchemaVersion)
	assert.False(t, info.IsAuto)
	assert.Positive(t, info.FileSize)

	_, err = bm.Create(ctx, "before-cleanup", "again")
	assert.ErrorIs(t, err, ErrBackupExists)

	list, err := bm.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "manual snapshot", list[0].Description)
}

func TestBackupManager_InvalidID(t *testing.T) {
	_, bm, _ := newBackupFixture(t)
	ctx := context.Background()

	for _, id := range []string{"../escape", "a/b", `a\b`} {
		_, err := bm.Create(ctx, id, "")
		assert.ErrorIs(t, err, ErrInvalidBackupID, id)
		assert.ErrorIs(t, bm.Restore(ctx, id), ErrInvalidBackupID, id)
		assert.ErrorIs(t, bm.Delete(ctx, id), ErrInvalidBackupID, id)
	}
}

func TestBackupManager_Restore(t *testing.T) {
	store, bm, dbPath := newBackupFixture(t)
	ctx := context.Background()

	_, err := store.AddTransaction(ctx, &model.Transaction{Date: day(2024, 1, 1), Merchant: "Kept", Amount: 1})
	require.NoError(t, err)

	_, err = bm.Create(ctx, "snap", "")
	require.NoError(t, err)

	_, err = store.AddTransaction(ctx, &model.Transaction{Date: day(2024, 1, 2), Merchant: "Lost", Amount: 2})
	require.NoError(t, err)

	require.NoError(t, bm.Restore(ctx, "snap"))

	reopened, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	txns, err := reopened.ListTransactions(ctx, model.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, "Kept", txns[0].Merchant)
}

func TestBackupManager_Delete(t *testing.T) {
	_, bm, _ := newBackupFixture(t)
	ctx := context.Background()

	_, err := bm.Create(ctx, "tmp", "")
	require.NoError(t, err)
	require.NoError(t, bm.Delete(ctx, "tmp"))
	assert.ErrorIs(t, bm.Delete(ctx, "tmp"), ErrBackupNotFound)
	assert.ErrorIs(t, bm.Restore(ctx, "tmp"), ErrBackupNotFound)

	list, err := bm.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestBackupManager_AutoBackupPrunes(t *testing.T) {
	_, bm, _ := newBackupFixture(t)
	ctx := context.Background()

	for i := 0; i < MaxAutoBackups+2; i++ {
		_, err := bm.create(ctx, fmt.Sprintf("auto-import-%02d", i), "auto", true)
		require.NoError(t, err)
	}
	_, err := bm.Create(ctx, "manual", "")
	require.NoError(t, err)

	info, err := bm.AutoBackup(ctx, "import")
	require.NoError(t, err)
	assert.True(t, info.IsAuto)

	list, err := bm.List(ctx)
	require.NoError(t, err)

	autos := 0
	manual := 0
	for _, b := range list {
		if b.IsAuto {
			autos++
		} else {
			manual++
		}
	}
	assert.Equal(t, MaxAutoBackups, autos)
	assert.Equal(t, 1, manual)
}

func TestBackupManager_AutoBackupKeepsTarget(t *testing.T) {
	store, bm, dbPath := newBackupFixture(t)
	ctx := context.Background()

	_, err := store.AddTransaction(ctx, &model.Transaction{Date: day(2024, 1, 1), Merchant: "Oldest", Amount: 1})
	require.NoError(t, err)
	for i := 0; i < MaxAutoBackups; i++ {
		_, err := bm.create(ctx, fmt.Sprintf("auto-import-%02d", i), "auto", true)
		require.NoError(t, err)
	}
	_, err = store.AddTransaction(ctx, &model.Transaction{Date: day(2024, 1, 2), Merchant: "Newer", Amount: 2})
	require.NoError(t, err)

	_, err = bm.AutoBackup(ctx, "restore", "auto-import-00")
	require.NoError(t, err)

	info, err := bm.Get(ctx, "auto-import-00")
	require.NoError(t, err)
	assert.True(t, info.IsAuto)
	require.NoError(t, bm.Restore(ctx, "auto-import-00"))

	reopened, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()
	txns, err := reopened.ListTransactions(ctx, model.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, "Oldest", txns[0].Merchant)
}

func TestBackupManager_Get(t *testing.T) {
	_, bm, _ := newBackupFixture(t)
	ctx := context.Background()

	_, err := bm.Create(ctx, "snap", "manual")
	require.NoError(t, err)

	info, err := bm.Get(ctx, "snap")
	require.NoError(t, err)
	assert.Equal(t, "manual", info.Description)

	_, err = bm.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrBackupNotFound)
	_, err = bm.Get(ctx, "../snap")
	assert.ErrorIs(t, err, ErrInvalidBackupID)
}

func TestNewBackupManager_InMemory(t *testing.T) {
	store, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	_, err = store.NewBackupManager()
	assert.Error(t, err)
}
