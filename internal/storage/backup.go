package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"
)

// MaxAutoBackups is how many automatic backups are retained.
const MaxAutoBackups = 5

// Backup errors.
var (
	ErrBackupNotFound  = errors.New("backup not found")
	ErrBackupCorrupted = errors.New("backup integrity check failed")
	ErrBackupExists    = errors.New("backup already exists")
	ErrInvalidBackupID = errors.New("invalid backup id: cannot contain path separators")
)

// BackupManager snapshots the database file into a backups directory next to it.
type BackupManager struct {
	db         *sql.DB
	dbPath     string
	backupsDir string
}

// BackupInfo describes a stored backup.
type BackupInfo struct {
	CreatedAt         time.Time `json:"created_at"`
	ID                string    `json:"id"`
	Description       string    `json:"description"`
	FileSize          int64     `json:"file_size"`
	Transactions      int       `json:"transactions"`
	RewardProfiles    int       `json:"reward_profiles"`
	RedemptionOptions int       `json:"redemption_options"`
	SchemaVersion     int       `json:"schema_version"`
	IsAuto            bool      `json:"is_auto"`
}

// NewBackupManager creates a backup manager for the database at dbPath.
func NewBackupManager(db *sql.DB, dbPath string) (*BackupManager, error) {
	absPath, err := filepath.Abs(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database path: %w", err)
	}

	backupsDir := filepath.Join(filepath.Dir(absPath), "backups")
	if err := os.MkdirAll(backupsDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create backups directory: %w", err)
	}

	return &BackupManager{
		db:         db,
		dbPath:     absPath,
		backupsDir: backupsDir,
	}, nil
}

// Create snapshots the database under tag. An empty tag is replaced with a
// timestamped name.
func (bm *BackupManager) Create(ctx context.Context, tag, description string) (*BackupInfo, error) {
	return bm.create(ctx, tag, description, false)
}

// AutoBackup creates a backup before a risky operation and prunes old
// automatic backups. Backups named in keep are never pruned.
func (bm *BackupManager) AutoBackup(ctx context.Context, operation string, keep ...string) (*BackupInfo, error) {
	tag := fmt.Sprintf("auto-%s-%s", operation, time.Now().Format("2006-01-02-150405"))
	info, err := bm.create(ctx, tag, fmt.Sprintf("Automatic backup before %s", operation), true)
	if err != nil {
		return nil, fmt.Errorf("failed to create auto backup: %w", err)
	}

	if err := bm.pruneAutoBackups(ctx, keep); err != nil {
		slog.Warn("failed to prune old auto backups", "error", err)
	}
	return info, nil
}

func (bm *BackupManager) create(ctx context.Context, tag, description string, isAuto bool) (*BackupInfo, error) {
	if tag == "" {
		tag = fmt.Sprintf("backup-%s", time.Now().Format("2006-01-02-150405"))
	}
	if err := validateBackupID(tag); err != nil {
		return nil, err
	}

	backupPath := bm.dbFile(tag)
	if _, err := os.Stat(backupPath); err == nil {
		return nil, ErrBackupExists
	}

	var schemaVersion int
	if err := bm.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&schemaVersion); err != nil {
		return nil, fmt.Errorf("failed to get schema version: %w", err)
	}

	counts := bm.rowCounts(ctx)

	if err := bm.snapshot(ctx, backupPath); err != nil {
		return nil, fmt.Errorf("failed to back up database: %w", err)
	}

	stat, err := os.Stat(backupPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat backup: %w", err)
	}

	info := BackupInfo{
		ID:                tag,
		CreatedAt:         time.Now(),
		Description:       description,
		FileSize:          stat.Size(),
		Transactions:      counts["transactions"],
		RewardProfiles:    counts["reward_profiles"],
		RedemptionOptions: counts["redemption_options"],
		SchemaVersion:     schemaVersion,
		IsAuto:            isAuto,
	}

	if err := writeJSONAtomic(bm.metaFile(tag), info); err != nil {
		if rmErr := os.Remove(backupPath); rmErr != nil {
			slog.Error("failed to remove backup after metadata failure", "error", rmErr)
		}
		return nil, fmt.Errorf("failed to save backup metadata: %w", err)
	}

	return &info, nil
}

// List returns all backups, newest first.
func (bm *BackupManager) List(_ context.Context) ([]BackupInfo, error) {
	entries, err := os.ReadDir(bm.backupsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read backups directory: %w", err)
	}

	backups := make([]BackupInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".meta.json") {
			continue
		}
		info, err := readBackupInfo(filepath.Join(bm.backupsDir, entry.Name()))
		if err != nil {
			slog.Debug("skipping unreadable backup metadata", "file", entry.Name(), "error", err)
			continue
		}
		backups = append(backups, *info)
	}

	sort.SliceStable(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})
	return backups, nil
}

// Get returns the metadata of one backup.
func (bm *BackupManager) Get(_ context.Context, id string) (*BackupInfo, error) {
	if err := validateBackupID(id); err != nil {
		return nil, err
	}
	if _, err := os.Stat(bm.dbFile(id)); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBackupNotFound
		}
		return nil, fmt.Errorf("failed to access backup: %w", err)
	}

	info, err := readBackupInfo(bm.metaFile(id))
	if err != nil {
		slog.Debug("backup has no readable metadata", "id", id, "error", err)
		return &BackupInfo{ID: id}, nil
	}
	return info, nil
}

// Restore replaces the live database with a backup. The storage that owns
// the manager is closed in the process and must be reopened.
func (bm *BackupManager) Restore(_ context.Context, id string) error {
	if err := validateBackupID(id); err != nil {
		return err
	}

	backupPath := bm.dbFile(id)
	if _, err := os.Stat(backupPath); err != nil {
		if os.IsNotExist(err) {
			return ErrBackupNotFound
		}
		return fmt.Errorf("failed to access backup: %w", err)
	}

	if err := verifyIntegrity(backupPath); err != nil {
		return fmt.Errorf("%w: %v", ErrBackupCorrupted, err)
	}

	if err := bm.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	safety := bm.dbPath + ".restore-backup"
	if err := copyFile(bm.dbPath, safety); err != nil {
		return fmt.Errorf("failed to save current database: %w", err)
	}

	if err := copyFile(backupPath, bm.dbPath); err != nil {
		if restoreErr := copyFile(safety, bm.dbPath); restoreErr != nil {
			slog.Error("failed to put back current database after restore failure", "error", restoreErr)
		}
		return fmt.Errorf("failed to restore backup: %w", err)
	}

	// Stale WAL files would be replayed over the restored database.
	for _, suffix := range []string{"-wal", "-shm"} {
		_ = os.Remove(bm.dbPath + suffix)
	}

	if err := os.Remove(safety); err != nil {
		slog.Debug("failed to remove restore safety copy", "error", err)
	}
	return nil
}

// Delete removes a backup and its metadata.
func (bm *BackupManager) Delete(_ context.Context, id string) error {
	if err := validateBackupID(id); err != nil {
		return err
	}

	backupPath := bm.dbFile(id)
	if _, err := os.Stat(backupPath); err != nil {
		if os.IsNotExist(err) {
			return ErrBackupNotFound
		}
		return fmt.Errorf("failed to access backup: %w", err)
	}

	if err := os.Remove(backupPath); err != nil {
		return fmt.Errorf("failed to remove backup: %w", err)
	}
	if err := os.Remove(bm.metaFile(id)); err != nil {
		slog.Debug("failed to remove backup metadata", "error", err, "id", id)
	}
	return nil
}

func (bm *BackupManager) pruneAutoBackups(ctx context.Context, keep []string) error {
	backups, err := bm.List(ctx)
	if err != nil {
		return err
	}

	autoCount := 0
	for _, b := range backups {
		if !b.IsAuto || slices.Contains(keep, b.ID) {
			continue
		}
		autoCount++
		if autoCount > MaxAutoBackups {
			if err := bm.Delete(ctx, b.ID); err != nil {
				slog.Debug("failed to delete old auto backup", "error", err, "id", b.ID)
			}
		}
	}
	return nil
}

func (bm *BackupManager) rowCounts(ctx context.Context) map[string]int {
	queries := map[string]string{
		"transactions":       "SELECT COUNT(*) FROM transactions",
		"reward_profiles":    "SELECT COUNT(*) FROM reward_profiles",
		"redemption_options": "SELECT COUNT(*) FROM redemption_options",
	}

	counts := make(map[string]int, len(queries))
	for table, query := range queries {
		var n int
		if err := bm.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
			continue
		}
		counts[table] = n
	}
	return counts
}

// snapshot writes a consistent copy of the live database with VACUUM INTO,
// falling back to a file copy on SQLite builds without it.
func (bm *BackupManager) snapshot(ctx context.Context, dest string) error {
	if _, err := bm.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("failed to checkpoint WAL: %w", err)
	}

	if strings.ContainsAny(dest, `'";`) {
		return fmt.Errorf("invalid backup path: contains forbidden characters")
	}

	// #nosec G201 - dest is built from a validated id inside backupsDir
	if _, err := bm.db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", dest)); err != nil {
		slog.Debug("VACUUM INTO failed, copying file", "error", err)
		return copyFile(bm.dbPath, dest)
	}
	return nil
}

func (bm *BackupManager) dbFile(id string) string {
	return filepath.Join(bm.backupsDir, id+".db")
}

func (bm *BackupManager) metaFile(id string) string {
	return filepath.Join(bm.backupsDir, id+".meta.json")
}

func validateBackupID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return ErrInvalidBackupID
	}
	return nil
}

func verifyIntegrity(path string) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return err
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}

func readBackupInfo(path string) (*BackupInfo, error) {
	// #nosec G304 - path comes from listing backupsDir
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var info BackupInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func copyFile(src, dst string) error {
	// #nosec G304 - callers pass the database path or a path inside backupsDir
	source, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = source.Close() }()

	tmp := dst + ".tmp"
	// #nosec G304
	destination, err := os.Create(tmp)
	if err != nil {
		return err
	}

	if _, err := io.Copy(destination, source); err != nil {
		_ = destination.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := destination.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}
