package main

import (
	"fmt"
	"time"

	"github.com/Veraticus/spendwise/internal/cli"
	"github.com/Veraticus/spendwise/internal/common"
	"github.com/Veraticus/spendwise/internal/storage"
	"github.com/spf13/cobra"
)

func backupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Manage database backups",
		Long: `Create and restore database snapshots.

Imports take an automatic backup first; the most recent automatic backups
are kept and older ones are pruned. Manual backups are never pruned.`,
	}

	cmd.AddCommand(backupCreateCmd())
	cmd.AddCommand(backupListCmd())
	cmd.AddCommand(backupRestoreCmd())
	cmd.AddCommand(backupDeleteCmd())

	return cmd
}

// withBackups opens storage and its backup manager for fn.
func withBackups(cmd *cobra.Command, fn func(*storage.SQLiteStorage, *storage.BackupManager) error) error {
	store, err := initStorage(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	bm, err := store.NewBackupManager()
	if err != nil {
		return fmt.Errorf("failed to open backups: %w", err)
	}
	return fn(store, bm)
}

func backupCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Snapshot the database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tag, _ := cmd.Flags().GetString("tag")
			desc, _ := cmd.Flags().GetString("description")
			if tag == "" {
				tag = "manual-" + time.Now().Format("20060102-150405")
			}

			return withBackups(cmd, func(_ *storage.SQLiteStorage, bm *storage.BackupManager) error {
				info, err := bm.Create(cmd.Context(), tag, desc)
				if err != nil {
					return common.NewUserError("could not create backup "+tag, err)
				}
				outln(cmd, cli.FormatSuccess(fmt.Sprintf("Created backup %s (%d transactions, %d profiles)",
					info.ID, info.Transactions, info.RewardProfiles)))
				return nil
			})
		},
	}

	cmd.Flags().StringP("tag", "t", "", "backup name (default: manual-<timestamp>)")
	cmd.Flags().StringP("description", "d", "", "note stored with the backup")

	return cmd
}

func backupListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List backups, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBackups(cmd, func(_ *storage.SQLiteStorage, bm *storage.BackupManager) error {
				backups, err := bm.List(cmd.Context())
				if err != nil {
					return err
				}
				if len(backups) == 0 {
					outln(cmd, cli.FormatInfo("No backups yet"))
					return nil
				}

				table := cli.NewTable(cmd.OutOrStdout(), "ID", "CREATED", "TRANSACTIONS", "PROFILES", "SIZE", "DESCRIPTION")
				for _, b := range backups {
					id := b.ID
					if b.IsAuto {
						id += " (auto)"
					}
					table.Row(id, b.CreatedAt.Local().Format("2006-01-02 15:04"), b.Transactions, b.RewardProfiles,
						formatSize(b.FileSize), b.Description)
				}
				return table.Flush()
			})
		},
	}
}

func backupRestoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore <id>",
		Short: "Replace the database with a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackups(cmd, func(store *storage.SQLiteStorage, bm *storage.BackupManager) error {
				if _, err := bm.Get(cmd.Context(), args[0]); err != nil {
					return common.NewUserError("could not restore backup "+args[0], err)
				}
				ok, err := confirm(cmd, fmt.Sprintf("Replace %s with backup %s?", store.Path(), args[0]))
				if err != nil || !ok {
					return err
				}
				// The target is kept so pruning cannot remove it before Restore reads it.
				if _, err := bm.AutoBackup(cmd.Context(), "restore", args[0]); err != nil {
					return fmt.Errorf("failed to back up before restore: %w", err)
				}
				if err := bm.Restore(cmd.Context(), args[0]); err != nil {
					return common.NewUserError("could not restore backup "+args[0], err)
				}
				outln(cmd, cli.FormatSuccess("Restored backup "+args[0]))
				return nil
			})
		},
	}

	cmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")

	return cmd
}

func backupDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackups(cmd, func(_ *storage.SQLiteStorage, bm *storage.BackupManager) error {
				ok, err := confirm(cmd, "Delete backup "+args[0]+"?")
				if err != nil || !ok {
					return err
				}
				if err := bm.Delete(cmd.Context(), args[0]); err != nil {
					return common.NewUserError("could not delete backup "+args[0], err)
				}
				outln(cmd, cli.FormatSuccess("Deleted backup "+args[0]))
				return nil
			})
		},
	}

	cmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")

	return cmd
}

func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
