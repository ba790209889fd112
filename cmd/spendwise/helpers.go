package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/Veraticus/spendwise/internal/analytics"
	"github.com/Veraticus/spendwise/internal/common"
	"github.com/Veraticus/spendwise/internal/config"
	"github.com/Veraticus/spendwise/internal/csvimport"
	"github.com/Veraticus/spendwise/internal/events"
	"github.com/Veraticus/spendwise/internal/service"
	"github.com/Veraticus/spendwise/internal/storage"
	"github.com/spf13/cobra"
)

// initStorage opens the configured database and runs migrations.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath := config.DatabasePath()

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// initPublisher connects to the configured broker. Without one, or when the
// broker cannot be reached, events are dropped and a warning is logged.
func initPublisher() service.EventPublisher {
	cfg, err := config.LoadEventsConfig()
	if err != nil {
		slog.Warn("Ignoring invalid event settings", "error", err)
		return events.NopPublisher{}
	}
	publisher, err := events.NewPublisher(cfg)
	if err != nil {
		slog.Warn("Event publishing disabled", "error", err)
		return events.NopPublisher{}
	}
	return publisher
}

// addDateRangeFlags registers --from, --to and --months on cmd.
func addDateRangeFlags(cmd *cobra.Command) {
	cmd.Flags().String("from", "", "start date (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "end date (YYYY-MM-DD, default: today)")
	cmd.Flags().Int("months", analytics.DefaultRangeMonths, "months to cover when --from is not set")
}

// dateRange resolves the flags added by addDateRangeFlags.
func dateRange(cmd *cobra.Command, now time.Time) (time.Time, time.Time, error) {
	months, _ := cmd.Flags().GetInt("months")
	from, to := analytics.LastMonths(now, months)

	if s, _ := cmd.Flags().GetString("to"); s != "" {
		t, err := parseDateFlag("to", s)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = t
		if f, _ := cmd.Flags().GetString("from"); f == "" {
			from, _ = analytics.LastMonths(to, months)
		}
	}
	if s, _ := cmd.Flags().GetString("from"); s != "" {
		t, err := parseDateFlag("from", s)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = t
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, common.NewUserError("--to must not be before --from", common.ErrInvalidInput)
	}
	return from, to, nil
}

func parseDateFlag(name, value string) (time.Time, error) {
	t, ok := csvimport.ParseDate(value)
	if !ok {
		return time.Time{}, common.NewUserError(
			fmt.Sprintf("--%s: %q is not a valid date", name, value), common.ErrInvalidInput)
	}
	return t, nil
}

func parseID(arg, what string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, common.NewUserError(fmt.Sprintf("invalid %s ID %q", what, arg), common.ErrInvalidInput)
	}
	return id, nil
}

func outf(cmd *cobra.Command, format string, args ...any) {
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}

func outln(cmd *cobra.Command, args ...any) {
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), args...)
}
