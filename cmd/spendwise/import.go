package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Veraticus/spendwise/internal/cli"
	"github.com/Veraticus/spendwise/internal/common"
	"github.com/Veraticus/spendwise/internal/config"
	"github.com/Veraticus/spendwise/internal/csvimport"
	"github.com/Veraticus/spendwise/internal/model"
	"github.com/Veraticus/spendwise/internal/ofx"
	"github.com/Veraticus/spendwise/internal/pattern"
	"github.com/Veraticus/spendwise/internal/plaid"
	"github.com/Veraticus/spendwise/internal/simplefin"
	"github.com/Veraticus/spendwise/internal/storage"
	"github.com/spf13/cobra"
)

// importBatchSize is how many transactions are stored per progress step.
const importBatchSize = 100

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import transactions from statements or your bank",
		Long: `Import card spending from a CSV export, OFX/QFX statements, Plaid, or SimpleFIN.

Every import takes an automatic backup first and skips transactions that
were already imported (same date, amount, merchant, and card). Transactions
without a category are filed by your category rules, then the built-in ones.`,
	}

	cmd.PersistentFlags().Bool("dry-run", false, "show what would be imported without saving")
	cmd.PersistentFlags().String("card", "", "card label for transactions that arrive without one")
	cmd.PersistentFlags().Bool("no-rules", false, "keep imported categories as they are instead of applying category rules")

	cmd.AddCommand(importCSVCmd())
	cmd.AddCommand(importOFXCmd())
	cmd.AddCommand(importPlaidCmd())
	cmd.AddCommand(importSimpleFINCmd())

	return cmd
}

func importCSVCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "csv <file>",
		Short: "Import a CSV export",
		Long: `Import transactions from a CSV (or semicolon/tab separated) export.

Columns are matched from common header names. Override any of them with
the column flags when your bank uses something unusual.`,
		Example: `  spendwise import csv ~/Downloads/activity.csv
  spendwise import csv statement.csv --date-col "Posted" --amount-col "Debit" --card "Sapphire"`,
		Args: cobra.ExactArgs(1),
		RunE: runImportCSV,
	}

	cmd.Flags().String("date-col", "", "header of the date column")
	cmd.Flags().String("merchant-col", "", "header of the merchant column")
	cmd.Flags().String("amount-col", "", "header of the amount column")
	cmd.Flags().String("category-col", "", "header of the category column")
	cmd.Flags().String("card-col", "", "header of the card column")

	return cmd
}

func runImportCSV(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0]) // #nosec G304 -- user-provided file path is expected
	if err != nil {
		return common.NewUserError("cannot read "+args[0], err)
	}

	result := csvimport.ParseCSV(string(data))
	for _, w := range result.Warnings {
		outln(cmd, cli.FormatWarning(w))
	}
	if len(result.Headers) == 0 {
		return common.NewUserError(args[0]+" has no header row", common.ErrNoTransactions)
	}

	mapping := csvMapping(cmd, result.Headers)
	if err := mapping.Validate(); err != nil {
		return common.NewUserError(
			fmt.Sprintf("could not find the date, merchant, and amount columns in: %s (use --date-col, --merchant-col, --amount-col)",
				strings.Join(result.Headers, ", ")), err)
	}
	if err := mapping.ValidateHeaders(result.Headers); err != nil {
		return common.NewUserError(err.Error(), common.ErrInvalidInput)
	}

	outln(cmd, cli.FormatInfo(fmt.Sprintf("Columns: date=%q merchant=%q amount=%q category=%q card=%q",
		mapping.Date, mapping.Merchant, mapping.Amount, mapping.Category, mapping.CardLabel)))

	txns, warnings, err := csvimport.MapRows(result, mapping)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		outln(cmd, cli.FormatWarning(w))
	}

	return saveImport(cmd, "csv", txns)
}

// csvMapping starts from the suggested mapping and applies column flags.
func csvMapping(cmd *cobra.Command, headers []string) csvimport.ColumnMapping {
	mapping := csvimport.SuggestMapping(headers)
	overrides := map[string]*string{
		"date-col":     &mapping.Date,
		"merchant-col": &mapping.Merchant,
		"amount-col":   &mapping.Amount,
		"category-col": &mapping.Category,
		"card-col":     &mapping.CardLabel,
	}
	for flag, field := range overrides {
		if v, _ := cmd.Flags().GetString(flag); v != "" {
			*field = v
		}
	}
	return mapping
}

func importOFXCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ofx <file-or-directory>...",
		Short: "Import OFX/QFX statements",
		Long: `Import purchases from OFX or QFX statement files.

Pass files or directories; every .ofx and .qfx file directly inside a
directory is imported. Credits and payments are skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImportOFX,
	}

	cmd.Flags().Int("workers", 4, "statements parsed in parallel")

	return cmd
}

func runImportOFX(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return common.NewUserError("cannot read "+arg, err)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		found, err := ofx.FindStatements(arg)
		if err != nil {
			return err
		}
		if len(found) == 0 {
			outln(cmd, cli.FormatWarning("No .ofx or .qfx files in "+arg))
		}
		paths = append(paths, found...)
	}
	if len(paths) == 0 {
		return common.NewUserError("no statement files to import", common.ErrNoTransactions)
	}

	workers, _ := cmd.Flags().GetInt("workers")
	results, err := ofx.NewParser().ParseFiles(ctx, paths, workers)
	if err != nil {
		return fmt.Errorf("failed to parse statements: %w", err)
	}

	var txns []model.Transaction
	for _, r := range results {
		outf(cmd, "%s %s: %d purchases", cli.FolderIcon, r.Path, len(r.Result.Transactions))
		if r.Result.Skipped > 0 {
			outf(cmd, " (%d credits skipped)", r.Result.Skipped)
		}
		outln(cmd)
		txns = append(txns, r.Result.Transactions...)
	}

	return saveImport(cmd, "ofx", txns)
}

func importPlaidCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plaid",
		Short: "Import recent purchases through Plaid",
		Long: `Fetch purchases from a linked account through Plaid.

Requires plaid.client_id, plaid.secret and plaid.access_token in the config
file, or PLAID_CLIENT_ID, PLAID_SECRET and PLAID_ACCESS_TOKEN in the environment.`,
		RunE: runImportPlaid,
	}

	cmd.Flags().Int("days", 30, "days of history to fetch")
	cmd.Flags().String("start", "", "start date (overrides --days)")
	cmd.Flags().String("end", "", "end date (default: today)")

	return cmd
}

func runImportPlaid(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := config.LoadPlaidConfig()
	if err != nil {
		return common.NewUserError("Plaid is not configured", err)
	}
	client, err := plaid.NewClient(*cfg)
	if err != nil {
		return err
	}

	start, end, err := lookbackRange(cmd, time.Now())
	if err != nil {
		return err
	}

	outln(cmd, cli.FormatInfo(fmt.Sprintf("Fetching transactions from %s to %s",
		start.Format(model.DateLayout), end.Format(model.DateLayout))))

	txns, err := fetchRemote(ctx, "Plaid", client, start, end)
	if err != nil {
		return err
	}
	return saveImport(cmd, "plaid", txns)
}

func importSimpleFINCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simplefin",
		Short: "Import recent purchases through SimpleFIN Bridge",
		Long: `Fetch purchases from the accounts connected to SimpleFIN Bridge.

The first run needs a setup token (--token, simplefin.token or SIMPLEFIN_TOKEN).
It is claimed once and the resulting access URL is saved for later runs.
simplefin.access_url or SIMPLEFIN_ACCESS_URL skips the claim entirely.`,
		RunE: runImportSimpleFIN,
	}

	cmd.Flags().String("token", "", "SimpleFIN setup token to claim")
	cmd.Flags().Int("days", 30, "days of history to fetch")
	cmd.Flags().String("start", "", "start date (overrides --days)")
	cmd.Flags().String("end", "", "end date (default: today)")

	return cmd
}

func runImportSimpleFIN(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	start, end, err := lookbackRange(cmd, time.Now())
	if err != nil {
		return err
	}

	client, err := simplefinClient(cmd)
	if err != nil {
		return err
	}

	outln(cmd, cli.FormatInfo(fmt.Sprintf("Fetching transactions from %s to %s",
		start.Format(model.DateLayout), end.Format(model.DateLayout))))

	txns, err := fetchRemote(ctx, "SimpleFIN", client, start, end)
	if err != nil {
		return err
	}
	return saveImport(cmd, "simplefin", txns)
}

// simplefinClient resolves the access URL from config, the saved claim, or
// by claiming a setup token.
func simplefinClient(cmd *cobra.Command) (*simplefin.Client, error) {
	cfg := config.LoadSimpleFINConfig()
	if token, _ := cmd.Flags().GetString("token"); token != "" {
		cfg.SetupToken = token
	}

	accessURL := cfg.AccessURL
	if accessURL == "" {
		state, err := simplefin.LoadOrClaim(cmd.Context(), nil, cfg.AuthFile, cfg.SetupToken)
		if errors.Is(err, simplefin.ErrNoAuth) {
			return nil, common.NewUserError("SimpleFIN is not configured: pass --token with a setup token", common.ErrMissingConfig)
		}
		if err != nil {
			return nil, common.NewUserError("could not claim the SimpleFIN setup token", err)
		}
		accessURL = state.AccessURL
	}

	client, err := simplefin.NewClient(accessURL)
	if err != nil {
		return nil, common.NewUserError("SimpleFIN access URL is invalid", err)
	}
	return client, nil
}

func lookbackRange(cmd *cobra.Command, now time.Time) (time.Time, time.Time, error) {
	end := model.Day(now)
	if s, _ := cmd.Flags().GetString("end"); s != "" {
		d, err := parseDateFlag("end", s)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		end = d
	}

	days, _ := cmd.Flags().GetInt("days")
	if days < 1 {
		days = 1
	}
	start := end.AddDate(0, 0, -days)
	if s, _ := cmd.Flags().GetString("start"); s != "" {
		d, err := parseDateFlag("start", s)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		start = d
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, common.NewUserError("--end must not be before --start", common.ErrInvalidInput)
	}
	return start, end, nil
}

// fetchRemote pulls purchases from a bank connection. Plaid and SimpleFIN
// both satisfy plaid.TransactionFetcher.
func fetchRemote(ctx context.Context, source string, fetcher plaid.TransactionFetcher, start, end time.Time) ([]model.Transaction, error) {
	accounts, err := fetcher.GetAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	slog.Info("Fetching from "+source, "accounts", len(accounts))

	txns, err := fetcher.GetTransactions(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transactions: %w", err)
	}
	return txns, nil
}

// saveImport categorizes imported transactions by rule, then previews or
// stores them. Storing takes an automatic backup, inserts in batches behind a
// progress bar and publishes an import event for the new rows.
func saveImport(cmd *cobra.Command, source string, txns []model.Transaction) error {
	ctx := cmd.Context()

	if card, _ := cmd.Flags().GetString("card"); card != "" {
		for i := range txns {
			if txns[i].CardLabel == "" {
				txns[i].CardLabel = card
			}
		}
	}

	if len(txns) == 0 {
		outln(cmd, cli.FormatWarning("No transactions to import"))
		return nil
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	var ruled pattern.Result
	if noRules, _ := cmd.Flags().GetBool("no-rules"); !noRules {
		matcher, err := pattern.LoadMatcher(ctx, store, true)
		if err != nil {
			return err
		}
		ruled = matcher.Categorize(txns)
		if ruled.Categorized > 0 {
			outln(cmd, cli.FormatInfo(fmt.Sprintf("Categorized %d transactions by rule", ruled.Categorized)))
		}
	}

	if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
		return previewImport(cmd, txns)
	}

	if err := autoBackup(ctx, store, "import-"+source); err != nil {
		return err
	}

	ids, err := storeInBatches(ctx, cmd, store, txns)
	if err != nil {
		return err
	}
	if err := pattern.RecordStoredUses(ctx, store, ruled, txns, ids); err != nil {
		slog.Warn("Failed to record category rule use", "error", err)
	}

	publisher := initPublisher()
	defer func() { _ = publisher.Close() }()
	if len(ids) > 0 {
		if err := publisher.PublishTransactionsImported(ctx, source, ids); err != nil {
			slog.Warn("Failed to publish import event", "source", source, "error", err)
		}
	}

	outln(cmd, cli.FormatSuccess(fmt.Sprintf("Imported %d transactions (%d duplicates skipped)",
		len(ids), len(txns)-len(ids))))
	return nil
}

func autoBackup(ctx context.Context, store *storage.SQLiteStorage, operation string) error {
	bm, err := store.NewBackupManager()
	if err != nil {
		return fmt.Errorf("failed to prepare backup: %w", err)
	}
	info, err := bm.AutoBackup(ctx, operation)
	if err != nil {
		return fmt.Errorf("failed to back up before %s: %w", operation, err)
	}
	slog.Debug("Created automatic backup", "id", info.ID)
	return nil
}

func storeInBatches(ctx context.Context, cmd *cobra.Command, store *storage.SQLiteStorage, txns []model.Transaction) ([]string, error) {
	bar := cli.NewProgressBar(cmd.ErrOrStderr(), len(txns), "Importing")
	ids := make([]string, 0, len(txns))

	for start := 0; start < len(txns); start += importBatchSize {
		if err := ctx.Err(); err != nil {
			return ids, err
		}
		end := min(start+importBatchSize, len(txns))
		inserted, err := store.BulkAddTransactions(ctx, txns[start:end])
		if err != nil {
			return ids, fmt.Errorf("failed to store transactions: %w", err)
		}
		ids = append(ids, inserted...)
		_ = bar.Add(end - start)
	}
	return ids, nil
}

func previewImport(cmd *cobra.Command, txns []model.Transaction) error {
	const previewRows = 10

	outln(cmd, cli.FormatTitle(fmt.Sprintf("Dry run: %d transactions", len(txns))))
	table := cli.NewTable(cmd.OutOrStdout(), "DATE", "MERCHANT", "CATEGORY", "CARD", "AMOUNT")
	var total float64
	for i, t := range txns {
		total += t.Amount
		if i < previewRows {
			table.Row(t.Date.Format(model.DateLayout), t.Merchant, t.Category, t.CardLabel, cli.FormatMoney(t.Amount, t.Currency))
		}
	}
	if err := table.Flush(); err != nil {
		return err
	}
	if len(txns) > previewRows {
		outf(cmd, "... and %d more\n", len(txns)-previewRows)
	}
	outf(cmd, "Total: %s\n", cli.FormatMoney(total, ""))
	outln(cmd, cli.FormatInfo("Nothing was saved (--dry-run)"))
	return nil
}
