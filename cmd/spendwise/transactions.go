package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/spendwise/internal/cli"
	"github.com/Veraticus/spendwise/internal/common"
	"github.com/Veraticus/spendwise/internal/model"
	"github.com/spf13/cobra"
)

func transactionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"txn", "tx"},
		Short:   "Manage recorded transactions",
		Long:    `Add, list, update, and delete card transactions.`,
	}

	cmd.AddCommand(transactionsAddCmd())
	cmd.AddCommand(transactionsListCmd())
	cmd.AddCommand(transactionsUpdateCmd())
	cmd.AddCommand(transactionsDeleteCmd())

	return cmd
}

func addTransactionFieldFlags(cmd *cobra.Command) {
	cmd.Flags().String("date", "", "purchase date (YYYY-MM-DD or MM/DD/YYYY)")
	cmd.Flags().String("merchant", "", "merchant name")
	cmd.Flags().Float64("amount", 0, "amount spent")
	cmd.Flags().String("category", model.DefaultCategory, "spending category")
	cmd.Flags().String("card", "", "card label")
	cmd.Flags().String("currency", model.DefaultCurrency, "currency code ("+strings.Join(model.Currencies, ", ")+")")
	cmd.Flags().String("notes", "", "free-form notes")
}

// applyTransactionFlags copies every flag the user set onto txn.
func applyTransactionFlags(cmd *cobra.Command, txn *model.Transaction) error {
	flags := cmd.Flags()

	if flags.Changed("date") {
		s, _ := flags.GetString("date")
		d, err := parseDateFlag("date", s)
		if err != nil {
			return err
		}
		txn.Date = d
	}
	if flags.Changed("merchant") {
		txn.Merchant, _ = flags.GetString("merchant")
	}
	if flags.Changed("amount") {
		txn.Amount, _ = flags.GetFloat64("amount")
	}
	if flags.Changed("category") || txn.Category == "" {
		txn.Category, _ = flags.GetString("category")
	}
	if flags.Changed("card") {
		txn.CardLabel, _ = flags.GetString("card")
	}
	if flags.Changed("currency") || txn.Currency == "" {
		currency, _ := flags.GetString("currency")
		currency = strings.ToUpper(strings.TrimSpace(currency))
		if !model.IsKnownCurrency(currency) {
			return common.NewUserError(fmt.Sprintf("unsupported currency %q", currency), common.ErrInvalidInput)
		}
		txn.Currency = currency
	}
	if flags.Changed("notes") {
		txn.Notes, _ = flags.GetString("notes")
	}

	if !model.IsKnownCategory(txn.Category) {
		slog.Warn("Category is not one of the standard categories", "category", txn.Category)
	}
	if err := txn.Validate(); err != nil {
		return common.NewUserError(err.Error(), common.ErrInvalidInput)
	}
	return nil
}

func transactionsAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a transaction",
		Example: `  spendwise transactions add --date 2024-03-02 --merchant "Blue Bottle" --amount 6.50 \
    --category Dining --card "Amex Gold"`,
		RunE: runTransactionsAdd,
	}

	addTransactionFieldFlags(cmd)
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("merchant")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func runTransactionsAdd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	var txn model.Transaction
	if err := applyTransactionFlags(cmd, &txn); err != nil {
		return err
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	id, err := store.AddTransaction(ctx, &txn)
	if err != nil {
		return fmt.Errorf("failed to add transaction: %w", err)
	}

	outln(cmd, cli.FormatSuccess(fmt.Sprintf("Added %s %s at %s (%s)",
		txn.Date.Format(model.DateLayout), cli.FormatMoney(txn.Amount, txn.Currency), txn.Merchant, id)))
	return nil
}

func transactionsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions",
		Long: `List transactions, newest first.

Filters combine: --merchant matches any part of the name ignoring case,
--category and --card must match exactly.`,
		RunE: runTransactionsList,
	}

	cmd.Flags().String("from", "", "only transactions on or after this date")
	cmd.Flags().String("to", "", "only transactions on or before this date")
	cmd.Flags().String("merchant", "", "merchant name contains")
	cmd.Flags().String("category", "", "category")
	cmd.Flags().String("card", "", "card label")
	cmd.Flags().Int("limit", 50, "maximum rows to show (0 for all)")
	cmd.Flags().Int("offset", 0, "rows to skip")
	cmd.Flags().String("format", "table", "output format (table, json)")

	return cmd
}

func runTransactionsList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	flags := cmd.Flags()

	filter := model.TransactionFilter{}
	filter.Merchant, _ = flags.GetString("merchant")
	filter.Category, _ = flags.GetString("category")
	filter.CardLabel, _ = flags.GetString("card")
	filter.Limit, _ = flags.GetInt("limit")
	filter.Offset, _ = flags.GetInt("offset")
	if s, _ := flags.GetString("from"); s != "" {
		d, err := parseDateFlag("from", s)
		if err != nil {
			return err
		}
		filter.DateFrom = &d
	}
	if s, _ := flags.GetString("to"); s != "" {
		d, err := parseDateFlag("to", s)
		if err != nil {
			return err
		}
		filter.DateTo = &d
	}

	format, _ := flags.GetString("format")
	if format != "table" && format != "json" {
		return common.NewUserError(fmt.Sprintf("unknown format %q", format), common.ErrInvalidInput)
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	txns, err := store.ListTransactions(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to list transactions: %w", err)
	}

	if format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(txns)
	}

	if len(txns) == 0 {
		outln(cmd, cli.FormatInfo("No transactions found"))
		return nil
	}

	table := cli.NewTable(cmd.OutOrStdout(), "DATE", "MERCHANT", "CATEGORY", "CARD", "AMOUNT", "ID")
	var total float64
	for _, t := range txns {
		table.Row(t.Date.Format(model.DateLayout), t.Merchant, t.Category, t.CardLabel,
			cli.FormatMoney(t.Amount, t.Currency), t.ID)
		total += t.Amount
	}
	if err := table.Flush(); err != nil {
		return err
	}
	outf(cmd, "\n%d transactions, %s total\n", len(txns), cli.FormatMoney(total, ""))
	return nil
}

func transactionsUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a transaction",
		Long:  `Change the fields given as flags; everything else keeps its current value.`,
		Args:  cobra.ExactArgs(1),
		RunE:  runTransactionsUpdate,
	}

	addTransactionFieldFlags(cmd)

	return cmd
}

func runTransactionsUpdate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	txn, err := store.GetTransaction(ctx, args[0])
	if err != nil {
		return common.NewUserError(fmt.Sprintf("transaction %s not found", args[0]), err)
	}

	if err := applyTransactionFlags(cmd, txn); err != nil {
		return err
	}
	if err := store.UpdateTransaction(ctx, txn); err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}

	outln(cmd, cli.FormatSuccess("Updated transaction "+txn.ID))
	return nil
}

func transactionsDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a transaction",
		Args:  cobra.ExactArgs(1),
		RunE:  runTransactionsDelete,
	}

	cmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")

	return cmd
}

func runTransactionsDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	txn, err := store.GetTransaction(ctx, args[0])
	if err != nil {
		return common.NewUserError(fmt.Sprintf("transaction %s not found", args[0]), err)
	}

	question := fmt.Sprintf("Delete %s %s at %s?",
		txn.Date.Format(model.DateLayout), cli.FormatMoney(txn.Amount, txn.Currency), txn.Merchant)
	ok, err := confirm(cmd, question)
	if err != nil || !ok {
		return err
	}

	if err := store.DeleteTransaction(ctx, txn.ID); err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}

	outln(cmd, cli.FormatSuccess("Deleted transaction "+txn.ID))
	return nil
}

// confirm asks question on the command's streams unless --yes was passed.
func confirm(cmd *cobra.Command, question string) (bool, error) {
	if yes, _ := cmd.Flags().GetBool("yes"); yes {
		return true, nil
	}
	ok, err := cli.Confirm(cmd.Context(), cli.NewLineReader(cmd.InOrStdin()), cmd.OutOrStdout(), question)
	if err != nil {
		return false, err
	}
	if !ok {
		outln(cmd, cli.FormatInfo("Cancelled"))
	}
	return ok, nil
}
