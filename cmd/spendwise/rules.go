package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/Veraticus/spendwise/internal/cli"
	"github.com/Veraticus/spendwise/internal/common"
	"github.com/Veraticus/spendwise/internal/model"
	"github.com/Veraticus/spendwise/internal/pattern"
	"github.com/spf13/cobra"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage category rules",
		Long: `Category rules file transactions that arrive without a category.

Imports check your rules first, highest priority first, then a built-in set
of common merchants. Transactions that already have a category are never
changed by a rule.`,
	}

	cmd.AddCommand(rulesAddCmd())
	cmd.AddCommand(rulesListCmd())
	cmd.AddCommand(rulesDeleteCmd())
	cmd.AddCommand(rulesToggleCmd("enable", true))
	cmd.AddCommand(rulesToggleCmd("disable", false))
	cmd.AddCommand(rulesTestCmd())
	cmd.AddCommand(rulesSuggestCmd())
	cmd.AddCommand(rulesApplyCmd())

	return cmd
}

func rulesAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a category rule",
		Example: `  spendwise rules add --pattern "blue bottle" --category Dining
  spendwise rules add --pattern '^costco' --regex --category Shopping --over 250 --priority 10`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			rule, err := ruleFromFlags(cmd)
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			id, err := store.AddCategoryRule(ctx, &rule)
			if err != nil {
				return common.NewUserError("could not add rule", err)
			}
			msg := fmt.Sprintf("Added rule %d: %q → %s", id, rule.MerchantPattern, rule.Category)
			if desc := rule.DescribeAmount(); desc != "" {
				msg += " (" + desc + ")"
			}
			outln(cmd, cli.FormatSuccess(msg))
			return nil
		},
	}

	cmd.Flags().String("pattern", "", "merchant text to match (case-insensitive)")
	cmd.Flags().Bool("regex", false, "treat --pattern as a regular expression")
	cmd.Flags().String("category", "", "category to assign")
	cmd.Flags().String("name", "", "rule name (default: the pattern)")
	cmd.Flags().Int("priority", 0, "higher priority rules are checked first")
	cmd.Flags().Float64("min", 0, "only amounts of at least this much")
	cmd.Flags().Float64("max", 0, "only amounts of at most this much")
	cmd.Flags().Float64("under", 0, "only amounts below this")
	cmd.Flags().Float64("over", 0, "only amounts above this")
	_ = cmd.MarkFlagRequired("pattern")
	_ = cmd.MarkFlagRequired("category")

	return cmd
}

// ruleFromFlags builds a rule from the add flags. --min/--max form a range
// and cannot be combined with --under or --over.
func ruleFromFlags(cmd *cobra.Command) (model.CategoryRule, error) {
	flags := cmd.Flags()
	rule := model.CategoryRule{IsActive: true}
	rule.MerchantPattern, _ = flags.GetString("pattern")
	rule.IsRegex, _ = flags.GetBool("regex")
	rule.Category, _ = flags.GetString("category")
	rule.Name, _ = flags.GetString("name")
	rule.Priority, _ = flags.GetInt("priority")

	value := func(name string) *float64 {
		if !flags.Changed(name) {
			return nil
		}
		v, _ := flags.GetFloat64(name)
		return &v
	}
	minV, maxV, under, over := value("min"), value("max"), value("under"), value("over")

	set := 0
	for _, v := range []*float64{under, over} {
		if v != nil {
			set++
		}
	}
	if minV != nil || maxV != nil {
		set++
	}
	if set > 1 {
		return rule, common.NewUserError("use either --min/--max, --under, or --over", common.ErrInvalidInput)
	}

	switch {
	case minV != nil || maxV != nil:
		rule.AmountCondition = string(model.AmountRange)
		rule.AmountMin, rule.AmountMax = minV, maxV
	case under != nil:
		rule.AmountCondition = string(model.AmountLessThan)
		rule.AmountValue = under
	case over != nil:
		rule.AmountCondition = string(model.AmountGreaterThan)
		rule.AmountValue = over
	}

	rule.Normalize()
	if err := rule.Validate(); err != nil {
		return rule, common.NewUserError(err.Error(), common.ErrInvalidInput)
	}
	return rule, nil
}

func rulesListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List category rules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			rules, err := store.ListCategoryRules(ctx, false)
			if err != nil {
				return err
			}
			if builtin, _ := cmd.Flags().GetBool("builtin"); builtin {
				rules = append(rules, pattern.DefaultRules()...)
			}
			return renderRules(cmd.OutOrStdout(), rules)
		},
	}

	cmd.Flags().Bool("builtin", false, "include the built-in rules")

	return cmd
}

func renderRules(w io.Writer, rules []model.CategoryRule) error {
	if len(rules) == 0 {
		_, err := fmt.Fprintln(w, cli.FormatInfo("No category rules yet. Add one with: spendwise rules add"))
		return err
	}

	table := cli.NewTable(w, "ID", "NAME", "PATTERN", "AMOUNT", "CATEGORY", "PRIORITY", "USED", "ACTIVE")
	for _, r := range rules {
		id := "built-in"
		if r.ID > 0 {
			id = strconv.FormatInt(r.ID, 10)
		}
		pat := r.MerchantPattern
		if r.IsRegex {
			pat = "/" + pat + "/"
		}
		amount := r.DescribeAmount()
		if amount == "" {
			amount = "any"
		}
		active := "yes"
		if !r.IsActive {
			active = "no"
		}
		table.Row(id, r.Name, truncate(pat, 40), amount, r.Category, r.Priority, r.UseCount, active)
	}
	return table.Flush()
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}

func rulesDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <rule-id>",
		Short: "Delete a category rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0], "rule")
			if err != nil {
				return err
			}

			ok, err := confirm(cmd, fmt.Sprintf("Delete rule %d?", id))
			if err != nil || !ok {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.DeleteCategoryRule(ctx, id); err != nil {
				return common.NewUserError(fmt.Sprintf("could not delete rule %d", id), err)
			}
			outln(cmd, cli.FormatSuccess(fmt.Sprintf("Deleted rule %d", id)))
			return nil
		},
	}

	cmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")

	return cmd
}

func rulesToggleCmd(verb string, active bool) *cobra.Command {
	short := "Stop a category rule from matching"
	if active {
		short = "Let a disabled category rule match again"
	}
	return &cobra.Command{
		Use:   verb + " <rule-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0], "rule")
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.SetCategoryRuleActive(ctx, id, active); err != nil {
				return common.NewUserError(fmt.Sprintf("could not %s rule %d", verb, id), err)
			}
			outln(cmd, cli.FormatSuccess(fmt.Sprintf("Rule %d %sd", id, verb)))
			return nil
		},
	}
}

func rulesTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test <merchant>",
		Short: "Show which rule would file a merchant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			amount, _ := cmd.Flags().GetFloat64("amount")

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			matcher, err := pattern.LoadMatcher(ctx, store, true)
			if err != nil {
				return err
			}
			rule, ok := matcher.Match(model.Transaction{Merchant: args[0], Amount: amount})
			if !ok {
				outln(cmd, cli.FormatInfo(fmt.Sprintf("No rule matches %q; it would stay in %s", args[0], model.DefaultCategory)))
				return nil
			}
			source := "built-in rule"
			if rule.ID > 0 {
				source = fmt.Sprintf("rule %d", rule.ID)
			}
			outln(cmd, cli.FormatSuccess(fmt.Sprintf("%q → %s (%s: %s)", args[0], rule.Category, source, rule.Name)))
			return nil
		},
	}

	cmd.Flags().Float64("amount", 0, "transaction amount to test amount conditions with")

	return cmd
}

func rulesSuggestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Suggest rules from how you have filed past transactions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			minCount, _ := cmd.Flags().GetInt("min")
			apply, _ := cmd.Flags().GetBool("apply")

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			txns, err := store.ListTransactions(ctx, model.TransactionFilter{})
			if err != nil {
				return err
			}
			rules, err := store.ListCategoryRules(ctx, true)
			if err != nil {
				return err
			}

			suggestions := pattern.Suggest(txns, rules, minCount)
			if len(suggestions) == 0 {
				outln(cmd, cli.FormatInfo("No rule suggestions"))
				return nil
			}

			table := cli.NewTable(cmd.OutOrStdout(), "MERCHANT", "CATEGORY", "TRANSACTIONS")
			for _, s := range suggestions {
				table.Row(s.Merchant, s.Category, s.Count)
			}
			if err := table.Flush(); err != nil {
				return err
			}

			if !apply {
				outln(cmd, cli.FormatInfo("Run with --apply to add these rules"))
				return nil
			}
			for _, s := range suggestions {
				rule := s.Rule()
				if _, err := store.AddCategoryRule(ctx, &rule); err != nil {
					return common.NewUserError("could not add rule for "+s.Merchant, err)
				}
			}
			outln(cmd, cli.FormatSuccess(fmt.Sprintf("Added %d rules", len(suggestions))))
			return nil
		},
	}

	cmd.Flags().Int("min", pattern.DefaultMinCount, "transactions a merchant needs before a rule is suggested")
	cmd.Flags().Bool("apply", false, "add the suggested rules")

	return cmd
}

func rulesApplyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "File uncategorized transactions with the current rules",
		Long: `Run the category rules over stored transactions that are still in the
default category. A backup is taken before anything changes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			txns, err := store.ListTransactions(ctx, model.TransactionFilter{Category: model.DefaultCategory})
			if err != nil {
				return err
			}
			matcher, err := pattern.LoadMatcher(ctx, store, true)
			if err != nil {
				return err
			}

			res := matcher.Categorize(txns)
			if res.Categorized == 0 {
				outln(cmd, cli.FormatInfo("No uncategorized transactions match a rule"))
				return nil
			}

			table := cli.NewTable(cmd.OutOrStdout(), "DATE", "MERCHANT", "AMOUNT", "CATEGORY")
			var changed []model.Transaction
			for _, t := range txns {
				if t.Category == model.DefaultCategory {
					continue
				}
				changed = append(changed, t)
				table.Row(t.Date.Format(model.DateLayout), t.Merchant, cli.FormatMoney(t.Amount, t.Currency), t.Category)
			}
			if err := table.Flush(); err != nil {
				return err
			}

			if dryRun {
				outln(cmd, cli.FormatInfo(fmt.Sprintf("Would categorize %d transactions (--dry-run)", len(changed))))
				return nil
			}

			if err := autoBackup(ctx, store, "rules-apply"); err != nil {
				return err
			}
			for i := range changed {
				if err := store.UpdateTransaction(ctx, &changed[i]); err != nil {
					return fmt.Errorf("failed to update %s: %w", changed[i].ID, err)
				}
			}
			if err := store.RecordRuleUse(ctx, res.Uses); err != nil {
				return err
			}
			outln(cmd, cli.FormatSuccess(fmt.Sprintf("Categorized %d transactions", len(changed))))
			return nil
		},
	}

	cmd.Flags().Bool("dry-run", false, "show the changes without saving them")

	return cmd
}
