package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/Veraticus/spendwise/internal/cli"
	"github.com/Veraticus/spendwise/internal/common"
	"github.com/Veraticus/spendwise/internal/model"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func ratesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rates",
		Short: "Manage points earning rates",
		Long: `Points earned are estimated as amount × rate, where the rate comes from a
card override if one exists, else the category rate, else 1x.`,
	}

	cmd.AddCommand(ratesListCmd())
	cmd.AddCommand(ratesSetCmd())
	cmd.AddCommand(ratesOverrideCmd())
	cmd.AddCommand(ratesRemoveCmd())
	cmd.AddCommand(ratesExportCmd())
	cmd.AddCommand(ratesImportCmd())

	return cmd
}

func ratesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show category rates and card overrides",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			rates, err := store.GetEarningRates(ctx)
			if err != nil {
				return err
			}
			return renderRates(cmd.OutOrStdout(), rates)
		},
	}
}

func renderRates(w io.Writer, rates model.EarningRates) error {
	_, _ = fmt.Fprintln(w, cli.SubtitleStyle.Render("Category rates"))
	table := cli.NewTable(w, "CATEGORY", "POINTS/$")
	for _, c := range rates.SortedCategories() {
		table.Row(c, formatRate(rates.CategoryRates[c]))
	}
	if err := table.Flush(); err != nil {
		return err
	}

	cards := rates.SortedCards()
	if len(cards) == 0 {
		_, err := fmt.Fprintln(w, "\n"+cli.SubtleStyle.Render("No card overrides"))
		return err
	}

	_, _ = fmt.Fprintln(w, "\n"+cli.SubtitleStyle.Render("Card overrides"))
	overrides := cli.NewTable(w, "CARD", "CATEGORY", "POINTS/$")
	for _, card := range cards {
		for _, c := range sortedCategories(rates.CardOverrides[card]) {
			overrides.Row(card, c, formatRate(rates.CardOverrides[card][c]))
		}
	}
	return overrides.Flush()
}

func sortedCategories(m map[string]float64) []string {
	return model.EarningRates{CategoryRates: m}.SortedCategories()
}

func formatRate(rate float64) string {
	return strconv.FormatFloat(rate, 'f', -1, 64) + "x"
}

func parseRate(s string) (float64, error) {
	rate, err := strconv.ParseFloat(s, 64)
	if err != nil || rate < 0 || !model.IsFinite(rate) {
		return 0, common.NewUserError(fmt.Sprintf("rate must be a non-negative number, got %q", s), common.ErrInvalidInput)
	}
	return rate, nil
}

// updateRates loads the rates, applies fn and saves the result.
func updateRates(cmd *cobra.Command, fn func(*model.EarningRates) error) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	rates, err := store.GetEarningRates(ctx)
	if err != nil {
		return err
	}
	if err := fn(&rates); err != nil {
		return err
	}
	if err := store.SaveEarningRates(ctx, rates); err != nil {
		return fmt.Errorf("failed to save earning rates: %w", err)
	}
	return nil
}

func ratesSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "set <category> <rate>",
		Short:   "Set the points-per-dollar for a category",
		Example: `  spendwise rates set Dining 3`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rate, err := parseRate(args[1])
			if err != nil {
				return err
			}
			err = updateRates(cmd, func(r *model.EarningRates) error {
				if err := r.SetCategoryRate(args[0], rate); err != nil {
					return common.NewUserError(err.Error(), common.ErrInvalidInput)
				}
				return nil
			})
			if err != nil {
				return err
			}
			outln(cmd, cli.FormatSuccess(fmt.Sprintf("%s earns %s", args[0], formatRate(rate))))
			return nil
		},
	}
}

func ratesOverrideCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "override <card> <category> <rate>",
		Short:   "Set a card-specific rate for a category",
		Example: `  spendwise rates override "Amex Gold" Groceries 4`,
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			rate, err := parseRate(args[2])
			if err != nil {
				return err
			}
			err = updateRates(cmd, func(r *model.EarningRates) error {
				if err := r.SetCardOverride(args[0], args[1], rate); err != nil {
					return common.NewUserError(err.Error(), common.ErrInvalidInput)
				}
				return nil
			})
			if err != nil {
				return err
			}
			outln(cmd, cli.FormatSuccess(fmt.Sprintf("%s earns %s on %s", args[0], formatRate(rate), args[1])))
			return nil
		},
	}
}

func ratesRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <card> <category>",
		Short: "Remove a card override",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := updateRates(cmd, func(r *model.EarningRates) error {
				if _, ok := r.CardOverrides[args[0]][args[1]]; !ok {
					return common.NewUserError(fmt.Sprintf("no override for %s on %s", args[0], args[1]), common.ErrNotFound)
				}
				r.RemoveCardOverride(args[0], args[1])
				return nil
			})
			if err != nil {
				return err
			}
			outln(cmd, cli.FormatSuccess(fmt.Sprintf("Removed %s override for %s", args[0], args[1])))
			return nil
		},
	}
}

func ratesExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write earning rates as YAML",
		Long:  `Write earning rates as YAML to a file, or to stdout when no file is given.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			rates, err := store.GetEarningRates(ctx)
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(rates)
			if err != nil {
				return fmt.Errorf("failed to encode rates: %w", err)
			}

			if len(args) == 0 || args[0] == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(args[0], data, 0o600); err != nil {
				return fmt.Errorf("failed to write %s: %w", args[0], err)
			}
			outln(cmd, cli.FormatSuccess("Wrote rates to "+args[0]))
			return nil
		},
	}
}

func ratesImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Load earning rates from YAML",
		Long: `Load earning rates from a YAML file written by "rates export".

By default the file's rates are merged over the current ones; --replace
discards the current rates first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0]) // #nosec G304 -- user-provided file path is expected
			if err != nil {
				return common.NewUserError("cannot read "+args[0], err)
			}
			incoming, err := decodeRates(data)
			if err != nil {
				return err
			}
			replace, _ := cmd.Flags().GetBool("replace")

			err = updateRates(cmd, func(r *model.EarningRates) error {
				if replace {
					*r = incoming
					return nil
				}
				for c, rate := range incoming.CategoryRates {
					if err := r.SetCategoryRate(c, rate); err != nil {
						return common.NewUserError(err.Error(), common.ErrInvalidInput)
					}
				}
				for card, cats := range incoming.CardOverrides {
					for c, rate := range cats {
						if err := r.SetCardOverride(card, c, rate); err != nil {
							return common.NewUserError(err.Error(), common.ErrInvalidInput)
						}
					}
				}
				return nil
			})
			if err != nil {
				return err
			}
			outln(cmd, cli.FormatSuccess("Loaded rates from "+args[0]))
			return nil
		},
	}

	cmd.Flags().Bool("replace", false, "replace all current rates instead of merging")

	return cmd
}

// decodeRates parses and validates a YAML rates document.
func decodeRates(data []byte) (model.EarningRates, error) {
	var rates model.EarningRates
	if err := yaml.Unmarshal(data, &rates); err != nil {
		return rates, common.NewUserError("rates file is not valid YAML", err)
	}
	if rates.CategoryRates == nil {
		rates.CategoryRates = map[string]float64{}
	}
	if rates.CardOverrides == nil {
		rates.CardOverrides = map[string]map[string]float64{}
	}
	if err := rates.Validate(); err != nil {
		return rates, common.NewUserError(err.Error(), common.ErrInvalidInput)
	}
	return rates, nil
}
