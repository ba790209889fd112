package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Veraticus/spendwise/internal/analytics"
	"github.com/Veraticus/spendwise/internal/cli"
	"github.com/Veraticus/spendwise/internal/common"
	"github.com/Veraticus/spendwise/internal/model"
	"github.com/Veraticus/spendwise/internal/service"
	"github.com/spf13/cobra"
)

func rewardsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rewards",
		Short: "Manage reward balances and redemption options",
		Long: `Track points balances and the ways you can redeem them, and see which
redemption gives the best value per point.`,
	}

	cmd.AddCommand(rewardsAddCmd())
	cmd.AddCommand(rewardsListCmd())
	cmd.AddCommand(rewardsDeleteCmd())
	cmd.AddCommand(rewardsBalanceCmd())
	cmd.AddCommand(rewardsOptionsCmd())
	cmd.AddCommand(rewardsRecommendCmd())

	return cmd
}

func rewardsAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "add",
		Short:   "Add a reward profile",
		Example: `  spendwise rewards add --name "Ultimate Rewards" --balance 85000`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			name, _ := cmd.Flags().GetString("name")
			balance, _ := cmd.Flags().GetInt64("balance")

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			id, err := store.AddRewardProfile(ctx, name, balance, nil)
			if err != nil {
				return common.NewUserError("could not add reward profile", err)
			}
			profile, err := store.GetRewardProfile(ctx, id)
			if err != nil {
				return err
			}
			outln(cmd, cli.FormatSuccess(fmt.Sprintf("Added %s with %s points (ID %d)",
				profile.Name, cli.FormatPoints(float64(profile.Balance)), id)))
			return nil
		},
	}

	cmd.Flags().String("name", "", "profile name (default: "+model.DefaultProfileName+")")
	cmd.Flags().Int64("balance", 0, "points balance")

	return cmd
}

func rewardsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List reward profiles and their options",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			profiles, err := store.GetRewardProfiles(ctx)
			if err != nil {
				return fmt.Errorf("failed to list reward profiles: %w", err)
			}
			return renderProfiles(cmd.OutOrStdout(), profiles)
		},
	}
}

func renderProfiles(w io.Writer, profiles []model.RewardProfile) error {
	if len(profiles) == 0 {
		_, err := fmt.Fprintln(w, cli.FormatInfo("No reward profiles yet. Add one with: spendwise rewards add"))
		return err
	}

	for i, p := range profiles {
		if i > 0 {
			_, _ = fmt.Fprintln(w)
		}
		_, _ = fmt.Fprintf(w, "%s %s (ID %d): %s points\n",
			cli.StarIcon, cli.BoldStyle.Render(p.Name), p.ID, cli.FormatPoints(float64(p.Balance)))
		if len(p.Options) == 0 {
			_, _ = fmt.Fprintln(w, cli.SubtleStyle.Render("  no redemption options"))
			continue
		}
		table := cli.NewTable(w, "  OPTION", "TYPE", "POINTS", "CASH", "FEES", "RESTRICTIONS")
		for _, o := range p.Options {
			table.Row(fmt.Sprintf("  %d", o.ID), o.Type.Label(), cli.FormatPoints(float64(o.PointsRequired)),
				cli.FormatMoney(o.CashValue, ""), cli.FormatMoney(o.Fees, ""), o.Restrictions)
		}
		if err := table.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func rewardsDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <profile-id>",
		Short: "Delete a reward profile and its options",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0], "profile")
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			profile, err := store.GetRewardProfile(ctx, id)
			if err != nil {
				return common.NewUserError(fmt.Sprintf("reward profile %d not found", id), err)
			}
			ok, err := confirm(cmd, fmt.Sprintf("Delete %s and its %d redemption options?", profile.Name, len(profile.Options)))
			if err != nil || !ok {
				return err
			}
			if err := store.DeleteRewardProfile(ctx, id); err != nil {
				return fmt.Errorf("failed to delete reward profile: %w", err)
			}
			outln(cmd, cli.FormatSuccess("Deleted "+profile.Name))
			return nil
		},
	}

	cmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")

	return cmd
}

func rewardsBalanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance <profile-id> <points>",
		Short: "Set a profile's points balance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0], "profile")
			if err != nil {
				return err
			}
			balance, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil || balance < 0 {
				return common.NewUserError(fmt.Sprintf("balance must be a whole non-negative number, got %q", args[1]), common.ErrInvalidInput)
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.UpdateRewardBalance(ctx, id, balance); err != nil {
				return common.NewUserError(fmt.Sprintf("could not update profile %d", id), err)
			}
			outln(cmd, cli.FormatSuccess(fmt.Sprintf("Balance set to %s points", cli.FormatPoints(float64(balance)))))
			return nil
		},
	}
}

func rewardsOptionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "options",
		Aliases: []string{"option"},
		Short:   "Manage redemption options",
	}

	cmd.AddCommand(rewardsOptionsAddCmd())
	cmd.AddCommand(rewardsOptionsUpdateCmd())
	cmd.AddCommand(rewardsOptionsDeleteCmd())

	return cmd
}

func redemptionTypeNames() string {
	names := make([]string, len(model.RedemptionTypes))
	for i, t := range model.RedemptionTypes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

func addOptionFlags(cmd *cobra.Command) {
	cmd.Flags().String("type", string(model.RedemptionStatementCredit), "redemption type ("+redemptionTypeNames()+")")
	cmd.Flags().Int64("points", 0, "points required")
	cmd.Flags().Float64("cash", 0, "cash value received")
	cmd.Flags().Float64("fees", 0, "fees or taxes paid")
	cmd.Flags().String("restrictions", "", "notes on restrictions")
}

// applyOptionFlags copies every flag the user set onto option.
func applyOptionFlags(cmd *cobra.Command, option *model.RedemptionOption) error {
	flags := cmd.Flags()
	if flags.Changed("type") || option.Type == "" {
		s, _ := flags.GetString("type")
		t, err := model.ParseRedemptionType(s)
		if err != nil {
			return common.NewUserError(fmt.Sprintf("%v (choose one of %s)", err, redemptionTypeNames()), common.ErrInvalidInput)
		}
		option.Type = t
	}
	if flags.Changed("points") {
		option.PointsRequired, _ = flags.GetInt64("points")
	}
	if flags.Changed("cash") {
		option.CashValue, _ = flags.GetFloat64("cash")
	}
	if flags.Changed("fees") {
		option.Fees, _ = flags.GetFloat64("fees")
	}
	if flags.Changed("restrictions") {
		option.Restrictions, _ = flags.GetString("restrictions")
	}
	if err := option.Validate(); err != nil {
		return common.NewUserError(err.Error(), common.ErrInvalidInput)
	}
	return nil
}

func rewardsOptionsAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "add <profile-id>",
		Short:   "Add a redemption option to a profile",
		Example: `  spendwise rewards options add 1 --type transferToPartner --points 60000 --cash 1100 --fees 5.60`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			profileID, err := parseID(args[0], "profile")
			if err != nil {
				return err
			}
			var option model.RedemptionOption
			if err := applyOptionFlags(cmd, &option); err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			id, err := store.AddRedemptionOption(ctx, profileID, &option)
			if err != nil {
				return common.NewUserError(fmt.Sprintf("could not add option to profile %d", profileID), err)
			}
			outln(cmd, cli.FormatSuccess(fmt.Sprintf("Added %s option (ID %d) at %s",
				option.Type.Label(), id, analytics.FormatCPP(analytics.ComputeCPP(option.CashValue, option.Fees, option.PointsRequired)))))
			return nil
		},
	}

	addOptionFlags(cmd)
	_ = cmd.MarkFlagRequired("points")
	_ = cmd.MarkFlagRequired("cash")

	return cmd
}

func rewardsOptionsUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <option-id>",
		Short: "Change a redemption option",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0], "option")
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			option, err := findOption(cmd, store, id)
			if err != nil {
				return err
			}
			if err := applyOptionFlags(cmd, option); err != nil {
				return err
			}
			if err := store.UpdateRedemptionOption(ctx, option); err != nil {
				return fmt.Errorf("failed to update option: %w", err)
			}
			outln(cmd, cli.FormatSuccess(fmt.Sprintf("Updated option %d", id)))
			return nil
		},
	}

	addOptionFlags(cmd)

	return cmd
}

func findOption(cmd *cobra.Command, store service.Storage, id int64) (*model.RedemptionOption, error) {
	profiles, err := store.GetRewardProfiles(cmd.Context())
	if err != nil {
		return nil, err
	}
	for _, p := range profiles {
		for i := range p.Options {
			if p.Options[i].ID == id {
				return &p.Options[i], nil
			}
		}
	}
	return nil, common.NewUserError(fmt.Sprintf("redemption option %d not found", id), common.ErrNotFound)
}

func rewardsOptionsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <option-id>",
		Short: "Delete a redemption option",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0], "option")
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.DeleteRedemptionOption(ctx, id); err != nil {
				return common.NewUserError(fmt.Sprintf("redemption option %d not found", id), err)
			}
			outln(cmd, cli.FormatSuccess(fmt.Sprintf("Deleted option %d", id)))
			return nil
		},
	}
}

func rewardsRecommendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Rank redemption options by cents per point",
		Long: `Rank every profile's redemption options by cents per point after fees.
Options below the low-value threshold are flagged.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			settings, err := store.GetAdvisorySettings(ctx)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("threshold") {
				settings.LowValueThreshold, _ = cmd.Flags().GetFloat64("threshold")
				settings.Normalize()
			}

			profiles, err := store.GetRewardProfiles(ctx)
			if err != nil {
				return err
			}
			recs := analytics.RecommendProfiles(profiles, settings.LowValueThreshold)
			return renderRecommendations(cmd.OutOrStdout(), recs, settings.LowValueThreshold)
		},
	}

	cmd.Flags().Float64("threshold", model.DefaultLowValueThreshold, "flag options below this many cents per point (default: saved setting)")

	return cmd
}

func renderRecommendations(w io.Writer, recs []analytics.ProfileRecommendation, threshold float64) error {
	if len(recs) == 0 {
		_, err := fmt.Fprintln(w, cli.FormatInfo("No reward profiles yet. Add one with: spendwise rewards add"))
		return err
	}

	for i, rec := range recs {
		if i > 0 {
			_, _ = fmt.Fprintln(w)
		}
		_, _ = fmt.Fprintf(w, "%s %s: %s points\n", cli.StarIcon, cli.BoldStyle.Render(rec.Profile.Name),
			cli.FormatPoints(float64(rec.Profile.Balance)))
		if rec.Best == nil {
			_, _ = fmt.Fprintln(w, cli.SubtleStyle.Render("  no redemption options"))
			continue
		}

		table := cli.NewTable(w, "  RANK", "TYPE", "POINTS", "NET VALUE", "CPP", "")
		for j, r := range rec.Ranked {
			flag := ""
			if r.IsLowValue {
				flag = cli.WarningStyle.Render("low value")
			}
			table.Row(fmt.Sprintf("  %d", j+1), r.Option.Type.Label(), cli.FormatPoints(float64(r.Option.PointsRequired)),
				cli.FormatMoney(r.NetValue, ""), analytics.FormatCPP(r.CPP), flag)
		}
		if err := table.Flush(); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(w, "  Best: %s. %s\n", rec.Best.Option.Type.Label(), rec.Best.Explanation)
		_, _ = fmt.Fprintf(w, "  Your balance is worth about %s this way.\n", cli.FormatMoney(rec.BalanceValue, ""))
	}

	_, err := fmt.Fprintf(w, "\n%s\n", cli.SubtleStyle.Render("Low-value threshold: "+analytics.FormatCPP(threshold)))
	return err
}
