package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Veraticus/spendwise/internal/analytics"
	"github.com/Veraticus/spendwise/internal/cli"
	"github.com/Veraticus/spendwise/internal/common"
	"github.com/Veraticus/spendwise/internal/model"
	"github.com/spf13/cobra"
)

func settingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "View or change advisory settings",
	}

	cmd.AddCommand(settingsThresholdCmd())

	return cmd
}

func settingsThresholdCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "threshold [cpp]",
		Short: "Show or set the low-value redemption threshold",
		Long: `Redemptions worth fewer cents per point than the threshold are flagged as
low value. Without an argument the current threshold is shown. Zero or a
negative value resets it to the default.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if len(args) == 0 {
				settings, err := store.GetAdvisorySettings(ctx)
				if err != nil {
					return err
				}
				outf(cmd, "Low-value threshold: %s\n", analytics.FormatCPP(settings.LowValueThreshold))
				return nil
			}

			threshold, err := strconv.ParseFloat(args[0], 64)
			if err != nil || !model.IsFinite(threshold) {
				return common.NewUserError(fmt.Sprintf("threshold must be a number, got %q", args[0]), common.ErrInvalidInput)
			}
			settings := model.AdvisorySettings{LowValueThreshold: threshold}
			settings.Normalize()
			if err := store.SaveAdvisorySettings(ctx, settings); err != nil {
				return fmt.Errorf("failed to save settings: %w", err)
			}
			outln(cmd, cli.FormatSuccess("Low-value threshold set to "+analytics.FormatCPP(settings.LowValueThreshold)))
			return nil
		},
	}
}

func profileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "View or change your display name",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show your profile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			profile, err := store.GetUserProfile(ctx)
			if err != nil {
				return err
			}
			if profile.Name == "" {
				outln(cmd, cli.FormatInfo("No name set. Set one with: spendwise profile set <name>"))
				return nil
			}
			outf(cmd, "Name: %s\n", profile.Name)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <name>",
		Short: "Set your display name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name := strings.TrimSpace(strings.Join(args, " "))

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.SaveUserProfile(ctx, &model.UserProfile{Name: name}); err != nil {
				return common.NewUserError("could not save profile", err)
			}
			outln(cmd, cli.FormatSuccess("Name set to "+name))
			return nil
		},
	})

	return cmd
}
