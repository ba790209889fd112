package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/spendwise/internal/analytics"
	"github.com/Veraticus/spendwise/internal/cli"
	"github.com/Veraticus/spendwise/internal/common"
	"github.com/Veraticus/spendwise/internal/config"
	"github.com/Veraticus/spendwise/internal/model"
	"github.com/Veraticus/spendwise/internal/sheets"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export reports",
	}

	cmd.AddCommand(exportSheetsCmd())

	return cmd
}

func exportSheetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "Write the dashboard report to Google Sheets",
		Long: `Write the spending summary, monthly and category totals, top merchants and
redemption rankings to a Google Sheets spreadsheet.

Authenticate first with "spendwise auth sheets", or point
sheets.service_account_path at a service account key.`,
		RunE: runExportSheets,
	}

	addDateRangeFlags(cmd)
	cmd.Flags().String("spreadsheet-id", "", "write to this spreadsheet instead of creating one")

	return cmd
}

func runExportSheets(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	from, to, err := dateRange(cmd, time.Now())
	if err != nil {
		return err
	}

	cfg, err := config.LoadSheetsConfig()
	if err != nil {
		return common.NewUserError("Google Sheets is not configured (run: spendwise auth sheets)", fmt.Errorf("%w: %w", common.ErrMissingConfig, err))
	}
	if id, _ := cmd.Flags().GetString("spreadsheet-id"); id != "" {
		cfg.SpreadsheetID = id
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	dashboard, err := analytics.LoadDashboard(ctx, store, from, to)
	if err != nil {
		return err
	}

	writer, err := sheets.NewWriter(ctx, *cfg, slog.Default())
	if err != nil {
		return err
	}
	report := sheets.BuildReport(dashboard.Summary, dashboard.Points, dashboard.Recommendations, from, to)
	if err := writer.Write(ctx, report); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	outln(cmd, cli.FormatSuccess(fmt.Sprintf("Exported %s to %s (%d transactions) to %q",
		from.Format(model.DateLayout), to.Format(model.DateLayout), dashboard.Summary.TransactionCount, cfg.SpreadsheetName)))
	return nil
}

func authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authenticate with external services",
	}

	cmd.AddCommand(authSheetsCmd())

	return cmd
}

func authSheetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "Authorize Google Sheets access",
		Long: `Run the Google OAuth consent flow and save the resulting token.

Needs an OAuth client ID and secret from the Google Cloud console, set as
sheets.client_id / sheets.client_secret or GOOGLE_SHEETS_CLIENT_ID /
GOOGLE_SHEETS_CLIENT_SECRET.`,
		RunE: runAuthSheets,
	}

	cmd.Flags().String("listen", "localhost:8085", "address for the OAuth callback")

	return cmd
}

func runAuthSheets(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	oauthCfg := sheets.OAuth2Config{
		ClientID:     viper.GetString("sheets.client_id"),
		ClientSecret: viper.GetString("sheets.client_secret"),
		TokenFile:    config.SheetsTokenFile(),
	}
	oauthCfg.ListenAddr, _ = cmd.Flags().GetString("listen")

	env := sheets.Config{ClientID: oauthCfg.ClientID, ClientSecret: oauthCfg.ClientSecret}
	env.LoadFromEnv()
	oauthCfg.ClientID, oauthCfg.ClientSecret = env.ClientID, env.ClientSecret
	if oauthCfg.ClientID == "" || oauthCfg.ClientSecret == "" {
		return common.NewUserError("set sheets.client_id and sheets.client_secret first", common.ErrMissingConfig)
	}

	token, err := sheets.Authorize(ctx, oauthCfg, func(url string) {
		outln(cmd, cli.FormatInfo("Open this URL in your browser to grant access:"))
		outln(cmd, url)
	})
	if err != nil {
		return fmt.Errorf("authorization failed: %w", err)
	}
	if err := sheets.SaveToken(oauthCfg.TokenFile, token); err != nil {
		return err
	}

	outln(cmd, cli.FormatSuccess("Saved Google Sheets token to "+oauthCfg.TokenFile))
	return nil
}
