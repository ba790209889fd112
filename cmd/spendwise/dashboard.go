package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/Veraticus/spendwise/internal/analytics"
	"github.com/Veraticus/spendwise/internal/cli"
	"github.com/Veraticus/spendwise/internal/common"
	"github.com/Veraticus/spendwise/internal/model"
	"github.com/Veraticus/spendwise/internal/tui"
	"github.com/Veraticus/spendwise/internal/tui/themes"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func dashboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show spending analytics and points earned",
		Long: `Show total and monthly spending, the category breakdown, top merchants,
points earned, and the best redemption for each rewards balance.

Covers the last 12 months unless --from/--to/--months say otherwise.`,
		RunE: runDashboard,
	}

	addDateRangeFlags(cmd)
	cmd.Flags().BoolP("interactive", "i", false, "open the interactive dashboard")
	cmd.Flags().String("theme", "", "interactive theme (default, catppuccin-mocha)")
	cmd.Flags().String("format", "table", "output format (table, json)")

	_ = viper.BindPFlag("ui.theme", cmd.Flags().Lookup("theme"))

	return cmd
}

func runDashboard(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	from, to, err := dateRange(cmd, time.Now())
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
	if format != "table" && format != "json" {
		return common.NewUserError(fmt.Sprintf("unknown format %q", format), common.ErrInvalidInput)
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if interactive, _ := cmd.Flags().GetBool("interactive"); interactive {
		return tui.Run(ctx,
			tui.WithSource(store),
			tui.WithRange(from, to),
			tui.WithTheme(themes.GetTheme(viper.GetString("ui.theme"))),
		)
	}

	dashboard, err := analytics.LoadDashboard(ctx, store, from, to)
	if err != nil {
		return err
	}

	if format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(dashboard)
	}
	return renderDashboard(cmd.OutOrStdout(), dashboard)
}

// renderDashboard writes the dashboard as plain tables.
func renderDashboard(w io.Writer, d *analytics.Dashboard) error {
	s := d.Summary
	p := func(format string, args ...any) { _, _ = fmt.Fprintf(w, format, args...) }

	p("%s\n\n", cli.FormatTitle(fmt.Sprintf("Spending %s to %s",
		d.From.Format(model.DateLayout), d.To.Format(model.DateLayout))))

	if s.TransactionCount == 0 {
		p("%s\n", cli.FormatInfo("No transactions in this range"))
	} else {
		summary := cli.NewTable(w, "TOTAL", "MONTHLY AVG", "MOM", "TOP CATEGORY", "TRANSACTIONS")
		summary.Row(cli.FormatMoney(s.TotalSpend, ""), cli.FormatMoney(s.AvgMonthlySpend, ""),
			cli.FormatPercent(s.MoMChange),
			fmt.Sprintf("%s (%s)", s.BiggestCategory, cli.FormatMoney(s.BiggestCategoryAmount, "")),
			s.TransactionCount)
		if err := summary.Flush(); err != nil {
			return err
		}

		p("\n%s\n", cli.SubtitleStyle.Render(cli.ChartIcon+" By month"))
		months := cli.NewTable(w, "MONTH", "SPENT")
		for _, m := range s.MonthlyTotals {
			months.Row(m.Month, cli.FormatMoney(m.Total, ""))
		}
		if err := months.Flush(); err != nil {
			return err
		}

		p("\n%s\n", cli.SubtitleStyle.Render("By category"))
		categories := cli.NewTable(w, "CATEGORY", "SPENT", "SHARE", "POINTS")
		for _, c := range s.CategoryTotals {
			var share float64
			if s.TotalSpend > 0 {
				share = c.Total / s.TotalSpend * 100
			}
			categories.Row(c.Category, cli.FormatMoney(c.Total, ""),
				fmt.Sprintf("%.1f%%", share), cli.FormatPoints(d.Points.ByCategory[c.Category]))
		}
		if err := categories.Flush(); err != nil {
			return err
		}

		p("\n%s\n", cli.SubtitleStyle.Render("Top merchants"))
		merchants := cli.NewTable(w, "MERCHANT", "SPENT", "VISITS")
		for _, m := range s.TopMerchants {
			merchants.Row(m.Merchant, cli.FormatMoney(m.Total, ""), m.Count)
		}
		if err := merchants.Flush(); err != nil {
			return err
		}
	}

	p("\n%s %s points earned\n", cli.StarIcon, cli.FormatPoints(d.Points.Total))

	if len(d.Recommendations) == 0 {
		return nil
	}
	p("\n%s\n", cli.SubtitleStyle.Render("Best redemptions"))
	best := cli.NewTable(w, "PROFILE", "BALANCE", "BEST OPTION", "CPP", "BALANCE VALUE")
	for _, rec := range d.Recommendations {
		if rec.Best == nil {
			best.Row(rec.Profile.Name, cli.FormatPoints(float64(rec.Profile.Balance)), "no options", "", "")
			continue
		}
		best.Row(rec.Profile.Name, cli.FormatPoints(float64(rec.Profile.Balance)), rec.Best.Option.Type.Label(),
			analytics.FormatCPP(rec.Best.CPP), cli.FormatMoney(rec.BalanceValue, ""))
	}
	return best.Flush()
}
