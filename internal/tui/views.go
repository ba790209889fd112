package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Veraticus/spendwise/internal/analytics"
	"github.com/Veraticus/spendwise/internal/cli"
	"github.com/Veraticus/spendwise/internal/model"
	"github.com/Veraticus/spendwise/internal/tui/components"
	"github.com/Veraticus/spendwise/internal/tui/themes"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

var (
	categoryColumns = []table.Column{
		{Title: "Category", Width: 22},
		{Title: "Amount", Width: 14},
		{Title: "Share", Width: 8},
		{Title: "Points", Width: 10},
	}
	merchantColumns = []table.Column{
		{Title: "#", Width: 3},
		{Title: "Merchant", Width: 28},
		{Title: "Visits", Width: 7},
		{Title: "Amount", Width: 14},
	}
	rewardColumns = []table.Column{
		{Title: "Profile", Width: 18},
		{Title: "Redemption", Width: 20},
		{Title: "CPP", Width: 7},
		{Title: "Net Value", Width: 12},
		{Title: "Points", Width: 10},
		{Title: "", Width: 10},
	}
)

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	sections := []string{m.renderHeader(), m.renderTabs()}

	switch {
	case m.lastError != nil:
		sections = append(sections, m.theme.StatusError.Render("Error: "+m.lastError.Error()))
	case m.dashboard == nil:
		sections = append(sections, m.theme.Subtitle.Render("Loading..."))
	default:
		sections = append(sections, m.renderBody())
	}

	sections = append(sections, m.theme.Help.Render(m.help.View(m.keymap)))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader() string {
	title := m.theme.Title.Render("💳 Spending Dashboard")
	rng := fmt.Sprintf("%s → %s", m.config.From.Format(model.DateLayout), m.config.To.Format(model.DateLayout))
	if m.loading && m.dashboard != nil {
		rng += "  (refreshing)"
	}
	return title + "  " + m.theme.Subtitle.Render(rng)
}

func (m Model) renderTabs() string {
	tabs := make([]string, 0, tabCount)
	for t := Tab(0); t < tabCount; t++ {
		style := m.theme.TabInactive
		if t == m.active {
			style = m.theme.TabActive
		}
		tabs = append(tabs, style.Render(t.String()))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...) + "\n"
}

func (m Model) renderBody() string {
	switch m.active {
	case TabOverview:
		return m.renderOverview()
	case TabRewards:
		return m.renderRewards()
	default:
		if t, ok := m.tables[m.active]; ok {
			if len(t.Rows()) == 0 {
				return m.theme.Subtitle.Render("No transactions in range")
			}
			return m.theme.RoundedBox.Render(t.View())
		}
		return ""
	}
}

func (m Model) renderOverview() string {
	s := m.dashboard.Summary
	biggest := "none"
	if s.BiggestCategory != "" {
		biggest = themes.GetCategoryIcon(s.BiggestCategory) + " " + s.BiggestCategory +
			" (" + cli.FormatMoney(s.BiggestCategoryAmount, model.DefaultCurrency) + ")"
	}

	mom := cli.FormatPercent(s.MoMChange)
	switch {
	case s.MoMChange > 0:
		mom = m.theme.StatusWarning.Render(mom)
	case s.MoMChange < 0:
		mom = m.theme.StatusSuccess.Render(mom)
	}

	stats := strings.Join([]string{
		statLine(m.theme, "Total spend", cli.FormatMoney(s.TotalSpend, model.DefaultCurrency)),
		statLine(m.theme, "Monthly average", cli.FormatMoney(s.AvgMonthlySpend, model.DefaultCurrency)),
		statLine(m.theme, "Month over month", mom),
		statLine(m.theme, "Biggest category", biggest),
		statLine(m.theme, "Transactions", strconv.Itoa(s.TransactionCount)),
		statLine(m.theme, "Points earned", cli.FormatPoints(m.dashboard.Points.Total)),
	}, "\n")

	trend := m.theme.Bold.Render("Monthly spending") + "\n" + m.monthly.View()
	return lipgloss.JoinHorizontal(lipgloss.Top,
		m.theme.RoundedBox.Render(stats),
		"  ",
		m.theme.RoundedBox.Render(trend),
	)
}

func (m Model) renderRewards() string {
	if len(m.dashboard.Recommendations) == 0 {
		return m.theme.Subtitle.Render("No reward profiles yet. Add one with: spendwise rewards add")
	}

	lines := make([]string, 0, len(m.dashboard.Recommendations))
	for _, rec := range m.dashboard.Recommendations {
		if rec.Best == nil {
			lines = append(lines, fmt.Sprintf("%s: %s points, no redemption options", rec.Profile.Name, cli.FormatPoints(float64(rec.Profile.Balance))))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s points worth %s via %s at %s",
			m.theme.Bold.Render(rec.Profile.Name),
			cli.FormatPoints(float64(rec.Profile.Balance)),
			cli.FormatMoney(rec.BalanceValue, model.DefaultCurrency),
			rec.Best.Option.Type.Label(),
			analytics.FormatCPP(rec.Best.CPP),
		))
	}

	body := strings.Join(lines, "\n")
	if t, ok := m.tables[TabRewards]; ok && len(t.Rows()) > 0 {
		body += "\n\n" + t.View()
	}
	return m.theme.RoundedBox.Render(body)
}

func statLine(theme themes.Theme, label, value string) string {
	return theme.Subtitle.Render(fmt.Sprintf("%-18s", label)) + value
}

func monthlyBars(d *analytics.Dashboard) []components.Bar {
	bars := make([]components.Bar, 0, len(d.Summary.MonthlyTotals))
	for _, mt := range d.Summary.MonthlyTotals {
		bars = append(bars, components.Bar{
			Label: mt.Month,
			Value: mt.Total,
			Text:  cli.FormatMoney(mt.Total, model.DefaultCurrency),
		})
	}
	return bars
}

func categoryRows(d *analytics.Dashboard) []table.Row {
	rows := make([]table.Row, 0, len(d.Summary.CategoryTotals))
	for _, ct := range d.Summary.CategoryTotals {
		share := 0.0
		if d.Summary.TotalSpend > 0 {
			share = ct.Total / d.Summary.TotalSpend * 100
		}
		rows = append(rows, table.Row{
			themes.GetCategoryIcon(ct.Category) + " " + ct.Category,
			cli.FormatMoney(ct.Total, model.DefaultCurrency),
			fmt.Sprintf("%.1f%%", share),
			cli.FormatPoints(d.Points.ByCategory[ct.Category]),
		})
	}
	return rows
}

func merchantRows(d *analytics.Dashboard) []table.Row {
	rows := make([]table.Row, 0, len(d.Summary.TopMerchants))
	for i, tm := range d.Summary.TopMerchants {
		rows = append(rows, table.Row{
			strconv.Itoa(i + 1),
			tm.Merchant,
			strconv.Itoa(tm.Count),
			cli.FormatMoney(tm.Total, model.DefaultCurrency),
		})
	}
	return rows
}

func rewardRows(d *analytics.Dashboard) []table.Row {
	var rows []table.Row
	for _, rec := range d.Recommendations {
		for _, ranked := range rec.Ranked {
			flag := ""
			if ranked.IsLowValue {
				flag = "low value"
			}
			rows = append(rows, table.Row{
				rec.Profile.Name,
				ranked.Option.Type.Label(),
				analytics.FormatCPP(ranked.CPP),
				cli.FormatMoney(ranked.NetValue, model.DefaultCurrency),
				cli.FormatPoints(float64(ranked.Option.PointsRequired)),
				flag,
			})
		}
	}
	return rows
}
