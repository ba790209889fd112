package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/spendwise/internal/analytics"
	tea "github.com/charmbracelet/bubbletea"
)

// loadDashboard computes the dashboard for the configured range.
func (m Model) loadDashboard() tea.Cmd {
	src, from, to := m.config.Source, m.config.From, m.config.To
	return func() tea.Msg {
		if src == nil {
			return dashboardLoadedMsg{err: fmt.Errorf("storage not configured")}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		dash, err := analytics.LoadDashboard(ctx, src, from, to)
		return dashboardLoadedMsg{dashboard: dash, err: err}
	}
}
