package tui

import "github.com/Veraticus/spendwise/internal/analytics"

type dashboardLoadedMsg struct {
	dashboard *analytics.Dashboard
	err       error
}
