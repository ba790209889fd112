package tui

import (
	"github.com/Veraticus/spendwise/internal/analytics"
	"github.com/Veraticus/spendwise/internal/tui/components"
	"github.com/Veraticus/spendwise/internal/tui/themes"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
)

// Tab identifies a dashboard page.
type Tab int

// Dashboard pages in display order.
const (
	TabOverview Tab = iota
	TabCategories
	TabMerchants
	TabRewards
	tabCount
)

var tabNames = [tabCount]string{"Overview", "Categories", "Merchants", "Rewards"}

func (t Tab) String() string {
	if t < 0 || t >= tabCount {
		return "Unknown"
	}
	return tabNames[t]
}

// chrome is the number of rows used by the header, tab bar and help line.
const chrome = 8

// Model holds the dashboard state.
type Model struct {
	lastError error
	dashboard *analytics.Dashboard
	theme     themes.Theme
	config    Config
	help      help.Model
	keymap    KeyMap
	tables    map[Tab]table.Model
	monthly   components.BarChart
	width     int
	height    int
	active    Tab
	loading   bool
	quitting  bool
}

func newModel(cfg Config) Model {
	m := Model{
		config:    cfg,
		theme:     cfg.Theme,
		keymap:    DefaultKeyMap(),
		help:      help.New(),
		width:     cfg.Width,
		height:    cfg.Height,
		dashboard: cfg.Dashboard,
		loading:   cfg.Dashboard == nil,
	}
	m.rebuild()
	return m
}

// Init starts loading data unless it was provided up front.
func (m Model) Init() tea.Cmd {
	if m.dashboard != nil {
		return nil
	}
	return m.loadDashboard()
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keymap.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keymap.NextTab):
			m.active = (m.active + 1) % tabCount
			return m, nil
		case key.Matches(msg, m.keymap.PrevTab):
			m.active = (m.active + tabCount - 1) % tabCount
			return m, nil
		case key.Matches(msg, m.keymap.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keymap.Refresh):
			if m.config.Source == nil {
				return m, nil
			}
			m.loading = true
			return m, m.loadDashboard()
		}

		if t, ok := m.tables[m.active]; ok {
			var cmd tea.Cmd
			m.tables[m.active], cmd = t.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.rebuild()

	case dashboardLoadedMsg:
		m.loading = false
		m.lastError = msg.err
		if msg.err == nil {
			m.dashboard = msg.dashboard
			m.rebuild()
		}
	}

	return m, nil
}

// ActiveTab returns the page currently shown.
func (m Model) ActiveTab() Tab {
	return m.active
}

// rebuild regenerates tables and charts from the dashboard and terminal size.
func (m *Model) rebuild() {
	m.tables = make(map[Tab]table.Model, tabCount-1)
	m.monthly = components.NewBarChart(m.theme, m.width/3)
	if m.dashboard == nil {
		return
	}

	height := m.height - chrome
	m.monthly.SetBars(monthlyBars(m.dashboard))
	m.tables[TabCategories] = components.NewTable(m.theme, categoryColumns, categoryRows(m.dashboard), height)
	m.tables[TabMerchants] = components.NewTable(m.theme, merchantColumns, merchantRows(m.dashboard), height)
	m.tables[TabRewards] = components.NewTable(m.theme, rewardColumns, rewardRows(m.dashboard), height-4)
}
