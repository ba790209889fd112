package components

import (
	"github.com/Veraticus/spendwise/internal/tui/themes"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// NewTable builds a focused, themed table.
func NewTable(theme themes.Theme, columns []table.Column, rows []table.Row, height int) table.Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(max(height, 3)),
	)

	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(theme.Border).
		BorderBottom(true).
		Bold(true).
		Foreground(theme.Primary)
	styles.Selected = styles.Selected.
		Foreground(theme.Foreground).
		Background(theme.Primary).
		Bold(false)
	t.SetStyles(styles)
	return t
}
