package components

import (
	"strings"
	"testing"

	"github.com/Veraticus/spendwise/internal/tui/themes"
	"github.com/charmbracelet/bubbles/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBarChart(t *testing.T) {
	chart := NewBarChart(themes.Default, 20)
	assert.Contains(t, chart.View(), "No data")

	chart.SetBars([]Bar{
		{Label: "2024-01", Value: 135, Text: "$135.00"},
		{Label: "2024-02", Value: 550, Text: "$550.00"},
		{Label: "2024-03", Value: 0, Text: "$0.00"},
	})

	assert.InDelta(t, 135.0/550.0, chart.Fraction(0), 1e-9)
	assert.InDelta(t, 1.0, chart.Fraction(1), 1e-9)
	assert.Zero(t, chart.Fraction(2))
	assert.Zero(t, chart.Fraction(7))

	lines := strings.Split(chart.View(), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "2024-02")
	assert.Contains(t, lines[1], "$550.00")
}

func TestNewTable(t *testing.T) {
	tbl := NewTable(themes.Default,
		[]table.Column{{Title: "Merchant", Width: 12}, {Title: "Amount", Width: 10}},
		[]table.Row{{"Delta", "$450.00"}, {"Whole Foods", "$200.00"}},
		1,
	)
	assert.True(t, tbl.Focused())
	assert.Len(t, tbl.Rows(), 2)
	assert.Contains(t, tbl.View(), "Merchant")
}
