// Package components holds reusable dashboard widgets.
package components

import (
	"strings"

	"github.com/Veraticus/spendwise/internal/tui/themes"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// Bar is one labelled value in a BarChart.
type Bar struct {
	Label string
	Value float64
	Text  string
}

// BarChart renders horizontal bars scaled to the largest value.
type BarChart struct {
	theme      themes.Theme
	bar        progress.Model
	bars       []Bar
	labelWidth int
}

// NewBarChart creates a chart whose bars are width cells wide.
func NewBarChart(theme themes.Theme, width int) BarChart {
	if width < 10 {
		width = 10
	}
	return BarChart{
		theme: theme,
		bar: progress.New(
			progress.WithSolidFill(string(theme.Primary)),
			progress.WithWidth(width),
			progress.WithoutPercentage(),
		),
	}
}

// SetBars replaces the chart data.
func (c *BarChart) SetBars(bars []Bar) {
	c.bars = bars
	c.labelWidth = 0
	for _, b := range bars {
		c.labelWidth = max(c.labelWidth, lipgloss.Width(b.Label))
	}
}

// Fraction returns bar i's length relative to the largest bar.
func (c BarChart) Fraction(i int) float64 {
	var peak float64
	for _, b := range c.bars {
		peak = max(peak, b.Value)
	}
	if peak <= 0 || i < 0 || i >= len(c.bars) || c.bars[i].Value <= 0 {
		return 0
	}
	return c.bars[i].Value / peak
}

// View renders one line per bar.
func (c BarChart) View() string {
	if len(c.bars) == 0 {
		return c.theme.Subtitle.Render("No data")
	}

	lines := make([]string, 0, len(c.bars))
	label := lipgloss.NewStyle().Width(c.labelWidth + 1)
	for i, b := range c.bars {
		lines = append(lines, label.Render(b.Label)+" "+c.bar.ViewAs(c.Fraction(i))+" "+c.theme.Normal.Render(b.Text))
	}
	return strings.Join(lines, "\n")
}
