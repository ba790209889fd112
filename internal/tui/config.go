// Package tui implements the interactive terminal dashboard.
package tui

import (
	"time"

	"github.com/Veraticus/spendwise/internal/analytics"
	"github.com/Veraticus/spendwise/internal/tui/themes"
)

// Config holds TUI configuration.
type Config struct {
	From      time.Time
	To        time.Time
	Theme     themes.Theme
	Source    analytics.Source
	Dashboard *analytics.Dashboard
	Width     int
	Height    int
}

// Option is a functional option for configuring the TUI.
type Option func(*Config)

func defaultConfig() Config {
	from, to := analytics.LastMonths(time.Now(), analytics.DefaultRangeMonths)
	return Config{
		Theme:  themes.Default,
		From:   from,
		To:     to,
		Width:  80,
		Height: 24,
	}
}

// WithSource sets where dashboard data is loaded from.
func WithSource(src analytics.Source) Option {
	return func(c *Config) {
		c.Source = src
	}
}

// WithDashboard starts the TUI with precomputed data.
func WithDashboard(d *analytics.Dashboard) Option {
	return func(c *Config) {
		c.Dashboard = d
		if d != nil {
			c.From, c.To = d.From, d.To
		}
	}
}

// WithRange sets the date range to load.
func WithRange(from, to time.Time) Option {
	return func(c *Config) {
		c.From = from
		c.To = to
	}
}

// WithTheme sets the visual theme.
func WithTheme(theme themes.Theme) Option {
	return func(c *Config) {
		c.Theme = theme
	}
}

// WithSize sets the initial terminal size.
func WithSize(width, height int) Option {
	return func(c *Config) {
		c.Width = width
		c.Height = height
	}
}
