package tui

import (
	"log/slog"
	"time"

	"github.com/Veraticus/quotewright/internal/app"
	"github.com/Veraticus/quotewright/internal/events"
	"github.com/Veraticus/quotewright/internal/export"
	"github.com/Veraticus/quotewright/internal/layout"
	"github.com/Veraticus/quotewright/internal/prefs"
	"github.com/Veraticus/quotewright/internal/tui/themes"
)

// Config holds TUI configuration.
type Config struct {
	Theme    themes.Theme
	Quotes   export.QuoteSource
	Registry *layout.Registry
	Prefs    prefs.Backend
	Events   *events.Dispatcher
	Logger   *slog.Logger
	Table    layout.TableConfig
	// FrameInterval paces the terminal size stabilization poll.
	FrameInterval time.Duration
	Width         int
	Height        int
	MouseSupport  bool
}

// Option is a functional option for configuring the TUI.
type Option func(*Config)

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		Theme:         themes.Default,
		Table:         DefaultTableConfig(),
		FrameInterval: 16 * time.Millisecond,
		Width:         80,
		Height:        24,
		MouseSupport:  true,
	}
}

// FromApp takes every dependency from an application context. The line
// item table config comes from layout.tables.line-items when set.
func FromApp(a *app.App) Option {
	return func(c *Config) {
		c.Quotes = a.Quotes
		c.Registry = a.Registry
		c.Prefs = a.Prefs
		c.Events = a.Events
		c.Logger = a.Logger
		c.Table = a.TableConfig(TableKey, DefaultTableConfig())
	}
}

// WithQuotes sets where quotes are loaded from.
func WithQuotes(q export.QuoteSource) Option {
	return func(c *Config) {
		c.Quotes = q
	}
}

// WithRegistry sets the layout registry managing the line item table.
func WithRegistry(r *layout.Registry) Option {
	return func(c *Config) {
		c.Registry = r
	}
}

// WithPrefs sets the backend saved preferences are restored from.
func WithPrefs(b prefs.Backend) Option {
	return func(c *Config) {
		c.Prefs = b
	}
}

// WithEvents sets the dispatcher table changes are published on.
func WithEvents(d *events.Dispatcher) Option {
	return func(c *Config) {
		c.Events = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithTableConfig replaces the line item table config.
func WithTableConfig(tc layout.TableConfig) Option {
	return func(c *Config) {
		c.Table = tc
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

// WithMouse enables or disables mouse gestures.
func WithMouse(enabled bool) Option {
	return func(c *Config) {
		c.MouseSupport = enabled
	}
}

// WithFrameInterval sets the stabilization frame interval.
func WithFrameInterval(d time.Duration) Option {
	return func(c *Config) {
		c.FrameInterval = d
	}
}
