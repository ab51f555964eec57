package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/Veraticus/quotewright/internal/common"
	"github.com/Veraticus/quotewright/internal/formula"
	"github.com/Veraticus/quotewright/internal/layout"
	"github.com/Veraticus/quotewright/internal/prefs"
)

// Preference backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendHTTP   = "http"
)

// Config is the resolved application configuration.
type Config struct {
	Tables   map[string]layout.TableConfig
	Database DatabaseConfig
	Logging  LoggingConfig
	Prefs    PrefsConfig
	Redis    RedisConfig
	Server   ServerConfig
	Catalog  CatalogConfig
	Pricing  formula.Rounding
	Layout   layout.Config
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string
}

// LoggingConfig selects log level and handler.
type LoggingConfig struct {
	Level  string
	Format string
}

// PrefsConfig selects where table preferences go.
type PrefsConfig struct {
	Backend  string
	Endpoint string
	Debounce time.Duration
}

// RedisConfig is used by the redis preference backend.
type RedisConfig struct {
	Addr   string
	Prefix string
	TTL    time.Duration
}

// ServerConfig configures the action endpoint.
type ServerConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// CatalogConfig tunes catalog search.
type CatalogConfig struct {
	SearchTTL   time.Duration
	SearchLimit int
}

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper) {
	lc := layout.DefaultConfig()

	v.SetDefault("database.path", "$HOME/.local/share/quotewright/quotewright.db")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("pricing.rounding.multiple", "1")
	v.SetDefault("pricing.rounding.direction", string(formula.Nearest))
	v.SetDefault("prefs.backend", BackendSQLite)
	v.SetDefault("prefs.debounce", prefs.DefaultDebounce)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.prefix", "quotewright:prefs:")
	v.SetDefault("redis.ttl", time.Duration(0))
	v.SetDefault("server.addr", "127.0.0.1:8420")
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("catalog.search_ttl", 2*time.Minute)
	v.SetDefault("catalog.search_limit", 25)
	v.SetDefault("layout.min_width_floor", lc.MinWidthFloor)
	v.SetDefault("layout.max_width_percent", lc.MaxWidthPercent)
	v.SetDefault("layout.max_width_floor", lc.MaxWidthFloor)
	v.SetDefault("layout.max_width_cap", lc.MaxWidthCap)
	v.SetDefault("layout.saved_min_factor", lc.SavedMinFactor)
	v.SetDefault("layout.saved_max_factor", lc.SavedMaxFactor)
	v.SetDefault("layout.epsilon", lc.Epsilon)
	v.SetDefault("layout.drag_threshold", lc.DragThreshold)
}

// Load resolves the configuration from v. Keys v does not set fall back to
// the defaults of SetDefaults.
func Load(v *viper.Viper) (Config, error) {
	SetDefaults(v)

	multiple, err := decimal.NewFromString(strings.TrimSpace(v.GetString("pricing.rounding.multiple")))
	if err != nil {
		return Config{}, fmt.Errorf("%w: pricing.rounding.multiple: %v", common.ErrInvalidConfig, err)
	}
	if multiple.IsNegative() {
		return Config{}, fmt.Errorf("%w: pricing.rounding.multiple cannot be negative", common.ErrInvalidConfig)
	}
	direction, err := formula.ParseDirection(v.GetString("pricing.rounding.direction"))
	if err != nil {
		return Config{}, fmt.Errorf("%w: pricing.rounding.direction: %v", common.ErrInvalidConfig, err)
	}

	cfg := Config{
		Database: DatabaseConfig{Path: ExpandPath(v.GetString("database.path"))},
		Logging: LoggingConfig{
			Level:  strings.ToLower(v.GetString("logging.level")),
			Format: strings.ToLower(v.GetString("logging.format")),
		},
		Pricing: formula.Rounding{Multiple: multiple, Direction: direction},
		Prefs: PrefsConfig{
			Backend:  strings.ToLower(v.GetString("prefs.backend")),
			Endpoint: v.GetString("prefs.endpoint"),
			Debounce: v.GetDuration("prefs.debounce"),
		},
		Redis: RedisConfig{
			Addr:   v.GetString("redis.addr"),
			Prefix: v.GetString("redis.prefix"),
			TTL:    v.GetDuration("redis.ttl"),
		},
		Server: ServerConfig{
			Addr:            v.GetString("server.addr"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
		Catalog: CatalogConfig{
			SearchTTL:   v.GetDuration("catalog.search_ttl"),
			SearchLimit: v.GetInt("catalog.search_limit"),
		},
		Layout: layout.Config{
			MinWidthFloor:   v.GetInt("layout.min_width_floor"),
			MaxWidthPercent: v.GetFloat64("layout.max_width_percent"),
			MaxWidthFloor:   v.GetInt("layout.max_width_floor"),
			MaxWidthCap:     v.GetInt("layout.max_width_cap"),
			SavedMinFactor:  v.GetFloat64("layout.saved_min_factor"),
			SavedMaxFactor:  v.GetFloat64("layout.saved_max_factor"),
			Epsilon:         v.GetFloat64("layout.epsilon"),
			DragThreshold:   v.GetInt("layout.drag_threshold"),
		},
	}

	if err := v.UnmarshalKey("layout.tables", &cfg.Tables); err != nil {
		return Config{}, fmt.Errorf("%w: layout.tables: %v", common.ErrInvalidConfig, err)
	}
	for key, tc := range cfg.Tables {
		if tc.Key == "" {
			tc.Key = key
			cfg.Tables[key] = tc
		}
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("%w: logging.format must be console or json, got %q", common.ErrInvalidConfig, c.Logging.Format)
	}
	switch c.Prefs.Backend {
	case BackendSQLite, BackendRedis:
	case BackendHTTP:
		if c.Prefs.Endpoint == "" {
			return fmt.Errorf("%w: prefs.endpoint is required for the http backend", common.ErrMissingConfig)
		}
	default:
		return fmt.Errorf("%w: unknown prefs.backend %q", common.ErrInvalidConfig, c.Prefs.Backend)
	}
	if c.Prefs.Debounce < 0 {
		return fmt.Errorf("%w: prefs.debounce cannot be negative", common.ErrInvalidConfig)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("%w: database.path", common.ErrMissingConfig)
	}
	if c.Layout.MinWidthFloor <= 0 || c.Layout.MaxWidthCap < c.Layout.MinWidthFloor {
		return fmt.Errorf("%w: layout width bounds", common.ErrInvalidConfig)
	}
	if c.Catalog.SearchLimit <= 0 {
		return fmt.Errorf("%w: catalog.search_limit must be positive", common.ErrInvalidConfig)
	}
	return nil
}
