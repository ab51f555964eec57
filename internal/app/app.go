// Package app wires the storage, services and preference plumbing of one
// quotewright process. Every component is reached through an App value.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/Veraticus/quotewright/internal/catalog"
	"github.com/Veraticus/quotewright/internal/common"
	"github.com/Veraticus/quotewright/internal/config"
	"github.com/Veraticus/quotewright/internal/events"
	"github.com/Veraticus/quotewright/internal/layout"
	"github.com/Veraticus/quotewright/internal/prefs"
	"github.com/Veraticus/quotewright/internal/quote"
	"github.com/Veraticus/quotewright/internal/storage"
)

// App is the application context.
type App struct {
	Logger   *slog.Logger
	Store    *storage.SQLiteStorage
	Catalog  *catalog.Service
	Quotes   *quote.Service
	Prefs    prefs.Backend
	Queue    *prefs.Queue
	Events   *events.Dispatcher
	Registry *layout.Registry
	redis    *redis.Client
	Config   config.Config
}

// Option customizes construction.
type Option func(*options)

type options struct {
	backend prefs.Backend
}

// WithPrefsBackend replaces the configured preference backend.
func WithPrefsBackend(b prefs.Backend) Option {
	return func(o *options) { o.backend = b }
}

// New opens the database, applies migrations and builds every service.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	store, err := storage.NewSQLiteStorage(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	a := &App{
		Config: cfg,
		Logger: logger,
		Store:  store,
		Events: events.NewDispatcher(),
		Catalog: catalog.NewWithConfig(store, catalog.Config{
			SearchTTL:   cfg.Catalog.SearchTTL,
			SearchLimit: cfg.Catalog.SearchLimit,
		}, logger),
		Quotes: quote.NewWithConfig(store, quote.Config{Rounding: cfg.Pricing}, logger),
	}

	a.Prefs = o.backend
	if a.Prefs == nil {
		if a.Prefs, err = a.openBackend(ctx); err != nil {
			_ = a.Close(ctx)
			return nil, err
		}
	}

	a.Queue = prefs.NewQueue(a.Prefs,
		prefs.WithDebounce(cfg.Prefs.Debounce),
		prefs.WithQueueLogger(logger),
		prefs.WithOnError(func(c prefs.Context, _ prefs.Payload, err error) {
			common.LogError(logger, err, "Table preference save failed", common.Fields{
				"context":   c.Key(),
				"retryable": common.IsRetryable(err),
			})
		}),
	)
	a.Registry = layout.NewRegistry(cfg.Layout.Cells(layout.CellPx), a.Events, a.Queue, logger)

	common.LogDebug(logger, "Application ready", common.Fields{
		"database":      cfg.Database.Path,
		"prefs_backend": cfg.Prefs.Backend,
	})
	return a, nil
}

func (a *App) openBackend(ctx context.Context) (prefs.Backend, error) {
	switch a.Config.Prefs.Backend {
	case config.BackendRedis:
		client, err := prefs.DialRedis(ctx, a.Config.Redis.Addr)
		if err != nil {
			return nil, err
		}
		a.redis = client
		return prefs.NewRedisBackend(client, a.Config.Redis.Prefix, a.Config.Redis.TTL), nil
	case config.BackendHTTP:
		return prefs.NewHTTPBackend(a.Config.Prefs.Endpoint, nil), nil
	default:
		return prefs.NewStoreBackend(a.Store), nil
	}
}

// TableConfig returns the configured table or fallback when none is set.
func (a *App) TableConfig(key string, fallback layout.TableConfig) layout.TableConfig {
	if tc, ok := a.Config.Tables[key]; ok {
		return tc
	}
	return fallback
}

// Close flushes pending preference saves and releases every resource.
func (a *App) Close(ctx context.Context) error {
	if a.Queue != nil {
		a.Queue.Close(ctx)
	}
	if a.Registry != nil {
		a.Registry.Close()
	}
	if a.Catalog != nil {
		a.Catalog.Close()
	}

	var errs []error
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
		}
	}
	if err := a.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close database: %w", err))
	}
	return errors.Join(errs...)
}
