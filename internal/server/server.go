// Package server exposes the quote editor actions over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/quotewright/internal/catalog"
	"github.com/Veraticus/quotewright/internal/model"
	"github.com/Veraticus/quotewright/internal/prefs"
	"github.com/Veraticus/quotewright/internal/pricing"
	"github.com/Veraticus/quotewright/internal/quote"
)

// Catalog is the catalog surface used by the actions.
type Catalog interface {
	Search(ctx context.Context, req catalog.SearchRequest) ([]model.SearchResult, error)
	ApplyPreset(ctx context.Context, req catalog.PresetRequest) (catalog.PresetResult, error)
}

// Quotes is the quote surface used by the actions.
type Quotes interface {
	SaveGroups(ctx context.Context, quoteID int64, inputs []quote.GroupInput) (*quote.SaveResult, error)
	Totals(ctx context.Context, quoteID int64) (pricing.QuoteTotals, error)
	SetFormat(ctx context.Context, quoteID int64, to model.QuoteFormat) ([]model.QuoteGroup, error)
}

// Config holds the listener settings.
type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// DefaultConfig listens on localhost.
func DefaultConfig() Config {
	return Config{
		Addr:            "127.0.0.1:8420",
		ShutdownTimeout: 5 * time.Second,
	}
}

// Server routes POST /ajax/:action to the action handlers.
type Server struct {
	engine  *gin.Engine
	prefs   prefs.Backend
	catalog Catalog
	quotes  Quotes
	logger  *slog.Logger
	actions map[string]actionFunc
	cfg     Config
}

type actionFunc func(c *gin.Context) (any, error)

// New creates a server with the default configuration.
func New(p prefs.Backend, cat Catalog, quotes Quotes, logger *slog.Logger) *Server {
	return NewWithConfig(p, cat, quotes, DefaultConfig(), logger)
}

// NewWithConfig creates a server with a custom configuration.
func NewWithConfig(p prefs.Backend, cat Catalog, quotes Quotes, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultConfig().ShutdownTimeout
	}

	s := &Server{
		prefs:   p,
		catalog: cat,
		quotes:  quotes,
		logger:  logger,
		cfg:     cfg,
	}
	s.actions = map[string]actionFunc{
		"save_table_prefs":     s.saveTablePrefs,
		"get_table_prefs":      s.getTablePrefs,
		"search_pricing_items": s.searchPricingItems,
		"apply_trade_preset":   s.applyTradePreset,
		"save_quote_groups":    s.saveQuoteGroups,
		"get_quote_totals":     s.getQuoteTotals,
		"set_quote_format":     s.setQuoteFormat,
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLogger())
	engine.POST("/ajax/:action", s.handleAction)
	s.engine = engine
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is canceled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("Action server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
		s.logger.Info("Action server stopped")
		return nil
	})
	return g.Wait()
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("Handled action",
			"action", c.Param("action"),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

func (s *Server) handleAction(c *gin.Context) {
	name := c.Param("action")
	action, ok := s.actions[name]
	if !ok {
		c.JSON(http.StatusNotFound, failure(fmt.Sprintf("unknown action %q", name)))
		return
	}

	data, err := action(c)
	if err != nil {
		status, msg := s.classify(name, err)
		c.JSON(status, failure(msg))
		return
	}
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}
