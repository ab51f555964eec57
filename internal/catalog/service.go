// Package catalog manages catalog items, autocomplete search, trade
// presets and spreadsheet imports.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/quotewright/internal/common"
	"github.com/Veraticus/quotewright/internal/model"
	"github.com/Veraticus/quotewright/internal/service"
)

// Config holds catalog service options.
type Config struct {
	SearchTTL   time.Duration
	SearchLimit int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		SearchTTL:   defaultSearchTTL,
		SearchLimit: 25,
	}
}

// Service is the catalog admin and lookup surface.
type Service struct {
	store  service.Storage
	cache  *searchCache
	logger *slog.Logger
	limit  int
}

// New creates a catalog service with the default configuration.
func New(store service.Storage, logger *slog.Logger) *Service {
	return NewWithConfig(store, DefaultConfig(), logger)
}

// NewWithConfig creates a catalog service with a custom configuration.
func NewWithConfig(store service.Storage, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = DefaultConfig().SearchLimit
	}
	return &Service{
		store:  store,
		cache:  newSearchCache(cfg.SearchTTL),
		logger: logger,
		limit:  cfg.SearchLimit,
	}
}

// Close stops the search cache.
func (s *Service) Close() {
	s.cache.close()
}

// Create adds a catalog item.
func (s *Service) Create(ctx context.Context, item *model.CatalogItem) error {
	if err := s.store.CreateCatalogItem(ctx, item); err != nil {
		return fmt.Errorf("failed to create catalog item: %w", err)
	}
	s.cache.clear()
	s.logger.Info("Created catalog item", "id", item.ID, "sku", item.SKU, "catalog", item.CatalogType)
	return nil
}

// Update saves an edited catalog item.
func (s *Service) Update(ctx context.Context, item *model.CatalogItem) error {
	if err := s.store.UpdateCatalogItem(ctx, item); err != nil {
		return fmt.Errorf("failed to update catalog item: %w", err)
	}
	s.cache.clear()
	return nil
}

// SetPrice changes an item's unit price. The price history only grows when
// the price rounded to cents differs from the current one.
func (s *Service) SetPrice(ctx context.Context, id int64, price decimal.Decimal) (bool, error) {
	changed, err := s.store.SetCatalogPrice(ctx, id, price)
	if err != nil {
		return false, fmt.Errorf("failed to set price of item %d: %w", id, err)
	}
	if changed {
		s.cache.clear()
		s.logger.Info("Catalog price changed", "id", id, "price", price.StringFixed(2))
	}
	return changed, nil
}

// Get returns one catalog item with its price history.
func (s *Service) Get(ctx context.Context, id int64) (*model.CatalogItem, error) {
	item, err := s.store.GetCatalogItem(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog item %d: %w", id, err)
	}
	return item, nil
}

// List returns catalog items for admin listings.
func (s *Service) List(ctx context.Context, filter service.CatalogFilter) ([]model.CatalogItem, error) {
	items, err := s.store.ListCatalogItems(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog items: %w", err)
	}
	return items, nil
}

// SearchRequest is an autocomplete query. Format selects the catalog; when
// it is empty the format of the quote is used.
type SearchRequest struct {
	Format  model.QuoteFormat `json:"quote_format"`
	Term    string            `json:"term"`
	QuoteID int64             `json:"quote_id"`
}

// Search returns active items of the matching catalog whose sku, title or
// description contains the term. An empty term yields no results.
func (s *Service) Search(ctx context.Context, req SearchRequest) ([]model.SearchResult, error) {
	term := strings.ToLower(strings.TrimSpace(req.Term))
	if term == "" {
		return []model.SearchResult{}, nil
	}

	format, err := s.resolveFormat(ctx, req.Format, req.QuoteID)
	if err != nil {
		return nil, err
	}
	catalog := format.CatalogType()

	key := cacheKey(catalog, term)
	if cached, ok := s.cache.get(key); ok {
		return cached, nil
	}

	items, err := s.store.ListCatalogItems(ctx, service.CatalogFilter{
		CatalogType: catalog,
		Term:        term,
		ActiveOnly:  true,
		Limit:       s.limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search catalog: %w", err)
	}

	results := make([]model.SearchResult, 0, len(items))
	for _, it := range items {
		results = append(results, it.AsSearchResult())
	}
	s.cache.set(key, results)
	return results, nil
}

func (s *Service) resolveFormat(ctx context.Context, format model.QuoteFormat, quoteID int64) (model.QuoteFormat, error) {
	if format != "" {
		f, err := model.ParseQuoteFormat(string(format))
		if err != nil {
			return "", fmt.Errorf("%w: %v", common.ErrInvalidFormat, err)
		}
		return f, nil
	}
	if quoteID <= 0 {
		return model.FormatStandard, nil
	}
	q, err := s.store.GetQuote(ctx, quoteID)
	if err != nil {
		return "", fmt.Errorf("failed to load quote %d: %w", quoteID, err)
	}
	return q.Format, nil
}
