// Package service defines the interfaces for all application services.
package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/quotewright/internal/model"
)

// CatalogFilter defines filtering options for catalog queries.
type CatalogFilter struct {
	TradeID     *int64
	CatalogType model.CatalogType
	Term        string
	ActiveOnly  bool
	Limit       int
	Offset      int
}

// QuoteContent counts what a quote already holds.
type QuoteContent struct {
	Groups int
	Items  int
}

// Empty reports whether the quote has no groups and no items.
func (c QuoteContent) Empty() bool {
	return c.Groups == 0 && c.Items == 0
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Catalog operations
	CreateCatalogItem(ctx context.Context, item *model.CatalogItem) error
	UpdateCatalogItem(ctx context.Context, item *model.CatalogItem) error
	SetCatalogPrice(ctx context.Context, id int64, price decimal.Decimal) (bool, error)
	GetCatalogItem(ctx context.Context, id int64) (*model.CatalogItem, error)
	GetCatalogItemBySKU(ctx context.Context, catalogType model.CatalogType, sku string) (*model.CatalogItem, error)
	ListCatalogItems(ctx context.Context, filter CatalogFilter) ([]model.CatalogItem, error)
	GetCatalogPrices(ctx context.Context, ids []int64) (map[int64]decimal.Decimal, error)

	// Quote operations
	CreateQuote(ctx context.Context, quote *model.Quote) error
	GetQuote(ctx context.Context, id int64) (*model.Quote, error)
	ListQuotes(ctx context.Context) ([]model.Quote, error)
	SetQuoteFormat(ctx context.Context, id int64, format model.QuoteFormat) error
	GetQuoteGroups(ctx context.Context, quoteID int64) ([]model.QuoteGroup, error)
	ReplaceQuoteGroups(ctx context.Context, quoteID int64, groups []model.QuoteGroup) error
	GetQuoteContent(ctx context.Context, quoteID int64) (QuoteContent, error)

	// Trade preset operations
	SaveTradePreset(ctx context.Context, preset *model.TradePreset) error
	GetTradePreset(ctx context.Context, tradeID int64, format model.QuoteFormat) (*model.TradePreset, error)
	GetTradePresetFormats(ctx context.Context, tradeID int64) ([]model.QuoteFormat, error)
	ListTradePresets(ctx context.Context) ([]model.TradePreset, error)

	// Table preference operations
	SaveTablePreference(ctx context.Context, pref *model.TablePreference) error
	GetTablePreference(ctx context.Context, contextKey string) (*model.TablePreference, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}
