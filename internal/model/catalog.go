package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint is one entry of a catalog item's price history.
type PricePoint struct {
	Date  time.Time       `json:"date"`
	Price decimal.Decimal `json:"price"`
}

// CatalogItem is a reusable priced product or service definition.
type CatalogItem struct {
	UpdatedAt    time.Time       `json:"updated_at"`
	TradeID      *int64          `json:"trade_id,omitempty"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	SKU          string          `json:"sku"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	UnitType     string          `json:"unit_type"`
	Category     string          `json:"category"`
	CatalogType  CatalogType     `json:"catalog_type"`
	PriceHistory []PricePoint    `json:"price_history,omitempty"`
	ID           int64           `json:"id"`
	SortOrder    int             `json:"sort_order"`
	IsActive     bool            `json:"is_active"`
}

// SearchResult is the autocomplete projection of a catalog item.
type SearchResult struct {
	TradeID     *int64          `json:"trade_id,omitempty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	SKU         string          `json:"sku"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	UnitType    string          `json:"unit_type"`
	ID          int64           `json:"id"`
}

// AsSearchResult projects the item for autocomplete responses.
func (c CatalogItem) AsSearchResult() SearchResult {
	return SearchResult{
		ID:          c.ID,
		SKU:         c.SKU,
		Title:       c.Title,
		Description: c.Description,
		UnitType:    c.UnitType,
		UnitPrice:   c.UnitPrice,
		TradeID:     c.TradeID,
	}
}
