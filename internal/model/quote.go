package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote holds the quote-level fields the pricing core depends on.
type Quote struct {
	CreatedAt time.Time       `json:"created_at"`
	TaxRate   decimal.Decimal `json:"tax_rate"`
	Title     string          `json:"title"`
	Format    QuoteFormat     `json:"quote_format"`
	ID        int64           `json:"id"`
}

// QuoteGroup is a named collection of line items within a quote.
type QuoteGroup struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Description   string        `json:"description"`
	SelectionMode SelectionMode `json:"selection_mode"`
	Items         []LineItem    `json:"items"`
	QuoteID       int64         `json:"quote_id"`
	SortOrder     int           `json:"sort_order"`
	ShowSubtotal  bool          `json:"show_subtotal"`
	IsCollapsed   bool          `json:"is_collapsed"`
}

// LineItem is a single priced row inside a quote group.
// A nil PricingItemID marks a free-text line.
type LineItem struct {
	PricingItemID         *int64              `json:"pricing_item_id,omitempty"`
	PreviousResolvedPrice decimal.NullDecimal `json:"previous_resolved_price"`
	MaterialCost          decimal.NullDecimal `json:"material_cost"`
	LaborCost             decimal.NullDecimal `json:"labor_cost"`
	TaxRate               decimal.NullDecimal `json:"tax_rate"`
	Quantity              decimal.Decimal     `json:"quantity"`
	PriceModifier         decimal.Decimal     `json:"price_modifier"`
	ResolvedPrice         decimal.Decimal     `json:"resolved_price"`
	ID                    string              `json:"id"`
	GroupID               string              `json:"group_id"`
	ItemType              ItemType            `json:"item_type"`
	Title                 string              `json:"title"`
	Description           string              `json:"description"`
	UnitType              string              `json:"unit_type"`
	PriceMode             PriceMode           `json:"price_mode"`
	LineSKU               string              `json:"line_sku"`
	Note                  string              `json:"note"`
	SortOrder             int                 `json:"sort_order"`
	IsSelected            bool                `json:"is_selected"`
}

// HasCostData reports whether either cost field carries a value.
func (l LineItem) HasCostData() bool {
	return l.MaterialCost.Valid || l.LaborCost.Valid
}

// CostTotal is material plus labor, treating blanks as zero.
func (l LineItem) CostTotal() decimal.Decimal {
	total := decimal.Zero
	if l.MaterialCost.Valid {
		total = total.Add(l.MaterialCost.Decimal)
	}
	if l.LaborCost.Valid {
		total = total.Add(l.LaborCost.Decimal)
	}
	return total
}

// ItemCount totals line items across groups.
func ItemCount(groups []QuoteGroup) int {
	n := 0
	for _, g := range groups {
		n += len(g.Items)
	}
	return n
}
