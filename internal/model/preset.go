package model

import "github.com/shopspring/decimal"

// TradePreset is a canned group/item tree for one trade and quote format.
type TradePreset struct {
	Groups  []PresetGroup `json:"groups" yaml:"groups"`
	Name    string        `json:"name" yaml:"name"`
	Format  QuoteFormat   `json:"quote_format" yaml:"quote_format"`
	TradeID int64         `json:"trade_id" yaml:"trade_id"`
}

// PresetGroup is one group of a preset.
type PresetGroup struct {
	Name          string        `json:"name" yaml:"name"`
	Description   string        `json:"description" yaml:"description"`
	SelectionMode SelectionMode `json:"selection_mode" yaml:"selection_mode"`
	Items         []PresetItem  `json:"items" yaml:"items"`
	ShowSubtotal  bool          `json:"show_subtotal" yaml:"show_subtotal"`
}

// PresetItem references a catalog SKU with a default quantity.
type PresetItem struct {
	Quantity decimal.Decimal `json:"quantity" yaml:"quantity"`
	SKU      string          `json:"sku" yaml:"sku"`
}
