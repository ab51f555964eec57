package model

import "fmt"

// QuoteFormat selects which pricing path a quote uses.
type QuoteFormat string

const (
	// FormatStandard prices lines from catalog formulas.
	FormatStandard QuoteFormat = "standard"
	// FormatInsurance prices lines from material and labor costs.
	FormatInsurance QuoteFormat = "insurance"
)

// ParseQuoteFormat validates a quote format string.
func ParseQuoteFormat(s string) (QuoteFormat, error) {
	switch QuoteFormat(s) {
	case FormatStandard, FormatInsurance:
		return QuoteFormat(s), nil
	case "":
		return FormatStandard, nil
	default:
		return "", fmt.Errorf("unknown quote format %q", s)
	}
}

// CatalogType returns the catalog that serves this quote format.
func (f QuoteFormat) CatalogType() CatalogType {
	if f == FormatInsurance {
		return CatalogInsurance
	}
	return CatalogStandard
}

// CatalogType partitions catalog items between quote formats.
type CatalogType string

const (
	// CatalogStandard items are offered on standard quotes.
	CatalogStandard CatalogType = "standard"
	// CatalogInsurance items are offered on insurance quotes.
	CatalogInsurance CatalogType = "insurance"
)

// SelectionMode controls which lines of a group count toward its subtotal.
type SelectionMode string

const (
	// SelectAll includes every line.
	SelectAll SelectionMode = "all"
	// SelectMulti includes every selected line.
	SelectMulti SelectionMode = "multi"
	// SelectSingle includes only the first selected line.
	SelectSingle SelectionMode = "single"
)

// ParseSelectionMode validates a selection mode, defaulting to all.
func ParseSelectionMode(s string) (SelectionMode, error) {
	switch SelectionMode(s) {
	case SelectAll, SelectMulti, SelectSingle:
		return SelectionMode(s), nil
	case "":
		return SelectAll, nil
	default:
		return "", fmt.Errorf("unknown selection mode %q", s)
	}
}

// PriceMode is how a line's rate is derived from its catalog price.
type PriceMode string

const (
	PriceDefault    PriceMode = "default"
	PriceAddition   PriceMode = "addition"
	PricePercentage PriceMode = "percentage"
	PriceOverride   PriceMode = "override"
)

// ItemType distinguishes regular lines from discounts.
type ItemType string

const (
	ItemStandard ItemType = "standard"
	ItemDiscount ItemType = "discount"
)
