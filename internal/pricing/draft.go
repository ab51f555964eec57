package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/Veraticus/quotewright/internal/formula"
	"github.com/Veraticus/quotewright/internal/model"
)

// BasePrices maps catalog item ids to their current unit price.
type BasePrices map[int64]decimal.Decimal

// Base returns the catalog price for a line, zero for custom lines.
func (b BasePrices) Base(id *int64) decimal.Decimal {
	if id == nil {
		return decimal.Zero
	}
	if p, ok := b[*id]; ok {
		return p
	}
	return decimal.Zero
}

// DraftFromQuote builds a draft from stored groups. Field texts are
// rendered from the stored mode and modifier so that aggregation reproduces
// the stored state.
func DraftFromQuote(q model.Quote, groups []model.QuoteGroup, prices BasePrices) Draft {
	d := Draft{
		TaxRate: q.TaxRate,
		Format:  q.Format,
		Groups:  make([]Group, 0, len(groups)),
	}
	for _, g := range groups {
		dg := Group{
			ID:           g.ID,
			Name:         g.Name,
			Mode:         g.SelectionMode,
			ShowSubtotal: g.ShowSubtotal,
			Lines:        make([]Line, 0, len(g.Items)),
		}
		for _, it := range g.Items {
			dg.Lines = append(dg.Lines, LineFromItem(it, prices.Base(it.PricingItemID)))
		}
		d.Groups = append(d.Groups, dg)
	}
	return d
}

// LineFromItem converts a stored line item.
func LineFromItem(it model.LineItem, base decimal.Decimal) Line {
	return Line{
		ID:            it.ID,
		QuantityExpr:  it.Quantity.String(),
		Quantity:      it.Quantity,
		Formula:       formula.Format(it.PriceMode, it.PriceModifier),
		BasePrice:     base,
		ResolvedPrice: it.ResolvedPrice,
		MaterialCost:  it.MaterialCost,
		LaborCost:     it.LaborCost,
		TaxRate:       it.TaxRate,
		ItemType:      it.ItemType,
		Selected:      it.IsSelected,
	}
}
