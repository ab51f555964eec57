package server

import (
	"github.com/shopspring/decimal"

	"github.com/Veraticus/quotewright/internal/model"
	"github.com/Veraticus/quotewright/internal/pricing"
)

// LineTotals is the wire form of a computed line.
type LineTotals struct {
	Quantity      decimal.Decimal `json:"quantity"`
	Rate          decimal.Decimal `json:"rate"`
	Amount        decimal.Decimal `json:"amount"`
	Tax           decimal.Decimal `json:"tax"`
	Display       decimal.Decimal `json:"display_price"`
	ID            string          `json:"id"`
	Margin        string          `json:"margin"`
	QuantityValid bool            `json:"quantity_valid"`
	RateValid     bool            `json:"rate_valid"`
	Included      bool            `json:"included"`
	Discount      bool            `json:"discount"`
}

// GroupTotals is the wire form of a computed group.
type GroupTotals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	ID       string          `json:"id"`
	Lines    []LineTotals    `json:"lines"`
}

// Totals is the wire form of computed quote totals.
type Totals struct {
	Subtotal   decimal.Decimal   `json:"subtotal"`
	Tax        decimal.Decimal   `json:"tax"`
	GrandTotal decimal.Decimal   `json:"grand_total"`
	Format     model.QuoteFormat `json:"quote_format"`
	Groups     []GroupTotals     `json:"groups"`
	Invalid    int               `json:"invalid"`
}

// NewTotals converts aggregator output for the wire.
func NewTotals(t pricing.QuoteTotals) Totals {
	out := Totals{
		Subtotal:   t.Subtotal,
		Tax:        t.Tax,
		GrandTotal: t.GrandTotal,
		Format:     t.Format,
		Invalid:    t.Invalid,
		Groups:     make([]GroupTotals, 0, len(t.Groups)),
	}
	for _, g := range t.Groups {
		gt := GroupTotals{
			ID:       g.ID,
			Subtotal: g.Subtotal,
			Tax:      g.Tax,
			Lines:    make([]LineTotals, 0, len(g.Lines)),
		}
		for _, l := range g.Lines {
			gt.Lines = append(gt.Lines, LineTotals{
				ID:            l.ID,
				Quantity:      l.Quantity,
				Rate:          l.Rate,
				Amount:        l.Amount,
				Tax:           l.Tax,
				Display:       l.Display,
				Margin:        l.Margin.String(),
				QuantityValid: l.QuantityValid,
				RateValid:     l.RateValid,
				Included:      l.Included,
				Discount:      l.Discount,
			})
		}
		out.Groups = append(out.Groups, gt)
	}
	return out
}
