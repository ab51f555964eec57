// Package pricing computes line amounts, group subtotals, tax and grand
// totals for a quote draft.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/Veraticus/quotewright/internal/formula"
	"github.com/Veraticus/quotewright/internal/model"
)

var hundred = decimal.NewFromInt(100)

// Line is one line item as edited. QuantityExpr and Formula are the raw
// field texts; Quantity and ResolvedPrice are the last valid values, kept
// when the texts fail to evaluate.
type Line struct {
	MaterialCost  decimal.NullDecimal
	LaborCost     decimal.NullDecimal
	TaxRate       decimal.NullDecimal
	Quantity      decimal.Decimal
	BasePrice     decimal.Decimal
	ResolvedPrice decimal.Decimal
	ID            string
	QuantityExpr  string
	Formula       string
	ItemType      model.ItemType
	Selected      bool
}

// Group is one group of lines.
type Group struct {
	ID           string
	Name         string
	Mode         model.SelectionMode
	Lines        []Line
	ShowSubtotal bool
}

// Draft is a whole quote under edit.
type Draft struct {
	TaxRate decimal.Decimal
	Format  model.QuoteFormat
	Groups  []Group
}

// Settings holds the pricing configuration.
type Settings struct {
	Rounding formula.Rounding
}

// LineTotals is the computed state of one line.
type LineTotals struct {
	Formula       formula.Formula
	Margin        Margin
	Quantity      decimal.Decimal
	Rate          decimal.Decimal
	Amount        decimal.Decimal
	Tax           decimal.Decimal
	Display       decimal.Decimal
	ID            string
	QuantityValid bool
	RateValid     bool
	Included      bool
	Discount      bool
}

// GroupTotals is the computed state of one group.
type GroupTotals struct {
	ID       string
	Lines    []LineTotals
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
}

// QuoteTotals is the computed state of a quote. Invalid counts fields that
// failed to evaluate and fell back to their previous value.
type QuoteTotals struct {
	Groups     []GroupTotals
	Subtotal   decimal.Decimal
	Tax        decimal.Decimal
	GrandTotal decimal.Decimal
	Format     model.QuoteFormat
	Invalid    int
}

// Aggregate computes every line, group and quote total. Invalid fields are
// local: the line keeps its previous value and the rest of the quote is
// computed normally.
func Aggregate(d Draft, s Settings) QuoteTotals {
	insurance := d.Format == model.FormatInsurance
	out := QuoteTotals{
		Format:     d.Format,
		Groups:     make([]GroupTotals, 0, len(d.Groups)),
		Subtotal:   decimal.Zero,
		Tax:        decimal.Zero,
		GrandTotal: decimal.Zero,
	}

	for _, g := range d.Groups {
		gt := GroupTotals{
			ID:       g.ID,
			Lines:    make([]LineTotals, 0, len(g.Lines)),
			Subtotal: decimal.Zero,
			Tax:      decimal.Zero,
		}

		singleTaken := false
		for _, l := range g.Lines {
			lt := computeLine(l, d.TaxRate, insurance, s)
			if !lt.QuantityValid {
				out.Invalid++
			}
			if !lt.RateValid {
				out.Invalid++
			}

			switch g.Mode {
			case model.SelectMulti:
				lt.Included = l.Selected
			case model.SelectSingle:
				lt.Included = l.Selected && !singleTaken
				if lt.Included {
					singleTaken = true
				}
			default:
				lt.Included = true
			}

			if lt.Included {
				gt.Subtotal = gt.Subtotal.Add(lt.Amount)
				gt.Tax = gt.Tax.Add(lt.Tax)
			}
			gt.Lines = append(gt.Lines, lt)
		}

		out.Subtotal = out.Subtotal.Add(gt.Subtotal)
		out.Tax = out.Tax.Add(gt.Tax)
		out.Groups = append(out.Groups, gt)
	}

	if !insurance {
		out.Tax = decimal.Zero
	}
	out.GrandTotal = out.Subtotal.Add(out.Tax)
	return out
}

func computeLine(l Line, quoteRate decimal.Decimal, insurance bool, s Settings) LineTotals {
	lt := LineTotals{ID: l.ID, Tax: decimal.Zero}

	lt.Quantity, lt.QuantityValid = formula.EvalExpression(l.QuantityExpr, l.Quantity)

	if insurance {
		lt.Rate = costTotal(l).Round(2)
		lt.RateValid = true
		lt.Formula = formula.Parse(lt.Rate.StringFixed(2))
	} else {
		lt.Rate, lt.Formula, lt.RateValid = formula.ResolveOrKeep(l.Formula, l.BasePrice, l.ResolvedPrice, s.Rounding)
	}

	lt.Amount = lt.Quantity.Mul(lt.Rate).Round(2)
	if insurance && l.MaterialCost.Valid {
		rate := EffectiveTaxRate(l.TaxRate, quoteRate)
		lt.Tax = lt.Quantity.Mul(l.MaterialCost.Decimal).Mul(rate).Div(hundred).Round(2)
	}
	lt.Display = lt.Amount.Add(lt.Tax)

	lt.Discount = IsDiscount(lt.Rate, l.ItemType)
	lt.Margin = ComputeMargin(lt.Rate, l.MaterialCost, l.LaborCost)
	return lt
}

func costTotal(l Line) decimal.Decimal {
	total := decimal.Zero
	if l.MaterialCost.Valid {
		total = total.Add(l.MaterialCost.Decimal)
	}
	if l.LaborCost.Valid {
		total = total.Add(l.LaborCost.Decimal)
	}
	return total
}

// EffectiveTaxRate is the line rate when set, else the quote rate, floored
// at zero. Rates are percentages.
func EffectiveTaxRate(line decimal.NullDecimal, quote decimal.Decimal) decimal.Decimal {
	rate := quote
	if line.Valid {
		rate = line.Decimal
	}
	if rate.IsNegative() {
		return decimal.Zero
	}
	return rate
}

// IsDiscount reports whether a line displays as a discount. It does not
// affect inclusion.
func IsDiscount(resolved decimal.Decimal, itemType model.ItemType) bool {
	return resolved.IsNegative() || itemType == model.ItemDiscount
}
