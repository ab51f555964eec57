package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/quotewright/internal/formula"
	"github.com/Veraticus/quotewright/internal/model"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func nd(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(d(s))
}

func line(id, qty, f, base string) Line {
	return Line{ID: id, QuantityExpr: qty, Formula: f, BasePrice: d(base), Quantity: d("1")}
}

func TestAggregate_Standard(t *testing.T) {
	draft := Draft{
		Format:  model.FormatStandard,
		TaxRate: d("8"),
		Groups: []Group{
			{ID: "g1", Mode: model.SelectAll, Lines: []Line{
				line("a", "2", "$+5", "20"),
				line("b", "1.5", "$*1.1", "20"),
				line("c", "(2+3)*2", "7.5", "99"),
			}},
		},
	}

	got := Aggregate(draft, Settings{})
	require.Len(t, got.Groups, 1)
	lines := got.Groups[0].Lines

	assert.True(t, lines[0].Rate.Equal(d("25")))
	assert.True(t, lines[0].Amount.Equal(d("50")))
	assert.True(t, lines[1].Rate.Equal(d("22")))
	assert.True(t, lines[1].Amount.Equal(d("33")))
	assert.True(t, lines[2].Quantity.Equal(d("10")))
	assert.True(t, lines[2].Amount.Equal(d("75")))

	assert.True(t, got.Groups[0].Subtotal.Equal(d("158")))
	assert.True(t, got.Tax.IsZero(), "standard quotes have no tax row")
	assert.True(t, got.GrandTotal.Equal(d("158")))
	assert.Equal(t, 0, got.Invalid)
}

func TestAggregate_AmountRoundedToCents(t *testing.T) {
	draft := Draft{Groups: []Group{{Mode: model.SelectAll, Lines: []Line{line("a", "0.7", "10.01", "0")}}}}

	got := Aggregate(draft, Settings{})
	assert.Equal(t, "7.01", got.Groups[0].Lines[0].Amount.StringFixed(2))
}

func TestAggregate_SelectionModes(t *testing.T) {
	sel := func(id, price string, selected bool) Line {
		l := line(id, "1", price, "0")
		l.Selected = selected
		return l
	}

	tests := []struct {
		name     string
		mode     model.SelectionMode
		lines    []Line
		want     string
		included []bool
	}{
		{
			name:     "all includes everything",
			mode:     model.SelectAll,
			lines:    []Line{sel("a", "10", false), sel("b", "20", true)},
			want:     "30",
			included: []bool{true, true},
		},
		{
			name:     "multi includes selected",
			mode:     model.SelectMulti,
			lines:    []Line{sel("a", "10", true), sel("b", "20", false), sel("c", "5", true)},
			want:     "15",
			included: []bool{true, false, true},
		},
		{
			name:     "single includes the first selected only",
			mode:     model.SelectSingle,
			lines:    []Line{sel("a", "10", true), sel("b", "20", true), sel("c", "40", true)},
			want:     "10",
			included: []bool{true, false, false},
		},
		{
			name:     "single skips leading unselected lines",
			mode:     model.SelectSingle,
			lines:    []Line{sel("a", "10", false), sel("b", "20", true), sel("c", "40", true)},
			want:     "20",
			included: []bool{false, true, false},
		},
		{
			name:     "single with nothing selected",
			mode:     model.SelectSingle,
			lines:    []Line{sel("a", "10", false)},
			want:     "0",
			included: []bool{false},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate(Draft{Groups: []Group{{Mode: tt.mode, Lines: tt.lines}}}, Settings{})
			g := got.Groups[0]
			assert.True(t, g.Subtotal.Equal(d(tt.want)), "subtotal %s", g.Subtotal)
			for i, lt := range g.Lines {
				assert.Equal(t, tt.included[i], lt.Included, lt.ID)
			}
			assert.Len(t, g.Lines, len(tt.lines), "excluded lines are still reported")
		})
	}
}

func TestAggregate_InvalidFieldsKeepPreviousValues(t *testing.T) {
	bad := line("bad", "2+", "$$5", "20")
	bad.Quantity = d("3")
	bad.ResolvedPrice = d("12.5")

	draft := Draft{Groups: []Group{{Mode: model.SelectAll, Lines: []Line{bad, line("ok", "1", "$", "20")}}}}
	got := Aggregate(draft, Settings{})
	lines := got.Groups[0].Lines

	assert.False(t, lines[0].QuantityValid)
	assert.False(t, lines[0].RateValid)
	assert.True(t, lines[0].Quantity.Equal(d("3")))
	assert.True(t, lines[0].Rate.Equal(d("12.5")))
	assert.True(t, lines[0].Amount.Equal(d("37.5")))
	assert.Equal(t, formula.ModeInvalid, lines[0].Formula.Mode)

	assert.True(t, lines[1].Amount.Equal(d("20")))
	assert.True(t, got.GrandTotal.Equal(d("57.5")))
	assert.Equal(t, 2, got.Invalid)
}

func TestAggregate_EmptyQuantityUsesPrevious(t *testing.T) {
	l := line("a", "  ", "10", "0")
	l.Quantity = d("4")

	got := Aggregate(Draft{Groups: []Group{{Mode: model.SelectAll, Lines: []Line{l}}}}, Settings{})
	lt := got.Groups[0].Lines[0]
	assert.True(t, lt.QuantityValid)
	assert.True(t, lt.Amount.Equal(d("40")))
}

func TestAggregate_Rounding(t *testing.T) {
	s := Settings{Rounding: formula.Rounding{Multiple: d("5"), Direction: formula.Up}}
	draft := Draft{Groups: []Group{{Mode: model.SelectAll, Lines: []Line{
		line("a", "1", "$+2", "20"),
		line("b", "1", "$", "21.237"),
	}}}}

	got := Aggregate(draft, s)
	assert.True(t, got.Groups[0].Lines[0].Rate.Equal(d("25")))
	assert.True(t, got.Groups[0].Lines[1].Rate.Equal(d("21.24")), "default lines carry the catalog price")
}

func TestAggregate_Insurance(t *testing.T) {
	withCosts := func(id, qty, material, labor string) Line {
		l := line(id, qty, "999", "999")
		if material != "" {
			l.MaterialCost = nd(material)
		}
		if labor != "" {
			l.LaborCost = nd(labor)
		}
		return l
	}

	a := withCosts("a", "2", "10", "5")
	b := withCosts("b", "1", "100", "")
	b.TaxRate = nd("5")
	c := withCosts("c", "3", "", "20")
	neg := withCosts("n", "1", "10", "0")
	neg.TaxRate = nd("-4")

	draft := Draft{
		Format:  model.FormatInsurance,
		TaxRate: d("8"),
		Groups:  []Group{{Mode: model.SelectAll, Lines: []Line{a, b, c, neg}}},
	}
	got := Aggregate(draft, Settings{})
	lines := got.Groups[0].Lines

	assert.True(t, lines[0].Rate.Equal(d("15")), "rate is material plus labor")
	assert.True(t, lines[0].Amount.Equal(d("30")))
	assert.True(t, lines[0].Tax.Equal(d("1.6")), "2 x 10 x 8 percent")
	assert.True(t, lines[0].Display.Equal(d("31.6")))

	assert.True(t, lines[1].Tax.Equal(d("5")), "line rate overrides quote rate")
	assert.True(t, lines[2].Tax.IsZero(), "no material cost, no tax")
	assert.True(t, lines[3].Tax.IsZero(), "negative rates floor at zero")

	assert.True(t, got.Subtotal.Equal(d("30").Add(d("100")).Add(d("60")).Add(d("10"))))
	assert.True(t, got.Tax.Equal(d("6.6")))
	assert.True(t, got.GrandTotal.Equal(d("206.6")))
	assert.True(t, got.Groups[0].Subtotal.Equal(d("200")), "group subtotal is pre-tax")
}

func TestIsDiscount(t *testing.T) {
	assert.True(t, IsDiscount(d("-5"), model.ItemStandard))
	assert.True(t, IsDiscount(d("5"), model.ItemDiscount))
	assert.False(t, IsDiscount(d("5"), model.ItemStandard))

	l := line("a", "1", "-10", "0")
	got := Aggregate(Draft{Groups: []Group{{Mode: model.SelectAll, Lines: []Line{l}}}}, Settings{})
	lt := got.Groups[0].Lines[0]
	assert.True(t, lt.Discount)
	assert.True(t, lt.Included, "discount tags do not change inclusion")
	assert.True(t, got.GrandTotal.Equal(d("-10")))
}

func TestComputeMargin(t *testing.T) {
	tests := []struct {
		name     string
		resolved string
		material decimal.NullDecimal
		labor    decimal.NullDecimal
		want     string
	}{
		{name: "both costs", resolved: "100", material: nd("40"), labor: nd("20"), want: "40.00%"},
		{name: "one cost", resolved: "80", material: nd("60"), want: "25.00%"},
		{name: "negative margin", resolved: "50", labor: nd("75"), want: "-50.00%"},
		{name: "no cost data", resolved: "100", want: NoData},
		{name: "zero resolved", resolved: "0", material: nd("10"), want: NoData},
		{name: "zero cost is data", resolved: "10", material: nd("0"), want: "100.00%"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeMargin(d(tt.resolved), tt.material, tt.labor).String())
		})
	}
}
