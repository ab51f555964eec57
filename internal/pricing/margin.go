package pricing

import "github.com/shopspring/decimal"

// NoData is how a margin without cost data is shown.
const NoData = "no data"

// Margin is a line's margin percentage. HasData is false when the resolved
// price is zero or both cost fields are blank.
type Margin struct {
	Percent decimal.Decimal
	HasData bool
}

// String renders the margin as "12.50%" or NoData.
func (m Margin) String() string {
	if !m.HasData {
		return NoData
	}
	return m.Percent.StringFixed(2) + "%"
}

// ComputeMargin returns (resolved - (material+labor)) / resolved * 100.
func ComputeMargin(resolved decimal.Decimal, material, labor decimal.NullDecimal) Margin {
	if resolved.IsZero() || (!material.Valid && !labor.Valid) {
		return Margin{}
	}
	cost := decimal.Zero
	if material.Valid {
		cost = cost.Add(material.Decimal)
	}
	if labor.Valid {
		cost = cost.Add(labor.Decimal)
	}
	pct := resolved.Sub(cost).Div(resolved).Mul(hundred).Round(2)
	return Margin{Percent: pct, HasData: true}
}
