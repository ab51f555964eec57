// Package formula parses rate formulas and resolves them against catalog prices.
//
// A formula is one of:
//
//	""  or "$"     default     catalog price
//	"$+5" "$-5"    addition    catalog price plus a signed amount
//	"$*1.1"        percentage  catalog price times a factor
//	"7.5"          override    a fixed price
//	"2*(3+4)"      override    an arithmetic expression, evaluated once
package formula

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Veraticus/quotewright/internal/model"
	"github.com/shopspring/decimal"
)

// ModeInvalid marks a formula that could not be parsed.
const ModeInvalid model.PriceMode = "invalid"

// epsilon below which a rounding multiple counts as disabled.
var epsilon = decimal.New(1, -6)

var (
	reAddition   = regexp.MustCompile(`^\$\s*([+-])\s*(\d+(?:\.\d*)?|\.\d+)$`)
	rePercentage = regexp.MustCompile(`^\$\s*\*\s*([+-]?(?:\d+(?:\.\d*)?|\.\d+))$`)
	reOverride   = regexp.MustCompile(`^[+-]?(?:\d+(?:\.\d*)?|\.\d+)$`)
)

// Formula is the parsed form of a rate-formula string.
type Formula struct {
	Modifier decimal.Decimal
	Mode     model.PriceMode
	// Display is the text the editor should show for this formula.
	Display string
}

// Valid reports whether the formula parsed into a pricing mode.
func (f Formula) Valid() bool {
	return f.Mode != ModeInvalid
}

// String renders the formula back into editor text.
func (f Formula) String() string {
	return Format(f.Mode, f.Modifier)
}

// Format renders a stored mode/modifier pair as formula text.
func Format(mode model.PriceMode, modifier decimal.Decimal) string {
	switch mode {
	case model.PriceAddition:
		if modifier.IsNegative() {
			return "$-" + modifier.Abs().String()
		}
		return "$+" + modifier.String()
	case model.PricePercentage:
		return "$*" + modifier.String()
	case model.PriceOverride:
		return modifier.String()
	default:
		return "$"
	}
}

// Parse classifies a formula string. It never fails; unparseable input
// yields a formula whose Mode is ModeInvalid.
func Parse(input string) Formula {
	s := strings.TrimSpace(input)

	if s == "" || s == "$" {
		return Formula{Mode: model.PriceDefault, Modifier: decimal.Zero, Display: s}
	}

	if m := reAddition.FindStringSubmatch(s); m != nil {
		v, err := parseDecimal(m[2])
		if err == nil {
			if m[1] == "-" {
				v = v.Neg()
			}
			return Formula{Mode: model.PriceAddition, Modifier: v, Display: s}
		}
	}

	if m := rePercentage.FindStringSubmatch(s); m != nil {
		if v, err := parseDecimal(m[1]); err == nil {
			return Formula{Mode: model.PricePercentage, Modifier: v, Display: s}
		}
	}

	if reOverride.MatchString(s) {
		if v, err := parseDecimal(s); err == nil {
			return Formula{Mode: model.PriceOverride, Modifier: v, Display: s}
		}
	}

	if v, err := Evaluate(s); err == nil {
		return Formula{Mode: model.PriceOverride, Modifier: v, Display: v.String()}
	}

	return Formula{Mode: ModeInvalid, Display: s}
}

func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimPrefix(s, "+")
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	s = strings.TrimSuffix(s, ".")

	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse %q: %w", s, err)
	}
	if neg {
		v = v.Neg()
	}
	return v, nil
}

// Resolve applies a parsed formula to a base price. The second return is
// false for invalid formulas, in which case the price is zero.
func Resolve(f Formula, base decimal.Decimal, r Rounding) (decimal.Decimal, bool) {
	if !f.Valid() {
		return decimal.Zero, false
	}
	return ResolveMode(f.Mode, f.Modifier, base, r), true
}

// ResolveMode computes the resolved price for a stored mode and modifier.
// Default lines carry the catalog price to the cent; every other mode is
// rounded to the configured multiple.
func ResolveMode(mode model.PriceMode, modifier, base decimal.Decimal, r Rounding) decimal.Decimal {
	switch mode {
	case model.PriceAddition:
		return r.Apply(base.Add(modifier))
	case model.PricePercentage:
		return r.Apply(base.Mul(modifier))
	case model.PriceOverride:
		return r.Apply(modifier)
	default:
		return base.Round(2)
	}
}

// ResolveOrKeep parses and resolves formula text. When the text is invalid
// the previous price is returned unchanged together with false.
func ResolveOrKeep(input string, base, previous decimal.Decimal, r Rounding) (decimal.Decimal, Formula, bool) {
	f := Parse(input)
	price, ok := Resolve(f, base, r)
	if !ok {
		return previous, f, false
	}
	return price, f, true
}
