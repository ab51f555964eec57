package formula

import (
	"testing"

	"github.com/Veraticus/quotewright/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		mode     model.PriceMode
		modifier string
		display  string
	}{
		{name: "empty", input: "", mode: model.PriceDefault, modifier: "0"},
		{name: "dollar", input: "$", mode: model.PriceDefault, modifier: "0", display: "$"},
		{name: "padded dollar", input: "  $ ", mode: model.PriceDefault, modifier: "0", display: "$"},
		{name: "addition", input: "$+5", mode: model.PriceAddition, modifier: "5", display: "$+5"},
		{name: "subtraction", input: "$-5", mode: model.PriceAddition, modifier: "-5", display: "$-5"},
		{name: "addition with spaces", input: "$ + 2.25", mode: model.PriceAddition, modifier: "2.25", display: "$ + 2.25"},
		{name: "percentage", input: "$*1.1", mode: model.PricePercentage, modifier: "1.1", display: "$*1.1"},
		{name: "percentage signed", input: "$ * -0.5", mode: model.PricePercentage, modifier: "-0.5", display: "$ * -0.5"},
		{name: "override", input: "7.5", mode: model.PriceOverride, modifier: "7.5", display: "7.5"},
		{name: "negative override", input: "-12", mode: model.PriceOverride, modifier: "-12", display: "-12"},
		{name: "leading dot", input: ".75", mode: model.PriceOverride, modifier: "0.75", display: ".75"},
		{name: "expression", input: "2 * (3 + 4)", mode: model.PriceOverride, modifier: "14", display: "14"},
		{name: "expression fraction", input: "10/4", mode: model.PriceOverride, modifier: "2.5", display: "2.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Parse(tt.input)
			require.True(t, f.Valid())
			assert.Equal(t, tt.mode, f.Mode)
			assert.True(t, d(tt.modifier).Equal(f.Modifier), "modifier %s", f.Modifier)
			assert.Equal(t, tt.display, f.Display)
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	inputs := []string{
		"$5",
		"abc",
		"$+",
		"$*",
		"$+-5",
		"1+1;alert(1)",
		"(1+2",
		"1/0",
		"5$",
		"$ + 1.2.3",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			f := Parse(input)
			assert.False(t, f.Valid())
			assert.Equal(t, ModeInvalid, f.Mode)
		})
	}
}

func TestParse_IsTotal(t *testing.T) {
	valid := map[model.PriceMode]bool{
		model.PriceDefault:    true,
		model.PriceAddition:   true,
		model.PricePercentage: true,
		model.PriceOverride:   true,
		ModeInvalid:           true,
	}

	inputs := []string{"", " ", "$", "$$", "*", "+", "-", "()", "$*()", "\x00", "१२", "9999999999999999999999.99", "$+.5", "1e5"}
	for _, input := range inputs {
		assert.NotPanics(t, func() {
			f := Parse(input)
			assert.True(t, valid[f.Mode], "mode %q for %q", f.Mode, input)
		})
	}
}

func TestResolve(t *testing.T) {
	cents := Rounding{}
	base := d("20")

	tests := []struct {
		formula string
		want    string
	}{
		{"$+5", "25.00"},
		{"$-5", "15.00"},
		{"$*1.1", "22.00"},
		{"7.5", "7.50"},
		{"$", "20.00"},
	}

	for _, tt := range tests {
		t.Run(tt.formula, func(t *testing.T) {
			got, ok := Resolve(Parse(tt.formula), base, cents)
			require.True(t, ok)
			assert.Equal(t, tt.want, got.StringFixed(2))
		})
	}

	t.Run("override ignores base", func(t *testing.T) {
		for _, b := range []string{"0", "13.37", "-4"} {
			got, ok := Resolve(Parse("7.5"), d(b), cents)
			require.True(t, ok)
			assert.Equal(t, "7.50", got.StringFixed(2))
		}
	})

	t.Run("invalid reports failure", func(t *testing.T) {
		_, ok := Resolve(Parse("nope"), base, cents)
		assert.False(t, ok)
	})
}

func TestResolve_DefaultKeepsBaseToTheCent(t *testing.T) {
	wholeDollars := Rounding{Multiple: d("1"), Direction: Nearest}

	for _, b := range []string{"19.99", "0.005", "120", "7.1249"} {
		got, ok := Resolve(Parse(""), d(b), wholeDollars)
		require.True(t, ok)
		assert.True(t, d(b).Round(2).Equal(got), "base %s resolved to %s", b, got)
	}
}

func TestRounding_Apply(t *testing.T) {
	five := d("5")

	tests := []struct {
		name      string
		value     string
		multiple  decimal.Decimal
		direction Direction
		want      string
	}{
		{name: "up", value: "22", multiple: five, direction: Up, want: "25.00"},
		{name: "down", value: "22", multiple: five, direction: Down, want: "20.00"},
		{name: "nearest below half", value: "22", multiple: five, direction: Nearest, want: "20.00"},
		{name: "nearest above half", value: "23", multiple: five, direction: Nearest, want: "25.00"},
		{name: "nearest exact half rounds up", value: "22.5", multiple: five, direction: Nearest, want: "25.00"},
		{name: "quarter multiple", value: "10.10", multiple: d("0.25"), direction: Up, want: "10.25"},
		{name: "disabled multiple", value: "10.126", multiple: decimal.Zero, direction: Up, want: "10.13"},
		{name: "tiny multiple", value: "10.126", multiple: d("0.0000001"), direction: Down, want: "10.13"},
		{name: "negative up", value: "-22", multiple: five, direction: Up, want: "-20.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Rounding{Multiple: tt.multiple, Direction: tt.direction}
			assert.Equal(t, tt.want, r.Apply(d(tt.value)).StringFixed(2))
		})
	}
}

func TestResolveOrKeep(t *testing.T) {
	previous := d("42.00")

	price, f, ok := ResolveOrKeep("$*bad", d("10"), previous, Rounding{})
	assert.False(t, ok)
	assert.False(t, f.Valid())
	assert.True(t, previous.Equal(price))

	price, _, ok = ResolveOrKeep("$+1", d("10"), previous, Rounding{})
	assert.True(t, ok)
	assert.Equal(t, "11.00", price.StringFixed(2))
}

func TestFormat_RoundTrip(t *testing.T) {
	for _, input := range []string{"$", "$+5", "$-2.5", "$*1.1", "7.5"} {
		f := Parse(input)
		again := Parse(f.String())
		assert.Equal(t, f.Mode, again.Mode, input)
		assert.True(t, f.Modifier.Equal(again.Modifier), input)
	}
}

func TestParseDirection(t *testing.T) {
	dir, err := ParseDirection("UP")
	require.NoError(t, err)
	assert.Equal(t, Up, dir)

	dir, err = ParseDirection("")
	require.NoError(t, err)
	assert.Equal(t, Nearest, dir)

	_, err = ParseDirection("sideways")
	assert.Error(t, err)
}
