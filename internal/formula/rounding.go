package formula

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Direction selects how a value snaps to the rounding multiple.
type Direction string

const (
	// Nearest rounds half up.
	Nearest Direction = "nearest"
	// Up rounds toward positive infinity.
	Up Direction = "up"
	// Down rounds toward negative infinity.
	Down Direction = "down"
)

// ParseDirection validates a rounding direction, defaulting to nearest.
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case "", Nearest:
		return Nearest, nil
	case Up:
		return Up, nil
	case Down:
		return Down, nil
	default:
		return "", fmt.Errorf("unknown rounding direction %q", s)
	}
}

// Rounding is the price rounding policy.
type Rounding struct {
	Multiple  decimal.Decimal
	Direction Direction
}

// Apply snaps value to the multiple in the configured direction, then
// rounds to cents. A multiple at or below epsilon only rounds to cents.
func (r Rounding) Apply(value decimal.Decimal) decimal.Decimal {
	if r.Multiple.LessThanOrEqual(epsilon) {
		return value.Round(2)
	}

	scaled := value.Div(r.Multiple)
	switch r.Direction {
	case Up:
		scaled = scaled.Ceil()
	case Down:
		scaled = scaled.Floor()
	default:
		scaled = scaled.Add(decimal.NewFromFloat(0.5)).Floor()
	}

	return scaled.Mul(r.Multiple).Round(2)
}
