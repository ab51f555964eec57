// Package prefs persists table width and order preferences through a
// debounced, single-flight save queue.
package prefs

import (
	"maps"
	"slices"
	"strings"
)

// DefaultVariant is used when a context carries no variant.
const DefaultVariant = "default"

// Context identifies one preference record.
type Context struct {
	Screen  string `json:"screen" binding:"required"`
	Table   string `json:"table" binding:"required"`
	Variant string `json:"variant"`
}

// Normalized returns the context with every part passed through NormalizeKey.
func (c Context) Normalized() Context {
	v := NormalizeKey(c.Variant)
	if v == "" {
		v = DefaultVariant
	}
	return Context{
		Screen:  NormalizeKey(c.Screen),
		Table:   NormalizeKey(c.Table),
		Variant: v,
	}
}

// Key returns the composite storage key screen:table:variant.
func (c Context) Key() string {
	n := c.Normalized()
	return n.Screen + ":" + n.Table + ":" + n.Variant
}

// NormalizeKey lowercases s and drops every character outside [a-z0-9_-].
func NormalizeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Payload is the persisted state of one table.
type Payload struct {
	Widths map[string]int `json:"widths"`
	Order  []string       `json:"order"`
}

// Equal compares payloads structurally. A nil and an empty width map are
// equal, as are a nil and an empty order.
func (p Payload) Equal(o Payload) bool {
	return maps.Equal(p.Widths, o.Widths) && slices.Equal(p.Order, o.Order)
}

// Clone returns a deep copy of p.
func (p Payload) Clone() Payload {
	return Payload{
		Widths: maps.Clone(p.Widths),
		Order:  slices.Clone(p.Order),
	}
}

// Empty reports whether the payload carries nothing.
func (p Payload) Empty() bool {
	return len(p.Widths) == 0 && len(p.Order) == 0
}
