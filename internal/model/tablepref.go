package model

import "time"

// TablePreference is the stored width/order override for one table context.
type TablePreference struct {
	UpdatedAt  time.Time      `json:"updated_at"`
	Widths     map[string]int `json:"widths"`
	ContextKey string         `json:"context_key"`
	Order      []string       `json:"order"`
}
