// Package layout is the column layout engine for managed tables: width
// solving, divider placement, drag reorder and resize, all driven by an
// in-memory table model that renderers draw from.
package layout

// Config holds the layout constants shared by every managed table.
type Config struct {
	// MinWidthFloor is the smallest width any column may take.
	MinWidthFloor int
	// MaxWidthPercent, MaxWidthFloor and MaxWidthCap derive a column max when
	// the column config has none: clamp(container*percent, floor, cap).
	MaxWidthPercent float64
	MaxWidthFloor   int
	MaxWidthCap     int
	// SavedMinFactor and SavedMaxFactor bound the estimated total of saved
	// widths relative to the container width.
	SavedMinFactor float64
	SavedMaxFactor float64
	// Epsilon is the slack below which the filler column is left alone.
	Epsilon float64
	// DragThreshold is the pointer travel that turns an armed reorder into a drag.
	DragThreshold int
}

// DefaultConfig returns the layout constants used by the admin tables.
func DefaultConfig() Config {
	return Config{
		MinWidthFloor:   40,
		MaxWidthPercent: 0.6,
		MaxWidthFloor:   240,
		MaxWidthCap:     1200,
		SavedMinFactor:  0.6,
		SavedMaxFactor:  1.8,
		Epsilon:         0.5,
		DragThreshold:   5,
	}
}

// CellPx is the pixel width of one terminal cell.
const CellPx = 8

// Cells rescales the pixel lengths of c to cells of cellPx pixels, for
// tables drawn in a terminal. No length drops below one cell.
func (c Config) Cells(cellPx int) Config {
	if cellPx <= 1 {
		return c
	}
	scale := func(px int) int {
		return max(1, (px+cellPx/2)/cellPx)
	}
	out := c
	out.MinWidthFloor = scale(c.MinWidthFloor)
	out.MaxWidthFloor = scale(c.MaxWidthFloor)
	out.MaxWidthCap = scale(c.MaxWidthCap)
	out.DragThreshold = scale(c.DragThreshold)
	out.Epsilon = c.Epsilon / float64(cellPx)
	return out
}

// ColumnConfig holds per-column constraints. Zero MinPx/MaxPx/BasePx mean
// "unset"; Hidden is inverted so the zero value is a visible column.
type ColumnConfig struct {
	MinPx     int  `mapstructure:"min_px" json:"min_px"`
	MaxPx     int  `mapstructure:"max_px" json:"max_px"`
	BasePx    int  `mapstructure:"base_px" json:"base_px"`
	Resizable bool `mapstructure:"resizable" json:"resizable"`
	Orderable bool `mapstructure:"orderable" json:"orderable"`
	Locked    bool `mapstructure:"locked" json:"locked"`
	Hidden    bool `mapstructure:"hidden" json:"hidden"`
}

// Fixed reports whether the solver must leave the column at its seed width.
func (c ColumnConfig) Fixed() bool {
	return c.Locked || !c.Resizable
}

// TableConfig describes one managed table.
type TableConfig struct {
	Columns map[string]ColumnConfig `mapstructure:"columns" json:"columns"`
	Key     string                  `mapstructure:"key" json:"key"`
	// Filler is the column that absorbs positive slack.
	Filler  string `mapstructure:"filler" json:"filler"`
	Reorder bool   `mapstructure:"reorder" json:"reorder"`
}

// Container is the measured box a table lays out into.
type Container struct {
	ClientWidth  int
	PaddingLeft  int
	PaddingRight int
	Hidden       bool
}

// ContentWidth is the client width minus horizontal padding, or 0 when the
// container cannot be measured.
func (c Container) ContentWidth() int {
	if c.Hidden {
		return 0
	}
	w := c.ClientWidth - c.PaddingLeft - c.PaddingRight
	if w < 0 {
		return 0
	}
	return w
}
