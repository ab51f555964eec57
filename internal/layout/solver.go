package layout

import "math"

// Bounds returns the effective [min,max] of a column for a container width.
// A container width of 0 derives max from the hard cap.
func (cfg Config) Bounds(cc ColumnConfig, containerWidth int) (int, int) {
	lo := max(cc.MinPx, cfg.MinWidthFloor)

	hi := cc.MaxPx
	if hi <= 0 {
		if containerWidth <= 0 {
			hi = cfg.MaxWidthCap
		} else {
			derived := int(math.Floor(float64(containerWidth) * cfg.MaxWidthPercent))
			hi = min(max(derived, cfg.MaxWidthFloor), cfg.MaxWidthCap)
		}
	}

	return lo, max(hi, lo)
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

// seedWidth picks the starting width of a column: its runtime width, else
// its clamped base width, else its minimum. Fixed columns ignore runtime
// widths. Nothing here reads a live measurement.
func seedWidth(c *Column, lo, hi int) int {
	if c.Width > 0 && !c.Fixed() {
		return c.Width
	}
	if c.BasePx > 0 {
		return clamp(c.BasePx, lo, hi)
	}
	return lo
}

// Normalize assigns every visible column a width and returns the frame width.
// It returns 0 and assigns nothing when the container cannot be measured.
func (t *Table) Normalize() int {
	cw := t.container.ContentWidth()
	if cw <= 0 {
		return 0
	}
	t.applySavedWidths()

	visible := t.visibleColumns()
	widths := make([]int, len(visible))
	his := make([]int, len(visible))
	total := 0
	filler := -1

	for i, c := range visible {
		lo, hi := t.cfg.Bounds(c.ColumnConfig, cw)
		widths[i] = clamp(seedWidth(c, lo, hi), lo, hi)
		his[i] = hi
		total += widths[i]
		if c.Key == t.tcfg.Filler && !c.Fixed() {
			filler = i
		}
	}

	slack := cw - total
	if filler >= 0 && float64(slack) > t.cfg.Epsilon {
		grow := min(slack, his[filler]-widths[filler])
		if grow > 0 {
			widths[filler] += grow
			total += grow
		}
	}

	for i, c := range visible {
		c.Width = widths[i]
	}
	t.frameWidth = total
	t.render()

	return total
}

// SavedWidthsSane estimates the total width a saved set would produce for the
// visible columns (falling back to each column minimum) and reports whether it
// lies within the configured factors of the container width. Fixed columns
// count at their seed width whatever the set holds for them.
func (t *Table) SavedWidthsSane(saved map[string]int) bool {
	cw := t.container.ContentWidth()
	if cw <= 0 {
		return false
	}

	estimate := 0
	for _, c := range t.visibleColumns() {
		lo, hi := t.cfg.Bounds(c.ColumnConfig, cw)
		if c.Fixed() {
			estimate += seedWidth(c, lo, hi)
			continue
		}
		if w, ok := saved[c.Key]; ok && w > 0 {
			estimate += w
			continue
		}
		estimate += lo
	}

	lower := float64(cw) * t.cfg.SavedMinFactor
	upper := float64(cw) * t.cfg.SavedMaxFactor
	return float64(estimate) >= lower && float64(estimate) <= upper
}

// ResetWidths drops every runtime width so the next Normalize reseeds from config.
func (t *Table) ResetWidths() {
	for _, c := range t.columns {
		c.Width = 0
	}
}
