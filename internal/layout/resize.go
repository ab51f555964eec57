package layout

import "fmt"

type resizeSession struct {
	key        string
	startX     int
	startWidth int
	lo         int
	hi         int
}

// StartResize arms a resize gesture on the trailing edge of a column.
// Reorder is unavailable until the gesture ends.
func (t *Table) StartResize(key string, x int) error {
	if t.state != StateIdle {
		return fmt.Errorf("%w: %s", ErrInteractionBusy, t.state)
	}

	c, ok := t.Column(key)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownColumn, key)
	}
	if !SyncDividers(t.columnStates()).ResizeEdge[key] {
		return fmt.Errorf("%w: %s", ErrNotResizable, key)
	}

	lo, hi := t.cfg.Bounds(c.ColumnConfig, t.container.ContentWidth())
	width := c.Width
	if width <= 0 {
		width = seedWidth(c, lo, hi)
	}

	t.resize = &resizeSession{
		key:        key,
		startX:     x,
		startWidth: clamp(width, lo, hi),
		lo:         lo,
		hi:         hi,
	}
	t.state = StateResizeArmed
	t.render()
	return nil
}

// resizeMove updates only the resized column and the frame width; sibling
// columns keep their widths.
func (t *Table) resizeMove(x int) {
	s := t.resize
	c, ok := t.Column(s.key)
	if !ok {
		return
	}

	raw := s.startWidth + (x - s.startX)
	width := clamp(raw, s.lo, s.hi)

	switch {
	case raw <= s.lo:
		c.Bound = BoundMin
	case raw >= s.hi:
		c.Bound = BoundMax
	default:
		c.Bound = BoundNone
	}

	c.Width = width
	t.frameWidth = t.sumVisibleWidths()
	t.state = StateResizing
	t.render()
}

func (t *Table) endResize() {
	if c, ok := t.Column(t.resize.key); ok {
		c.Bound = BoundNone
	}
	t.resize = nil
	t.state = StateIdle
	t.settle()
}

// ResizeBy changes a column width by delta in one step, as a pointer
// press, move and release would.
func (t *Table) ResizeBy(key string, delta int) error {
	if err := t.StartResize(key, 0); err != nil {
		return err
	}
	t.PointerMove(delta)
	t.PointerUp(delta)
	return nil
}

func (t *Table) sumVisibleWidths() int {
	total := 0
	for _, c := range t.visibleColumns() {
		total += c.Width
	}
	return total
}
