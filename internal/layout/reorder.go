package layout

import (
	"fmt"
	"slices"
)

// dragSession holds the state snapshotted when a reorder gesture arms, so
// the drop works from snapshots instead of re-reading the live model.
type dragSession struct {
	key        string
	startX     int
	startOrder []string
	index      map[string]int
	rowCells   map[*Row]map[string]Cell
	target     int
}

// BeginReorder arms a reorder gesture from a pointer-down on a header.
// Only a primary-button press on the header itself arms; presses on inputs,
// buttons, links or the resize handle return ErrNotArmed.
func (t *Table) BeginReorder(key string, target Target, button Button, x int) error {
	if !t.reorder {
		return ErrReorderDisabled
	}
	if t.state != StateIdle {
		return fmt.Errorf("%w: %s", ErrInteractionBusy, t.state)
	}
	if button != ButtonPrimary || target.interactive() {
		return ErrNotArmed
	}

	c, ok := t.Column(key)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownColumn, key)
	}
	if !movable(c) {
		return fmt.Errorf("%w: %s", ErrNotOrderable, key)
	}

	order := t.Order()
	s := &dragSession{
		key:        key,
		startX:     x,
		startOrder: order,
		index:      make(map[string]int, len(order)),
		rowCells:   make(map[*Row]map[string]Cell, len(t.rows)),
	}
	for i, k := range order {
		s.index[k] = i
	}
	s.target = s.index[key]

	for _, r := range t.rows {
		if !managedRow(r, len(order)) {
			continue
		}
		cells := make(map[string]Cell, len(r.Cells))
		for _, cell := range r.Cells {
			cells[cell.Key] = cell
		}
		if len(cells) == len(order) {
			s.rowCells[r] = cells
		}
	}

	t.drag = s
	t.state = StateReorderArmed
	t.render()
	return nil
}

func (t *Table) dragMove(x int) {
	s := t.drag
	if t.state == StateReorderArmed {
		dist := x - s.startX
		if dist < 0 {
			dist = -dist
		}
		if dist < t.cfg.DragThreshold {
			return
		}
		t.state = StateReordering
	}

	s.target = t.dropIndex(x)
	t.render()
}

func (t *Table) drop(x int) {
	s := t.drag
	s.target = t.dropIndex(x)
	next := moveKey(s.startOrder, s.key, s.target)

	t.drag = nil
	t.state = StateIdle

	if slices.Equal(next, s.startOrder) {
		t.render()
		return
	}

	t.applyColumnOrder(next)
	for _, r := range t.rows {
		cells, ok := s.rowCells[r]
		if !ok {
			// Added or replaced while the gesture was armed.
			t.reorderRow(r, next)
			continue
		}
		r.Cells = r.Cells[:0]
		for _, k := range next {
			r.Cells = append(r.Cells, cells[k])
		}
	}
	t.settle()
}

// DragTarget returns the column being dragged and its tentative index.
func (t *Table) DragTarget() (string, int, bool) {
	if t.drag == nil || t.state != StateReordering {
		return "", 0, false
	}
	return t.drag.key, t.drag.target, true
}

// dropIndex maps a pointer x (relative to the table's left edge) to the
// index of the column under it, pulled back onto a movable column.
func (t *Table) dropIndex(x int) int {
	s := t.drag
	order := s.startOrder

	target := -1
	offset := 0
	lastVisible := -1
	for i, k := range order {
		c, _ := t.Column(k)
		if !c.Visible() {
			continue
		}
		lastVisible = i
		if target < 0 && (x < offset+c.Width || x < offset) {
			target = i
		}
		offset += c.Width
	}
	if target < 0 {
		target = lastVisible
	}
	if target < 0 {
		return s.index[s.key]
	}

	from := s.index[s.key]
	for target != from {
		c, _ := t.Column(order[target])
		if movable(c) {
			break
		}
		if target > from {
			target--
		} else {
			target++
		}
	}
	return target
}

// MoveColumn moves a column to index to in one step.
func (t *Table) MoveColumn(key string, to int) error {
	if !t.reorder {
		return ErrReorderDisabled
	}
	if t.state != StateIdle {
		return fmt.Errorf("%w: %s", ErrInteractionBusy, t.state)
	}
	c, ok := t.Column(key)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownColumn, key)
	}
	if !movable(c) {
		return fmt.Errorf("%w: %s", ErrNotOrderable, key)
	}

	order := t.Order()
	to = clamp(to, 0, len(order)-1)
	if other, _ := t.Column(order[to]); !movable(other) {
		return fmt.Errorf("%w: %s", ErrNotOrderable, other.Key)
	}

	next := moveKey(order, key, to)
	if slices.Equal(next, order) {
		return nil
	}
	t.applyOrder(next)
	t.settle()
	return nil
}

// ApplyOrder reorders movable columns to follow keys. Unknown keys are
// ignored, locked and non-orderable columns keep their slots, and movable
// columns missing from keys keep their relative order after the listed ones.
func (t *Table) ApplyOrder(keys []string) {
	current := t.Order()

	var slots []int
	movableSet := make(map[string]bool)
	for i, k := range current {
		c, _ := t.Column(k)
		if movable(c) {
			slots = append(slots, i)
			movableSet[k] = true
		}
	}

	sequence := make([]string, 0, len(slots))
	used := make(map[string]bool)
	for _, k := range keys {
		if movableSet[k] && !used[k] {
			sequence = append(sequence, k)
			used[k] = true
		}
	}
	for _, k := range current {
		if movableSet[k] && !used[k] {
			sequence = append(sequence, k)
			used[k] = true
		}
	}

	next := slices.Clone(current)
	for i, slot := range slots {
		next[slot] = sequence[i]
	}
	if !slices.Equal(next, current) {
		t.applyOrder(next)
	}
}

func (t *Table) applyOrder(next []string) {
	t.applyColumnOrder(next)
	for _, r := range t.rows {
		t.reorderRow(r, next)
	}
	t.render()
}

func (t *Table) applyColumnOrder(next []string) {
	byKey := make(map[string]*Column, len(t.columns))
	for _, c := range t.columns {
		byKey[c.Key] = c
	}
	cols := make([]*Column, 0, len(next))
	for _, k := range next {
		cols = append(cols, byKey[k])
	}
	t.columns = cols
}

// reorderRow re-sorts a row's cells by key. Disabled, colspan and partial
// rows are left untouched.
func (t *Table) reorderRow(r *Row, order []string) {
	if !managedRow(r, len(order)) {
		return
	}
	cells := make(map[string]Cell, len(r.Cells))
	for _, c := range r.Cells {
		cells[c.Key] = c
	}
	for _, k := range order {
		if _, ok := cells[k]; !ok {
			return
		}
	}
	r.Cells = r.Cells[:0]
	for _, k := range order {
		r.Cells = append(r.Cells, cells[k])
	}
}

func managedRow(r *Row, keys int) bool {
	return !r.Disabled && !r.Colspan && len(r.Cells) == keys
}

func movable(c *Column) bool {
	return c.Orderable && !c.Locked
}

func moveKey(order []string, key string, to int) []string {
	next := make([]string, 0, len(order))
	for _, k := range order {
		if k != key {
			next = append(next, k)
		}
	}
	to = clamp(to, 0, len(next))
	next = slices.Insert(next, to, key)
	return next
}
