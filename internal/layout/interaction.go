package layout

import "errors"

// InteractionState is the per-table gesture state. Reorder and resize
// gestures exclude each other: both start only from StateIdle.
type InteractionState int

const (
	StateIdle InteractionState = iota
	StateReorderArmed
	StateReordering
	StateResizeArmed
	StateResizing
)

func (s InteractionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReorderArmed:
		return "reorder-armed"
	case StateReordering:
		return "reordering"
	case StateResizeArmed:
		return "resize-armed"
	case StateResizing:
		return "resizing"
	default:
		return "unknown"
	}
}

func (s InteractionState) resizing() bool {
	return s == StateResizeArmed || s == StateResizing
}

// Interaction errors.
var (
	ErrInteractionBusy = errors.New("another gesture is active")
	ErrNotOrderable    = errors.New("column is not orderable")
	ErrNotResizable    = errors.New("column has no resize edge")
	ErrReorderDisabled = errors.New("reorder disabled for table")
	ErrNotArmed        = errors.New("gesture not armed")
)

// BoundHit tags which width bound a live resize ran into.
type BoundHit int

const (
	BoundNone BoundHit = iota
	BoundMin
	BoundMax
)

func (b BoundHit) String() string {
	switch b {
	case BoundMin:
		return "min"
	case BoundMax:
		return "max"
	default:
		return ""
	}
}

// Button identifies a pointer button; ButtonPrimary is the left button.
type Button int

const (
	ButtonPrimary Button = iota
	ButtonMiddle
	ButtonSecondary
)

// Target is the element a pointer-down landed on inside a header cell.
type Target int

const (
	TargetHeader Target = iota
	TargetInput
	TargetButton
	TargetLink
	TargetResizeHandle
)

func (t Target) interactive() bool {
	return t != TargetHeader
}

// PointerUp ends whichever gesture is active. Releasing with nothing
// active is a no-op.
func (t *Table) PointerUp(x int) {
	switch t.state {
	case StateReorderArmed:
		t.drag = nil
		t.state = StateIdle
		t.render()
	case StateReordering:
		t.drop(x)
	case StateResizeArmed, StateResizing:
		t.endResize()
	}
}

// PointerMove advances whichever gesture is active.
func (t *Table) PointerMove(x int) {
	switch t.state {
	case StateReorderArmed, StateReordering:
		t.dragMove(x)
	case StateResizeArmed, StateResizing:
		t.resizeMove(x)
	}
}
