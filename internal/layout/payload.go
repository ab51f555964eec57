package layout

import (
	"github.com/Veraticus/quotewright/internal/prefs"
)

// SafePayload builds the preference payload for the current state. Widths
// cover only visible, unlocked, resizable columns whose width lies inside
// their bounds; out-of-bounds columns are omitted individually.
func (t *Table) SafePayload() prefs.Payload {
	cw := t.container.ContentWidth()
	p := prefs.Payload{Widths: make(map[string]int)}

	seen := make(map[string]bool, len(t.columns))
	for _, c := range t.columns {
		if seen[c.Key] {
			continue
		}
		seen[c.Key] = true
		p.Order = append(p.Order, c.Key)

		if !c.Visible() || c.Fixed() || c.Width <= 0 {
			continue
		}
		lo, hi := t.cfg.Bounds(c.ColumnConfig, cw)
		if c.Width < lo || c.Width > hi {
			continue
		}
		p.Widths[c.Key] = c.Width
	}
	return p
}

// ApplyPreference restores a saved payload. The order applies at once; the
// widths wait for the next Normalize that can measure the container, where
// the whole set is dropped if it fails the sanity check.
func (t *Table) ApplyPreference(p prefs.Payload) {
	if t.reorder && len(p.Order) > 0 {
		t.ApplyOrder(p.Order)
	}
	if len(p.Widths) > 0 {
		t.saved = make(map[string]int, len(p.Widths))
		for k, w := range p.Widths {
			t.saved[k] = w
		}
	}
}

// applySavedWidths consumes pending saved widths. The container must be
// measurable.
func (t *Table) applySavedWidths() {
	saved := t.saved
	if saved == nil {
		return
	}
	t.saved = nil

	if !t.SavedWidthsSane(saved) {
		t.logger.Debug("Discarding saved column widths", "table", t.id)
		t.ResetWidths()
		return
	}
	for _, c := range t.columns {
		if c.Fixed() {
			continue
		}
		if w, ok := saved[c.Key]; ok && w > 0 {
			c.Width = w
		}
	}
}
