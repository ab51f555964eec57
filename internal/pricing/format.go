package pricing

import (
	"github.com/Veraticus/quotewright/internal/model"
)

// SwitchFormat applies a format toggle to stored groups. Switching to
// insurance merges every group into the first one, forces selection mode
// all and hides the subtotal. Switching back to standard keeps the merged
// structure: the collapse is one-way.
func SwitchFormat(groups []model.QuoteGroup, to model.QuoteFormat) []model.QuoteGroup {
	if to != model.FormatInsurance || len(groups) == 0 {
		return groups
	}

	merged := groups[0]
	merged.Items = nil
	for _, g := range groups {
		merged.Items = append(merged.Items, g.Items...)
	}
	for i := range merged.Items {
		merged.Items[i].GroupID = merged.ID
		merged.Items[i].SortOrder = i
	}
	merged.SelectionMode = model.SelectAll
	merged.ShowSubtotal = false
	merged.SortOrder = 0

	return []model.QuoteGroup{merged}
}

// WithFormat returns the draft after a format toggle, collapsing its groups
// the same way SwitchFormat does.
func (d Draft) WithFormat(to model.QuoteFormat) Draft {
	d.Format = to
	if to != model.FormatInsurance || len(d.Groups) == 0 {
		return d
	}

	merged := d.Groups[0]
	merged.Lines = nil
	for _, g := range d.Groups {
		merged.Lines = append(merged.Lines, g.Lines...)
	}
	merged.Mode = model.SelectAll
	merged.ShowSubtotal = false

	d.Groups = []Group{merged}
	return d
}
