package layout

// ColumnState is the structural input to divider placement.
type ColumnState struct {
	Key       string
	Locked    bool
	Visible   bool
	Resizable bool
}

// DividerState says where header dividers and resize edges go. Indexes are
// positions in the full column list; -1 means none.
type DividerState struct {
	DividerBefore   map[string]bool
	ResizeEdge      map[string]bool
	LastVisibleKey  string
	FirstVisible    int
	LastVisible     int
	LastDataVisible int
}

// SyncDividers derives divider placement from locked/visible/resizable flags
// and position alone.
//
// A divider shows on a boundary between consecutive visible columns when the
// left column is locked and the right one is not, or when the left column has
// a resize edge. Nothing shows before the first column, between two locked
// columns, or after the last data column.
func SyncDividers(cols []ColumnState) DividerState {
	ds := DividerState{
		DividerBefore:   make(map[string]bool),
		ResizeEdge:      make(map[string]bool),
		FirstVisible:    -1,
		LastVisible:     -1,
		LastDataVisible: -1,
	}

	for i, c := range cols {
		if !c.Visible {
			continue
		}
		if ds.FirstVisible < 0 {
			ds.FirstVisible = i
		}
		ds.LastVisible = i
		ds.LastVisibleKey = c.Key
		if !c.Locked {
			ds.LastDataVisible = i
		}
	}

	for i, c := range cols {
		ds.ResizeEdge[c.Key] = c.Visible && !c.Locked && c.Resizable && i < ds.LastDataVisible
	}

	prev := -1
	for i, c := range cols {
		if !c.Visible {
			continue
		}
		ds.DividerBefore[c.Key] = false
		if prev >= 0 {
			ds.DividerBefore[c.Key] = showDivider(cols, prev, i, ds)
		}
		prev = i
	}

	return ds
}

func showDivider(cols []ColumnState, left, right int, ds DividerState) bool {
	l, r := cols[left], cols[right]

	if l.Locked && r.Locked {
		return false
	}
	if left >= ds.LastDataVisible {
		return false
	}
	if l.Locked && !r.Locked {
		return true
	}
	return ds.ResizeEdge[l.Key]
}
