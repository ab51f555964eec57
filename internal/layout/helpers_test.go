package layout

import (
	"testing"

	"github.com/stretchr/testify/require"
)

var lineKeys = []string{"num", "title", "qty", "rate", "actions"}

func lineTableConfig() TableConfig {
	return TableConfig{
		Key:     "line-items",
		Filler:  "title",
		Reorder: true,
		Columns: map[string]ColumnConfig{
			"num":     {BasePx: 40, Locked: true},
			"title":   {MinPx: 100, Resizable: true, Orderable: true},
			"qty":     {MinPx: 60, Resizable: true, Orderable: true},
			"rate":    {MinPx: 80, Resizable: true, Orderable: true},
			"actions": {MinPx: 60, BasePx: 60, Locked: true},
		},
	}
}

func headersFor(keys ...string) []Header {
	out := make([]Header, len(keys))
	for i, k := range keys {
		out[i] = Header{Key: k, Label: k}
	}
	return out
}

func fullRow(id string, keys ...string) Row {
	r := Row{ID: id}
	for _, k := range keys {
		r.Cells = append(r.Cells, Cell{Key: k, Text: id + "-" + k})
	}
	return r
}

func cellKeys(r Row) []string {
	out := make([]string, len(r.Cells))
	for i, c := range r.Cells {
		out[i] = c.Key
	}
	return out
}

// newLineTable builds the standard line-item table laid out in a 1000 wide
// container: num 40, title 600, qty 60, rate 80, actions 60.
func newLineTable(t *testing.T, opts ...Option) *Table {
	t.Helper()
	rows := []Row{
		fullRow("r1", lineKeys...),
		fullRow("r2", lineKeys...),
		{ID: "note", Colspan: true, Cells: []Cell{{Key: "title", Text: "note"}}},
	}
	tbl, err := NewTable("lines", DefaultConfig(), lineTableConfig(), headersFor(lineKeys...), rows, opts...)
	require.NoError(t, err)
	tbl.SetContainer(Container{ClientWidth: 1000})
	require.Equal(t, 840, tbl.Normalize())
	return tbl
}

func widthOf(t *testing.T, tbl *Table, key string) int {
	t.Helper()
	c, ok := tbl.Column(key)
	require.True(t, ok, key)
	return c.Width
}
