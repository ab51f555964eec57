package tui

import (
	"fmt"
	"strconv"

	"github.com/Veraticus/quotewright/internal/export"
	"github.com/Veraticus/quotewright/internal/layout"
	"github.com/Veraticus/quotewright/internal/model"
	"github.com/Veraticus/quotewright/internal/prefs"
)

// Preference context of the line item table.
const (
	Screen   = "quote-editor"
	TableKey = "line-items"
)

// numKey is the locked line number column. Exports ignore it.
const numKey = "num"

// DefaultTableConfig returns the line item table layout, in terminal cells.
func DefaultTableConfig() layout.TableConfig {
	data := func(minCells, baseCells int) layout.ColumnConfig {
		return layout.ColumnConfig{MinPx: minCells, BasePx: baseCells, Resizable: true, Orderable: true}
	}
	return layout.TableConfig{
		Key:     TableKey,
		Filler:  "title",
		Reorder: true,
		Columns: map[string]layout.ColumnConfig{
			numKey:     {BasePx: 4, Locked: true},
			"sku":      data(6, 9),
			"title":    data(12, 0),
			"quantity": data(5, 7),
			"unit":     data(4, 6),
			"material": data(8, 11),
			"labor":    data(8, 11),
			"rate":     data(8, 11),
			"tax":      data(8, 10),
			"amount":   data(8, 11),
			"margin":   data(7, 9),
		},
	}
}

// PrefsContext is where the line item table of a quote format saves.
func PrefsContext(format model.QuoteFormat) prefs.Context {
	return prefs.Context{Screen: Screen, Table: TableKey, Variant: string(format)}
}

// rowStyle picks how a body row is drawn.
type rowStyle int

const (
	styleLine rowStyle = iota
	styleExcluded
	styleGroup
	styleSubtotal
	styleTotal
	styleBlank
)

// lines is a quote laid out for the table model.
type lines struct {
	headers []layout.Header
	rows    []layout.Row
	styles  map[string]rowStyle
	right   map[string]bool
}

// buildLines renders a document through the export sheet so the editor
// shows the same cells as an exported file.
func buildLines(doc export.Document) lines {
	columns := export.Columns(doc.Quote.Format, nil)
	sheet := export.Build(doc, columns)

	out := lines{
		headers: []layout.Header{{Key: numKey, Label: "#"}},
		styles:  make(map[string]rowStyle),
		right:   map[string]bool{numKey: true, "quantity": true},
	}
	amountAt := 0
	for i, c := range columns {
		out.headers = append(out.headers, layout.Header{Key: c.Key, Label: c.Title})
		if c.Money {
			out.right[c.Key] = true
		}
		if c.Key == "amount" {
			amountAt = i
		}
	}

	gi, li, n := -1, 0, 0
	var group model.QuoteGroup
	for ri, r := range sheet.Rows {
		switch r.Kind {
		case export.RowTitle, export.RowHeader:
			continue
		case export.RowBlank:
			if ri < 3 {
				continue
			}
			out.add(layout.Row{ID: fmt.Sprintf("blank-%d", ri), Colspan: true}, styleBlank)
		case export.RowGroup:
			gi++
			li = 0
			group = doc.Groups[gi]
			out.add(layout.Row{
				ID:      "group-" + group.ID,
				Colspan: true,
				Cells:   []layout.Cell{{Text: group.Name}},
			}, styleGroup)
		case export.RowLine:
			it := group.Items[li]
			n++
			row := layout.Row{ID: "line-" + it.ID, Cells: []layout.Cell{{Key: numKey, Text: strconv.Itoa(n)}}}
			for ci, c := range columns {
				row.Cells = append(row.Cells, layout.Cell{Key: c.Key, Text: cellText(c, r.Cells[ci])})
			}
			style := styleLine
			if !included(doc, gi, li) {
				style = styleExcluded
			}
			out.add(row, style)
			li++
		case export.RowSubtotal, export.RowTotal:
			style, id := styleTotal, fmt.Sprintf("total-%d", ri)
			if r.Kind == export.RowSubtotal {
				style, id = styleSubtotal, "subtotal-"+group.ID
			}
			out.add(layout.Row{
				ID:      id,
				Colspan: true,
				Cells: []layout.Cell{
					{Key: "title", Text: fmt.Sprint(r.Cells[0])},
					{Key: "amount", Text: cellText(columns[amountAt], r.Cells[amountAt])},
				},
			}, style)
		}
	}
	return out
}

func (l *lines) add(r layout.Row, style rowStyle) {
	l.rows = append(l.rows, r)
	l.styles[r.ID] = style
}

func included(doc export.Document, gi, li int) bool {
	if gi >= len(doc.Totals.Groups) || li >= len(doc.Totals.Groups[gi].Lines) {
		return true
	}
	return doc.Totals.Groups[gi].Lines[li].Included
}

func cellText(c export.Column, v any) string {
	switch v := v.(type) {
	case string:
		return v
	case float64:
		if c.Money {
			return strconv.FormatFloat(v, 'f', 2, 64)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
