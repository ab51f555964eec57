// Package export renders quotes to spreadsheets: local xlsx files and
// Google Sheets.
package export

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/quotewright/internal/model"
	"github.com/Veraticus/quotewright/internal/pricing"
)

// Column is one exported column.
type Column struct {
	Key   string
	Title string
	// Money columns get a currency format.
	Money bool
}

var (
	standardColumns = []Column{
		{Key: "sku", Title: "SKU"},
		{Key: "title", Title: "Item"},
		{Key: "quantity", Title: "Qty"},
		{Key: "unit", Title: "Unit"},
		{Key: "rate", Title: "Rate", Money: true},
		{Key: "amount", Title: "Amount", Money: true},
		{Key: "margin", Title: "Margin"},
	}
	insuranceColumns = []Column{
		{Key: "sku", Title: "SKU"},
		{Key: "title", Title: "Item"},
		{Key: "quantity", Title: "Qty"},
		{Key: "unit", Title: "Unit"},
		{Key: "material", Title: "Material", Money: true},
		{Key: "labor", Title: "Labor", Money: true},
		{Key: "rate", Title: "Rate", Money: true},
		{Key: "tax", Title: "Tax", Money: true},
		{Key: "amount", Title: "Amount", Money: true},
	}
)

// Columns returns the columns of a format, ordered by order. Keys missing
// from order keep their default relative position after the ordered ones;
// unknown keys are ignored.
func Columns(format model.QuoteFormat, order []string) []Column {
	base := standardColumns
	if format == model.FormatInsurance {
		base = insuranceColumns
	}
	if len(order) == 0 {
		return slices.Clone(base)
	}

	out := make([]Column, 0, len(base))
	used := make(map[string]bool, len(base))
	for _, key := range order {
		i := slices.IndexFunc(base, func(c Column) bool { return c.Key == key })
		if i < 0 || used[key] {
			continue
		}
		used[key] = true
		out = append(out, base[i])
	}
	for _, c := range base {
		if !used[c.Key] {
			out = append(out, c)
		}
	}
	return out
}

// RowKind tags a sheet row for formatting.
type RowKind int

// Row kinds.
const (
	RowTitle RowKind = iota
	RowHeader
	RowGroup
	RowLine
	RowSubtotal
	RowTotal
	RowBlank
)

// Row is one rendered row.
type Row struct {
	Cells []any
	Kind  RowKind
}

// Sheet is a quote rendered as rows of cells. Money cells are float64.
type Sheet struct {
	Title   string
	Columns []Column
	Rows    []Row
}

// Document is everything an export needs about one quote.
type Document struct {
	Quote  *model.Quote
	Groups []model.QuoteGroup
	Totals pricing.QuoteTotals
}

// Build renders a document. Lines excluded by their group's selection mode
// are listed without an amount.
func Build(doc Document, columns []Column) Sheet {
	s := Sheet{Title: doc.Quote.Title, Columns: columns}
	if s.Title == "" {
		s.Title = "Quote"
	}
	width := len(columns)

	s.Rows = append(s.Rows,
		Row{Kind: RowTitle, Cells: []any{s.Title}},
		Row{Kind: RowBlank},
		Row{Kind: RowHeader, Cells: headerCells(columns)},
	)

	for gi, g := range doc.Groups {
		var gt pricing.GroupTotals
		if gi < len(doc.Totals.Groups) {
			gt = doc.Totals.Groups[gi]
		}
		s.Rows = append(s.Rows, Row{Kind: RowGroup, Cells: []any{g.Name}})

		for li, it := range g.Items {
			var lt pricing.LineTotals
			if li < len(gt.Lines) {
				lt = gt.Lines[li]
			}
			cells := make([]any, width)
			for ci, c := range columns {
				cells[ci] = lineCell(c.Key, it, lt)
			}
			s.Rows = append(s.Rows, Row{Kind: RowLine, Cells: cells})
		}

		if g.ShowSubtotal {
			s.Rows = append(s.Rows, labelled(columns, g.Name+" subtotal", gt.Subtotal, RowSubtotal))
		}
	}

	s.Rows = append(s.Rows, Row{Kind: RowBlank},
		labelled(columns, "Subtotal", doc.Totals.Subtotal, RowTotal))
	if doc.Totals.Format == model.FormatInsurance {
		s.Rows = append(s.Rows, labelled(columns, "Tax", doc.Totals.Tax, RowTotal))
	}
	s.Rows = append(s.Rows, labelled(columns, "Grand total", doc.Totals.GrandTotal, RowTotal))
	return s
}

func headerCells(columns []Column) []any {
	cells := make([]any, len(columns))
	for i, c := range columns {
		cells[i] = c.Title
	}
	return cells
}

// labelled puts the label in the first column and the amount in the
// amount column, or the last column when amount is hidden.
func labelled(columns []Column, label string, amount decimal.Decimal, kind RowKind) Row {
	cells := make([]any, len(columns))
	for i := range cells {
		cells[i] = ""
	}
	at := slices.IndexFunc(columns, func(c Column) bool { return c.Key == "amount" })
	if at < 0 {
		at = len(columns) - 1
	}
	cells[0] = label
	if at == 0 && len(columns) > 1 {
		cells[1] = label
	}
	cells[at] = money(amount)
	return Row{Kind: kind, Cells: cells}
}

func lineCell(key string, it model.LineItem, lt pricing.LineTotals) any {
	switch key {
	case "sku":
		return it.LineSKU
	case "title":
		return it.Title
	case "quantity":
		return it.Quantity.InexactFloat64()
	case "unit":
		return it.UnitType
	case "material":
		return nullMoney(it.MaterialCost)
	case "labor":
		return nullMoney(it.LaborCost)
	case "rate":
		return money(lt.Rate)
	case "tax":
		if !lt.Included {
			return ""
		}
		return money(lt.Tax)
	case "amount":
		if !lt.Included {
			return ""
		}
		return money(lt.Amount)
	case "margin":
		return lt.Margin.String()
	}
	return ""
}

func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func nullMoney(d decimal.NullDecimal) any {
	if !d.Valid {
		return ""
	}
	return money(d.Decimal)
}
