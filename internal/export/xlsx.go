package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	maxSheetName = 31
	currencyFmt  = "$#,##0.00"
)

// XLSXOptions tunes the workbook. Widths are column widths in characters
// keyed by column key; columns without one get a default.
type XLSXOptions struct {
	Widths map[string]int
}

type xlsxStyles struct {
	title, header, group, money, total int
}

// WriteXLSX writes the sheet as a single-sheet workbook.
func WriteXLSX(w io.Writer, s Sheet, opts XLSXOptions) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	name := sheetName(s.Title)
	if err := f.SetSheetName("Sheet1", name); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	styles, err := newXLSXStyles(f)
	if err != nil {
		return err
	}

	for i, row := range s.Rows {
		if len(row.Cells) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		cells := row.Cells
		if err := f.SetSheetRow(name, cell, &cells); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
		if err := styleRow(f, name, s, i, styles); err != nil {
			return err
		}
	}

	for i, c := range s.Columns {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		width := float64(max(len(c.Title)+2, 12))
		if w, ok := opts.Widths[c.Key]; ok && w > 0 {
			width = float64(w)
		}
		if err := f.SetColWidth(name, col, col, width); err != nil {
			return fmt.Errorf("failed to size column %s: %w", c.Key, err)
		}
	}

	if err := f.SetPanes(name, &excelize.Panes{
		Freeze:      true,
		YSplit:      3,
		TopLeftCell: "A4",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func newXLSXStyles(f *excelize.File) (xlsxStyles, error) {
	currency := currencyFmt
	var st xlsxStyles
	defs := []struct {
		dst   *int
		style *excelize.Style
	}{
		{&st.title, &excelize.Style{Font: &excelize.Font{Bold: true, Size: 16}}},
		{&st.header, &excelize.Style{
			Font:   &excelize.Font{Bold: true},
			Fill:   excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDE4EE"}},
			Border: []excelize.Border{{Type: "bottom", Color: "555555", Style: 1}},
		}},
		{&st.group, &excelize.Style{Font: &excelize.Font{Bold: true, Italic: true}}},
		{&st.money, &excelize.Style{CustomNumFmt: &currency}},
		{&st.total, &excelize.Style{Font: &excelize.Font{Bold: true}, CustomNumFmt: &currency}},
	}
	for _, d := range defs {
		id, err := f.NewStyle(d.style)
		if err != nil {
			return xlsxStyles{}, fmt.Errorf("failed to create style: %w", err)
		}
		*d.dst = id
	}
	return st, nil
}

func styleRow(f *excelize.File, sheet string, s Sheet, index int, st xlsxStyles) error {
	row := s.Rows[index]
	first, err := excelize.CoordinatesToCellName(1, index+1)
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(max(len(s.Columns), 1), index+1)
	if err != nil {
		return err
	}

	switch row.Kind {
	case RowTitle:
		return f.SetCellStyle(sheet, first, first, st.title)
	case RowHeader:
		return f.SetCellStyle(sheet, first, last, st.header)
	case RowGroup:
		return f.SetCellStyle(sheet, first, first, st.group)
	case RowSubtotal, RowTotal:
		return f.SetCellStyle(sheet, first, last, st.total)
	case RowLine:
		for i, c := range s.Columns {
			if !c.Money {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(i+1, index+1)
			if err != nil {
				return err
			}
			if err := f.SetCellStyle(sheet, cell, cell, st.money); err != nil {
				return err
			}
		}
	}
	return nil
}

func sheetName(title string) string {
	name := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '-'
		}
		return r
	}, strings.TrimSpace(title))
	if name == "" {
		name = "Quote"
	}
	if r := []rune(name); len(r) > maxSheetName {
		name = string(r[:maxSheetName])
	}
	return name
}
