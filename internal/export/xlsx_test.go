package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Veraticus/quotewright/internal/model"
)

func TestWriteXLSX(t *testing.T) {
	doc := sampleDocument(t)
	s := Build(doc, Columns(model.FormatStandard, []string{"title"}))

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, s, XLSXOptions{Widths: map[string]int{"title": 40}}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{"Test quote"}, f.GetSheetList())

	rows, err := f.GetRows("Test quote", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, rows, 13)
	assert.Equal(t, []string{"Test quote"}, rows[0])
	assert.Empty(t, rows[1])
	assert.Equal(t, []string{"Item", "SKU", "Qty", "Unit", "Rate", "Amount", "Margin"}, rows[2])
	assert.Equal(t, []string{"Drywall sheet", "DRY-01", "6", "", "25", "150", "no data"}, rows[4])
	assert.Equal(t, "262", rows[12][5])

	width, err := f.GetColWidth("Test quote", "A")
	require.NoError(t, err)
	assert.Equal(t, 40.0, width)

	style, err := f.GetCellStyle("Test quote", "E5")
	require.NoError(t, err)
	assert.NotZero(t, style, "money cells carry the currency style")
}
