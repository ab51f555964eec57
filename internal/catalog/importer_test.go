package catalog

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Veraticus/quotewright/internal/common"
	"github.com/Veraticus/quotewright/internal/model"
	"github.com/Veraticus/quotewright/internal/service"
)

func workbook(t *testing.T, rows ...[]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestImportXLSX(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	book := workbook(t,
		[]any{"SKU", "Title", "Unit Type", "Unit Price", "Trade ID", "Active"},
		[]any{"DRY-01", "Drywall sheet", "sheet", "20", "7", "true"},
		[]any{"PRM-01", "Primer gallon", "gal", "$18.40", "", ""},
		[]any{"", "No sku", "ea", "1", "", ""},
		[]any{"BAD-01", "Bad price", "ea", "cheap", "", ""},
		[]any{"OLD-01", "Retired", "ea", "3", "", "false"},
	)

	var progress bytes.Buffer
	res, err := svc.ImportXLSX(ctx, book, ImportOptions{Progress: &progress})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Created)
	assert.Equal(t, 0, res.Updated)
	assert.Len(t, res.Skipped, 2)
	assert.Contains(t, res.Skipped[0], "row 4")
	assert.NotEmpty(t, progress.String())

	items, err := db.Storage.ListCatalogItems(ctx, service.CatalogFilter{CatalogType: model.CatalogStandard})
	require.NoError(t, err)
	require.Len(t, items, 3)

	primer, err := db.Storage.GetCatalogItemBySKU(ctx, model.CatalogStandard, "PRM-01")
	require.NoError(t, err)
	assert.Equal(t, "18.4", primer.UnitPrice.String())
	assert.Nil(t, primer.TradeID)

	retired, err := db.Storage.GetCatalogItemBySKU(ctx, model.CatalogStandard, "OLD-01")
	require.NoError(t, err)
	assert.False(t, retired.IsActive)

	t.Run("reimport updates by sku", func(t *testing.T) {
		book := workbook(t,
			[]any{"sku", "title", "unit_price"},
			[]any{"DRY-01", "Drywall sheet 1/2in", "22"},
			[]any{"PRM-01", "Primer gallon", "18.40"},
		)
		res, err := svc.ImportXLSX(ctx, book, ImportOptions{})
		require.NoError(t, err)
		assert.Equal(t, 0, res.Created)
		assert.Equal(t, 2, res.Updated)
		assert.Equal(t, 1, res.PriceChanged)

		dry, err := db.Storage.GetCatalogItemBySKU(ctx, model.CatalogStandard, "DRY-01")
		require.NoError(t, err)
		assert.Equal(t, "Drywall sheet 1/2in", dry.Title)
		assert.Equal(t, "22", dry.UnitPrice.String())
	})

	t.Run("insurance catalog", func(t *testing.T) {
		book := workbook(t,
			[]any{"sku", "title", "unit_price"},
			[]any{"DRY-01", "Drywall repair", "4.25"},
		)
		res, err := svc.ImportXLSX(ctx, book, ImportOptions{Catalog: model.CatalogInsurance})
		require.NoError(t, err)
		assert.Equal(t, 1, res.Created)
	})

	t.Run("missing required column", func(t *testing.T) {
		book := workbook(t, []any{"sku", "title"}, []any{"X", "Y"})
		_, err := svc.ImportXLSX(ctx, book, ImportOptions{})
		assert.ErrorIs(t, err, common.ErrInvalidInput)
	})

	t.Run("not a workbook", func(t *testing.T) {
		_, err := svc.ImportXLSX(ctx, bytes.NewBufferString("plain text"), ImportOptions{})
		assert.Error(t, err)
	})
}
