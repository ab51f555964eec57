package storage

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/quotewright/internal/common"
	"github.com/Veraticus/quotewright/internal/model"
)

func TestTradePresets(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	preset := &model.TradePreset{
		TradeID: 7,
		Format:  model.FormatStandard,
		Name:    "Painting",
		Groups: []model.PresetGroup{
			{
				Name:          "Prep",
				SelectionMode: model.SelectAll,
				Items: []model.PresetItem{
					{SKU: "TAPE", Quantity: decimal.NewFromInt(2)},
					{SKU: "PRIMER", Quantity: decimal.RequireFromString("1.5")},
				},
			},
		},
	}
	require.NoError(t, store.SaveTradePreset(ctx, preset))

	got, err := store.GetTradePreset(ctx, 7, model.FormatStandard)
	require.NoError(t, err)
	assert.Equal(t, "Painting", got.Name)
	require.Len(t, got.Groups, 1)
	require.Len(t, got.Groups[0].Items, 2)
	assert.True(t, got.Groups[0].Items[1].Quantity.Equal(decimal.RequireFromString("1.5")))

	_, err = store.GetTradePreset(ctx, 7, model.FormatInsurance)
	assert.ErrorIs(t, err, common.ErrNotFound)

	formats, err := store.GetTradePresetFormats(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []model.QuoteFormat{model.FormatStandard}, formats)

	preset.Name = "Interior painting"
	require.NoError(t, store.SaveTradePreset(ctx, preset))
	all, err := store.ListTradePresets(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Interior painting", all[0].Name)

	assert.ErrorIs(t, store.SaveTradePreset(ctx, &model.TradePreset{Format: model.FormatStandard}), ErrInvalidPreset)
	assert.ErrorIs(t, store.SaveTradePreset(ctx, nil), ErrNilParameter)
}
