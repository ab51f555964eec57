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

func testGroups() []model.QuoteGroup {
	return []model.QuoteGroup{
		{
			ID:            "g1",
			Name:          "Demolition",
			SelectionMode: model.SelectAll,
			ShowSubtotal:  true,
			Items: []model.LineItem{
				{ID: "i1", Title: "Remove cabinets", Quantity: decimal.NewFromInt(1), ResolvedPrice: decimal.NewFromInt(300)},
				{ID: "i2", Title: "Haul away", Quantity: decimal.NewFromInt(2), ResolvedPrice: decimal.NewFromInt(75)},
			},
		},
		{
			ID:            "g2",
			Name:          "Finishes",
			SelectionMode: model.SelectSingle,
			Items: []model.LineItem{
				{
					ID:            "i3",
					Title:         "Paint",
					Quantity:      decimal.NewFromInt(3),
					ResolvedPrice: decimal.NewFromInt(40),
					MaterialCost:  decimal.NewNullDecimal(decimal.NewFromInt(10)),
					TaxRate:       decimal.NewNullDecimal(decimal.RequireFromString("6.5")),
					IsSelected:    true,
				},
			},
		},
	}
}

func TestQuoteLifecycle(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	q := createTestQuote(t, store, "")
	assert.Equal(t, model.FormatStandard, q.Format)

	got, err := store.GetQuote(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, "Kitchen remodel", got.Title)
	assert.True(t, got.TaxRate.Equal(decimal.NewFromInt(8)))

	require.NoError(t, store.SetQuoteFormat(ctx, q.ID, model.FormatInsurance))
	got, err = store.GetQuote(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, model.FormatInsurance, got.Format)

	assert.Error(t, store.SetQuoteFormat(ctx, q.ID, "fancy"))
	assert.ErrorIs(t, store.SetQuoteFormat(ctx, 999, model.FormatStandard), common.ErrNotFound)

	_, err = store.GetQuote(ctx, 999)
	assert.ErrorIs(t, err, common.ErrNotFound)

	quotes, err := store.ListQuotes(ctx)
	require.NoError(t, err)
	assert.Len(t, quotes, 1)
}

func TestReplaceQuoteGroups(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	q := createTestQuote(t, store, model.FormatStandard)

	require.NoError(t, store.ReplaceQuoteGroups(ctx, q.ID, testGroups()))

	groups, err := store.GetQuoteGroups(ctx, q.ID)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "g1", groups[0].ID)
	assert.Equal(t, 0, groups[0].SortOrder)
	require.Len(t, groups[0].Items, 2)
	assert.Equal(t, []string{"i1", "i2"}, []string{groups[0].Items[0].ID, groups[0].Items[1].ID})
	assert.Equal(t, model.PriceDefault, groups[0].Items[0].PriceMode)
	assert.Equal(t, model.ItemStandard, groups[0].Items[0].ItemType)

	paint := groups[1].Items[0]
	assert.Equal(t, model.SelectSingle, groups[1].SelectionMode)
	assert.True(t, paint.IsSelected)
	assert.True(t, paint.MaterialCost.Valid)
	assert.False(t, paint.LaborCost.Valid)
	assert.True(t, paint.TaxRate.Decimal.Equal(decimal.RequireFromString("6.5")))
	assert.Nil(t, paint.PricingItemID)

	content, err := store.GetQuoteContent(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, content.Groups)
	assert.Equal(t, 3, content.Items)

	t.Run("full replace deletes absent rows", func(t *testing.T) {
		next := testGroups()[:1]
		next[0].Items = next[0].Items[1:]
		next[0].Items[0].Title = "Haul away (2 loads)"
		next = append([]model.QuoteGroup{{ID: "g0", Name: "Permits"}}, next...)

		require.NoError(t, store.ReplaceQuoteGroups(ctx, q.ID, next))

		groups, err := store.GetQuoteGroups(ctx, q.ID)
		require.NoError(t, err)
		require.Len(t, groups, 2)
		assert.Equal(t, "g0", groups[0].ID)
		assert.Equal(t, model.SelectAll, groups[0].SelectionMode)
		assert.Equal(t, "g1", groups[1].ID)
		require.Len(t, groups[1].Items, 1)
		assert.Equal(t, "Haul away (2 loads)", groups[1].Items[0].Title)

		content, err := store.GetQuoteContent(ctx, q.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, content.Groups)
		assert.Equal(t, 1, content.Items)
	})

	t.Run("items can move between groups", func(t *testing.T) {
		moved := []model.QuoteGroup{
			{ID: "g0", Items: []model.LineItem{{ID: "i2", Title: "Haul away"}}},
		}
		require.NoError(t, store.ReplaceQuoteGroups(ctx, q.ID, moved))

		groups, err := store.GetQuoteGroups(ctx, q.ID)
		require.NoError(t, err)
		require.Len(t, groups, 1)
		require.Len(t, groups[0].Items, 1)
		assert.Equal(t, "g0", groups[0].Items[0].GroupID)
	})

	t.Run("empty batch clears the quote", func(t *testing.T) {
		require.NoError(t, store.ReplaceQuoteGroups(ctx, q.ID, nil))
		content, err := store.GetQuoteContent(ctx, q.ID)
		require.NoError(t, err)
		assert.True(t, content.Empty())
	})
}

func TestReplaceQuoteGroupsRejects(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	q := createTestQuote(t, store, model.FormatStandard)
	other := createTestQuote(t, store, model.FormatStandard)

	require.NoError(t, store.ReplaceQuoteGroups(ctx, other.ID, []model.QuoteGroup{{
		ID:    "taken",
		Items: []model.LineItem{{ID: "shared", Title: "Trip charge", Quantity: decimal.NewFromInt(1)}},
	}}))

	tests := []struct {
		want    error
		name    string
		groups  []model.QuoteGroup
		quoteID int64
	}{
		{name: "missing group id", quoteID: q.ID, groups: []model.QuoteGroup{{Name: "x"}}, want: ErrInvalidGroup},
		{name: "duplicate group id", quoteID: q.ID, groups: []model.QuoteGroup{{ID: "a"}, {ID: "a"}}, want: ErrInvalidGroup},
		{
			name:    "duplicate item id",
			quoteID: q.ID,
			groups: []model.QuoteGroup{
				{ID: "a", Items: []model.LineItem{{ID: "x"}}},
				{ID: "b", Items: []model.LineItem{{ID: "x"}}},
			},
			want: ErrInvalidLineItem,
		},
		{name: "bad selection mode", quoteID: q.ID, groups: []model.QuoteGroup{{ID: "a", SelectionMode: "some"}}, want: ErrInvalidGroup},
		{name: "group owned by another quote", quoteID: q.ID, groups: []model.QuoteGroup{{ID: "taken"}}, want: ErrInvalidGroup},
		{
			name:    "line item owned by another quote",
			quoteID: q.ID,
			groups:  []model.QuoteGroup{{ID: "a", Items: []model.LineItem{{ID: "shared", Title: "Trip charge"}}}},
			want:    ErrInvalidLineItem,
		},
		{name: "unknown quote", quoteID: 999, groups: []model.QuoteGroup{{ID: "a"}}, want: common.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.ReplaceQuoteGroups(ctx, tt.quoteID, tt.groups)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	content, err := store.GetQuoteContent(ctx, q.ID)
	require.NoError(t, err)
	assert.True(t, content.Empty(), "rejected batches leave nothing behind")

	kept, err := store.GetQuoteGroups(ctx, other.ID)
	require.NoError(t, err)
	require.Len(t, kept, 1)
	require.Len(t, kept[0].Items, 1)
	assert.Equal(t, "shared", kept[0].Items[0].ID)
}
