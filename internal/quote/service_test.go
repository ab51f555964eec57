package quote

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/quotewright/internal/common"
	"github.com/Veraticus/quotewright/internal/model"
	"github.com/Veraticus/quotewright/internal/testutil"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.Equal(t, dec(want).String(), got.String(), msgAndArgs...)
}

func setup(t *testing.T, format model.QuoteFormat) (*Service, *testutil.TestDB, *model.Quote, map[string]*model.CatalogItem) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	items := db.MustSeedCatalog(testutil.StandardCatalog()...)
	q := db.MustCreateQuote(format)
	return New(db.Storage, nil), db, q, items
}

func TestSaveGroups(t *testing.T) {
	svc, _, q, items := setup(t, model.FormatStandard)
	ctx := context.Background()
	drywall := items[testutil.Drywall.SKU].ID

	result, err := svc.SaveGroups(ctx, q.ID, []GroupInput{
		{
			Name:         "Walls",
			ShowSubtotal: true,
			Items: []LineInput{
				{ID: "sheets", PricingItemID: &drywall, Quantity: "2*3", Formula: "$+5"},
				{ID: "custom", Title: "Trip charge", Formula: "12"},
				{ID: "broken", PricingItemID: &drywall, Quantity: "1", Formula: "lots"},
			},
		},
	})
	require.NoError(t, err)

	require.Len(t, result.Groups, 1)
	g := result.Groups[0]
	assert.NotEmpty(t, g.ID, "group gets a generated id")
	assert.Equal(t, model.SelectAll, g.SelectionMode)
	require.Len(t, g.Items, 3)

	assertDecimal(t, "6", g.Items[0].Quantity)
	assertDecimal(t, "25", g.Items[0].ResolvedPrice)
	assert.Equal(t, model.PriceAddition, g.Items[0].PriceMode)

	assertDecimal(t, "1", g.Items[1].Quantity, "empty quantity defaults to one")
	assertDecimal(t, "12", g.Items[1].ResolvedPrice)

	assert.Equal(t, model.PriceDefault, g.Items[2].PriceMode)
	assertDecimal(t, "20", g.Items[2].ResolvedPrice, "new line with invalid formula gets the catalog price")
	assert.Equal(t, []string{"broken"}, result.Invalid)

	assertDecimal(t, "182", result.Totals.GrandTotal)

	totals, err := svc.Totals(ctx, q.ID)
	require.NoError(t, err)
	assertDecimal(t, "182", totals.GrandTotal)
	assertDecimal(t, "0", totals.Tax)
}

func TestSaveGroupsRecomputesPrices(t *testing.T) {
	svc, _, q, items := setup(t, model.FormatStandard)
	ctx := context.Background()
	drywall := items[testutil.Drywall.SKU].ID

	first, err := svc.SaveGroups(ctx, q.ID, []GroupInput{{
		ID:    "walls",
		Items: []LineInput{{ID: "sheets", PricingItemID: &drywall, Quantity: "4", Formula: "$+5"}},
	}})
	require.NoError(t, err)
	assert.False(t, first.Groups[0].Items[0].PreviousResolvedPrice.Valid)

	t.Run("changed price records the previous one", func(t *testing.T) {
		res, err := svc.SaveGroups(ctx, q.ID, []GroupInput{{
			ID:    "walls",
			Items: []LineInput{{ID: "sheets", PricingItemID: &drywall, Quantity: "4", Formula: "$*1.1"}},
		}})
		require.NoError(t, err)
		it := res.Groups[0].Items[0]
		assertDecimal(t, "22", it.ResolvedPrice)
		require.True(t, it.PreviousResolvedPrice.Valid)
		assertDecimal(t, "25", it.PreviousResolvedPrice.Decimal)
	})

	t.Run("invalid formula keeps the stored price", func(t *testing.T) {
		res, err := svc.SaveGroups(ctx, q.ID, []GroupInput{{
			ID:    "walls",
			Items: []LineInput{{ID: "sheets", PricingItemID: &drywall, Quantity: "4+", Formula: "$$"}},
		}})
		require.NoError(t, err)
		it := res.Groups[0].Items[0]
		assertDecimal(t, "22", it.ResolvedPrice)
		assertDecimal(t, "4", it.Quantity)
		assert.Equal(t, model.PricePercentage, it.PriceMode)
		assertDecimal(t, "25", it.PreviousResolvedPrice.Decimal)
		assert.Equal(t, []string{"sheets"}, res.Invalid)
	})

	t.Run("catalog price change flows into the next save", func(t *testing.T) {
		_, err := svc.store.SetCatalogPrice(ctx, drywall, dec("30"))
		require.NoError(t, err)

		res, err := svc.SaveGroups(ctx, q.ID, []GroupInput{{
			ID:    "walls",
			Items: []LineInput{{ID: "sheets", PricingItemID: &drywall, Quantity: "4", Formula: "$"}},
		}})
		require.NoError(t, err)
		assertDecimal(t, "30", res.Groups[0].Items[0].ResolvedPrice)
	})
}

func TestSaveGroupsSelectionModes(t *testing.T) {
	svc, _, q, _ := setup(t, model.FormatStandard)
	ctx := context.Background()

	_, err := svc.SaveGroups(ctx, q.ID, []GroupInput{
		{
			ID:            "options",
			SelectionMode: model.SelectSingle,
			Items: []LineInput{
				{ID: "a", Formula: "100", IsSelected: true},
				{ID: "b", Formula: "200", IsSelected: true},
				{ID: "c", Formula: "300", IsSelected: true},
			},
		},
		{
			ID:            "extras",
			SelectionMode: model.SelectMulti,
			Items: []LineInput{
				{ID: "d", Formula: "10", IsSelected: true},
				{ID: "e", Formula: "20"},
			},
		},
	})
	require.NoError(t, err)

	totals, err := svc.Totals(ctx, q.ID)
	require.NoError(t, err)
	require.Len(t, totals.Groups, 2)
	assertDecimal(t, "100", totals.Groups[0].Subtotal)
	assertDecimal(t, "10", totals.Groups[1].Subtotal)
	assertDecimal(t, "110", totals.GrandTotal)

	_, err = svc.SaveGroups(ctx, q.ID, []GroupInput{{ID: "x", SelectionMode: "some"}})
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestSaveGroupsInsurance(t *testing.T) {
	svc, _, q, _ := setup(t, model.FormatInsurance)
	ctx := context.Background()

	res, err := svc.SaveGroups(ctx, q.ID, []GroupInput{{
		ID: "claim",
		Items: []LineInput{{
			ID:           "repair",
			Quantity:     "10",
			Formula:      "999",
			MaterialCost: decimal.NewNullDecimal(dec("3")),
			LaborCost:    decimal.NewNullDecimal(dec("1.255")),
		}},
	}})
	require.NoError(t, err)

	it := res.Groups[0].Items[0]
	assertDecimal(t, "4.26", it.ResolvedPrice, "insurance rate is material plus labor")
	assert.Empty(t, res.Invalid)

	// amount 42.60, tax 10 * 3 * 8% = 2.40
	assertDecimal(t, "42.6", res.Totals.Subtotal)
	assertDecimal(t, "2.4", res.Totals.Tax)
	assertDecimal(t, "45", res.Totals.GrandTotal)
}

func TestSaveGroupsInsuranceCollapsesGroups(t *testing.T) {
	svc, db, q, _ := setup(t, model.FormatInsurance)
	ctx := context.Background()
	cost := decimal.NewNullDecimal(dec("10"))

	res, err := svc.SaveGroups(ctx, q.ID, []GroupInput{
		{
			ID:            "a",
			SelectionMode: model.SelectSingle,
			ShowSubtotal:  true,
			Items: []LineInput{
				{ID: "a1", MaterialCost: cost, IsSelected: true},
				{ID: "a2", MaterialCost: cost, IsSelected: true},
			},
		},
		{
			ID:    "b",
			Items: []LineInput{{ID: "b1", MaterialCost: cost}},
		},
	})
	require.NoError(t, err)

	require.Len(t, res.Groups, 1)
	g := res.Groups[0]
	assert.Equal(t, "a", g.ID)
	assert.Equal(t, model.SelectAll, g.SelectionMode)
	assert.False(t, g.ShowSubtotal)
	require.Len(t, g.Items, 3)

	assertDecimal(t, "30", res.Totals.Subtotal)
	assertDecimal(t, "32.4", res.Totals.GrandTotal)

	stored, err := db.Storage.GetQuoteGroups(ctx, q.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, model.SelectAll, stored[0].SelectionMode)
	assert.False(t, stored[0].ShowSubtotal)
	assert.Len(t, stored[0].Items, 3)
}

func TestSetFormat(t *testing.T) {
	svc, db, q, items := setup(t, model.FormatStandard)
	ctx := context.Background()
	paint := items[testutil.Paint.SKU].ID

	_, err := svc.SaveGroups(ctx, q.ID, []GroupInput{
		{ID: "g1", SelectionMode: model.SelectMulti, ShowSubtotal: true, Items: []LineInput{
			{ID: "a", PricingItemID: &paint, Formula: "$+8", MaterialCost: decimal.NewNullDecimal(dec("20"))},
			{ID: "b", Formula: "5"},
		}},
		{ID: "g2", SelectionMode: model.SelectSingle, ShowSubtotal: true, Items: []LineInput{
			{ID: "c", Formula: "1"},
			{ID: "d", Formula: "2"},
			{ID: "e", Formula: "3", LaborCost: decimal.NewNullDecimal(dec("2.5"))},
		}},
	})
	require.NoError(t, err)

	groups, err := svc.SetFormat(ctx, q.ID, model.FormatInsurance)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "g1", groups[0].ID)
	assert.Equal(t, model.SelectAll, groups[0].SelectionMode)
	assert.False(t, groups[0].ShowSubtotal)
	require.Len(t, groups[0].Items, 5)
	assertDecimal(t, "20", groups[0].Items[0].ResolvedPrice)
	assertDecimal(t, "2.5", groups[0].Items[4].ResolvedPrice)

	stored, err := db.Storage.GetQuote(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, model.FormatInsurance, stored.Format)

	content, err := db.Storage.GetQuoteContent(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, content.Groups)
	assert.Equal(t, 5, content.Items)

	t.Run("switching back keeps the merged structure", func(t *testing.T) {
		groups, err := svc.SetFormat(ctx, q.ID, model.FormatStandard)
		require.NoError(t, err)
		require.Len(t, groups, 1)
		assert.Equal(t, model.SelectAll, groups[0].SelectionMode)
		assertDecimal(t, "50", groups[0].Items[0].ResolvedPrice, "formula pricing returns")
	})

	t.Run("same format is a no-op", func(t *testing.T) {
		groups, err := svc.SetFormat(ctx, q.ID, model.FormatStandard)
		require.NoError(t, err)
		assert.Len(t, groups, 1)
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := svc.SetFormat(ctx, q.ID, "deluxe")
		assert.ErrorIs(t, err, common.ErrInvalidFormat)
	})

	t.Run("unknown quote", func(t *testing.T) {
		_, err := svc.SetFormat(ctx, 999, model.FormatInsurance)
		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}

func TestInputsFromGroupsRoundTrip(t *testing.T) {
	svc, _, q, items := setup(t, model.FormatStandard)
	ctx := context.Background()
	paint := items[testutil.Paint.SKU].ID

	first, err := svc.SaveGroups(ctx, q.ID, []GroupInput{
		{
			Name:          "Rooms",
			SelectionMode: model.SelectMulti,
			Items: []LineInput{
				{ID: "paint", PricingItemID: &paint, Quantity: "3", Formula: "$*1.1", IsSelected: true},
				{ID: "trip", Title: "Trip charge", Formula: "12"},
			},
		},
	})
	require.NoError(t, err)

	inputs := InputsFromGroups(first.Groups)
	require.Len(t, inputs, 1)
	assert.Equal(t, first.Groups[0].ID, inputs[0].ID)
	assert.Equal(t, "$*1.1", inputs[0].Items[0].Formula)
	assert.Equal(t, "3", inputs[0].Items[0].Quantity)

	second, err := svc.SaveGroups(ctx, q.ID, inputs)
	require.NoError(t, err)
	assert.Empty(t, second.Invalid)
	for i, it := range second.Groups[0].Items {
		before := first.Groups[0].Items[i]
		assert.Equal(t, before.ID, it.ID)
		assertDecimal(t, before.ResolvedPrice.String(), it.ResolvedPrice)
		assert.False(t, it.PreviousResolvedPrice.Valid, "unchanged prices record no previous value")
	}
	assertDecimal(t, first.Totals.GrandTotal.String(), second.Totals.GrandTotal)
}
