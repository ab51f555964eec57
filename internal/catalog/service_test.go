package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Veraticus/quotewright/internal/common"
	"github.com/Veraticus/quotewright/internal/model"
	"github.com/Veraticus/quotewright/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestService(t *testing.T) (*Service, *testutil.TestDB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	svc := New(db.Storage, nil)
	t.Cleanup(svc.Close)
	return svc, db
}

func skus(results []model.SearchResult) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.SKU)
	}
	return out
}

func TestSearch(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	db.MustSeedCatalog(append(testutil.StandardCatalog(), testutil.InsuranceRepair)...)
	insuranceQuote := db.MustCreateQuote(model.FormatInsurance)

	tests := []struct {
		name string
		req  SearchRequest
		want []string
	}{
		{name: "empty term", req: SearchRequest{Term: "  "}, want: []string{}},
		{name: "title match", req: SearchRequest{Term: "paint"}, want: []string{"PNT-01", "LAB-01"}},
		{name: "sku match", req: SearchRequest{Term: "prm"}, want: []string{"PRM-01"}},
		{name: "standard catalog only", req: SearchRequest{Term: "drywall", Format: model.FormatStandard}, want: []string{"DRY-01"}},
		{name: "insurance catalog", req: SearchRequest{Term: "drywall", Format: model.FormatInsurance}, want: []string{"INS-DRY"}},
		{name: "format from quote", req: SearchRequest{Term: "drywall", QuoteID: insuranceQuote.ID}, want: []string{"INS-DRY"}},
		{name: "no match", req: SearchRequest{Term: "roofing"}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := svc.Search(ctx, tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, skus(results))
		})
	}

	t.Run("unknown format", func(t *testing.T) {
		_, err := svc.Search(ctx, SearchRequest{Term: "x", Format: "gold"})
		assert.ErrorIs(t, err, common.ErrInvalidFormat)
	})

	t.Run("result fields", func(t *testing.T) {
		results, err := svc.Search(ctx, SearchRequest{Term: "PNT-01"})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "Interior paint", results[0].Title)
		assert.Equal(t, "gal", results[0].UnitType)
		assert.True(t, results[0].UnitPrice.Equal(decimal.NewFromInt(42)))
		require.NotNil(t, results[0].TradeID)
		assert.Equal(t, testutil.PaintingTrade, *results[0].TradeID)
	})
}

func TestSearchCache(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	db.MustCreateItem(testutil.Paint)

	first, err := svc.Search(ctx, SearchRequest{Term: "paint"})
	require.NoError(t, err)
	assert.Equal(t, []string{"PNT-01"}, skus(first))

	// Written behind the service's back: the cached answer stands.
	db.MustCreateItem(testutil.ItemFixture{SKU: "PNT-02", Title: "Exterior paint", Price: "50"})
	cached, err := svc.Search(ctx, SearchRequest{Term: "Paint"})
	require.NoError(t, err)
	assert.Equal(t, []string{"PNT-01"}, skus(cached))

	// A write through the service invalidates.
	require.NoError(t, svc.Create(ctx, testutil.ItemFixture{SKU: "PNT-03", Title: "Trim paint", Price: "30"}.Item()))
	fresh, err := svc.Search(ctx, SearchRequest{Term: "paint"})
	require.NoError(t, err)
	assert.Equal(t, []string{"PNT-02", "PNT-01", "PNT-03"}, skus(fresh))
}

func TestSearchCacheExpiry(t *testing.T) {
	c := newSearchCache(time.Minute)
	defer c.close()

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	key := cacheKey(model.CatalogStandard, "tile")
	c.set(key, []model.SearchResult{{SKU: "T"}})
	_, ok := c.get(key)
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = c.get(key)
	assert.False(t, ok)
	assert.Equal(t, 1, c.size())

	c.clear()
	assert.Equal(t, 0, c.size())
}

func TestSetPrice(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	item := db.MustCreateItem(testutil.Labor)

	changed, err := svc.SetPrice(ctx, item.ID, decimal.RequireFromString("65.004"))
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = svc.SetPrice(ctx, item.ID, decimal.RequireFromString("70"))
	require.NoError(t, err)
	assert.True(t, changed)

	got, err := svc.Get(ctx, item.ID)
	require.NoError(t, err)
	require.Len(t, got.PriceHistory, 2)
	assert.True(t, got.PriceHistory[0].Price.Equal(decimal.NewFromInt(65)))
	assert.True(t, got.PriceHistory[1].Price.Equal(decimal.NewFromInt(70)))

	_, err = svc.SetPrice(ctx, 999, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUpdate(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	item := db.MustCreateItem(testutil.Primer)

	item.Description = "Stain blocking"
	require.NoError(t, svc.Update(ctx, item))

	got, err := svc.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Stain blocking", got.Description)
}
