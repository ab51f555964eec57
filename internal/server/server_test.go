package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/quotewright/internal/catalog"
	"github.com/Veraticus/quotewright/internal/model"
	"github.com/Veraticus/quotewright/internal/prefs"
	"github.com/Veraticus/quotewright/internal/quote"
	"github.com/Veraticus/quotewright/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type reply struct {
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Success bool            `json:"success"`
}

type fixture struct {
	db      *testutil.TestDB
	items   map[string]*model.CatalogItem
	handler http.Handler
	server  *Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	items := db.MustSeedCatalog(testutil.StandardCatalog()...)

	cat := catalog.New(db.Storage, nil)
	t.Cleanup(cat.Close)

	s := New(prefs.NewStoreBackend(db.Storage), cat, quote.New(db.Storage, nil), nil)
	return &fixture{db: db, items: items, handler: s.Handler(), server: s}
}

func (f *fixture) post(t *testing.T, action string, body any) (int, reply) {
	t.Helper()
	encoded, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/ajax/"+action, bytes.NewReader(encoded))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	var r reply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &r), rec.Body.String())
	return rec.Code, r
}

func TestUnknownAction(t *testing.T) {
	f := newFixture(t)

	code, r := f.post(t, "drop_tables", map[string]any{})
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, r.Success)
	assert.Contains(t, r.Error, "drop_tables")
}

func TestTablePrefsActions(t *testing.T) {
	f := newFixture(t)
	pc := map[string]any{"screen": "Quote-Editor", "table": "line-items", "variant": "insurance"}

	t.Run("missing preference", func(t *testing.T) {
		code, r := f.post(t, "get_table_prefs", map[string]any{"context": pc})
		require.Equal(t, http.StatusOK, code)
		require.True(t, r.Success)

		var resp prefs.LoadResponse
		require.NoError(t, json.Unmarshal(r.Data, &resp))
		assert.False(t, resp.Found)
		assert.Empty(t, resp.Widths)
	})

	t.Run("save then load", func(t *testing.T) {
		code, r := f.post(t, "save_table_prefs", map[string]any{
			"context": pc,
			"widths":  map[string]int{"title": 240, "qty": 80},
			"order":   []string{"qty", "title"},
		})
		require.Equal(t, http.StatusOK, code, r.Error)

		var saved struct {
			Key string `json:"key"`
		}
		require.NoError(t, json.Unmarshal(r.Data, &saved))
		assert.Equal(t, "quote-editor:line-items:insurance", saved.Key)

		_, r = f.post(t, "get_table_prefs", map[string]any{"context": pc})
		var resp prefs.LoadResponse
		require.NoError(t, json.Unmarshal(r.Data, &resp))
		assert.True(t, resp.Found)
		assert.Equal(t, map[string]int{"title": 240, "qty": 80}, resp.Widths)
		assert.Equal(t, []string{"qty", "title"}, resp.Order)
	})

	t.Run("rejects bad payloads", func(t *testing.T) {
		tests := []struct {
			name string
			body map[string]any
			want string
		}{
			{"missing screen", map[string]any{"context": map[string]any{"table": "t"}}, "Context.Screen failed required"},
			{"negative width", map[string]any{"context": pc, "widths": map[string]int{"qty": -4}}, "must be positive"},
			{"wrong type", map[string]any{"context": pc, "widths": []int{1}}, "invalid request"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				code, r := f.post(t, "save_table_prefs", tt.body)
				assert.Equal(t, http.StatusBadRequest, code)
				assert.False(t, r.Success)
				assert.Contains(t, r.Error, tt.want)
			})
		}
	})
}

func TestHTTPBackendRoundTrip(t *testing.T) {
	f := newFixture(t)
	ts := httptest.NewServer(f.handler)
	defer ts.Close()

	backend := prefs.NewHTTPBackend(ts.URL, ts.Client())
	ctx := context.Background()
	pc := prefs.Context{Screen: "quote-editor", Table: "line-items"}

	_, found, err := backend.Load(ctx, pc)
	require.NoError(t, err)
	assert.False(t, found)

	want := prefs.Payload{Widths: map[string]int{"title": 30}, Order: []string{"title", "qty"}}
	require.NoError(t, backend.Save(ctx, pc, want))

	got, found, err := backend.Load(ctx, pc)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, want.Equal(got))

	err = backend.Save(ctx, prefs.Context{Table: "line-items"}, want)
	require.Error(t, err, "rejected payloads surface as errors")
}

func TestSearchPricingItems(t *testing.T) {
	f := newFixture(t)

	code, r := f.post(t, "search_pricing_items", map[string]any{"term": "paint"})
	require.Equal(t, http.StatusOK, code, r.Error)
	var results []model.SearchResult
	require.NoError(t, json.Unmarshal(r.Data, &results))
	require.Len(t, results, 2)
	assert.Equal(t, testutil.Paint.SKU, results[0].SKU)

	code, r = f.post(t, "search_pricing_items", map[string]any{"term": "paint", "quote_format": "barter"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, r.Error, "Format failed oneof")

	code, r = f.post(t, "search_pricing_items", map[string]any{"term": "paint", "quote_id": 999})
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, r.Success)
}

func TestQuoteActions(t *testing.T) {
	f := newFixture(t)
	q := f.db.MustCreateQuote(model.FormatStandard)
	drywall := f.items[testutil.Drywall.SKU].ID

	code, r := f.post(t, "save_quote_groups", map[string]any{
		"quote_id": q.ID,
		"groups": []map[string]any{
			{
				"name": "Walls",
				"items": []map[string]any{
					{"id": "sheets", "pricing_item_id": drywall, "quantity": "2*3", "formula": "$+5"},
					{"id": "custom", "title": "Trip charge", "formula": "12"},
				},
			},
			{"name": "Ceiling", "items": []map[string]any{{"id": "broken", "formula": "(("}}},
		},
	})
	require.Equal(t, http.StatusOK, code, r.Error)

	var saved SaveGroupsResponse
	require.NoError(t, json.Unmarshal(r.Data, &saved))
	require.Len(t, saved.Groups, 2)
	assert.Equal(t, []string{"broken"}, saved.Invalid)
	assert.Equal(t, "162", saved.Totals.GrandTotal.String())
	require.Len(t, saved.Totals.Groups, 2)
	assert.Equal(t, "150", saved.Totals.Groups[0].Lines[0].Amount.String())

	code, r = f.post(t, "get_quote_totals", map[string]any{"quote_id": q.ID})
	require.Equal(t, http.StatusOK, code, r.Error)
	var totals Totals
	require.NoError(t, json.Unmarshal(r.Data, &totals))
	assert.Equal(t, "162", totals.GrandTotal.String())
	assert.Equal(t, model.FormatStandard, totals.Format)

	code, r = f.post(t, "set_quote_format", map[string]any{"quote_id": q.ID, "quote_format": "insurance"})
	require.Equal(t, http.StatusOK, code, r.Error)
	var switched SetFormatResponse
	require.NoError(t, json.Unmarshal(r.Data, &switched))
	assert.Equal(t, model.FormatInsurance, switched.Format)
	require.Len(t, switched.Groups, 1, "insurance collapses groups")
	assert.Len(t, switched.Groups[0].Items, 3)

	t.Run("errors", func(t *testing.T) {
		tests := []struct {
			name   string
			action string
			body   map[string]any
			status int
		}{
			{"missing quote id", "get_quote_totals", map[string]any{}, http.StatusBadRequest},
			{"unknown quote", "get_quote_totals", map[string]any{"quote_id": 4040}, http.StatusNotFound},
			{"unknown format", "set_quote_format", map[string]any{"quote_id": q.ID, "quote_format": "cash"}, http.StatusBadRequest},
			{"bad selection mode", "save_quote_groups", map[string]any{
				"quote_id": q.ID,
				"groups":   []map[string]any{{"name": "x", "selection_mode": "some"}},
			}, http.StatusBadRequest},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				code, r := f.post(t, tt.action, tt.body)
				assert.Equal(t, tt.status, code)
				assert.False(t, r.Success)
				assert.NotEmpty(t, r.Error)
			})
		}
	})
}

func TestApplyTradePreset(t *testing.T) {
	f := newFixture(t)
	f.db.MustSavePreset(testutil.PaintingPreset())
	q := f.db.MustCreateQuote(model.FormatStandard)

	body := map[string]any{"quote_id": q.ID, "trade_id": testutil.PaintingTrade, "persist": true}
	code, r := f.post(t, "apply_trade_preset", body)
	require.Equal(t, http.StatusOK, code, r.Error)

	var res catalog.PresetResult
	require.NoError(t, json.Unmarshal(r.Data, &res))
	assert.True(t, res.Applied)
	assert.Equal(t, 1, res.MissingCount)
	assert.Len(t, res.Groups, 2)

	_, r = f.post(t, "apply_trade_preset", body)
	require.True(t, r.Success, "a rejection is a successful reply with a reason")
	require.NoError(t, json.Unmarshal(r.Data, &res))
	assert.False(t, res.Applied)
	assert.Equal(t, catalog.ReasonAlreadyPopulated, res.Reason)

	code, _ = f.post(t, "apply_trade_preset", map[string]any{"quote_id": q.ID})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	f := newFixture(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.server.Serve(ctx, ln) }()

	client := &http.Client{Timeout: time.Second}
	require.Eventually(t, func() bool {
		resp, err := client.Post("http://"+ln.Addr().String()+"/ajax/get_quote_totals", "application/json", bytes.NewReader([]byte("{}")))
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusBadRequest
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}
