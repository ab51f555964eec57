// Package testutil provides shared test fixtures: a migrated in-memory
// database with catalog and quote seeding helpers.
//
// Example:
//
//	db := testutil.SetupTestDB(t)
//	drywall := db.MustCreateItem(testutil.Drywall)
//	q := db.MustCreateQuote(model.FormatStandard)
package testutil

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/quotewright/internal/model"
	"github.com/Veraticus/quotewright/internal/storage"
)

// TestDB is a migrated in-memory database bound to a test.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// SetupTestDB creates an in-memory database and closes it when the test ends.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return &TestDB{Storage: store, t: t}
}

// MustCreateItem inserts a fixture into the catalog and returns the stored item.
func (db *TestDB) MustCreateItem(f ItemFixture) *model.CatalogItem {
	db.t.Helper()

	item := f.Item()
	if err := db.Storage.CreateCatalogItem(context.Background(), item); err != nil {
		db.t.Fatalf("failed to seed catalog item %q: %v", f.SKU, err)
	}
	return item
}

// MustSeedCatalog inserts every fixture and returns the stored items keyed by sku.
func (db *TestDB) MustSeedCatalog(fixtures ...ItemFixture) map[string]*model.CatalogItem {
	db.t.Helper()

	items := make(map[string]*model.CatalogItem, len(fixtures))
	for _, f := range fixtures {
		items[f.SKU] = db.MustCreateItem(f)
	}
	return items
}

// MustCreateQuote inserts an empty quote with an 8% tax rate.
func (db *TestDB) MustCreateQuote(format model.QuoteFormat) *model.Quote {
	db.t.Helper()

	q := &model.Quote{
		Title:   "Test quote",
		Format:  format,
		TaxRate: decimal.NewFromInt(8),
	}
	if err := db.Storage.CreateQuote(context.Background(), q); err != nil {
		db.t.Fatalf("failed to seed quote: %v", err)
	}
	return q
}

// MustSavePreset stores a trade preset.
func (db *TestDB) MustSavePreset(p *model.TradePreset) {
	db.t.Helper()

	if err := db.Storage.SaveTradePreset(context.Background(), p); err != nil {
		db.t.Fatalf("failed to seed preset: %v", err)
	}
}
