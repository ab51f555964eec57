package testutil

import (
	"github.com/shopspring/decimal"

	"github.com/Veraticus/quotewright/internal/model"
)

// PaintingTrade is the trade id used by the fixtures.
const PaintingTrade int64 = 7

// ItemFixture describes a catalog item for seeding.
type ItemFixture struct {
	SKU      string
	Title    string
	UnitType string
	Price    string
	Catalog  model.CatalogType
}

// Item converts the fixture into a catalog item.
func (f ItemFixture) Item() *model.CatalogItem {
	trade := PaintingTrade
	catalog := f.Catalog
	if catalog == "" {
		catalog = model.CatalogStandard
	}
	return &model.CatalogItem{
		SKU:         f.SKU,
		Title:       f.Title,
		UnitType:    f.UnitType,
		UnitPrice:   decimal.RequireFromString(f.Price),
		TradeID:     &trade,
		CatalogType: catalog,
		IsActive:    true,
	}
}

// Common catalog fixtures.
var (
	Drywall = ItemFixture{SKU: "DRY-01", Title: "Drywall sheet", UnitType: "sheet", Price: "20"}
	Primer  = ItemFixture{SKU: "PRM-01", Title: "Primer gallon", UnitType: "gal", Price: "18.40"}
	Paint   = ItemFixture{SKU: "PNT-01", Title: "Interior paint", UnitType: "gal", Price: "42"}
	Labor   = ItemFixture{SKU: "LAB-01", Title: "Painter labor", UnitType: "hr", Price: "65"}

	InsuranceRepair = ItemFixture{SKU: "INS-DRY", Title: "Drywall repair", UnitType: "sqft", Price: "4.25", Catalog: model.CatalogInsurance}
)

// StandardCatalog is the default standard-catalog seed set.
func StandardCatalog() []ItemFixture {
	return []ItemFixture{Drywall, Primer, Paint, Labor}
}

// PaintingPreset references three catalog skus and one that does not exist.
func PaintingPreset() *model.TradePreset {
	return &model.TradePreset{
		TradeID: PaintingTrade,
		Format:  model.FormatStandard,
		Name:    "Interior painting",
		Groups: []model.PresetGroup{
			{
				Name:          "Prep",
				SelectionMode: model.SelectAll,
				ShowSubtotal:  true,
				Items: []model.PresetItem{
					{SKU: Primer.SKU, Quantity: decimal.NewFromInt(2)},
					{SKU: "DISCONTINUED", Quantity: decimal.NewFromInt(1)},
				},
			},
			{
				Name:          "Paint",
				SelectionMode: model.SelectAll,
				ShowSubtotal:  true,
				Items: []model.PresetItem{
					{SKU: Paint.SKU, Quantity: decimal.NewFromInt(3)},
					{SKU: Labor.SKU, Quantity: decimal.NewFromInt(8)},
				},
			},
		},
	}
}
