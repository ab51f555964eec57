package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/quotewright/internal/model"
)

func twoGroups() []model.QuoteGroup {
	item := func(id, group string) model.LineItem {
		return model.LineItem{ID: id, GroupID: group, Quantity: decimal.NewFromInt(1)}
	}
	return []model.QuoteGroup{
		{ID: "g1", Name: "Kitchen", SelectionMode: model.SelectSingle, ShowSubtotal: true,
			Items: []model.LineItem{item("a", "g1"), item("b", "g1")}},
		{ID: "g2", Name: "Bath", SelectionMode: model.SelectMulti, ShowSubtotal: true, SortOrder: 1,
			Items: []model.LineItem{item("c", "g2"), item("d", "g2"), item("e", "g2")}},
	}
}

func TestSwitchFormat_ToInsuranceCollapses(t *testing.T) {
	groups := twoGroups()
	got := SwitchFormat(groups, model.FormatInsurance)

	require.Len(t, got, 1)
	g := got[0]
	assert.Equal(t, "g1", g.ID)
	assert.Equal(t, model.SelectAll, g.SelectionMode)
	assert.False(t, g.ShowSubtotal)
	require.Len(t, g.Items, 5)
	for i, it := range g.Items {
		assert.Equal(t, "g1", it.GroupID)
		assert.Equal(t, i, it.SortOrder)
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, []string{g.Items[0].ID, g.Items[1].ID, g.Items[2].ID, g.Items[3].ID, g.Items[4].ID})

	assert.Equal(t, "g2", groups[1].Items[0].GroupID, "input is not modified")
}

func TestSwitchFormat_BackToStandardIsLossy(t *testing.T) {
	collapsed := SwitchFormat(twoGroups(), model.FormatInsurance)
	back := SwitchFormat(collapsed, model.FormatStandard)

	require.Len(t, back, 1)
	assert.Equal(t, model.SelectAll, back[0].SelectionMode)
	assert.Len(t, back[0].Items, 5)
}

func TestDraftWithFormat(t *testing.T) {
	draft := Draft{Format: model.FormatStandard, Groups: []Group{
		{ID: "g1", Mode: model.SelectSingle, ShowSubtotal: true, Lines: []Line{{ID: "a"}, {ID: "b"}}},
		{ID: "g2", Mode: model.SelectMulti, Lines: []Line{{ID: "c"}, {ID: "d"}, {ID: "e"}}},
	}}

	ins := draft.WithFormat(model.FormatInsurance)
	assert.Equal(t, model.FormatInsurance, ins.Format)
	require.Len(t, ins.Groups, 1)
	assert.Len(t, ins.Groups[0].Lines, 5)
	assert.Equal(t, model.SelectAll, ins.Groups[0].Mode)
	assert.False(t, ins.Groups[0].ShowSubtotal)
	assert.Len(t, draft.Groups, 2)

	std := ins.WithFormat(model.FormatStandard)
	assert.Equal(t, model.FormatStandard, std.Format)
	assert.Len(t, std.Groups, 1)
}

func TestDraftFromQuote(t *testing.T) {
	catalogID := int64(7)
	groups := []model.QuoteGroup{{ID: "g1", SelectionMode: model.SelectAll, Items: []model.LineItem{
		{ID: "a", PricingItemID: &catalogID, Quantity: decimal.NewFromInt(2), PriceMode: model.PriceAddition,
			PriceModifier: decimal.NewFromInt(5), ResolvedPrice: decimal.NewFromInt(25)},
		{ID: "b", Quantity: decimal.NewFromInt(1), PriceMode: model.PriceOverride,
			PriceModifier: decimal.RequireFromString("7.5"), ResolvedPrice: decimal.RequireFromString("7.5")},
	}}}

	draft := DraftFromQuote(model.Quote{Format: model.FormatStandard}, groups, BasePrices{7: decimal.NewFromInt(20)})
	got := Aggregate(draft, Settings{})

	assert.Equal(t, "$+5", draft.Groups[0].Lines[0].Formula)
	assert.True(t, draft.Groups[0].Lines[1].BasePrice.IsZero(), "custom lines have no base")
	assert.True(t, got.GrandTotal.Equal(decimal.RequireFromString("57.5")))
}
