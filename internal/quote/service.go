// Package quote saves quote groups and line items with server-side pricing
// and computes quote totals.
package quote

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/quotewright/internal/common"
	"github.com/Veraticus/quotewright/internal/formula"
	"github.com/Veraticus/quotewright/internal/model"
	"github.com/Veraticus/quotewright/internal/pricing"
	"github.com/Veraticus/quotewright/internal/service"
)

// Config holds the pricing configuration of the service.
type Config struct {
	Rounding formula.Rounding
}

// DefaultConfig rounds to the nearest whole unit.
func DefaultConfig() Config {
	return Config{
		Rounding: formula.Rounding{Multiple: decimal.NewFromInt(1), Direction: formula.Nearest},
	}
}

// Service owns the quote write path.
type Service struct {
	store    service.Storage
	logger   *slog.Logger
	settings pricing.Settings
}

// New creates a quote service with the default configuration.
func New(store service.Storage, logger *slog.Logger) *Service {
	return NewWithConfig(store, DefaultConfig(), logger)
}

// NewWithConfig creates a quote service with a custom configuration.
func NewWithConfig(store service.Storage, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    store,
		logger:   logger,
		settings: pricing.Settings{Rounding: cfg.Rounding},
	}
}

// Settings returns the pricing settings used for totals.
func (s *Service) Settings() pricing.Settings {
	return s.settings
}

// GroupInput is one group of a batch save as sent by an editor.
type GroupInput struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	Description   string              `json:"description"`
	SelectionMode model.SelectionMode `json:"selection_mode"`
	Items         []LineInput         `json:"items"`
	ShowSubtotal  bool                `json:"show_subtotal"`
	IsCollapsed   bool                `json:"is_collapsed"`
}

// LineInput is one line of a batch save. Quantity and Formula are the raw
// field texts; ResolvedPrice is ignored and recomputed.
type LineInput struct {
	PricingItemID *int64              `json:"pricing_item_id,omitempty"`
	MaterialCost  decimal.NullDecimal `json:"material_cost"`
	LaborCost     decimal.NullDecimal `json:"labor_cost"`
	TaxRate       decimal.NullDecimal `json:"tax_rate"`
	ID            string              `json:"id"`
	ItemType      model.ItemType      `json:"item_type"`
	Title         string              `json:"title"`
	Description   string              `json:"description"`
	Quantity      string              `json:"quantity"`
	UnitType      string              `json:"unit_type"`
	Formula       string              `json:"formula"`
	LineSKU       string              `json:"line_sku"`
	Note          string              `json:"note"`
	IsSelected    bool                `json:"is_selected"`
}

// SaveResult is the outcome of a batch save. Invalid lists the ids of lines
// whose quantity or formula text was rejected and kept its previous value.
type SaveResult struct {
	Groups  []model.QuoteGroup  `json:"groups"`
	Invalid []string            `json:"invalid,omitempty"`
	Totals  pricing.QuoteTotals `json:"-"`
}

// SaveGroups reconciles the stored groups of a quote with the batch. Lines
// and groups without an id get a fresh one. Every resolved price is
// recomputed from the formula and the current catalog price. Insurance
// quotes price lines at material plus labor and keep a single group with
// every line counted.
func (s *Service) SaveGroups(ctx context.Context, quoteID int64, inputs []GroupInput) (*SaveResult, error) {
	q, err := s.store.GetQuote(ctx, quoteID)
	if err != nil {
		return nil, fmt.Errorf("failed to load quote %d: %w", quoteID, err)
	}

	stored, err := s.store.GetQuoteGroups(ctx, quoteID)
	if err != nil {
		return nil, fmt.Errorf("failed to load stored groups: %w", err)
	}
	previous := indexItems(stored)

	prices, err := s.store.GetCatalogPrices(ctx, pricingIDs(inputs))
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog prices: %w", err)
	}

	result := &SaveResult{Groups: make([]model.QuoteGroup, 0, len(inputs))}
	for _, in := range inputs {
		mode, err := model.ParseSelectionMode(string(in.SelectionMode))
		if err != nil {
			return nil, fmt.Errorf("%w: group %s: %v", common.ErrInvalidInput, in.ID, err)
		}

		g := model.QuoteGroup{
			ID:            idOrNew(in.ID),
			QuoteID:       quoteID,
			Name:          in.Name,
			Description:   in.Description,
			SelectionMode: mode,
			ShowSubtotal:  in.ShowSubtotal,
			IsCollapsed:   in.IsCollapsed,
			Items:         make([]model.LineItem, 0, len(in.Items)),
		}

		for _, li := range in.Items {
			item, ok := s.priceLine(li, q.Format, pricing.BasePrices(prices), previous)
			item.GroupID = g.ID
			if !ok {
				result.Invalid = append(result.Invalid, item.ID)
			}
			g.Items = append(g.Items, item)
		}
		result.Groups = append(result.Groups, g)
	}
	if q.Format == model.FormatInsurance {
		result.Groups = pricing.SwitchFormat(result.Groups, model.FormatInsurance)
	}

	if err := s.store.ReplaceQuoteGroups(ctx, quoteID, result.Groups); err != nil {
		return nil, fmt.Errorf("failed to save groups: %w", err)
	}

	s.logger.Info("Saved quote groups",
		"quote_id", quoteID,
		"groups", len(result.Groups),
		"items", model.ItemCount(result.Groups),
		"invalid", len(result.Invalid))

	result.Totals = pricing.Aggregate(pricing.DraftFromQuote(*q, result.Groups, prices), s.settings)
	return result, nil
}

// priceLine converts an input line and computes its resolved price. The
// second return is false when a field text was rejected.
func (s *Service) priceLine(in LineInput, format model.QuoteFormat, prices pricing.BasePrices, previous map[string]model.LineItem) (model.LineItem, bool) {
	prior, existed := previous[in.ID]

	item := model.LineItem{
		ID:            idOrNew(in.ID),
		PricingItemID: in.PricingItemID,
		ItemType:      in.ItemType,
		Title:         in.Title,
		Description:   in.Description,
		UnitType:      in.UnitType,
		MaterialCost:  in.MaterialCost,
		LaborCost:     in.LaborCost,
		TaxRate:       in.TaxRate,
		LineSKU:       in.LineSKU,
		Note:          in.Note,
		IsSelected:    in.IsSelected,
	}
	if item.ItemType == "" {
		item.ItemType = model.ItemStandard
	}

	valid := true

	fallbackQty := decimal.NewFromInt(1)
	if existed {
		fallbackQty = prior.Quantity
	}
	qty, ok := formula.EvalExpression(in.Quantity, fallbackQty)
	if !ok {
		valid = false
	}
	item.Quantity = qty

	base := prices.Base(in.PricingItemID)
	f := formula.Parse(in.Formula)
	switch {
	case f.Valid():
		item.PriceMode = f.Mode
		item.PriceModifier = f.Modifier
		item.ResolvedPrice = formula.ResolveMode(f.Mode, f.Modifier, base, s.settings.Rounding)
	case existed:
		item.PriceMode = prior.PriceMode
		item.PriceModifier = prior.PriceModifier
		item.ResolvedPrice = prior.ResolvedPrice
	default:
		item.PriceMode = model.PriceDefault
		item.PriceModifier = decimal.Zero
		item.ResolvedPrice = formula.ResolveMode(model.PriceDefault, decimal.Zero, base, s.settings.Rounding)
	}

	// Insurance rates are read-only: the stored formula is kept for a later
	// switch back to standard, but the price is material plus labor.
	if format == model.FormatInsurance {
		item.ResolvedPrice = item.CostTotal().Round(2)
	} else if !f.Valid() {
		valid = false
	}

	if existed {
		item.PreviousResolvedPrice = prior.PreviousResolvedPrice
		if !prior.ResolvedPrice.Equal(item.ResolvedPrice) {
			item.PreviousResolvedPrice = decimal.NewNullDecimal(prior.ResolvedPrice)
		}
	}

	if !valid {
		s.logger.Debug("Kept previous value for invalid line field",
			"line_id", item.ID,
			"quantity", in.Quantity,
			"formula", in.Formula)
	}
	return item, valid
}

// Groups returns the stored groups of a quote.
func (s *Service) Groups(ctx context.Context, quoteID int64) ([]model.QuoteGroup, error) {
	groups, err := s.store.GetQuoteGroups(ctx, quoteID)
	if err != nil {
		return nil, fmt.Errorf("failed to load groups of quote %d: %w", quoteID, err)
	}
	return groups, nil
}

// Draft loads a quote as an editable pricing draft.
func (s *Service) Draft(ctx context.Context, quoteID int64) (*model.Quote, pricing.Draft, error) {
	q, err := s.store.GetQuote(ctx, quoteID)
	if err != nil {
		return nil, pricing.Draft{}, fmt.Errorf("failed to load quote %d: %w", quoteID, err)
	}
	groups, err := s.store.GetQuoteGroups(ctx, quoteID)
	if err != nil {
		return nil, pricing.Draft{}, fmt.Errorf("failed to load groups of quote %d: %w", quoteID, err)
	}
	prices, err := s.store.GetCatalogPrices(ctx, storedPricingIDs(groups))
	if err != nil {
		return nil, pricing.Draft{}, fmt.Errorf("failed to load catalog prices: %w", err)
	}
	return q, pricing.DraftFromQuote(*q, groups, prices), nil
}

// Totals computes the totals of a stored quote.
func (s *Service) Totals(ctx context.Context, quoteID int64) (pricing.QuoteTotals, error) {
	_, draft, err := s.Draft(ctx, quoteID)
	if err != nil {
		return pricing.QuoteTotals{}, err
	}
	return pricing.Aggregate(draft, s.settings), nil
}

// SetFormat switches a quote between standard and insurance pricing.
// Switching to insurance collapses every group into the first one; the
// collapse is not undone when switching back. Lines are repriced for the
// new format.
func (s *Service) SetFormat(ctx context.Context, quoteID int64, to model.QuoteFormat) ([]model.QuoteGroup, error) {
	format, err := model.ParseQuoteFormat(string(to))
	if err != nil || strings.TrimSpace(string(to)) == "" {
		return nil, fmt.Errorf("%w: %q", common.ErrInvalidFormat, to)
	}

	q, err := s.store.GetQuote(ctx, quoteID)
	if err != nil {
		return nil, fmt.Errorf("failed to load quote %d: %w", quoteID, err)
	}

	groups, err := s.store.GetQuoteGroups(ctx, quoteID)
	if err != nil {
		return nil, fmt.Errorf("failed to load groups of quote %d: %w", quoteID, err)
	}
	if q.Format == format {
		return groups, nil
	}

	prices, err := s.store.GetCatalogPrices(ctx, storedPricingIDs(groups))
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog prices: %w", err)
	}

	groups = pricing.SwitchFormat(groups, format)
	for gi := range groups {
		for ii := range groups[gi].Items {
			s.reprice(&groups[gi].Items[ii], format, pricing.BasePrices(prices))
		}
	}

	if err := s.store.ReplaceQuoteGroups(ctx, quoteID, groups); err != nil {
		return nil, fmt.Errorf("failed to save collapsed groups: %w", err)
	}
	if err := s.store.SetQuoteFormat(ctx, quoteID, format); err != nil {
		return nil, fmt.Errorf("failed to save quote format: %w", err)
	}

	s.logger.Info("Switched quote format",
		"quote_id", quoteID,
		"from", q.Format,
		"to", format,
		"groups", len(groups))
	return groups, nil
}

// reprice recomputes a stored line for a format.
func (s *Service) reprice(it *model.LineItem, format model.QuoteFormat, prices pricing.BasePrices) {
	before := it.ResolvedPrice
	if format == model.FormatInsurance {
		it.ResolvedPrice = it.CostTotal().Round(2)
	} else {
		it.ResolvedPrice = formula.ResolveMode(it.PriceMode, it.PriceModifier, prices.Base(it.PricingItemID), s.settings.Rounding)
	}
	if !before.Equal(it.ResolvedPrice) {
		it.PreviousResolvedPrice = decimal.NewNullDecimal(before)
	}
}

// InputsFromGroups turns stored groups back into batch inputs, so a quote
// can be edited and saved whole. Formulas are rendered from the stored mode
// and modifier.
func InputsFromGroups(groups []model.QuoteGroup) []GroupInput {
	out := make([]GroupInput, 0, len(groups))
	for _, g := range groups {
		in := GroupInput{
			ID:            g.ID,
			Name:          g.Name,
			Description:   g.Description,
			SelectionMode: g.SelectionMode,
			ShowSubtotal:  g.ShowSubtotal,
			IsCollapsed:   g.IsCollapsed,
			Items:         make([]LineInput, 0, len(g.Items)),
		}
		for _, it := range g.Items {
			in.Items = append(in.Items, LineInput{
				PricingItemID: it.PricingItemID,
				MaterialCost:  it.MaterialCost,
				LaborCost:     it.LaborCost,
				TaxRate:       it.TaxRate,
				ID:            it.ID,
				ItemType:      it.ItemType,
				Title:         it.Title,
				Description:   it.Description,
				Quantity:      it.Quantity.String(),
				UnitType:      it.UnitType,
				Formula:       formula.Format(it.PriceMode, it.PriceModifier),
				LineSKU:       it.LineSKU,
				Note:          it.Note,
				IsSelected:    it.IsSelected,
			})
		}
		out = append(out, in)
	}
	return out
}

func idOrNew(id string) string {
	if strings.TrimSpace(id) == "" {
		return uuid.NewString()
	}
	return id
}

func indexItems(groups []model.QuoteGroup) map[string]model.LineItem {
	out := make(map[string]model.LineItem)
	for _, g := range groups {
		for _, it := range g.Items {
			out[it.ID] = it
		}
	}
	return out
}

func pricingIDs(inputs []GroupInput) []int64 {
	seen := make(map[int64]struct{})
	var ids []int64
	for _, g := range inputs {
		for _, li := range g.Items {
			if li.PricingItemID == nil {
				continue
			}
			if _, ok := seen[*li.PricingItemID]; ok {
				continue
			}
			seen[*li.PricingItemID] = struct{}{}
			ids = append(ids, *li.PricingItemID)
		}
	}
	return ids
}

func storedPricingIDs(groups []model.QuoteGroup) []int64 {
	seen := make(map[int64]struct{})
	var ids []int64
	for _, g := range groups {
		for _, it := range g.Items {
			if it.PricingItemID == nil {
				continue
			}
			if _, ok := seen[*it.PricingItemID]; ok {
				continue
			}
			seen[*it.PricingItemID] = struct{}{}
			ids = append(ids, *it.PricingItemID)
		}
	}
	return ids
}
