package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/Veraticus/quotewright/internal/common"
	"github.com/Veraticus/quotewright/internal/model"
	"github.com/Veraticus/quotewright/internal/pricing"
)

// PresetReason explains why a preset was not applied.
type PresetReason string

// Preset rejection reasons.
const (
	ReasonNoPreset          PresetReason = "no_preset"
	ReasonAlreadyPopulated  PresetReason = "already_populated"
	ReasonUnsupportedFormat PresetReason = "unsupported_format"
)

// PresetRequest asks for a trade preset to populate a quote. An empty
// Format uses the quote's format. Persist stores the built groups.
type PresetRequest struct {
	Format  model.QuoteFormat `json:"quote_format"`
	QuoteID int64             `json:"quote_id"`
	TradeID int64             `json:"trade_id"`
	Persist bool              `json:"-"`
}

// PresetResult is either a rejection with a reason or the built group tree.
type PresetResult struct {
	Reason       PresetReason       `json:"reason,omitempty"`
	Message      string             `json:"message,omitempty"`
	Groups       []model.QuoteGroup `json:"groups,omitempty"`
	MissingCount int                `json:"missing_count"`
	Applied      bool               `json:"applied"`
}

func rejected(reason PresetReason, format string, args ...any) PresetResult {
	return PresetResult{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// ApplyPreset builds the preset's groups for a quote. Presets only apply to
// quotes without persisted groups or items. Preset skus missing from the
// catalog are dropped and counted.
func (s *Service) ApplyPreset(ctx context.Context, req PresetRequest) (PresetResult, error) {
	q, err := s.store.GetQuote(ctx, req.QuoteID)
	if err != nil {
		return PresetResult{}, fmt.Errorf("failed to load quote %d: %w", req.QuoteID, err)
	}

	format := q.Format
	if req.Format != "" {
		if format, err = model.ParseQuoteFormat(string(req.Format)); err != nil {
			return PresetResult{}, fmt.Errorf("%w: %v", common.ErrInvalidFormat, err)
		}
	}

	content, err := s.store.GetQuoteContent(ctx, req.QuoteID)
	if err != nil {
		return PresetResult{}, fmt.Errorf("failed to inspect quote %d: %w", req.QuoteID, err)
	}
	if !content.Empty() {
		return rejected(ReasonAlreadyPopulated,
			"Quote already has %d groups and %d items; presets only apply to empty quotes.",
			content.Groups, content.Items), nil
	}

	preset, err := s.store.GetTradePreset(ctx, req.TradeID, format)
	if errors.Is(err, common.ErrNotFound) {
		formats, ferr := s.store.GetTradePresetFormats(ctx, req.TradeID)
		if ferr != nil {
			return PresetResult{}, fmt.Errorf("failed to list preset formats: %w", ferr)
		}
		if len(formats) > 0 {
			return rejected(ReasonUnsupportedFormat,
				"This trade has no %s preset.", format), nil
		}
		return rejected(ReasonNoPreset, "No preset is configured for this trade."), nil
	}
	if err != nil {
		return PresetResult{}, fmt.Errorf("failed to load preset: %w", err)
	}

	groups, missing, err := s.buildPresetGroups(ctx, preset, format)
	if err != nil {
		return PresetResult{}, err
	}
	for i := range groups {
		groups[i].QuoteID = req.QuoteID
	}

	if req.Persist {
		if err := s.store.ReplaceQuoteGroups(ctx, req.QuoteID, groups); err != nil {
			return PresetResult{}, fmt.Errorf("failed to save preset groups: %w", err)
		}
	}

	s.logger.Info("Applied trade preset",
		"quote_id", req.QuoteID,
		"trade_id", req.TradeID,
		"format", format,
		"groups", len(groups),
		"items", model.ItemCount(groups),
		"missing", missing)

	return PresetResult{Applied: true, Groups: groups, MissingCount: missing}, nil
}

// buildPresetGroups prices every preset item from the catalog of the format.
// Insurance lines carry the catalog price as material cost.
func (s *Service) buildPresetGroups(ctx context.Context, preset *model.TradePreset, format model.QuoteFormat) ([]model.QuoteGroup, int, error) {
	catalog := format.CatalogType()
	missing := 0
	groups := make([]model.QuoteGroup, 0, len(preset.Groups))

	for gi, pg := range preset.Groups {
		mode, err := model.ParseSelectionMode(string(pg.SelectionMode))
		if err != nil {
			mode = model.SelectAll
		}
		g := model.QuoteGroup{
			ID:            uuid.NewString(),
			Name:          pg.Name,
			Description:   pg.Description,
			SelectionMode: mode,
			ShowSubtotal:  pg.ShowSubtotal,
			SortOrder:     gi,
		}

		for _, pi := range pg.Items {
			item, err := s.store.GetCatalogItemBySKU(ctx, catalog, pi.SKU)
			if errors.Is(err, common.ErrNotFound) || (err == nil && !item.IsActive) {
				missing++
				continue
			}
			if err != nil {
				return nil, 0, fmt.Errorf("failed to look up sku %s: %w", pi.SKU, err)
			}

			qty := pi.Quantity
			if qty.IsZero() {
				qty = decimal.NewFromInt(1)
			}
			id := item.ID
			line := model.LineItem{
				ID:            uuid.NewString(),
				GroupID:       g.ID,
				PricingItemID: &id,
				ItemType:      model.ItemStandard,
				Title:         item.Title,
				Description:   item.Description,
				Quantity:      qty,
				UnitType:      item.UnitType,
				PriceMode:     model.PriceDefault,
				PriceModifier: decimal.Zero,
				ResolvedPrice: item.UnitPrice.Round(2),
				LineSKU:       item.SKU,
				SortOrder:     len(g.Items),
			}
			if format == model.FormatInsurance {
				line.MaterialCost = decimal.NewNullDecimal(item.UnitPrice.Round(2))
			}
			g.Items = append(g.Items, line)
		}
		groups = append(groups, g)
	}

	return pricing.SwitchFormat(groups, format), missing, nil
}

// presetFile is the on-disk shape of a preset document.
type presetFile struct {
	Presets []model.TradePreset `yaml:"presets"`
}

// LoadPresets reads trade presets from a YAML file, or from every .yaml
// and .yml file of a directory.
func LoadPresets(path string) ([]model.TradePreset, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat preset path: %w", err)
	}

	files := []string{path}
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read preset directory: %w", err)
		}
		files = files[:0]
		for _, e := range entries {
			ext := strings.ToLower(filepath.Ext(e.Name()))
			if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
				files = append(files, filepath.Join(path, e.Name()))
			}
		}
		slices.Sort(files)
	}

	var presets []model.TradePreset
	for _, f := range files {
		loaded, err := loadPresetFile(f)
		if err != nil {
			return nil, err
		}
		presets = append(presets, loaded...)
	}
	return presets, nil
}

func loadPresetFile(path string) ([]model.TradePreset, error) {
	// #nosec G304 - path is supplied by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read preset file %s: %w", path, err)
	}

	var doc presetFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse preset file %s: %w", path, err)
	}

	for i := range doc.Presets {
		p := &doc.Presets[i]
		if p.Format == "" {
			p.Format = model.FormatStandard
		}
		if _, err := model.ParseQuoteFormat(string(p.Format)); err != nil {
			return nil, fmt.Errorf("%s: preset %q: %w", path, p.Name, err)
		}
		if p.TradeID <= 0 {
			return nil, fmt.Errorf("%s: preset %q: %w: trade_id must be positive", path, p.Name, common.ErrInvalidInput)
		}
	}
	return doc.Presets, nil
}

// ImportPresets stores presets, replacing existing ones for the same trade
// and format.
func (s *Service) ImportPresets(ctx context.Context, presets []model.TradePreset) error {
	for i := range presets {
		if err := s.store.SaveTradePreset(ctx, &presets[i]); err != nil {
			return fmt.Errorf("failed to save preset %q: %w", presets[i].Name, err)
		}
	}
	s.logger.Info("Imported trade presets", "count", len(presets))
	return nil
}
