package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/Veraticus/quotewright/internal/common"
	"github.com/Veraticus/quotewright/internal/model"
)

// importColumns are the recognized header names of an import sheet.
var importColumns = []string{"sku", "title", "description", "unit_type", "unit_price", "category", "trade_id", "sort_order", "active"}

// ImportOptions controls a spreadsheet import.
type ImportOptions struct {
	// Progress receives a progress bar when set.
	Progress io.Writer
	Sheet    string
	Catalog  model.CatalogType
}

// ImportResult summarizes an import.
type ImportResult struct {
	Skipped      []string
	Created      int
	Updated      int
	PriceChanged int
}

// ImportXLSX upserts catalog items by sku from the first sheet (or the named
// sheet) of a workbook. The first row is a header naming the columns;
// sku, title and unit_price are required.
func (s *Service) ImportXLSX(ctx context.Context, r io.Reader, opts ImportOptions) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Warn("Failed to close workbook", "error", err)
		}
	}()

	sheet := opts.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return &ImportResult{}, nil
	}

	cols, err := headerIndex(rows[0])
	if err != nil {
		return nil, err
	}

	catalog := opts.Catalog
	if catalog == "" {
		catalog = model.CatalogStandard
	}

	var bar *progressbar.ProgressBar
	if opts.Progress != nil {
		bar = progressbar.NewOptions(len(rows)-1,
			progressbar.OptionSetWriter(opts.Progress),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription("[cyan][bold]Importing catalog...[reset]"),
			progressbar.OptionOnCompletion(func() {
				_, _ = fmt.Fprintln(opts.Progress)
			}),
		)
	}

	result := &ImportResult{}
	for i, row := range rows[1:] {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		rowNum := i + 2

		item, err := parseImportRow(row, cols, catalog)
		if err != nil {
			result.Skipped = append(result.Skipped, fmt.Sprintf("row %d: %v", rowNum, err))
		} else if err := s.upsertImported(ctx, item, result); err != nil {
			return result, fmt.Errorf("row %d: %w", rowNum, err)
		}

		if bar != nil {
			if err := bar.Add(1); err != nil {
				slog.Warn("Failed to update progress bar", "error", err)
			}
		}
	}

	s.cache.clear()
	s.logger.Info("Imported catalog",
		"catalog", catalog,
		"created", result.Created,
		"updated", result.Updated,
		"price_changed", result.PriceChanged,
		"skipped", len(result.Skipped))
	return result, nil
}

func (s *Service) upsertImported(ctx context.Context, item *model.CatalogItem, result *ImportResult) error {
	existing, err := s.store.GetCatalogItemBySKU(ctx, item.CatalogType, item.SKU)
	if errors.Is(err, common.ErrNotFound) {
		if err := s.store.CreateCatalogItem(ctx, item); err != nil {
			return err
		}
		result.Created++
		return nil
	}
	if err != nil {
		return err
	}

	priceChanged := !existing.UnitPrice.Round(2).Equal(item.UnitPrice.Round(2))
	item.ID = existing.ID
	if err := s.store.UpdateCatalogItem(ctx, item); err != nil {
		return err
	}
	result.Updated++
	if priceChanged {
		result.PriceChanged++
	}
	return nil
}

func headerIndex(header []string) (map[string]int, error) {
	cols := make(map[string]int)
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		name = strings.ReplaceAll(name, " ", "_")
		for _, known := range importColumns {
			if name == known {
				cols[name] = i
			}
		}
	}
	for _, required := range []string{"sku", "title", "unit_price"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%w: import sheet has no %q column", common.ErrInvalidInput, required)
		}
	}
	return cols, nil
}

func parseImportRow(row []string, cols map[string]int, catalog model.CatalogType) (*model.CatalogItem, error) {
	cell := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	item := &model.CatalogItem{
		SKU:         cell("sku"),
		Title:       cell("title"),
		Description: cell("description"),
		UnitType:    cell("unit_type"),
		Category:    cell("category"),
		CatalogType: catalog,
		IsActive:    true,
	}
	if item.SKU == "" {
		return nil, errors.New("missing sku")
	}
	if item.Title == "" {
		return nil, errors.New("missing title")
	}

	price, err := decimal.NewFromString(strings.TrimPrefix(cell("unit_price"), "$"))
	if err != nil {
		return nil, fmt.Errorf("invalid unit_price %q", cell("unit_price"))
	}
	item.UnitPrice = price

	if v := cell("trade_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid trade_id %q", v)
		}
		item.TradeID = &id
	}
	if v := cell("sort_order"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid sort_order %q", v)
		}
		item.SortOrder = n
	}
	if v := cell("active"); v != "" {
		active, err := strconv.ParseBool(strings.ToLower(v))
		if err != nil {
			return nil, fmt.Errorf("invalid active flag %q", v)
		}
		item.IsActive = active
	}
	return item, nil
}
