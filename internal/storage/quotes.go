package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/quotewright/internal/common"
	"github.com/Veraticus/quotewright/internal/model"
	"github.com/Veraticus/quotewright/internal/service"
)

// CreateQuote inserts a new quote.
func (s *SQLiteStorage) CreateQuote(ctx context.Context, quote *model.Quote) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if quote != nil && quote.Format == "" {
		quote.Format = model.FormatStandard
	}
	if err := validateQuote(quote); err != nil {
		return err
	}
	if quote.CreatedAt.IsZero() {
		quote.CreatedAt = time.Now()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO quotes (title, quote_format, tax_rate, created_at)
		VALUES (?, ?, ?, ?)
	`, quote.Title, quote.Format, quote.TaxRate, quote.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert quote: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get quote id: %w", err)
	}
	quote.ID = id
	return nil
}

// GetQuote retrieves a quote by id.
func (s *SQLiteStorage) GetQuote(ctx context.Context, id int64) (*model.Quote, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateID(id, "id"); err != nil {
		return nil, err
	}
	return getQuoteTx(ctx, s.db, id)
}

func getQuoteTx(ctx context.Context, q queryable, id int64) (*model.Quote, error) {
	var quote model.Quote
	err := q.QueryRowContext(ctx, `
		SELECT id, title, quote_format, tax_rate, created_at
		FROM quotes WHERE id = ?
	`, id).Scan(&quote.ID, &quote.Title, &quote.Format, &quote.TaxRate, &quote.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("quote %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}
	return &quote, nil
}

// ListQuotes returns every quote, newest first.
func (s *SQLiteStorage) ListQuotes(ctx context.Context) ([]model.Quote, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, quote_format, tax_rate, created_at
		FROM quotes ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query quotes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var quotes []model.Quote
	for rows.Next() {
		var quote model.Quote
		if err := rows.Scan(&quote.ID, &quote.Title, &quote.Format, &quote.TaxRate, &quote.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan quote: %w", err)
		}
		quotes = append(quotes, quote)
	}
	return quotes, rows.Err()
}

// SetQuoteFormat stores the quote's pricing format.
func (s *SQLiteStorage) SetQuoteFormat(ctx context.Context, id int64, format model.QuoteFormat) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(id, "id"); err != nil {
		return err
	}
	if err := validateFormat(format); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `UPDATE quotes SET quote_format = ? WHERE id = ?`, format, id)
	if err != nil {
		return fmt.Errorf("failed to set quote format: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("quote %d: %w", id, common.ErrNotFound)
	}
	return nil
}

// GetQuoteGroups returns a quote's groups with their line items, both in sort order.
func (s *SQLiteStorage) GetQuoteGroups(ctx context.Context, quoteID int64) ([]model.QuoteGroup, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateID(quoteID, "quoteID"); err != nil {
		return nil, err
	}
	return getQuoteGroupsTx(ctx, s.db, quoteID)
}

func getQuoteGroupsTx(ctx context.Context, q queryable, quoteID int64) ([]model.QuoteGroup, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, quote_id, name, description, selection_mode, show_subtotal, is_collapsed, sort_order
		FROM quote_groups
		WHERE quote_id = ?
		ORDER BY sort_order, rowid
	`, quoteID)
	if err != nil {
		return nil, fmt.Errorf("failed to query quote groups: %w", err)
	}

	var groups []model.QuoteGroup
	index := make(map[string]int)
	for rows.Next() {
		var g model.QuoteGroup
		if err := rows.Scan(&g.ID, &g.QuoteID, &g.Name, &g.Description, &g.SelectionMode,
			&g.ShowSubtotal, &g.IsCollapsed, &g.SortOrder); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan quote group: %w", err)
		}
		index[g.ID] = len(groups)
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("failed to iterate quote groups: %w", err)
	}
	_ = rows.Close()

	if len(groups) == 0 {
		return groups, nil
	}

	itemRows, err := q.QueryContext(ctx, `
		SELECT li.id, li.group_id, li.pricing_item_id, li.item_type, li.title, li.description,
			li.quantity, li.unit_type, li.price_mode, li.price_modifier, li.resolved_price,
			li.previous_resolved_price, li.is_selected, li.sort_order, li.material_cost,
			li.labor_cost, li.line_sku, li.tax_rate, li.note
		FROM line_items li
		JOIN quote_groups g ON g.id = li.group_id
		WHERE g.quote_id = ?
		ORDER BY li.sort_order, li.rowid
	`, quoteID)
	if err != nil {
		return nil, fmt.Errorf("failed to query line items: %w", err)
	}
	defer func() { _ = itemRows.Close() }()

	for itemRows.Next() {
		item, err := scanLineItem(itemRows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan line item: %w", err)
		}
		if i, ok := index[item.GroupID]; ok {
			groups[i].Items = append(groups[i].Items, *item)
		}
	}
	return groups, itemRows.Err()
}

func scanLineItem(row rowScanner) (*model.LineItem, error) {
	var (
		item      model.LineItem
		pricingID sql.NullInt64
	)
	err := row.Scan(
		&item.ID,
		&item.GroupID,
		&pricingID,
		&item.ItemType,
		&item.Title,
		&item.Description,
		&item.Quantity,
		&item.UnitType,
		&item.PriceMode,
		&item.PriceModifier,
		&item.ResolvedPrice,
		&item.PreviousResolvedPrice,
		&item.IsSelected,
		&item.SortOrder,
		&item.MaterialCost,
		&item.LaborCost,
		&item.LineSKU,
		&item.TaxRate,
		&item.Note,
	)
	if err != nil {
		return nil, err
	}
	if pricingID.Valid {
		item.PricingItemID = &pricingID.Int64
	}
	return &item, nil
}

// ReplaceQuoteGroups reconciles the stored groups of a quote against the
// batch: present groups and items are upserted by id, everything else owned
// by the quote is deleted. The batch order becomes the sort order.
func (s *SQLiteStorage) ReplaceQuoteGroups(ctx context.Context, quoteID int64, groups []model.QuoteGroup) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(quoteID, "quoteID"); err != nil {
		return err
	}
	if err := validateGroups(groups); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getQuoteTx(ctx, tx, quoteID); err != nil {
			return err
		}

		keepGroups := make(map[string]struct{}, len(groups))
		keepItems := make(map[string]struct{})

		for gi := range groups {
			g := &groups[gi]
			g.QuoteID = quoteID
			g.SortOrder = gi
			if g.SelectionMode == "" {
				g.SelectionMode = model.SelectAll
			}
			if err := upsertGroupTx(ctx, tx, g); err != nil {
				return err
			}
			keepGroups[g.ID] = struct{}{}

			for ii := range g.Items {
				it := &g.Items[ii]
				it.GroupID = g.ID
				it.SortOrder = ii
				if err := upsertLineItemTx(ctx, tx, quoteID, it); err != nil {
					return err
				}
				keepItems[it.ID] = struct{}{}
			}
		}

		if err := deleteAbsentTx(ctx, tx, quoteID, keepGroups, keepItems); err != nil {
			return err
		}
		return nil
	})
}

func upsertGroupTx(ctx context.Context, tx *sql.Tx, g *model.QuoteGroup) error {
	// A group id that already belongs to another quote is rejected rather than moved.
	var owner int64
	err := tx.QueryRowContext(ctx, `SELECT quote_id FROM quote_groups WHERE id = ?`, g.ID).Scan(&owner)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("failed to check group owner: %w", err)
	case owner != g.QuoteID:
		return fmt.Errorf("%w: group %s belongs to quote %d", ErrInvalidGroup, g.ID, owner)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO quote_groups (id, quote_id, name, description, selection_mode,
			show_subtotal, is_collapsed, sort_order)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			selection_mode = excluded.selection_mode,
			show_subtotal = excluded.show_subtotal,
			is_collapsed = excluded.is_collapsed,
			sort_order = excluded.sort_order
	`, g.ID, g.QuoteID, g.Name, g.Description, g.SelectionMode,
		g.ShowSubtotal, g.IsCollapsed, g.SortOrder)
	if err != nil {
		return fmt.Errorf("failed to save group %s: %w", g.ID, err)
	}
	return nil
}

func upsertLineItemTx(ctx context.Context, tx *sql.Tx, quoteID int64, it *model.LineItem) error {
	var owner int64
	err := tx.QueryRowContext(ctx, `
		SELECT g.quote_id FROM line_items li
		JOIN quote_groups g ON g.id = li.group_id
		WHERE li.id = ?
	`, it.ID).Scan(&owner)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("failed to check line item owner: %w", err)
	case owner != quoteID:
		return fmt.Errorf("%w: line item %s belongs to quote %d", ErrInvalidLineItem, it.ID, owner)
	}

	if it.ItemType == "" {
		it.ItemType = model.ItemStandard
	}
	if it.PriceMode == "" {
		it.PriceMode = model.PriceDefault
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO line_items (id, group_id, pricing_item_id, item_type, title, description,
			quantity, unit_type, price_mode, price_modifier, resolved_price,
			previous_resolved_price, is_selected, sort_order, material_cost, labor_cost,
			line_sku, tax_rate, note)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			group_id = excluded.group_id,
			pricing_item_id = excluded.pricing_item_id,
			item_type = excluded.item_type,
			title = excluded.title,
			description = excluded.description,
			quantity = excluded.quantity,
			unit_type = excluded.unit_type,
			price_mode = excluded.price_mode,
			price_modifier = excluded.price_modifier,
			resolved_price = excluded.resolved_price,
			previous_resolved_price = excluded.previous_resolved_price,
			is_selected = excluded.is_selected,
			sort_order = excluded.sort_order,
			material_cost = excluded.material_cost,
			labor_cost = excluded.labor_cost,
			line_sku = excluded.line_sku,
			tax_rate = excluded.tax_rate,
			note = excluded.note
	`, it.ID, it.GroupID, it.PricingItemID, it.ItemType, it.Title, it.Description,
		it.Quantity, it.UnitType, it.PriceMode, it.PriceModifier, it.ResolvedPrice,
		it.PreviousResolvedPrice, it.IsSelected, it.SortOrder, it.MaterialCost, it.LaborCost,
		it.LineSKU, it.TaxRate, it.Note)
	if err != nil {
		return fmt.Errorf("failed to save line item %s: %w", it.ID, err)
	}
	return nil
}

func deleteAbsentTx(ctx context.Context, tx *sql.Tx, quoteID int64, keepGroups, keepItems map[string]struct{}) error {
	rows, err := tx.QueryContext(ctx, `
		SELECT li.id FROM line_items li
		JOIN quote_groups g ON g.id = li.group_id
		WHERE g.quote_id = ?
	`, quoteID)
	if err != nil {
		return fmt.Errorf("failed to list line items: %w", err)
	}
	var staleItems []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return fmt.Errorf("failed to scan line item id: %w", err)
		}
		if _, ok := keepItems[id]; !ok {
			staleItems = append(staleItems, id)
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return fmt.Errorf("failed to iterate line items: %w", err)
	}
	_ = rows.Close()

	for _, id := range staleItems {
		if _, err := tx.ExecContext(ctx, `DELETE FROM line_items WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete line item %s: %w", id, err)
		}
	}

	rows, err = tx.QueryContext(ctx, `SELECT id FROM quote_groups WHERE quote_id = ?`, quoteID)
	if err != nil {
		return fmt.Errorf("failed to list groups: %w", err)
	}
	var staleGroups []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return fmt.Errorf("failed to scan group id: %w", err)
		}
		if _, ok := keepGroups[id]; !ok {
			staleGroups = append(staleGroups, id)
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return fmt.Errorf("failed to iterate groups: %w", err)
	}
	_ = rows.Close()

	for _, id := range staleGroups {
		if _, err := tx.ExecContext(ctx, `DELETE FROM line_items WHERE group_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete items of group %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM quote_groups WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete group %s: %w", id, err)
		}
	}
	return nil
}

// GetQuoteContent counts the persisted groups and items of a quote.
func (s *SQLiteStorage) GetQuoteContent(ctx context.Context, quoteID int64) (service.QuoteContent, error) {
	var content service.QuoteContent
	if err := validateContext(ctx); err != nil {
		return content, err
	}
	if err := validateID(quoteID, "quoteID"); err != nil {
		return content, err
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM quote_groups WHERE quote_id = ?),
			(SELECT COUNT(*) FROM line_items li JOIN quote_groups g ON g.id = li.group_id WHERE g.quote_id = ?)
	`, quoteID, quoteID).Scan(&content.Groups, &content.Items)
	if err != nil {
		return content, fmt.Errorf("failed to count quote content: %w", err)
	}
	return content, nil
}
