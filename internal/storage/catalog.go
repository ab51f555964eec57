package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/quotewright/internal/common"
	"github.com/Veraticus/quotewright/internal/model"
	"github.com/Veraticus/quotewright/internal/service"
)

const catalogColumns = `id, sku, title, description, unit_type, unit_price, trade_id,
	category, sort_order, is_active, catalog_type, updated_at`

// CreateCatalogItem inserts a new catalog item and records its opening price.
func (s *SQLiteStorage) CreateCatalogItem(ctx context.Context, item *model.CatalogItem) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCatalogItem(item); err != nil {
		return err
	}

	item.UnitPrice = item.UnitPrice.Round(2)
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = time.Now()
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO catalog_items (sku, title, description, unit_type, unit_price, trade_id,
				category, sort_order, is_active, catalog_type, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, item.SKU, item.Title, item.Description, item.UnitType, item.UnitPrice, item.TradeID,
			item.Category, item.SortOrder, item.IsActive, item.CatalogType, item.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: sku %s in %s catalog", common.ErrDuplicateEntry, item.SKU, item.CatalogType)
			}
			return fmt.Errorf("failed to insert catalog item: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get catalog item id: %w", err)
		}
		item.ID = id

		if err := appendPriceTx(ctx, tx, id, item.UnitPrice, item.UpdatedAt); err != nil {
			return err
		}
		item.PriceHistory = []model.PricePoint{{Date: item.UpdatedAt, Price: item.UnitPrice}}
		return nil
	})
}

// UpdateCatalogItem saves descriptive fields of an item. A changed unit price
// goes through the same history rule as SetCatalogPrice.
func (s *SQLiteStorage) UpdateCatalogItem(ctx context.Context, item *model.CatalogItem) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCatalogItem(item); err != nil {
		return err
	}
	if err := validateID(item.ID, "item.ID"); err != nil {
		return err
	}

	now := time.Now()
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE catalog_items
			SET sku = ?, title = ?, description = ?, unit_type = ?, trade_id = ?,
				category = ?, sort_order = ?, is_active = ?, catalog_type = ?, updated_at = ?
			WHERE id = ?
		`, item.SKU, item.Title, item.Description, item.UnitType, item.TradeID,
			item.Category, item.SortOrder, item.IsActive, item.CatalogType, now, item.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: sku %s in %s catalog", common.ErrDuplicateEntry, item.SKU, item.CatalogType)
			}
			return fmt.Errorf("failed to update catalog item: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return fmt.Errorf("catalog item %d: %w", item.ID, common.ErrNotFound)
		}

		_, err = setPriceTx(ctx, tx, item.ID, item.UnitPrice, now)
		return err
	})
	if err != nil {
		return err
	}

	s.invalidateItem(item.ID)
	item.UpdatedAt = now
	item.UnitPrice = item.UnitPrice.Round(2)
	return nil
}

// SetCatalogPrice changes an item's unit price. It reports whether the price
// actually changed; history grows only when the rounded price differs.
func (s *SQLiteStorage) SetCatalogPrice(ctx context.Context, id int64, price decimal.Decimal) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateID(id, "id"); err != nil {
		return false, err
	}

	var changed bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		changed, err = setPriceTx(ctx, tx, id, price, time.Now())
		return err
	})
	if err != nil {
		return false, err
	}
	if changed {
		s.invalidateItem(id)
	}
	return changed, nil
}

func setPriceTx(ctx context.Context, tx *sql.Tx, id int64, price decimal.Decimal, at time.Time) (bool, error) {
	var current decimal.Decimal
	err := tx.QueryRowContext(ctx, `SELECT unit_price FROM catalog_items WHERE id = ?`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("catalog item %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return false, fmt.Errorf("failed to read current price: %w", err)
	}

	rounded := price.Round(2)
	if rounded.Equal(current.Round(2)) {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE catalog_items SET unit_price = ?, updated_at = ? WHERE id = ?
	`, rounded, at, id); err != nil {
		return false, fmt.Errorf("failed to update price: %w", err)
	}
	if err := appendPriceTx(ctx, tx, id, rounded, at); err != nil {
		return false, err
	}
	return true, nil
}

func appendPriceTx(ctx context.Context, q queryable, id int64, price decimal.Decimal, at time.Time) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO price_history (item_id, price, recorded_at) VALUES (?, ?, ?)
	`, id, price, at)
	if err != nil {
		return fmt.Errorf("failed to record price history: %w", err)
	}
	return nil
}

// GetCatalogItem retrieves a catalog item with its price history.
func (s *SQLiteStorage) GetCatalogItem(ctx context.Context, id int64) (*model.CatalogItem, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateID(id, "id"); err != nil {
		return nil, err
	}

	if item := s.getCachedItem(id); item != nil {
		return item, nil
	}

	item, err := scanCatalogItem(s.db.QueryRowContext(ctx,
		`SELECT `+catalogColumns+` FROM catalog_items WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("catalog item %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog item: %w", err)
	}

	history, err := s.priceHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	item.PriceHistory = history

	s.cacheItem(item)
	return item, nil
}

// GetCatalogItemBySKU looks up an item within one catalog.
func (s *SQLiteStorage) GetCatalogItemBySKU(ctx context.Context, catalogType model.CatalogType, sku string) (*model.CatalogItem, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(sku, "sku"); err != nil {
		return nil, err
	}

	item, err := scanCatalogItem(s.db.QueryRowContext(ctx,
		`SELECT `+catalogColumns+` FROM catalog_items WHERE catalog_type = ? AND sku = ?`,
		catalogType, sku))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sku %s: %w", sku, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog item by sku: %w", err)
	}
	return item, nil
}

// ListCatalogItems returns items matching the filter, ordered for display.
func (s *SQLiteStorage) ListCatalogItems(ctx context.Context, filter service.CatalogFilter) ([]model.CatalogItem, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var (
		where []string
		args  []any
	)
	if filter.CatalogType != "" {
		where = append(where, "catalog_type = ?")
		args = append(args, filter.CatalogType)
	}
	if filter.ActiveOnly {
		where = append(where, "is_active = 1")
	}
	if filter.TradeID != nil {
		where = append(where, "trade_id = ?")
		args = append(args, *filter.TradeID)
	}
	if term := strings.TrimSpace(filter.Term); term != "" {
		like := "%" + escapeLike(strings.ToLower(term)) + "%"
		where = append(where, `(LOWER(sku) LIKE ? ESCAPE '\' OR LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\')`)
		args = append(args, like, like, like)
	}

	query := `SELECT ` + catalogColumns + ` FROM catalog_items`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY sort_order, title, id"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []model.CatalogItem
	for rows.Next() {
		item, err := scanCatalogItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan catalog item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// GetCatalogPrices returns the current unit price for each known id.
// Unknown ids are absent from the result.
func (s *SQLiteStorage) GetCatalogPrices(ctx context.Context, ids []int64) (map[int64]decimal.Decimal, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	prices := make(map[int64]decimal.Decimal, len(ids))
	if len(ids) == 0 {
		return prices, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, unit_price FROM catalog_items WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog prices: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			id    int64
			price decimal.Decimal
		)
		if err := rows.Scan(&id, &price); err != nil {
			return nil, fmt.Errorf("failed to scan catalog price: %w", err)
		}
		prices[id] = price
	}
	return prices, rows.Err()
}

func (s *SQLiteStorage) priceHistory(ctx context.Context, id int64) ([]model.PricePoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT price, recorded_at FROM price_history
		WHERE item_id = ?
		ORDER BY recorded_at, id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query price history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var history []model.PricePoint
	for rows.Next() {
		var p model.PricePoint
		if err := rows.Scan(&p.Price, &p.Date); err != nil {
			return nil, fmt.Errorf("failed to scan price history: %w", err)
		}
		history = append(history, p)
	}
	return history, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCatalogItem(row rowScanner) (*model.CatalogItem, error) {
	var (
		item    model.CatalogItem
		tradeID sql.NullInt64
	)
	err := row.Scan(
		&item.ID,
		&item.SKU,
		&item.Title,
		&item.Description,
		&item.UnitType,
		&item.UnitPrice,
		&tradeID,
		&item.Category,
		&item.SortOrder,
		&item.IsActive,
		&item.CatalogType,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if tradeID.Valid {
		item.TradeID = &tradeID.Int64
	}
	return &item, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
