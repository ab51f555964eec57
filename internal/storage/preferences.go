package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/quotewright/internal/common"
	"github.com/Veraticus/quotewright/internal/model"
)

// SaveTablePreference replaces the stored widths and order of a table context.
func (s *SQLiteStorage) SaveTablePreference(ctx context.Context, pref *model.TablePreference) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if pref == nil {
		return fmt.Errorf("%w: table preference", ErrNilParameter)
	}
	if err := validateString(pref.ContextKey, "contextKey"); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPreference, err)
	}

	widths := pref.Widths
	if widths == nil {
		widths = map[string]int{}
	}
	order := pref.Order
	if order == nil {
		order = []string{}
	}

	widthsJSON, err := json.Marshal(widths)
	if err != nil {
		return fmt.Errorf("failed to encode widths: %w", err)
	}
	orderJSON, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to encode order: %w", err)
	}

	pref.UpdatedAt = time.Now()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO table_preferences (context_key, widths, column_order, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(context_key) DO UPDATE SET
			widths = excluded.widths,
			column_order = excluded.column_order,
			updated_at = excluded.updated_at
	`, pref.ContextKey, string(widthsJSON), string(orderJSON), pref.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save table preference: %w", err)
	}
	return nil
}

// GetTablePreference loads the preference for a context key.
// It returns common.ErrNotFound when nothing was saved.
func (s *SQLiteStorage) GetTablePreference(ctx context.Context, contextKey string) (*model.TablePreference, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(contextKey, "contextKey"); err != nil {
		return nil, err
	}

	var (
		pref       model.TablePreference
		widthsJSON string
		orderJSON  string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT context_key, widths, column_order, updated_at
		FROM table_preferences WHERE context_key = ?
	`, contextKey).Scan(&pref.ContextKey, &widthsJSON, &orderJSON, &pref.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("table preference %s: %w", contextKey, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get table preference: %w", err)
	}

	if err := json.Unmarshal([]byte(widthsJSON), &pref.Widths); err != nil {
		return nil, fmt.Errorf("failed to decode widths: %w", err)
	}
	if err := json.Unmarshal([]byte(orderJSON), &pref.Order); err != nil {
		return nil, fmt.Errorf("failed to decode order: %w", err)
	}
	return &pref, nil
}
