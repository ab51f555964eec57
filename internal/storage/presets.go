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

// SaveTradePreset stores a preset, replacing any with the same trade and format.
func (s *SQLiteStorage) SaveTradePreset(ctx context.Context, preset *model.TradePreset) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validatePreset(preset); err != nil {
		return err
	}

	body, err := json.Marshal(preset.Groups)
	if err != nil {
		return fmt.Errorf("failed to encode preset groups: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO trade_presets (trade_id, quote_format, name, body, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(trade_id, quote_format) DO UPDATE SET
			name = excluded.name,
			body = excluded.body,
			updated_at = excluded.updated_at
	`, preset.TradeID, preset.Format, preset.Name, string(body), time.Now())
	if err != nil {
		return fmt.Errorf("failed to save trade preset: %w", err)
	}
	return nil
}

// GetTradePreset loads the preset for one trade and format.
func (s *SQLiteStorage) GetTradePreset(ctx context.Context, tradeID int64, format model.QuoteFormat) (*model.TradePreset, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateID(tradeID, "tradeID"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT trade_id, quote_format, name, body
		FROM trade_presets WHERE trade_id = ? AND quote_format = ?
	`, tradeID, format)

	preset, err := scanPreset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("preset for trade %d (%s): %w", tradeID, format, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trade preset: %w", err)
	}
	return preset, nil
}

// GetTradePresetFormats lists the formats a trade has presets for.
func (s *SQLiteStorage) GetTradePresetFormats(ctx context.Context, tradeID int64) ([]model.QuoteFormat, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT quote_format FROM trade_presets WHERE trade_id = ? ORDER BY quote_format
	`, tradeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query preset formats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var formats []model.QuoteFormat
	for rows.Next() {
		var f model.QuoteFormat
		if err := rows.Scan(&f); err != nil {
			return nil, fmt.Errorf("failed to scan preset format: %w", err)
		}
		formats = append(formats, f)
	}
	return formats, rows.Err()
}

// ListTradePresets returns every stored preset.
func (s *SQLiteStorage) ListTradePresets(ctx context.Context) ([]model.TradePreset, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT trade_id, quote_format, name, body
		FROM trade_presets ORDER BY trade_id, quote_format
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query trade presets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var presets []model.TradePreset
	for rows.Next() {
		preset, err := scanPreset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade preset: %w", err)
		}
		presets = append(presets, *preset)
	}
	return presets, rows.Err()
}

func scanPreset(row rowScanner) (*model.TradePreset, error) {
	var (
		preset model.TradePreset
		body   string
	)
	if err := row.Scan(&preset.TradeID, &preset.Format, &preset.Name, &body); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(body), &preset.Groups); err != nil {
		return nil, fmt.Errorf("failed to decode preset body: %w", err)
	}
	return &preset, nil
}
