package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 5

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Catalog items and price history",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS catalog_items (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					sku TEXT NOT NULL,
					title TEXT NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					unit_type TEXT NOT NULL DEFAULT '',
					unit_price TEXT NOT NULL DEFAULT '0',
					trade_id INTEGER,
					category TEXT NOT NULL DEFAULT '',
					sort_order INTEGER NOT NULL DEFAULT 0,
					is_active BOOLEAN NOT NULL DEFAULT 1,
					catalog_type TEXT NOT NULL DEFAULT 'standard',
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					UNIQUE (catalog_type, sku)
				)`,
				`CREATE INDEX idx_catalog_items_type_active ON catalog_items(catalog_type, is_active)`,
				`CREATE INDEX idx_catalog_items_trade ON catalog_items(trade_id)`,

				`CREATE TABLE IF NOT EXISTS price_history (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					item_id INTEGER NOT NULL,
					price TEXT NOT NULL,
					recorded_at DATETIME NOT NULL,
					FOREIGN KEY (item_id) REFERENCES catalog_items(id) ON DELETE CASCADE
				)`,
				`CREATE INDEX idx_price_history_item ON price_history(item_id)`,
			)
		},
	},
	{
		Version:     2,
		Description: "Quotes, groups and line items",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS quotes (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					title TEXT NOT NULL,
					quote_format TEXT NOT NULL DEFAULT 'standard',
					tax_rate TEXT NOT NULL DEFAULT '0',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,

				`CREATE TABLE IF NOT EXISTS quote_groups (
					id TEXT PRIMARY KEY,
					quote_id INTEGER NOT NULL,
					name TEXT NOT NULL DEFAULT '',
					description TEXT NOT NULL DEFAULT '',
					selection_mode TEXT NOT NULL DEFAULT 'all',
					show_subtotal BOOLEAN NOT NULL DEFAULT 1,
					is_collapsed BOOLEAN NOT NULL DEFAULT 0,
					sort_order INTEGER NOT NULL DEFAULT 0,
					FOREIGN KEY (quote_id) REFERENCES quotes(id) ON DELETE CASCADE
				)`,
				`CREATE INDEX idx_quote_groups_quote ON quote_groups(quote_id)`,

				`CREATE TABLE IF NOT EXISTS line_items (
					id TEXT PRIMARY KEY,
					group_id TEXT NOT NULL,
					pricing_item_id INTEGER,
					item_type TEXT NOT NULL DEFAULT 'standard',
					title TEXT NOT NULL DEFAULT '',
					description TEXT NOT NULL DEFAULT '',
					quantity TEXT NOT NULL DEFAULT '1',
					unit_type TEXT NOT NULL DEFAULT '',
					price_mode TEXT NOT NULL DEFAULT 'default',
					price_modifier TEXT NOT NULL DEFAULT '0',
					resolved_price TEXT NOT NULL DEFAULT '0',
					previous_resolved_price TEXT,
					is_selected BOOLEAN NOT NULL DEFAULT 0,
					sort_order INTEGER NOT NULL DEFAULT 0,
					material_cost TEXT,
					labor_cost TEXT,
					line_sku TEXT NOT NULL DEFAULT '',
					tax_rate TEXT,
					note TEXT NOT NULL DEFAULT '',
					FOREIGN KEY (group_id) REFERENCES quote_groups(id) ON DELETE CASCADE
				)`,
				`CREATE INDEX idx_line_items_group ON line_items(group_id)`,
			)
		},
	},
	{
		Version:     3,
		Description: "Table layout preferences",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS table_preferences (
					context_key TEXT PRIMARY KEY,
					widths TEXT NOT NULL DEFAULT '{}',
					column_order TEXT NOT NULL DEFAULT '[]',
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
			)
		},
	},
	{
		Version:     4,
		Description: "Trade presets",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS trade_presets (
					trade_id INTEGER NOT NULL,
					quote_format TEXT NOT NULL,
					name TEXT NOT NULL DEFAULT '',
					body TEXT NOT NULL,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					PRIMARY KEY (trade_id, quote_format)
				)`,
			)
		},
	},
	{
		Version:     5,
		Description: "Backup metadata",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS backup_metadata (
					id TEXT PRIMARY KEY,
					created_at DATETIME NOT NULL,
					path TEXT NOT NULL,
					file_size INTEGER NOT NULL,
					row_counts TEXT NOT NULL,
					schema_version INTEGER NOT NULL
				)`,
			)
		},
	},
}

func execAll(tx *sql.Tx, queries ...string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

// Migrate runs all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	// Get current version
	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	// Apply migrations
	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		// Update version
		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	version, err := s.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}
	if version != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, version)
	}

	return nil
}

// SchemaVersion returns the current PRAGMA user_version.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}
