package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Backup errors.
var (
	ErrBackupExists    = errors.New("backup already exists")
	ErrBackupNotFound  = errors.New("backup not found")
	ErrBackupCorrupted = errors.New("backup integrity check failed")
	ErrBackupInMemory  = errors.New("in-memory databases cannot be backed up")
)

// BackupInfo describes one database snapshot.
type BackupInfo struct {
	CreatedAt     time.Time      `json:"created_at"`
	RowCounts     map[string]int `json:"row_counts"`
	ID            string         `json:"id"`
	Path          string         `json:"path"`
	FileSize      int64          `json:"file_size"`
	SchemaVersion int            `json:"schema_version"`
}

// backupTables are the tables whose row counts are recorded with a snapshot.
var backupTables = map[string]string{
	"catalog_items":     "SELECT COUNT(*) FROM catalog_items",
	"quotes":            "SELECT COUNT(*) FROM quotes",
	"quote_groups":      "SELECT COUNT(*) FROM quote_groups",
	"line_items":        "SELECT COUNT(*) FROM line_items",
	"trade_presets":     "SELECT COUNT(*) FROM trade_presets",
	"table_preferences": "SELECT COUNT(*) FROM table_preferences",
}

// BackupDir is where snapshots of this database are written.
func (s *SQLiteStorage) BackupDir() string {
	return filepath.Join(filepath.Dir(s.dbPath), "backups")
}

// Backup writes a consistent snapshot of the database with VACUUM INTO and
// records it in backup_metadata. An empty tag is generated from the time.
func (s *SQLiteStorage) Backup(ctx context.Context, tag string) (*BackupInfo, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if s.dbPath == ":memory:" {
		return nil, ErrBackupInMemory
	}

	if tag == "" {
		tag = "backup-" + time.Now().Format("2006-01-02-150405")
	}
	if err := validateBackupTag(tag); err != nil {
		return nil, err
	}

	dir, err := filepath.Abs(s.BackupDir())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve backup directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	dest := filepath.Join(dir, tag+".db")
	if _, err := os.Stat(dest); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrBackupExists, tag)
	}
	if strings.ContainsAny(dest, `'";`) {
		return nil, fmt.Errorf("invalid backup path %q", dest)
	}

	version, err := s.SchemaVersion(ctx)
	if err != nil {
		return nil, err
	}
	counts := s.rowCounts(ctx)

	// #nosec G201 - dest is built from a validated tag and checked for quotes above
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", dest)); err != nil {
		return nil, fmt.Errorf("failed to write backup: %w", err)
	}

	if err := verifyIntegrity(ctx, dest); err != nil {
		if rmErr := os.Remove(dest); rmErr != nil {
			slog.Error("failed to remove corrupted backup", "path", dest, "error", rmErr)
		}
		return nil, err
	}

	stat, err := os.Stat(dest)
	if err != nil {
		return nil, fmt.Errorf("failed to stat backup: %w", err)
	}

	info := &BackupInfo{
		ID:            tag,
		CreatedAt:     time.Now(),
		Path:          dest,
		FileSize:      stat.Size(),
		RowCounts:     counts,
		SchemaVersion: version,
	}

	countsJSON, err := json.Marshal(counts)
	if err != nil {
		return nil, fmt.Errorf("failed to encode row counts: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO backup_metadata (id, created_at, path, file_size, row_counts, schema_version)
		VALUES (?, ?, ?, ?, ?, ?)
	`, info.ID, info.CreatedAt, info.Path, info.FileSize, string(countsJSON), info.SchemaVersion); err != nil {
		slog.Warn("failed to record backup metadata", "id", info.ID, "error", err)
	}

	return info, nil
}

// ListBackups returns recorded snapshots, newest first.
func (s *SQLiteStorage) ListBackups(ctx context.Context) ([]BackupInfo, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, path, file_size, row_counts, schema_version
		FROM backup_metadata ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query backups: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var backups []BackupInfo
	for rows.Next() {
		var (
			info       BackupInfo
			countsJSON string
		)
		if err := rows.Scan(&info.ID, &info.CreatedAt, &info.Path, &info.FileSize, &countsJSON, &info.SchemaVersion); err != nil {
			return nil, fmt.Errorf("failed to scan backup: %w", err)
		}
		if err := json.Unmarshal([]byte(countsJSON), &info.RowCounts); err != nil {
			slog.Debug("skipping unreadable backup row counts", "id", info.ID, "error", err)
		}
		backups = append(backups, info)
	}
	return backups, rows.Err()
}

// VerifyBackup runs an integrity check against a recorded snapshot.
func (s *SQLiteStorage) VerifyBackup(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateBackupTag(id); err != nil {
		return err
	}

	var path string
	err := s.db.QueryRowContext(ctx, `SELECT path FROM backup_metadata WHERE id = ?`, id).Scan(&path)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrBackupNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to look up backup: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %s", ErrBackupNotFound, id)
	}
	return verifyIntegrity(ctx, path)
}

func (s *SQLiteStorage) rowCounts(ctx context.Context) map[string]int {
	counts := make(map[string]int, len(backupTables))
	for table, query := range backupTables {
		var n int
		if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
			slog.Debug("row count unavailable", "table", table, "error", err)
		}
		counts[table] = n
	}
	return counts
}

func verifyIntegrity(ctx context.Context, path string) error {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("failed to open backup: %w", err)
	}
	defer func() { _ = db.Close() }()

	var result string
	if err := db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("%w: %v", ErrBackupCorrupted, err)
	}
	if result != "ok" {
		return fmt.Errorf("%w: %s", ErrBackupCorrupted, result)
	}
	return nil
}

func validateBackupTag(tag string) error {
	if err := validateString(tag, "tag"); err != nil {
		return err
	}
	if strings.ContainsAny(tag, `/\'";`) || strings.Contains(tag, "..") {
		return fmt.Errorf("invalid backup tag %q: cannot contain path separators or quotes", tag)
	}
	return nil
}
