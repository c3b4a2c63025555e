package selection

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS selection_snapshots (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at INTEGER NOT NULL
)`

// SQLiteStorage keeps snapshots in a single-file SQLite database.
type SQLiteStorage struct {
	db       *sql.DB
	maxBytes int
}

// OpenSQLiteStorage opens (and migrates) the database at path.
func OpenSQLiteStorage(ctx context.Context, path string, maxBytes int) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("selection: open sqlite %s: %w", path, err)
	}
	// a single writer avoids SQLITE_BUSY between request goroutines
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("selection: migrate sqlite: %w", err)
	}
	return &SQLiteStorage{db: db, maxBytes: maxBytes}, nil
}

// Close closes the underlying database.
func (s *SQLiteStorage) Close() error { return s.db.Close() }

// Get implements Storage.
func (s *SQLiteStorage) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM selection_snapshots WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("selection: sqlite get %s: %w", key, err)
	}
	return value, nil
}

// Set implements Storage.
func (s *SQLiteStorage) Set(ctx context.Context, key string, value []byte) error {
	if s.maxBytes > 0 && len(value) > s.maxBytes {
		return fmt.Errorf("%w: %d bytes > %d", ErrQuotaExceeded, len(value), s.maxBytes)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO selection_snapshots (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Unix(),
	)
	if err != nil {
		return fmt.Errorf("selection: sqlite set %s: %w", key, err)
	}
	return nil
}
