// Package sqlite provides a SQLite-backed blob store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Seednode/reach100/storage"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS blobs (
    blob_key TEXT PRIMARY KEY,
    payload BLOB NOT NULL,
    updated_at INTEGER NOT NULL
);
`

// Store provides SQLite-backed persistence for game blobs.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a SQLite store and creates its table if needed.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{sqlDB: sqlDB}, nil
}

// Close releases the underlying SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Get loads a blob by key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	key, err := storage.ValidateKey(key)
	if err != nil {
		return nil, err
	}

	var payload []byte
	row := s.sqlDB.QueryRowContext(ctx, `SELECT payload FROM blobs WHERE blob_key = ?`, key)
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get blob: %w", err)
	}

	return payload, nil
}

// Put upserts a blob by key.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	key, err := storage.ValidateKey(key)
	if err != nil {
		return err
	}
	if value == nil {
		value = []byte{}
	}

	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO blobs (blob_key, payload, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(blob_key) DO UPDATE SET
		   payload = excluded.payload,
		   updated_at = excluded.updated_at`,
		key,
		value,
		time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("put blob: %w", err)
	}
	return nil
}
