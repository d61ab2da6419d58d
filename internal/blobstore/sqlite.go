package blobstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS blobs (
	key        TEXT PRIMARY KEY,
	data       BLOB NOT NULL,
	version    INTEGER NOT NULL,
	updated_at TEXT NOT NULL
)`

// SQLiteStore keeps blobs in a single-file SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and ensures the
// schema exists. ":memory:" gives a private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// One connection serialises writers and keeps an in-memory database alive.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (Blob, error) {
	var b Blob
	err := s.db.QueryRowContext(ctx, `SELECT data, version FROM blobs WHERE key = ?`, key).
		Scan(&b.Data, &b.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Blob{}, ErrNotFound
		}
		return Blob{}, fmt.Errorf("failed to read blob %q: %w", key, err)
	}
	return b, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key string, data []byte, expectedVersion int64) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	next := expectedVersion + 1

	var (
		result sql.Result
		err    error
	)
	if expectedVersion == 0 {
		result, err = s.db.ExecContext(ctx,
			`INSERT INTO blobs (key, data, version, updated_at) VALUES (?, ?, ?, ?) ON CONFLICT(key) DO NOTHING`,
			key, data, next, now)
	} else {
		result, err = s.db.ExecContext(ctx,
			`UPDATE blobs SET data = ?, version = ?, updated_at = ? WHERE key = ? AND version = ?`,
			data, next, now, key, expectedVersion)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to write blob %q: %w", key, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to write blob %q: %w", key, err)
	}
	if n == 0 {
		return 0, ErrVersionConflict
	}
	return next, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
