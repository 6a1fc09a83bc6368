package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteBackend is a durable Backend storing records in one SQLite table.
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend opens (or creates) the database at dbPath. Use
// ":memory:" for a throwaway database.
func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// Every pooled connection to ":memory:" would get its own database.
	db.SetMaxOpenConns(1)

	b := &SQLiteBackend{db: db}
	if err := b.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return b, nil
}

func (b *SQLiteBackend) initialize() error {
	_, err := b.db.Exec(`
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);`)
	return err
}

func (b *SQLiteBackend) Get(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrInvalidKey
	}

	var value string
	err := b.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: %s: %v", ErrLoadFailed, key, err)
	}
	return value, true, nil
}

func (b *SQLiteBackend) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrInvalidKey
	}

	_, err := b.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, key, err)
	}
	return nil
}

func (b *SQLiteBackend) Remove(ctx context.Context, key string) error {
	if key == "" {
		return ErrInvalidKey
	}

	if _, err := b.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrRemoveFailed, key, err)
	}
	return nil
}

// Close closes the database.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}
