// Package storage is the persistent key-value store the game uses to keep
// teams, the playlist, the config, and the last game's stats across
// restarts. Values are stored as JSON documents in SQLite.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/stereoclub/blindtest/internal/gameerr"
)

var ErrNotFound = errors.New("key not found")

// KV is the narrow persistence contract the game core consumes. Failures
// are surfaced as storage-category errors and are always non-fatal to the
// game itself.
type KV interface {
	Get(ctx context.Context, key string, v any) error
	Set(ctx context.Context, key string, v any) error
}

// SQLiteKV implements KV on the kv_entries table.
type SQLiteKV struct {
	db *sql.DB
}

func NewSQLiteKV(db *sql.DB) *SQLiteKV {
	return &SQLiteKV{db: db}
}

// Get loads the JSON document under key into v. Returns ErrNotFound when
// the key was never written.
func (s *SQLiteKV) Get(ctx context.Context, key string, v any) error {
	var raw string
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM kv_entries WHERE key = ?
	`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return gameerr.Wrap(gameerr.Storage, "reading "+key, err)
	}

	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return gameerr.Wrap(gameerr.Storage, "decoding "+key, err)
	}
	return nil
}

// Set writes v as the JSON document under key, replacing any previous value.
func (s *SQLiteKV) Set(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return gameerr.Wrap(gameerr.Storage, "encoding "+key, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO kv_entries (key, value)
		VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
	`, key, string(raw))
	if err != nil {
		return gameerr.Wrap(gameerr.Storage, "writing "+key, err)
	}
	return nil
}
