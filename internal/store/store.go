package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	name       TEXT PRIMARY KEY,
	body       TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

// Store persists named collection snapshots in a local SQLite database.
// Each snapshot is the full serialized form of one in-memory collection,
// rewritten on every mutation and read back once at startup.
type Store struct {
	db *sql.DB
}

// Open creates or opens the snapshot database at path and applies the
// schema. In-memory SQLite databases live and die with their connection,
// so memory DSNs are pinned to a single pooled connection.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot database: %w", err)
	}

	if path == ":memory:" || strings.Contains(path, "mode=memory") {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply snapshot schema: %w", err)
	}

	return &Store{db: db}, nil
}

// ReadSnapshot returns the stored body for name, or an empty string when
// no snapshot has been written yet.
func (s *Store) ReadSnapshot(ctx context.Context, name string) (string, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM snapshots WHERE name = ?`, name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read snapshot %q: %w", name, err)
	}
	return body, nil
}

// WriteSnapshot stores the full body for name, replacing any previous one.
func (s *Store) WriteSnapshot(ctx context.Context, name, body string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (name, body, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET body = excluded.body, updated_at = CURRENT_TIMESTAMP`,
		name, body)
	if err != nil {
		return fmt.Errorf("write snapshot %q: %w", name, err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
