// Package state persists toolkit state in a SQLite database: a JSON
// key/value table for durable settings such as the accounting database
// parameters, and a journal of rendered configuration files with their
// checksums for drift detection.
package state

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound reports a missing key or record.
var ErrNotFound = errors.New("state: not found")

const schema = `
CREATE TABLE IF NOT EXISTS kv (
    key         TEXT PRIMARY KEY,
    value       TEXT NOT NULL,
    updated_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS renders (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    path        TEXT NOT NULL,
    checksum    TEXT NOT NULL,
    key_count   INTEGER NOT NULL,
    rendered_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_renders_path ON renders(path, rendered_at);
`

// Store is the SQLite-backed state database.
type Store struct {
	db *sql.DB
}

// Render is one entry of the render journal.
type Render struct {
	ID         int64
	Path       string
	Checksum   string
	KeyCount   int
	RenderedAt time.Time
}

// Open opens or creates the state database at the given path and
// applies the schema.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open state database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Put stores v under key as JSON, replacing any previous value.
func (s *Store) Put(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	_, err = s.db.Exec(`
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(data), time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Get decodes the value stored under key into out. Returns ErrNotFound
// when the key has never been stored.
func (s *Store) Get(key string, out any) error {
	var data string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(data), out); err != nil {
		return fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Keys returns all stored kv keys in lexical order.
func (s *Store) Keys() ([]string, error) {
	rows, err := s.db.Query(`SELECT key FROM kv ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// RecordRender journals one rendered file and returns the entry ID.
func (s *Store) RecordRender(path, checksum string, keyCount int) (int64, error) {
	result, err := s.db.Exec(`
		INSERT INTO renders (path, checksum, key_count, rendered_at)
		VALUES (?, ?, ?, ?)`,
		path, checksum, keyCount, time.Now().UnixNano(),
	)
	if err != nil {
		return 0, fmt.Errorf("record render: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last insert id: %w", err)
	}
	return id, nil
}

// LastRender returns the most recent render journal entry for path, or
// nil when the file has never been rendered.
func (s *Store) LastRender(path string) (*Render, error) {
	var r Render
	var ns int64
	err := s.db.QueryRow(`
		SELECT id, path, checksum, key_count, rendered_at
		FROM renders WHERE path = ?
		ORDER BY rendered_at DESC, id DESC LIMIT 1`, path,
	).Scan(&r.ID, &r.Path, &r.Checksum, &r.KeyCount, &ns)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get last render: %w", err)
	}
	r.RenderedAt = time.Unix(0, ns)
	return &r, nil
}

// Renders returns the newest render journal entries, most recent
// first, up to limit.
func (s *Store) Renders(limit int) ([]Render, error) {
	rows, err := s.db.Query(`
		SELECT id, path, checksum, key_count, rendered_at
		FROM renders ORDER BY rendered_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query renders: %w", err)
	}
	defer rows.Close()

	var out []Render
	for rows.Next() {
		var r Render
		var ns int64
		if err := rows.Scan(&r.ID, &r.Path, &r.Checksum, &r.KeyCount, &ns); err != nil {
			return nil, fmt.Errorf("scan render: %w", err)
		}
		r.RenderedAt = time.Unix(0, ns)
		out = append(out, r)
	}
	return out, rows.Err()
}
