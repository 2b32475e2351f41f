// Package sqlite keeps ingredient catalog snapshots in a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"feedcore/internal/catalog"
)

var _ catalog.Source = (*Store)(nil)

// Store persists merged catalogs as JSON payloads keyed by selector.
type Store struct {
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewStore opens (creating if needed) the SQLite database at path.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "feedcore.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS ingredient_catalog (
		selector TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create ingredient_catalog table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Import upserts the snapshot for c's selector.
func (s *Store) Import(ctx context.Context, c *catalog.Catalog) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO ingredient_catalog(selector,source,payload) VALUES(?,?,?) ON CONFLICT(selector) DO UPDATE SET source=excluded.source, payload=excluded.payload`,
		c.Selector.String(), c.Source.File, payload)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", c.Selector, err)
	}
	return nil
}

// Load implements catalog.Source.
func (s *Store) Load(ctx context.Context, sel catalog.Selector) (*catalog.Catalog, error) {
	key := sel.String()
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM ingredient_catalog WHERE selector = ?`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &catalog.NotFoundError{Selector: sel.Normalized(), Tried: []string{"sqlite:" + key}}
	}
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", key, err)
	}
	var c catalog.Catalog
	if err := json.Unmarshal(payload, &c); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return catalog.New(c.Selector, c.Source, c.Records), nil
}

// Selectors lists stored snapshot selectors in key order.
func (s *Store) Selectors(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT selector FROM ingredient_catalog ORDER BY selector`)
	if err != nil {
		return nil, fmt.Errorf("select selectors: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []string
	for rows.Next() {
		var sel string
		if err := rows.Scan(&sel); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, sel)
	}
	return out, rows.Err()
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
