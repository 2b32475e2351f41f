// Package postgres keeps ingredient catalog snapshots in a Postgres table.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"feedcore/internal/catalog"
)

var _ catalog.Source = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/feedcore?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store persists merged catalogs as JSONB keyed by selector.
type Store struct {
	db *sql.DB
}

// NewStore opens a Postgres-backed snapshot store using dsn (falls back to
// defaultDSN) and ensures the table exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureTable(ctx, db); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func ensureTable(ctx context.Context, db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS ingredient_catalog (
		selector TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		payload JSONB NOT NULL
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure ingredient_catalog table: %w", err)
	}
	return nil
}

// Import upserts the snapshot for c's selector.
func (s *Store) Import(ctx context.Context, c *catalog.Catalog) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO ingredient_catalog(selector, source, payload) VALUES($1,$2,$3) ON CONFLICT (selector) DO UPDATE SET source = EXCLUDED.source, payload = EXCLUDED.payload`,
		c.Selector.String(), c.Source.File, string(payload))
	if err != nil {
		return fmt.Errorf("upsert %s: %w", c.Selector, err)
	}
	return nil
}

// Load implements catalog.Source.
func (s *Store) Load(ctx context.Context, sel catalog.Selector) (*catalog.Catalog, error) {
	key := sel.String()
	var stored string
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT selector, payload FROM ingredient_catalog WHERE selector = $1`, key).Scan(&stored, &payload)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && stored != key) {
		return nil, &catalog.NotFoundError{Selector: sel.Normalized(), Tried: []string{"postgres:" + key}}
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

// OverrideSQLOpen swaps the sql.Open hook, returning a restore func. Tests use
// it to inject a stub driver.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
