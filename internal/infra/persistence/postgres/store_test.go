package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"feedcore/internal/catalog"
	"feedcore/internal/infra/persistence/postgres/testutil"
	"feedcore/pkg/domain"
)

func newStubStore(t *testing.T) (*Store, *testutil.StubConn) {
	t.Helper()
	db, conn := testutil.NewStubDB()
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	t.Cleanup(restore)
	store, err := NewStore(context.Background(), "")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store, conn
}

func TestNewStoreEnsuresTable(t *testing.T) {
	_, conn := newStubStore(t)
	if len(conn.Execs) == 0 || !strings.Contains(conn.Execs[0], "CREATE TABLE IF NOT EXISTS ingredient_catalog") {
		t.Fatalf("expected table DDL, got %v", conn.Execs)
	}
}

func TestImportLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, conn := newStubStore(t)
	want := catalog.New(catalog.Selector{Region: "br"}, catalog.SourceInfo{Mode: "structured", File: "f.json"},
		map[string]domain.IngredientRecord{"sbm_46": {Nutrients: map[string]float64{"cp": 46}}})
	if err := store.Import(ctx, want); err != nil {
		t.Fatalf("import: %v", err)
	}
	if err := store.Import(ctx, want); err != nil {
		t.Fatalf("re-import: %v", err)
	}
	if n := len(conn.Tables["ingredient_catalog"]); n != 1 {
		t.Fatalf("expected upsert to keep one row, got %d", n)
	}
	sels, err := store.Selectors(ctx)
	if err != nil {
		t.Fatalf("selectors: %v", err)
	}
	if diff := cmp.Diff([]string{"poultry/br/v1/sid"}, sels); diff != "" {
		t.Fatalf("selectors mismatch (-want +got):\n%s", diff)
	}
	got, err := store.Load(ctx, catalog.Selector{Region: "br"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("catalog mismatch (-want +got):\n%s", diff)
	}
	_, err = store.Load(ctx, catalog.Selector{Region: "us"})
	var nf *catalog.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestNewStorePingError(t *testing.T) {
	db, conn := testutil.NewStubDB()
	conn.FailPing = true
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()
	if _, err := NewStore(context.Background(), "postgres://x"); err == nil {
		t.Fatalf("expected ping error")
	}
}

func TestNewStoreOpenError(t *testing.T) {
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return nil, errors.New("boom") })
	defer restore()
	if _, err := NewStore(context.Background(), ""); err == nil {
		t.Fatalf("expected open error")
	}
}
