package core

import (
	"context"
	"path/filepath"
	"testing"

	"feedcore/internal/catalog"
	"feedcore/internal/config"
	"feedcore/internal/refdata"
)

func TestOpenCatalogSource(t *testing.T) {
	ctx := context.Background()
	cache := refdata.New(fixtureStore())

	src, closeFn, err := OpenCatalogSource(ctx, config.Catalog{Driver: config.CatalogBlob}, cache)
	if err != nil {
		t.Fatalf("blob source: %v", err)
	}
	if _, ok := src.(*catalog.BlobSource); !ok {
		t.Fatalf("expected blob source, got %T", src)
	}
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}

	cat, err := src.Load(ctx, catalog.Selector{})
	if err != nil {
		t.Fatalf("load from blob: %v", err)
	}
	cfg := config.Catalog{Driver: config.CatalogSQLite, SQLitePath: filepath.Join(t.TempDir(), "snap.db")}
	st, err := OpenSnapshotStore(ctx, cfg)
	if err != nil {
		t.Fatalf("snapshot store: %v", err)
	}
	if err := st.Import(ctx, cat); err != nil {
		t.Fatalf("import: %v", err)
	}
	_ = st.Close()

	snap, closeFn, err := OpenCatalogSource(ctx, cfg, cache)
	if err != nil {
		t.Fatalf("sqlite source: %v", err)
	}
	defer func() { _ = closeFn() }()
	svc := NewService(cache, snap)
	resp, err := svc.Analyze(ctx, fixtureRequest())
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !resp.OK || resp.NutrientProfile["me"] != 2943.5 {
		t.Fatalf("snapshot-backed analysis differs: %s %+v", resp.Status, resp.NutrientProfile)
	}

	if _, _, err := OpenCatalogSource(ctx, config.Catalog{Driver: "mysql"}, cache); err == nil {
		t.Fatalf("expected unknown driver error")
	}
	if _, err := OpenSnapshotStore(ctx, config.Catalog{Driver: config.CatalogBlob}); err == nil {
		t.Fatalf("blob driver has no snapshot store")
	}
}
