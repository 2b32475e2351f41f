package core

import (
	"context"
	"fmt"

	"feedcore/internal/catalog"
	"feedcore/internal/config"
	"feedcore/internal/infra/persistence/postgres"
	"feedcore/internal/infra/persistence/sqlite"
	"feedcore/internal/refdata"
)

// SnapshotStore is a catalog source that also accepts imported snapshots.
type SnapshotStore interface {
	catalog.Source
	Import(ctx context.Context, c *catalog.Catalog) error
	Selectors(ctx context.Context) ([]string, error)
	Close() error
}

var (
	_ SnapshotStore = (*sqlite.Store)(nil)
	_ SnapshotStore = (*postgres.Store)(nil)
)

// OpenSnapshotStore opens the sqlite or postgres snapshot store named by cfg.
func OpenSnapshotStore(ctx context.Context, cfg config.Catalog) (SnapshotStore, error) {
	switch cfg.Driver {
	case config.CatalogSQLite:
		return sqlite.NewStore(cfg.SQLitePath)
	case config.CatalogPostgres:
		return postgres.NewStore(ctx, cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("catalog driver %s has no snapshot store", cfg.Driver)
	}
}

// OpenCatalogSource selects where Analyze loads catalogs from. The blob
// driver reads reference documents through cache; the others serve imported
// snapshots. The returned close func is always non-nil.
//
//	blob (default): <species>_ingredients[_<region>][_<version>][_<basis>].json
//	sqlite: snapshot table in cfg.SQLitePath
//	postgres: snapshot table reached through cfg.PostgresDSN
func OpenCatalogSource(ctx context.Context, cfg config.Catalog, cache *refdata.Cache) (catalog.Source, func() error, error) {
	switch cfg.Driver {
	case "", config.CatalogBlob:
		return catalog.NewBlobSource(cache), func() error { return nil }, nil
	case config.CatalogSQLite, config.CatalogPostgres:
		st, err := OpenSnapshotStore(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown catalog driver %s", cfg.Driver)
	}
}
