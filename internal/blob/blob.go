// Package blob selects and re-exports the reference document store used to
// read catalogs, alias tables and requirement documents.
package blob

import (
	"context"
	"fmt"

	"feedcore/internal/blob/core"
	"feedcore/internal/infra/blob/fs"
	"feedcore/internal/infra/blob/memory"
	"feedcore/internal/infra/blob/s3"
)

type (
	// Driver identifies a store backend driver.
	Driver = core.Driver
	// PutOptions configures a document write.
	PutOptions = core.PutOptions
	// Info describes stored document metadata.
	Info = core.Info
	// Store is the interface for reference store backends.
	Store = core.Store
)

const (
	// DriverFilesystem is the local filesystem driver.
	DriverFilesystem = core.DriverFilesystem
	// DriverS3 is the S3-compatible driver.
	DriverS3 = core.DriverS3
	// DriverMemory is the in-memory driver.
	DriverMemory = core.DriverMemory
)

var (
	// ErrNotFound indicates a missing document.
	ErrNotFound = core.ErrNotFound
	// ErrExists indicates a Put collided with an existing document.
	ErrExists = core.ErrExists
)

// Config selects a backend. Empty Driver means filesystem.
type Config struct {
	Driver string
	FSRoot string
	S3     s3.Config
}

// Open constructs the configured store.
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(driver) {
	case DriverFilesystem:
		return fs.New(cfg.FSRoot)
	case DriverS3:
		return s3.New(ctx, cfg.S3)
	case DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}

// NewMemory returns an empty in-memory store, mostly for tests and fixtures.
func NewMemory() *memory.Store { return memory.New() }
