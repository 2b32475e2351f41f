// Package core defines the reference document store abstraction shared by
// the filesystem, memory and S3 backends.
package core

import (
	"context"
	"errors"
	"io"
	"time"
)

// Driver identifies a concrete store backend implementation.
type Driver string

const (
	// DriverFilesystem reads documents from a local directory tree.
	DriverFilesystem Driver = "fs" // local filesystem (default, dev)
	// DriverS3 reads documents from an S3 / MinIO bucket.
	DriverS3 Driver = "s3" // S3 / MinIO compatible
	// DriverMemory keeps documents in process memory.
	DriverMemory Driver = "memory" // in-memory (tests)
)

// PutOptions specifies optional parameters for Put.
type PutOptions struct {
	ContentType string            // MIME type, optional
	Metadata    map[string]string // User metadata (small, flat key-value)
}

// Info describes a stored document.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size_bytes"`
	ContentType  string            `json:"content_type,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
}

// Store is a minimal S3-like key/value store for reference documents.
// Keys are slash separated relative paths.
type Store interface {
	// Get returns the document body. Missing keys yield an error wrapping ErrNotFound.
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	// Head returns metadata only.
	Head(ctx context.Context, key string) (Info, error)
	// Put stores a new document and fails if the key already exists.
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	// List returns documents whose key has the prefix, ordered by key.
	List(ctx context.Context, prefix string) ([]Info, error)
	Driver() Driver
}

// ErrNotFound is wrapped by every backend when a key does not exist.
var ErrNotFound = errors.New("refstore: document not found")

// ErrExists is returned by Put when the key is already taken.
var ErrExists = errors.New("refstore: document already exists")
