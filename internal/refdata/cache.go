// Package refdata reads reference JSON documents from the blob store and
// keeps them for the lifetime of the process.
package refdata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/sync/singleflight"

	"feedcore/internal/blob"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type entry struct {
	doc     any
	missing bool
}

// Cache is a populate-on-first-read document cache. Entries never change once
// stored and there is no invalidation. A key that was absent on first read
// stays absent.
type Cache struct {
	store blob.Store

	mu      sync.RWMutex
	entries map[string]entry
	group   singleflight.Group
}

// New returns a cache reading through store.
func New(store blob.Store) *Cache {
	return &Cache{store: store, entries: make(map[string]entry)}
}

// Store exposes the underlying blob store.
func (c *Cache) Store() blob.Store { return c.store }

// ReadJSON returns the decoded document stored under key. Objects decode to
// map[string]any and arrays to []any. Absent documents return an error
// wrapping blob.ErrNotFound.
func (c *Cache) ReadJSON(ctx context.Context, key string) (any, error) {
	if e, ok := c.lookup(key); ok {
		return e.result(key)
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		if e, ok := c.lookup(key); ok {
			return e, nil
		}
		e, err := c.load(ctx, key)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = e
		c.mu.Unlock()
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(entry).result(key)
}

// ReadObject is ReadJSON for documents whose root must be an object.
func (c *Cache) ReadObject(ctx context.Context, key string) (map[string]any, error) {
	doc, err := c.ReadJSON(ctx, key)
	if err != nil {
		return nil, err
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s: expected JSON object, got %T", key, doc)
	}
	return obj, nil
}

// Exists reports whether key can be read as a document.
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	_, err := c.ReadJSON(ctx, key)
	if errors.Is(err, blob.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Len reports the number of cached keys, including cached misses.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) lookup(key string) (entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return e, ok
}

func (c *Cache) load(ctx context.Context, key string) (entry, error) {
	_, rc, err := c.store.Get(ctx, key)
	if errors.Is(err, blob.ErrNotFound) {
		return entry{missing: true}, nil
	}
	if err != nil {
		return entry{}, fmt.Errorf("read %s: %w", key, err)
	}
	defer func() { _ = rc.Close() }()
	raw, err := io.ReadAll(rc)
	if err != nil {
		return entry{}, fmt.Errorf("read %s: %w", key, err)
	}
	doc, err := Decode(raw)
	if err != nil {
		return entry{}, &DecodeError{Key: key, Err: err}
	}
	return entry{doc: doc}, nil
}

func (e entry) result(key string) (any, error) {
	if e.missing {
		return nil, fmt.Errorf("%w: %s", blob.ErrNotFound, key)
	}
	return e.doc, nil
}

// DecodeError reports a stored document that is not valid JSON.
type DecodeError struct {
	Key string
	Err error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decode %s: %v", e.Key, e.Err) }

func (e *DecodeError) Unwrap() error { return e.Err }

// Decode parses a JSON document, tolerating a leading UTF-8 byte order mark.
func Decode(raw []byte) (any, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
