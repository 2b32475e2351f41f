package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"feedcore/internal/blob"
	"feedcore/internal/refdata"
)

// BlobSource loads catalogs from JSON documents in the reference store.
// Built catalogs are kept per selector for the life of the source.
type BlobSource struct {
	cache *refdata.Cache

	mu    sync.Mutex
	built map[string]*Catalog
}

// NewBlobSource returns a source reading through cache.
func NewBlobSource(cache *refdata.Cache) *BlobSource {
	return &BlobSource{cache: cache, built: make(map[string]*Catalog)}
}

// Load implements Source.
func (s *BlobSource) Load(ctx context.Context, sel Selector) (*Catalog, error) {
	sel = sel.Normalized()
	id := sel.String()
	s.mu.Lock()
	if c, ok := s.built[id]; ok {
		s.mu.Unlock()
		return c, nil
	}
	s.mu.Unlock()

	inv, invFound, err := s.invariants(ctx)
	if err != nil {
		return nil, err
	}
	tried := sel.CandidateKeys()
	for _, key := range tried {
		doc, err := s.cache.ReadObject(ctx, key)
		if errors.Is(err, blob.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load catalog %s: %w", sel, err)
		}
		merged := mergeInvariants(unwrapDB(doc), inv)
		records := decodeRecords(merged)
		if len(records) == 0 {
			continue
		}
		c := New(sel, SourceInfo{Mode: "structured", File: key, InvariantsFile: InvariantsKey, InvariantsFound: invFound}, records)
		s.mu.Lock()
		if prior, ok := s.built[id]; ok {
			c = prior
		} else {
			s.built[id] = c
		}
		s.mu.Unlock()
		return c, nil
	}
	return nil, &NotFoundError{Selector: sel, Tried: tried}
}

func (s *BlobSource) invariants(ctx context.Context) (map[string]any, bool, error) {
	doc, err := s.cache.ReadObject(ctx, InvariantsKey)
	if errors.Is(err, blob.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load invariants: %w", err)
	}
	return unwrapDB(doc), true, nil
}
