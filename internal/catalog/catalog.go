// Package catalog loads ingredient nutrient matrices for a species, region,
// version and basis selector.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"feedcore/pkg/domain"
)

// SourceInfo records which documents produced a catalog.
type SourceInfo struct {
	Mode            string `json:"mode"`
	File            string `json:"file"`
	InvariantsFile  string `json:"invariants_file,omitempty"`
	InvariantsFound bool   `json:"invariants_found"`
}

// Catalog is an immutable ingredient table keyed by canonical id.
type Catalog struct {
	Selector Selector                           `json:"selector"`
	Source   SourceInfo                         `json:"source"`
	Records  map[string]domain.IngredientRecord `json:"records"`
}

// New builds a catalog from decoded records. Record IDs are set from the keys.
func New(sel Selector, src SourceInfo, records map[string]domain.IngredientRecord) *Catalog {
	out := make(map[string]domain.IngredientRecord, len(records))
	for id, r := range records {
		r.ID = id
		out[id] = r
	}
	return &Catalog{Selector: sel.Normalized(), Source: src, Records: out}
}

// Lookup returns the record for id.
func (c *Catalog) Lookup(id string) (domain.IngredientRecord, bool) {
	if c == nil {
		return domain.IngredientRecord{}, false
	}
	r, ok := c.Records[id]
	return r, ok
}

// Has reports whether id is a catalog key.
func (c *Catalog) Has(id string) bool {
	_, ok := c.Lookup(id)
	return ok
}

// Keys returns all canonical ids sorted.
func (c *Catalog) Keys() []string {
	if c == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Records))
	for k := range c.Records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Value returns nutrient key of ingredient id. Unknown ingredients and
// missing nutrients both report ok=false.
func (c *Catalog) Value(id, key string) (float64, bool) {
	r, ok := c.Lookup(id)
	if !ok {
		return 0, false
	}
	return r.Value(key)
}

// Len reports the number of ingredients.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Records)
}

// Source loads a catalog for a selector.
type Source interface {
	Load(ctx context.Context, sel Selector) (*Catalog, error)
}

// NotFoundError is returned when no candidate document yields any ingredient.
type NotFoundError struct {
	Selector Selector
	Tried    []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("ingredient catalog %s not found (tried %s)", e.Selector, strings.Join(e.Tried, ", "))
}

// Kind maps the error onto the pipeline taxonomy.
func (e *NotFoundError) Kind() domain.ErrorKind { return domain.KindCatalogNotFound }
