// Package alias maps free-text ingredient names onto canonical catalog ids.
// Resolution is exact or table driven; similarity scoring only ever
// produces suggestions.
package alias

import (
	"feedcore/pkg/domain"
)

// Resolution is the outcome of resolving one raw name. Canonical may name an
// id the catalog lacks (an alias to a generic family key); InCatalog tells.
type Resolution struct {
	Raw         string                  `json:"raw"`
	Normalized  string                  `json:"normalized"`
	Canonical   string                  `json:"resolved,omitempty"`
	Method      domain.ResolutionMethod `json:"via"`
	InCatalog   bool                    `json:"found_in_db"`
	Suggestions []string                `json:"suggestions,omitempty"`
}

// Found reports whether any canonical id was produced.
func (r Resolution) Found() bool { return r.Canonical != "" }

// Resolver resolves names against one catalog's keys and an alias table.
type Resolver struct {
	table      *Table
	keys       map[string]struct{}
	byNormKey  map[string]string
	candidates []string
}

// SuggestionLimit caps suggestions attached to unresolved names.
const SuggestionLimit = 6

// NewResolver indexes catalogKeys. A nil table disables alias lookups.
func NewResolver(table *Table, catalogKeys []string) *Resolver {
	r := &Resolver{
		table:     table,
		keys:      make(map[string]struct{}, len(catalogKeys)),
		byNormKey: make(map[string]string, len(catalogKeys)),
	}
	for _, k := range catalogKeys {
		r.keys[k] = struct{}{}
		nk := normKey(k)
		if _, ok := r.byNormKey[nk]; !ok {
			r.byNormKey[nk] = k
		}
	}
	r.candidates = append(append([]string{}, catalogKeys...), table.names()...)
	return r
}

// Has reports whether id is a catalog key.
func (r *Resolver) Has(id string) bool {
	_, ok := r.keys[id]
	return ok
}

// Resolve tries, in order: direct catalog key, alias table (also with a
// trailing grade removed), snake-cased key. Unresolved names carry
// suggestions and method fuzzy when any candidate scored high enough.
func (r *Resolver) Resolve(raw string) Resolution {
	n := Normalize(raw)
	res := Resolution{Raw: raw, Normalized: n, Method: domain.MethodNone}
	if n == "" {
		return res
	}
	if id, ok := r.direct(raw); ok {
		res.Canonical, res.Method, res.InCatalog = id, domain.MethodDirect, true
		return res
	}
	variants := []string{n}
	if stripped := stripTrailingGrade(n); stripped != "" && stripped != n {
		variants = append(variants, stripped)
	}
	for _, v := range variants {
		mapped, ok := r.table.Lookup(v)
		if !ok {
			continue
		}
		if r.Has(mapped) {
			res.Canonical, res.Method, res.InCatalog = mapped, domain.MethodAlias, true
			return res
		}
		if s := Snake(mapped); r.Has(s) {
			res.Canonical, res.Method, res.InCatalog = s, domain.MethodAliasSnake, true
			return res
		}
		res.Canonical, res.Method = mapped, domain.MethodAlias
		return res
	}
	if s := Snake(n); r.Has(s) {
		res.Canonical, res.Method, res.InCatalog = s, domain.MethodSnake, true
		return res
	}
	res.Suggestions = r.Suggest(n, SuggestionLimit)
	if len(res.Suggestions) > 0 {
		res.Method = domain.MethodFuzzy
	}
	return res
}

func (r *Resolver) direct(raw string) (string, bool) {
	if r.Has(raw) {
		return raw, true
	}
	id, ok := r.byNormKey[normKey(raw)]
	return id, ok
}

// Suggest proposes catalog ids and alias names similar to name.
func (r *Resolver) Suggest(name string, limit int) []string {
	return SuggestFrom(name, r.candidates, limit)
}
