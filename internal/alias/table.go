package alias

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"feedcore/internal/blob"
	"feedcore/internal/refdata"
)

// Table maps normalized names to canonical ingredient ids.
type Table struct {
	entries map[string]string
}

// NewTable builds a table from normalized-name to canonical pairs.
func NewTable(entries map[string]string) *Table {
	t := &Table{entries: make(map[string]string, len(entries))}
	for _, k := range sortedKeys(entries) {
		t.add(k, entries[k])
	}
	return t
}

// builtinAliases are well-known labels used when no alias document names them.
var builtinAliases = map[string]string{
	"fish meal":        "fish_meal",
	"fishmeal":         "fish_meal",
	"rice broken":      "rice_broken",
	"broken rice":      "rice_broken",
	"millet bajra":     "millet_bajra",
	"bajra":            "millet_bajra",
	"soyabean oil":     "soybean_oil",
	"soybean oil":      "soybean_oil",
	"soya oil":         "soybean_oil",
	"dlm":              "dl_met",
	"dl met":           "dl_met",
	"dl methionine":    "dl_met",
	"choline chloride": "choline_chloride",
	"anti coccidial":   "anti_coccidial",
	"toxin binder":     "toxin_binder",
	"vitamin premix":   "vitamin_premix",
	"mineral premix":   "mineral_premix",
	"soybean meal":     "soybean_meal",
	"soyabean meal":    "soybean_meal",
	"soya meal":        "soybean_meal",
	"sbm":              "soybean_meal",
	"mbm":              "meat_bone_meal",
	"meat bone meal":   "meat_bone_meal",
	"cgm":              "corn_gluten_meal",
	"corn gluten meal": "corn_gluten_meal",
	"sunflower meal":   "sunflower_meal",
	"canola meal":      "canola_meal",
	"rapeseed meal":    "rapeseed_meal",
	"wheat":            "wheat",

	"ddgs":                  "ddgs",
	"corn ddgs":             "ddgs",
	"wheat ddgs":            "ddgs",
	"barley ddgs":           "ddgs",
	"corn ddgs high starch": "ddgs",
}

// TableKeys lists the alias documents consulted for a catalog selector,
// most specific first.
func TableKeys(species, region, version string) []string {
	return []string{
		fmt.Sprintf("aliases/%s/%s/%s/aliases.%s.%s.%s.json", species, region, version, species, region, version),
		"aliases/alias.db.json",
	}
}

// LoadTable merges the alias documents under keys (earlier documents win)
// and finally the built-in labels. Missing documents are skipped.
func LoadTable(ctx context.Context, cache *refdata.Cache, keys ...string) (*Table, []string, error) {
	t := &Table{entries: make(map[string]string)}
	var found []string
	for _, key := range keys {
		doc, err := cache.ReadJSON(ctx, key)
		if errors.Is(err, blob.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("load aliases: %w", err)
		}
		t.merge(doc)
		found = append(found, key)
	}
	for _, k := range sortedKeys(builtinAliases) {
		t.add(k, builtinAliases[k])
	}
	return t, found, nil
}

// ParseTable decodes one alias document.
func ParseTable(doc any) *Table {
	t := &Table{entries: make(map[string]string)}
	t.merge(doc)
	return t
}

// merge accepts {name: canonical}, {aliases: {name: canonical}} and
// {aliases: {canonical: [alias, ...]}}; values may mix both forms.
func (t *Table) merge(doc any) {
	root, ok := doc.(map[string]any)
	if !ok {
		return
	}
	if inner, ok := root["aliases"].(map[string]any); ok {
		root = inner
	}
	keys := make([]string, 0, len(root))
	for k := range root {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch v := root[k].(type) {
		case string:
			t.add(k, v)
		default:
			t.add(k, k)
			for _, a := range aliasList(v) {
				t.add(a, k)
			}
		}
	}
}

func aliasList(v any) []string {
	var raw []any
	switch x := v.(type) {
	case []any:
		raw = x
	case map[string]any:
		for _, field := range []string{"aliases", "alias", "list"} {
			if arr, ok := x[field].([]any); ok {
				raw = arr
				break
			}
		}
		if raw == nil {
			for _, k := range sortedKeys(x) {
				raw = append(raw, k)
			}
		}
	}
	out := make([]string, 0, len(raw))
	for _, a := range raw {
		if s, ok := a.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// add never overwrites an existing mapping.
func (t *Table) add(name, canonical string) {
	n := Normalize(name)
	if n == "" || canonical == "" {
		return
	}
	if _, exists := t.entries[n]; !exists {
		t.entries[n] = canonical
	}
}

// Lookup returns the canonical id for an already normalized name.
func (t *Table) Lookup(normalized string) (string, bool) {
	if t == nil {
		return "", false
	}
	v, ok := t.entries[normalized]
	return v, ok
}

// Len reports the number of entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// names returns every alias name and canonical id, for suggestions.
func (t *Table) names() []string {
	if t == nil {
		return nil
	}
	out := make([]string, 0, 2*len(t.entries))
	for k, v := range t.entries {
		out = append(out, k, v)
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
