package nutrients

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"feedcore/internal/blob"
	"feedcore/internal/refdata"
)

// RegistryKey is the reference document listing every known nutrient.
const RegistryKey = "schema/master_nutrient_registry.v1.json"

// Registry is the decoded nutrient registry. Loaded is false when the
// document does not exist.
type Registry struct {
	Loaded bool
	File   string
	Keys   []string
}

// LoadRegistry reads the registry. A missing document yields an empty,
// unloaded registry rather than an error.
func LoadRegistry(ctx context.Context, cache *refdata.Cache) (Registry, error) {
	doc, err := cache.ReadJSON(ctx, RegistryKey)
	if errors.Is(err, blob.ErrNotFound) {
		return Registry{}, nil
	}
	if err != nil {
		return Registry{}, fmt.Errorf("load nutrient registry: %w", err)
	}
	return Registry{Loaded: true, File: RegistryKey, Keys: RegistryKeys(doc)}, nil
}

// RegistryKeys extracts keys from {nutrients:[{key:..}]} or
// {nutrients:{key:{...}}}. Array order is kept; object keys are sorted.
func RegistryKeys(doc any) []string {
	root, ok := doc.(map[string]any)
	if !ok {
		return nil
	}
	var keys []string
	switch n := root["nutrients"].(type) {
	case []any:
		for _, item := range n {
			switch v := item.(type) {
			case map[string]any:
				if k, ok := v["key"].(string); ok {
					keys = append(keys, strings.TrimSpace(k))
				}
			case string:
				keys = append(keys, strings.TrimSpace(v))
			}
		}
	case map[string]any:
		for k := range n {
			keys = append(keys, k)
		}
		sort.Strings(keys)
	}
	return CleanKeys(keys)
}
