package domain

import "sort"

// AdjustPolicy carries the per-ingredient reference values used when lab
// measurements rescale catalog composition.
type AdjustPolicy struct {
	DMScaleEnabled bool    `json:"dm_scale_enabled"`
	RefDMPct       float64 `json:"ref_dm_pct,omitempty"`
	RefCPPct       float64 `json:"ref_cp_pct,omitempty"`
}

// IngredientRecord is the nutrient composition of one catalog ingredient.
// Records are immutable once a catalog has been loaded.
type IngredientRecord struct {
	ID           string             `json:"id"`
	Nutrients    map[string]float64 `json:"nutrients"`
	DMPct        *float64           `json:"dm_pct,omitempty"`
	AdjustPolicy *AdjustPolicy      `json:"adjust_policy,omitempty"`
	SIDCoefs     map[string]float64 `json:"sid_coefs,omitempty"`
}

// Value returns the nutrient value stored under key. Missing keys report
// ok=false rather than zero.
func (r IngredientRecord) Value(key string) (float64, bool) {
	if r.Nutrients == nil {
		return 0, false
	}
	v, ok := r.Nutrients[key]
	return v, ok
}

// SIDCoef returns the standardized ileal digestibility coefficient for an
// amino acid, accepting only values in (0, 1].
func (r IngredientRecord) SIDCoef(aa string) (float64, bool) {
	v, ok := r.SIDCoefs[aa]
	if !ok || v <= 0 || v > 1 {
		return 0, false
	}
	return v, true
}

// NutrientKeys lists the nutrient keys present on the record in sorted order.
func (r IngredientRecord) NutrientKeys() []string {
	keys := make([]string, 0, len(r.Nutrients))
	for k := range r.Nutrients {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy of the record.
func (r IngredientRecord) Clone() IngredientRecord {
	out := IngredientRecord{ID: r.ID}
	if r.Nutrients != nil {
		out.Nutrients = make(map[string]float64, len(r.Nutrients))
		for k, v := range r.Nutrients {
			out.Nutrients[k] = v
		}
	}
	if r.DMPct != nil {
		dm := *r.DMPct
		out.DMPct = &dm
	}
	if r.AdjustPolicy != nil {
		policy := *r.AdjustPolicy
		out.AdjustPolicy = &policy
	}
	if r.SIDCoefs != nil {
		out.SIDCoefs = make(map[string]float64, len(r.SIDCoefs))
		for k, v := range r.SIDCoefs {
			out.SIDCoefs[k] = v
		}
	}
	return out
}
