package catalog

import (
	"math"
	"strconv"
	"strings"

	"feedcore/pkg/domain"
)

// sidEngineKeys exposes SID storage fields under the engine's friendly keys.
var sidEngineKeys = map[string]string{
	"lys":     "sid_lys",
	"met":     "sid_met",
	"met_cys": "sid_metcys",
	"thr":     "sid_thr",
	"trp":     "sid_trp",
	"arg":     "sid_arg",
	"ile":     "sid_ile",
	"leu":     "sid_leu",
	"val":     "sid_val",
}

// unwrap detectors, tried in order.
var unwrapShapes = []func(map[string]any) (map[string]any, bool){
	wrappedIn("ingredients"),
	wrappedIn("db"),
}

func wrappedIn(field string) func(map[string]any) (map[string]any, bool) {
	return func(doc map[string]any) (map[string]any, bool) {
		m, ok := doc[field].(map[string]any)
		return m, ok
	}
}

// unwrapDB returns the ingredient table inside a document.
func unwrapDB(doc map[string]any) map[string]any {
	for _, shape := range unwrapShapes {
		if m, ok := shape(doc); ok {
			return m
		}
	}
	return doc
}

// mergeInvariants overlays invariant rows onto base. Base values win, but a
// null base field never erases an invariant value; invariant-only rows are added.
func mergeInvariants(base, inv map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(inv))
	for k, v := range base {
		out[k] = v
	}
	for id, invRow := range inv {
		baseRow, present := out[id]
		if !present || baseRow == nil {
			out[id] = invRow
			continue
		}
		invObj, ok1 := invRow.(map[string]any)
		baseObj, ok2 := baseRow.(map[string]any)
		if !ok1 || !ok2 {
			continue
		}
		merged := make(map[string]any, len(invObj)+len(baseObj))
		for k, v := range invObj {
			merged[k] = v
		}
		for k, v := range baseObj {
			if v == nil {
				continue
			}
			merged[k] = v
		}
		out[id] = merged
	}
	return out
}

// decodeRecords converts raw rows into records. Non-object rows (wrapper
// envelopes such as _LOCK or meta) are skipped.
func decodeRecords(db map[string]any) map[string]domain.IngredientRecord {
	out := make(map[string]domain.IngredientRecord, len(db))
	for id, raw := range db {
		row, ok := raw.(map[string]any)
		if !ok || strings.HasPrefix(id, "_") || id == "meta" {
			continue
		}
		out[id] = decodeRow(id, row)
	}
	return out
}

func decodeRow(id string, row map[string]any) domain.IngredientRecord {
	rec := domain.IngredientRecord{ID: id, Nutrients: make(map[string]float64, len(row))}
	var flatCoefs map[string]float64
	for k, v := range row {
		switch {
		case k == "adjust_policy":
			rec.AdjustPolicy = decodePolicy(v)
		case k == "sid_coefs":
			if m, ok := v.(map[string]any); ok {
				rec.SIDCoefs = numericMap(m)
			}
		case strings.HasPrefix(k, "sid_coef_"):
			if n, ok := ToNumber(v); ok {
				if flatCoefs == nil {
					flatCoefs = make(map[string]float64)
				}
				flatCoefs[strings.TrimPrefix(k, "sid_coef_")] = n
			}
		default:
			if n, ok := ToNumber(v); ok {
				rec.Nutrients[k] = n
				if k == "dm_pct" {
					dm := n
					rec.DMPct = &dm
				}
			}
		}
	}
	// The object form takes precedence over flattened coefficient fields.
	if rec.SIDCoefs == nil && flatCoefs != nil {
		rec.SIDCoefs = flatCoefs
	}
	for engineKey, sidKey := range sidEngineKeys {
		if _, ok := rec.Nutrients[engineKey]; ok {
			continue
		}
		if v, ok := rec.Nutrients[sidKey]; ok {
			rec.Nutrients[engineKey] = v
		}
	}
	return rec
}

func decodePolicy(v any) *domain.AdjustPolicy {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	p := &domain.AdjustPolicy{}
	if dm, ok := m["dm_scale"].(map[string]any); ok {
		p.DMScaleEnabled = dm["enabled"] == true
		if ref, ok := ToNumber(dm["ref_dm_pct"]); ok {
			p.RefDMPct = ref
		}
	}
	if cp, ok := m["cp"].(map[string]any); ok {
		if ref, ok := ToNumber(cp["ref_cp_pct"]); ok {
			p.RefCPPct = ref
		}
	}
	return p
}

func numericMap(m map[string]any) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		if n, ok := ToNumber(v); ok {
			out[k] = n
		}
	}
	return out
}

// ToNumber accepts JSON numbers and strings that parse as finite numbers.
func ToNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, !math.IsNaN(x) && !math.IsInf(x, 0)
	case int:
		return float64(x), true
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	}
	return 0, false
}
