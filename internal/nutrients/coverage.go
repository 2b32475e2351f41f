package nutrients

import "feedcore/pkg/domain"

// Composition looks up catalog records. *catalog.Catalog satisfies it.
type Composition interface {
	Lookup(id string) (domain.IngredientRecord, bool)
}

// KeyCoverage counts how many resolved items carry a value for one key.
type KeyCoverage struct {
	Present   int  `json:"present"`
	Missing   int  `json:"missing"`
	Nonzero   int  `json:"nonzero"`
	Supported bool `json:"supported"`
}

// Coverage is per-key coverage over the resolved items.
type Coverage map[string]KeyCoverage

// BuildCoverage inspects every resolved item for every key. Values are
// looked up under StorageKey; deb also counts as present when the record
// carries Na, K and Cl.
func BuildCoverage(items []domain.FormulaItem, db Composition, keys []string) Coverage {
	cov := make(Coverage, len(keys))
	for _, k := range CleanKeys(keys) {
		var c KeyCoverage
		storage := StorageKey(k)
		for _, it := range items {
			rec, ok := db.Lookup(it.CanonicalID)
			if !ok {
				c.Missing++
				continue
			}
			v, ok := rec.Value(storage)
			if !ok && k == "deb" {
				v, ok = derivedDEB(rec)
			}
			if !ok {
				c.Missing++
				continue
			}
			c.Present++
			if v != 0 {
				c.Nonzero++
			}
		}
		c.Supported = c.Present > 0
		cov[k] = c
	}
	return cov
}

// derivedDEB is the electrolyte balance of one record when it stores Na, K
// and Cl but no deb value.
func derivedDEB(rec domain.IngredientRecord) (float64, bool) {
	na, okNa := rec.Value("na")
	k, okK := rec.Value("k")
	cl, okCl := rec.Value("cl")
	if !okNa || !okK || !okCl {
		return 0, false
	}
	return DEB(na, k, cl), true
}

// DEB is the dietary electrolyte balance in mEq/kg from percent Na, K and Cl.
func DEB(na, k, cl float64) float64 {
	return domain.Round(na*10000/23+k*10000/39.1-cl*10000/35.45, 2)
}

// Split partitions candidates into keys with supported coverage and the rest,
// each in candidate order.
func (c Coverage) Split(candidates []string) (used, skipped []string) {
	used, skipped = []string{}, []string{}
	for _, k := range candidates {
		if c[k].Supported {
			used = append(used, k)
		} else {
			skipped = append(skipped, k)
		}
	}
	return used, skipped
}

// Subset returns coverage for keys only.
func (c Coverage) Subset(keys []string) Coverage {
	out := make(Coverage, len(keys))
	for _, k := range keys {
		if v, ok := c[k]; ok {
			out[k] = v
		}
	}
	return out
}
