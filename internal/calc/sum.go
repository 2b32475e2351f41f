package calc

import (
	"strings"

	"feedcore/internal/nutrients"
	"feedcore/pkg/domain"
)

// DefaultRefDMPct is the reference dry matter used when a record enables DM
// scaling without naming its own reference.
const DefaultRefDMPct = 88

// Options select the CP and DM policies. Empty modes read ME_ONLY and NONE.
type Options struct {
	DMMode domain.DMScaleMode
	CPMode domain.CPApplyMode
}

func (o Options) normalized() Options {
	if o.DMMode == "" {
		o.DMMode = domain.DMScaleMEOnly
	}
	if o.CPMode == "" {
		o.CPMode = domain.CPApplyNone
	}
	return o
}

// dmExempt keys are never rescaled for dry matter.
var dmExempt = map[string]bool{"deb": true}

// Sum accumulates every key over the resolved items, weighting each item by
// inclusion/100. ratios is index-aligned with items. Energy is rounded to 1 dp
// and everything else to 4 dp; deb is derived from the Na, K and Cl sums when
// all three are requested.
func Sum(items []domain.FormulaItem, ratios Ratios, db Composition, keys []string, opts Options) map[string]float64 {
	opts = opts.normalized()
	keys = nutrients.CleanKeys(keys)
	acc := make(map[string]float64, len(keys))
	for _, k := range keys {
		acc[k] = 0
	}
	for i, it := range items {
		rec, ok := db.Lookup(it.CanonicalID)
		if !it.Resolved() || !ok {
			continue
		}
		r := ratios.For(i)
		cpRatio := positiveOr1(r.CPRatio)
		dmFactor := positiveOr1(r.DMRatio) * recordDMFactor(rec)
		weight := it.Inclusion / 100
		for _, k := range keys {
			v, ok := rec.Value(nutrients.StorageKey(k))
			if !ok {
				continue
			}
			if opts.CPMode != domain.CPApplyNone && cpRatio != 1 {
				v = applyCP(rec, k, v, cpRatio, opts.CPMode)
			}
			if dmFactor != 1 && dmApplies(k, opts.DMMode) {
				v *= dmFactor
			}
			acc[k] += v * weight
		}
	}
	out := make(map[string]float64, len(acc))
	for k, v := range acc {
		if k == "me" {
			out[k] = domain.Round(v, 1)
		} else {
			out[k] = domain.Round(v, 4)
		}
	}
	if _, na := acc["na"]; na {
		_, k := acc["k"]
		_, cl := acc["cl"]
		if k && cl {
			out["deb"] = nutrients.DEB(out["na"], out["k"], out["cl"])
		}
	}
	return out
}

func positiveOr1(v float64) float64 {
	if v > 0 {
		return v
	}
	return 1
}

// recordDMFactor is dm_pct over the reference DM for records that opt in to
// DM scaling, else 1.
func recordDMFactor(rec domain.IngredientRecord) float64 {
	p := rec.AdjustPolicy
	if p == nil || !p.DMScaleEnabled || rec.DMPct == nil || *rec.DMPct <= 0 {
		return 1
	}
	ref := p.RefDMPct
	if ref <= 0 {
		ref = DefaultRefDMPct
	}
	return *rec.DMPct / ref
}

func dmApplies(key string, mode domain.DMScaleMode) bool {
	if mode == domain.DMScaleAllNutrients {
		return !dmExempt[key]
	}
	return key == "me"
}

// applyCP propagates a crude-protein ratio: cp and total amino acids scale
// directly, SID amino acids follow mode. The policy follows the storage key,
// so lys and sid_lys agree.
func applyCP(rec domain.IngredientRecord, key string, v, cpRatio float64, mode domain.CPApplyMode) float64 {
	key = nutrients.StorageKey(key)
	switch {
	case key == "cp", strings.HasPrefix(key, "total_"):
		return v * cpRatio
	case strings.HasPrefix(key, "sid_"):
		switch mode {
		case domain.CPApplyRecomputeSIDFromTotal:
			aa := strings.TrimPrefix(key, "sid_")
			total, okTotal := rec.Value("total_" + aa)
			coef, okCoef := rec.SIDCoef(aa)
			if okTotal && okCoef {
				return total * cpRatio * coef
			}
			return v
		case domain.CPApplyScaleSIDDirect:
			return v * cpRatio
		}
	}
	return v
}
