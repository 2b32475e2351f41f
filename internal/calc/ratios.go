// Package calc computes lab override ratios and sums catalog composition over
// a formula.
package calc

import (
	"strings"

	"feedcore/internal/nutrients"
	"feedcore/pkg/domain"
)

// Composition looks up catalog records.
type Composition = nutrients.Composition

// LabValues are measured dry matter and crude protein for one ingredient,
// either as percent (86) or fraction (0.86).
type LabValues struct {
	DM *float64 `json:"dm,omitempty" yaml:"dm,omitempty"`
	CP *float64 `json:"cp,omitempty" yaml:"cp,omitempty"`
}

// LabOverrides are keyed by ingredient id or raw formula name.
type LabOverrides map[string]LabValues

// Find returns the override for the first name that matches exactly or,
// failing that, case-insensitively.
func (o LabOverrides) Find(names ...string) (LabValues, bool) {
	for _, name := range names {
		if name == "" {
			continue
		}
		if v, ok := o[name]; ok {
			return v, true
		}
		want := strings.ToLower(strings.TrimSpace(name))
		for k, v := range o {
			if strings.ToLower(strings.TrimSpace(k)) == want {
				return v, true
			}
		}
	}
	return LabValues{}, false
}

// PercentLike reads a fraction in (0,1] as a percent and a value in (1,100]
// as-is. Anything else is rejected.
func PercentLike(v float64) (float64, bool) {
	switch {
	case v > 0 && v <= 1:
		return domain.Round(v*100, 6), true
	case v > 1 && v <= 100:
		return v, true
	}
	return 0, false
}

func percentPtr(v *float64) (float64, bool) {
	if v == nil {
		return 0, false
	}
	return PercentLike(*v)
}

// Override sources.
const (
	SourceLab    = "lab"
	SourceParser = "parser"
)

// Applied records one non-unity ratio.
type Applied struct {
	Ingredient string  `json:"ingredient"`
	Raw        string  `json:"raw"`
	Used       float64 `json:"used"`
	Ref        float64 `json:"ref"`
	Ratio      float64 `json:"ratio"`
	Source     string  `json:"source"`
}

// Ratios holds one OverrideRatio per input item, in input order, plus the
// non-unity ratios that were applied.
type Ratios struct {
	PerItem   []domain.OverrideRatio `json:"per_item"`
	DMApplied []Applied              `json:"dm_overrides_applied"`
	CPApplied []Applied              `json:"cp_overrides_applied"`
}

// For returns the ratio of item i, the unit ratio when out of range.
func (r Ratios) For(i int) domain.OverrideRatio {
	if i < 0 || i >= len(r.PerItem) {
		return domain.UnitRatio
	}
	return r.PerItem[i]
}

// ComputeRatios derives DM and CP ratios for each resolved item. A lab DM
// beats the line's [dm:..] annotation; CP comes from the lab only. The
// reference is the catalog's dm_pct and cp.
func ComputeRatios(items []domain.FormulaItem, db Composition, lab LabOverrides) Ratios {
	out := Ratios{
		PerItem:   make([]domain.OverrideRatio, len(items)),
		DMApplied: []Applied{},
		CPApplied: []Applied{},
	}
	for i, it := range items {
		out.PerItem[i] = domain.UnitRatio
		rec, ok := db.Lookup(it.CanonicalID)
		if !it.Resolved() || !ok {
			continue
		}
		ov, _ := lab.Find(it.CanonicalID, it.RawName, it.Cleaned)

		dmUsed, haveUsed := percentPtr(ov.DM)
		source := SourceLab
		if !haveUsed {
			dmUsed, haveUsed = percentPtr(it.DMPct)
			source = SourceParser
		}
		if dmRef, ok := percentPtr(rec.DMPct); haveUsed && ok {
			ratio := domain.Round(dmUsed/dmRef, 8)
			out.PerItem[i].DMRatio = ratio
			if ratio != 1 {
				out.DMApplied = append(out.DMApplied, Applied{
					Ingredient: it.CanonicalID, Raw: it.RawName, Used: dmUsed, Ref: dmRef, Ratio: ratio, Source: source,
				})
			}
		}

		cpUsed, haveCP := percentPtr(ov.CP)
		cpVal, hasCP := rec.Value("cp")
		if cpRef, ok := PercentLike(cpVal); haveCP && hasCP && ok {
			ratio := domain.Round(cpUsed/cpRef, 8)
			out.PerItem[i].CPRatio = ratio
			if ratio != 1 {
				out.CPApplied = append(out.CPApplied, Applied{
					Ingredient: it.CanonicalID, Raw: it.RawName, Used: cpUsed, Ref: cpRef, Ratio: ratio, Source: SourceLab,
				})
			}
		}
	}
	return out
}
