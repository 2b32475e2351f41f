package evaluate

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"feedcore/internal/blob"
	"feedcore/internal/refdata"
	"feedcore/internal/requirements"
	"feedcore/pkg/domain"
)

// LimitsKey is the optional inclusion-limits document for one species, type
// and version.
func LimitsKey(species, typ, version string) string {
	return fmt.Sprintf("limits/%s/%s/limits.%s.%s.%s.json", species, typ, species, typ, version)
}

// defaultLimitsEntry applies to every profile without its own entry.
const defaultLimitsEntry = "_default"

// LoadLimits reads the limits for reqKey. The document maps profile keys to
// {ingredient: {min, max, rec_min, rec_max}}. A missing document or entry
// yields nil limits and no error.
func LoadLimits(ctx context.Context, cache *refdata.Cache, sel domain.Selectors, reqKey string) (map[string]domain.Limits, string, error) {
	key := LimitsKey(sel.Species, sel.Type, sel.Version)
	doc, err := cache.ReadObject(ctx, key)
	if errors.Is(err, blob.ErrNotFound) {
		return nil, "", nil
	}
	if err != nil {
		return nil, key, fmt.Errorf("load inclusion limits: %w", err)
	}
	entry, ok := doc[reqKey].(map[string]any)
	if !ok {
		if entry, ok = doc[defaultLimitsEntry].(map[string]any); !ok {
			return nil, key, nil
		}
	}
	out := make(map[string]domain.Limits, len(entry))
	for ingredient, raw := range entry {
		obj, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		out[ingredient] = domain.Limits{
			Min:    bound(obj, "min"),
			Max:    bound(obj, "max"),
			RecMin: bound(obj, "rec_min"),
			RecMax: bound(obj, "rec_max"),
		}
	}
	return out, key, nil
}

func bound(obj map[string]any, field string) *float64 {
	v, ok := requirements.DecodeValue(obj[field])
	if !ok || v.Kind == requirements.ValueObject {
		return nil
	}
	n := v.Number
	return &n
}

// NewInclusionLimitsRule returns the rule checking ingredient inclusion
// against hard and recommended bounds.
func NewInclusionLimitsRule() Rule {
	return inclusionLimitsRule{}
}

type inclusionLimitsRule struct{}

func (inclusionLimitsRule) Name() string { return "inclusion_limits" }

func (inclusionLimitsRule) Evaluate(_ context.Context, in Input) (domain.Evaluation, error) {
	if len(in.Limits) == 0 {
		return domain.Evaluation{}, nil
	}
	inclusion := make(map[string]float64, len(in.Items))
	for _, it := range in.Items {
		if it.Resolved() {
			inclusion[it.CanonicalID] += it.Inclusion
		}
	}
	ingredients := make([]string, 0, len(in.Limits))
	for id := range in.Limits {
		ingredients = append(ingredients, id)
	}
	sort.Strings(ingredients)

	res := domain.Evaluation{LimitsOverall: domain.StatusOK, Limits: []domain.LimitFinding{}}
	for _, id := range ingredients {
		lim := in.Limits[id]
		val := inclusion[id]
		status, reason := checkLimit(val, lim)
		res.Limits = append(res.Limits, domain.LimitFinding{
			Ingredient: id,
			Inclusion:  domain.Round(val, 4),
			Limits:     lim,
			Status:     status,
			Reason:     reason,
		})
		res.LimitsOverall = domain.Worst(res.LimitsOverall, status)
	}
	sort.SliceStable(res.Limits, func(i, j int) bool {
		return res.Limits[i].Status.Rank() > res.Limits[j].Status.Rank()
	})
	return res, nil
}

// checkLimit applies hard bounds first; recommended bounds only warn when no
// hard bound failed.
func checkLimit(val float64, lim domain.Limits) (domain.Status, string) {
	switch {
	case lim.Max != nil && val > *lim.Max:
		return domain.StatusFail, fmt.Sprintf("above hard max (%g%%)", *lim.Max)
	case lim.Min != nil && val < *lim.Min:
		return domain.StatusFail, fmt.Sprintf("below hard min (%g%%)", *lim.Min)
	case lim.RecMax != nil && val > *lim.RecMax:
		return domain.StatusWarn, fmt.Sprintf("above recommended max (%g%%)", *lim.RecMax)
	case lim.RecMin != nil && val < *lim.RecMin:
		return domain.StatusWarn, fmt.Sprintf("below recommended min (%g%%)", *lim.RecMin)
	}
	return domain.StatusOK, "within range"
}
