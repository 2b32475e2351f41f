// Package nutrients owns the nutrient key sets: which keys may be evaluated,
// which are summed for diagnostics and how friendly keys map onto catalog
// storage keys.
package nutrients

import (
	"regexp"
	"sort"
	"strings"

	"feedcore/pkg/domain"
)

// baseAllowed are always evaluable, registry or not.
var baseAllowed = []string{
	"me", "cp", "ca", "avp", "na", "k", "cl", "deb",
	"lys", "met", "met_cys", "thr", "trp", "arg", "ile", "leu", "val",
	"sid_lys", "sid_met", "sid_metcys", "sid_thr", "sid_trp", "sid_arg", "sid_ile", "sid_leu", "sid_val",
	"total_lys", "total_met", "total_metcys", "total_thr", "total_trp", "total_arg", "total_ile", "total_leu", "total_val",
}

// altKeys maps friendly amino-acid keys onto the SID keys catalogs store.
var altKeys = map[string]string{
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

// DefaultDiagnosticKeys are summed for the full nutrient profile when no
// registry document is available.
var DefaultDiagnosticKeys = []string{
	"me", "amen", "ne", "cp", "starch", "sugars", "ee", "linoleic", "linolenic", "oleic", "sfa", "ufa",
	"cf", "ndf", "adf", "lignin", "nsp_total", "nsp_sol", "nsp_insol", "beta_glucans", "arabinoxylans",
	"ca", "p_total", "avp", "npp", "dig_p", "mg", "s", "na", "k", "cl", "deb",
	"sid_lys", "sid_met", "sid_cys", "sid_metcys", "sid_thr", "sid_trp", "sid_arg", "sid_ile", "sid_val", "sid_leu",
	"total_lys", "total_met", "total_cys", "total_metcys", "total_thr", "total_trp", "total_arg", "total_ile", "total_val", "total_leu",
	"vit_a", "vit_d3", "vit_e", "vit_k", "vit_b1", "vit_b2", "vit_b6", "vit_b12",
	"niacin", "pantothenic_acid", "folic_acid", "biotin", "choline",
	"zn", "mn", "cu", "fe", "i", "se",
}

var envelope = map[string]bool{"_lock": true, "_LOCK": true, "meta": true, "schema": true, "note": true, "_meta": true}

var digitsOnly = regexp.MustCompile(`^\d+$`)

// StorageKey returns the catalog key holding the value for key.
func StorageKey(key string) string {
	if alt, ok := altKeys[key]; ok {
		return alt
	}
	return key
}

// CleanKeys trims keys and drops empties, purely numeric keys and repeats,
// keeping first-seen order.
func CleanKeys(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" || digitsOnly.MatchString(k) || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

// KeySet is the allow-list plus the diagnostic key list for one analysis.
type KeySet struct {
	allowed     map[string]bool
	diagnostics []string
	registry    bool
}

// NewKeySet builds the key set from a registry. A registry without keys
// leaves the curated allow-list and DefaultDiagnosticKeys in place.
func NewKeySet(reg Registry) *KeySet {
	ks := &KeySet{allowed: make(map[string]bool, len(baseAllowed)+len(reg.Keys))}
	for _, k := range baseAllowed {
		ks.allowed[k] = true
	}
	for _, k := range reg.Keys {
		ks.allowed[k] = true
	}
	if len(reg.Keys) > 0 {
		ks.diagnostics = CleanKeys(reg.Keys)
		ks.registry = true
	} else {
		ks.diagnostics = DefaultDiagnosticKeys
	}
	return ks
}

// Allowed reports whether key may be evaluated.
func (ks *KeySet) Allowed(key string) bool { return ks.allowed[key] }

// FromRegistry reports whether the diagnostic keys came from a registry.
func (ks *KeySet) FromRegistry() bool { return ks.registry }

// Candidates lists the keys a profile asks to evaluate: its evaluation_keys
// when present, else its target keys in sorted order, kept only when allowed
// and backed by a target.
func (ks *KeySet) Candidates(p domain.RequirementsProfile) []string {
	keys := p.EvaluationKeys
	if len(keys) == 0 {
		keys = p.TargetKeys()
	}
	out := make([]string, 0, len(keys))
	for _, k := range CleanKeys(keys) {
		if envelope[k] || !ks.allowed[k] {
			continue
		}
		if _, ok := p.Target(k); !ok {
			continue
		}
		out = append(out, k)
	}
	return out
}

// FullKeys is the diagnostic key list extended with extra keys it lacks.
func (ks *KeySet) FullKeys(extra ...string) []string {
	return CleanKeys(append(append([]string{}, ks.diagnostics...), extra...))
}

// SortedKeys returns the keys of m in order.
func SortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
