package requirements

import (
	"regexp"
	"strings"

	"feedcore/pkg/domain"
)

// Selector defaults applied before any lookup.
const (
	DefaultSpecies = "poultry"
	DefaultType    = "broiler"
	DefaultBreed   = "generic"
	DefaultPhase   = "starter"
	DefaultRegion  = "global"
	DefaultVersion = "v1"
)

var (
	phaseSuffixes = []string{
		"prelay", "pre-lay", "early", "peak", "late", "starter", "grower", "finisher",
		"breeder", "layer", "meat", "prepeak", "postpeak", "post-peak", "parent", "rearing", "lay",
	}
	phaseAliases = map[string]string{
		"pre-lay":     "prelay",
		"pre_lay":     "prelay",
		"post-peak":   "postpeak",
		"post_peak":   "postpeak",
		"pre_starter": "starter",
		"prestarter":  "starter",
		"grower1":     "grower",
		"grower_1":    "grower",
		"finish":      "finisher",
	}
	breedAliases = map[string]string{
		"ross":                    "ross_308",
		"ross308":                 "ross_308",
		"ross_308_ap":             "ross_308",
		"cobb":                    "cobb_500",
		"cobb500":                 "cobb_500",
		"hubbard_efficiency_plus": "hubbard",
		"arbor_acres":             "aa",
		"arboracres":              "aa",
		"indian_river":            "ir",
		"indianriver":             "ir",
	}
	minorPoultry = []string{"duck", "goose", "quail", "turkey"}

	tokenRe = regexp.MustCompile(`[^a-z0-9]+`)
	dashes  = strings.NewReplacer("‐", "-", "‑", "-", "‒", "-", "–", "-", "—", "-")
)

// token lower-cases s and folds runs of anything but letters and digits into
// one underscore.
func token(s string) string {
	s = dashes.Replace(strings.ToLower(strings.TrimSpace(s)))
	return strings.Trim(tokenRe.ReplaceAllString(s, "_"), "_")
}

// CanonicalPhase folds phase spellings onto the names used by indices:
// "broiler_grower" and "grower_2" read "grower", "pre-lay" reads "prelay".
func CanonicalPhase(phase string) string {
	p := dashes.Replace(strings.ToLower(strings.TrimSpace(phase)))
	if p == "" {
		return DefaultPhase
	}
	if v, ok := phaseAliases[p]; ok {
		return v
	}
	if strings.Contains(p, "_") {
		parts := strings.FieldsFunc(p, func(r rune) bool { return r == '_' })
		for i := len(parts) - 1; i >= 0; i-- {
			if contains(phaseSuffixes, parts[i]) {
				p = parts[i]
				break
			}
		}
	}
	if v, ok := phaseAliases[p]; ok {
		return v
	}
	if t := token(p); t != "" {
		if v, ok := phaseAliases[t]; ok {
			return v
		}
		return t
	}
	return DefaultPhase
}

// CanonicalBreed maps breed spellings to index keys; empty reads "generic".
func CanonicalBreed(breed string) string {
	b := token(breed)
	if b == "" {
		return DefaultBreed
	}
	if v, ok := breedAliases[b]; ok {
		return v
	}
	return b
}

// InferProduction picks the production line. An explicit value wins
// ("egg" reads "layer", "female" reads "breeder"). Otherwise minor poultry
// types are decided by phase keyword and other types by type. The second
// result reports whether the value was inferred.
func InferProduction(species, typ, phase, explicit string) (string, bool) {
	switch p := strings.ToLower(strings.TrimSpace(explicit)); p {
	case "":
	case "egg":
		return "layer", false
	case "female":
		return "breeder", false
	default:
		return p, false
	}
	t := strings.ToLower(strings.TrimSpace(typ))
	if strings.ToLower(strings.TrimSpace(species)) == DefaultSpecies && contains(minorPoultry, t) {
		ph := strings.ToLower(phase)
		switch {
		case strings.Contains(ph, "breeder"), strings.Contains(ph, "parent"):
			return "breeder", true
		case strings.Contains(ph, "lay"):
			return "layer", true
		}
		return "meat", true
	}
	switch t {
	case "broiler":
		return "meat", true
	case "layer":
		return "layer", true
	case "broiler_breeder":
		return "breeder", true
	}
	return "", true
}

// Canonicalize applies defaults, folds breed and phase spellings and settles
// the production line. It reports whether production was inferred.
func Canonicalize(sel domain.Selectors) (domain.Selectors, bool) {
	out := domain.Selectors{
		Species: orDefault(token(sel.Species), DefaultSpecies),
		Type:    orDefault(token(sel.Type), DefaultType),
		Breed:   CanonicalBreed(sel.Breed),
		Phase:   CanonicalPhase(sel.Phase),
		Region:  orDefault(token(sel.Region), DefaultRegion),
		Version: orDefault(strings.ToLower(strings.TrimSpace(sel.Version)), DefaultVersion),
	}
	var inferred bool
	out.Production, inferred = InferProduction(out.Species, out.Type, sel.Phase, sel.Production)
	return out, inferred
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
