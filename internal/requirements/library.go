package requirements

import (
	"fmt"
	"sort"
	"strings"
)

// Index shapes recognised for breed -> phase -> reqKey maps.
const (
	ShapeProductionBreeds = "productions.breeds"
	ShapeBreeds           = "breeds"
	ShapeMap              = "map"
)

// Index is a decoded breed -> phase -> reqKey table.
type Index struct {
	Shape  string
	breeds map[string]map[string]string
}

type shapeDetector struct {
	name string
	find func(doc map[string]any, production string) (map[string]any, bool)
}

var indexShapes = []shapeDetector{
	{ShapeProductionBreeds, func(doc map[string]any, production string) (map[string]any, bool) {
		prods, ok := doc["productions"].(map[string]any)
		if !ok {
			return nil, false
		}
		prod, ok := prods[production].(map[string]any)
		if !ok {
			return nil, false
		}
		breeds, ok := prod["breeds"].(map[string]any)
		return breeds, ok
	}},
	{ShapeBreeds, func(doc map[string]any, _ string) (map[string]any, bool) {
		breeds, ok := doc["breeds"].(map[string]any)
		return breeds, ok
	}},
	{ShapeMap, func(doc map[string]any, _ string) (map[string]any, bool) {
		m, ok := doc["map"].(map[string]any)
		return m, ok
	}},
}

// ParseIndex detects the index shape and decodes it. Breed and phase keys are
// canonicalized the same way selectors are.
func ParseIndex(doc map[string]any, production string) (*Index, bool) {
	for _, d := range indexShapes {
		node, ok := d.find(doc, production)
		if !ok {
			continue
		}
		idx := &Index{Shape: d.name, breeds: make(map[string]map[string]string, len(node))}
		for breed, phases := range node {
			pm, ok := phases.(map[string]any)
			if !ok {
				continue
			}
			b := CanonicalBreed(breed)
			if idx.breeds[b] == nil {
				idx.breeds[b] = make(map[string]string, len(pm))
			}
			for phase, key := range pm {
				if s, ok := key.(string); ok && strings.TrimSpace(s) != "" {
					idx.breeds[b][CanonicalPhase(phase)] = strings.TrimSpace(s)
				}
			}
		}
		return idx, true
	}
	return nil, false
}

// Lookup returns the reqKey for breed and phase, falling back to the generic
// breed for the same phase only.
func (x *Index) Lookup(breed, phase string) (reqKey string, usedGeneric bool) {
	if key, ok := x.breeds[breed][phase]; ok {
		return key, false
	}
	if breed != DefaultBreed {
		if key, ok := x.breeds[DefaultBreed][phase]; ok {
			return key, true
		}
	}
	return "", false
}

// Breeds lists the breeds the index knows, sorted.
func (x *Index) Breeds() []string {
	out := make([]string, 0, len(x.breeds))
	for b := range x.breeds {
		out = append(out, b)
	}
	sort.Strings(out)
	return out
}

// Profile is one library entry with inheritance already applied.
type Profile struct {
	Key            string
	Label          string
	Inherits       string
	Targets        map[string]float64
	EvaluationKeys []string
}

type rawProfile struct {
	label          string
	inherits       string
	targets        map[string]float64
	evaluationKeys []string
}

// Library holds the flattened profiles of one library document.
type Library struct {
	profiles map[string]Profile
}

// Profile looks up a flattened profile by reqKey.
func (l *Library) Profile(reqKey string) (Profile, bool) {
	p, ok := l.profiles[reqKey]
	return p, ok
}

// Len reports the number of profiles.
func (l *Library) Len() int { return len(l.profiles) }

// libraryProfiles accepts {profiles:{...}}, {library:{profiles:{...}}} and a
// flat {reqKey:{...}} document.
func libraryProfiles(doc map[string]any) map[string]any {
	if p, ok := doc["profiles"].(map[string]any); ok {
		return p
	}
	if lib, ok := doc["library"].(map[string]any); ok {
		if p, ok := lib["profiles"].(map[string]any); ok {
			return p
		}
	}
	return doc
}

func decodeProfile(v map[string]any) rawProfile {
	rp := rawProfile{targets: map[string]float64{}}
	rp.label, _ = v["label"].(string)
	if s, ok := v["inherits"].(string); ok {
		rp.inherits = strings.TrimSpace(s)
	}
	for _, field := range []string{"targets", "targets_override"} {
		if t, ok := v[field].(map[string]any); ok {
			for k, n := range ExtractNumeric(t) {
				rp.targets[k] = n
			}
		}
	}
	if keys, ok := v["evaluation_keys"].([]any); ok {
		for _, k := range keys {
			if s, ok := k.(string); ok && strings.TrimSpace(s) != "" {
				rp.evaluationKeys = append(rp.evaluationKeys, strings.TrimSpace(s))
			}
		}
	}
	return rp
}

// ParseLibrary decodes a library document and resolves inheritance. Every
// inherits reference must name a profile of the same library and chains
// must not loop; either violation fails the whole library.
func ParseLibrary(doc map[string]any) (*Library, error) {
	raw := make(map[string]rawProfile)
	for key, v := range libraryProfiles(doc) {
		obj, ok := v.(map[string]any)
		if !ok || strings.HasPrefix(key, "_") {
			continue
		}
		raw[key] = decodeProfile(obj)
	}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if p := raw[k]; p.inherits != "" {
			if _, ok := raw[p.inherits]; !ok {
				return nil, &inheritError{profile: k, base: p.inherits}
			}
		}
	}
	lib := &Library{profiles: make(map[string]Profile, len(raw))}
	for _, k := range keys {
		p, err := flatten(raw, k, map[string]bool{})
		if err != nil {
			return nil, err
		}
		lib.profiles[k] = p
	}
	return lib, nil
}

func flatten(raw map[string]rawProfile, key string, seen map[string]bool) (Profile, error) {
	if seen[key] {
		return Profile{}, &inheritError{profile: key, cycle: true}
	}
	seen[key] = true
	rp := raw[key]
	p := Profile{
		Key:            key,
		Label:          rp.label,
		Inherits:       rp.inherits,
		Targets:        make(map[string]float64),
		EvaluationKeys: rp.evaluationKeys,
	}
	if rp.inherits != "" {
		base, err := flatten(raw, rp.inherits, seen)
		if err != nil {
			return Profile{}, err
		}
		for k, v := range base.Targets {
			p.Targets[k] = v
		}
		if p.Label == "" {
			p.Label = base.Label
		}
		if len(p.EvaluationKeys) == 0 {
			p.EvaluationKeys = base.EvaluationKeys
		}
	}
	for k, v := range rp.targets {
		p.Targets[k] = v
	}
	return p, nil
}

type inheritError struct {
	profile string
	base    string
	cycle   bool
}

func (e *inheritError) Error() string {
	if e.cycle {
		return fmt.Sprintf("profile %q inherits in a cycle", e.profile)
	}
	return fmt.Sprintf("profile %q inherits missing profile %q", e.profile, e.base)
}
