// Package requirements selects the nutrient target set for an animal and
// production context. Targets always come from a reference document; when no
// document matches, a typed ResolutionError is returned instead of defaults.
package requirements

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"path"
	"strings"
	"sync"

	"go.uber.org/zap"

	"feedcore/internal/blob"
	"feedcore/internal/refdata"
	"feedcore/pkg/domain"
)

// Legacy document keys.
const (
	LegacyIndexKey   = "requirements/_index/requirements.index.v1.json"
	LegacyAliasesKey = "requirements/_index/requirements.aliases.v1.json"
)

// WrapperKey is the per species/type/version document naming the index and
// library for each production line.
func WrapperKey(species, typ, version string) string {
	return fmt.Sprintf("requirements/%s/%s/%s/requirements.index.%s.%s.%s.json", species, typ, version, species, typ, version)
}

// DirectKeys are the index and library keys used when no wrapper names them.
func DirectKeys(species, typ, production, version string) (index, library string) {
	dir := fmt.Sprintf("requirements/%s/%s/%s", species, typ, production)
	stem := fmt.Sprintf("%s_%s_%s.%s.json", species, typ, production, version)
	return dir + "/index." + stem, dir + "/library." + stem
}

// Resolver resolves selectors against requirement documents in the
// reference store.
type Resolver struct {
	cache *refdata.Cache
	log   *zap.Logger

	mu   sync.Mutex
	libs map[string]*Library
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger routes resolver diagnostics to l.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.log = l
		}
	}
}

// NewResolver returns a resolver reading through cache.
func NewResolver(cache *refdata.Cache, opts ...Option) *Resolver {
	r := &Resolver{cache: cache, log: zap.NewNop(), libs: make(map[string]*Library)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the flattened profile for sel. The production index
// strategy is tried first and the legacy flat documents second; the first
// success wins. Failures are *ResolutionError unless the store itself failed.
func (r *Resolver) Resolve(ctx context.Context, sel domain.Selectors) (domain.RequirementsProfile, error) {
	canon, inferred := Canonicalize(sel)
	log := r.log.With(
		zap.String("species", canon.Species),
		zap.String("type", canon.Type),
		zap.String("breed", canon.Breed),
		zap.String("phase", canon.Phase),
		zap.String("production", canon.Production),
	)

	var indexErr *ResolutionError
	if canon.Production != "" {
		prof, found, err := r.fromProductionIndex(ctx, canon, inferred)
		switch {
		case err == nil && found:
			log.Debug("requirements resolved", zap.String("req_key", prof.ReqKey), zap.String("mode", string(prof.Provenance.Mode)))
			return prof, nil
		case err != nil && !errors.As(err, &indexErr):
			return domain.RequirementsProfile{}, err
		case err != nil:
			log.Debug("production index failed, trying legacy documents", zap.String("kind", string(indexErr.Kind)))
		}
	}

	prof, err := r.fromLegacy(ctx, canon, inferred)
	if err == nil {
		log.Debug("requirements resolved", zap.String("req_key", prof.ReqKey), zap.String("mode", string(prof.Provenance.Mode)))
		return prof, nil
	}
	var legacyErr *ResolutionError
	if !errors.As(err, &legacyErr) {
		return domain.RequirementsProfile{}, err
	}
	if indexErr != nil {
		return domain.RequirementsProfile{}, indexErr
	}
	return domain.RequirementsProfile{}, legacyErr
}

// readDoc reads an object document. found is false for absent keys; documents
// that are not valid JSON objects become FILE_UNREADABLE.
func (r *Resolver) readDoc(ctx context.Context, sel domain.Selectors, key string) (map[string]any, bool, error) {
	doc, err := r.cache.ReadJSON(ctx, key)
	if errors.Is(err, blob.ErrNotFound) {
		return nil, false, nil
	}
	var decodeErr *refdata.DecodeError
	if errors.As(err, &decodeErr) {
		return nil, true, newError(domain.KindFileUnreadable, sel, map[string]string{"file": key}, "requirements file not readable: %s", key)
	}
	if err != nil {
		return nil, false, fmt.Errorf("read requirements %s: %w", key, err)
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, true, newError(domain.KindFileUnreadable, sel, map[string]string{"file": key}, "requirements file is not an object: %s", key)
	}
	return obj, true, nil
}

// locate finds the index and library keys for the production line, via the
// wrapper document when it names them.
func (r *Resolver) locate(ctx context.Context, sel domain.Selectors) (wrap, index, library string, err error) {
	wrapKey := WrapperKey(sel.Species, sel.Type, sel.Version)
	doc, found, err := r.readDoc(ctx, sel, wrapKey)
	if err != nil {
		return "", "", "", err
	}
	if found {
		prods, _ := doc["productions"].(map[string]any)
		if entry, ok := prods[sel.Production].(map[string]any); ok {
			idx, _ := entry["index_file"].(string)
			lib, _ := entry["library_file"].(string)
			if idx != "" && lib != "" {
				return wrapKey, relativeTo(wrapKey, idx), relativeTo(wrapKey, lib), nil
			}
		}
	}
	index, library = DirectKeys(sel.Species, sel.Type, sel.Production, sel.Version)
	return "", index, library, nil
}

func relativeTo(docKey, ref string) string {
	ref = strings.TrimPrefix(strings.ReplaceAll(ref, "\\", "/"), "./")
	if strings.HasPrefix(ref, "requirements/") {
		return path.Clean(ref)
	}
	return path.Join(path.Dir(docKey), ref)
}

func (r *Resolver) fromProductionIndex(ctx context.Context, sel domain.Selectors, inferred bool) (domain.RequirementsProfile, bool, error) {
	wrap, indexKey, libKey, err := r.locate(ctx, sel)
	if err != nil {
		return domain.RequirementsProfile{}, false, err
	}
	idxDoc, found, err := r.readDoc(ctx, sel, indexKey)
	if err != nil || !found {
		return domain.RequirementsProfile{}, false, err
	}
	details := map[string]string{
		"index_file":   indexKey,
		"library_file": libKey,
		"breed_wanted": sel.Breed,
		"phase_wanted": sel.Phase,
	}
	idx, ok := ParseIndex(idxDoc, sel.Production)
	if !ok {
		return domain.RequirementsProfile{}, false, newError(domain.KindFileUnreadable, sel, details, "requirements index has no breed mapping: %s", indexKey)
	}
	reqKey, usedGeneric := idx.Lookup(sel.Breed, sel.Phase)
	if reqKey == "" {
		details["index_shape"] = idx.Shape
		return domain.RequirementsProfile{}, false, newError(domain.KindPhaseEmpty, sel, details,
			"no reqKey for breed %q phase %q in %s", sel.Breed, sel.Phase, indexKey)
	}
	details["req_key"] = reqKey
	lib, err := r.library(ctx, sel, libKey, details)
	if err != nil {
		return domain.RequirementsProfile{}, false, err
	}
	p, ok := lib.Profile(reqKey)
	if !ok {
		return domain.RequirementsProfile{}, false, newError(domain.KindProfileMissing, sel, details,
			"reqKey %q exists in index but not in library %s", reqKey, libKey)
	}
	mapping := MapTargets(p.Targets)
	if len(mapping.Targets) == 0 {
		return domain.RequirementsProfile{}, false, newError(domain.KindPhaseEmpty, sel, details, "profile %q has no numeric targets", reqKey)
	}
	breed := sel.Breed
	if usedGeneric {
		breed = DefaultBreed
	}
	return domain.RequirementsProfile{
		ReqKey:         reqKey,
		Label:          p.Label,
		Production:     sel.Production,
		Breed:          breed,
		Phase:          sel.Phase,
		RawTargets:     maps.Clone(p.Targets),
		Targets:        mapping.Targets,
		EvaluationKeys: mapKeys(p.EvaluationKeys),
		Provenance: domain.Provenance{
			Mode:                domain.ModeProductionIndex,
			WrapFile:            wrap,
			IndexFile:           indexKey,
			LibraryFile:         libKey,
			IndexShape:          idx.Shape,
			BreedWanted:         sel.Breed,
			PhaseWanted:         sel.Phase,
			UsedGenericFallback: usedGeneric,
			Inherits:            p.Inherits,
			ProductionInferred:  inferred,
			MappingApplied:      mapping.Applied,
			RawKeys:             mapping.RawKeys,
			MappedKeys:          mapping.MappedKeys,
		},
	}, true, nil
}

// library parses and keeps the library document under key.
func (r *Resolver) library(ctx context.Context, sel domain.Selectors, key string, details map[string]string) (*Library, error) {
	r.mu.Lock()
	lib, ok := r.libs[key]
	r.mu.Unlock()
	if ok {
		return lib, nil
	}
	doc, found, err := r.readDoc(ctx, sel, key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, newError(domain.KindFileUnreadable, sel, details, "requirements library not found: %s", key)
	}
	lib, err = ParseLibrary(doc)
	if err != nil {
		return nil, newError(domain.KindInheritMissing, sel, details, "%s: %v", key, err)
	}
	r.mu.Lock()
	r.libs[key] = lib
	r.mu.Unlock()
	return lib, nil
}

func (r *Resolver) fromLegacy(ctx context.Context, sel domain.Selectors, inferred bool) (domain.RequirementsProfile, error) {
	idxDoc, found, err := r.readDoc(ctx, sel, LegacyIndexKey)
	if err != nil {
		return domain.RequirementsProfile{}, err
	}
	if !found {
		return domain.RequirementsProfile{}, newError(domain.KindProfileNotFound, sel,
			map[string]string{"index_file": LegacyIndexKey}, "no requirements profile for %s/%s/%s/%s", sel.Species, sel.Type, sel.Breed, sel.Phase)
	}
	aliases, _, err := r.readDoc(ctx, sel, LegacyAliasesKey)
	if err != nil {
		var re *ResolutionError
		if !errors.As(err, &re) {
			return domain.RequirementsProfile{}, err
		}
		aliases = nil
	}
	key := strings.Join([]string{
		legacyAlias(aliases, "species", sel.Species),
		legacyAlias(aliases, "type", sel.Type),
		legacyAlias(aliases, "breed", sel.Breed),
		legacyAlias(aliases, "region", sel.Region),
		legacyAlias(aliases, "version", sel.Version),
	}, "/")
	details := map[string]string{"index_file": LegacyIndexKey, "key": key}

	docKey := legacyPath(idxDoc, key)
	if docKey == "" {
		return domain.RequirementsProfile{}, newError(domain.KindProfileNotFound, sel, details, "no requirements profile in index for key: %s", key)
	}
	details["file"] = docKey
	doc, found, err := r.readDoc(ctx, sel, docKey)
	if err != nil {
		return domain.RequirementsProfile{}, err
	}
	if !found {
		return domain.RequirementsProfile{}, newError(domain.KindFileUnreadable, sel, details, "requirements file not readable: %s", docKey)
	}
	phaseObj, phaseName := pickPhase(doc, sel.Phase)
	if phaseObj == nil {
		return domain.RequirementsProfile{}, newError(domain.KindPhaseEmpty, sel, details, "requirements file has no phases: %s", docKey)
	}
	raw := ExtractNumeric(phaseObj, "phase", "age_days", "_meta")
	mapping := MapTargets(raw)
	if len(mapping.Targets) == 0 {
		details["phase"] = phaseName
		return domain.RequirementsProfile{}, newError(domain.KindPhaseEmpty, sel, details, "phase %q has no numeric nutrient keys: %s", phaseName, docKey)
	}
	return domain.RequirementsProfile{
		ReqKey:     key,
		Production: sel.Production,
		Breed:      sel.Breed,
		Phase:      phaseName,
		RawTargets: raw,
		Targets:    mapping.Targets,
		Provenance: domain.Provenance{
			Mode:               domain.ModeLegacyFlat,
			IndexFile:          LegacyIndexKey,
			LibraryFile:        docKey,
			BreedWanted:        sel.Breed,
			PhaseWanted:        sel.Phase,
			ProductionInferred: inferred,
			MappingApplied:     mapping.Applied,
			RawKeys:            mapping.RawKeys,
			MappedKeys:         mapping.MappedKeys,
		},
	}, nil
}

// legacyAlias applies the selector alias table for field, first by the
// lower-cased value and then by its token form.
func legacyAlias(aliases map[string]any, field, value string) string {
	table, _ := aliases[field].(map[string]any)
	lower := strings.ToLower(strings.TrimSpace(value))
	if v, ok := table[lower].(string); ok {
		return v
	}
	t := token(value)
	if v, ok := table[t].(string); ok {
		return v
	}
	return t
}

func legacyPath(idx map[string]any, key string) string {
	entries, _ := idx["entries"].([]any)
	for _, e := range entries {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		if k, _ := m["key"].(string); k != key {
			continue
		}
		p, _ := m["path"].(string)
		if p == "" {
			return ""
		}
		p = strings.TrimPrefix(strings.ReplaceAll(p, "\\", "/"), "./")
		if strings.HasPrefix(p, "requirements/") {
			return path.Clean(p)
		}
		return path.Join("requirements", p)
	}
	return ""
}

// pickPhase returns the phase object matching phase, else the first one.
func pickPhase(doc map[string]any, phase string) (map[string]any, string) {
	phases, _ := doc["phases"].([]any)
	var first map[string]any
	for _, p := range phases {
		obj, ok := p.(map[string]any)
		if !ok {
			continue
		}
		if first == nil {
			first = obj
		}
		name, _ := obj["phase"].(string)
		if token(name) == token(phase) {
			return obj, name
		}
	}
	if first == nil {
		return nil, ""
	}
	name, _ := first["phase"].(string)
	if name == "" {
		name = phase
	}
	return first, name
}

func mapKeys(keys []string) []string {
	if len(keys) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if m, ok := MapKey(k); ok && !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}
