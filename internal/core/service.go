// Package core runs the formula analysis pipeline: parse, resolve, gate on
// lab overrides, select requirements, sum and evaluate.
package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"feedcore/internal/alias"
	"feedcore/internal/calc"
	"feedcore/internal/catalog"
	"feedcore/internal/evaluate"
	"feedcore/internal/nutrients"
	"feedcore/internal/parser"
	"feedcore/internal/refdata"
	"feedcore/internal/requirements"
	"feedcore/pkg/domain"
)

// Gate messages.
const (
	msgNeedsDMScaleMode = "DM overrides were provided. Choose whether to apply DM scaling to ME only or to all nutrients."
	msgNeedsCPApplyMode = "CP overrides were provided. Choose how CP should affect Total AAs and how SID AAs should be recomputed."
)

// Service exposes the analysis pipeline over one reference store.
type Service struct {
	cache    *refdata.Cache
	catalogs catalog.Source
	reqs     *requirements.Resolver
	opts     serviceOptions

	mu        sync.Mutex
	resolvers map[string]aliasEntry
}

type aliasEntry struct {
	catalog  *catalog.Catalog
	resolver *alias.Resolver
	files    []string
}

// NewService constructs a service reading reference documents through cache.
// A nil catalogs source reads catalogs from the same store.
func NewService(cache *refdata.Cache, catalogs catalog.Source, opts ...Option) *Service {
	o := defaultServiceOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if catalogs == nil {
		catalogs = catalog.NewBlobSource(cache)
	}
	return &Service{
		cache:     cache,
		catalogs:  catalogs,
		reqs:      requirements.NewResolver(cache, requirements.WithLogger(o.logger.Named("requirements"))),
		opts:      o,
		resolvers: make(map[string]aliasEntry),
	}
}

// Catalogs returns the source Analyze loads catalogs from.
func (s *Service) Catalogs() catalog.Source { return s.catalogs }

// Requirements returns the resolver the service selects profiles with.
func (s *Service) Requirements() *requirements.Resolver { return s.reqs }

// Analyze runs one analysis. Gates and requirement failures come back as a
// Response with the matching Status; the error is reserved for invalid
// requests, reference-store failures outside requirements and cancellation.
func (s *Service) Analyze(ctx context.Context, req Request) (resp Response, err error) {
	start := time.Now()
	ctx, span := s.opts.tracer.Start(ctx, "analyze")
	defer func() {
		span.End(err)
		s.opts.metrics.Observe(ctx, "analyze", err == nil, time.Since(start))
	}()
	if err := req.Validate(); err != nil {
		return Response{}, err
	}
	req = req.withDefaults()
	dmMode, _ := domain.ParseDMScaleMode(req.DMScaleMode)
	cpMode, _ := domain.ParseCPApplyMode(req.CPApplyMode)

	canon, inferred := requirements.Canonicalize(req.selectors())
	echo := req.selectors()
	echo.Production = canon.Production
	resp = Response{
		Meta: Meta{
			Selectors:          echo,
			ProductionInferred: inferred,
			Normalize:          req.Normalize,
			DMScaleModeUsed:    dmMode,
			CPApplyModeUsed:    cpMode,
			DMOverridesApplied: []calc.Applied{},
			CPOverridesApplied: []calc.Applied{},
			ResolutionMap:      []ResolutionEntry{},
		},
		ItemsResolved: []ResolvedItem{},
		Unknown:       []UnknownItem{},
	}
	log := s.opts.logger.With(
		zap.String("species", echo.Species),
		zap.String("type", echo.Type),
		zap.String("breed", echo.Breed),
		zap.String("phase", echo.Phase),
		zap.String("production", echo.Production),
	)

	// Catalog and alias table. The parser resolves against both.
	csel := req.catalogSelector()
	var (
		cat      *catalog.Catalog
		resolver *alias.Resolver
	)
	err = s.stage(ctx, "analyze.catalog", func(ctx context.Context) error {
		var err error
		if cat, err = s.catalogs.Load(ctx, csel); err != nil {
			return err
		}
		resolver, resp.Meta.AliasFiles, err = s.aliasResolver(ctx, csel, cat)
		return err
	})
	var notFound *catalog.NotFoundError
	if errors.As(err, &notFound) {
		log.Info("catalog not found", zap.String("catalog", csel.String()))
		resp.Status = string(domain.KindCatalogNotFound)
		resp.Message = notFound.Error()
		return resp, nil
	}
	if err != nil {
		return Response{}, fmt.Errorf("analyze: %w", err)
	}
	resp.Meta.IngredientsMode = cat.Source.Mode
	resp.Meta.IngredientsFile = cat.Source.File

	// Parse, normalize, resolve.
	parsed := parser.Parse(req.Formula, resolver)
	if req.Normalize {
		parser.Normalize(&parsed)
	}
	resp.Parsed = &parsed
	if len(parsed.NeedsClarification) > 0 {
		resp.Meta.NeedsClarification = parsed.NeedsClarification
		resp.Meta.ClarificationText = parser.ClarificationText(parsed.NeedsClarification)
		resp.Meta.ClarificationExamples = parser.ClarificationExamples(parsed.NeedsClarification)
	}
	for _, it := range parsed.Items {
		resp.Meta.ResolutionMap = append(resp.Meta.ResolutionMap, ResolutionEntry{
			Raw:       it.RawName,
			Canonical: it.CanonicalID,
			Via:       it.Method,
			FoundInDB: it.Resolved(),
			Inclusion: it.Inclusion,
			Lot:       it.Lot,
		})
		if !it.Resolved() {
			resp.Unknown = append(resp.Unknown, UnknownItem{
				Ingredient:         it.RawName,
				Inclusion:          it.Inclusion,
				NeedsClarification: it.NeedsClarification,
			})
		}
	}
	resolved := parsed.Resolved()
	ratios := calc.ComputeRatios(resolved, cat, req.Lab)
	for i, it := range resolved {
		r := ratios.For(i)
		item := ResolvedItem{Ingredient: it.CanonicalID, Inclusion: it.Inclusion, Lot: it.Lot, DMRatio: r.DMRatio, CPRatio: r.CPRatio}
		if it.RawName != it.CanonicalID {
			item.Raw = it.RawName
		}
		resp.ItemsResolved = append(resp.ItemsResolved, item)
	}
	resp.Meta.DMOverridesApplied = ratios.DMApplied
	resp.Meta.CPOverridesApplied = ratios.CPApplied

	// Gates.
	if len(ratios.DMApplied) > 0 && dmMode == "" {
		log.Info("analysis gated", zap.String("gate", string(domain.KindNeedsDMScaleMode)), zap.Int("dm_overrides", len(ratios.DMApplied)))
		resp.Status = string(domain.KindNeedsDMScaleMode)
		resp.Message = msgNeedsDMScaleMode
		resp.Choices = modeStrings(domain.DMScaleChoices)
		return resp, nil
	}
	if dmMode == "" {
		dmMode = domain.DMScaleMEOnly
	}
	resp.Meta.DMScaleModeUsed = dmMode
	if len(ratios.CPApplied) > 0 && cpMode == "" {
		log.Info("analysis gated", zap.String("gate", string(domain.KindNeedsCPApplyMode)), zap.Int("cp_overrides", len(ratios.CPApplied)))
		resp.Status = string(domain.KindNeedsCPApplyMode)
		resp.Message = msgNeedsCPApplyMode
		resp.Choices = modeStrings(domain.CPApplyChoices)
		resp.Recommended = string(domain.CPApplyRecommended)
		return resp, nil
	}
	if cpMode == "" {
		cpMode = domain.CPApplyNone
	}
	resp.Meta.CPApplyModeUsed = cpMode

	// Requirements.
	var prof domain.RequirementsProfile
	err = s.stage(ctx, "analyze.requirements", func(ctx context.Context) error {
		var err error
		prof, err = s.reqs.Resolve(ctx, req.selectors())
		return err
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Response{}, ctxErr
		}
		resp.RequirementsBasisNote = fmt.Sprintf("No requirements profile could be loaded for: %s → %s → %s → %s (region=%s, version=%s, production=%s).",
			echo.Species, echo.Type, echo.Breed, echo.Phase, echo.Region, echo.Version, echo.Production)
		var rerr *requirements.ResolutionError
		if errors.As(err, &rerr) {
			resp.Status = string(rerr.Kind)
			resp.Message = rerr.Message
			resp.Error = rerr
		} else {
			resp.Status = string(domain.KindRequirementsLoad)
			resp.Message = err.Error()
		}
		log.Warn("requirements unavailable", zap.String("status", resp.Status), zap.Error(err))
		return resp, nil
	}
	resp.Meta.ReqKey = prof.ReqKey
	resp.Meta.Provenance = &prof.Provenance
	resp.RequirementsUsed = &prof
	resp.RequirementsBasisNote = fmt.Sprintf("PASS/FAIL/WARN is evaluated against the selected requirements profile: %s → %s → %s → %s (region=%s, version=%s, reqKey=%s).",
		echo.Species, echo.Type, echo.Breed, echo.Phase, echo.Region, echo.Version, prof.ReqKey)

	// Key sets, coverage and sums.
	reg, err := nutrients.LoadRegistry(ctx, s.cache)
	if err != nil {
		log.Warn("nutrient registry unreadable, using defaults", zap.Error(err))
		reg = nutrients.Registry{}
	}
	keys := nutrients.NewKeySet(reg)
	candidates := keys.Candidates(prof)
	full := keys.FullKeys(candidates...)
	coverage := nutrients.BuildCoverage(resolved, cat, full)
	used, skipped := coverage.Split(candidates)
	fullSum := calc.Sum(resolved, ratios, cat, full, calc.Options{DMMode: dmMode, CPMode: cpMode})

	resp.RegistryLoaded = reg.Loaded
	resp.EvaluationKeysDefinedByProfile = candidates
	resp.EvaluationKeysUsed = used
	resp.EvaluationKeysSkippedUnsupported = skipped
	resp.NutrientProfileFull = fullSum
	resp.Coverage = coverage
	resp.NutrientProfile = make(map[string]float64, len(used))
	resp.RequirementsCanonical = make(map[string]float64, len(used))
	for _, k := range used {
		resp.NutrientProfile[k] = fullSum[k]
		resp.RequirementsCanonical[k] = prof.Targets[k]
	}
	resp.Deviations = evaluate.DeviationTable(fullSum, prof.Targets, used)

	// Evaluation.
	limits, limitsFile, err := evaluate.LoadLimits(ctx, s.cache, canon, prof.ReqKey)
	if err != nil {
		log.Warn("inclusion limits unreadable, skipping", zap.Error(err))
		limits = nil
	}
	resp.InclusionLimitsFile = limitsFile
	var eval domain.Evaluation
	err = s.stage(ctx, "analyze.evaluate", func(ctx context.Context) error {
		var err error
		eval, err = s.opts.engine.Evaluate(ctx, evaluate.Input{
			Actual:  fullSum,
			Targets: prof.Targets,
			Keys:    used,
			Items:   resolved,
			Limits:  limits,
		})
		return err
	})
	if err != nil {
		return Response{}, fmt.Errorf("analyze: %w", err)
	}
	resp.Evaluation = &eval
	resp.Overall = eval.Overall
	resp.OK = true
	resp.Status = StatusOK

	log.Info("analysis complete",
		zap.String("req_key", prof.ReqKey),
		zap.String("overall", string(eval.Overall)),
		zap.Int("items", len(resolved)),
		zap.Int("unknown", len(resp.Unknown)),
		zap.Int("evaluated", len(used)),
	)
	return resp, nil
}

// stage runs fn inside a tracer span.
func (s *Service) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := s.opts.tracer.Start(ctx, name)
	err := fn(ctx)
	span.End(err)
	return err
}

// aliasResolver builds, once per catalog, the resolver over the catalog keys
// and the selector's alias documents.
func (s *Service) aliasResolver(ctx context.Context, sel catalog.Selector, cat *catalog.Catalog) (*alias.Resolver, []string, error) {
	id := sel.String()
	s.mu.Lock()
	e, ok := s.resolvers[id]
	s.mu.Unlock()
	if ok && e.catalog == cat {
		return e.resolver, e.files, nil
	}
	table, files, err := alias.LoadTable(ctx, s.cache, alias.TableKeys(sel.Species, sel.Region, sel.Version)...)
	if err != nil {
		return nil, nil, err
	}
	e = aliasEntry{catalog: cat, resolver: alias.NewResolver(table, cat.Keys()), files: files}
	s.mu.Lock()
	s.resolvers[id] = e
	s.mu.Unlock()
	return e.resolver, e.files, nil
}

func modeStrings[T ~string](modes []T) []string {
	out := make([]string, len(modes))
	for i, m := range modes {
		out[i] = string(m)
	}
	return out
}
