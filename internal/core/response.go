package core

import (
	"feedcore/internal/calc"
	"feedcore/internal/evaluate"
	"feedcore/internal/nutrients"
	"feedcore/internal/parser"
	"feedcore/internal/requirements"
	"feedcore/pkg/domain"
)

// StatusOK marks a completed analysis. Any other Response.Status is an
// ErrorKind.
const StatusOK = "OK"

// Response is the structured result of one Analyze call. Gates and
// requirement failures are responses, not errors.
type Response struct {
	OK          bool     `json:"ok"`
	Status      string   `json:"status"`
	Message     string   `json:"message,omitempty"`
	Choices     []string `json:"choices,omitempty"`
	Recommended string   `json:"recommended,omitempty"`

	Meta          Meta                          `json:"meta"`
	Parsed        *parser.Parsed                `json:"parsed,omitempty"`
	ItemsResolved []ResolvedItem                `json:"items_resolved"`
	Unknown       []UnknownItem                 `json:"unknown"`
	Error         *requirements.ResolutionError `json:"requirements_error,omitempty"`

	RequirementsUsed      *domain.RequirementsProfile `json:"requirements_used,omitempty"`
	RequirementsBasisNote string                      `json:"requirements_basis_note,omitempty"`

	RegistryLoaded                   bool     `json:"registry_loaded"`
	EvaluationKeysUsed               []string `json:"evaluation_keys_used,omitempty"`
	EvaluationKeysDefinedByProfile   []string `json:"evaluation_keys_defined_by_profile,omitempty"`
	EvaluationKeysSkippedUnsupported []string `json:"evaluation_keys_skipped_unsupported,omitempty"`

	NutrientProfile       map[string]float64               `json:"nutrient_profile,omitempty"`
	NutrientProfileFull   map[string]float64               `json:"nutrient_profile_full,omitempty"`
	Coverage              nutrients.Coverage               `json:"coverage,omitempty"`
	RequirementsCanonical map[string]float64               `json:"requirements_canonical,omitempty"`
	Deviations            map[string]evaluate.DeviationRow `json:"deviations_canonical,omitempty"`
	Evaluation            *domain.Evaluation               `json:"evaluation,omitempty"`
	InclusionLimitsFile   string                           `json:"inclusion_limits_file,omitempty"`
	Overall               domain.Status                    `json:"overall,omitempty"`
}

// Meta echoes the request and the decisions made along the way.
type Meta struct {
	Selectors          domain.Selectors   `json:"selectors"`
	ProductionInferred bool               `json:"production_inferred"`
	Normalize          bool               `json:"normalize"`
	DMScaleModeUsed    domain.DMScaleMode `json:"dm_scale_mode_used"`
	CPApplyModeUsed    domain.CPApplyMode `json:"cp_apply_mode_used"`
	ReqKey             string             `json:"req_key,omitempty"`

	IngredientsMode string   `json:"ingredients_mode,omitempty"`
	IngredientsFile string   `json:"ingredients_file,omitempty"`
	AliasFiles      []string `json:"alias_files,omitempty"`

	DMOverridesApplied []calc.Applied `json:"dm_overrides_applied"`
	CPOverridesApplied []calc.Applied `json:"cp_overrides_applied"`

	NeedsClarification    []domain.ClarificationRequest `json:"needs_clarification,omitempty"`
	ClarificationText     string                        `json:"clarification_text,omitempty"`
	ClarificationExamples []string                      `json:"clarification_examples,omitempty"`

	ResolutionMap []ResolutionEntry  `json:"resolution_map"`
	Provenance    *domain.Provenance `json:"requirements_provenance,omitempty"`
}

// ResolutionEntry shows how one merged formula line was resolved.
type ResolutionEntry struct {
	Raw       string                  `json:"raw"`
	Canonical string                  `json:"canonical"`
	Via       domain.ResolutionMethod `json:"via"`
	FoundInDB bool                    `json:"found_in_db"`
	Inclusion float64                 `json:"inclusion"`
	Lot       *string                 `json:"lot"`
}

// ResolvedItem is a summed formula line with its override ratios.
type ResolvedItem struct {
	Ingredient string  `json:"ingredient"`
	Raw        string  `json:"raw,omitempty"`
	Inclusion  float64 `json:"inclusion"`
	Lot        *string `json:"lot"`
	DMRatio    float64 `json:"dm_ratio"`
	CPRatio    float64 `json:"cp_ratio"`
}

// UnknownItem is a formula line excluded from summation.
type UnknownItem struct {
	Ingredient         string  `json:"ingredient"`
	Inclusion          float64 `json:"inclusion"`
	NeedsClarification bool    `json:"needs_clarification,omitempty"`
}
