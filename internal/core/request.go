package core

import (
	"errors"
	"fmt"
	"strings"

	"feedcore/internal/calc"
	"feedcore/internal/catalog"
	"feedcore/internal/requirements"
	"feedcore/pkg/domain"
)

// ErrEmptyFormula rejects requests without any formula text.
var ErrEmptyFormula = errors.New("formula text is empty")

// Request is one analysis call. Modes are only needed once a gate fired.
type Request struct {
	Formula     string            `json:"formula_text" yaml:"formula_text"`
	Species     string            `json:"species" yaml:"species"`
	Type        string            `json:"type" yaml:"type"`
	Breed       string            `json:"breed" yaml:"breed"`
	Phase       string            `json:"phase" yaml:"phase"`
	Region      string            `json:"region" yaml:"region"`
	Version     string            `json:"version" yaml:"version"`
	Production  string            `json:"production,omitempty" yaml:"production,omitempty"`
	Basis       string            `json:"basis,omitempty" yaml:"basis,omitempty"`
	Normalize   bool              `json:"normalize" yaml:"normalize"`
	DMScaleMode string            `json:"dm_scale_mode,omitempty" yaml:"dm_scale_mode,omitempty"`
	CPApplyMode string            `json:"cp_apply_mode,omitempty" yaml:"cp_apply_mode,omitempty"`
	Lab         calc.LabOverrides `json:"lab,omitempty" yaml:"lab,omitempty"`
}

// Validate rejects empty formulas and unknown mode names.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Formula) == "" {
		return ErrEmptyFormula
	}
	if _, err := domain.ParseDMScaleMode(r.DMScaleMode); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	if _, err := domain.ParseCPApplyMode(r.CPApplyMode); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	return nil
}

// withDefaults fills unset selectors so responses echo what was used.
func (r Request) withDefaults() Request {
	r.Species = orDefault(r.Species, requirements.DefaultSpecies)
	r.Type = orDefault(r.Type, requirements.DefaultType)
	r.Breed = orDefault(r.Breed, requirements.DefaultBreed)
	r.Phase = orDefault(r.Phase, requirements.DefaultPhase)
	r.Region = orDefault(r.Region, requirements.DefaultRegion)
	r.Version = orDefault(r.Version, requirements.DefaultVersion)
	return r
}

func (r Request) selectors() domain.Selectors {
	return domain.Selectors{
		Species:    r.Species,
		Type:       r.Type,
		Breed:      r.Breed,
		Phase:      r.Phase,
		Region:     r.Region,
		Version:    r.Version,
		Production: r.Production,
	}
}

func (r Request) catalogSelector() catalog.Selector {
	return catalog.Selector{Species: r.Species, Region: r.Region, Version: r.Version, Basis: r.Basis}.Normalized()
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}
