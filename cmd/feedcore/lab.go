package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"feedcore/internal/calc"
	"feedcore/internal/core"
)

const labWrapperKey = "ingredient_overrides"

type labDocument struct {
	IngredientOverrides calc.LabOverrides `yaml:"ingredient_overrides"`
}

// parseLab accepts {"ingredient_overrides": {...}} or the bare ingredient
// map, in JSON or YAML.
func parseLab(raw []byte) (calc.LabOverrides, error) {
	var wrapped labDocument
	if err := yaml.Unmarshal(raw, &wrapped); err == nil && len(wrapped.IngredientOverrides) > 0 {
		return wrapped.IngredientOverrides, nil
	}
	var flat calc.LabOverrides
	if err := yaml.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("decode lab overrides: %w", err)
	}
	delete(flat, labWrapperKey)
	return flat, nil
}

func readLab(path string) (calc.LabOverrides, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lab overrides: %w", err)
	}
	return parseLab(raw)
}

func readRequest(path string) (core.Request, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return core.Request{}, fmt.Errorf("read request: %w", err)
	}
	var req core.Request
	if err := yaml.Unmarshal(raw, &req); err != nil {
		return core.Request{}, fmt.Errorf("decode request %s: %w", path, err)
	}
	return req, nil
}
