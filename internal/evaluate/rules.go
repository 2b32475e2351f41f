// Package evaluate turns summed composition into OK/WARN/FAIL verdicts.
package evaluate

import (
	"context"

	"feedcore/pkg/domain"
)

// Input is what every rule sees for one analysis.
type Input struct {
	// Actual holds the evaluated summation.
	Actual map[string]float64
	// Targets are the profile's resolved requirement values.
	Targets map[string]float64
	// Keys are the nutrients to judge, in report order.
	Keys []string
	// Items are the resolved formula lines after normalization.
	Items []domain.FormulaItem
	// Limits are per-ingredient inclusion bounds; nil disables limit checks.
	Limits map[string]domain.Limits
}

// Rule is one evaluation pass over an Input.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, in Input) (domain.Evaluation, error)
}

// Engine orchestrates rule evaluation.
type Engine struct {
	rules []Rule
}

// NewEngine constructs an engine instance.
func NewEngine() *Engine {
	return &Engine{}
}

// NewDefaultEngine builds an engine with the built-in rule set.
func NewDefaultEngine() *Engine {
	engine := NewEngine()
	engine.Register(NewDeficiencyRule())
	engine.Register(NewInclusionLimitsRule())
	return engine
}

// Register appends a rule to the engine.
func (e *Engine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// Rules lists registered rule names in order.
func (e *Engine) Rules() []string {
	names := make([]string, 0, len(e.rules))
	for _, r := range e.rules {
		names = append(names, r.Name())
	}
	return names
}

// Evaluate executes all registered rules and merges their evaluations.
func (e *Engine) Evaluate(ctx context.Context, in Input) (domain.Evaluation, error) {
	combined := domain.Evaluation{Overall: domain.StatusOK, Findings: []domain.Finding{}}
	for _, rule := range e.rules {
		if err := ctx.Err(); err != nil {
			return domain.Evaluation{}, err
		}
		res, err := rule.Evaluate(ctx, in)
		if err != nil {
			return domain.Evaluation{}, err
		}
		combined.Merge(res)
	}
	return combined, nil
}
