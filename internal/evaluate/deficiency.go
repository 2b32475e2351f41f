package evaluate

import (
	"context"

	"feedcore/pkg/domain"
)

// Deviation thresholds in percent below target. Surpluses never warn.
const (
	FailBelowPct = -5.0
	WarnBelowPct = -2.0
)

// NewDeficiencyRule returns the rule judging each key against its target.
func NewDeficiencyRule() Rule {
	return deficiencyRule{}
}

type deficiencyRule struct{}

func (deficiencyRule) Name() string { return "nutrient_deficiency" }

func (deficiencyRule) Evaluate(_ context.Context, in Input) (domain.Evaluation, error) {
	res := domain.Evaluation{Overall: domain.StatusOK, Findings: []domain.Finding{}}
	for _, key := range in.Keys {
		required, ok := in.Targets[key]
		if !ok {
			continue
		}
		actual := in.Actual[key]
		dev := Deviation(actual, required)
		status := Classify(dev)
		res.Findings = append(res.Findings, domain.Finding{
			Nutrient:     key,
			Status:       status,
			DeviationPct: domain.Round(dev, 2),
			Actual:       RoundFor(key, actual),
			Required:     RoundFor(key, required),
			Diff:         RoundFor(key, actual-required),
		})
		res.Overall = domain.Worst(res.Overall, status)
	}
	return res, nil
}

const classifyDP = 6

// Deviation is (actual-required)/required in percent, 0 when required is 0.
func Deviation(actual, required float64) float64 {
	if required == 0 {
		return 0
	}
	return (actual - required) / required * 100
}

// Classify maps a deviation to a verdict. The deviation is compared at
// classifyDP places so float noise cannot push an exact -2% or -5% across a
// threshold.
func Classify(dev float64) domain.Status {
	dev = domain.Round(dev, classifyDP)
	switch {
	case dev < FailBelowPct:
		return domain.StatusFail
	case dev < WarnBelowPct:
		return domain.StatusWarn
	}
	return domain.StatusOK
}

// RoundFor rounds energy to 1 dp and everything else to 4 dp.
func RoundFor(key string, v float64) float64 {
	if key == "me" {
		return domain.Round(v, 1)
	}
	return domain.Round(v, 4)
}

// DeviationRow is one line of the deviation table.
type DeviationRow struct {
	Actual   float64 `json:"actual"`
	Required float64 `json:"required"`
	Diff     float64 `json:"diff"`
	Pct      float64 `json:"pct"`
}

// DeviationTable reports every key that has a target, using actual values
// from the full summation.
func DeviationTable(actual, targets map[string]float64, keys []string) map[string]DeviationRow {
	out := make(map[string]DeviationRow, len(keys))
	for _, key := range keys {
		required, ok := targets[key]
		if !ok {
			continue
		}
		a, ok := actual[key]
		if !ok {
			continue
		}
		out[key] = DeviationRow{
			Actual:   RoundFor(key, a),
			Required: RoundFor(key, required),
			Diff:     RoundFor(key, a-required),
			Pct:      domain.Round(Deviation(a, required), 2),
		}
	}
	return out
}
