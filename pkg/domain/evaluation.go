package domain

// Status captures a nutrient verdict.
type Status string

// Verdicts ordered by precedence FAIL > WARN > OK.
const (
	StatusOK   Status = "OK"
	StatusWarn Status = "WARN"
	StatusFail Status = "FAIL"
)

// Rank orders statuses; higher is worse.
func (s Status) Rank() int {
	switch s {
	case StatusFail:
		return 2
	case StatusWarn:
		return 1
	}
	return 0
}

// Worst returns the more severe of two statuses.
func Worst(a, b Status) Status {
	if b.Rank() > a.Rank() {
		return b
	}
	if a == "" {
		return StatusOK
	}
	return a
}

// Finding reports one nutrient's deviation from its target.
type Finding struct {
	Nutrient     string  `json:"nutrient"`
	Status       Status  `json:"status"`
	DeviationPct float64 `json:"pct"`
	Actual       float64 `json:"actual"`
	Required     float64 `json:"required"`
	Diff         float64 `json:"diff"`
}

// LimitFinding reports an ingredient's inclusion against its allowed range.
type LimitFinding struct {
	Ingredient string  `json:"ingredient"`
	Inclusion  float64 `json:"inclusion"`
	Limits     Limits  `json:"limits"`
	Status     Status  `json:"status"`
	Reason     string  `json:"reason"`
}

// Limits are hard (Min/Max) and recommended (RecMin/RecMax) inclusion bounds.
type Limits struct {
	Min    *float64 `json:"min,omitempty"`
	Max    *float64 `json:"max,omitempty"`
	RecMin *float64 `json:"rec_min,omitempty"`
	RecMax *float64 `json:"rec_max,omitempty"`
}

// Evaluation aggregates findings from the evaluator rules. Inclusion limits
// carry their own verdict and never change Overall.
type Evaluation struct {
	Overall       Status         `json:"overall"`
	Findings      []Finding      `json:"findings"`
	LimitsOverall Status         `json:"limits_overall,omitempty"`
	Limits        []LimitFinding `json:"limits,omitempty"`
}

// Merge folds another evaluation into e; each verdict is the worst of both.
func (e *Evaluation) Merge(other Evaluation) {
	e.Overall = Worst(e.Overall, other.Overall)
	if other.LimitsOverall != "" || len(other.Limits) > 0 {
		e.LimitsOverall = Worst(e.LimitsOverall, other.LimitsOverall)
	}
	if len(other.Findings) > 0 {
		e.Findings = append(e.Findings, other.Findings...)
	}
	if len(other.Limits) > 0 {
		e.Limits = append(e.Limits, other.Limits...)
	}
}

// HasFailures reports whether any nutrient finding failed.
func (e Evaluation) HasFailures() bool {
	for _, f := range e.Findings {
		if f.Status == StatusFail {
			return true
		}
	}
	return false
}
