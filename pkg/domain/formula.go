package domain

// ResolutionMethod records how a raw ingredient token was mapped to a
// canonical catalog id.
type ResolutionMethod string

// Resolution methods in the order the resolver attempts them.
const (
	MethodDirect     ResolutionMethod = "direct"
	MethodAlias      ResolutionMethod = "alias"
	MethodAliasSnake ResolutionMethod = "alias_snake"
	MethodSnake      ResolutionMethod = "snake"
	MethodFuzzy      ResolutionMethod = "fuzzy"
	MethodNone       ResolutionMethod = "none"
)

// FormulaItem is one parsed formula line. An empty CanonicalID marks an
// unresolved ingredient which is reported but excluded from summation.
type FormulaItem struct {
	RawName             string           `json:"raw"`
	Cleaned             string           `json:"cleaned"`
	CanonicalID         string           `json:"canonical_id,omitempty"`
	Method              ResolutionMethod `json:"method"`
	Inclusion           float64          `json:"inclusion"`
	Lot                 *string          `json:"lot"`
	DMPct               *float64         `json:"dm_percent,omitempty"`
	Unknown             bool             `json:"is_unknown,omitempty"`
	NeedsClarification  bool             `json:"needs_clarification,omitempty"`
	ClarificationFamily string           `json:"clarification_family,omitempty"`
}

// Resolved reports whether the item maps to a catalog ingredient.
func (i FormulaItem) Resolved() bool { return i.CanonicalID != "" }

// MergeKey identifies items that are summed together: the same canonical
// ingredient (or the same cleaned raw token when unresolved) from the same lot.
func (i FormulaItem) MergeKey() string {
	id := i.CanonicalID
	if id == "" {
		id = "?" + i.Cleaned
	}
	lot := ""
	if i.Lot != nil {
		lot = *i.Lot
	}
	return id + "\x00" + lot
}

// ClarificationRequest is raised when a line names a grade-dependent
// ingredient family without stating the grade. It never blocks analysis.
type ClarificationRequest struct {
	RawText     string   `json:"raw"`
	Cleaned     string   `json:"cleaned"`
	Inclusion   float64  `json:"inclusion"`
	CanonicalID string   `json:"canonical_key"`
	Family      string   `json:"family"`
	Prompt      string   `json:"prompt"`
	Options     []string `json:"options"`
}

// UnknownIngredient describes a formula line the resolver could not map.
type UnknownIngredient struct {
	Raw         string   `json:"raw"`
	Cleaned     string   `json:"cleaned"`
	Inclusion   float64  `json:"inclusion"`
	Suggestions []string `json:"suggestions"`
}

// OverrideRatio scales catalog composition for one ingredient from lab values.
type OverrideRatio struct {
	DMRatio float64 `json:"dm_ratio"`
	CPRatio float64 `json:"cp_ratio"`
}

// UnitRatio is the no-op override.
var UnitRatio = OverrideRatio{DMRatio: 1, CPRatio: 1}
