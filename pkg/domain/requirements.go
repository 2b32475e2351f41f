package domain

import "sort"

// Selectors identify the animal and production context an analysis targets.
type Selectors struct {
	Species    string `json:"species"`
	Type       string `json:"type"`
	Breed      string `json:"breed"`
	Phase      string `json:"phase"`
	Region     string `json:"region"`
	Version    string `json:"version"`
	Production string `json:"production,omitempty"`
}

// RequirementsMode names the strategy that produced a profile.
type RequirementsMode string

// Requirements resolution strategies.
const (
	ModeProductionIndex RequirementsMode = "production_index"
	ModeLegacyFlat      RequirementsMode = "legacy_flat"
)

// Provenance records where a requirements profile came from.
type Provenance struct {
	Mode                RequirementsMode `json:"mode"`
	WrapFile            string           `json:"wrap_file,omitempty"`
	IndexFile           string           `json:"index_file,omitempty"`
	LibraryFile         string           `json:"library_file,omitempty"`
	IndexShape          string           `json:"index_shape,omitempty"`
	BreedWanted         string           `json:"breed_wanted,omitempty"`
	PhaseWanted         string           `json:"phase_wanted,omitempty"`
	UsedGenericFallback bool             `json:"used_generic_fallback"`
	Inherits            string           `json:"inherits,omitempty"`
	ProductionInferred  bool             `json:"production_inferred"`
	MappingApplied      bool             `json:"mapping_applied"`
	RawKeys             []string         `json:"raw_keys_used"`
	MappedKeys          []string         `json:"mapped_keys_used"`
}

// RequirementsProfile is a flattened, inheritance-resolved target set.
// ReqKey identifies exactly which target set was used.
type RequirementsProfile struct {
	ReqKey         string             `json:"req_key"`
	Label          string             `json:"label,omitempty"`
	Production     string             `json:"production"`
	Breed          string             `json:"breed"`
	Phase          string             `json:"phase"`
	RawTargets     map[string]float64 `json:"targets_raw"`
	Targets        map[string]float64 `json:"targets"`
	EvaluationKeys []string           `json:"evaluation_keys,omitempty"`
	Provenance     Provenance         `json:"provenance"`
}

// Target returns the resolved numeric target for key.
func (p RequirementsProfile) Target(key string) (float64, bool) {
	v, ok := p.Targets[key]
	return v, ok
}

// TargetKeys returns the profile's target keys in sorted order.
func (p RequirementsProfile) TargetKeys() []string {
	keys := make([]string, 0, len(p.Targets))
	for k := range p.Targets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
