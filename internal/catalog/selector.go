package catalog

import (
	"fmt"
	"strings"
)

// Selector picks one ingredient matrix.
type Selector struct {
	Species string `json:"species"`
	Region  string `json:"region"`
	Version string `json:"version"`
	Basis   string `json:"basis"`
}

// Normalized lower-cases the selector and fills defaults
// (poultry/global/v1/sid).
func (s Selector) Normalized() Selector {
	return Selector{
		Species: lowerOr(s.Species, "poultry"),
		Region:  lowerOr(s.Region, "global"),
		Version: lowerOr(s.Version, "v1"),
		Basis:   lowerOr(s.Basis, "sid"),
	}
}

// String renders species/region/version/basis; it is the snapshot store key.
func (s Selector) String() string {
	n := s.Normalized()
	return n.Species + "/" + n.Region + "/" + n.Version + "/" + n.Basis
}

// ParseSelector is the inverse of String.
func ParseSelector(v string) (Selector, error) {
	parts := strings.Split(v, "/")
	if len(parts) != 4 {
		return Selector{}, fmt.Errorf("invalid catalog selector %q", v)
	}
	return Selector{Species: parts[0], Region: parts[1], Version: parts[2], Basis: parts[3]}.Normalized(), nil
}

// CandidateKeys lists the documents tried for the selector: the region
// specific matrix, then the global fallback.
func (s Selector) CandidateKeys() []string {
	n := s.Normalized()
	keys := []string{documentKey(n.Species, n.Region, n.Version, n.Basis)}
	if n.Region != "global" {
		keys = append(keys, documentKey(n.Species, "global", n.Version, n.Basis))
	}
	return keys
}

func documentKey(species, region, version, basis string) string {
	return fmt.Sprintf("ingredients/%s/%s/%s/ingredients.%s.%s.%s.%s.json",
		species, region, version, species, region, basis, version)
}

// InvariantsKey is the global mineral and synthetic amino acid overlay.
const InvariantsKey = "ingredients/_invariants/ingredients.global.invariants.v1.json"

func lowerOr(v, def string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return def
	}
	return v
}
