package domain

import (
	"fmt"
	"strings"
)

// DMScaleMode selects which nutrients a dry-matter override rescales.
type DMScaleMode string

// Dry-matter scaling modes.
const (
	DMScaleMEOnly       DMScaleMode = "ME_ONLY"
	DMScaleAllNutrients DMScaleMode = "ALL_NUTRIENTS"
)

// DMScaleChoices lists the modes offered when the dry-matter gate fires.
var DMScaleChoices = []DMScaleMode{DMScaleMEOnly, DMScaleAllNutrients}

// ParseDMScaleMode validates a caller-supplied mode. The empty string yields
// the empty mode, meaning "not chosen".
func ParseDMScaleMode(s string) (DMScaleMode, error) {
	v := DMScaleMode(strings.ToUpper(strings.TrimSpace(s)))
	switch v {
	case "", DMScaleMEOnly, DMScaleAllNutrients:
		return v, nil
	}
	return "", fmt.Errorf("unknown dm scale mode %q", s)
}

// CPApplyMode selects how a crude-protein override propagates into amino acids.
type CPApplyMode string

// Crude-protein apply modes.
const (
	CPApplyNone                  CPApplyMode = "NONE"
	CPApplyRecomputeSIDFromTotal CPApplyMode = "RECOMPUTE_SID_FROM_TOTAL"
	CPApplyTotalOnly             CPApplyMode = "TOTAL_ONLY"
	CPApplyScaleSIDDirect        CPApplyMode = "SCALE_SID_DIRECT"
)

// CPApplyChoices lists the modes offered when the crude-protein gate fires.
var CPApplyChoices = []CPApplyMode{CPApplyRecomputeSIDFromTotal, CPApplyTotalOnly, CPApplyScaleSIDDirect}

// CPApplyRecommended is the mode suggested alongside the gate response.
const CPApplyRecommended = CPApplyRecomputeSIDFromTotal

// ParseCPApplyMode validates a caller-supplied mode. NONE is accepted so a
// caller can explicitly opt out of CP propagation.
func ParseCPApplyMode(s string) (CPApplyMode, error) {
	v := CPApplyMode(strings.ToUpper(strings.TrimSpace(s)))
	switch v {
	case "", CPApplyNone, CPApplyRecomputeSIDFromTotal, CPApplyTotalOnly, CPApplyScaleSIDDirect:
		return v, nil
	}
	return "", fmt.Errorf("unknown cp apply mode %q", s)
}
