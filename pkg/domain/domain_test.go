package domain

import (
	"errors"
	"testing"
)

func TestWorstAndMerge(t *testing.T) {
	if got := Worst("", StatusOK); got != StatusOK {
		t.Fatalf("empty should become OK, got %s", got)
	}
	if got := Worst(StatusWarn, StatusFail); got != StatusFail {
		t.Fatalf("expected FAIL, got %s", got)
	}
	if got := Worst(StatusFail, StatusWarn); got != StatusFail {
		t.Fatalf("expected FAIL to stick, got %s", got)
	}

	e := Evaluation{Overall: StatusOK}
	e.Merge(Evaluation{Overall: StatusWarn, Findings: []Finding{{Nutrient: "me", Status: StatusWarn}}})
	if e.LimitsOverall != "" {
		t.Fatalf("nutrient-only merge should not set limits verdict, got %q", e.LimitsOverall)
	}
	e.Merge(Evaluation{LimitsOverall: StatusFail, Limits: []LimitFinding{{Ingredient: "salt", Status: StatusFail}}})
	if e.Overall != StatusWarn || e.LimitsOverall != StatusFail {
		t.Fatalf("limits must not change overall: %+v", e)
	}
	if len(e.Findings) != 1 || len(e.Limits) != 1 || e.HasFailures() {
		t.Fatalf("unexpected merged evaluation %+v", e)
	}
	e.Merge(Evaluation{Findings: []Finding{{Nutrient: "cp", Status: StatusFail}}})
	if !e.HasFailures() {
		t.Fatalf("expected failures after merging a FAIL finding")
	}
}

func TestParseModes(t *testing.T) {
	if m, err := ParseDMScaleMode(" all_nutrients "); err != nil || m != DMScaleAllNutrients {
		t.Fatalf("got %q, %v", m, err)
	}
	if m, err := ParseDMScaleMode(""); err != nil || m != "" {
		t.Fatalf("empty mode should mean unchosen, got %q, %v", m, err)
	}
	if _, err := ParseDMScaleMode("SOMETIMES"); err == nil {
		t.Fatalf("expected error for unknown dm mode")
	}
	if m, err := ParseCPApplyMode("none"); err != nil || m != CPApplyNone {
		t.Fatalf("got %q, %v", m, err)
	}
	if _, err := ParseCPApplyMode("SCALE"); err == nil {
		t.Fatalf("expected error for unknown cp mode")
	}
}

func TestErrorKinds(t *testing.T) {
	if !KindNeedsDMScaleMode.Resumable() || KindProfileNotFound.Resumable() {
		t.Fatalf("only gates are resumable")
	}
	if KindIngredientUnresolved.Fatal() || !KindCatalogNotFound.Fatal() {
		t.Fatalf("unexpected fatality classification")
	}
	base := errors.New("boom")
	err := error(&KindError{Kind: KindRequirementsLoad, Message: "load", Err: base})
	if !errors.Is(err, base) {
		t.Fatalf("KindError should unwrap")
	}
	var ke *KindError
	if !errors.As(err, &ke) || ke.Kind != KindRequirementsLoad {
		t.Fatalf("errors.As failed: %v", err)
	}
}

func TestRound(t *testing.T) {
	cases := []struct {
		v    float64
		dp   int
		want float64
	}{
		{2943.46, 1, 2943.5},
		{-2.5351, 2, -2.54},
		{0.123456789, 8, 0.12345679},
	}
	for _, tc := range cases {
		if got := Round(tc.v, tc.dp); got != tc.want {
			t.Fatalf("Round(%v, %d) = %v want %v", tc.v, tc.dp, got, tc.want)
		}
	}
}
