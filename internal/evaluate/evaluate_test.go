package evaluate

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"feedcore/internal/infra/blob/memory"
	"feedcore/internal/refdata"
	"feedcore/pkg/domain"
)

func f(v float64) *float64 { return &v }

func TestClassifyBoundaries(t *testing.T) {
	cases := []struct {
		dev  float64
		want domain.Status
	}{
		{0, domain.StatusOK},
		{25, domain.StatusOK},
		{-2.0, domain.StatusOK},
		{-2.01, domain.StatusWarn},
		{-5.0, domain.StatusWarn},
		{-5.01, domain.StatusFail},
	}
	for _, tc := range cases {
		if got := Classify(tc.dev); got != tc.want {
			t.Fatalf("Classify(%v) = %s want %s", tc.dev, got, tc.want)
		}
	}
	if Deviation(5, 0) != 0 {
		t.Fatalf("zero target must yield zero deviation")
	}
}

func TestClassify_ComputedBoundaryDeviations(t *testing.T) {
	cases := []struct {
		actual, required float64
		want             domain.Status
	}{
		{20.58, 21, domain.StatusOK},
		{0.98 * 1.1, 1.1, domain.StatusOK},
		{2850, 3000, domain.StatusWarn},
		{2849, 3000, domain.StatusFail},
	}
	for _, tc := range cases {
		if got := Classify(Deviation(tc.actual, tc.required)); got != tc.want {
			t.Fatalf("Classify(Deviation(%v, %v)) = %s want %s", tc.actual, tc.required, got, tc.want)
		}
	}
	ev, err := NewDeficiencyRule().Evaluate(context.Background(), Input{
		Actual:  map[string]float64{"cp": 20.58},
		Targets: map[string]float64{"cp": 21},
		Keys:    []string{"cp"},
	})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if ev.Overall != domain.StatusOK || ev.Findings[0].DeviationPct != -2 {
		t.Fatalf("exact -2%% must be OK and report -2: %+v", ev)
	}
}

func TestEngine_Deficiency(t *testing.T) {
	in := Input{
		Actual:  map[string]float64{"me": 2940, "cp": 19, "lys": 1.0, "ca": 1.1},
		Targets: map[string]float64{"me": 3000, "cp": 20, "lys": 1.2, "ca": 1.0, "zn": 100},
		Keys:    []string{"me", "cp", "lys", "ca"},
	}
	got, err := NewDefaultEngine().Evaluate(context.Background(), in)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	want := domain.Evaluation{
		Overall: domain.StatusFail,
		Findings: []domain.Finding{
			{Nutrient: "me", Status: domain.StatusOK, DeviationPct: -2, Actual: 2940, Required: 3000, Diff: -60},
			{Nutrient: "cp", Status: domain.StatusWarn, DeviationPct: -5, Actual: 19, Required: 20, Diff: -1},
			{Nutrient: "lys", Status: domain.StatusFail, DeviationPct: -16.67, Actual: 1, Required: 1.2, Diff: -0.2},
			{Nutrient: "ca", Status: domain.StatusOK, DeviationPct: 10, Actual: 1.1, Required: 1, Diff: 0.1},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("evaluation mismatch (-want +got):\n%s", diff)
	}
}

func TestInclusionLimits(t *testing.T) {
	in := Input{
		Items: []domain.FormulaItem{
			{CanonicalID: "corn", Inclusion: 60},
			{CanonicalID: "wheat_bran", Inclusion: 8},
			{CanonicalID: "wheat_bran", Inclusion: 4},
			{CanonicalID: "fish_meal", Inclusion: 3},
		},
		Limits: map[string]domain.Limits{
			"corn":       {Max: f(70)},
			"wheat_bran": {Max: f(15), RecMax: f(10)},
			"fish_meal":  {Max: f(2)},
			"salt":       {Min: f(0.1)},
		},
	}
	got, err := NewDefaultEngine().Evaluate(context.Background(), in)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got.Overall != domain.StatusOK || got.LimitsOverall != domain.StatusFail {
		t.Fatalf("limits must not touch the nutrient verdict: %s / %s", got.Overall, got.LimitsOverall)
	}
	var order []string
	for _, l := range got.Limits {
		order = append(order, l.Ingredient+":"+string(l.Status))
	}
	want := []string{"fish_meal:FAIL", "salt:FAIL", "wheat_bran:WARN", "corn:OK"}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Fatalf("limit order mismatch (-want +got):\n%s", diff)
	}
	if got.Limits[2].Inclusion != 12 || got.Limits[2].Reason != "above recommended max (10%)" {
		t.Fatalf("unexpected wheat bran finding %+v", got.Limits[2])
	}
}

func TestLoadLimits(t *testing.T) {
	mem := memory.New()
	cache := refdata.New(mem)
	sel := domain.Selectors{Species: "poultry", Type: "broiler", Version: "v1"}
	lim, file, err := LoadLimits(context.Background(), cache, sel, "ross_308_starter")
	if err != nil || lim != nil || file != "" {
		t.Fatalf("missing limits should be silent: %v %v %q", lim, err, file)
	}

	mem.PutBytes(LimitsKey("poultry", "broiler", "v1"), []byte(`{
		"_default": {"corn": {"max": 70}},
		"ross_308_starter": {"wheat_bran": {"max": "15", "rec_max": 10}, "junk": 3}
	}`))
	cache = refdata.New(mem)
	lim, file, err = LoadLimits(context.Background(), cache, sel, "ross_308_starter")
	if err != nil || file != "limits/poultry/broiler/limits.poultry.broiler.v1.json" {
		t.Fatalf("load: %v %q", err, file)
	}
	want := map[string]domain.Limits{"wheat_bran": {Max: f(15), RecMax: f(10)}}
	if diff := cmp.Diff(want, lim); diff != "" {
		t.Fatalf("limits mismatch (-want +got):\n%s", diff)
	}
	lim, _, _ = LoadLimits(context.Background(), cache, sel, "cobb_500_grower")
	if _, ok := lim["corn"]; !ok {
		t.Fatalf("default entry should apply: %+v", lim)
	}
}

func TestDeviationTable(t *testing.T) {
	got := DeviationTable(
		map[string]float64{"me": 2951.04, "cp": 21.23456, "ash": 5},
		map[string]float64{"me": 3000, "cp": 22, "zn": 90},
		[]string{"me", "cp", "ash", "zn"},
	)
	want := map[string]DeviationRow{
		"me": {Actual: 2951, Required: 3000, Diff: -49, Pct: -1.63},
		"cp": {Actual: 21.2346, Required: 22, Diff: -0.7654, Pct: -3.48},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("deviation table mismatch (-want +got):\n%s", diff)
	}
}
