package calc

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"feedcore/pkg/domain"
)

type fakeDB map[string]domain.IngredientRecord

func (f fakeDB) Lookup(id string) (domain.IngredientRecord, bool) {
	r, ok := f[id]
	return r, ok
}

func ptr(v float64) *float64 { return &v }

func TestPercentLike(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
		ok   bool
	}{
		{0.86, 86, true},
		{1, 100, true},
		{86, 86, true},
		{100, 100, true},
		{0, 0, false},
		{-3, 0, false},
		{120, 0, false},
	}
	for _, tc := range cases {
		got, ok := PercentLike(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("PercentLike(%v) = %v,%v want %v,%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestComputeRatios(t *testing.T) {
	db := fakeDB{
		"corn": {ID: "corn", DMPct: ptr(88), Nutrients: map[string]float64{"cp": 8}},
		"sbm":  {ID: "sbm", DMPct: ptr(0.89), Nutrients: map[string]float64{"cp": 46}},
	}
	items := []domain.FormulaItem{
		{RawName: "Corn [dm:86]", CanonicalID: "corn", Inclusion: 60, DMPct: ptr(86)},
		{RawName: "Soybean Meal", CanonicalID: "sbm", Inclusion: 30},
		{RawName: "mystery", Inclusion: 10},
	}
	lab := LabOverrides{"soybean MEAL": {DM: ptr(0.89), CP: ptr(48)}}

	got := ComputeRatios(items, db, lab)
	wantPer := []domain.OverrideRatio{
		{DMRatio: 0.97727273, CPRatio: 1},
		{DMRatio: 1, CPRatio: 1.04347826},
		domain.UnitRatio,
	}
	if diff := cmp.Diff(wantPer, got.PerItem); diff != "" {
		t.Fatalf("per-item ratios mismatch (-want +got):\n%s", diff)
	}
	wantDM := []Applied{{Ingredient: "corn", Raw: "Corn [dm:86]", Used: 86, Ref: 88, Ratio: 0.97727273, Source: SourceParser}}
	if diff := cmp.Diff(wantDM, got.DMApplied); diff != "" {
		t.Fatalf("dm applied mismatch (-want +got):\n%s", diff)
	}
	if len(got.CPApplied) != 1 || got.CPApplied[0].Source != SourceLab || got.CPApplied[0].Ingredient != "sbm" {
		t.Fatalf("unexpected cp applied: %+v", got.CPApplied)
	}
}

func TestComputeRatios_LabBeatsAnnotation(t *testing.T) {
	db := fakeDB{"corn": {ID: "corn", DMPct: ptr(88)}}
	items := []domain.FormulaItem{{RawName: "corn", CanonicalID: "corn", Inclusion: 100, DMPct: ptr(86)}}
	got := ComputeRatios(items, db, LabOverrides{"CORN": {DM: ptr(90)}})
	if len(got.DMApplied) != 1 || got.DMApplied[0].Source != SourceLab || got.DMApplied[0].Used != 90 {
		t.Fatalf("lab dm should win: %+v", got.DMApplied)
	}
}

func sumFixture() ([]domain.FormulaItem, Ratios, fakeDB) {
	db := fakeDB{
		"a": {ID: "a", Nutrients: map[string]float64{
			"me": 3000, "cp": 10, "total_lys": 0.5, "sid_lys": 0.4, "total_met": 0.35, "sid_met": 0.3,
			"ca": 1, "na": 0.2, "k": 0.5, "cl": 0.3,
		}, SIDCoefs: map[string]float64{"lys": 0.9}},
		"b": {ID: "b", Nutrients: map[string]float64{
			"me": 1000, "cp": 20, "total_lys": 1, "sid_lys": 0.8, "ca": 0, "na": 0, "k": 0, "cl": 0,
		}},
	}
	items := []domain.FormulaItem{
		{CanonicalID: "a", Inclusion: 50},
		{CanonicalID: "b", Inclusion: 50},
	}
	ratios := Ratios{PerItem: []domain.OverrideRatio{{DMRatio: 0.9, CPRatio: 1.1}, domain.UnitRatio}}
	return items, ratios, db
}

func TestSum_Modes(t *testing.T) {
	items, ratios, db := sumFixture()
	keys := []string{"me", "cp", "total_lys", "sid_lys", "sid_met", "ca"}
	cases := []struct {
		name string
		opts Options
		want map[string]float64
	}{
		{"defaults", Options{}, map[string]float64{
			"me": 1850, "cp": 15, "total_lys": 0.75, "sid_lys": 0.6, "sid_met": 0.15, "ca": 0.5,
		}},
		{"all nutrients", Options{DMMode: domain.DMScaleAllNutrients, CPMode: domain.CPApplyNone}, map[string]float64{
			"me": 1850, "cp": 14.5, "total_lys": 0.725, "sid_lys": 0.58, "sid_met": 0.135, "ca": 0.45,
		}},
		{"recompute sid", Options{CPMode: domain.CPApplyRecomputeSIDFromTotal}, map[string]float64{
			"me": 1850, "cp": 15.5, "total_lys": 0.775, "sid_lys": 0.6475, "sid_met": 0.15, "ca": 0.5,
		}},
		{"total only", Options{CPMode: domain.CPApplyTotalOnly}, map[string]float64{
			"me": 1850, "cp": 15.5, "total_lys": 0.775, "sid_lys": 0.6, "sid_met": 0.15, "ca": 0.5,
		}},
		{"scale sid", Options{CPMode: domain.CPApplyScaleSIDDirect}, map[string]float64{
			"me": 1850, "cp": 15.5, "total_lys": 0.775, "sid_lys": 0.62, "sid_met": 0.165, "ca": 0.5,
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Sum(items, ratios, db, keys, tc.opts)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("sum mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSum_FriendlyAminoAcidKeysFollowCPMode(t *testing.T) {
	items, ratios, db := sumFixture()
	cases := []struct {
		mode domain.CPApplyMode
		want float64
	}{
		{domain.CPApplyRecomputeSIDFromTotal, 0.6475},
		{domain.CPApplyScaleSIDDirect, 0.62},
		{domain.CPApplyTotalOnly, 0.6},
	}
	for _, tc := range cases {
		got := Sum(items, ratios, db, []string{"lys", "sid_lys"}, Options{CPMode: tc.mode})
		if got["lys"] != tc.want || got["sid_lys"] != tc.want {
			t.Fatalf("%s: lys=%v sid_lys=%v want %v", tc.mode, got["lys"], got["sid_lys"], tc.want)
		}
	}
}

func TestSum_DEBAndUnresolved(t *testing.T) {
	items, ratios, db := sumFixture()
	items = append(items, domain.FormulaItem{RawName: "ghost", Inclusion: 10})
	got := Sum(items, ratios, db, []string{"na", "k", "cl", "0", "na"}, Options{})
	want := map[string]float64{"na": 0.1, "k": 0.25, "cl": 0.15, "deb": 65.1}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("sum mismatch (-want +got):\n%s", diff)
	}
}

func TestSum_RecordDMPolicy(t *testing.T) {
	db := fakeDB{"c": {
		ID:           "c",
		DMPct:        ptr(92),
		AdjustPolicy: &domain.AdjustPolicy{DMScaleEnabled: true},
		Nutrients:    map[string]float64{"me": 2000, "ca": 1},
	}}
	items := []domain.FormulaItem{{CanonicalID: "c", Inclusion: 100}}
	got := Sum(items, Ratios{}, db, []string{"me", "ca"}, Options{})
	if got["me"] != 2090.9 || got["ca"] != 1 {
		t.Fatalf("unexpected record dm scaling: %+v", got)
	}
}
