package nutrients

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"feedcore/internal/infra/blob/memory"
	"feedcore/internal/refdata"
	"feedcore/pkg/domain"
)

type fakeDB map[string]domain.IngredientRecord

func (f fakeDB) Lookup(id string) (domain.IngredientRecord, bool) {
	r, ok := f[id]
	return r, ok
}

func TestRegistryKeys_Shapes(t *testing.T) {
	arr := RegistryKeys(map[string]any{"nutrients": []any{
		map[string]any{"key": "me"}, map[string]any{"key": "zn"}, "ca", map[string]any{"key": "me"}, map[string]any{"label": "x"},
	}})
	if diff := cmp.Diff([]string{"me", "zn", "ca"}, arr); diff != "" {
		t.Fatalf("array shape mismatch: %s", diff)
	}
	obj := RegistryKeys(map[string]any{"nutrients": map[string]any{"vit_e": map[string]any{}, "cp": map[string]any{}}})
	if diff := cmp.Diff([]string{"cp", "vit_e"}, obj); diff != "" {
		t.Fatalf("object shape mismatch: %s", diff)
	}
	if RegistryKeys([]any{}) != nil {
		t.Fatalf("non-object registry should yield nothing")
	}
}

func TestLoadRegistry(t *testing.T) {
	mem := memory.New()
	reg, err := LoadRegistry(context.Background(), refdata.New(mem))
	if err != nil || reg.Loaded {
		t.Fatalf("missing registry should be unloaded without error: %+v %v", reg, err)
	}
	mem.PutBytes(RegistryKey, []byte(`{"nutrients":[{"key":"me"},{"key":"phytase_units"}]}`))
	reg, err = LoadRegistry(context.Background(), refdata.New(mem))
	if err != nil || !reg.Loaded || len(reg.Keys) != 2 {
		t.Fatalf("unexpected registry %+v %v", reg, err)
	}
	ks := NewKeySet(reg)
	if !ks.Allowed("phytase_units") || !ks.Allowed("sid_lys") || !ks.FromRegistry() {
		t.Fatalf("registry keys should extend the allow-list")
	}
	if diff := cmp.Diff([]string{"me", "phytase_units", "cp"}, ks.FullKeys("cp", "me")); diff != "" {
		t.Fatalf("full keys mismatch: %s", diff)
	}
}

func TestCandidates(t *testing.T) {
	ks := NewKeySet(Registry{})
	prof := domain.RequirementsProfile{Targets: map[string]float64{"me": 3000, "cp": 22, "ash": 5, "sid_lys": 1.2}}
	if diff := cmp.Diff([]string{"cp", "me", "sid_lys"}, ks.Candidates(prof)); diff != "" {
		t.Fatalf("target-key candidates mismatch: %s", diff)
	}
	prof.EvaluationKeys = []string{"sid_lys", "me", "ca", "0", "meta", "me"}
	if diff := cmp.Diff([]string{"sid_lys", "me"}, ks.Candidates(prof)); diff != "" {
		t.Fatalf("evaluation-key candidates mismatch: %s", diff)
	}
	if len(ks.FullKeys()) != len(DefaultDiagnosticKeys) {
		t.Fatalf("default diagnostics expected without registry")
	}
}

func TestBuildCoverage(t *testing.T) {
	db := fakeDB{
		"corn": {ID: "corn", Nutrients: map[string]float64{"me": 3350, "sid_lys": 0.2, "na": 0.02, "k": 0.3, "cl": 0.05}},
		"oil":  {ID: "oil", Nutrients: map[string]float64{"me": 8800, "sid_lys": 0}},
	}
	items := []domain.FormulaItem{{CanonicalID: "corn"}, {CanonicalID: "oil"}, {CanonicalID: "ghost"}}
	cov := BuildCoverage(items, db, []string{"me", "lys", "ca", "deb"})
	want := Coverage{
		"me":  {Present: 2, Missing: 1, Nonzero: 2, Supported: true},
		"lys": {Present: 2, Missing: 1, Nonzero: 1, Supported: true},
		"ca":  {Present: 0, Missing: 3, Nonzero: 0, Supported: false},
		"deb": {Present: 1, Missing: 2, Nonzero: 1, Supported: true},
	}
	if diff := cmp.Diff(want, cov); diff != "" {
		t.Fatalf("coverage mismatch (-want +got):\n%s", diff)
	}
	used, skipped := cov.Split([]string{"ca", "me", "lys"})
	if diff := cmp.Diff([]string{"me", "lys"}, used); diff != "" {
		t.Fatalf("used mismatch: %s", diff)
	}
	if diff := cmp.Diff([]string{"ca"}, skipped); diff != "" {
		t.Fatalf("skipped mismatch: %s", diff)
	}
}

func TestDEB(t *testing.T) {
	if got := DEB(0.18, 0.9, 0.22); got != 246.38 {
		t.Fatalf("unexpected deb %v", got)
	}
}
