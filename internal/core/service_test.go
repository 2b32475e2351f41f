package core

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"feedcore/internal/calc"
	"feedcore/internal/infra/blob/memory"
	"feedcore/internal/refdata"
	"feedcore/internal/requirements"
	"feedcore/pkg/domain"
)

const fixtureFormula = "Corn 60\nSoybean Meal 48 35\nLimestone 2\nSalt 0.3"

func fixtureStore() *memory.Store {
	mem := memory.New()
	mem.PutBytes("ingredients/poultry/global/v1/ingredients.poultry.global.sid.v1.json", []byte(`{"ingredients":{
		"corn":{"me":3350,"cp":8,"ca":0.02,"na":0.02,"k":0.3,"cl":0.05,"sid_lys":0.2,"dm_pct":88},
		"sbm_48":{"me":2440,"cp":48,"ca":0.3,"na":0.01,"k":2.2,"cl":0.05,"sid_lys":2.7,"total_lys":3.0,"dm_pct":89,"sid_coefs":{"lys":0.9}},
		"soybean_oil":{"me":8800,"dm_pct":99},
		"limestone":{"ca":38,"dm_pct":99},
		"salt":{"na":39,"cl":60,"dm_pct":99}}}`))
	index, library := requirements.DirectKeys("poultry", "broiler", "meat", "v1")
	mem.PutBytes(index, []byte(`{"breeds":{"generic":{"starter":"gen_starter"}}}`))
	mem.PutBytes(library, []byte(`{"profiles":{"gen_starter":{"label":"Generic starter","targets":{"me_kcal_per_kg":3020,"cp_pct":21}}}}`))
	return mem
}

func newFixtureService(opts ...Option) *Service {
	return NewService(refdata.New(fixtureStore()), nil, opts...)
}

func fixtureRequest() Request {
	return Request{Formula: fixtureFormula, Normalize: true}
}

func TestAnalyze_EndToEnd(t *testing.T) {
	resp, err := newFixtureService().Analyze(context.Background(), fixtureRequest())
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !resp.OK || resp.Status != StatusOK {
		t.Fatalf("expected OK response, got %s: %s", resp.Status, resp.Message)
	}
	var total float64
	for _, it := range resp.ItemsResolved {
		total += it.Inclusion
	}
	if total < 99.999 || total > 100.001 {
		t.Fatalf("normalized inclusions should sum to 100, got %v", total)
	}
	if resp.Parsed.Normalization == nil || resp.Parsed.Normalization.OriginalTotal != 97.3 {
		t.Fatalf("normalization not recorded: %+v", resp.Parsed.Normalization)
	}
	if resp.ItemsResolved[1].Ingredient != "sbm_48" {
		t.Fatalf("explicit grade should resolve to the tier id: %+v", resp.ItemsResolved[1])
	}
	if resp.NutrientProfile["me"] != 2943.5 || resp.NutrientProfile["cp"] != 22.1994 {
		t.Fatalf("unexpected evaluated profile %+v", resp.NutrientProfile)
	}
	if _, ok := resp.NutrientProfileFull["deb"]; !ok {
		t.Fatalf("full profile should carry deb: %+v", resp.NutrientProfileFull)
	}
	want := domain.Evaluation{
		Overall: domain.StatusWarn,
		Findings: []domain.Finding{
			{Nutrient: "cp", Status: domain.StatusOK, DeviationPct: 5.71, Actual: 22.1994, Required: 21, Diff: 1.1994},
			{Nutrient: "me", Status: domain.StatusWarn, DeviationPct: -2.53, Actual: 2943.5, Required: 3020, Diff: -76.5},
		},
	}
	if diff := cmp.Diff(want, *resp.Evaluation); diff != "" {
		t.Fatalf("evaluation mismatch (-want +got):\n%s", diff)
	}
	if resp.Overall != domain.StatusWarn || resp.Meta.ReqKey != "gen_starter" || resp.Meta.Selectors.Production != "meat" {
		t.Fatalf("unexpected meta %+v overall %s", resp.Meta, resp.Overall)
	}
	if resp.Meta.DMScaleModeUsed != domain.DMScaleMEOnly || resp.Meta.CPApplyModeUsed != domain.CPApplyNone {
		t.Fatalf("default modes not echoed: %+v", resp.Meta)
	}
	if !strings.Contains(resp.RequirementsBasisNote, "reqKey=gen_starter") {
		t.Fatalf("unexpected basis note %q", resp.RequirementsBasisNote)
	}
	if row := resp.Deviations["me"]; row.Actual != 2943.5 || row.Pct != -2.53 {
		t.Fatalf("unexpected deviation row %+v", row)
	}
}

func TestAnalyze_NoGuessingGrade(t *testing.T) {
	resp, err := newFixtureService().Analyze(context.Background(), Request{Formula: "Corn 60\nSoybean meal 35"})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(resp.Meta.NeedsClarification) != 1 || resp.Meta.NeedsClarification[0].Family != "soybean_meal" {
		t.Fatalf("expected a clarification request, got %+v", resp.Meta.NeedsClarification)
	}
	for _, it := range resp.ItemsResolved {
		if strings.HasPrefix(it.Ingredient, "sbm_") {
			t.Fatalf("grade must not be guessed: %+v", it)
		}
	}
	if len(resp.Unknown) != 1 || !resp.Unknown[0].NeedsClarification {
		t.Fatalf("unclarified line should be reported unknown: %+v", resp.Unknown)
	}
	if resp.Meta.ClarificationText == "" || len(resp.Meta.ClarificationExamples) == 0 {
		t.Fatalf("clarification text and examples expected")
	}
	if resp.Status != StatusOK {
		t.Fatalf("clarification is advisory, got %s", resp.Status)
	}
}

func TestAnalyze_GatesAreResumable(t *testing.T) {
	dm, cp := 86.0, 50.0
	svc := newFixtureService()
	req := fixtureRequest()
	req.Lab = calc.LabOverrides{"Corn": {DM: &dm}, "sbm_48": {CP: &cp}}

	resp, err := svc.Analyze(context.Background(), req)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if resp.Status != string(domain.KindNeedsDMScaleMode) || resp.OK {
		t.Fatalf("expected dm gate, got %s", resp.Status)
	}
	if diff := cmp.Diff([]string{"ME_ONLY", "ALL_NUTRIENTS"}, resp.Choices); diff != "" {
		t.Fatalf("dm choices mismatch: %s", diff)
	}
	if resp.Meta.DMScaleModeUsed != "" || len(resp.Meta.DMOverridesApplied) != 1 || resp.Parsed == nil {
		t.Fatalf("gate response should carry intermediate state: %+v", resp.Meta)
	}

	req.DMScaleMode = "me_only"
	resp, err = svc.Analyze(context.Background(), req)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if resp.Status != string(domain.KindNeedsCPApplyMode) || resp.Recommended != string(domain.CPApplyRecomputeSIDFromTotal) {
		t.Fatalf("expected cp gate, got %s", resp.Status)
	}
	if resp.Meta.DMScaleModeUsed != domain.DMScaleMEOnly {
		t.Fatalf("dm mode should be echoed at the cp gate: %+v", resp.Meta)
	}

	req.CPApplyMode = string(domain.CPApplyRecomputeSIDFromTotal)
	resp, err = svc.Analyze(context.Background(), req)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !resp.OK {
		t.Fatalf("expected completion after both modes, got %s", resp.Status)
	}
	if resp.ItemsResolved[0].DMRatio != 0.97727273 {
		t.Fatalf("dm ratio not carried: %+v", resp.ItemsResolved[0])
	}
}

func TestAnalyze_Idempotent(t *testing.T) {
	svc := newFixtureService()
	a, err := svc.Analyze(context.Background(), fixtureRequest())
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	b, err := svc.Analyze(context.Background(), fixtureRequest())
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	ja, _ := json.Marshal(a)
	jb, _ := json.Marshal(b)
	if string(ja) != string(jb) {
		t.Fatalf("repeated calls should be byte-identical")
	}
}

func TestAnalyze_RequirementsFailuresAreResponses(t *testing.T) {
	svc := newFixtureService()
	resp, err := svc.Analyze(context.Background(), Request{Formula: "Corn 100", Type: "layer"})
	if err != nil {
		t.Fatalf("requirements failure must not be an error: %v", err)
	}
	if resp.OK || resp.Status != string(domain.KindProfileNotFound) || resp.Error == nil {
		t.Fatalf("expected profile-not-found response, got %s", resp.Status)
	}
	if !strings.HasPrefix(resp.RequirementsBasisNote, "No requirements profile could be loaded for: poultry → layer") {
		t.Fatalf("unexpected basis note %q", resp.RequirementsBasisNote)
	}
	if resp.Evaluation != nil {
		t.Fatalf("no evaluation without requirements")
	}
}

func TestAnalyze_CatalogNotFound(t *testing.T) {
	resp, err := newFixtureService().Analyze(context.Background(), Request{Formula: "Corn 100", Species: "swine"})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if resp.Status != string(domain.KindCatalogNotFound) {
		t.Fatalf("expected catalog not found, got %s", resp.Status)
	}
}

func TestAnalyze_InvalidRequest(t *testing.T) {
	svc := newFixtureService()
	if _, err := svc.Analyze(context.Background(), Request{Formula: "  \n"}); !errors.Is(err, ErrEmptyFormula) {
		t.Fatalf("expected empty formula error, got %v", err)
	}
	if _, err := svc.Analyze(context.Background(), Request{Formula: "Corn 100", DMScaleMode: "HALF"}); err == nil {
		t.Fatalf("expected invalid mode error")
	}
}

func TestAnalyze_InclusionLimits(t *testing.T) {
	mem := fixtureStore()
	mem.PutBytes("limits/poultry/broiler/limits.poultry.broiler.v1.json", []byte(`{"gen_starter":{"limestone":{"max":1.5},"corn":{"rec_max":70}}}`))
	resp, err := NewService(refdata.New(mem), nil).Analyze(context.Background(), fixtureRequest())
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	ev := resp.Evaluation
	if ev.LimitsOverall != domain.StatusFail || ev.Overall != domain.StatusWarn {
		t.Fatalf("limits must be reported separately: %s / %s", ev.Overall, ev.LimitsOverall)
	}
	if len(ev.Limits) != 2 || ev.Limits[0].Ingredient != "limestone" {
		t.Fatalf("unexpected limit findings %+v", ev.Limits)
	}
	if resp.InclusionLimitsFile == "" {
		t.Fatalf("limits file should be reported")
	}
}

type metricsCall struct {
	op      string
	success bool
}

type captureMetricsRecorder struct{ calls []metricsCall }

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	c.calls = append(c.calls, metricsCall{op: op, success: success})
}

func TestAnalyze_Observability(t *testing.T) {
	metrics := &captureMetricsRecorder{}
	tracer := NewJSONTracer(nil)
	svc := newFixtureService(WithMetrics(metrics), WithTracer(tracer))
	if _, err := svc.Analyze(context.Background(), fixtureRequest()); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if diff := cmp.Diff([]metricsCall{{op: "analyze", success: true}}, metrics.calls, cmp.AllowUnexported(metricsCall{})); diff != "" {
		t.Fatalf("metrics mismatch: %s", diff)
	}
	entries := tracer.Entries()
	var ops []string
	for _, e := range entries {
		ops = append(ops, e.Operation)
		if e.TraceID != entries[len(entries)-1].TraceID {
			t.Fatalf("stage spans should share the analyze trace: %+v", e)
		}
	}
	if diff := cmp.Diff([]string{"analyze.catalog", "analyze.requirements", "analyze.evaluate", "analyze"}, ops); diff != "" {
		t.Fatalf("span order mismatch: %s", diff)
	}
	if entries[0].ParentID != entries[3].SpanID {
		t.Fatalf("stage span should be parented to analyze")
	}
}

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	svc := newFixtureService(WithMetrics(rec))
	_, _ = svc.Analyze(context.Background(), fixtureRequest())
	_, _ = svc.Analyze(context.Background(), Request{})
	if got := testutil.ToFloat64(rec.total.WithLabelValues("analyze", "success")); got != 1 {
		t.Fatalf("success count = %v", got)
	}
	if got := testutil.ToFloat64(rec.total.WithLabelValues("analyze", "error")); got != 1 {
		t.Fatalf("error count = %v", got)
	}
	if _, err := NewPrometheusMetricsRecorder(reg); err == nil {
		t.Fatalf("double registration should fail")
	}
}

func TestExpvarMetricsRecorder(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	svc := newFixtureService(WithMetrics(rec))
	_, _ = svc.Analyze(context.Background(), fixtureRequest())
	snap := rec.Snapshot()
	if snap.Results["analyze"]["success"] != 1 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if !strings.HasPrefix(rec.Name(), "feedcore_metrics_") {
		t.Fatalf("unexpected generated name %q", rec.Name())
	}
}
