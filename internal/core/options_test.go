package core

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"feedcore/internal/calc"
	"feedcore/internal/evaluate"
	"feedcore/pkg/domain"
)

func TestDefaultServiceOptions(t *testing.T) {
	opts := defaultServiceOptions()
	for _, opt := range []Option{WithLogger(nil), WithMetrics(nil), WithTracer(nil), WithEngine(nil)} {
		opt(&opts)
	}
	if opts.logger == nil || opts.metrics == nil || opts.tracer == nil || opts.engine == nil {
		t.Fatalf("nil options must keep defaults: %+v", opts)
	}
	if diff := cmp.Diff([]string{"nutrient_deficiency", "inclusion_limits"}, opts.engine.Rules()); diff != "" {
		t.Fatalf("default rules mismatch (-want +got):\n%s", diff)
	}
	opts.metrics.Observe(context.Background(), "noop", true, 0)
	_, span := opts.tracer.Start(context.Background(), "noop")
	span.End(nil)
}

func TestWithLogger_RecordsGate(t *testing.T) {
	obsCore, logs := observer.New(zapcore.InfoLevel)
	svc := newFixtureService(WithLogger(zap.New(obsCore)))
	dm := 86.0
	req := fixtureRequest()
	req.Lab = calc.LabOverrides{"corn": {DM: &dm}}
	resp, err := svc.Analyze(context.Background(), req)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if resp.Status != string(domain.KindNeedsDMScaleMode) {
		t.Fatalf("expected DM gate, got %s", resp.Status)
	}
	gated := logs.FilterMessage("analysis gated").All()
	if len(gated) != 1 {
		t.Fatalf("expected one gate log entry, got %d", len(gated))
	}
	if got := gated[0].ContextMap()["gate"]; got != string(domain.KindNeedsDMScaleMode) {
		t.Fatalf("unexpected gate field %v", got)
	}
}

type verdictRule struct {
	status domain.Status
	err    error
}

func (r verdictRule) Name() string { return "verdict" }

func (r verdictRule) Evaluate(_ context.Context, in evaluate.Input) (domain.Evaluation, error) {
	if r.err != nil {
		return domain.Evaluation{}, r.err
	}
	return domain.Evaluation{
		Overall:  r.status,
		Findings: []domain.Finding{{Nutrient: in.Keys[0], Status: r.status}},
	}, nil
}

func TestWithEngine(t *testing.T) {
	engine := evaluate.NewEngine()
	engine.Register(verdictRule{status: domain.StatusFail})
	resp, err := newFixtureService(WithEngine(engine)).Analyze(context.Background(), fixtureRequest())
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if resp.Overall != domain.StatusFail || len(resp.Evaluation.Findings) != 1 {
		t.Fatalf("custom engine not used: %+v", resp.Evaluation)
	}

	boom := errors.New("rule exploded")
	failing := evaluate.NewEngine()
	failing.Register(verdictRule{err: boom})
	if _, err := newFixtureService(WithEngine(failing)).Analyze(context.Background(), fixtureRequest()); !errors.Is(err, boom) {
		t.Fatalf("expected rule error to surface, got %v", err)
	}
}
