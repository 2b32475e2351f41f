package core

import (
	"context"
	"time"

	"go.uber.org/zap"

	"feedcore/internal/evaluate"
)

// MetricsRecorder receives one observation per service operation.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Tracer starts a span per pipeline stage.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan is ended exactly once with the stage error, nil on success.
type TraceSpan interface {
	End(err error)
}

type noopMetrics struct{}

func (noopMetrics) Observe(context.Context, string, bool, time.Duration) {}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

type serviceOptions struct {
	logger  *zap.Logger
	metrics MetricsRecorder
	tracer  Tracer
	engine  *evaluate.Engine
}

func defaultServiceOptions() serviceOptions {
	return serviceOptions{
		logger:  zap.NewNop(),
		metrics: noopMetrics{},
		tracer:  noopTracer{},
		engine:  evaluate.NewDefaultEngine(),
	}
}

// Option customizes a Service.
type Option func(*serviceOptions)

// WithLogger routes service logs to l. A nil logger keeps the no-op default.
func WithLogger(l *zap.Logger) Option {
	return func(o *serviceOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics records one observation per Analyze call.
func WithMetrics(m MetricsRecorder) Option {
	return func(o *serviceOptions) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithTracer opens a span for every pipeline stage.
func WithTracer(t Tracer) Option {
	return func(o *serviceOptions) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithEngine replaces the default evaluation rules.
func WithEngine(e *evaluate.Engine) Option {
	return func(o *serviceOptions) {
		if e != nil {
			o.engine = e
		}
	}
}
