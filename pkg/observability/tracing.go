package observability

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const tracerName = "github.com/matzehuels/dmfbsynth/pipeline"

// TracingConfig governs how tracing is initialised.
type TracingConfig struct {
	Enabled     bool      `toml:"enabled"`
	ServiceName string    `toml:"service_name"`
	SampleRatio float64   `toml:"sample_ratio"`
	Writer      io.Writer `toml:"-"` // span output; stderr when nil
}

// InitTracing installs a tracer provider that writes spans with the stdout
// exporter. It returns a shutdown function that flushes pending spans.
func InitTracing(ctx context.Context, cfg TracingConfig, logger *log.Logger) (func(context.Context) error, error) {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if !cfg.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		logger.Debug("tracing disabled")
		return func(context.Context) error { return nil }, nil
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "dmfbsynth"
	}
	if cfg.SampleRatio <= 0 || cfg.SampleRatio > 1 {
		cfg.SampleRatio = 1
	}
	w := cfg.Writer
	if w == nil {
		w = os.Stderr
	}

	exp, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithoutTimestamps())
	if err != nil {
		return nil, fmt.Errorf("create exporter: %w", err)
	}
	res, err := resource.New(ctx, resource.WithAttributes(
		attribute.String("service.name", cfg.ServiceName),
	))
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Debug("tracing enabled", "service", cfg.ServiceName, "sample_ratio", cfg.SampleRatio)
	return tp.Shutdown, nil
}

// ShutdownWithTimeout invokes shutdown with a bounded timeout and logs any
// failure.
func ShutdownWithTimeout(ctx context.Context, shutdown func(context.Context) error, logger *log.Logger) {
	if shutdown == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil && logger != nil {
		logger.Warn("tracing shutdown failed", "error", err)
	}
}

// Tracer implements PipelineHooks by opening one span per stage.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer uses the globally installed tracer provider.
func NewTracer() *Tracer {
	return NewTracerFrom(otel.GetTracerProvider())
}

// NewTracerFrom uses an explicit tracer provider.
func NewTracerFrom(tp trace.TracerProvider) *Tracer {
	return &Tracer{tracer: tp.Tracer(tracerName)}
}

func (t *Tracer) OnStageStart(ctx context.Context, stage, problem string) context.Context {
	ctx, _ = t.tracer.Start(ctx, "dmfb."+stage, trace.WithAttributes(
		attribute.String("dmfb.stage", stage),
		attribute.String("dmfb.problem", problem),
	))
	return ctx
}

func (t *Tracer) OnStageComplete(ctx context.Context, _, _ string, d time.Duration, feasible bool, err error) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.Bool("dmfb.feasible", feasible),
		attribute.Float64("dmfb.duration_seconds", d.Seconds()),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (t *Tracer) OnRunComplete(ctx context.Context, run RunSummary) {
	_, span := t.tracer.Start(ctx, "dmfb.run", trace.WithAttributes(
		attribute.String("dmfb.problem", run.Problem),
		attribute.String("dmfb.method", run.Method),
		attribute.Int("dmfb.makespan", run.Makespan),
		attribute.String("dmfb.outcome", outcome(run)),
		attribute.Bool("dmfb.cache_hit", run.CacheHit),
	))
	span.End()
}

var _ PipelineHooks = (*Tracer)(nil)
