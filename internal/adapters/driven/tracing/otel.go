// Package tracing exports reasoning loop traces as OpenTelemetry spans.
package tracing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/custodia-labs/ras-cli/internal/core/domain"
	"github.com/custodia-labs/ras-cli/internal/core/ports/driven"
	"github.com/custodia-labs/ras-cli/internal/logger"
)

// Ensure Recorder implements the interface.
var _ driven.TraceRecorder = (*Recorder)(nil)

const instrumentation = "github.com/custodia-labs/ras-cli"

var log = logger.New("tracing")

// Config configures the OTLP/HTTP exporter.
type Config struct {
	Endpoint    string // host:port of the collector
	Insecure    bool   // skip TLS for local collectors
	ServiceName string // default "ras"
	Version     string
}

// Recorder turns each finished reasoning loop into one root span with a
// child span per step, using the recorded step timestamps.
type Recorder struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// New creates a recorder exporting over OTLP/HTTP in batches.
func New(ctx context.Context, cfg Config) (*Recorder, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("OTLP endpoint is required")
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("otel exporter: %w", err)
	}

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return newRecorder(sdktrace.WithBatcher(exporter,
		sdktrace.WithMaxExportBatchSize(256),
		sdktrace.WithBatchTimeout(5*time.Second),
	), res), nil
}

// NewWithExporter creates a recorder that exports synchronously to exp.
func NewWithExporter(exp sdktrace.SpanExporter) *Recorder {
	return newRecorder(sdktrace.WithSyncer(exp), nil)
}

func newRecorder(processor sdktrace.TracerProviderOption, res *resource.Resource) *Recorder {
	opts := []sdktrace.TracerProviderOption{processor}
	if res != nil {
		opts = append(opts, sdktrace.WithResource(res))
	}
	tp := sdktrace.NewTracerProvider(opts...)
	return &Recorder{provider: tp, tracer: tp.Tracer(instrumentation)}
}

func newResource(ctx context.Context, cfg Config) (*resource.Resource, error) {
	name := cfg.ServiceName
	if name == "" {
		name = "ras"
	}
	attrs := []attribute.KeyValue{semconv.ServiceName(name)}
	if cfg.Version != "" {
		attrs = append(attrs, semconv.ServiceVersion(cfg.Version))
	}
	res, err := resource.New(ctx, resource.WithAttributes(attrs...))
	if err != nil {
		return nil, fmt.Errorf("otel resource: %w", err)
	}
	return res, nil
}

// RecordQuestion exports the spans of one loop.
func (r *Recorder) RecordQuestion(ctx context.Context, tr driven.QuestionTrace) {
	if tr.Answer == nil {
		return
	}
	a := tr.Answer
	start, end := bounds(a)

	rootAttrs := []attribute.KeyValue{
		attribute.String("ras.run_id", tr.RunID),
		attribute.String("ras.question.id", tr.Question.ID),
		attribute.String("ras.dataset", tr.Question.Dataset),
		attribute.String("ras.retrieval_mode", string(tr.Mode)),
		attribute.String("ras.planner.policy", tr.Policy),
		attribute.String("ras.termination", string(a.Termination)),
		attribute.Bool("ras.fallback", a.Fallback),
		attribute.Int("ras.steps", len(a.Steps)),
		attribute.Int("ras.triples", len(a.Evidence.Triples)),
	}
	// Loops are exported after they finish, so the root is detached from
	// any span in ctx and keeps the recorded timestamps.
	qctx, root := r.tracer.Start(trace.ContextWithSpanContext(ctx, trace.SpanContext{}), "ras.question",
		trace.WithTimestamp(start),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(rootAttrs...),
	)

	for _, step := range a.Steps {
		attrs := []attribute.KeyValue{
			attribute.Int("ras.step.index", step.Index),
			attribute.String("ras.step.decision", string(step.Decision)),
			attribute.Bool("ras.step.forced", step.Forced),
		}
		if step.Query != "" {
			attrs = append(attrs, attribute.String("ras.step.query", step.Query))
		}
		if step.PassageID != "" {
			attrs = append(attrs, attribute.String("ras.step.passage_id", step.PassageID))
		}
		_, span := r.tracer.Start(qctx, "ras.step."+string(step.Decision),
			trace.WithTimestamp(step.StartedAt),
			trace.WithAttributes(attrs...),
		)
		if step.Error != "" {
			span.SetStatus(codes.Error, step.Error)
		}
		span.End(trace.WithTimestamp(step.StartedAt.Add(step.Latency)))
	}

	if a.Termination.IsForced() {
		root.SetStatus(codes.Error, string(a.Termination))
	} else {
		root.SetStatus(codes.Ok, "")
	}
	root.End(trace.WithTimestamp(end))
}

// bounds returns the wall time covered by the steps.
func bounds(a *domain.Answer) (time.Time, time.Time) {
	if len(a.Steps) == 0 {
		now := time.Now()
		return now, now
	}
	start := a.Steps[0].StartedAt
	end := start
	for _, s := range a.Steps {
		if s.StartedAt.Before(start) {
			start = s.StartedAt
		}
		if e := s.StartedAt.Add(s.Latency); e.After(end) {
			end = e
		}
	}
	return start, end
}

// Shutdown flushes pending spans.
func (r *Recorder) Shutdown(ctx context.Context) error {
	if err := r.provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("otel shutdown: %w", err)
	}
	log.Debug("tracing shut down")
	return nil
}
