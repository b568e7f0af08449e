package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Invalidation actions.
const (
	ActionRemove = "remove"
	ActionClear  = "clear"
)

// InvalidationMeta describes one cache invalidation for telemetry purposes.
type InvalidationMeta struct {
	Scope     string // declaring scope of the intercepted operation (may be empty)
	Operation string // intercepted operation name (required)
	Cache     string // cache name from the policy (required)
	Action    string // ActionRemove or ActionClear
}

// SpanName returns the deterministic span name.
// Format: cache.invalidate.<action>
func (m InvalidationMeta) SpanName() string {
	return "cache.invalidate." + m.action()
}

// OperationID returns scope.operation, or the operation alone when scope is empty.
func (m InvalidationMeta) OperationID() string {
	if m.Scope != "" {
		return m.Scope + "." + m.Operation
	}
	return m.Operation
}

// Validate reports missing required fields.
func (m InvalidationMeta) Validate() error {
	if m.Operation == "" {
		return ErrMissingOperation
	}
	if m.Cache == "" {
		return ErrMissingCache
	}
	return nil
}

func (m InvalidationMeta) action() string {
	if m.Action == "" {
		return ActionRemove
	}
	return m.Action
}

func (m InvalidationMeta) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("invalidation.operation", m.OperationID()),
		attribute.String("invalidation.cache", m.Cache),
		attribute.String("invalidation.action", m.action()),
	}
	if m.Scope != "" {
		attrs = append(attrs, attribute.String("invalidation.scope", m.Scope))
	}
	return attrs
}

// Tracer wraps OpenTelemetry tracing with invalidation span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for one invalidation.
	StartSpan(ctx context.Context, meta InvalidationMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartSpan(ctx context.Context, meta InvalidationMeta) (context.Context, trace.Span) {
	attrs := append(meta.attributes(), attribute.Bool("invalidation.error", false))
	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("invalidation.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

type noopTracer struct {
	noop trace.Tracer
}

func newNoopTracer() Tracer {
	return &noopTracer{noop: tracenoop.NewTracerProvider().Tracer("noop")}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta InvalidationMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, _ error) {
	span.End()
}
