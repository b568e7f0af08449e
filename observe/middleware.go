package observe

import (
	"context"
	"time"
)

// InvalidateFunc performs one cache invalidation.
type InvalidateFunc func(ctx context.Context) error

// Middleware wraps cache invalidations with tracing, metrics, and logging.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Context: the span context is passed to the wrapped function.
//   - Errors: errors from the wrapped function are recorded and returned unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a Middleware. Nil components are replaced by no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = newNoopTracer()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{tracer: tracer, metrics: metrics, logger: logger}
}

// NewNoopMiddleware returns a Middleware that records nothing.
func NewNoopMiddleware() *Middleware {
	return NewMiddleware(nil, nil, nil)
}

// Wrap runs fn inside a span, records its metrics, and logs the outcome.
func (m *Middleware) Wrap(ctx context.Context, meta InvalidationMeta, fn InvalidateFunc) error {
	ctx, span := m.tracer.StartSpan(ctx, meta)
	start := time.Now()

	err := fn(ctx)

	duration := time.Since(start)
	m.tracer.EndSpan(span, err)
	m.metrics.RecordInvalidation(ctx, meta, duration, err)

	fields := []Field{
		{Key: "operation", Value: meta.OperationID()},
		{Key: "cache", Value: meta.Cache},
		{Key: "action", Value: meta.action()},
		{Key: "duration_ms", Value: float64(duration.Microseconds()) / 1000},
	}
	if err != nil {
		fields = append(fields, Field{Key: "error", Value: err})
		m.logger.Warn(ctx, "cache invalidation failed", fields...)
	} else {
		m.logger.Debug(ctx, "cache invalidated", fields...)
	}
	return err
}

// RecordKeyError records and logs a key generation failure.
func (m *Middleware) RecordKeyError(ctx context.Context, meta InvalidationMeta, err error) {
	m.metrics.RecordKeyError(ctx, meta)
	m.logger.Warn(ctx, "cache key generation failed",
		Field{Key: "operation", Value: meta.OperationID()},
		Field{Key: "cache", Value: meta.Cache},
		Field{Key: "error", Value: err},
	)
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}
