package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric names.
const (
	MetricInvalidationTotal    = "cache.invalidation.total"
	MetricInvalidationErrors   = "cache.invalidation.errors"
	MetricInvalidationDuration = "cache.invalidation.duration_ms"
	MetricKeyErrors            = "cache.invalidation.key_errors"
)

// Metrics records invalidation metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordInvalidation records one Delete or Clear with its duration and outcome.
	RecordInvalidation(ctx context.Context, meta InvalidationMeta, duration time.Duration, err error)

	// RecordKeyError records a key generation failure for the operation.
	RecordKeyError(ctx context.Context, meta InvalidationMeta)
}

type metricsImpl struct {
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	keyErrors    metric.Int64Counter
	durationHist metric.Float64Histogram
}

// NewMetrics creates the invalidation instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	totalCount, err := meter.Int64Counter(
		MetricInvalidationTotal,
		metric.WithDescription("Total number of cache invalidations"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		MetricInvalidationErrors,
		metric.WithDescription("Total number of failed cache invalidations"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	keyErrors, err := meter.Int64Counter(
		MetricKeyErrors,
		metric.WithDescription("Total number of key generation failures"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		MetricInvalidationDuration,
		metric.WithDescription("Cache invalidation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		totalCount:   totalCount,
		errorCount:   errorCount,
		keyErrors:    keyErrors,
		durationHist: durationHist,
	}, nil
}

func (m *metricsImpl) RecordInvalidation(ctx context.Context, meta InvalidationMeta, duration time.Duration, err error) {
	opt := metric.WithAttributes(meta.attributes()...)

	m.totalCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Microseconds())/1000, opt)
}

func (m *metricsImpl) RecordKeyError(ctx context.Context, meta InvalidationMeta) {
	m.keyErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("invalidation.operation", meta.OperationID()),
		attribute.String("invalidation.cache", meta.Cache),
	))
}

type noopMetrics struct{}

func (noopMetrics) RecordInvalidation(context.Context, InvalidationMeta, time.Duration, error) {}
func (noopMetrics) RecordKeyError(context.Context, InvalidationMeta)                           {}
