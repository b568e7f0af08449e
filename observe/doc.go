// Package observe provides observability primitives for cache invalidation.
//
// It owns the structured Logger (backed by zerolog), the OpenTelemetry
// tracer and meter setup, and a Middleware that wraps a single Delete or
// Clear call with a span, metrics, and a log line.
//
// Span names follow cache.invalidate.<action>, where action is "remove" or
// "clear". Metrics are cache.invalidation.total, cache.invalidation.errors,
// cache.invalidation.duration_ms, and cache.invalidation.key_errors.
//
// Fields listed in RedactedFields are written as "[REDACTED]".
package observe
