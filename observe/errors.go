package observe

import "errors"

// Config.Validate errors.
var (
	ErrMissingServiceName     = errors.New("observe: service name is required")
	ErrInvalidSamplePct       = errors.New("observe: sample percentage must be between 0.0 and 1.0")
	ErrInvalidTracingExporter = errors.New("observe: invalid tracing exporter")
	ErrInvalidMetricsExporter = errors.New("observe: invalid metrics exporter")
	ErrInvalidLogLevel        = errors.New("observe: invalid log level")
)

var (
	ErrNilObserver = errors.New("observe: observer is nil")

	// ErrMissingOperation and ErrMissingCache reject an InvalidationMeta
	// that cannot be attributed in spans and metrics.
	ErrMissingOperation = errors.New("observe: operation is required")
	ErrMissingCache     = errors.New("observe: cache name is required")
)

// RedactedFields lists field keys whose values never reach the log output.
// Invocation arguments travel under "args".
var RedactedFields = []string{"args", "input", "password", "secret", "token", "api_key", "credential"}
