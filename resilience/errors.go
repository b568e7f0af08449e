package resilience

import "errors"

var (
	// ErrCircuitOpen is returned without calling the backend while the
	// breaker is open or out of half-open probes.
	ErrCircuitOpen = errors.New("resilience: circuit open, backend call skipped")

	// ErrTimeout is returned when one attempt outlives its deadline.
	ErrTimeout = errors.New("resilience: backend call timed out")
)
