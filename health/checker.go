package health

import (
	"context"
	"fmt"
	"time"
)

// Status is the health of one cache, or of every cache taken together.
type Status int

const (
	StatusHealthy Status = iota
	// StatusDegraded means invalidations go through but slowly.
	StatusDegraded
	// StatusUnhealthy means invalidations against the cache would fail.
	StatusUnhealthy
)

func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	}
	return "unknown"
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name.
func (s *Status) UnmarshalText(b []byte) error {
	for _, c := range []Status{StatusHealthy, StatusDegraded, StatusUnhealthy} {
		if c.String() == string(b) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("health: unknown status %q", b)
}

// Worst returns the most severe status in statuses, or StatusHealthy when
// there are none.
func Worst(statuses ...Status) Status {
	worst := StatusHealthy
	for _, s := range statuses {
		if s > worst {
			worst = s
		}
	}
	return worst
}

// Result is the outcome of one check. The aggregator fills in Latency and
// CheckedAt.
type Result struct {
	Status    Status
	Message   string
	Details   map[string]any
	Latency   time.Duration
	CheckedAt time.Time
	Err       error
}

func Healthy(msg string) Result  { return Result{Status: StatusHealthy, Message: msg} }
func Degraded(msg string) Result { return Result{Status: StatusDegraded, Message: msg} }

func Unhealthy(msg string, err error) Result {
	return Result{Status: StatusUnhealthy, Message: msg, Err: err}
}

// With returns a copy of r carrying the extra detail.
func (r Result) With(key string, value any) Result {
	details := make(map[string]any, len(r.Details)+1)
	for k, v := range r.Details {
		details[k] = v
	}
	details[key] = value
	r.Details = details
	return r
}

// Checker probes one component.
//
// Contract:
// - Name is stable and unique within an Aggregator.
// - Check honors ctx and never panics; failures are reported in the Result.
type Checker interface {
	Name() string
	Check(ctx context.Context) Result
}

// CheckFunc returns a Checker named name that runs fn.
func CheckFunc(name string, fn func(context.Context) Result) Checker {
	return funcChecker{name: name, fn: fn}
}

type funcChecker struct {
	name string
	fn   func(context.Context) Result
}

func (f funcChecker) Name() string                     { return f.name }
func (f funcChecker) Check(ctx context.Context) Result { return f.fn(ctx) }
