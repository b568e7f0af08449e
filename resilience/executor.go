package resilience

import (
	"context"
	"time"
)

// Op is one call against a cache backend.
type Op func(context.Context) error

// Executor guards cache calls with a fixed stack of patterns. The breaker
// sits outermost so a whole retry sequence counts as one breaker outcome;
// the timeout sits innermost and bounds each attempt.
type Executor struct {
	breaker *CircuitBreaker
	retry   *Retry
	timeout *Timeout
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// NewExecutor creates an executor. With no options it calls op directly.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func WithCircuitBreaker(cb *CircuitBreaker) ExecutorOption {
	return func(e *Executor) { e.breaker = cb }
}

func WithRetry(r *Retry) ExecutorOption {
	return func(e *Executor) { e.retry = r }
}

// WithTimeout bounds each attempt to d.
func WithTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.timeout = NewTimeout(TimeoutConfig{Timeout: d}) }
}

// Execute runs op through breaker, retry and timeout, skipping the ones
// that are not configured.
func (e *Executor) Execute(ctx context.Context, op func(context.Context) error) error {
	call := Op(op)
	if e.timeout != nil {
		call = wrap(call, e.timeout.Execute)
	}
	if e.retry != nil {
		call = wrap(call, e.retry.Execute)
	}
	if e.breaker != nil {
		call = wrap(call, e.breaker.Execute)
	}
	return call(ctx)
}

func wrap(inner Op, layer func(context.Context, func(context.Context) error) error) Op {
	return func(ctx context.Context) error { return layer(ctx, inner) }
}
