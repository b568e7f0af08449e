package invalidate

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonwraymond/flushops/cache"
	"github.com/jonwraymond/flushops/observe"
)

// KeyErrorMode selects what Intercept does when no key can be generated.
type KeyErrorMode int

const (
	// AbortOnKeyError returns the *KeyGenerationError without running the operation.
	AbortOnKeyError KeyErrorMode = iota

	// ProceedOnKeyError skips invalidation and runs the operation.
	ProceedOnKeyError
)

// CacheErrorMode selects what Intercept does when Delete or Clear fails.
type CacheErrorMode int

const (
	// IgnoreCacheError logs the failure and runs the operation.
	IgnoreCacheError CacheErrorMode = iota

	// AbortOnCacheError returns the *InvalidationError without running the operation.
	AbortOnCacheError
)

// FailurePolicy groups the failure modes. The zero value aborts on key
// errors and ignores cache errors.
type FailurePolicy struct {
	OnKeyError   KeyErrorMode
	OnCacheError CacheErrorMode
}

// Guard runs a cache call, for example with retries or a circuit breaker.
// *resilience.Executor implements Guard.
type Guard interface {
	Execute(ctx context.Context, op func(context.Context) error) error
}

// Option configures an Interceptor.
type Option func(*Interceptor)

// WithLogger sets the logger. Default: no-op.
func WithLogger(l observe.Logger) Option {
	return func(i *Interceptor) {
		if l != nil {
			i.logger = l
		}
	}
}

// WithInstrumentation records spans and metrics for every Delete and Clear.
func WithInstrumentation(mw *observe.Middleware) Option {
	return func(i *Interceptor) {
		if mw != nil {
			i.mw = mw
		}
	}
}

// WithGuard runs every cache call through g.
func WithGuard(g Guard) Option {
	return func(i *Interceptor) {
		i.guard = g
	}
}

// WithFailurePolicy overrides the default failure modes.
func WithFailurePolicy(fp FailurePolicy) Option {
	return func(i *Interceptor) {
		i.failure = fp
	}
}

// Interceptor invalidates cache entries before letting an operation run.
//
// Contract:
//   - Concurrency: safe for concurrent use; it holds no per-call state.
//   - Ordering: Delete or Clear completes before the operation starts.
//   - Results: the operation's value and error are returned unchanged.
//   - Context: ctx is passed unchanged to the operation.
type Interceptor struct {
	resolver Resolver
	logger   observe.Logger
	mw       *observe.Middleware
	guard    Guard
	failure  FailurePolicy
}

// NewInterceptor creates an Interceptor that looks policies up in resolver.
func NewInterceptor(resolver Resolver, opts ...Option) (*Interceptor, error) {
	if resolver == nil {
		return nil, ErrNilResolver
	}
	i := &Interceptor{
		resolver: resolver,
		logger:   observe.NopLogger(),
		mw:       observe.NewNoopMiddleware(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Intercept invalidates according to the policy registered for
// inv.Identity, then proceeds. Without a policy it only proceeds. A resolved
// policy that fails Validate is returned as an error and nothing runs.
func (i *Interceptor) Intercept(ctx context.Context, inv *Invocation) (any, error) {
	policy, ok := i.resolver.Resolve(inv.Identity)
	if !ok {
		return inv.Proceed(ctx)
	}
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalidate: policy for %s: %w", inv.Identity, err)
	}

	if err := i.invalidate(ctx, inv, policy); err != nil {
		return nil, err
	}
	return inv.Proceed(ctx)
}

// invalidate returns a non-nil error only when the failure policy says the
// operation must not run.
func (i *Interceptor) invalidate(ctx context.Context, inv *Invocation, p Policy) error {
	meta := observe.InvalidationMeta{
		Scope:     inv.Identity.Scope,
		Operation: inv.Identity.Operation,
		Cache:     p.CacheName,
		Action:    observe.ActionClear,
	}

	if p.RemoveAll {
		err := i.mw.Wrap(ctx, meta, func(ctx context.Context) error {
			return i.run(ctx, p.Target.Clear)
		})
		return i.cacheFailure(ctx, &InvalidationError{Cache: p.CacheName, All: true, Err: err}, err)
	}

	meta.Action = observe.ActionRemove
	key, err := p.KeyGenerator.GenerateKey(inv)
	if err == nil {
		err = cache.ValidateKey(key)
	}
	if err != nil {
		keyErr := &KeyGenerationError{Identity: inv.Identity, Err: err}
		i.mw.RecordKeyError(ctx, meta, keyErr)
		if i.failure.OnKeyError == ProceedOnKeyError {
			return nil
		}
		return keyErr
	}

	err = i.mw.Wrap(ctx, meta, func(ctx context.Context) error {
		return i.run(ctx, func(ctx context.Context) error { return p.Target.Delete(ctx, key) })
	})
	return i.cacheFailure(ctx, &InvalidationError{Cache: p.CacheName, Key: key, Err: err}, err)
}

func (i *Interceptor) run(ctx context.Context, op func(context.Context) error) error {
	if i.guard == nil {
		return op(ctx)
	}
	return i.guard.Execute(ctx, op)
}

func (i *Interceptor) cacheFailure(ctx context.Context, invErr *InvalidationError, err error) error {
	if err == nil {
		return nil
	}
	if i.failure.OnCacheError == AbortOnCacheError {
		return invErr
	}
	i.logger.Warn(ctx, "cache invalidation failed; proceeding",
		observe.Field{Key: "cache", Value: invErr.Cache},
		observe.Field{Key: "error", Value: errors.Unwrap(invErr)},
	)
	return nil
}

// Wrap returns fn decorated with invalidation for id.
func (i *Interceptor) Wrap(id Identity, fn OperationFunc) OperationFunc {
	return func(ctx context.Context, args map[string]any) (any, error) {
		inv := NewInvocation(id, args, func(ctx context.Context) (any, error) {
			return fn(ctx, args)
		})
		return i.Intercept(ctx, inv)
	}
}

// Decorator wraps an operation.
type Decorator func(id Identity, fn OperationFunc) OperationFunc

// Decorator returns Wrap as a Decorator.
func (i *Interceptor) Decorator() Decorator { return i.Wrap }

// Chain composes decorators. The first one is outermost.
func Chain(decorators ...Decorator) Decorator {
	return func(id Identity, fn OperationFunc) OperationFunc {
		for k := len(decorators) - 1; k >= 0; k-- {
			fn = decorators[k](id, fn)
		}
		return fn
	}
}
