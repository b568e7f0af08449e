// Package resilience guards calls to remote cache backends.
//
// An invalidation against Redis can fail transiently. The Executor composes
// three patterns around such a call:
//
//   - Circuit Breaker (sony/gobreaker): stops calling a backend after
//     consecutive failures and probes it again after a reset timeout.
//
//   - Retry (cenkalti/backoff): retries failed attempts with exponential or
//     constant backoff.
//
//   - Timeout: bounds each attempt.
//
// Usage:
//
//	executor := resilience.NewExecutor(
//	    resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//	        Name:         "orders",
//	        MaxFailures:  5,
//	        ResetTimeout: 30 * time.Second,
//	    })),
//	    resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
//	        MaxAttempts:  3,
//	        InitialDelay: 50 * time.Millisecond,
//	    })),
//	    resilience.WithTimeout(time.Second),
//	)
//
//	err := executor.Execute(ctx, func(ctx context.Context) error {
//	    return redisCache.Delete(ctx, "order:7")
//	})
//
// *Executor satisfies invalidate.Guard.
package resilience
