// Package resilience provides resilience patterns for calls to unreliable
// collaborators.
//
// This package implements the primitive patterns that the boundary package
// composes into per-service error boundaries. Each pattern can also be used
// on its own.
//
// # Patterns
//
//   - Circuit Breaker: Stops calling a failing dependency after a threshold
//     of consecutive failures, then probes for recovery through a half-open
//     trial state.
//
//   - Retry: Automatically retries failed operations with configurable
//     backoff strategies (exponential, linear, constant).
//
//   - Sliding Window Rate Limiter: Bounds the number of calls whose
//     timestamps fall within the trailing time window, suspending callers
//     until a slot frees.
//
//   - Timeout: Ensures operations complete within a time limit, reporting
//     a typed *TimeoutError that carries the limit and elapsed time.
//
// # Usage
//
//	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//	    FailureThreshold: 5,
//	    RecoveryTimeout:  time.Minute,
//	    SuccessThreshold: 2,
//	})
//
//	retry := resilience.NewRetry(resilience.RetryConfig{
//	    MaxAttempts:  3,
//	    InitialDelay: 100 * time.Millisecond,
//	    MaxDelay:     5 * time.Second,
//	    Multiplier:   2.0,
//	})
//
//	limiter := resilience.NewSlidingWindow(resilience.SlidingWindowConfig{
//	    MaxCalls: 30,
//	    Window:   time.Minute,
//	})
//
//	err := cb.Execute(ctx, func(ctx context.Context) error {
//	    return retry.Execute(ctx, callExternalService)
//	})
//
// All time-dependent components accept a clockz.Clock for deterministic
// testing and default to the real clock.
package resilience
