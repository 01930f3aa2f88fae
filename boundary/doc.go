// Package boundary wraps calls to one unreliable service with a circuit
// breaker, optional retry and rate limiting, a timeout and a per-call
// fallback, while keeping that service's health accounting.
//
// A boundary call never returns an error. Failures are delivered to the
// configured Reporter with enough metadata to distinguish a rejection
// from a timeout from an operation failure, and the call reports ok=false
// (or the fallback's result):
//
//	b, _ := boundary.New(boundary.Config{
//	    Service: "weather-api",
//	    Breaker: resilience.CircuitBreakerConfig{FailureThreshold: 3},
//	    Timeout: 5 * time.Second,
//	})
//
//	forecast, ok := boundary.Execute(ctx, b, "forecast", fetchForecast,
//	    boundary.WithFallback(cachedForecast))
//	if !ok {
//	    // service unavailable, degrade gracefully
//	}
package boundary
