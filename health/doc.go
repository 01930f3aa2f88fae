// Package health is the central directory of service boundaries.
//
// A Registry hands out one boundary per named service, aggregates their
// metrics into a JSON-serializable report, and (once started) sweeps
// every entry on an interval as a supervised background task, logging
// transitions between healthy and unhealthy. Process-level checks such
// as the memory checker live alongside the service entries.
//
//	reg := health.NewRegistry(health.RegistryConfig{})
//	defer reg.Shutdown(context.Background())
//
//	b, _ := reg.RegisterService("weather-api",
//	    health.WithBreaker(resilience.CircuitBreakerConfig{FailureThreshold: 3}),
//	    health.WithTimeout(5*time.Second),
//	)
//
//	forecast, ok := boundary.Execute(ctx, b, "forecast", fetchForecast)
//
// HTTP probe handlers for liveness, readiness and the full report are
// provided for mounting on a mux.
package health
