package boundary

import (
	"context"
	"sync"
	"time"

	"github.com/zoobzio/clockz"

	"github.com/jonwraymond/guardrail/observe"
	"github.com/jonwraymond/guardrail/resilience"
)

// Config configures a Boundary.
type Config struct {
	// Service is the name of the protected service. Required.
	Service string

	// Breaker configures the per-service circuit breaker.
	Breaker resilience.CircuitBreakerConfig

	// Retry, when non-nil, re-invokes a failing operation with backoff
	// before the boundary records an outcome. The breaker and metrics see
	// one outcome per boundary call, not per attempt.
	Retry *resilience.RetryConfig

	// Limiter, when non-nil, bounds admitted calls per sliding window.
	// A limiter may be shared to throttle several boundaries together.
	Limiter *resilience.SlidingWindow

	// Timeout is the default per-call time limit. Zero means none.
	Timeout time.Duration

	// Thresholds are the status classification bands.
	// Default: DefaultThresholds().
	Thresholds Thresholds

	// HealthCheck overrides the default metric-based liveness predicate.
	HealthCheck func(HealthMetrics) bool

	// Reporter receives every boundary and fallback failure.
	// Default: an observe.ErrorReporter on the instrumentation logger.
	Reporter Reporter

	// Instrumentation supplies spans, counters and logs.
	// Default: no-op.
	Instrumentation *observe.Instrumentation

	// Clock is the time source. Default: clockz.RealClock.
	Clock clockz.Clock
}

// Boundary composes a circuit breaker, optional retry and rate limit, a
// timeout and a per-call fallback around calls to one named service, and
// keeps that service's health accounting.
//
// A guarded call never surfaces an error to its caller: every failure is
// reported through the Reporter and the call returns a not-ok result (or
// the fallback's result). Rejected calls never touch the success or error
// counters.
type Boundary struct {
	service    string
	breaker    *resilience.CircuitBreaker
	retry      *resilience.Retry
	limiter    *resilience.SlidingWindow
	timeout    time.Duration
	thresholds Thresholds
	healthFn   func(HealthMetrics) bool
	reporter   Reporter
	inst       *observe.Instrumentation
	clock      clockz.Clock

	mu                  sync.Mutex
	status              Status
	errorCount          int64
	successCount        int64
	totalRequests       int64
	rejectedCount       int64
	consecutiveFailures int
	avgResponse         time.Duration
	lastError           string
	lastCheckedAt       time.Time
	uptimeStartedAt     time.Time
}

// New creates a boundary for the given service.
func New(config Config) (*Boundary, error) {
	if config.Service == "" {
		return nil, ErrServiceRequired
	}

	// Apply defaults
	if config.Thresholds == (Thresholds{}) {
		config.Thresholds = DefaultThresholds()
	}
	if config.Instrumentation == nil {
		config.Instrumentation = observe.NewNoopInstrumentation()
	}
	if config.Reporter == nil {
		config.Reporter = observe.NewErrorReporter(config.Instrumentation.Logger)
	}
	if config.Clock == nil {
		config.Clock = clockz.RealClock
	}
	if config.Breaker.Clock == nil {
		config.Breaker.Clock = config.Clock
	}

	b := &Boundary{
		service:         config.Service,
		breaker:         resilience.NewCircuitBreaker(config.Breaker),
		limiter:         config.Limiter,
		timeout:         config.Timeout,
		thresholds:      config.Thresholds,
		healthFn:        config.HealthCheck,
		reporter:        config.Reporter,
		inst:            config.Instrumentation,
		clock:           config.Clock,
		status:          StatusHealthy,
		uptimeStartedAt: config.Clock.Now(),
	}
	if config.Retry != nil {
		rc := *config.Retry
		if rc.Clock == nil {
			rc.Clock = config.Clock
		}
		b.retry = resilience.NewRetry(rc)
	}
	return b, nil
}

// CallOption customizes a single guarded call.
type CallOption[T any] func(*callConfig[T])

type callConfig[T any] struct {
	timeout    time.Duration
	hasTimeout bool
	fallback   func(context.Context) (T, error)
}

// WithTimeout overrides the boundary's default time limit for this call.
func WithTimeout[T any](d time.Duration) CallOption[T] {
	return func(c *callConfig[T]) {
		c.timeout = d
		c.hasTimeout = true
	}
}

// WithFallback supplies an alternative producer used when the call is
// rejected or ultimately fails. A failing fallback is reported and
// swallowed.
func WithFallback[T any](fb func(context.Context) (T, error)) CallOption[T] {
	return func(c *callConfig[T]) {
		c.fallback = fb
	}
}

// Execute runs op through the boundary and returns its result. ok is
// false when the call was rejected or failed and no fallback answered;
// Execute itself never returns an error. The caller should treat a
// not-ok result as "service unavailable".
func Execute[T any](ctx context.Context, b *Boundary, operation string, op func(context.Context) (T, error), opts ...CallOption[T]) (result T, ok bool) {
	var cfg callConfig[T]
	for _, opt := range opts {
		opt(&cfg)
	}
	timeout := b.timeout
	if cfg.hasTimeout {
		timeout = cfg.timeout
	}

	meta := observe.ServiceMeta{Service: b.service, Operation: operation}

	// Breaker admission. A rejection never invokes the operation and
	// never touches the success or error counters.
	if !b.breaker.CanExecute() {
		b.recordRejection(ctx, meta, "circuit_open")
		b.report(ctx, resilience.ErrCircuitOpen, meta, 0, KindRejected)
		return runFallback(ctx, b, meta, cfg.fallback)
	}

	if b.limiter != nil {
		if err := b.limiter.Acquire(ctx); err != nil {
			// Caller gave up while waiting for a slot. The operation
			// never ran, so this is accounted as a rejection.
			b.recordRejection(ctx, meta, "rate_limit_wait")
			b.report(ctx, err, meta, 0, KindRejected)
			return result, false
		}
	}

	b.mu.Lock()
	b.totalRequests++
	b.mu.Unlock()

	callCtx, span := b.inst.Tracer.StartCall(ctx, meta)
	start := b.clock.Now()

	err := b.invoke(callCtx, timeout, func(ctx context.Context) error {
		r, opErr := op(ctx)
		if opErr == nil {
			result = r
		}
		return opErr
	})
	elapsed := b.clock.Now().Sub(start)
	b.inst.Metrics.RecordCall(ctx, meta, elapsed, err)

	if err == nil {
		b.recordSuccess(elapsed)
		b.inst.Tracer.EndCall(span, nil, "success")
		return result, true
	}

	b.recordFailure(err)
	b.inst.Tracer.EndCall(span, err, Classify(err).String())
	b.report(ctx, err, meta, elapsed, Classify(err))

	return runFallback(ctx, b, meta, cfg.fallback)
}

// Do is the error-only form of Execute for operations without a result.
// It reports whether the call (or its fallback) completed.
func (b *Boundary) Do(ctx context.Context, operation string, op func(context.Context) error, opts ...CallOption[struct{}]) bool {
	_, ok := Execute(ctx, b, operation, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	}, opts...)
	return ok
}

// invoke wraps the operation with the per-attempt timeout and, when
// configured, the retry policy.
func (b *Boundary) invoke(ctx context.Context, timeout time.Duration, op func(context.Context) error) error {
	wrapped := op
	if timeout > 0 {
		inner := op
		wrapped = func(ctx context.Context) error {
			return resilience.ExecuteWithTimeout(ctx, timeout, inner)
		}
	}
	if b.retry != nil {
		return b.retry.Execute(ctx, wrapped)
	}
	return wrapped(ctx)
}

func runFallback[T any](ctx context.Context, b *Boundary, meta observe.ServiceMeta, fb func(context.Context) (T, error)) (T, bool) {
	var zero T
	if fb == nil {
		return zero, false
	}

	r, err := fb(ctx)
	if err != nil {
		b.report(ctx, err, meta, 0, KindFallback)
		return zero, false
	}
	b.inst.Metrics.RecordFallback(ctx, meta)
	return r, true
}

func (b *Boundary) recordRejection(ctx context.Context, meta observe.ServiceMeta, reason string) {
	b.mu.Lock()
	b.rejectedCount++
	b.mu.Unlock()
	b.inst.Metrics.RecordRejection(ctx, meta, reason)
}

func (b *Boundary) recordSuccess(elapsed time.Duration) {
	b.breaker.RecordSuccess()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.successCount++
	b.consecutiveFailures = 0
	b.avgResponse = (b.avgResponse*time.Duration(b.successCount-1) + elapsed) / time.Duration(b.successCount)
	b.status = b.thresholds.afterSuccess(b.errorRateLocked())
}

func (b *Boundary) recordFailure(err error) {
	b.breaker.RecordFailure()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.errorCount++
	b.consecutiveFailures++
	b.lastError = err.Error()
	b.status = b.thresholds.afterFailure(b.consecutiveFailures, b.errorRateLocked())
}

func (b *Boundary) errorRateLocked() float64 {
	if b.totalRequests == 0 {
		return 0
	}
	return float64(b.errorCount) / float64(b.totalRequests) * 100
}

// report delivers a failure to the reporter. Reporter panics are
// swallowed so they never reach the guarded caller.
func (b *Boundary) report(ctx context.Context, err error, meta observe.ServiceMeta, elapsed time.Duration, kind FailureKind) {
	defer func() {
		_ = recover()
	}()

	b.reporter.Report(ctx, err, map[string]any{
		"service":    meta.Service,
		"operation":  meta.Operation,
		"kind":       kind.String(),
		"elapsed_ms": elapsed.Milliseconds(),
	})
}

// Service returns the protected service's name.
func (b *Boundary) Service() string {
	return b.service
}

// BreakerState returns the circuit breaker's current state.
func (b *Boundary) BreakerState() resilience.State {
	return b.breaker.State()
}

// Metrics returns a snapshot of the service's health accounting.
func (b *Boundary) Metrics() HealthMetrics {
	b.mu.Lock()
	defer b.mu.Unlock()

	return HealthMetrics{
		Service:             b.service,
		Status:              b.status,
		ErrorCount:          b.errorCount,
		SuccessCount:        b.successCount,
		TotalRequests:       b.totalRequests,
		RejectedCount:       b.rejectedCount,
		ConsecutiveFailures: b.consecutiveFailures,
		AvgResponseTime:     b.avgResponse,
		LastError:           b.lastError,
		LastCheckedAt:       b.lastCheckedAt,
		UptimeStartedAt:     b.uptimeStartedAt,
	}
}

// IsHealthy reports whether the service is usable (healthy or degraded).
func (b *Boundary) IsHealthy() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status == StatusHealthy || b.status == StatusDegraded
}

// CheckHealth runs the boundary's liveness predicate and stamps the
// check time. The default predicate requires consecutive failures below
// the unhealthy band, an error rate below the unhealthy band, and a
// breaker that is not open.
func (b *Boundary) CheckHealth() bool {
	m := b.Metrics()

	b.mu.Lock()
	b.lastCheckedAt = b.clock.Now()
	b.mu.Unlock()

	if b.healthFn != nil {
		return b.healthFn(m)
	}
	return m.ConsecutiveFailures < b.thresholds.UnhealthyFailures &&
		m.ErrorRate() < b.thresholds.UnhealthyErrorPct &&
		b.breaker.State() != resilience.StateOpen
}

// Reset clears the breaker and all health accounting. Intended for
// explicit operator action only.
func (b *Boundary) Reset() {
	b.breaker.Reset()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.status = StatusHealthy
	b.errorCount = 0
	b.successCount = 0
	b.totalRequests = 0
	b.rejectedCount = 0
	b.consecutiveFailures = 0
	b.avgResponse = 0
	b.lastError = ""
	b.uptimeStartedAt = b.clock.Now()
}
