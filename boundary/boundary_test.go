package boundary

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonwraymond/guardrail/resilience"
)

var errBoom = errors.New("boom")

// captureReporter records every reported failure for assertions.
type captureReporter struct {
	mu      sync.Mutex
	reports []capturedReport
}

type capturedReport struct {
	err      error
	metadata map[string]any
}

func (r *captureReporter) Report(ctx context.Context, err error, metadata map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, capturedReport{err: err, metadata: metadata})
}

func (r *captureReporter) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]string, len(r.reports))
	for i, rep := range r.reports {
		kinds[i], _ = rep.metadata["kind"].(string)
	}
	return kinds
}

func newTestBoundary(t *testing.T, config Config) *Boundary {
	t.Helper()
	if config.Service == "" {
		config.Service = "test-service"
	}
	b, err := New(config)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return b
}

func TestNewRequiresService(t *testing.T) {
	if _, err := New(Config{}); !errors.Is(err, ErrServiceRequired) {
		t.Errorf("New() error = %v, want ErrServiceRequired", err)
	}
}

func TestExecuteSuccess(t *testing.T) {
	b := newTestBoundary(t, Config{})

	got, ok := Execute(context.Background(), b, "fetch", func(ctx context.Context) (string, error) {
		return "value", nil
	})
	if !ok || got != "value" {
		t.Fatalf("Execute() = %q, %v, want \"value\", true", got, ok)
	}

	m := b.Metrics()
	if m.TotalRequests != 1 || m.SuccessCount != 1 || m.ErrorCount != 0 {
		t.Errorf("metrics = %+v", m)
	}
	if m.Status != StatusHealthy {
		t.Errorf("status = %v, want healthy", m.Status)
	}
}

func TestExecuteFailureReturnsNotOK(t *testing.T) {
	rep := &captureReporter{}
	b := newTestBoundary(t, Config{Reporter: rep})

	got, ok := Execute(context.Background(), b, "fetch", func(ctx context.Context) (string, error) {
		return "", errBoom
	})
	if ok || got != "" {
		t.Fatalf("Execute() = %q, %v, want zero, false", got, ok)
	}

	m := b.Metrics()
	if m.ErrorCount != 1 || m.SuccessCount != 0 || m.TotalRequests != 1 {
		t.Errorf("metrics = %+v", m)
	}
	if m.ConsecutiveFailures != 1 || m.Status != StatusDegraded {
		t.Errorf("consecutiveFailures = %d, status = %v", m.ConsecutiveFailures, m.Status)
	}
	if m.LastError != "boom" {
		t.Errorf("lastError = %q", m.LastError)
	}

	if kinds := rep.kinds(); len(kinds) != 1 || kinds[0] != "operation" {
		t.Errorf("reported kinds = %v", kinds)
	}
}

func TestFallbackSemantics(t *testing.T) {
	b := newTestBoundary(t, Config{})

	got, ok := Execute(context.Background(), b, "fetch",
		func(ctx context.Context) (string, error) { return "", errBoom },
		WithFallback(func(ctx context.Context) (string, error) { return "X", nil }))
	if !ok || got != "X" {
		t.Fatalf("Execute() = %q, %v, want \"X\", true", got, ok)
	}

	m := b.Metrics()
	if m.ErrorCount != 1 || m.SuccessCount != 0 {
		t.Errorf("exactly one failure and zero successes expected, got %+v", m)
	}
}

func TestFallbackFailureIsSwallowed(t *testing.T) {
	rep := &captureReporter{}
	b := newTestBoundary(t, Config{Reporter: rep})

	got, ok := Execute(context.Background(), b, "fetch",
		func(ctx context.Context) (string, error) { return "", errBoom },
		WithFallback(func(ctx context.Context) (string, error) { return "", errors.New("fallback down") }))
	if ok || got != "" {
		t.Fatalf("Execute() = %q, %v, want zero, false", got, ok)
	}

	kinds := rep.kinds()
	if len(kinds) != 2 || kinds[0] != "operation" || kinds[1] != "fallback" {
		t.Errorf("reported kinds = %v", kinds)
	}
}

func TestRejectionDoesNotCorruptMetrics(t *testing.T) {
	b := newTestBoundary(t, Config{
		Breaker: resilience.CircuitBreakerConfig{FailureThreshold: 1, RecoveryTimeout: time.Hour},
	})

	Execute(context.Background(), b, "fetch", func(ctx context.Context) (string, error) {
		return "", errBoom
	})
	if b.BreakerState() != resilience.StateOpen {
		t.Fatalf("breaker state = %v, want open", b.BreakerState())
	}
	before := b.Metrics()

	invoked := 0
	fallbacks := 0
	for i := 0; i < 5; i++ {
		_, ok := Execute(context.Background(), b, "fetch",
			func(ctx context.Context) (string, error) {
				invoked++
				return "", errBoom
			},
			WithFallback(func(ctx context.Context) (string, error) {
				fallbacks++
				return "cached", nil
			}))
		if !ok {
			t.Fatalf("rejected call %d did not use fallback", i)
		}
	}

	if invoked != 0 {
		t.Errorf("operation invoked %d times while breaker open", invoked)
	}
	if fallbacks != 5 {
		t.Errorf("fallback invoked %d times, want 5", fallbacks)
	}

	after := b.Metrics()
	if after.TotalRequests != before.TotalRequests ||
		after.ErrorCount != before.ErrorCount ||
		after.SuccessCount != before.SuccessCount {
		t.Errorf("rejections changed call counters: before %+v after %+v", before, after)
	}
	if after.RejectedCount != before.RejectedCount+5 {
		t.Errorf("rejectedCount = %d, want %d", after.RejectedCount, before.RejectedCount+5)
	}
}

func TestAccountingInvariant(t *testing.T) {
	b := newTestBoundary(t, Config{
		Breaker: resilience.CircuitBreakerConfig{FailureThreshold: 100},
	})

	for i := 0; i < 20; i++ {
		fail := i%3 == 0
		Execute(context.Background(), b, "op", func(ctx context.Context) (int, error) {
			if fail {
				return 0, errBoom
			}
			return i, nil
		})

		m := b.Metrics()
		if m.ErrorCount+m.SuccessCount != m.TotalRequests {
			t.Fatalf("invariant broken after call %d: %+v", i, m)
		}
	}
}

func TestEndToEndBreakerScenario(t *testing.T) {
	b := newTestBoundary(t, Config{
		Breaker: resilience.CircuitBreakerConfig{
			FailureThreshold: 2,
			RecoveryTimeout:  20 * time.Millisecond,
			SuccessThreshold: 1,
		},
	})

	fail := func(ctx context.Context) (string, error) { return "", errBoom }
	succeed := func(ctx context.Context) (string, error) { return "ok", nil }

	Execute(context.Background(), b, "op", fail)
	Execute(context.Background(), b, "op", fail)
	if b.BreakerState() != resilience.StateOpen {
		t.Fatalf("breaker state = %v after threshold failures, want open", b.BreakerState())
	}

	// Third call is rejected without invoking the operation.
	invoked := false
	if _, ok := Execute(context.Background(), b, "op", func(ctx context.Context) (string, error) {
		invoked = true
		return "", errBoom
	}); ok || invoked {
		t.Fatal("open breaker admitted a call")
	}

	time.Sleep(30 * time.Millisecond)

	if got, ok := Execute(context.Background(), b, "op", succeed); !ok || got != "ok" {
		t.Fatalf("recovery call = %q, %v", got, ok)
	}
	if b.BreakerState() != resilience.StateClosed {
		t.Fatalf("breaker state = %v after recovery, want closed", b.BreakerState())
	}

	// Failure counting restarts from zero.
	Execute(context.Background(), b, "op", fail)
	if b.BreakerState() != resilience.StateClosed {
		t.Errorf("single failure after recovery reopened the breaker")
	}
}

func TestTimeoutIsDistinguished(t *testing.T) {
	rep := &captureReporter{}
	b := newTestBoundary(t, Config{Reporter: rep})

	_, ok := Execute(context.Background(), b, "slow",
		func(ctx context.Context) (string, error) {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Second):
				return "late", nil
			}
		},
		WithTimeout[string](10*time.Millisecond))
	if ok {
		t.Fatal("timed-out call reported ok")
	}

	if kinds := rep.kinds(); len(kinds) != 1 || kinds[0] != "timeout" {
		t.Errorf("reported kinds = %v, want [timeout]", rep.kinds())
	}

	m := b.Metrics()
	if m.ErrorCount != 1 {
		t.Errorf("timeout not recorded as failure: %+v", m)
	}
}

func TestRetryInsideBoundary(t *testing.T) {
	b := newTestBoundary(t, Config{
		Retry: &resilience.RetryConfig{
			MaxAttempts:  3,
			InitialDelay: time.Millisecond,
		},
	})

	attempts := 0
	got, ok := Execute(context.Background(), b, "flaky", func(ctx context.Context) (string, error) {
		attempts++
		if attempts < 3 {
			return "", errBoom
		}
		return "eventually", nil
	})
	if !ok || got != "eventually" {
		t.Fatalf("Execute() = %q, %v", got, ok)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}

	// The breaker and metrics see one outcome per boundary call.
	m := b.Metrics()
	if m.TotalRequests != 1 || m.SuccessCount != 1 || m.ErrorCount != 0 {
		t.Errorf("metrics = %+v", m)
	}
}

func TestLimiterIsWired(t *testing.T) {
	limiter := resilience.NewSlidingWindow(resilience.SlidingWindowConfig{
		MaxCalls: 1,
		Window:   20 * time.Millisecond,
	})
	b := newTestBoundary(t, Config{Limiter: limiter})

	op := func(ctx context.Context) (int, error) { return 1, nil }

	start := time.Now()
	if _, ok := Execute(context.Background(), b, "op", op); !ok {
		t.Fatal("first call failed")
	}
	if _, ok := Execute(context.Background(), b, "op", op); !ok {
		t.Fatal("second call failed")
	}
	if elapsed := time.Since(start); elapsed < 15*time.Millisecond {
		t.Errorf("second call was not throttled: elapsed %v", elapsed)
	}
}

func TestReporterPanicDoesNotPropagate(t *testing.T) {
	b := newTestBoundary(t, Config{Reporter: panickyReporter{}})

	_, ok := Execute(context.Background(), b, "op", func(ctx context.Context) (string, error) {
		return "", errBoom
	})
	if ok {
		t.Error("failed call reported ok")
	}
}

type panickyReporter struct{}

func (panickyReporter) Report(ctx context.Context, err error, metadata map[string]any) {
	panic("reporter down")
}

func TestAverageResponseTime(t *testing.T) {
	b := newTestBoundary(t, Config{})

	for i := 0; i < 3; i++ {
		Execute(context.Background(), b, "op", func(ctx context.Context) (int, error) {
			time.Sleep(2 * time.Millisecond)
			return i, nil
		})
	}

	if avg := b.Metrics().AvgResponseTime; avg <= 0 {
		t.Errorf("AvgResponseTime = %v, want > 0", avg)
	}
}

func TestReset(t *testing.T) {
	b := newTestBoundary(t, Config{
		Breaker: resilience.CircuitBreakerConfig{FailureThreshold: 1, RecoveryTimeout: time.Hour},
	})

	Execute(context.Background(), b, "op", func(ctx context.Context) (string, error) {
		return "", errBoom
	})
	if b.BreakerState() != resilience.StateOpen {
		t.Fatal("expected open breaker")
	}

	b.Reset()

	if b.BreakerState() != resilience.StateClosed {
		t.Errorf("breaker state after reset = %v", b.BreakerState())
	}
	m := b.Metrics()
	if m.TotalRequests != 0 || m.ErrorCount != 0 || m.Status != StatusHealthy {
		t.Errorf("metrics after reset = %+v", m)
	}
}

func TestWrap(t *testing.T) {
	b := newTestBoundary(t, Config{})

	calls := 0
	fetch := Wrap(b, "fetch", func(ctx context.Context) (int, error) {
		calls++
		return 42, nil
	})

	got, ok := fetch(context.Background())
	if !ok || got != 42 || calls != 1 {
		t.Errorf("wrapped call = %d, %v (calls=%d)", got, ok, calls)
	}
	if b.Metrics().TotalRequests != 1 {
		t.Errorf("wrapped call not routed through boundary")
	}
}

func TestDo(t *testing.T) {
	b := newTestBoundary(t, Config{})

	if ok := b.Do(context.Background(), "ping", func(ctx context.Context) error {
		return nil
	}); !ok {
		t.Error("Do() = false for succeeding op")
	}
	if ok := b.Do(context.Background(), "ping", func(ctx context.Context) error {
		return errBoom
	}); ok {
		t.Error("Do() = true for failing op")
	}

	m := b.Metrics()
	if m.TotalRequests != 2 || m.SuccessCount != 1 || m.ErrorCount != 1 {
		t.Errorf("metrics = %+v", m)
	}
}

func TestConcurrentCallsKeepInvariant(t *testing.T) {
	b := newTestBoundary(t, Config{
		Breaker: resilience.CircuitBreakerConfig{FailureThreshold: 1000},
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			Execute(context.Background(), b, "op", func(ctx context.Context) (int, error) {
				if i%2 == 0 {
					return 0, errBoom
				}
				return i, nil
			})
		}(i)
	}
	wg.Wait()

	m := b.Metrics()
	if m.TotalRequests != 50 {
		t.Errorf("totalRequests = %d, want 50", m.TotalRequests)
	}
	if m.ErrorCount+m.SuccessCount != m.TotalRequests {
		t.Errorf("invariant broken: %+v", m)
	}
}
