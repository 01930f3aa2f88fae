package resilience

import (
	"context"
	"fmt"
	"time"
)

// TimeoutError reports an operation that exceeded its configured duration.
// It unwraps to ErrTimeout so callers can match with errors.Is.
type TimeoutError struct {
	// Timeout is the configured limit.
	Timeout time.Duration
	// Elapsed is how long the operation ran before being abandoned.
	Elapsed time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("resilience: operation timed out after %v (limit %v)", e.Elapsed, e.Timeout)
}

func (e *TimeoutError) Unwrap() error {
	return ErrTimeout
}

// TimeoutConfig configures the timeout wrapper.
type TimeoutConfig struct {
	// Timeout is the maximum duration for the operation.
	// Default: 30 seconds
	Timeout time.Duration
}

// Timeout wraps operations with a timeout.
type Timeout struct {
	config TimeoutConfig
}

// NewTimeout creates a new timeout wrapper.
func NewTimeout(config TimeoutConfig) *Timeout {
	// Apply defaults
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	return &Timeout{config: config}
}

// Execute runs the operation with a timeout.
//
// On expiry the operation's context is cancelled and a *TimeoutError is
// returned; the operation goroutine is expected to observe the
// cancellation and unwind on its own.
func (t *Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, t.config.Timeout)
	defer cancel()

	done := make(chan error, 1)

	go func() {
		done <- op(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return &TimeoutError{Timeout: t.config.Timeout, Elapsed: time.Since(start)}
		}
		return ctx.Err()
	}
}

// Config returns the timeout configuration.
func (t *Timeout) Config() TimeoutConfig {
	return t.config
}

// ExecuteWithTimeout is a convenience function to run an operation with timeout.
func ExecuteWithTimeout(ctx context.Context, timeout time.Duration, op func(context.Context) error) error {
	t := NewTimeout(TimeoutConfig{Timeout: timeout})
	return t.Execute(ctx, op)
}
