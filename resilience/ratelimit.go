package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/zoobzio/clockz"
)

// SlidingWindowConfig configures the sliding window rate limiter.
type SlidingWindowConfig struct {
	// MaxCalls is the number of calls allowed within the window.
	// Default: 10
	MaxCalls int

	// Window is the trailing time interval the limit applies to.
	// Default: 1 second
	Window time.Duration

	// Clock is the time source. Default: clockz.RealClock.
	Clock clockz.Clock
}

// SlidingWindow is a sliding window rate limiter.
//
// It admits a call when fewer than MaxCalls timestamps fall within the
// trailing Window. Acquire suspends the caller until a slot frees instead
// of rejecting. A single mutex guards the timestamp list, so the limiter
// is safe for concurrent callers.
type SlidingWindow struct {
	config SlidingWindowConfig
	clock  clockz.Clock

	mu     sync.Mutex
	stamps []time.Time
}

// NewSlidingWindow creates a new sliding window rate limiter.
func NewSlidingWindow(config SlidingWindowConfig) *SlidingWindow {
	// Apply defaults
	if config.MaxCalls <= 0 {
		config.MaxCalls = 10
	}
	if config.Window <= 0 {
		config.Window = time.Second
	}
	if config.Clock == nil {
		config.Clock = clockz.RealClock
	}

	return &SlidingWindow{
		config: config,
		clock:  config.Clock,
		stamps: make([]time.Time, 0, config.MaxCalls),
	}
}

// TryAcquire attempts to take a slot without blocking.
func (sw *SlidingWindow) TryAcquire() bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := sw.clock.Now()
	sw.purgeLocked(now)

	if len(sw.stamps) < sw.config.MaxCalls {
		sw.stamps = append(sw.stamps, now)
		return true
	}
	return false
}

// Acquire blocks until a slot is available or the context is cancelled.
func (sw *SlidingWindow) Acquire(ctx context.Context) error {
	for {
		sw.mu.Lock()
		now := sw.clock.Now()
		sw.purgeLocked(now)

		if len(sw.stamps) < sw.config.MaxCalls {
			sw.stamps = append(sw.stamps, now)
			sw.mu.Unlock()
			return nil
		}

		// Oldest in-window timestamp expires first; sleep until it leaves
		// the window, then re-check under the lock.
		wait := sw.config.Window - now.Sub(sw.stamps[0])
		sw.mu.Unlock()

		if wait <= 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-sw.clock.After(wait):
		}
	}
}

// Execute acquires a slot then runs the operation.
func (sw *SlidingWindow) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := sw.Acquire(ctx); err != nil {
		return err
	}
	return op(ctx)
}

// InWindow returns the number of calls currently inside the window.
func (sw *SlidingWindow) InWindow() int {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.purgeLocked(sw.clock.Now())
	return len(sw.stamps)
}

func (sw *SlidingWindow) purgeLocked(now time.Time) {
	cutoff := now.Add(-sw.config.Window)
	i := 0
	for i < len(sw.stamps) && !sw.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		sw.stamps = append(sw.stamps[:0], sw.stamps[i:]...)
	}
}
