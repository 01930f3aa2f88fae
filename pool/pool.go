package pool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zoobzio/clockz"

	"github.com/jonwraymond/guardrail/observe"
)

// Factory creates a new pooled handle.
type Factory[T any] func(ctx context.Context) (T, error)

// Config configures the pool.
type Config[T any] struct {
	// MaxSize is the maximum number of handles that may exist at once,
	// idle and in use combined.
	// Default: 10
	MaxSize int

	// Factory creates new handles. Required.
	Factory Factory[T]

	// HealthCheck validates a handle on release. A non-nil error destroys
	// the handle instead of returning it to the pool.
	// Default: no check.
	HealthCheck func(ctx context.Context, handle T) error

	// Destroy disposes of a handle. Errors are logged, not propagated.
	// Default: no-op.
	Destroy func(handle T) error

	// Logger receives destroy and health-check failures.
	// Default: no-op logger.
	Logger observe.Logger

	// Clock is the time source for handle creation stamps.
	// Default: clockz.RealClock.
	Clock clockz.Clock
}

// Resource is a pooled handle with its bookkeeping.
// The pool owns idle resources; the caller owns a resource only between
// Acquire and Release.
type Resource[T any] struct {
	// Value is the underlying handle.
	Value T

	// CreatedAt is when the handle was created.
	CreatedAt time.Time

	inUse bool
}

// Pool is a bounded pool of reusable handles.
//
// Handles are created lazily up to MaxSize; beyond that, Acquire blocks
// until a handle is released. Each handle is given to exactly one
// acquirer at a time; no ordering is guaranteed among waiters.
type Pool[T any] struct {
	config Config[T]
	clock  clockz.Clock
	logger observe.Logger

	sem  chan struct{}
	done chan struct{}

	mu      sync.Mutex
	idle    []*Resource[T]
	inUse   map[*Resource[T]]struct{}
	created int
	closed  bool
}

// New creates a new pool.
func New[T any](config Config[T]) (*Pool[T], error) {
	if config.Factory == nil {
		return nil, ErrNilFactory
	}
	// Apply defaults
	if config.MaxSize <= 0 {
		config.MaxSize = 10
	}
	if config.Logger == nil {
		config.Logger = observe.NewNoopLogger()
	}
	if config.Clock == nil {
		config.Clock = clockz.RealClock
	}

	return &Pool[T]{
		config: config,
		clock:  config.Clock,
		logger: config.Logger,
		sem:    make(chan struct{}, config.MaxSize),
		done:   make(chan struct{}),
		inUse:  make(map[*Resource[T]]struct{}),
	}, nil
}

// Acquire returns a handle, reusing an idle one, creating a new one below
// MaxSize, or blocking until a release frees capacity.
func (p *Pool[T]) Acquire(ctx context.Context) (*Resource[T], error) {
	// Fast path: try non-blocking capacity acquire
	select {
	case p.sem <- struct{}{}:
	default:
		select {
		case p.sem <- struct{}{}:
		case <-p.done:
			return nil, ErrPoolClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.sem
		return nil, ErrPoolClosed
	}

	if n := len(p.idle); n > 0 {
		res := p.idle[n-1]
		p.idle = p.idle[:n-1]
		res.inUse = true
		p.inUse[res] = struct{}{}
		p.mu.Unlock()
		return res, nil
	}

	p.created++
	p.mu.Unlock()

	handle, err := p.config.Factory(ctx)
	if err != nil {
		p.mu.Lock()
		p.created--
		p.mu.Unlock()
		<-p.sem
		return nil, fmt.Errorf("pool: create handle: %w", err)
	}

	res := &Resource[T]{
		Value:     handle,
		CreatedAt: p.clock.Now(),
		inUse:     true,
	}

	p.mu.Lock()
	if p.closed {
		p.created--
		p.mu.Unlock()
		p.destroy(res)
		<-p.sem
		return nil, ErrPoolClosed
	}
	p.inUse[res] = struct{}{}
	p.mu.Unlock()

	return res, nil
}

// Release returns a handle to the pool.
//
// When a health check is configured and fails, the handle is destroyed
// and the failure logged; the pool's capacity is freed either way.
func (p *Pool[T]) Release(ctx context.Context, res *Resource[T]) {
	if res == nil {
		return
	}

	healthy := true
	if p.config.HealthCheck != nil {
		if err := p.config.HealthCheck(ctx, res.Value); err != nil {
			healthy = false
			p.logger.Warn(ctx, "pooled handle failed health check",
				observe.Field{Key: "error", Value: err.Error()})
		}
	}

	p.mu.Lock()
	if _, tracked := p.inUse[res]; !tracked {
		// Already destroyed by Shutdown, or double release.
		p.mu.Unlock()
		return
	}
	delete(p.inUse, res)
	res.inUse = false

	if p.closed || !healthy {
		p.created--
		p.mu.Unlock()
		p.destroy(res)
	} else {
		p.idle = append(p.idle, res)
		p.mu.Unlock()
	}

	<-p.sem
}

// Execute acquires a handle, runs the operation, and releases the handle.
func (p *Pool[T]) Execute(ctx context.Context, op func(ctx context.Context, handle T) error) error {
	res, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer p.Release(ctx, res)

	return op(ctx, res.Value)
}

// Shutdown destroys all idle and tracked in-use handles and rejects
// further acquires. Blocked acquirers are released with ErrPoolClosed.
func (p *Pool[T]) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true

	victims := make([]*Resource[T], 0, len(p.idle)+len(p.inUse))
	victims = append(victims, p.idle...)
	p.idle = nil
	for res := range p.inUse {
		victims = append(victims, res)
	}
	p.inUse = make(map[*Resource[T]]struct{})
	p.created -= len(victims)
	p.mu.Unlock()

	close(p.done)

	for _, res := range victims {
		p.destroy(res)
	}
	return nil
}

// Metrics returns current pool statistics.
func (p *Pool[T]) Metrics() Metrics {
	p.mu.Lock()
	defer p.mu.Unlock()

	return Metrics{
		Created: p.created,
		Idle:    len(p.idle),
		InUse:   len(p.inUse),
		MaxSize: p.config.MaxSize,
	}
}

func (p *Pool[T]) destroy(res *Resource[T]) {
	if p.config.Destroy == nil {
		return
	}
	if err := p.config.Destroy(res.Value); err != nil {
		p.logger.Warn(context.Background(), "destroying pooled handle failed",
			observe.Field{Key: "error", Value: err.Error()})
	}
}

// Metrics contains pool statistics.
type Metrics struct {
	Created int
	Idle    int
	InUse   int
	MaxSize int
}
