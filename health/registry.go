package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zoobzio/clockz"
	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/guardrail/boundary"
	"github.com/jonwraymond/guardrail/observe"
	"github.com/jonwraymond/guardrail/resilience"
	"github.com/jonwraymond/guardrail/supervise"
)

// RegistryConfig configures the health registry.
type RegistryConfig struct {
	// SweepInterval is how often the background sweep re-checks every
	// registered service. Default: 300 seconds.
	SweepInterval time.Duration

	// SweepParallelism bounds concurrent checks during a sweep.
	// Default: 8.
	SweepParallelism int

	// CheckTimeout bounds each process-level checker during a sweep or
	// report. Default: 10 seconds.
	CheckTimeout time.Duration

	// Instrumentation is shared with every boundary the registry creates.
	// Default: no-op.
	Instrumentation *observe.Instrumentation

	// Reporter is shared with every boundary the registry creates.
	Reporter boundary.Reporter

	// Supervisor runs the background sweep. Default: a private supervisor
	// owned (and shut down) by the registry.
	Supervisor *supervise.Supervisor

	// Clock is the time source. Default: clockz.RealClock.
	Clock clockz.Clock
}

// Registry is the central directory of service boundaries plus any
// process-level checkers. It produces aggregate reports and, once
// started, sweeps every entry on an interval, logging health transitions.
type Registry struct {
	config RegistryConfig
	logger observe.Logger
	clock  clockz.Clock
	sup    *supervise.Supervisor
	ownSup bool

	mu          sync.Mutex
	boundaries  map[string]*boundary.Boundary
	checkers    map[string]Checker
	lastHealthy map[string]bool
	sweepID     string
}

// NewRegistry creates a new health registry.
func NewRegistry(config RegistryConfig) *Registry {
	// Apply defaults
	if config.SweepInterval <= 0 {
		config.SweepInterval = 300 * time.Second
	}
	if config.SweepParallelism <= 0 {
		config.SweepParallelism = 8
	}
	if config.CheckTimeout <= 0 {
		config.CheckTimeout = 10 * time.Second
	}
	if config.Instrumentation == nil {
		config.Instrumentation = observe.NewNoopInstrumentation()
	}
	if config.Clock == nil {
		config.Clock = clockz.RealClock
	}

	r := &Registry{
		config:      config,
		logger:      config.Instrumentation.Logger,
		clock:       config.Clock,
		sup:         config.Supervisor,
		boundaries:  make(map[string]*boundary.Boundary),
		checkers:    make(map[string]Checker),
		lastHealthy: make(map[string]bool),
	}
	if r.sup == nil {
		r.sup = supervise.New(supervise.Config{
			Logger: config.Instrumentation.Logger,
			Clock:  config.Clock,
		})
		r.ownSup = true
	}
	return r
}

// RegisterOption customizes the boundary a registration creates.
type RegisterOption func(*boundary.Config)

// WithBreaker sets the circuit breaker configuration.
func WithBreaker(cfg resilience.CircuitBreakerConfig) RegisterOption {
	return func(c *boundary.Config) {
		c.Breaker = cfg
	}
}

// WithRetry sets the retry policy.
func WithRetry(cfg resilience.RetryConfig) RegisterOption {
	return func(c *boundary.Config) {
		c.Retry = &cfg
	}
}

// WithTimeout sets the default per-call time limit.
func WithTimeout(d time.Duration) RegisterOption {
	return func(c *boundary.Config) {
		c.Timeout = d
	}
}

// WithHealthCheck overrides the boundary's liveness predicate.
func WithHealthCheck(fn func(boundary.HealthMetrics) bool) RegisterOption {
	return func(c *boundary.Config) {
		c.HealthCheck = fn
	}
}

// RegisterService returns the boundary for the named service, creating it
// on first registration. Registration is idempotent: options are applied
// only when the boundary is created.
func (r *Registry) RegisterService(name string, opts ...RegisterOption) (*boundary.Boundary, error) {
	if name == "" {
		return nil, ErrServiceNameRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.boundaries[name]; ok {
		return b, nil
	}

	cfg := boundary.Config{
		Service:         name,
		Instrumentation: r.config.Instrumentation,
		Reporter:        r.config.Reporter,
		Clock:           r.clock,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.Service = name

	b, err := boundary.New(cfg)
	if err != nil {
		return nil, err
	}
	r.boundaries[name] = b
	r.lastHealthy[name] = true
	return b, nil
}

// Service returns the boundary for a registered service.
func (r *Registry) Service(name string) (*boundary.Boundary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.boundaries[name]
	if !ok {
		return nil, ErrServiceNotFound
	}
	return b, nil
}

// RegisterChecker adds a process-level checker to the registry.
func (r *Registry) RegisterChecker(c Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkers[c.Name()] = c
}

// ServiceNames returns the names of all registered services.
func (r *Registry) ServiceNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.boundaries))
	for name := range r.boundaries {
		names = append(names, name)
	}
	return names
}

// UnhealthyServices returns the services whose status is neither healthy
// nor degraded.
func (r *Registry) UnhealthyServices() []string {
	r.mu.Lock()
	boundaries := r.snapshotBoundariesLocked()
	r.mu.Unlock()

	var unhealthy []string
	for name, b := range boundaries {
		if !b.IsHealthy() {
			unhealthy = append(unhealthy, name)
		}
	}
	return unhealthy
}

func (r *Registry) snapshotBoundariesLocked() map[string]*boundary.Boundary {
	out := make(map[string]*boundary.Boundary, len(r.boundaries))
	for name, b := range r.boundaries {
		out[name] = b
	}
	return out
}

func (r *Registry) snapshotCheckersLocked() map[string]Checker {
	out := make(map[string]Checker, len(r.checkers))
	for name, c := range r.checkers {
		out[name] = c
	}
	return out
}

// Start launches the background sweep as a supervised task. It returns
// an error if the registry is already started or the supervisor is shut
// down.
func (r *Registry) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.sweepID != "" {
		r.mu.Unlock()
		return fmt.Errorf("health: registry already started")
	}
	r.mu.Unlock()

	id, err := r.sup.Submit(ctx, r.loop, supervise.WithName("health-sweep"))
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.sweepID = id
	r.mu.Unlock()
	return nil
}

func (r *Registry) loop(ctx context.Context) error {
	ticker := r.clock.NewTicker(r.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C():
			r.Sweep(ctx)
		}
	}
}

// Sweep checks every registered boundary and checker once, logging
// transitions between healthy and unhealthy. A failing or panicking
// check never aborts the sweep.
func (r *Registry) Sweep(ctx context.Context) {
	r.mu.Lock()
	boundaries := r.snapshotBoundariesLocked()
	checkers := r.snapshotCheckersLocked()
	r.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.SweepParallelism)

	for name, b := range boundaries {
		name, b := name, b
		g.Go(func() error {
			healthy := r.safeCheck(ctx, name, b)
			r.recordTransition(ctx, name, healthy)
			return nil
		})
	}

	for name, c := range checkers {
		name, c := name, c
		g.Go(func() error {
			result := r.runChecker(ctx, c)
			r.recordTransition(ctx, name, result.OK())
			return nil
		})
	}

	_ = g.Wait()
}

// safeCheck runs a boundary's liveness predicate, treating a panic in a
// custom predicate as unhealthy.
func (r *Registry) safeCheck(ctx context.Context, name string, b *boundary.Boundary) (healthy bool) {
	defer func() {
		if rec := recover(); rec != nil {
			healthy = false
			r.logger.Error(ctx, "health check panicked",
				observe.Field{Key: "service", Value: name},
				observe.Field{Key: "panic", Value: fmt.Sprint(rec)})
		}
	}()
	return b.CheckHealth()
}

// runChecker runs a process-level checker bounded by CheckTimeout.
func (r *Registry) runChecker(ctx context.Context, c Checker) Result {
	ctx, cancel := context.WithTimeout(ctx, r.config.CheckTimeout)
	defer cancel()

	start := r.clock.Now()
	resultCh := make(chan Result, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				resultCh <- Unhealthy(fmt.Sprintf("check panicked: %v", rec), ErrCheckFailed)
			}
		}()
		result := c.Check(ctx)
		result.Duration = r.clock.Now().Sub(start)
		if result.Timestamp.IsZero() {
			result.Timestamp = start
		}
		resultCh <- result
	}()

	select {
	case result := <-resultCh:
		return result
	case <-ctx.Done():
		return Result{
			Status:    boundary.StatusUnhealthy,
			Message:   "check timed out",
			Error:     ErrCheckTimeout,
			Duration:  r.clock.Now().Sub(start),
			Timestamp: start,
		}
	}
}

func (r *Registry) recordTransition(ctx context.Context, name string, healthy bool) {
	r.mu.Lock()
	was, seen := r.lastHealthy[name]
	r.lastHealthy[name] = healthy
	r.mu.Unlock()

	if seen && was == healthy {
		return
	}
	if healthy {
		if seen {
			r.logger.Info(ctx, "service recovered",
				observe.Field{Key: "service", Value: name})
		}
		return
	}
	r.logger.Warn(ctx, "service became unhealthy",
		observe.Field{Key: "service", Value: name})
}

// Shutdown stops the background sweep. When the registry owns its
// supervisor, the supervisor is shut down too.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	id := r.sweepID
	r.sweepID = ""
	r.mu.Unlock()

	if r.ownSup {
		return r.sup.Shutdown(ctx)
	}
	if id != "" {
		r.sup.Cancel(id)
		if err := r.sup.Await(ctx, id); err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}

// Wrap routes every call of fn through the named service's boundary,
// registering the service on first use.
func Wrap[T any](r *Registry, service, operation string, fn func(context.Context) (T, error), opts ...boundary.CallOption[T]) func(context.Context) (T, bool) {
	return func(ctx context.Context) (T, bool) {
		b, err := r.RegisterService(service)
		if err != nil {
			var zero T
			return zero, false
		}
		return boundary.Execute(ctx, b, operation, fn, opts...)
	}
}
