package supervise

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zoobzio/clockz"

	"github.com/jonwraymond/guardrail/observe"
)

// Status represents the lifecycle state of a tracked task.
type Status int

const (
	// StatusRunning means the task has not yet finished.
	StatusRunning Status = iota
	// StatusCompleted means the task finished without error.
	StatusCompleted
	// StatusFailed means the task returned an error or timed out.
	StatusFailed
	// StatusCancelled means the task was cancelled.
	StatusCancelled
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Config configures the supervisor.
type Config struct {
	// Logger receives task lifecycle events.
	// Default: no-op logger.
	Logger observe.Logger

	// Clock is the time source for timeouts and start stamps.
	// Default: clockz.RealClock.
	Clock clockz.Clock
}

// Supervisor tracks concurrently running background tasks by ID.
//
// Each submission runs in its own goroutine under a cancellable context.
// Failures and cancellations are delivered only to that task's awaiter;
// they never affect other tracked tasks. Terminal tasks are removed from
// the active set once awaited, bounding memory.
type Supervisor struct {
	logger observe.Logger
	clock  clockz.Clock

	mu     sync.Mutex
	tasks  map[string]*task
	closed bool
}

type task struct {
	id        string
	name      string
	startedAt time.Time
	cancel    context.CancelFunc
	done      chan struct{}

	// Guarded by Supervisor.mu.
	status    Status
	err       error
	cancelled bool
}

// SubmitOption configures a submission.
type SubmitOption func(*submitConfig)

type submitConfig struct {
	name    string
	timeout time.Duration
}

// WithName attaches a human-readable name to the task.
func WithName(name string) SubmitOption {
	return func(c *submitConfig) {
		c.name = name
	}
}

// WithTimeout cancels the task if it runs longer than the given duration.
// The awaiter receives a timeout-kind error.
func WithTimeout(timeout time.Duration) SubmitOption {
	return func(c *submitConfig) {
		c.timeout = timeout
	}
}

// New creates a new supervisor.
func New(config Config) *Supervisor {
	// Apply defaults
	if config.Logger == nil {
		config.Logger = observe.NewNoopLogger()
	}
	if config.Clock == nil {
		config.Clock = clockz.RealClock
	}

	return &Supervisor{
		logger: config.Logger,
		clock:  config.Clock,
		tasks:  make(map[string]*task),
	}
}

// Submit starts the work in a supervised goroutine and returns its ID.
func (s *Supervisor) Submit(ctx context.Context, work func(context.Context) error, opts ...SubmitOption) (string, error) {
	var cfg submitConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	taskCtx, cancel := context.WithCancel(ctx)
	t := &task{
		id:        uuid.NewString(),
		name:      cfg.name,
		startedAt: s.clock.Now(),
		cancel:    cancel,
		done:      make(chan struct{}),
		status:    StatusRunning,
	}
	if t.name == "" {
		t.name = t.id
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		cancel()
		return "", ErrSupervisorClosed
	}
	s.tasks[t.id] = t
	s.mu.Unlock()

	go s.run(taskCtx, t, work, cfg.timeout)

	return t.id, nil
}

func (s *Supervisor) run(ctx context.Context, t *task, work func(context.Context) error, timeout time.Duration) {
	result := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				result <- fmt.Errorf("supervise: task %s panicked: %v", t.name, r)
			}
		}()
		result <- work(ctx)
	}()

	var err error
	if timeout > 0 {
		select {
		case err = <-result:
		case <-s.clock.After(timeout):
			t.cancel()
			err = fmt.Errorf("supervise: task %s timed out after %v: %w", t.name, timeout, ErrTaskTimeout)
		}
	} else {
		err = <-result
	}

	s.finish(t, err)
}

func (s *Supervisor) finish(t *task, err error) {
	s.mu.Lock()
	t.err = err
	switch {
	case err == nil:
		t.status = StatusCompleted
	case t.cancelled || errors.Is(err, context.Canceled):
		t.status = StatusCancelled
	default:
		t.status = StatusFailed
	}
	status := t.status
	s.mu.Unlock()

	close(t.done)

	if err != nil && status == StatusFailed {
		s.logger.Warn(context.Background(), "supervised task failed",
			observe.Field{Key: "task", Value: t.name},
			observe.Field{Key: "error", Value: err.Error()})
	}
}

// Await blocks until the task finishes and returns its error, removing
// the task from the active set. Awaiting an unknown (or already observed)
// ID returns ErrTaskNotFound.
func (s *Supervisor) Await(ctx context.Context, id string) error {
	s.mu.Lock()
	t, ok := s.tasks[id]
	s.mu.Unlock()
	if !ok {
		return ErrTaskNotFound
	}

	select {
	case <-t.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.mu.Lock()
	delete(s.tasks, id)
	err := t.err
	s.mu.Unlock()

	return err
}

// Cancel requests cooperative cancellation of the task.
// Returns false if the task is unknown or already terminal.
func (s *Supervisor) Cancel(id string) bool {
	s.mu.Lock()
	t, ok := s.tasks[id]
	if !ok || t.status != StatusRunning {
		s.mu.Unlock()
		return false
	}
	t.cancelled = true
	s.mu.Unlock()

	t.cancel()
	return true
}

// CancelAll requests cancellation of every running task.
func (s *Supervisor) CancelAll() {
	s.mu.Lock()
	var running []*task
	for _, t := range s.tasks {
		if t.status == StatusRunning {
			t.cancelled = true
			running = append(running, t)
		}
	}
	s.mu.Unlock()

	for _, t := range running {
		t.cancel()
	}
}

// Status returns the task's current status.
func (s *Supervisor) Status(id string) (Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return 0, false
	}
	return t.status, true
}

// Tasks returns a snapshot of all tracked tasks.
func (s *Supervisor) Tasks() []TaskInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]TaskInfo, 0, len(s.tasks))
	for _, t := range s.tasks {
		infos = append(infos, TaskInfo{
			ID:        t.id,
			Name:      t.name,
			StartedAt: t.startedAt,
			Status:    t.status,
		})
	}
	return infos
}

// Shutdown cancels all tasks, waits for them to finish, and rejects
// further submissions. Cancellation errors are suppressed; the context
// bounds the wait.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	all := make([]*task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if t.status == StatusRunning {
			t.cancelled = true
		}
		all = append(all, t)
	}
	s.tasks = make(map[string]*task)
	s.mu.Unlock()

	for _, t := range all {
		t.cancel()
	}

	for _, t := range all {
		select {
		case <-t.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// TaskInfo describes a tracked task.
type TaskInfo struct {
	ID        string
	Name      string
	StartedAt time.Time
	Status    Status
}
