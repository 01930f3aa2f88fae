package supervise

import "errors"

var (
	// ErrTaskNotFound indicates the task ID is unknown or already observed.
	ErrTaskNotFound = errors.New("supervise: task not found")

	// ErrTaskTimeout indicates a task exceeded its configured timeout.
	ErrTaskTimeout = errors.New("supervise: task timed out")

	// ErrSupervisorClosed is returned when submitting to a shut-down supervisor.
	ErrSupervisorClosed = errors.New("supervise: supervisor is closed")
)
