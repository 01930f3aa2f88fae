package health

import "errors"

var (
	// ErrCheckFailed indicates a health check failed.
	ErrCheckFailed = errors.New("health: check failed")

	// ErrCheckTimeout indicates a health check timed out.
	ErrCheckTimeout = errors.New("health: check timeout")

	// ErrServiceNotFound indicates a service is not registered.
	ErrServiceNotFound = errors.New("health: service not found")

	// ErrServiceNameRequired indicates a registration without a name.
	ErrServiceNameRequired = errors.New("health: service name is required")
)
