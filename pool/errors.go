package pool

import "errors"

var (
	// ErrPoolClosed is returned when acquiring from a shut-down pool.
	ErrPoolClosed = errors.New("pool: pool is closed")

	// ErrNilFactory indicates a pool was configured without a factory.
	ErrNilFactory = errors.New("pool: factory is required")
)
