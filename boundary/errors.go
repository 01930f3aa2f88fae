package boundary

import (
	"errors"

	"github.com/jonwraymond/guardrail/resilience"
)

// ErrServiceRequired is returned when a boundary is built without a service name.
var ErrServiceRequired = errors.New("boundary: service name is required")

// FailureKind classifies how a guarded call failed.
type FailureKind int

const (
	// KindOperation means the wrapped operation returned an error.
	KindOperation FailureKind = iota
	// KindTimeout means the operation exceeded its time limit.
	KindTimeout
	// KindRejected means the breaker refused the call before it ran.
	KindRejected
	// KindFallback means the fallback itself failed.
	KindFallback
)

// String returns the string representation of the kind.
func (k FailureKind) String() string {
	switch k {
	case KindOperation:
		return "operation"
	case KindTimeout:
		return "timeout"
	case KindRejected:
		return "rejected"
	case KindFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// Classify maps an error to its failure kind. The kind is attached once,
// here, rather than inspected ad hoc at every call site.
func Classify(err error) FailureKind {
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		return KindRejected
	case errors.Is(err, resilience.ErrTimeout):
		return KindTimeout
	default:
		return KindOperation
	}
}
