package boundary

import "context"

// Reporter receives every boundary and fallback failure with enough
// metadata (service, operation, kind, elapsed time) to distinguish
// rejection from failure from timeout. Reporter failures never propagate
// back to the guarded caller.
//
// observe.ErrorReporter satisfies this interface.
type Reporter interface {
	Report(ctx context.Context, err error, metadata map[string]any)
}

type noopReporter struct{}

// NewNoopReporter returns a reporter that discards everything.
func NewNoopReporter() Reporter {
	return noopReporter{}
}

func (noopReporter) Report(ctx context.Context, err error, metadata map[string]any) {}
