package observe

import "context"

// ErrorReporter forwards errors with structured metadata to a Logger.
type ErrorReporter struct {
	logger Logger
}

// NewErrorReporter creates a reporter backed by the given logger.
func NewErrorReporter(logger Logger) *ErrorReporter {
	if logger == nil {
		logger = NewNoopLogger()
	}
	return &ErrorReporter{logger: logger}
}

// Report logs the error together with its metadata.
func (r *ErrorReporter) Report(ctx context.Context, err error, metadata map[string]any) {
	if err == nil {
		return
	}

	fields := make([]Field, 0, len(metadata)+1)
	fields = append(fields, Field{Key: "error", Value: err.Error()})
	for k, v := range metadata {
		fields = append(fields, Field{Key: k, Value: v})
	}

	r.logger.Error(ctx, "guarded call failed", fields...)
}
