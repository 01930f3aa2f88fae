package boundary

import "context"

// Wrap returns a function with the same shape as fn whose every call is
// routed through the boundary. The wrapped form reports availability
// instead of an error.
func Wrap[T any](b *Boundary, operation string, fn func(context.Context) (T, error), opts ...CallOption[T]) func(context.Context) (T, bool) {
	return func(ctx context.Context) (T, bool) {
		return Execute(ctx, b, operation, fn, opts...)
	}
}
