// Package supervise tracks concurrently running background tasks.
//
// A Supervisor runs each submitted unit of work in its own goroutine
// under a cancellable context and hands back an ID. Callers can await a
// task's result, cancel it cooperatively, or shut the whole supervisor
// down, which cancels everything and waits for completion.
//
//	sup := supervise.New(supervise.Config{})
//
//	id, err := sup.Submit(ctx, syncInventory,
//	    supervise.WithName("inventory-sync"),
//	    supervise.WithTimeout(time.Minute),
//	)
//
//	// Later:
//	if err := sup.Await(ctx, id); err != nil {
//	    // task failed, timed out, or was cancelled
//	}
//
// Failures are delivered only to the task's own awaiter. Terminal tasks
// are removed from the active set once awaited, so long-lived supervisors
// do not accumulate state.
package supervise
