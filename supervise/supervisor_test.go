package supervise

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSubmitAndAwait(t *testing.T) {
	sup := New(Config{})
	defer sup.Shutdown(context.Background())

	id, err := sup.Submit(context.Background(), func(ctx context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if id == "" {
		t.Fatal("expected non-empty task ID")
	}

	if err := sup.Await(context.Background(), id); err != nil {
		t.Errorf("Await() error = %v", err)
	}

	// Awaited tasks are removed from the active set.
	if err := sup.Await(context.Background(), id); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("second Await() error = %v, want ErrTaskNotFound", err)
	}
}

func TestAwaitPropagatesFailure(t *testing.T) {
	sup := New(Config{})
	defer sup.Shutdown(context.Background())

	boom := errors.New("boom")
	id, err := sup.Submit(context.Background(), func(ctx context.Context) error {
		return boom
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if err := sup.Await(context.Background(), id); !errors.Is(err, boom) {
		t.Errorf("Await() error = %v, want %v", err, boom)
	}
}

func TestFailureIsolation(t *testing.T) {
	sup := New(Config{})
	defer sup.Shutdown(context.Background())

	failID, _ := sup.Submit(context.Background(), func(ctx context.Context) error {
		return errors.New("boom")
	})
	okID, _ := sup.Submit(context.Background(), func(ctx context.Context) error {
		return nil
	})

	if err := sup.Await(context.Background(), failID); err == nil {
		t.Error("expected failure from first task")
	}
	if err := sup.Await(context.Background(), okID); err != nil {
		t.Errorf("healthy task affected by sibling failure: %v", err)
	}
}

func TestCancel(t *testing.T) {
	sup := New(Config{})
	defer sup.Shutdown(context.Background())

	started := make(chan struct{})
	id, err := sup.Submit(context.Background(), func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	<-started

	if !sup.Cancel(id) {
		t.Fatal("Cancel() = false, want true")
	}

	if err := sup.Await(context.Background(), id); !errors.Is(err, context.Canceled) {
		t.Errorf("Await() error = %v, want context.Canceled", err)
	}

	// Unknown IDs cannot be cancelled.
	if sup.Cancel("no-such-task") {
		t.Error("Cancel() on unknown ID = true")
	}
}

func TestTimeout(t *testing.T) {
	sup := New(Config{})
	defer sup.Shutdown(context.Background())

	id, err := sup.Submit(context.Background(), func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
			return nil
		}
	}, WithTimeout(10*time.Millisecond))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	awaitErr := sup.Await(context.Background(), id)
	if !errors.Is(awaitErr, ErrTaskTimeout) {
		t.Errorf("Await() error = %v, want ErrTaskTimeout", awaitErr)
	}
}

func TestPanicBecomesFailure(t *testing.T) {
	sup := New(Config{})
	defer sup.Shutdown(context.Background())

	id, err := sup.Submit(context.Background(), func(ctx context.Context) error {
		panic("kaboom")
	}, WithName("panicky"))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	awaitErr := sup.Await(context.Background(), id)
	if awaitErr == nil {
		t.Fatal("expected error from panicking task")
	}
}

func TestStatusAndTasks(t *testing.T) {
	sup := New(Config{})
	defer sup.Shutdown(context.Background())

	release := make(chan struct{})
	id, err := sup.Submit(context.Background(), func(ctx context.Context) error {
		<-release
		return nil
	}, WithName("worker"))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	status, ok := sup.Status(id)
	if !ok || status != StatusRunning {
		t.Errorf("Status() = %v, %v, want running", status, ok)
	}

	infos := sup.Tasks()
	if len(infos) != 1 || infos[0].Name != "worker" {
		t.Errorf("Tasks() = %+v", infos)
	}

	close(release)
	if err := sup.Await(context.Background(), id); err != nil {
		t.Errorf("Await() error = %v", err)
	}

	if _, ok := sup.Status(id); ok {
		t.Error("Status() found task after Await removed it")
	}
}

func TestShutdown(t *testing.T) {
	sup := New(Config{})

	started := make(chan struct{})
	_, err := sup.Submit(context.Background(), func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	<-started

	if err := sup.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	// Further submissions are rejected.
	if _, err := sup.Submit(context.Background(), func(ctx context.Context) error {
		return nil
	}); !errors.Is(err, ErrSupervisorClosed) {
		t.Errorf("Submit() after Shutdown error = %v, want ErrSupervisorClosed", err)
	}

	// Shutdown is idempotent.
	if err := sup.Shutdown(context.Background()); err != nil {
		t.Errorf("second Shutdown() error = %v", err)
	}
}

func TestStatusString(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusRunning, "running"},
		{StatusCompleted, "completed"},
		{StatusFailed, "failed"},
		{StatusCancelled, "cancelled"},
		{Status(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("Status(%d).String() = %q, want %q", tt.status, got, tt.want)
		}
	}
}
