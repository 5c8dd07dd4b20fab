package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"tunepress/internal/config"
	"tunepress/internal/queue"
	"tunepress/internal/status"
	"tunepress/internal/testsupport"
)

// gateRunner blocks each task until released and tracks concurrency highs.
type gateRunner struct {
	store *queue.Store

	mu      sync.Mutex
	running int
	peak    int
	started chan struct{}
	gate    chan struct{}
}

func newGateRunner(store *queue.Store) *gateRunner {
	return &gateRunner{
		store:   store,
		started: make(chan struct{}, 64),
		gate:    make(chan struct{}),
	}
}

func (r *gateRunner) Run(ctx context.Context, task *queue.Task) error {
	r.mu.Lock()
	r.running++
	if r.running > r.peak {
		r.peak = r.running
	}
	r.mu.Unlock()
	r.started <- struct{}{}

	<-r.gate

	r.mu.Lock()
	r.running--
	r.mu.Unlock()

	task.Status = queue.StatusCompleted
	return r.store.Update(ctx, task)
}

func (r *gateRunner) release() {
	close(r.gate)
}

func (r *gateRunner) peakConcurrency() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.peak
}

func newDispatcher(t *testing.T, cfg *config.Config) (*Dispatcher, *queue.Store, *gateRunner) {
	t.Helper()

	store := testsupport.MustOpenStore(t, cfg)
	sink := status.NewSink(nil)
	t.Cleanup(sink.Close)
	runner := newGateRunner(store)
	return New(cfg, store, sink, runner), store, runner
}

func waitStarted(t *testing.T, runner *gateRunner, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-runner.started:
		case <-time.After(5 * time.Second):
			t.Fatalf("worker %d never started", i+1)
		}
	}
}

func TestDispatcherEnforcesConcurrencyCap(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMaxConcurrency(2))
	dispatcher, store, runner := newDispatcher(t, cfg)

	ctx := context.Background()
	if err := dispatcher.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := dispatcher.Submit(ctx, "https://example.com/1", "/music"); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	waitStarted(t, runner, 2)
	if active := dispatcher.Active(); active != 2 {
		t.Fatalf("active = %d, want 2", active)
	}

	queued, err := store.List(ctx, queue.StatusQueued)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(queued) != 1 {
		t.Fatalf("queued = %d, want 1 waiting behind the cap", len(queued))
	}

	runner.release()
	waitStarted(t, runner, 1)

	drainCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := dispatcher.Drain(drainCtx); err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if err := dispatcher.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	if peak := runner.peakConcurrency(); peak > 2 {
		t.Errorf("peak concurrency = %d, cap is 2", peak)
	}

	completed, err := store.List(ctx, queue.StatusCompleted)
	if err != nil {
		t.Fatalf("List completed: %v", err)
	}
	if len(completed) != 3 {
		t.Errorf("completed = %d, want 3", len(completed))
	}
}

func TestShutdownWaitsForActiveWorkers(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMaxConcurrency(1))
	dispatcher, store, runner := newDispatcher(t, cfg)

	ctx := context.Background()
	if err := dispatcher.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	task, err := dispatcher.Submit(ctx, "https://example.com/1", "/music")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitStarted(t, runner, 1)

	shutdownDone := make(chan error, 1)
	go func() {
		shutdownDone <- dispatcher.Shutdown(ctx)
	}()

	select {
	case err := <-shutdownDone:
		t.Fatalf("Shutdown returned %v while a worker was active", err)
	case <-time.After(100 * time.Millisecond):
	}

	runner.release()
	select {
	case err := <-shutdownDone:
		if err != nil {
			t.Fatalf("Shutdown: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Shutdown never returned after worker finished")
	}

	got, err := store.GetByToken(ctx, task.Token)
	if err != nil {
		t.Fatalf("GetByToken: %v", err)
	}
	if got.Status != queue.StatusCompleted {
		t.Errorf("status = %s, want completed", got.Status)
	}
}

func TestSubmitAfterShutdownRejected(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	dispatcher, _, _ := newDispatcher(t, cfg)

	ctx := context.Background()
	if err := dispatcher.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := dispatcher.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	if _, err := dispatcher.Submit(ctx, "https://example.com/1", "/music"); !errors.Is(err, ErrClosed) {
		t.Fatalf("Submit after shutdown = %v, want ErrClosed", err)
	}
}

func TestShutdownTimeoutSurfacesContextError(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMaxConcurrency(1))
	dispatcher, _, runner := newDispatcher(t, cfg)

	ctx := context.Background()
	if err := dispatcher.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := dispatcher.Submit(ctx, "https://example.com/1", "/music"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitStarted(t, runner, 1)

	shutdownCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if err := dispatcher.Shutdown(shutdownCtx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Shutdown = %v, want deadline exceeded", err)
	}

	runner.release()
	if err := dispatcher.Shutdown(ctx); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}
}

func TestStartFailsLeftoverTasks(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	leftover := testsupport.NewTask(t, store, "https://example.com/old", "/music")
	leftover.Status = queue.StatusProcessing
	if err := store.Update(ctx, leftover); err != nil {
		t.Fatalf("Update: %v", err)
	}

	sink := status.NewSink(nil)
	t.Cleanup(sink.Close)
	dispatcher := New(cfg, store, sink, newGateRunner(store))
	if err := dispatcher.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = dispatcher.Shutdown(ctx) })

	got, err := store.GetByToken(ctx, leftover.Token)
	if err != nil {
		t.Fatalf("GetByToken: %v", err)
	}
	if got.Status != queue.StatusFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
	if got.ErrorMessage != queue.InterruptedReason {
		t.Errorf("error = %q, want %q", got.ErrorMessage, queue.InterruptedReason)
	}
}
