package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tunepress/internal/config"
	"tunepress/internal/logging"
	"tunepress/internal/queue"
	"tunepress/internal/status"
)

// ErrClosed is returned by Submit once shutdown has begun.
var ErrClosed = errors.New("dispatcher closed")

// TaskRunner executes one task to a terminal state.
type TaskRunner interface {
	Run(ctx context.Context, task *queue.Task) error
}

// Dispatcher owns admission control: it pulls queued tasks from the store and
// runs them on worker goroutines, never exceeding the configured cap.
type Dispatcher struct {
	cfg    *config.Config
	store  *queue.Store
	sink   *status.Sink
	runner TaskRunner
	logger *slog.Logger

	mu     sync.Mutex
	active int
	closed bool

	wake     chan struct{}
	stop     chan struct{}
	loopDone chan struct{}
	workers  sync.WaitGroup
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the dispatcher logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logging.NewComponentLogger(logger, "dispatch")
		}
	}
}

// New builds a Dispatcher. The runner is typically a pipeline.Runner; tests
// substitute fakes.
func New(cfg *config.Config, store *queue.Store, sink *status.Sink, runner TaskRunner, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		cfg:      cfg,
		store:    store,
		sink:     sink,
		runner:   runner,
		logger:   logging.NewNop(),
		wake:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		loopDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start fails any tasks left over from a previous run and launches the
// scheduling loop. Task state never carries across restarts.
func (d *Dispatcher) Start(ctx context.Context) error {
	interrupted, err := d.store.FailInterrupted(ctx)
	if err != nil {
		return fmt.Errorf("fail interrupted tasks: %w", err)
	}
	if interrupted > 0 {
		d.logger.Warn("failed leftover tasks from previous run",
			logging.Args(logging.Int64("count", interrupted))...)
	}

	go d.loop(ctx)
	return nil
}

// Submit enqueues a new task and returns it. Submissions are rejected once
// shutdown has begun.
func (d *Dispatcher) Submit(ctx context.Context, link, outputDir string) (*queue.Task, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil, ErrClosed
	}
	d.mu.Unlock()

	task, err := d.store.Add(ctx, link, outputDir)
	if err != nil {
		return nil, err
	}
	d.sink.PublishStatus(task.Token, queue.StatusQueued)
	d.signalWake()
	return task, nil
}

// Active reports the number of workers currently running tasks.
func (d *Dispatcher) Active() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

// Drain blocks until no task is queued or running, or the context expires.
func (d *Dispatcher) Drain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		idle, err := d.idle(ctx)
		if err != nil {
			return err
		}
		if idle {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Shutdown stops admissions and waits for active workers to finish. Running
// tasks are never interrupted; the context bounds only how long Shutdown
// waits for them.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	alreadyClosed := d.closed
	d.closed = true
	d.mu.Unlock()

	if !alreadyClosed {
		close(d.stop)
	}
	<-d.loopDone

	done := make(chan struct{})
	go func() {
		d.workers.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown wait: %w", ctx.Err())
	}
}

func (d *Dispatcher) loop(ctx context.Context) {
	defer close(d.loopDone)

	interval := time.Duration(d.cfg.Workflow.QueuePollInterval) * time.Second
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		d.dispatchPending(ctx)
		select {
		case <-d.stop:
			return
		case <-ctx.Done():
			return
		case <-d.wake:
		case <-ticker.C:
		}
	}
}

// dispatchPending claims queued tasks while free slots remain.
func (d *Dispatcher) dispatchPending(ctx context.Context) {
	for {
		d.mu.Lock()
		if d.closed || d.active >= d.cfg.Workflow.MaxConcurrency {
			d.mu.Unlock()
			return
		}
		d.mu.Unlock()

		task, err := d.store.NextQueued(ctx)
		if err != nil {
			d.logger.Error("fetch next queued task", logging.Args(logging.Error(err))...)
			return
		}
		if task == nil {
			return
		}

		task.Status = queue.StatusDispatched
		if err := d.store.Update(ctx, task); err != nil {
			d.logger.Error("claim task", logging.Args(
				logging.String(logging.FieldTask, task.Token),
				logging.Error(err),
			)...)
			return
		}
		d.sink.PublishStatus(task.Token, queue.StatusDispatched)

		d.mu.Lock()
		d.active++
		d.mu.Unlock()
		d.workers.Add(1)

		// Workers outlive loop cancellation: shutdown waits for them rather
		// than killing their subprocesses mid-flight.
		go d.runWorker(context.WithoutCancel(ctx), task)
	}
}

func (d *Dispatcher) runWorker(ctx context.Context, task *queue.Task) {
	defer func() {
		d.mu.Lock()
		d.active--
		d.mu.Unlock()
		d.workers.Done()
		d.signalWake()
	}()

	logger := d.logger.With(logging.String(logging.FieldTask, task.Token))
	logger.Info("task dispatched", logging.Args(logging.String(logging.FieldLink, task.Link))...)
	if err := d.runner.Run(ctx, task); err != nil {
		logger.Warn("task ended in failure", logging.Args(logging.Error(err))...)
	}
}

func (d *Dispatcher) idle(ctx context.Context) (bool, error) {
	d.mu.Lock()
	active := d.active
	d.mu.Unlock()
	if active > 0 {
		return false, nil
	}

	pending, err := d.store.List(ctx,
		queue.StatusQueued,
		queue.StatusDispatched,
		queue.StatusDownloading,
		queue.StatusProcessing,
		queue.StatusFinalizing,
	)
	if err != nil {
		return false, fmt.Errorf("list pending tasks: %w", err)
	}
	return len(pending) == 0, nil
}

func (d *Dispatcher) signalWake() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}
