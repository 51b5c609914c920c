// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultWorkerInterval is the queue poll interval when none is configured.
const DefaultWorkerInterval = 2 * time.Second

// purgeInterval is how often the worker sweeps expired terminal tasks.
const purgeInterval = time.Hour

// Worker drains the task queue in the background. Without a worker,
// tasks only run when a client calls the process-next endpoint.
type Worker struct {
	manager   *TaskManager
	interval  time.Duration
	retention time.Duration
	logger    *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// WorkerOption configures the worker.
type WorkerOption func(*Worker)

// WithTaskRetention makes the worker periodically delete terminal tasks
// older than d. Zero keeps tasks forever.
func WithTaskRetention(d time.Duration) WorkerOption {
	return func(w *Worker) {
		w.retention = d
	}
}

// NewWorker creates a worker polling at the given interval.
func NewWorker(manager *TaskManager, interval time.Duration, opts ...WorkerOption) *Worker {
	if interval <= 0 {
		interval = DefaultWorkerInterval
	}
	w := &Worker{
		manager:  manager,
		interval: interval,
		logger:   slog.Default().With("component", "worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start launches the background loop. Call Stop to drain and halt.
func (w *Worker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.run(ctx)
	w.logger.InfoContext(ctx, "worker started", "interval", w.interval)
}

// Stop halts the loop and waits for the in-flight task to finish.
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	w.logger.Info("worker stopped")
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	var purgeC <-chan time.Time
	if w.retention > 0 {
		purger := time.NewTicker(purgeInterval)
		defer purger.Stop()
		purgeC = purger.C
		w.purge(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.drain(ctx)
		case <-purgeC:
			w.purge(ctx)
		}
	}
}

// purge sweeps terminal tasks past the retention window.
func (w *Worker) purge(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-w.retention)
	removed, err := w.manager.PurgeTasks(ctx, cutoff)
	if err != nil {
		w.logger.ErrorContext(ctx, "purge tasks", "error", err)
		return
	}
	if removed > 0 {
		w.logger.InfoContext(ctx, "purged expired tasks", "count", removed)
	}
}

// drain processes tasks until the queue is empty or the context ends.
func (w *Worker) drain(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		task, err := w.manager.ProcessNext(ctx)
		if err != nil {
			w.logger.ErrorContext(ctx, "process next", "error", err)
			return
		}
		if task == nil {
			return
		}
	}
}
