// Package worker defines worker contracts for asynchronous provider sync.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/irakobi/wildlife-conservation-backend/internal/adapters/kobo"
	"github.com/irakobi/wildlife-conservation-backend/internal/adapters/mq/queue"
	"github.com/irakobi/wildlife-conservation-backend/internal/domain/model"
	"github.com/irakobi/wildlife-conservation-backend/pkg/logger"
	"github.com/irakobi/wildlife-conservation-backend/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerCount    = 4
	maxWorkerCount        = 64
	workerShutdownTimeout = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// Task aliases the queue payload for convenience.
type Task = queue.Task

// Pusher sends a submission payload to the form provider.
type Pusher interface {
	SubmitData(ctx context.Context, uid string, data map[string]any) (*kobo.SubmitResult, error)
}

// Store is the slice of the repository workers need to load a pending
// submission and record the sync outcome.
type Store interface {
	Get(ctx context.Context, id string) (*model.Submission, error)
	MarkSynced(ctx context.Context, id, providerID string) error
	MarkSyncFailed(ctx context.Context, id, syncErr string) error
}

// Queue defines how workers receive tasks.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Task
}

// Worker drains sync tasks and pushes submissions to the provider.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	// It will process any remaining tasks before stopping.
	Shutdown(ctx context.Context) error
}

// SyncWorker implements Worker for pushing submissions to the provider.
type SyncWorker struct {
	queue  Queue
	pusher Pusher
	store  Store
	name   string

	// Shutdown control
	shutdown chan struct{}
	done     chan struct{}

	// Logging
	logger logger.Logger
}

// NewSyncWorker creates a new worker with configuration options.
func NewSyncWorker(queue Queue, pusher Pusher, store Store, opts ...Option) *SyncWorker {
	w := &SyncWorker{
		queue:    queue,
		pusher:   pusher,
		store:    store,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *SyncWorker) Run(ctx context.Context) {
	defer close(w.done)

	taskChan := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case task, ok := <-taskChan:
			if !ok {
				// Channel closed, worker should stop
				return
			}

			if err := w.processTask(ctx, task); err != nil {
				w.logger.Error(ctx, "error processing sync task", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *SyncWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processTask pushes one submission to the provider and records the outcome.
func (w *SyncWorker) processTask(ctx context.Context, task Task) error {
	start := time.Now()
	defer func() {
		metrics.RecordSyncLatency(float64(time.Since(start).Milliseconds()))
	}()

	sub, err := w.store.Get(ctx, task.SubmissionID)
	if err != nil {
		metrics.RecordSyncFailure()
		w.logger.Error(ctx, "submission not loadable for sync",
			logger.String("submissionID", task.SubmissionID),
			logger.Error(err),
		)
		return fmt.Errorf("load submission %s: %w", task.SubmissionID, err)
	}
	if sub.SyncStatus == model.SyncSynced {
		return nil // already pushed, nothing to do
	}

	payload := sub.ParsedData
	if len(payload) == 0 {
		payload = sub.RawData
	}
	if sub.InstanceID != "" {
		// Carry the local instance identifier so the provider record
		// stays linked to this submission.
		withID := make(map[string]any, len(payload)+1)
		for k, v := range payload {
			withID[k] = v
		}
		withID["_uuid"] = sub.InstanceID
		payload = withID
	}

	result, err := w.pusher.SubmitData(ctx, sub.FormUID, payload)
	if err != nil {
		metrics.RecordSyncFailure()
		if markErr := w.store.MarkSyncFailed(ctx, sub.ID, err.Error()); markErr != nil {
			w.logger.Error(ctx, "recording sync failure failed",
				logger.String("submissionID", sub.ID),
				logger.Error(markErr),
			)
		}
		w.logger.Error(ctx, "provider push failed",
			logger.String("submissionID", sub.ID),
			logger.String("formUID", sub.FormUID),
			logger.Error(err),
		)
		return fmt.Errorf("push submission %s: %w", sub.ID, err)
	}

	providerID := strconv.Itoa(result.ID)
	if err := w.store.MarkSynced(ctx, sub.ID, providerID); err != nil {
		w.logger.Error(ctx, "recording sync success failed",
			logger.String("submissionID", sub.ID),
			logger.Error(err),
		)
		return fmt.Errorf("mark synced %s: %w", sub.ID, err)
	}

	metrics.RecordSyncSuccess()
	w.logger.Debug(ctx, "submission synced",
		logger.String("submissionID", sub.ID),
		logger.String("providerID", providerID),
	)
	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers []*SyncWorker
	queue   Queue
	pusher  Pusher
	store   Store

	// Shutdown control
	shutdown chan struct{}

	// Logging
	logger logger.Logger
}

// NewPool creates a new worker pool.
func NewPool(workerCount int, queue Queue, pusher Pusher, store Store) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
		if workerCount > defaultWorkerCount {
			workerCount = defaultWorkerCount
		}
	}
	if workerCount > maxWorkerCount {
		workerCount = maxWorkerCount
	}

	pool := &Pool{
		workers:  make([]*SyncWorker, workerCount),
		queue:    queue,
		pusher:   pusher,
		store:    store,
		shutdown: make(chan struct{}),
		logger:   logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewSyncWorker(
			queue,
			pusher,
			store,
			WithName("worker-"+strconv.Itoa(i)),
		)
	}

	metrics.UpdateSyncWorkerCount(workerCount)

	return pool
}

// Size returns the number of workers in the pool.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Stop gracefully stops all workers.
func (p *Pool) Stop() {
	close(p.shutdown)

	for _, w := range p.workers {
		close(w.shutdown)
	}
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-time.After(workerShutdownTimeout):
		}
	}
	metrics.UpdateSyncWorkerCount(0)
}

// Shutdown gracefully shuts down the entire worker pool.
func (p *Pool) Shutdown(ctx context.Context) error {
	// First close the queue to stop new tasks.
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	close(p.shutdown)
	for _, w := range p.workers {
		close(w.shutdown)
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}

	metrics.UpdateSyncWorkerCount(0)
	return nil
}
