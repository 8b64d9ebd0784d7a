// Package worker runs locality-bucket formation jobs on a fixed pool of
// goroutines. Buckets are independent, so workers never coordinate beyond
// taking jobs off the shared queue.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/perchsocial/cohort-engine/internal/adapters/mq/queue"
	"github.com/perchsocial/cohort-engine/internal/domain/formation"
	"github.com/perchsocial/cohort-engine/pkg/logger"
	"github.com/perchsocial/cohort-engine/pkg/metrics"
)

// Default worker configuration constants.
const (
	workerShutdownTimeout = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// Queue defines how workers receive bucket jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// BucketWorker processes bucket jobs until stopped.
type BucketWorker struct {
	queue Queue
	name  string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewBucketWorker creates a worker with configuration options.
func NewBucketWorker(q Queue, opts ...Option) *BucketWorker {
	w := &BucketWorker{
		queue:    q,
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

// Run starts the worker loop until ctx is canceled or the queue closes.
func (w *BucketWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			w.processJob(ctx, job)
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *BucketWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processJob forms one bucket and answers on the job's result channel.
func (w *BucketWorker) processJob(ctx context.Context, job queue.Job) {
	start := time.Now()
	res := formation.Form(job.City, job.Members, job.Scorer, job.Guard, job.Week, job.Params)
	latency := float64(time.Since(start).Milliseconds())

	metrics.RecordBucketProcessed(string(res.State), latency)
	metrics.RecordPairsScored(res.ScoredPairs)
	metrics.RecordPairsBlocked(res.BlockedPairs)

	w.logger.Debug(ctx, "bucket formed",
		logger.String("batchID", job.BatchID),
		logger.String("city", job.City),
		logger.String("state", string(res.State)),
		logger.Int("groups", len(res.Groups)),
		logger.Int("unplaced", len(res.Unplaced)),
	)

	select {
	case job.Result <- res:
	case <-ctx.Done():
		w.logger.Warn(ctx, "result delivery canceled",
			logger.String("batchID", job.BatchID),
			logger.String("city", job.City),
		)
	}
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*BucketWorker
	queue   Queue

	logger logger.Logger
}

// NewPool creates a worker pool. A non-positive count defaults to the
// number of CPUs.
func NewPool(workerCount int, q Queue) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers: make([]*BucketWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewBucketWorker(q, WithName("worker-"+strconv.Itoa(i)))
	}

	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Stop signals all workers and waits briefly for each to finish.
func (p *Pool) Stop() {
	for _, w := range p.workers {
		close(w.shutdown)
	}
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-time.After(workerShutdownTimeout):
		}
	}
}

// Shutdown closes the queue and waits for all workers to drain.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
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
	return nil
}
