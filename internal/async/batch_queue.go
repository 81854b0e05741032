package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/efris-reports/internal/common"
	"github.com/joseph-ayodele/efris-reports/internal/pipeline"
	"github.com/joseph-ayodele/efris-reports/internal/repository"
)

// Ingester is the part of pipeline.Pipeline the queue drives.
type Ingester interface {
	Ingest(ctx context.Context, ictx *pipeline.IngestContext, items []pipeline.Item, onProgress func(float64)) (pipeline.Result, error)
}

var _ Queue = (*BatchQueue)(nil)

// BatchQueue runs ingestion batches one at a time on a single worker, so
// the store only ever sees one writer.
type BatchQueue struct {
	ing    Ingester
	store  repository.ReportRepository
	logger *slog.Logger
	slow   time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*BatchQueue)

func WithQueueSize(n int) Option {
	return func(q *BatchQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

// WithSlowBatchWarning logs a warning once a batch has run longer than d.
// The batch itself is never cut short.
func WithSlowBatchWarning(d time.Duration) Option {
	return func(q *BatchQueue) {
		if d > 0 {
			q.slow = d
		}
	}
}

func NewBatchQueue(ing Ingester, store repository.ReportRepository, logger *slog.Logger, opts ...Option) *BatchQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &BatchQueue{
		ing:    ing,
		store:  store,
		logger: logger,
		slow:   10 * time.Minute,
		ch:     make(chan Job, 32),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *BatchQueue) start() {
	q.once.Do(func() {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			q.logger.Info("batch worker started")
			for job := range q.ch {
				q.run(job)
			}
			q.logger.Info("batch worker stopped")
		}()
	})
}

func (q *BatchQueue) run(job Job) {
	// A started batch always runs to its commit; there is no deadline.
	ctx := common.WithBatchID(context.Background(), job.ID.String())
	started := time.Now()
	slow := time.AfterFunc(q.slow, func() {
		q.logger.Warn("batch still running", "batch_id", job.ID, "source", job.Source,
			"items", len(job.Items), "elapsed_ms", time.Since(started).Milliseconds())
	})
	defer slow.Stop()

	ictx := &pipeline.IngestContext{Store: q.store, Defaults: job.Defaults, BatchID: job.ID}
	res, err := q.ing.Ingest(ctx, ictx, job.Items, job.OnProgress)
	if err != nil {
		q.logger.Error("batch failed", "batch_id", job.ID, "source", job.Source, "error", err)
	} else {
		q.logger.Info("batch processed",
			"batch_id", job.ID,
			"source", job.Source,
			"inserted", res.Inserted,
			"skipped", res.Skipped,
			"waited_ms", time.Since(job.SubmittedAt).Milliseconds(),
		)
	}
	if job.done != nil {
		job.done <- Outcome{Result: res, Err: err}
	}
}

func (q *BatchQueue) Enqueue(ctx context.Context, job Job) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "batch_id", job.ID)
		return ErrQueueClosed
	}
	select {
	case q.ch <- job:
		q.logger.Info("queued batch", "batch_id", job.ID, "items", len(job.Items), "source", job.Source)
		return nil
	default:
	}
	q.logger.Warn("queue full, applying backpressure", "batch_id", job.ID)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit waits for the batch to finish. If ctx ends first the batch still
// runs to completion; only the wait is abandoned.
func (q *BatchQueue) Submit(ctx context.Context, job Job) (pipeline.Result, error) {
	done := make(chan Outcome, 1)
	job.done = done
	if err := q.Enqueue(ctx, job); err != nil {
		return pipeline.Result{}, err
	}
	select {
	case out := <-done:
		return out.Result, out.Err
	case <-ctx.Done():
		return pipeline.Result{}, ctx.Err()
	}
}

func (q *BatchQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
