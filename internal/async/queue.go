package async

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/efris-reports/internal/entity"
	"github.com/joseph-ayodele/efris-reports/internal/pipeline"
)

// ErrQueueClosed is returned by Enqueue and Submit after Shutdown.
var ErrQueueClosed = errors.New("queue is shutting down")

// Job is one ingestion batch waiting for the store writer.
type Job struct {
	ID          uuid.UUID
	Items       []pipeline.Item
	Defaults    entity.Defaults
	Source      string // "grpc", "watch", ...
	SubmittedAt time.Time
	OnProgress  func(float64)

	done chan Outcome
}

// Outcome is what a finished job reports back to Submit.
type Outcome struct {
	Result pipeline.Result
	Err    error
}

type Queue interface {
	// Enqueue hands the job over and returns without waiting for it.
	Enqueue(ctx context.Context, job Job) error
	// Submit enqueues the job and waits for its outcome.
	Submit(ctx context.Context, job Job) (pipeline.Result, error)
	Shutdown(ctx context.Context)
}
