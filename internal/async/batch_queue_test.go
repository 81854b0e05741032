package async

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/efris-reports/internal/common"
	"github.com/joseph-ayodele/efris-reports/internal/pipeline"
)

type recordingIngester struct {
	mu      sync.Mutex
	order   []uuid.UUID
	running atomic.Int32
	maxSeen atomic.Int32
	delay   time.Duration
	release chan struct{}
}

func (r *recordingIngester) Ingest(_ context.Context, ictx *pipeline.IngestContext, items []pipeline.Item, onProgress func(float64)) (pipeline.Result, error) {
	n := r.running.Add(1)
	defer r.running.Add(-1)
	for {
		m := r.maxSeen.Load()
		if n <= m || r.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	if r.release != nil {
		<-r.release
	}
	time.Sleep(r.delay)

	r.mu.Lock()
	r.order = append(r.order, ictx.BatchID)
	r.mu.Unlock()
	if onProgress != nil {
		onProgress(1)
	}
	return pipeline.Result{BatchID: ictx.BatchID, Inserted: len(items)}, nil
}

func TestBatchQueue_SubmitReturnsResult(t *testing.T) {
	ing := &recordingIngester{}
	q := NewBatchQueue(ing, nil, nil)
	defer q.Shutdown(context.Background())

	id := uuid.New()
	var progressed bool
	res, err := q.Submit(context.Background(), Job{
		ID:         id,
		Items:      []pipeline.Item{{Name: "a.pdf"}, {Name: "b.pdf"}},
		Defaults:   common.DefaultIngestDefaults(),
		OnProgress: func(float64) { progressed = true },
	})

	require.NoError(t, err)
	assert.Equal(t, id, res.BatchID)
	assert.Equal(t, 2, res.Inserted)
	assert.True(t, progressed)
}

func TestBatchQueue_OneBatchAtATime(t *testing.T) {
	ing := &recordingIngester{delay: 5 * time.Millisecond}
	q := NewBatchQueue(ing, nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := q.Submit(context.Background(), Job{Items: []pipeline.Item{{Name: "x.pdf"}}})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	q.Shutdown(context.Background())

	assert.EqualValues(t, 1, ing.maxSeen.Load())
	assert.Len(t, ing.order, 8)
}

func TestBatchQueue_EnqueueOrder(t *testing.T) {
	ing := &recordingIngester{}
	q := NewBatchQueue(ing, nil, nil)

	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for _, id := range ids {
		require.NoError(t, q.Enqueue(context.Background(), Job{ID: id}))
	}
	q.Shutdown(context.Background())

	assert.Equal(t, ids, ing.order)
}

func TestBatchQueue_ClosedQueue(t *testing.T) {
	q := NewBatchQueue(&recordingIngester{}, nil, nil)
	q.Shutdown(context.Background())
	q.Shutdown(context.Background())

	assert.ErrorIs(t, q.Enqueue(context.Background(), Job{}), ErrQueueClosed)
	_, err := q.Submit(context.Background(), Job{})
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestBatchQueue_SubmitStopsWaitingOnContext(t *testing.T) {
	ing := &recordingIngester{release: make(chan struct{})}
	q := NewBatchQueue(ing, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := q.Submit(ctx, Job{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(ing.release)
	q.Shutdown(context.Background())
	assert.Len(t, ing.order, 1, "abandoned batch still runs")
}

type ctxIngester struct {
	deadline bool
	err      error
	delay    time.Duration
}

func (c *ctxIngester) Ingest(ctx context.Context, ictx *pipeline.IngestContext, _ []pipeline.Item, _ func(float64)) (pipeline.Result, error) {
	time.Sleep(c.delay)
	_, c.deadline = ctx.Deadline()
	c.err = ctx.Err()
	return pipeline.Result{BatchID: ictx.BatchID}, nil
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestBatchQueue_SlowBatchRunsToCompletion(t *testing.T) {
	var out syncBuffer
	logger := slog.New(slog.NewTextHandler(&out, nil))
	ing := &ctxIngester{delay: 50 * time.Millisecond}
	q := NewBatchQueue(ing, nil, logger, WithSlowBatchWarning(time.Millisecond))

	_, err := q.Submit(context.Background(), Job{Items: []pipeline.Item{{Name: "a.pdf"}}})
	require.NoError(t, err)
	q.Shutdown(context.Background())

	assert.False(t, ing.deadline, "batch context has no deadline")
	assert.NoError(t, ing.err)
	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), "batch still running")
	}, time.Second, 5*time.Millisecond)
}
