package server

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/efris-reports/internal/async"
	"github.com/joseph-ayodele/efris-reports/internal/entity"
	"github.com/joseph-ayodele/efris-reports/internal/ingest"
)

// WatchFeeder turns drop-folder batches into queued ingestion jobs.
type WatchFeeder struct {
	collector ingest.Collector
	queue     async.Queue
	defaults  entity.Defaults
	logger    *slog.Logger
}

func NewWatchFeeder(col ingest.Collector, q async.Queue, defaults entity.Defaults, logger *slog.Logger) *WatchFeeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &WatchFeeder{collector: col, queue: q, defaults: defaults, logger: logger}
}

// Run reads batches until both channels close or ctx is done. Each batch
// becomes one job; jobs are not awaited.
func (f *WatchFeeder) Run(ctx context.Context, batches <-chan []string, errs <-chan error) {
	for batches != nil || errs != nil {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			f.logger.Warn("watcher error", "error", err)
		case paths, ok := <-batches:
			if !ok {
				batches = nil
				continue
			}
			f.feed(ctx, paths)
		}
	}
}

func (f *WatchFeeder) feed(ctx context.Context, paths []string) {
	col, err := f.collector.Collect(ctx, paths, true)
	if err != nil {
		f.logger.Error("watch batch collect failed", "paths", len(paths), "error", err)
		return
	}
	if len(col.Items) == 0 {
		return
	}
	job := async.Job{
		Items:    col.Items,
		Defaults: f.defaults,
		Source:   "watch",
		OnProgress: func(p float64) {
			f.logger.Debug("watch batch progress", "progress", p)
		},
	}
	if err := f.queue.Enqueue(ctx, job); err != nil {
		f.logger.Error("watch batch not queued", "items", len(col.Items), "error", err)
	}
}
