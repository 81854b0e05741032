package ingest

import (
	"context"

	"github.com/joseph-ayodele/efris-reports/internal/pipeline"
)

// FileResult is the per-file collection outcome.
type FileResult struct {
	Path    string
	Size    int64
	HashHex string
	SameAs  string // earlier path with identical content, if any
	Err     string
}

// DirStats summarizes a collection run.
type DirStats struct {
	Scanned   uint32
	Matched   uint32
	Collected uint32
	Failed    uint32
}

// Collection is what Collect hands to the pipeline, in input order.
type Collection struct {
	Items []pipeline.Item
	Files []FileResult
	Stats DirStats
}

// Collector is the behavior the binaries depend on.
type Collector interface {
	// Collect reads every PDF named by paths (files or directories, walked
	// recursively in lexical order).
	Collect(ctx context.Context, paths []string, skipHidden bool) (Collection, error)
}
