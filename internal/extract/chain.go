package extract

import (
	"context"
	"time"
)

var _ TextExtractor = Chain(nil)

// Chain tries each extractor in order and returns the first non-empty result.
// Warnings from earlier attempts are carried over.
type Chain []TextExtractor

func (c Chain) Extract(ctx context.Context, content []byte) Result {
	start := time.Now()
	var last Result
	var warns []string
	for _, x := range c {
		if x == nil {
			continue
		}
		last = x.Extract(ctx, content)
		warns = append(warns, last.Warnings...)
		if !last.Empty() {
			break
		}
	}
	last.Warnings = warns
	last.Duration = time.Since(start)
	return last
}
