package extract

import (
	"context"
	"time"
)

// TextExtractor is Stage 1: document bytes -> text.
// Implementations never fail: unreadable input yields an empty Result.
type TextExtractor interface {
	Extract(ctx context.Context, content []byte) Result
}

type Result struct {
	Text     string
	Pages    int
	Method   string // "pdf-text" | "pdftotext" | "pdf-ocr"
	Duration time.Duration
	Warnings []string
}

// Empty reports whether no usable text was extracted.
func (r Result) Empty() bool { return r.Text == "" }
