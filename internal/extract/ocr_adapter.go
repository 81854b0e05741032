package extract

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/efris-reports/internal/ocr"
)

var _ TextExtractor = (*OCRAdapter)(nil)

// OCRAdapter exposes the command-line extractor as a TextExtractor.
type OCRAdapter struct {
	e       *ocr.Extractor
	timeout time.Duration
	logger  *slog.Logger
}

func NewOCRAdapter(e *ocr.Extractor, timeout time.Duration, logger *slog.Logger) *OCRAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &OCRAdapter{e: e, timeout: timeout, logger: logger}
}

func (a *OCRAdapter) Extract(ctx context.Context, content []byte) Result {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	r, err := a.e.Extract(ctx, content)
	res := Result{
		Text:     r.Text,
		Pages:    r.Pages,
		Method:   r.Method,
		Duration: r.Duration,
		Warnings: r.Warnings,
	}
	if err != nil {
		a.logger.Warn("extract.ocr.failed", "method", r.Method, "error", err)
		res.Text = ""
		res.Warnings = append(res.Warnings, err.Error())
	}
	return res
}
