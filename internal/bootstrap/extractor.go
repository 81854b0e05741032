package bootstrap

import (
	"log/slog"

	"github.com/joseph-ayodele/efris-reports/internal/common"
	"github.com/joseph-ayodele/efris-reports/internal/extract"
	"github.com/joseph-ayodele/efris-reports/internal/ocr"
)

// NewExtractor returns the embedded PDF reader, followed by the poppler
// command-line tools when PDFTOTEXT_BIN is configured.
func NewExtractor(cfg common.ExtractConfig, logger *slog.Logger, opts ...ocr.Option) extract.TextExtractor {
	pdf := extract.NewPDFExtractor(logger)
	if cfg.Pdftotext == "" {
		return pdf
	}
	x := ocr.NewExtractor(ocr.Config{Pdftotext: cfg.Pdftotext, EnableOCR: cfg.EnableOCR}, logger, opts...)
	return extract.Chain{pdf, extract.NewOCRAdapter(x, cfg.Timeout, logger)}
}
