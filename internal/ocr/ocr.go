package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	DPI           int    // rasterization DPI for scanned PDFs, default 300
	MaxPages      int    // 0 = no limit
	TessdataDir   string

	// EnableOCR rasterizes and OCRs the document when pdftotext finds no text.
	EnableOCR bool
}

type ExtractionResult struct {
	Text     string
	Pages    int
	Method   string // "pdftotext" | "pdf-ocr"
	Language string
	Duration time.Duration
	Warnings []string
}

type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

// Option customizes an Extractor.
type Option func(*Extractor)

// WithRunner replaces the command runner (tests use a stub).
func WithRunner(r Runner) Option {
	return func(e *Extractor) {
		if r != nil {
			e.runner = r
		}
	}
}

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	e := &Extractor{cfg: cfg, runner: execRunner{logger: logger}, logger: logger}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract spools content to a temp file and runs the poppler tools over it,
// falling back to tesseract for image-only documents when enabled.
func (e *Extractor) Extract(ctx context.Context, content []byte) (ExtractionResult, error) {
	start := time.Now()
	if len(content) == 0 {
		return ExtractionResult{}, fmt.Errorf("empty document")
	}

	tmpDir, err := os.MkdirTemp("", "efris-doc-*")
	if err != nil {
		return ExtractionResult{}, err
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			e.logger.Warn("failed to remove temp dir", "path", tmpDir, "error", err)
		}
	}()

	path := filepath.Join(tmpDir, "document.pdf")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		return ExtractionResult{}, err
	}

	e.logger.Debug("starting command-line extraction", "bytes", len(content), "ocr_enabled", e.cfg.EnableOCR)
	text, pages, warns, err := e.pdfToText(ctx, path)
	res := ExtractionResult{Text: text, Pages: pages, Method: "pdftotext", Warnings: warns}
	if err == nil && res.Text != "" {
		res.Duration = time.Since(start)
		return res, nil
	}
	if !e.cfg.EnableOCR {
		res.Duration = time.Since(start)
		return res, err
	}

	text, pages, warns, err = e.pdfToOCR(ctx, path)
	res = ExtractionResult{
		Text:     Normalize(text),
		Pages:    pages,
		Method:   "pdf-ocr",
		Language: e.cfg.TesseractLang,
		Warnings: append(res.Warnings, warns...),
		Duration: time.Since(start),
	}
	return res, err
}
