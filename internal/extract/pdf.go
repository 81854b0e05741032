package extract

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
)

var _ TextExtractor = (*PDFExtractor)(nil)

// MethodPDFText tags results read by PDFExtractor.
const MethodPDFText = "pdf-text"

// PDFExtractor reads the text layer of a PDF in pure Go.
type PDFExtractor struct {
	logger *slog.Logger
}

func NewPDFExtractor(logger *slog.Logger) *PDFExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFExtractor{logger: logger}
}

// Extract concatenates the plain text of every page in document order.
// Corrupt, encrypted or otherwise unreadable documents give an empty Result.
func (e *PDFExtractor) Extract(_ context.Context, content []byte) Result {
	start := time.Now()
	text, pages, warns, err := e.readText(content)
	res := Result{
		Text:     strings.TrimSpace(text),
		Pages:    pages,
		Method:   MethodPDFText,
		Warnings: warns,
		Duration: time.Since(start),
	}
	if err != nil {
		e.logger.Warn("extract.pdf.unreadable", "bytes", len(content), "error", err)
		res.Text = ""
		res.Warnings = append(res.Warnings, err.Error())
	}
	return res
}

func (e *PDFExtractor) readText(content []byte) (text string, pages int, warns []string, err error) {
	// The PDF parser panics on some malformed object streams.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("pdf parser panic: %v", r)
		}
	}()

	if len(content) == 0 {
		return "", 0, nil, fmt.Errorf("empty PDF content")
	}
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", 0, nil, fmt.Errorf("open pdf: %w", err)
	}

	var b strings.Builder
	pages = r.NumPage()
	for i := 1; i <= pages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			warns = append(warns, fmt.Sprintf("page %d: %v", i, err))
			continue
		}
		pageText = strings.TrimSpace(pageText)
		if pageText == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(pageText)
	}
	return b.String(), pages, warns, nil
}
