package ocr

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	name string
	args []string
}

// fakeRunner answers per command name and records the calls it saw.
type fakeRunner struct {
	replies map[string]func(args []string) ([]byte, []byte, error)
	calls   []call
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, call{name: name, args: args})
	if reply, ok := f.replies[name]; ok {
		return reply(args)
	}
	return nil, []byte("not found"), errors.New("exec: not found")
}

func (f *fakeRunner) called(name string) int {
	n := 0
	for _, c := range f.calls {
		if c.name == name {
			n++
		}
	}
	return n
}

func TestExtractWithPdftotext(t *testing.T) {
	r := &fakeRunner{replies: map[string]func([]string) ([]byte, []byte, error){
		"pdftotext": func(args []string) ([]byte, []byte, error) {
			// the document must have been spooled to disk
			_, err := os.Stat(args[len(args)-2])
			require.NoError(t, err)
			return []byte("TIN:\t123456789\r\n\fFiscal Document Number:   1234567890123\n"), nil, nil
		},
	}}
	e := NewExtractor(Config{}, nil, WithRunner(r))

	res, err := e.Extract(context.Background(), []byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, "pdftotext", res.Method)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, "TIN: 123456789\n\nFiscal Document Number: 1234567890123", res.Text)
	assert.Equal(t, 0, r.called("tesseract"))
}

func TestExtractEmptyContent(t *testing.T) {
	e := NewExtractor(Config{}, nil, WithRunner(&fakeRunner{}))
	_, err := e.Extract(context.Background(), nil)
	assert.Error(t, err)
}

func TestExtractFallsBackToOCR(t *testing.T) {
	r := &fakeRunner{replies: map[string]func([]string) ([]byte, []byte, error){
		"pdftotext": func([]string) ([]byte, []byte, error) { return []byte("  \f  "), nil, nil },
		"pdftoppm": func(args []string) ([]byte, []byte, error) {
			prefix := args[len(args)-1]
			for _, p := range []string{"-1.png", "-2.png"} {
				require.NoError(t, os.WriteFile(prefix+p, []byte("png"), 0o600))
			}
			return nil, nil, nil
		},
		"tesseract": func(args []string) ([]byte, []byte, error) {
			if strings.HasSuffix(args[0], "-1.png") {
				return []byte("Issued Date: 05/06/2024\n-----\n"), nil, nil
			}
			return []byte("Tax Amount 2,500.00"), nil, nil
		},
	}}
	e := NewExtractor(Config{EnableOCR: true, TesseractLang: "eng"}, nil, WithRunner(r))

	res, err := e.Extract(context.Background(), []byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, "pdf-ocr", res.Method)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, "eng", res.Language)
	assert.Contains(t, res.Text, "Issued Date: 05/06/2024")
	assert.Contains(t, res.Text, "Tax Amount 2,500.00")
	assert.NotContains(t, res.Text, "-----")
	assert.Equal(t, 2, r.called("tesseract"))
}

func TestExtractNoOCRWhenDisabled(t *testing.T) {
	r := &fakeRunner{replies: map[string]func([]string) ([]byte, []byte, error){
		"pdftotext": func([]string) ([]byte, []byte, error) { return nil, []byte("Syntax Error"), errors.New("exit status 1") },
	}}
	e := NewExtractor(Config{}, nil, WithRunner(r))

	res, err := e.Extract(context.Background(), []byte("garbage"))
	assert.Error(t, err)
	assert.Empty(t, res.Text)
	assert.Equal(t, 0, r.called("pdftoppm"))
}

func TestNormalizeKeepsDigits(t *testing.T) {
	in := "Issued Date:\t05/06/2024  \r\n\n\n\nTIN   0123456789"
	assert.Equal(t, "Issued Date: 05/06/2024\n\nTIN 0123456789", Normalize(in))
	assert.Equal(t, "", Normalize(""))
}
