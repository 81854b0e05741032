package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubExtractor struct {
	res   Result
	calls int
}

func (s *stubExtractor) Extract(context.Context, []byte) Result {
	s.calls++
	return s.res
}

func TestChain_FirstNonEmptyWins(t *testing.T) {
	empty := &stubExtractor{res: Result{Method: "pdf-text", Warnings: []string{"no text layer"}}}
	ocr := &stubExtractor{res: Result{Text: "TIN: 1000012345", Method: "pdf-ocr", Pages: 1}}
	never := &stubExtractor{res: Result{Text: "unused"}}

	res := Chain{empty, nil, ocr, never}.Extract(context.Background(), []byte("x"))

	assert.Equal(t, "TIN: 1000012345", res.Text)
	assert.Equal(t, "pdf-ocr", res.Method)
	assert.Equal(t, []string{"no text layer"}, res.Warnings)
	assert.Equal(t, 1, empty.calls)
	assert.Equal(t, 1, ocr.calls)
	assert.Zero(t, never.calls)
}

func TestChain_AllEmpty(t *testing.T) {
	a := &stubExtractor{res: Result{Warnings: []string{"a"}}}
	b := &stubExtractor{res: Result{Warnings: []string{"b"}}}

	res := Chain{a, b}.Extract(context.Background(), nil)

	assert.True(t, res.Empty())
	assert.Equal(t, []string{"a", "b"}, res.Warnings)
}

func TestChain_Nil(t *testing.T) {
	assert.True(t, Chain(nil).Extract(context.Background(), nil).Empty())
}
