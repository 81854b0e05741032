package bootstrap

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/efris-reports/constants"
	"github.com/joseph-ayodele/efris-reports/internal/common"
	"github.com/joseph-ayodele/efris-reports/internal/extract"
	"github.com/joseph-ayodele/efris-reports/internal/testhelpers"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"DEBUG": slog.LevelDebug,
		"Info":  slog.LevelInfo,
		"":      slog.LevelInfo,
		"WaRn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("verbose")
	require.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelWarn, true)
	logger.Info("hidden")
	logger.Warn("shown", "batch_id", "b1")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"batch_id":"b1"`)
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	cfg := common.DatabaseConfig{
		Driver:   common.DriverSQLite,
		FilePath: filepath.Join(t.TempDir(), "reports.db"),
		Table:    constants.DefaultTableName,
	}

	db, err := OpenStore(ctx, cfg, 1, nil)
	require.NoError(t, err)
	db.Close()

	t.Run("config errors are not retried", func(t *testing.T) {
		bad := cfg
		bad.Table = "bad;name"
		_, err := OpenStore(ctx, bad, 3, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, common.ErrInvalidInput))
	})

	t.Run("unreachable store gives up after tries", func(t *testing.T) {
		gone := cfg
		gone.FilePath = filepath.Join(t.TempDir(), "no", "such", "dir", "reports.db")
		_, err := OpenStore(ctx, gone, 2, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, common.ErrStoreUnavailable))
	})
}

func TestNewExtractor(t *testing.T) {
	x := NewExtractor(common.ExtractConfig{}, nil)
	_, ok := x.(*extract.PDFExtractor)
	assert.True(t, ok, "no pdftotext configured means the embedded reader only")

	chain := NewExtractor(common.ExtractConfig{Pdftotext: "pdftotext"}, nil)
	require.IsType(t, extract.Chain{}, chain)
	assert.Len(t, chain.(extract.Chain), 2)

	// the embedded reader answers first for a text PDF
	doc := testhelpers.PDF([]string{"TIN: 123456789"})
	res := chain.Extract(context.Background(), doc)
	assert.Contains(t, res.Text, "TIN: 123456789")
	assert.Equal(t, extract.MethodPDFText, res.Method)
}
