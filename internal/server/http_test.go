package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/efris-reports/internal/common"
)

func seed(t *testing.T, f *fixture) {
	t.Helper()
	_, err := f.client.Ingest(context.Background(), mustStruct(t, map[string]any{
		"documents": []any{
			doc("a.pdf", "100000001", "1111111111111", "1,000"),
			doc("b.pdf", "200000002", "2222222222222", "500.25"),
		},
	}))
	require.NoError(t, err)
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHTTP_Health(t *testing.T) {
	f := newFixture(t)
	ok := NewHTTPServer(f.reports, f.export, f.db, func(context.Context) error { return nil }, nil).Routes()
	rec := get(t, ok, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

	down := NewHTTPServer(f.reports, f.export, f.db, func(context.Context) error { return errors.New("gone") }, nil).Routes()
	rec = get(t, down, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHTTP_Reports(t *testing.T) {
	f := newFixture(t)
	seed(t, f)
	h := NewHTTPServer(f.reports, f.export, f.db, nil, nil).Routes()

	rec := get(t, h, "/reports?assessment=2222")
	require.Equal(t, http.StatusOK, rec.Code)
	var body listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Reports, 1)
	assert.Equal(t, "200000002", body.Reports[0].TIN)
	assert.Equal(t, 1, body.Summary.Rows)
	assert.Equal(t, "2024-06-05 → 2024-06-05", body.Summary.DateRange)

	rec = get(t, h, "/reports?tin=nothing-matches")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"reports":[]`)

	assert.Equal(t, http.StatusBadRequest, get(t, h, "/reports?limit=ten").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/reports?from=2024-07-01&to=2024-06-01").Code)
}

func TestHTTP_Export(t *testing.T) {
	f := newFixture(t)
	seed(t, f)
	h := NewHTTPServer(f.reports, f.export, f.db, nil, nil).Routes()

	rec := get(t, h, "/export/csv")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "efris_report.csv")
	assert.Len(t, strings.Split(strings.TrimSpace(rec.Body.String()), "\n"), 3)

	rec = get(t, h, "/export/xlsx?tin=1000")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "PK"))

	assert.Equal(t, http.StatusNotFound, get(t, h, "/export/pdf").Code)
}

func TestHTTP_Snapshot(t *testing.T) {
	f := newFixture(t)
	seed(t, f)

	rec := get(t, NewHTTPServer(f.reports, f.export, f.db, nil, nil).Routes(), "/snapshot.db")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/vnd.sqlite3", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "SQLite format 3\x00"))

	rec = get(t, NewHTTPServer(f.reports, f.export, nil, nil, nil).Routes(), "/snapshot.db")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	failing := snapFunc(func() error { return common.StoreUnavailable("snapshot", nil) })
	rec = get(t, NewHTTPServer(f.reports, f.export, failing, nil, nil).Routes(), "/snapshot.db")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Empty(t, rec.Header().Get("Content-Disposition"))
}

type snapFunc func() error

func (s snapFunc) WriteSnapshot(context.Context, io.Writer) (int64, error) { return 0, s() }
