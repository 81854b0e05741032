package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/joseph-ayodele/efris-reports/internal/common"
	"github.com/joseph-ayodele/efris-reports/internal/entity"
	"github.com/joseph-ayodele/efris-reports/internal/export"
	"github.com/joseph-ayodele/efris-reports/internal/reports"
)

// Snapshotter streams a copy of the store file.
type Snapshotter interface {
	WriteSnapshot(ctx context.Context, w io.Writer) (int64, error)
}

// HTTPServer serves the read-only download surface: the report list, CSV/XLSX
// exports and the store file.
type HTTPServer struct {
	reports *reports.Service
	export  *export.Service
	snap    Snapshotter
	ping    func(context.Context) error
	logger  *slog.Logger
}

func NewHTTPServer(rs *reports.Service, ex *export.Service, snap Snapshotter, ping func(context.Context) error, logger *slog.Logger) *HTTPServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPServer{reports: rs, export: ex, snap: snap, ping: ping, logger: logger}
}

// Routes builds the chi router.
func (h *HTTPServer) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", h.health)
	r.Get("/reports", h.list)
	r.Get("/export/{format}", h.exportFile)
	r.Get("/snapshot.db", h.snapshot)
	return r
}

func (h *HTTPServer) health(w http.ResponseWriter, r *http.Request) {
	if h.ping != nil {
		if err := h.ping(r.Context()); err != nil {
			h.logger.Warn("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type listResponse struct {
	Reports []entity.Report `json:"reports"`
	Summary summaryJSON     `json:"summary"`
}

type summaryJSON struct {
	Rows        int      `json:"rows"`
	TotalAmount *float64 `json:"total_amount,omitempty"`
	DateRange   string   `json:"date_range,omitempty"`
}

func (h *HTTPServer) list(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	recs, err := h.reports.List(r.Context(), f)
	if err != nil {
		h.fail(w, "list", err)
		return
	}
	if recs == nil {
		recs = []entity.Report{}
	}
	sum := reports.Summarize(recs)
	writeJSON(w, http.StatusOK, listResponse{
		Reports: recs,
		Summary: summaryJSON{Rows: sum.Rows, TotalAmount: sum.TotalAmount, DateRange: sum.DateRange()},
	})
}

func (h *HTTPServer) exportFile(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(chi.URLParam(r, "format"))
	var contentType string
	switch format {
	case FormatCSV:
		contentType = "text/csv"
	case FormatXLSX:
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		http.Error(w, "format must be csv or xlsx", http.StatusNotFound)
		return
	}
	f, err := filterFromQuery(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	recs, err := h.reports.List(r.Context(), f)
	if err != nil {
		h.fail(w, "export", err)
		return
	}
	data, err := render(h.export, format, recs)
	if err != nil {
		h.fail(w, "export", err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="efris_report.`+format+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

func (h *HTTPServer) snapshot(w http.ResponseWriter, r *http.Request) {
	if h.snap == nil {
		http.Error(w, "snapshot not available", http.StatusNotFound)
		return
	}
	cw := &headerOnWrite{ResponseWriter: w}
	n, err := h.snap.WriteSnapshot(r.Context(), cw)
	if err != nil {
		if !cw.started {
			h.fail(w, "snapshot", err)
			return
		}
		h.logger.Error("snapshot stream broken", "bytes", n, "error", err)
		return
	}
	h.logger.Info("snapshot.sent", "bytes", n)
}

// headerOnWrite sets the download headers only once the first byte is ready,
// so an early failure can still be reported as an HTTP error.
type headerOnWrite struct {
	http.ResponseWriter
	started bool
}

func (c *headerOnWrite) Write(p []byte) (int, error) {
	if !c.started {
		c.started = true
		c.Header().Set("Content-Type", "application/vnd.sqlite3")
		c.Header().Set("Content-Disposition", `attachment; filename="efris_report.db"`)
	}
	return c.ResponseWriter.Write(p)
}

func (h *HTTPServer) fail(w http.ResponseWriter, op string, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, common.ErrStoreUnavailable):
		code = http.StatusServiceUnavailable
	case errors.Is(err, common.ErrInvalidInput), errors.Is(err, common.ErrValidation):
		code = http.StatusBadRequest
	}
	h.logger.Error("http request failed", "op", op, "status", code, "error", err)
	http.Error(w, err.Error(), code)
}

func filterFromQuery(q url.Values) (reports.Filter, error) {
	f := reports.Filter{
		TINContains:        strings.TrimSpace(q.Get("tin")),
		AssessmentContains: strings.TrimSpace(q.Get("assessment")),
	}
	var err error
	if f.From, err = parseDay("from", strings.TrimSpace(q.Get("from"))); err != nil {
		return f, err
	}
	if f.To, err = parseDay("to", strings.TrimSpace(q.Get("to"))); err != nil {
		return f, err
	}
	if v := strings.TrimSpace(q.Get("limit")); v != "" {
		if f.Limit, err = strconv.Atoi(v); err != nil {
			return f, errors.New("limit must be an integer")
		}
	}
	return f, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
