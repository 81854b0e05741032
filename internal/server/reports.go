package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/efris-reports/internal/async"
	"github.com/joseph-ayodele/efris-reports/internal/common"
	"github.com/joseph-ayodele/efris-reports/internal/entity"
	"github.com/joseph-ayodele/efris-reports/internal/export"
	"github.com/joseph-ayodele/efris-reports/internal/ingest"
	"github.com/joseph-ayodele/efris-reports/internal/pipeline"
	"github.com/joseph-ayodele/efris-reports/internal/reports"
)

// Export formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

type ReportsService struct {
	UnimplementedReportsServer
	collector ingest.Collector
	queue     async.Queue
	reports   *reports.Service
	export    *export.Service
	defaults  entity.Defaults
	logger    *slog.Logger
}

func NewReportsService(col ingest.Collector, q async.Queue, rs *reports.Service, ex *export.Service, defaults entity.Defaults, logger *slog.Logger) *ReportsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportsService{
		collector: col,
		queue:     q,
		reports:   rs,
		export:    ex,
		defaults:  defaults,
		logger:    logger,
	}
}

// Ingest collects server-side paths and uploaded documents into one batch
// and waits for the queue to run it.
func (s *ReportsService) Ingest(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()

	paths := stringList(fields["paths"])
	docs, err := documents(fields["documents"])
	if err != nil {
		return nil, common.InvalidArgumentError(err.Error())
	}
	if len(paths) == 0 && len(docs) == 0 {
		s.logger.Error("ingest request has no paths or documents")
		return nil, common.InvalidArgumentError("paths or documents is required")
	}

	defaults := s.defaults
	if v := fields["defaults"].GetStructValue(); v != nil {
		raw, err := v.MarshalJSON()
		if err != nil {
			return nil, common.InvalidArgumentErrorf("defaults: %v", err)
		}
		if defaults, err = common.ParseIngestDefaults(raw); err != nil {
			return nil, common.ToStatus(err)
		}
	}

	skipHidden := true
	if v, ok := fields["skip_hidden"].GetKind().(*structpb.Value_BoolValue); ok {
		skipHidden = v.BoolValue
	}

	var items []pipeline.Item
	var files []ingest.FileResult
	if len(paths) > 0 {
		s.logger.Info("collecting ingest paths", "paths", len(paths), "skip_hidden", skipHidden)
		col, err := s.collector.Collect(ctx, paths, skipHidden)
		if err != nil {
			return nil, common.InvalidArgumentErrorf("collect: %v", err)
		}
		items = append(items, col.Items...)
		files = col.Files
	}
	items = append(items, docs...)

	res, err := s.queue.Submit(ctx, async.Job{Items: items, Defaults: defaults, Source: "grpc"})
	if err != nil {
		s.logger.Error("ingest.failed", "items", len(items), "error", err)
		if errors.Is(err, async.ErrQueueClosed) {
			return nil, common.UnavailableError(err.Error())
		}
		return nil, common.ToStatus(err)
	}
	return resultStruct(res, files)
}

func (s *ReportsService) List(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f, err := filterFromStruct(req)
	if err != nil {
		return nil, common.InvalidArgumentError(err.Error())
	}
	recs, err := s.reports.List(ctx, f)
	if err != nil {
		s.logger.Warn("list reports failed", "error", err)
		return nil, common.ToStatus(err)
	}

	rows := make([]any, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, reportMap(r))
	}
	out, err := structpb.NewStruct(map[string]any{
		"reports": rows,
		"summary": summaryMap(reports.Summarize(recs)),
	})
	if err != nil {
		return nil, common.InternalErrorf("encode reports: %v", err)
	}
	return out, nil
}

func (s *ReportsService) Export(ctx context.Context, req *structpb.Struct) (*wrapperspb.BytesValue, error) {
	format := strings.ToLower(strings.TrimSpace(req.GetFields()["format"].GetStringValue()))
	if format == "" {
		format = FormatXLSX
	}
	if format != FormatCSV && format != FormatXLSX {
		return nil, common.InvalidArgumentErrorf("format must be %s or %s", FormatCSV, FormatXLSX)
	}
	f, err := filterFromStruct(req)
	if err != nil {
		return nil, common.InvalidArgumentError(err.Error())
	}
	recs, err := s.reports.List(ctx, f)
	if err != nil {
		return nil, common.ToStatus(err)
	}

	data, err := render(s.export, format, recs)
	if err != nil {
		s.logger.Error("export.failed", "format", format, "error", err)
		return nil, common.InternalError(err.Error())
	}
	return wrapperspb.Bytes(data), nil
}

func render(ex *export.Service, format string, recs []entity.Report) ([]byte, error) {
	if format == FormatCSV {
		var buf bytes.Buffer
		if err := ex.CSV(&buf, recs); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return ex.XLSX(recs)
}

func filterFromStruct(req *structpb.Struct) (reports.Filter, error) {
	fields := req.GetFields()
	get := func(k string) string { return strings.TrimSpace(fields[k].GetStringValue()) }
	f := reports.Filter{
		TINContains:        get("tin"),
		AssessmentContains: get("assessment"),
	}
	var err error
	if f.From, err = parseDay("from", get("from")); err != nil {
		return f, err
	}
	if f.To, err = parseDay("to", get("to")); err != nil {
		return f, err
	}
	if v, ok := fields["limit"].GetKind().(*structpb.Value_NumberValue); ok {
		f.Limit = int(v.NumberValue)
	}
	return f, nil
}

func parseDay(name, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, fmt.Errorf("%s must be YYYY-MM-DD", name)
	}
	return &t, nil
}

func stringList(v *structpb.Value) []string {
	var out []string
	for _, e := range v.GetListValue().GetValues() {
		if s := strings.TrimSpace(e.GetStringValue()); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// documents decodes [{name, content}] where content is base64.
func documents(v *structpb.Value) ([]pipeline.Item, error) {
	var out []pipeline.Item
	for i, e := range v.GetListValue().GetValues() {
		fields := e.GetStructValue().GetFields()
		name := strings.TrimSpace(fields["name"].GetStringValue())
		if name == "" {
			return nil, fmt.Errorf("documents[%d]: name is required", i)
		}
		content, err := base64.StdEncoding.DecodeString(fields["content"].GetStringValue())
		if err != nil {
			return nil, fmt.Errorf("documents[%d]: content is not base64: %v", i, err)
		}
		out = append(out, pipeline.Item{Name: name, Content: content})
	}
	return out, nil
}

func resultStruct(res pipeline.Result, files []ingest.FileResult) (*structpb.Struct, error) {
	logLines := make([]any, 0, len(res.Log))
	for _, l := range res.Log {
		logLines = append(logLines, l)
	}
	items := make([]any, 0, len(res.Items))
	for _, it := range res.Items {
		items = append(items, map[string]any{
			"name":              it.Name,
			"status":            string(it.Status),
			"detail":            it.Detail,
			"assessment_number": it.AssessmentNumber,
			"pages":             it.Pages,
			"method":            it.Method,
		})
	}
	var failed []any
	for _, f := range files {
		if f.Err != "" {
			failed = append(failed, map[string]any{"path": f.Path, "error": f.Err})
		}
	}
	out, err := structpb.NewStruct(map[string]any{
		"batch_id":   res.BatchID.String(),
		"inserted":   res.Inserted,
		"skipped":    res.Skipped,
		"log":        logLines,
		"items":      items,
		"unreadable": failed,
	})
	if err != nil {
		return nil, common.InternalErrorf("encode result: %v", err)
	}
	return out, nil
}

func reportMap(r entity.Report) map[string]any {
	var amount any
	if r.AmountAssessed != nil {
		amount = *r.AmountAssessed
	}
	return map[string]any{
		"tin":               r.TIN,
		"taxpayer_name":     r.TaxpayerName,
		"region":            r.Region,
		"location":          r.Location,
		"risk_source":       r.RiskSource,
		"risk":              r.Risk,
		"activity":          r.Activity,
		"activity_date":     r.ActivityDate,
		"tax_head":          r.TaxHead,
		"assessment_number": r.AssessmentNumber,
		"amount_assessed":   amount,
	}
}

func summaryMap(s reports.Summary) map[string]any {
	m := map[string]any{"rows": s.Rows}
	if s.TotalAmount != nil {
		m["total_amount"] = *s.TotalAmount
	}
	if s.MinDate != nil && s.MaxDate != nil {
		m["min_date"] = s.MinDate.Format(time.DateOnly)
		m["max_date"] = s.MaxDate.Format(time.DateOnly)
	}
	return m
}
