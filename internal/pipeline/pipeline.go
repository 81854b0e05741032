// Package pipeline ingests batches of report documents into the store.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/efris-reports/constants"
	"github.com/joseph-ayodele/efris-reports/internal/common"
	"github.com/joseph-ayodele/efris-reports/internal/entity"
	"github.com/joseph-ayodele/efris-reports/internal/extract"
	"github.com/joseph-ayodele/efris-reports/internal/parse"
	"github.com/joseph-ayodele/efris-reports/internal/repository"
)

// Item is one uploaded document.
type Item struct {
	Name    string
	Content []byte
}

// IngestContext carries everything a batch needs from its caller.
type IngestContext struct {
	Store    repository.ReportRepository
	Defaults entity.Defaults
	BatchID  uuid.UUID
}

// NewIngestContext builds a context with a fresh batch id.
func NewIngestContext(store repository.ReportRepository, defaults entity.Defaults) *IngestContext {
	return &IngestContext{Store: store, Defaults: defaults, BatchID: uuid.New()}
}

// ItemResult is the outcome for one item, in input order.
type ItemResult struct {
	Name             string
	Status           constants.ItemStatus
	Detail           string
	AssessmentNumber string
	Pages            int
	Method           string
}

type Result struct {
	BatchID  uuid.UUID
	Inserted int
	Skipped  int
	Log      []string
	Items    []ItemResult
}

// Pipeline runs extract -> parse -> admit for each item, one at a time.
type Pipeline struct {
	Logger    *slog.Logger
	Extractor extract.TextExtractor
	Parser    *parse.Parser
}

func New(logger *slog.Logger, extractor extract.TextExtractor, parser *parse.Parser) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if extractor == nil {
		extractor = extract.NewPDFExtractor(logger)
	}
	if parser == nil {
		parser = parse.New(logger)
	}
	return &Pipeline{Logger: logger, Extractor: extractor, Parser: parser}
}

// Ingest processes items in order inside one store transaction, committed
// after the last item. onProgress (optional) receives i/len(items) before
// item i and 1.0 at the end.
//
// Per-item failures are recorded in the Result and never stop the batch.
// Cancelling ctx does not stop a started batch either. The only error is a
// store fault (common.ErrStoreUnavailable); the transaction is then rolled
// back, nothing is kept and every earlier insert is reported as rolled back.
func (p *Pipeline) Ingest(ctx context.Context, ictx *IngestContext, items []Item, onProgress func(float64)) (Result, error) {
	if ictx == nil || ictx.Store == nil {
		return Result{}, common.StoreUnavailable("no store in ingest context", nil)
	}
	if ictx.BatchID == uuid.Nil {
		ictx.BatchID = uuid.New()
	}
	if onProgress == nil {
		onProgress = func(float64) {}
	}
	ctx = common.WithBatchID(context.WithoutCancel(ctx), ictx.BatchID.String())
	log := p.Logger.With("batch_id", ictx.BatchID.String())
	start := time.Now()
	log.Info("pipeline.batch.start", "items", len(items))

	tx, err := ictx.Store.Begin(ctx)
	if err != nil {
		log.Error("pipeline.batch.begin_failed", "error", err)
		return Result{BatchID: ictx.BatchID}, err
	}
	abort := func(done []ItemResult, err error) (Result, error) {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Warn("pipeline.batch.rollback_failed", "error", rbErr)
		}
		log.Error("pipeline.batch.aborted", "error", err)
		return rolledBack(ictx.BatchID, done), err
	}

	dedup := NewDeduplicator(ictx.Store, ictx.Defaults, log)
	res := Result{
		BatchID: ictx.BatchID,
		Log:     make([]string, 0, len(items)),
		Items:   make([]ItemResult, 0, len(items)),
	}

	for i, it := range items {
		onProgress(float64(i) / float64(len(items)))

		ir, err := p.processItem(ctx, log, dedup, tx, it)
		if err != nil {
			return abort(res.Items, err)
		}
		if ir.Status.Inserted() {
			res.Inserted++
		} else {
			res.Skipped++
		}
		res.Items = append(res.Items, ir)
		res.Log = append(res.Log, ir.logLine())
	}

	if err := tx.Commit(); err != nil {
		return abort(res.Items, common.StoreUnavailable("commit batch", err))
	}
	onProgress(1.0)

	log.Info("pipeline.batch.done",
		"inserted", res.Inserted,
		"skipped", res.Skipped,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

func (p *Pipeline) processItem(ctx context.Context, log *slog.Logger, dedup *Deduplicator, tx dialect.ExecQuerier, it Item) (ItemResult, error) {
	ir := ItemResult{Name: it.Name}

	ext := p.Extractor.Extract(ctx, it.Content)
	ir.Pages, ir.Method = ext.Pages, ext.Method
	if ext.Empty() {
		ir.Status, ir.Detail = constants.ItemExtractionFailed, "no text extracted"
		log.Warn("pipeline.item.no_text", "file_name", it.Name, "bytes", len(it.Content), "warnings", ext.Warnings)
		return ir, nil
	}

	cand := p.Parser.Parse(ext.Text)
	dec, err := dedup.Admit(ctx, tx, cand)
	if err != nil {
		return ir, err
	}
	ir.Status, ir.Detail = dec.Status, dec.Detail
	ir.AssessmentNumber = cand.Identifier()
	if dec.Status.Inserted() {
		if note := validationNote(common.ValidateCandidate(cand)); note != "" {
			ir.Detail += "; check " + note
			log.Warn("pipeline.item.suspect_fields", "file_name", it.Name, "problems", note)
		}
	}

	log.Info("pipeline.item.done",
		"file_name", it.Name,
		"status", string(dec.Status),
		"assessment_number", ir.AssessmentNumber,
		"method", ext.Method,
		"pages", ext.Pages,
	)
	return ir, nil
}

func (ir ItemResult) logLine() string {
	return fmt.Sprintf("%s %s: %s", ir.Status.Marker(), ir.Name, ir.Detail)
}

// rolledBack rewrites the outcomes of an aborted batch: nothing was kept, so
// earlier inserts become store errors.
func rolledBack(batchID uuid.UUID, done []ItemResult) Result {
	res := Result{BatchID: batchID, Items: make([]ItemResult, 0, len(done)), Log: make([]string, 0, len(done))}
	for _, ir := range done {
		if ir.Status.Inserted() {
			ir.Status = constants.ItemStoreError
			ir.Detail = "rolled back with the batch, assessment " + ir.AssessmentNumber + " not stored"
		}
		res.Skipped++
		res.Items = append(res.Items, ir)
		res.Log = append(res.Log, ir.logLine())
	}
	return res
}

// validationNote lists field problems of an admitted candidate, such as
// "TIN must be 9-15 digits". The identifier is already known to be present.
func validationNote(v *common.Validator) string {
	var notes []string
	for _, e := range v.Errors() {
		notes = append(notes, e.Field+" "+e.Message)
	}
	return strings.Join(notes, ", ")
}
