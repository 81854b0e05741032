package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"entgo.io/ent/dialect"

	"github.com/joseph-ayodele/efris-reports/constants"
	"github.com/joseph-ayodele/efris-reports/internal/entity"
	"github.com/joseph-ayodele/efris-reports/internal/parse"
	"github.com/joseph-ayodele/efris-reports/internal/repository"
)

// Decision is the admission outcome for one candidate.
type Decision struct {
	Status constants.ItemStatus
	Detail string
	Record *entity.Report // set when the record was written
}

// Deduplicator admits candidates into the store, at most once per
// assessment number.
type Deduplicator struct {
	repo     repository.ReportRepository
	defaults entity.Defaults
	logger   *slog.Logger
}

func NewDeduplicator(repo repository.ReportRepository, defaults entity.Defaults, logger *slog.Logger) *Deduplicator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Deduplicator{repo: repo, defaults: defaults, logger: logger}
}

// Admit decides and, when admitted, inserts through q. The returned error is
// non-nil only when the store connection is gone; every other failure is a
// Decision.
func (d *Deduplicator) Admit(ctx context.Context, q dialect.ExecQuerier, c entity.Candidate) (Decision, error) {
	id := c.Identifier()
	if id == "" {
		return Decision{Status: constants.ItemMissingIdentifier, Detail: "missing identifier"}, nil
	}

	rec := d.record(c, id)
	status := constants.ItemInserted
	var amountNote string
	if raw, ok := c.AmountRaw.Get(); ok {
		v, err := parse.Amount(raw)
		if err != nil {
			status = constants.ItemInsertedNullAmount
			amountNote = fmt.Sprintf("amount %q unreadable, stored as NULL", raw)
		} else {
			rec.AmountAssessed = &v
		}
	} else {
		status = constants.ItemInsertedNullAmount
		amountNote = "amount not found, stored as NULL"
	}

	exists, err := d.repo.Exists(ctx, q, id)
	if err != nil {
		if repository.IsConnectionError(err) {
			return Decision{}, err
		}
		return Decision{Status: constants.ItemStoreError, Detail: "lookup failed: " + err.Error()}, nil
	}
	if exists {
		return d.duplicate(id), nil
	}

	err = d.repo.Insert(ctx, q, rec)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrDuplicate):
		d.logger.Debug("dedup.unique_index_hit", "assessment_number", id)
		return d.duplicate(id), nil
	case repository.IsConnectionError(err):
		return Decision{}, err
	default:
		return Decision{Status: constants.ItemStoreError, Detail: "insert failed: " + err.Error()}, nil
	}

	detail := "inserted assessment " + id
	if amountNote != "" {
		detail += "; " + amountNote
	}
	return Decision{Status: status, Detail: detail, Record: &rec}, nil
}

func (d *Deduplicator) duplicate(id string) Decision {
	return Decision{Status: constants.ItemDuplicate, Detail: "duplicate assessment number " + id}
}

func (d *Deduplicator) record(c entity.Candidate, id string) entity.Report {
	text := func(o entity.Optional[string]) string {
		return strings.TrimSpace(o.OrElse(""))
	}
	return entity.Report{
		TIN:              text(c.TIN),
		TaxpayerName:     text(c.TaxpayerName),
		Region:           d.defaults.Region,
		RiskSource:       d.defaults.RiskSource,
		Activity:         d.defaults.Activity,
		ActivityDate:     text(c.ActivityDate),
		TaxHead:          d.defaults.TaxHead,
		AssessmentNumber: id,
	}
}
