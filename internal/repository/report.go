package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/sqlgraph"

	"github.com/joseph-ayodele/efris-reports/constants"
	"github.com/joseph-ayodele/efris-reports/internal/common"
	"github.com/joseph-ayodele/efris-reports/internal/entity"
)

// ListFilter narrows a report listing. Text filters are case-insensitive
// substring matches; zero values match everything.
type ListFilter struct {
	TINContains        string
	AssessmentContains string
	Limit              int
	Offset             int
}

type ReportRepository interface {
	// Begin opens the transaction a batch writes through.
	Begin(ctx context.Context) (dialect.Tx, error)
	// Exists looks up an exact assessment number.
	Exists(ctx context.Context, q dialect.ExecQuerier, assessmentNumber string) (bool, error)
	// Insert adds one report. Exists and Insert each run inside their own
	// savepoint, so a failed statement leaves the rest of the transaction
	// usable.
	Insert(ctx context.Context, q dialect.ExecQuerier, r entity.Report) error
	List(ctx context.Context, f ListFilter) ([]entity.Report, error)
	Count(ctx context.Context) (int, error)
}

type reportRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewReportRepository(db *DB, logger *slog.Logger) ReportRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &reportRepository{
		db:     db,
		logger: logger,
	}
}

func (r *reportRepository) Begin(ctx context.Context) (dialect.Tx, error) {
	return r.db.BeginTx(ctx)
}

func (r *reportRepository) Exists(ctx context.Context, q dialect.ExecQuerier, assessmentNumber string) (bool, error) {
	query, args := entsql.Dialect(r.db.dialect).
		Select(constants.ColAssessmentNumber).
		From(entsql.Table(r.db.table)).
		Where(entsql.EQ(constants.ColAssessmentNumber, assessmentNumber)).
		Limit(1).
		Query()

	var found bool
	err := r.savepoint(ctx, q, "report_lookup", func() error {
		var rows entsql.Rows
		if err := q.Query(ctx, query, args, &rows); err != nil {
			return err
		}
		found = rows.Next()
		err := rows.Err()
		// Closed before the savepoint is released.
		if cerr := rows.Close(); err == nil {
			err = cerr
		}
		return err
	})
	if err != nil {
		r.logger.Error("failed to look up assessment number", "assessment_number", assessmentNumber, "error", err)
		return false, r.classify("look up assessment number", err)
	}
	return found, nil
}

func (r *reportRepository) Insert(ctx context.Context, q dialect.ExecQuerier, rep entity.Report) error {
	var amount any
	if rep.AmountAssessed != nil {
		amount = *rep.AmountAssessed
	}
	query, args := entsql.Dialect(r.db.dialect).
		Insert(r.db.table).
		Columns(constants.Columns()...).
		Values(
			rep.TIN,
			rep.TaxpayerName,
			rep.Region,
			rep.Location,
			rep.RiskSource,
			rep.Risk,
			rep.Activity,
			rep.ActivityDate,
			rep.TaxHead,
			rep.AssessmentNumber,
			amount,
		).
		Query()

	err := r.savepoint(ctx, q, "report_insert", func() error {
		return q.Exec(ctx, query, args, nil)
	})
	if err != nil {
		r.logger.Warn("insert failed", "assessment_number", rep.AssessmentNumber, "error", err)
		return r.classify("insert report", err)
	}
	return nil
}

// savepoint runs fn inside a named savepoint of q's transaction. When fn
// fails the savepoint is rolled back, so the transaction stays usable on
// Postgres, and fn's error is returned.
func (r *reportRepository) savepoint(ctx context.Context, q dialect.ExecQuerier, name string, fn func() error) error {
	if err := q.Exec(ctx, "SAVEPOINT "+name, []any{}, nil); err != nil {
		return fmt.Errorf("open savepoint: %w", err)
	}
	if err := fn(); err != nil {
		if rbErr := q.Exec(ctx, "ROLLBACK TO SAVEPOINT "+name, []any{}, nil); rbErr != nil {
			return fmt.Errorf("rollback savepoint: %w", rbErr)
		}
		if relErr := q.Exec(ctx, "RELEASE SAVEPOINT "+name, []any{}, nil); relErr != nil {
			return fmt.Errorf("release savepoint: %w", relErr)
		}
		return err
	}
	if err := q.Exec(ctx, "RELEASE SAVEPOINT "+name, []any{}, nil); err != nil {
		return fmt.Errorf("release savepoint: %w", err)
	}
	return nil
}

func (r *reportRepository) List(ctx context.Context, f ListFilter) ([]entity.Report, error) {
	sel := entsql.Dialect(r.db.dialect).
		Select(constants.Columns()...).
		From(entsql.Table(r.db.table))

	var preds []*entsql.Predicate
	if f.TINContains != "" {
		preds = append(preds, entsql.ContainsFold(constants.ColTIN, f.TINContains))
	}
	if f.AssessmentContains != "" {
		preds = append(preds, entsql.ContainsFold(constants.ColAssessmentNumber, f.AssessmentContains))
	}
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	sel.OrderBy(constants.ColAssessmentNumber)
	if f.Limit > 0 {
		sel.Limit(f.Limit)
	}
	if f.Offset > 0 {
		sel.Offset(f.Offset)
	}
	query, args := sel.Query()

	var rows entsql.Rows
	if err := r.db.drv.Query(ctx, query, args, &rows); err != nil {
		r.logger.Error("failed to list reports", "error", err)
		return nil, r.classify("list reports", err)
	}
	defer rows.Close()

	var out []entity.Report
	for rows.Next() {
		var (
			tin, name, region, location, riskSource, risk sql.NullString
			activity, activityDate, taxHead, assessment   sql.NullString
			amount                                        sql.NullFloat64
		)
		if err := rows.Scan(&tin, &name, &region, &location, &riskSource, &risk,
			&activity, &activityDate, &taxHead, &assessment, &amount); err != nil {
			return nil, r.classify("scan report", err)
		}
		rep := entity.Report{
			TIN:              tin.String,
			TaxpayerName:     name.String,
			Region:           region.String,
			Location:         location.String,
			RiskSource:       riskSource.String,
			Risk:             risk.String,
			Activity:         activity.String,
			ActivityDate:     activityDate.String,
			TaxHead:          taxHead.String,
			AssessmentNumber: assessment.String,
		}
		if amount.Valid {
			v := amount.Float64
			rep.AmountAssessed = &v
		}
		out = append(out, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, r.classify("list reports", err)
	}
	return out, nil
}

func (r *reportRepository) Count(ctx context.Context) (int, error) {
	query, args := entsql.Dialect(r.db.dialect).
		Select().
		Count().
		From(entsql.Table(r.db.table)).
		Query()

	var rows entsql.Rows
	if err := r.db.drv.Query(ctx, query, args, &rows); err != nil {
		return 0, r.classify("count reports", err)
	}
	defer rows.Close()
	n, err := entsql.ScanInt(rows)
	if err != nil {
		return 0, r.classify("count reports", err)
	}
	return n, nil
}

// ErrDuplicate marks an insert rejected by the unique assessment-number index.
var ErrDuplicate = errors.New("duplicate assessment number")

func (r *reportRepository) classify(op string, err error) error {
	switch {
	case IsConnectionError(err):
		return common.StoreUnavailable(op, err)
	case sqlgraph.IsUniqueConstraintError(err):
		return fmt.Errorf("%s: %w: %v", op, ErrDuplicate, err)
	default:
		return common.NewAppError("DATABASE_ERROR", op, fmt.Errorf("%w: %v", common.ErrDatabase, err))
	}
}

// Snapshot copies a SQLite store to dest with VACUUM INTO. dest must not exist.
func (d *DB) Snapshot(ctx context.Context, dest string) error {
	if d.dialect != dialect.SQLite {
		return common.NewAppError("UNSUPPORTED", "snapshot is only available for sqlite stores", common.ErrInvalidInput)
	}
	if _, err := os.Stat(dest); err == nil {
		return common.NewAppError("SNAPSHOT_ERROR", fmt.Sprintf("snapshot target %s already exists", dest), common.ErrInvalidInput)
	}
	d.logger.Info("writing snapshot", "dest", dest)
	if err := d.drv.Exec(ctx, "VACUUM INTO ?", []any{dest}, nil); err != nil {
		d.logger.Error("snapshot failed", "dest", dest, "error", err)
		if IsConnectionError(err) {
			return common.StoreUnavailable("snapshot", err)
		}
		return common.NewAppError("SNAPSHOT_ERROR", "vacuum into", fmt.Errorf("%w: %v", common.ErrDatabase, err))
	}
	return nil
}

// WriteSnapshot streams a consistent copy of a SQLite store to w.
func (d *DB) WriteSnapshot(ctx context.Context, w io.Writer) (int64, error) {
	dir, err := os.MkdirTemp("", "efris-snapshot-*")
	if err != nil {
		return 0, common.WrapError(err, "create snapshot dir")
	}
	defer os.RemoveAll(dir)

	dest := filepath.Join(dir, "snapshot.db")
	if err := d.Snapshot(ctx, dest); err != nil {
		return 0, err
	}
	f, err := os.Open(dest)
	if err != nil {
		return 0, common.WrapError(err, "open snapshot")
	}
	defer f.Close()
	return io.Copy(w, f)
}
