package repository

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"entgo.io/ent/dialect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/efris-reports/constants"
	"github.com/joseph-ayodele/efris-reports/internal/common"
	"github.com/joseph-ayodele/efris-reports/internal/entity"
)

func openTestDB(t *testing.T, path string) *DB {
	t.Helper()
	if path == "" {
		path = filepath.Join(t.TempDir(), "reports.db")
	}
	db, err := Open(context.Background(), Config{
		Driver:   common.DriverSQLite,
		FilePath: path,
		Table:    constants.DefaultTableName,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func report(assessment string, amount *float64) entity.Report {
	return entity.Report{
		TIN:              "1000012345",
		TaxpayerName:     "Acme Co",
		Region:           constants.DefaultRegion,
		RiskSource:       constants.DefaultRiskSource,
		Activity:         constants.DefaultActivity,
		ActivityDate:     "05/06/2024",
		TaxHead:          constants.DefaultTaxHead,
		AssessmentNumber: assessment,
		AmountAssessed:   amount,
	}
}

func ptr(f float64) *float64 { return &f }

func TestOpen_CreatesEmptyTable(t *testing.T) {
	db := openTestDB(t, "")
	repo := NewReportRepository(db, nil)

	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, constants.DefaultTableName, db.Table())
}

func TestOpen_InvalidTableName(t *testing.T) {
	_, err := Open(context.Background(), Config{
		Driver:   common.DriverSQLite,
		FilePath: filepath.Join(t.TempDir(), "x.db"),
		Table:    "reports`; DROP TABLE x; --",
	}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "mysql", Table: "t"}, nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestOpen_RejectsTableMissingColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")
	raw, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = raw.Exec(`CREATE TABLE "EfrisPdfReport" ("TIN" TEXT)`)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	_, err = Open(context.Background(), Config{Driver: common.DriverSQLite, FilePath: path, Table: constants.DefaultTableName}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrDatabase)
	assert.Contains(t, err.Error(), "Assessment Number")
}

func TestOpen_ExistingDuplicatesSkipIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")
	raw, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = raw.Exec(`CREATE TABLE "EfrisPdfReport" ("TIN" TEXT, "Taxpayer Name" TEXT, "Region" TEXT, "Location" TEXT,
		"Risk Source" TEXT, "Risk" TEXT, "Activity" TEXT, "Activity Date" TEXT, "Tax Head" TEXT,
		"Assessment Number" TEXT, "Amount Assessed" REAL)`)
	require.NoError(t, err)
	_, err = raw.Exec(`INSERT INTO "EfrisPdfReport" ("Assessment Number") VALUES ('1234567890123'), ('1234567890123')`)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	db := openTestDB(t, path)
	repo := NewReportRepository(db, nil)
	ctx := context.Background()

	tx, err := repo.Begin(ctx)
	require.NoError(t, err)
	found, err := repo.Exists(ctx, tx, "1234567890123")
	require.NoError(t, err)
	assert.True(t, found)
	require.NoError(t, tx.Rollback())
}

func TestInsert_CommitAndList(t *testing.T) {
	db := openTestDB(t, "")
	repo := NewReportRepository(db, nil)
	ctx := context.Background()

	tx, err := repo.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.Insert(ctx, tx, report("1234567890123", ptr(2500.1234))))
	require.NoError(t, repo.Insert(ctx, tx, report("9999999999999", nil)))

	found, err := repo.Exists(ctx, tx, "1234567890123")
	require.NoError(t, err)
	assert.True(t, found)
	found, err = repo.Exists(ctx, tx, "123456789012")
	require.NoError(t, err)
	assert.False(t, found, "exact match only")
	require.NoError(t, tx.Commit())

	got, err := repo.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "1234567890123", got[0].AssessmentNumber)
	require.NotNil(t, got[0].AmountAssessed)
	assert.InDelta(t, 2500.1234, *got[0].AmountAssessed, 1e-9)
	assert.Equal(t, constants.DefaultRegion, got[0].Region)
	assert.Empty(t, got[0].Location)
	assert.Nil(t, got[1].AmountAssessed)
}

func TestInsert_UniqueViolationKeepsTransactionUsable(t *testing.T) {
	db := openTestDB(t, "")
	repo := NewReportRepository(db, nil)
	ctx := context.Background()

	tx, err := repo.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.Insert(ctx, tx, report("1234567890123", nil)))

	err = repo.Insert(ctx, tx, report("1234567890123", ptr(1)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicate))
	assert.False(t, IsConnectionError(err))

	require.NoError(t, repo.Insert(ctx, tx, report("2234567890123", nil)))
	require.NoError(t, tx.Commit())

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

// flakyQuerier fails the next Query and records every Exec statement.
type flakyQuerier struct {
	dialect.ExecQuerier
	failQuery error
	execs     []string
}

func (f *flakyQuerier) Query(ctx context.Context, query string, args, v any) error {
	if err := f.failQuery; err != nil {
		f.failQuery = nil
		return err
	}
	return f.ExecQuerier.Query(ctx, query, args, v)
}

func (f *flakyQuerier) Exec(ctx context.Context, query string, args, v any) error {
	f.execs = append(f.execs, query)
	return f.ExecQuerier.Exec(ctx, query, args, v)
}

func TestExists_FailedLookupKeepsTransactionUsable(t *testing.T) {
	db := openTestDB(t, "")
	repo := NewReportRepository(db, nil)
	ctx := context.Background()

	tx, err := repo.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.Insert(ctx, tx, report("1111111111111", nil)))

	q := &flakyQuerier{ExecQuerier: tx, failQuery: errors.New("could not determine data type")}
	_, err = repo.Exists(ctx, q, "2222222222222")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrDatabase)
	assert.False(t, IsConnectionError(err))
	assert.Equal(t, []string{
		"SAVEPOINT report_lookup",
		"ROLLBACK TO SAVEPOINT report_lookup",
		"RELEASE SAVEPOINT report_lookup",
	}, q.execs)

	found, err := repo.Exists(ctx, q, "1111111111111")
	require.NoError(t, err)
	assert.True(t, found)
	require.NoError(t, repo.Insert(ctx, q, report("2222222222222", nil)))
	require.NoError(t, tx.Commit())

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "inserts before and after the failed lookup are kept")
}

func TestInsert_RollbackDiscards(t *testing.T) {
	db := openTestDB(t, "")
	repo := NewReportRepository(db, nil)
	ctx := context.Background()

	tx, err := repo.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.Insert(ctx, tx, report("1234567890123", nil)))
	require.NoError(t, tx.Rollback())

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestList_Filters(t *testing.T) {
	db := openTestDB(t, "")
	repo := NewReportRepository(db, nil)
	ctx := context.Background()

	tx, err := repo.Begin(ctx)
	require.NoError(t, err)
	a := report("1111111111111", nil)
	a.TIN = "1000012345"
	b := report("2222222222222", nil)
	b.TIN = "2000054321"
	require.NoError(t, repo.Insert(ctx, tx, a))
	require.NoError(t, repo.Insert(ctx, tx, b))
	require.NoError(t, tx.Commit())

	got, err := repo.List(ctx, ListFilter{TINContains: "0054"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2222222222222", got[0].AssessmentNumber)

	got, err = repo.List(ctx, ListFilter{AssessmentContains: "1111"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "1000012345", got[0].TIN)

	got, err = repo.List(ctx, ListFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2222222222222", got[0].AssessmentNumber)

	got, err = repo.List(ctx, ListFilter{TINContains: "nope"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSnapshot(t *testing.T) {
	db := openTestDB(t, "")
	repo := NewReportRepository(db, nil)
	ctx := context.Background()

	tx, err := repo.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.Insert(ctx, tx, report("1234567890123", ptr(10))))
	require.NoError(t, tx.Commit())

	dest := filepath.Join(t.TempDir(), "snapshot.db")
	require.NoError(t, db.Snapshot(ctx, dest))
	_, err = os.Stat(dest)
	require.NoError(t, err)

	snap := openTestDB(t, dest)
	n, err := NewReportRepository(snap, nil).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	err = db.Snapshot(ctx, dest)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestIsConnectionError(t *testing.T) {
	assert.True(t, IsConnectionError(sql.ErrConnDone))
	assert.True(t, IsConnectionError(common.StoreUnavailable("gone", nil)))
	assert.False(t, IsConnectionError(nil))
	assert.False(t, IsConnectionError(errors.New("syntax error")))
}

func TestWriteSnapshot(t *testing.T) {
	db := openTestDB(t, "")
	var buf bytes.Buffer

	n, err := db.WriteSnapshot(context.Background(), &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("SQLite format 3\x00")))
}

func TestPing_DuringBatch(t *testing.T) {
	db := openTestDB(t, "")
	repo := NewReportRepository(db, nil)
	ctx := context.Background()

	tx, err := repo.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.Insert(ctx, tx, report("1234567890123", nil)))

	// The batch holds the only connection; a real ping would wait for it.
	assert.Error(t, db.HealthCheck(ctx, 50*time.Millisecond))
	assert.NoError(t, db.Ping(ctx, 50*time.Millisecond))

	require.NoError(t, tx.Commit())
	assert.NoError(t, db.Ping(ctx, time.Second))

	// Ending a transaction twice does not miscount.
	assert.Error(t, tx.Rollback())
	assert.Zero(t, db.writers.Load())
}
