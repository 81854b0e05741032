package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/joseph-ayodele/efris-reports/internal/common"
)

type Config struct {
	Driver      string // common.DriverSQLite | common.DriverPostgres
	FilePath    string
	DSN         string
	Table       string
	BusyTimeout time.Duration
	DialTimeout time.Duration
	MaxConns    int32
}

// DB is an open store handle: an ent SQL driver over either SQLite or Postgres.
type DB struct {
	drv     *entsql.Driver
	pool    *pgxpool.Pool
	dialect string
	table   string
	logger  *slog.Logger
	writers atomic.Int32 // open batch transactions
}

var reTableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_ ]{0,62}$`)

// Open connects to the configured store and makes sure the report table and
// its unique assessment-number index exist.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !reTableName.MatchString(cfg.Table) {
		return nil, common.NewAppError("CONFIG_ERROR", fmt.Sprintf("invalid table name %q", cfg.Table), common.ErrInvalidInput)
	}

	var (
		d   *DB
		err error
	)
	switch cfg.Driver {
	case common.DriverSQLite, "":
		d, err = openSQLite(cfg, logger)
	case common.DriverPostgres:
		d, err = openPostgres(ctx, cfg, logger)
	default:
		return nil, common.NewAppError("CONFIG_ERROR", fmt.Sprintf("unsupported driver %q", cfg.Driver), common.ErrInvalidInput)
	}
	if err != nil {
		return nil, err
	}

	if err := d.HealthCheck(ctx, cfg.DialTimeout); err != nil {
		d.Close()
		return nil, common.StoreUnavailable("database not reachable", err)
	}
	if err := d.ensureSchema(ctx); err != nil {
		d.Close()
		return nil, err
	}
	logger.Info("successfully connected to database", "dialect", d.dialect, "table", d.table)
	return d, nil
}

func openSQLite(cfg Config, logger *slog.Logger) (*DB, error) {
	if cfg.FilePath == "" {
		return nil, common.NewAppError("CONFIG_ERROR", "sqlite file path is required", common.ErrInvalidInput)
	}
	logger.Info("connecting to database", "driver", "sqlite", "path", cfg.FilePath)

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busy.Milliseconds()))
	q.Add("_pragma", "journal_mode(WAL)")
	db, err := sql.Open("sqlite", cfg.FilePath+"?"+q.Encode())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, common.StoreUnavailable("open sqlite", err)
	}
	// One connection: the open batch transaction owns it, so every statement
	// in a batch must go through that transaction.
	db.SetMaxOpenConns(1)

	return &DB{
		drv:     entsql.OpenDB(dialect.SQLite, db),
		dialect: dialect.SQLite,
		table:   cfg.Table,
		logger:  logger,
	}, nil
}

func openPostgres(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	logger.Info("connecting to database", "driver", "postgres")
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, common.NewAppError("CONFIG_ERROR", "parse postgres dsn", fmt.Errorf("%w: %v", common.ErrInvalidInput, err))
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "efris-reports"

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, common.StoreUnavailable("open postgres pool", err)
	}

	// Wrap pool as *sql.DB for the ent driver
	db := stdlib.OpenDBFromPool(pool)
	return &DB{
		drv:     entsql.OpenDB(dialect.Postgres, db),
		pool:    pool,
		dialect: dialect.Postgres,
		table:   cfg.Table,
		logger:  logger,
	}, nil
}

// Dialect is the ent dialect name of the open store.
func (d *DB) Dialect() string { return d.dialect }

// Table is the report table name.
func (d *DB) Table() string { return d.table }

// Driver exposes the underlying ent driver.
func (d *DB) Driver() *entsql.Driver { return d.drv }

// BeginTx opens the transaction a whole ingestion batch runs in.
func (d *DB) BeginTx(ctx context.Context) (dialect.Tx, error) {
	tx, err := d.drv.Tx(ctx)
	if err != nil {
		if IsConnectionError(err) {
			return nil, common.StoreUnavailable("begin transaction", err)
		}
		return nil, common.WrapError(err, "begin transaction")
	}
	d.writers.Add(1)
	return &batchTx{Tx: tx, done: func() { d.writers.Add(-1) }}, nil
}

// batchTx counts itself out of DB.writers when it ends.
type batchTx struct {
	dialect.Tx
	once sync.Once
	done func()
}

func (t *batchTx) Commit() error {
	defer t.once.Do(t.done)
	return t.Tx.Commit()
}

func (t *batchTx) Rollback() error {
	defer t.once.Do(t.done)
	return t.Tx.Rollback()
}

// Close closes the database connections gracefully
func (d *DB) Close() {
	if d == nil {
		return
	}
	d.logger.Info("closing database connections")
	if err := d.drv.Close(); err != nil {
		d.logger.Error("failed to close database", "error", err)
	}
	if d.pool != nil {
		d.pool.Close()
	}
	d.logger.Info("database connections closed")
}

// Ping is the liveness check for serving. A SQLite store has one
// connection, owned by the batch transaction while a batch runs; a running
// batch already proves the store works, so Ping reports it healthy without
// waiting for the connection.
func (d *DB) Ping(ctx context.Context, timeout time.Duration) error {
	if d.dialect == dialect.SQLite && d.writers.Load() > 0 {
		d.logger.Debug("ping skipped, batch in progress")
		return nil
	}
	return d.HealthCheck(ctx, timeout)
}

// HealthCheck pings using database/sql to catch DSN issues early.
func (d *DB) HealthCheck(ctx context.Context, timeout time.Duration) error {
	d.logger.Debug("pinging database")
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := d.drv.DB().PingContext(ctx); err != nil {
		d.logger.Error("database ping failed", "error", err)
		return err
	}
	d.logger.Debug("database ping successful")
	return nil
}

// IsConnectionError reports whether err means the store itself is gone,
// as opposed to a single statement failing.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, common.ErrStoreUnavailable) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, sql.ErrTxDone) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() & 0xff {
		case sqlite3.SQLITE_IOERR, sqlite3.SQLITE_CANTOPEN, sqlite3.SQLITE_NOTADB,
			sqlite3.SQLITE_CORRUPT, sqlite3.SQLITE_FULL, sqlite3.SQLITE_READONLY:
			return true
		}
	}
	return false
}
