package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/joseph-ayodele/efris-reports/internal/common"
	"github.com/joseph-ayodele/efris-reports/internal/repository"
)

// DefaultOpenTries bounds OpenStore's attempts.
const DefaultOpenTries = 5

// OpenStore opens the configured store, retrying with exponential backoff
// while it is unreachable. Configuration and schema errors are not retried.
func OpenStore(ctx context.Context, cfg common.DatabaseConfig, tries uint, logger *slog.Logger) (*repository.DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if tries == 0 {
		tries = DefaultOpenTries
	}
	rc := repository.Config{
		Driver:      cfg.Driver,
		FilePath:    cfg.FilePath,
		DSN:         cfg.DSN,
		Table:       cfg.Table,
		BusyTimeout: cfg.BusyTimeout,
		DialTimeout: cfg.DialTimeout,
		MaxConns:    cfg.MaxConns,
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 5 * time.Second

	return backoff.Retry(ctx, func() (*repository.DB, error) {
		db, err := repository.Open(ctx, rc, logger)
		if err != nil && !errors.Is(err, common.ErrStoreUnavailable) {
			return nil, backoff.Permanent(err)
		}
		return db, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(tries),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Warn("store not reachable, retrying", "error", err, "retry_in", next)
		}),
	)
}
