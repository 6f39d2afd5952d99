package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pharmaflow/pharmaflow/internal/shared"
)

const conflictRetryDelay = 50 * time.Millisecond

// WithTx executes a function within a transaction using the
// RepeatableRead isolation level. A transaction that hits row-lock
// contention or a serialization failure is retried once after a short
// backoff; if the retry also conflicts, the conflict surfaces to the
// caller.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	return retryOnConflict(ctx, conflictRetryDelay, func() error {
		return runTx(ctx, pool, fn)
	})
}

func retryOnConflict(ctx context.Context, delay time.Duration, attempt func() error) error {
	err := attempt()
	if !errors.Is(err, shared.ErrConflict) {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
	}
	return attempt()
}

func runTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return MapLockError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return MapLockError(fmt.Errorf("platform/db: commit tx: %w", err))
	}

	return nil
}

// Postgres error codes surfaced by FOR UPDATE NOWAIT and serialization failures.
const (
	pgLockNotAvailable     = "55P03"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUniqueViolation      = "23505"
)

// MapLockError translates row-lock contention into the retryable conflict error.
func MapLockError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgLockNotAvailable, pgSerializationFailure, pgDeadlockDetected:
			return fmt.Errorf("%w: %s", shared.ErrConflict, pgErr.Message)
		}
	}
	return err
}

// IsUniqueViolation reports whether err is a unique-constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
