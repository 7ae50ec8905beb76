package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// MaxSerializableAttempts bounds the optimistic retry loop in InSerializableTx.
const MaxSerializableAttempts = 5

var ErrTooMuchContention = errors.New("transaction aborted after repeated serialization failures")

// InSerializableTx runs fn in a SERIALIZABLE transaction and retries it when
// PostgreSQL aborts it with a serialization failure or deadlock. fn must be
// safe to re-run: it sees a fresh transaction each attempt.
func InSerializableTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	var lastErr error
	for attempt := 0; attempt < MaxSerializableAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt*attempt) * 10 * time.Millisecond):
			}
		}

		lastErr = runTx(ctx, db, fn)
		if lastErr == nil || !IsRetryable(lastErr) {
			return lastErr
		}
	}
	return fmt.Errorf("%w: %v", ErrTooMuchContention, lastErr)
}

func runTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// IsRetryable reports whether err is a serialization_failure or deadlock_detected.
func IsRetryable(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return false
}

func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
