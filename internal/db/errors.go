package db

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/ttms-project/backend/internal/store"
)

// PostgreSQL error codes
const (
	pgErrUniqueViolation      = "23505"
	pgErrDeadlockDetected     = "40P01"
	pgErrSerializationFailure = "40001"
)

// maxTxAttempts bounds the retries of a transaction that lost a deadlock.
const maxTxAttempts = 5

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isDuplicateKeyError(err error) bool {
	return pgCode(err) == pgErrUniqueViolation || errors.Is(err, gorm.ErrDuplicatedKey)
}

func isRetryableTxError(err error) bool {
	code := pgCode(err)
	return code == pgErrDeadlockDetected || code == pgErrSerializationFailure
}

// translate maps driver errors onto the store sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	case isDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", store.ErrDuplicateKey, err)
	}
	return err
}

// withTx runs fn in a transaction, retrying on deadlock and serialization failures.
func withTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = db.WithContext(ctx).Transaction(fn)
		if err == nil || !isRetryableTxError(err) {
			break
		}
		backoff := time.Duration(attempt*100+rand.Intn(100)) * time.Millisecond
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return translate(err)
}
