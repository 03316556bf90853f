package db

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/ttms-project/backend/internal/store"
)

func TestTranslate(t *testing.T) {
	dup := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", Message: "duplicate key value"})
	assert.ErrorIs(t, translate(dup), store.ErrDuplicateKey)
	assert.ErrorIs(t, translate(gorm.ErrRecordNotFound), store.ErrNotFound)
	assert.NoError(t, translate(nil))

	other := &pgconn.PgError{Code: "42P01"}
	assert.Equal(t, error(other), translate(other))
}

func TestRetryableTxErrors(t *testing.T) {
	assert.True(t, isRetryableTxError(&pgconn.PgError{Code: "40P01"}))
	assert.True(t, isRetryableTxError(fmt.Errorf("commit: %w", &pgconn.PgError{Code: "40001"})))
	assert.False(t, isRetryableTxError(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isRetryableTxError(fmt.Errorf("plain")))
}
