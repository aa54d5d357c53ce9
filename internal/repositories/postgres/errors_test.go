package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/training-workflow-service/internal/repositories"
)

func TestHandleDBError(t *testing.T) {
	assert.NoError(t, handleDBError(nil, "noop"))

	err := handleDBError(gorm.ErrRecordNotFound, "get uid")
	assert.True(t, repositories.IsNotFoundError(err))
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "uids_pkey"}
	err = handleDBError(fmt.Errorf("insert: %w", pgErr), "create uid")
	assert.ErrorIs(t, err, repositories.ErrDuplicateKey)

	err = handleDBError(gorm.ErrDuplicatedKey, "create uid")
	assert.ErrorIs(t, err, repositories.ErrDuplicateKey)

	other := errors.New("connection reset")
	err = handleDBError(other, "list uids")
	assert.ErrorIs(t, err, other)
	assert.False(t, repositories.IsNotFoundError(err))
	assert.Contains(t, err.Error(), "list uids failed")
}
