package storage

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/showmeapp/showme/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapPgError(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", Message: `duplicate key value violates unique constraint "maps_pkey"`}
	err := mapPgError(fmt.Errorf("exec: %w", dup))
	require.ErrorIs(t, err, common.ErrDuplicateKey)
	assert.Contains(t, err.Error(), "maps_pkey")

	fk := &pgconn.PgError{Code: "23503", Message: `insert or update on table "pins" violates foreign key constraint "pins_map_id_fkey"`}
	err = mapPgError(fk)
	require.ErrorIs(t, err, common.ErrForeignKey)

	plain := errors.New("connection refused")
	assert.Equal(t, plain, mapPgError(plain))
}
