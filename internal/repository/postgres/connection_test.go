package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTableNames(t *testing.T) {
	tables := NewTableNames("dev_")
	assert.Equal(t, "dev_folders", tables.Folders)
	assert.Equal(t, "dev_files", tables.Files)

	prod := NewTableNames("")
	assert.Equal(t, "folders", prod.Folders)
}

func TestErrorClassification(t *testing.T) {
	dup := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})
	assert.True(t, IsPgDuplicateError(dup))
	assert.False(t, IsPgDuplicateError(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsPgDuplicateError(errors.New("boom")))

	assert.True(t, IsPgNoRowsError(fmt.Errorf("get: %w", pgx.ErrNoRows)))
	assert.False(t, IsPgNoRowsError(errors.New("boom")))
}

func TestCreateConnectionPoolRejectsBadURL(t *testing.T) {
	_, err := CreateConnectionPool(context.Background(), "")
	require.Error(t, err)

	_, err = CreateConnectionPool(context.Background(), "postgres://%zz")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse connection string")
}
