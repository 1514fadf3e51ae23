package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConflictErrorMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("create: %w", &ConflictError{Message: "folder 'A' already exists", ResourceType: "folder", ResourceID: "f1"})

	assert.ErrorIs(t, err, ErrConflict)
	assert.NotErrorIs(t, err, ErrNotFound)

	var conflict *ConflictError
	assert.True(t, errors.As(err, &conflict))
	assert.Equal(t, "f1", conflict.ResourceID)
}

func TestFolderNotEmptyIsConflict(t *testing.T) {
	assert.ErrorIs(t, ErrFolderNotEmpty, ErrConflict)
}
