package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors - match with errors.Is()
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// ErrFolderNotEmpty is returned when deleting a folder that still has
// child folders or files. Matches ErrConflict.
var ErrFolderNotEmpty = fmt.Errorf("cannot delete folder that contains files or folders: %w", ErrConflict)

// ConflictError reports a name collision and the resource that already holds the name
type ConflictError struct {
	Message      string
	ResourceType string // "folder" or "file"
	ResourceID   string
}

// Error implements the error interface
func (e *ConflictError) Error() string {
	return e.Message
}

// Is allows errors.Is() to match against ErrConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}
