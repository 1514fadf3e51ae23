package drive

import (
	"context"

	"cloudfiles/internal/domain/models/drive"
)

// FileRepository defines data access operations for file records
type FileRepository interface {
	// Upsert inserts the file or, when a record with the same
	// (user_id, folder_id, name) exists, updates its url, size and content type.
	// On return file holds the stored record. created reports an insert.
	Upsert(ctx context.Context, file *drive.File) (created bool, err error)

	// GetByID retrieves a file by ID (domain.ErrNotFound when absent)
	GetByID(ctx context.Context, id, userID string) (*drive.File, error)

	// Delete deletes a file record
	Delete(ctx context.Context, id, userID string) error

	// ListByFolder lists files in a folder in store order (created_at, id)
	ListByFolder(ctx context.Context, folderID, userID string) ([]drive.File, error)

	// FindByName returns the file named name in folderID, or nil when absent
	FindByName(ctx context.Context, folderID, userID, name string) (*drive.File, error)

	// ListByURL returns every record that references url
	ListByURL(ctx context.Context, url string) ([]drive.File, error)

	// HasFiles reports whether any file lives in folderID
	HasFiles(ctx context.Context, folderID, userID string) (bool, error)

	// ExistsByURL reports whether any record references url
	ExistsByURL(ctx context.Context, url string) (bool, error)
}
