package drive

import (
	"context"
	"time"

	"cloudfiles/internal/domain/models/drive"
)

// FolderRepository defines data access operations for folders.
// Every operation is scoped to the owning user.
type FolderRepository interface {
	// Create inserts a new folder. ID is generated when empty.
	Create(ctx context.Context, folder *drive.Folder) error

	// GetByID retrieves a folder by ID (domain.ErrNotFound when absent)
	GetByID(ctx context.Context, id, userID string) (*drive.Folder, error)

	// Rename updates only the folder's name
	Rename(ctx context.Context, id, userID, name string, updatedAt time.Time) error

	// Delete deletes a single folder record
	Delete(ctx context.Context, id, userID string) error

	// ListChildren lists immediate child folders in store order (created_at, id)
	ListChildren(ctx context.Context, parentID, userID string) ([]drive.Folder, error)

	// HasChildren reports whether any folder has parentID as parent
	HasChildren(ctx context.Context, parentID, userID string) (bool, error)

	// FindByName returns the sibling with the given name, or nil
	FindByName(ctx context.Context, parentID, userID, name string) (*drive.Folder, error)

	// GetAncestors returns the current ancestor chain of a folder from root
	// (exclusive) to its parent (inclusive), computed from parent links.
	GetAncestors(ctx context.Context, id, userID string) ([]drive.PathEntry, error)
}
