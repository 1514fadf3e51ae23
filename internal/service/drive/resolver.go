package drive

import (
	"context"
	"errors"
	"log/slog"

	"cloudfiles/internal/domain"
	models "cloudfiles/internal/domain/models/drive"
	driveRepo "cloudfiles/internal/domain/repositories/drive"
)

// Resolver maps a folder reference to the canonical current folder record
type Resolver struct {
	folders driveRepo.FolderRepository
	logger  *slog.Logger
}

// NewResolver creates a resolver over the folder repository
func NewResolver(folders driveRepo.FolderRepository, logger *slog.Logger) *Resolver {
	return &Resolver{folders: folders, logger: logger}
}

// Resolve returns the folder addressed by ref with its current ancestor path.
// Root is answered without touching the store. A folder that does not exist
// (or belongs to someone else) yields nil with no error.
func (r *Resolver) Resolve(ctx context.Context, userID string, ref models.FolderRef) (*models.Folder, error) {
	if ref.IsRoot() {
		return models.RootFolder(), nil
	}

	folder, err := r.folders.GetByID(ctx, ref.ID(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	// Stored paths are creation snapshots; ancestors may have been renamed since
	ancestors, err := r.folders.GetAncestors(ctx, folder.ID, userID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		r.logger.Warn("failed to compute folder ancestors, using stored path",
			"folder_id", folder.ID,
			"error", err,
		)
		return folder, nil
	}
	folder.Path = ancestors

	return folder, nil
}

// Seed returns the optimistic state for ref: Root, or a copy of known when it
// is the folder being requested. Otherwise nil.
func (r *Resolver) Seed(ref models.FolderRef, known *models.Folder) *models.Folder {
	if ref.IsRoot() {
		return models.RootFolder()
	}
	if known != nil && known.ID == ref.ID() {
		return known.Clone()
	}
	return nil
}
