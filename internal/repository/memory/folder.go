package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"cloudfiles/internal/config"
	"cloudfiles/internal/domain"
	"cloudfiles/internal/domain/models/drive"
	driveRepo "cloudfiles/internal/domain/repositories/drive"
)

// FolderRepository implements driveRepo.FolderRepository on a Store
type FolderRepository struct {
	store *Store
}

// NewFolderRepository creates a folder repository backed by store
func NewFolderRepository(store *Store) driveRepo.FolderRepository {
	return &FolderRepository{store: store}
}

func (r *FolderRepository) Create(ctx context.Context, folder *drive.Folder) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if folder.ID == "" {
		folder.ID = uuid.NewString()
	}
	if folder.Path == nil {
		folder.Path = []drive.PathEntry{}
	}
	now := time.Now()
	if folder.CreatedAt.IsZero() {
		folder.CreatedAt = now
	}
	if folder.UpdatedAt.IsZero() {
		folder.UpdatedAt = now
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.folders[folder.ID]; exists {
		return fmt.Errorf("folder '%s': %w", folder.Name, domain.ErrConflict)
	}
	r.store.folders[folder.ID] = folderRow{seq: r.store.nextSeq(), folder: *folder.Clone()}
	return nil
}

func (r *FolderRepository) GetByID(ctx context.Context, id, userID string) (*drive.Folder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	row, ok := r.store.folders[id]
	if !ok || row.folder.UserID != userID {
		return nil, fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}
	return row.folder.Clone(), nil
}

func (r *FolderRepository) Rename(ctx context.Context, id, userID, name string, updatedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	row, ok := r.store.folders[id]
	if !ok || row.folder.UserID != userID {
		return fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}
	row.folder.Name = name
	row.folder.UpdatedAt = updatedAt
	r.store.folders[id] = row
	return nil
}

func (r *FolderRepository) Delete(ctx context.Context, id, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	row, ok := r.store.folders[id]
	if !ok || row.folder.UserID != userID {
		return fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}
	delete(r.store.folders, id)
	return nil
}

func (r *FolderRepository) ListChildren(ctx context.Context, parentID, userID string) ([]drive.Folder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	rows := make([]folderRow, 0)
	for _, row := range r.store.folders {
		if row.folder.UserID == userID && row.folder.ParentID == parentID {
			rows = append(rows, row)
		}
	}
	r.store.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].folder.CreatedAt.Equal(rows[j].folder.CreatedAt) {
			return rows[i].folder.CreatedAt.Before(rows[j].folder.CreatedAt)
		}
		return rows[i].seq < rows[j].seq
	})

	folders := make([]drive.Folder, 0, len(rows))
	for _, row := range rows {
		folders = append(folders, *row.folder.Clone())
	}
	return folders, nil
}

func (r *FolderRepository) HasChildren(ctx context.Context, parentID, userID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, row := range r.store.folders {
		if row.folder.UserID == userID && row.folder.ParentID == parentID {
			return true, nil
		}
	}
	return false, nil
}

func (r *FolderRepository) FindByName(ctx context.Context, parentID, userID, name string) (*drive.Folder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, row := range r.store.folders {
		f := row.folder
		if f.UserID == userID && f.ParentID == parentID && f.Name == name {
			return f.Clone(), nil
		}
	}
	return nil, nil
}

// GetAncestors walks parent links up to the root marker
func (r *FolderRepository) GetAncestors(ctx context.Context, id, userID string) ([]drive.PathEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	row, ok := r.store.folders[id]
	if !ok || row.folder.UserID != userID {
		return []drive.PathEntry{}, nil
	}

	var reversed []drive.PathEntry
	parentID := row.folder.ParentID
	for depth := 0; parentID != drive.RootID && depth < config.MaxFolderDepth; depth++ {
		parent, ok := r.store.folders[parentID]
		if !ok || parent.folder.UserID != userID {
			break
		}
		reversed = append(reversed, drive.PathEntry{ID: parent.folder.ID, Name: parent.folder.Name})
		parentID = parent.folder.ParentID
	}

	ancestors := make([]drive.PathEntry, 0, len(reversed))
	for i := len(reversed) - 1; i >= 0; i-- {
		ancestors = append(ancestors, reversed[i])
	}
	return ancestors, nil
}
