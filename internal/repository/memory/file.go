package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"cloudfiles/internal/domain"
	"cloudfiles/internal/domain/models/drive"
	driveRepo "cloudfiles/internal/domain/repositories/drive"
)

// FileRepository implements driveRepo.FileRepository on a Store
type FileRepository struct {
	store *Store
}

// NewFileRepository creates a file repository backed by store
func NewFileRepository(store *Store) driveRepo.FileRepository {
	return &FileRepository{store: store}
}

func (r *FileRepository) Upsert(ctx context.Context, file *drive.File) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	now := time.Now()
	if file.CreatedAt.IsZero() {
		file.CreatedAt = now
	}
	if file.UpdatedAt.IsZero() {
		file.UpdatedAt = now
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for id, row := range r.store.files {
		existing := row.file
		if existing.UserID == file.UserID && existing.FolderID == file.FolderID && existing.Name == file.Name {
			existing.URL = file.URL
			existing.Size = file.Size
			existing.ContentType = file.ContentType
			existing.UpdatedAt = file.UpdatedAt
			row.file = existing
			r.store.files[id] = row
			*file = existing
			return false, nil
		}
	}

	if file.ID == "" {
		file.ID = uuid.NewString()
	}
	r.store.files[file.ID] = fileRow{seq: r.store.nextSeq(), file: *file}
	return true, nil
}

func (r *FileRepository) GetByID(ctx context.Context, id, userID string) (*drive.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	row, ok := r.store.files[id]
	if !ok || row.file.UserID != userID {
		return nil, fmt.Errorf("file %s: %w", id, domain.ErrNotFound)
	}
	file := row.file
	return &file, nil
}

func (r *FileRepository) Delete(ctx context.Context, id, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	row, ok := r.store.files[id]
	if !ok || row.file.UserID != userID {
		return fmt.Errorf("file %s: %w", id, domain.ErrNotFound)
	}
	delete(r.store.files, id)
	return nil
}

func (r *FileRepository) ListByFolder(ctx context.Context, folderID, userID string) ([]drive.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	rows := make([]fileRow, 0)
	for _, row := range r.store.files {
		if row.file.UserID == userID && row.file.FolderID == folderID {
			rows = append(rows, row)
		}
	}
	r.store.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].file.CreatedAt.Equal(rows[j].file.CreatedAt) {
			return rows[i].file.CreatedAt.Before(rows[j].file.CreatedAt)
		}
		return rows[i].seq < rows[j].seq
	})

	files := make([]drive.File, 0, len(rows))
	for _, row := range rows {
		files = append(files, row.file)
	}
	return files, nil
}

func (r *FileRepository) FindByName(ctx context.Context, folderID, userID, name string) (*drive.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, row := range r.store.files {
		f := row.file
		if f.UserID == userID && f.FolderID == folderID && f.Name == name {
			return &f, nil
		}
	}
	return nil, nil
}

func (r *FileRepository) ListByURL(ctx context.Context, url string) ([]drive.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	files := []drive.File{}
	for _, row := range r.store.files {
		if row.file.URL == url {
			files = append(files, row.file)
		}
	}
	return files, nil
}

func (r *FileRepository) HasFiles(ctx context.Context, folderID, userID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, row := range r.store.files {
		if row.file.UserID == userID && row.file.FolderID == folderID {
			return true, nil
		}
	}
	return false, nil
}

func (r *FileRepository) ExistsByURL(ctx context.Context, url string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, row := range r.store.files {
		if row.file.URL == url {
			return true, nil
		}
	}
	return false, nil
}
