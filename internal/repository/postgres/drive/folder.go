package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cloudfiles/internal/config"
	"cloudfiles/internal/domain"
	models "cloudfiles/internal/domain/models/drive"
	driveRepo "cloudfiles/internal/domain/repositories/drive"
	"cloudfiles/internal/repository/postgres"
)

// PostgresFolderRepository implements the FolderRepository interface
type PostgresFolderRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewFolderRepository creates a new folder repository
func NewFolderRepository(cfg *postgres.RepositoryConfig) driveRepo.FolderRepository {
	return &PostgresFolderRepository{
		pool:   cfg.Pool,
		tables: cfg.Tables,
	}
}

const folderColumns = `id, user_id, parent_id, name, path, created_at, updated_at`

// Create creates a new folder
func (r *PostgresFolderRepository) Create(ctx context.Context, folder *models.Folder) error {
	if folder.ID == "" {
		folder.ID = uuid.NewString()
	}
	if folder.Path == nil {
		folder.Path = []models.PathEntry{}
	}

	path, err := json.Marshal(folder.Path)
	if err != nil {
		return fmt.Errorf("encode folder path: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, user_id, parent_id, name, path, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, r.tables.Folders)

	executor := postgres.GetExecutor(ctx, r.pool)
	err = executor.QueryRow(ctx, query,
		folder.ID,
		folder.UserID,
		folder.ParentID,
		folder.Name,
		string(path),
		folder.CreatedAt,
		folder.UpdatedAt,
	).Scan(&folder.CreatedAt, &folder.UpdatedAt)

	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return fmt.Errorf("folder '%s': %w", folder.Name, domain.ErrConflict)
		}
		return fmt.Errorf("create folder: %w", err)
	}

	return nil
}

// GetByID retrieves a folder by ID
func (r *PostgresFolderRepository) GetByID(ctx context.Context, id, userID string) (*models.Folder, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1 AND user_id = $2
	`, folderColumns, r.tables.Folders)

	executor := postgres.GetExecutor(ctx, r.pool)
	folder, err := scanFolder(executor.QueryRow(ctx, query, id, userID))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get folder: %w", err)
	}

	return folder, nil
}

// Rename updates only the folder's name
func (r *PostgresFolderRepository) Rename(ctx context.Context, id, userID, name string, updatedAt time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET name = $1, updated_at = $2
		WHERE id = $3 AND user_id = $4
	`, r.tables.Folders)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, name, updatedAt, id, userID)
	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return fmt.Errorf("folder '%s': %w", name, domain.ErrConflict)
		}
		return fmt.Errorf("rename folder: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// Delete deletes a folder
func (r *PostgresFolderRepository) Delete(ctx context.Context, id, userID string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE id = $1 AND user_id = $2
	`, r.tables.Folders)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("delete folder: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// ListChildren lists immediate child folders
func (r *PostgresFolderRepository) ListChildren(ctx context.Context, parentID, userID string) ([]models.Folder, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE user_id = $1 AND parent_id = $2
		ORDER BY created_at ASC, id ASC
	`, folderColumns, r.tables.Folders)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userID, parentID)
	if err != nil {
		return nil, fmt.Errorf("list folder children: %w", err)
	}
	defer rows.Close()

	folders := []models.Folder{}
	for rows.Next() {
		folder, err := scanFolder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		folders = append(folders, *folder)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate folders: %w", err)
	}

	return folders, nil
}

// HasChildren reports whether the folder has at least one child folder
func (r *PostgresFolderRepository) HasChildren(ctx context.Context, parentID, userID string) (bool, error) {
	query := fmt.Sprintf(`
		SELECT EXISTS (SELECT 1 FROM %s WHERE user_id = $1 AND parent_id = $2)
	`, r.tables.Folders)

	var exists bool
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, userID, parentID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check child folders: %w", err)
	}

	return exists, nil
}

// FindByName returns the sibling folder with the given name, or nil
func (r *PostgresFolderRepository) FindByName(ctx context.Context, parentID, userID, name string) (*models.Folder, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE user_id = $1 AND parent_id = $2 AND name = $3
		LIMIT 1
	`, folderColumns, r.tables.Folders)

	executor := postgres.GetExecutor(ctx, r.pool)
	folder, err := scanFolder(executor.QueryRow(ctx, query, userID, parentID, name))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, nil // Not found, not an error
		}
		return nil, fmt.Errorf("get folder by name and parent: %w", err)
	}

	return folder, nil
}

// GetAncestors computes the ancestor chain using a recursive CTE.
// Depth 0 is the folder itself and is excluded; the topmost ancestor comes first.
func (r *PostgresFolderRepository) GetAncestors(ctx context.Context, id, userID string) ([]models.PathEntry, error) {
	query := fmt.Sprintf(`
		WITH RECURSIVE chain AS (
			SELECT id, parent_id, name, 0 AS depth
			FROM %s
			WHERE id = $1 AND user_id = $2
			UNION ALL
			SELECT f.id, f.parent_id, f.name, c.depth + 1
			FROM %s f
			JOIN chain c ON f.id = c.parent_id
			WHERE f.user_id = $2 AND c.depth < $3
		)
		SELECT id, name FROM chain
		WHERE depth > 0
		ORDER BY depth DESC
	`, r.tables.Folders, r.tables.Folders)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, id, userID, config.MaxFolderDepth)
	if err != nil {
		return nil, fmt.Errorf("get folder ancestors: %w", err)
	}
	defer rows.Close()

	ancestors := []models.PathEntry{}
	for rows.Next() {
		var entry models.PathEntry
		if err := rows.Scan(&entry.ID, &entry.Name); err != nil {
			return nil, fmt.Errorf("scan ancestor: %w", err)
		}
		ancestors = append(ancestors, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ancestors: %w", err)
	}

	return ancestors, nil
}

// scanFolder scans one folder row (pgx.Row and pgx.Rows both satisfy pgx.Row)
func scanFolder(row pgx.Row) (*models.Folder, error) {
	var folder models.Folder
	var path []byte
	err := row.Scan(
		&folder.ID,
		&folder.UserID,
		&folder.ParentID,
		&folder.Name,
		&path,
		&folder.CreatedAt,
		&folder.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	folder.Path = []models.PathEntry{}
	if len(path) > 0 {
		if err := json.Unmarshal(path, &folder.Path); err != nil {
			return nil, fmt.Errorf("decode folder path: %w", err)
		}
	}

	return &folder, nil
}
