package drive

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cloudfiles/internal/domain"
	models "cloudfiles/internal/domain/models/drive"
	driveRepo "cloudfiles/internal/domain/repositories/drive"
	"cloudfiles/internal/repository/postgres"
)

// PostgresFileRepository implements the FileRepository interface
type PostgresFileRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewFileRepository creates a new file repository
func NewFileRepository(cfg *postgres.RepositoryConfig) driveRepo.FileRepository {
	return &PostgresFileRepository{
		pool:   cfg.Pool,
		tables: cfg.Tables,
	}
}

const fileColumns = `id, user_id, folder_id, name, url, size, content_type, created_at, updated_at`

// Upsert inserts a file record or refreshes the existing (user, folder, name) record.
// xmax = 0 only holds for freshly inserted tuples, which tells the two paths apart.
func (r *PostgresFileRepository) Upsert(ctx context.Context, file *models.File) (bool, error) {
	if file.ID == "" {
		file.ID = uuid.NewString()
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, user_id, folder_id, name, url, size, content_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, folder_id, name) DO UPDATE
		SET url = EXCLUDED.url,
			size = EXCLUDED.size,
			content_type = EXCLUDED.content_type,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, updated_at, (xmax = 0) AS inserted
	`, r.tables.Files)

	var inserted bool
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		file.ID,
		file.UserID,
		file.FolderID,
		file.Name,
		file.URL,
		file.Size,
		file.ContentType,
		file.CreatedAt,
		file.UpdatedAt,
	).Scan(&file.ID, &file.CreatedAt, &file.UpdatedAt, &inserted)
	if err != nil {
		return false, fmt.Errorf("upsert file: %w", err)
	}

	return inserted, nil
}

// GetByID retrieves a file by ID
func (r *PostgresFileRepository) GetByID(ctx context.Context, id, userID string) (*models.File, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1 AND user_id = $2
	`, fileColumns, r.tables.Files)

	executor := postgres.GetExecutor(ctx, r.pool)
	file, err := scanFile(executor.QueryRow(ctx, query, id, userID))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("file %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get file: %w", err)
	}

	return file, nil
}

// Delete deletes a file record
func (r *PostgresFileRepository) Delete(ctx context.Context, id, userID string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE id = $1 AND user_id = $2
	`, r.tables.Files)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("file %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// ListByFolder lists files in a folder
func (r *PostgresFileRepository) ListByFolder(ctx context.Context, folderID, userID string) ([]models.File, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE user_id = $1 AND folder_id = $2
		ORDER BY created_at ASC, id ASC
	`, fileColumns, r.tables.Files)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userID, folderID)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	files := []models.File{}
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, *file)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate files: %w", err)
	}

	return files, nil
}

// FindByName returns the file with the given name in a folder, or nil
func (r *PostgresFileRepository) FindByName(ctx context.Context, folderID, userID, name string) (*models.File, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE user_id = $1 AND folder_id = $2 AND name = $3
	`, fileColumns, r.tables.Files)

	executor := postgres.GetExecutor(ctx, r.pool)
	file, err := scanFile(executor.QueryRow(ctx, query, userID, folderID, name))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, nil // Not found, not an error
		}
		return nil, fmt.Errorf("get file by name: %w", err)
	}

	return file, nil
}

// ListByURL returns the records that reference url
func (r *PostgresFileRepository) ListByURL(ctx context.Context, url string) ([]models.File, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE url = $1
		ORDER BY created_at ASC, id ASC
	`, fileColumns, r.tables.Files)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, url)
	if err != nil {
		return nil, fmt.Errorf("list files by url: %w", err)
	}
	defer rows.Close()

	files := []models.File{}
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, *file)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate files: %w", err)
	}

	return files, nil
}

// HasFiles reports whether the folder contains at least one file
func (r *PostgresFileRepository) HasFiles(ctx context.Context, folderID, userID string) (bool, error) {
	query := fmt.Sprintf(`
		SELECT EXISTS (SELECT 1 FROM %s WHERE user_id = $1 AND folder_id = $2)
	`, r.tables.Files)

	var exists bool
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, userID, folderID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check child files: %w", err)
	}

	return exists, nil
}

// ExistsByURL reports whether any file record references url
func (r *PostgresFileRepository) ExistsByURL(ctx context.Context, url string) (bool, error) {
	query := fmt.Sprintf(`
		SELECT EXISTS (SELECT 1 FROM %s WHERE url = $1)
	`, r.tables.Files)

	var exists bool
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, url).Scan(&exists); err != nil {
		return false, fmt.Errorf("check file url: %w", err)
	}

	return exists, nil
}

func scanFile(row pgx.Row) (*models.File, error) {
	var file models.File
	err := row.Scan(
		&file.ID,
		&file.UserID,
		&file.FolderID,
		&file.Name,
		&file.URL,
		&file.Size,
		&file.ContentType,
		&file.CreatedAt,
		&file.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &file, nil
}
