package drive

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cloudfiles/internal/domain"
	models "cloudfiles/internal/domain/models/drive"
	driveRepo "cloudfiles/internal/domain/repositories/drive"
	"cloudfiles/internal/repository/postgres"
)

const testUser = "user-1"

// newRepos connects to TEST_DATABASE_URL and creates throwaway tables.
// Tests are skipped when no database is configured.
func newRepos(t *testing.T) (driveRepo.FolderRepository, driveRepo.FileRepository) {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, dsn)
	require.NoError(t, err)

	prefix := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8] + "_"
	tables := postgres.NewTableNames(prefix)
	require.NoError(t, postgres.EnsureSchema(ctx, pool, tables))
	t.Cleanup(func() {
		_ = postgres.DropSchema(context.Background(), pool, tables)
		pool.Close()
	})

	cfg := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return NewFolderRepository(cfg), NewFileRepository(cfg)
}

func newFolder(t *testing.T, repo driveRepo.FolderRepository, parentID, name string, path []models.PathEntry) *models.Folder {
	t.Helper()
	now := time.Now()
	folder := &models.Folder{
		UserID:    testUser,
		ParentID:  parentID,
		Name:      name,
		Path:      path,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, repo.Create(context.Background(), folder))
	return folder
}

func newFile(folderID, name, url string) *models.File {
	now := time.Now()
	return &models.File{
		UserID:      testUser,
		FolderID:    folderID,
		Name:        name,
		URL:         url,
		Size:        1,
		ContentType: "text/plain",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestFileUpsertInsertsThenUpdates(t *testing.T) {
	ctx := context.Background()
	_, files := newRepos(t)

	first := newFile(models.RootID, "doc.txt", "http://blob/1")
	created, err := files.Upsert(ctx, first)
	require.NoError(t, err)
	assert.True(t, created)

	second := newFile(models.RootID, "doc.txt", "http://blob/2")
	created, err = files.Upsert(ctx, second)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID, "update keeps the existing record")

	listed, err := files.ListByFolder(ctx, models.RootID, testUser)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "http://blob/2", listed[0].URL)

	found, err := files.FindByName(ctx, models.RootID, testUser, "doc.txt")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, first.ID, found.ID)

	missing, err := files.FindByName(ctx, models.RootID, testUser, "nope.txt")
	require.NoError(t, err)
	assert.Nil(t, missing)

	refs, err := files.ListByURL(ctx, "http://blob/2")
	require.NoError(t, err)
	assert.Len(t, refs, 1)
	refs, err = files.ListByURL(ctx, "http://blob/1")
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestGetAncestorsFollowsRenames(t *testing.T) {
	ctx := context.Background()
	folders, _ := newRepos(t)

	a := newFolder(t, folders, models.RootID, "A", nil)
	b := newFolder(t, folders, a.ID, "B", []models.PathEntry{{ID: a.ID, Name: "A"}})
	c := newFolder(t, folders, b.ID, "C", []models.PathEntry{{ID: a.ID, Name: "A"}, {ID: b.ID, Name: "B"}})

	ancestors, err := folders.GetAncestors(ctx, c.ID, testUser)
	require.NoError(t, err)
	assert.Equal(t, []models.PathEntry{{ID: a.ID, Name: "A"}, {ID: b.ID, Name: "B"}}, ancestors)

	require.NoError(t, folders.Rename(ctx, a.ID, testUser, "Alpha", time.Now()))
	ancestors, err = folders.GetAncestors(ctx, c.ID, testUser)
	require.NoError(t, err)
	assert.Equal(t, []models.PathEntry{{ID: a.ID, Name: "Alpha"}, {ID: b.ID, Name: "B"}}, ancestors)

	top, err := folders.GetAncestors(ctx, a.ID, testUser)
	require.NoError(t, err)
	assert.Empty(t, top)

	other, err := folders.GetAncestors(ctx, c.ID, "someone-else")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestSiblingNamesAreUnique(t *testing.T) {
	ctx := context.Background()
	folders, _ := newRepos(t)

	newFolder(t, folders, models.RootID, "A", nil)
	b := newFolder(t, folders, models.RootID, "B", nil)

	now := time.Now()
	dup := &models.Folder{UserID: testUser, ParentID: models.RootID, Name: "A", CreatedAt: now, UpdatedAt: now}
	assert.ErrorIs(t, folders.Create(ctx, dup), domain.ErrConflict)
	assert.ErrorIs(t, folders.Rename(ctx, b.ID, testUser, "A", now), domain.ErrConflict)
}
