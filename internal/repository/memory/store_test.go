package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cloudfiles/internal/domain"
	"cloudfiles/internal/domain/models/drive"
)

func TestFolderRepositoryScopesByUser(t *testing.T) {
	ctx := context.Background()
	repo := NewFolderRepository(NewStore())

	folder := &drive.Folder{UserID: "u1", ParentID: drive.RootID, Name: "Docs"}
	require.NoError(t, repo.Create(ctx, folder))
	require.NotEmpty(t, folder.ID)

	got, err := repo.GetByID(ctx, folder.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Docs", got.Name)

	_, err = repo.GetByID(ctx, folder.ID, "u2")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	children, err := repo.ListChildren(ctx, drive.RootID, "u2")
	require.NoError(t, err)
	assert.Empty(t, children)
}

func TestListChildrenOrdersByCreation(t *testing.T) {
	ctx := context.Background()
	repo := NewFolderRepository(NewStore())
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	// Same timestamp for b and c: insertion order breaks the tie.
	for _, f := range []struct {
		name string
		at   time.Time
	}{
		{"c", base.Add(time.Minute)},
		{"a", base},
		{"b", base.Add(time.Minute)},
	} {
		require.NoError(t, repo.Create(ctx, &drive.Folder{UserID: "u1", ParentID: drive.RootID, Name: f.name, CreatedAt: f.at}))
	}

	children, err := repo.ListChildren(ctx, drive.RootID, "u1")
	require.NoError(t, err)
	names := make([]string, 0, len(children))
	for _, c := range children {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"a", "c", "b"}, names)
}

func TestGetAncestors(t *testing.T) {
	ctx := context.Background()
	repo := NewFolderRepository(NewStore())

	a := &drive.Folder{UserID: "u1", ParentID: drive.RootID, Name: "A"}
	require.NoError(t, repo.Create(ctx, a))
	b := &drive.Folder{UserID: "u1", ParentID: a.ID, Name: "B"}
	require.NoError(t, repo.Create(ctx, b))
	c := &drive.Folder{UserID: "u1", ParentID: b.ID, Name: "C"}
	require.NoError(t, repo.Create(ctx, c))

	ancestors, err := repo.GetAncestors(ctx, c.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, []drive.PathEntry{{ID: a.ID, Name: "A"}, {ID: b.ID, Name: "B"}}, ancestors)

	require.NoError(t, repo.Rename(ctx, a.ID, "u1", "Alpha", time.Now()))
	ancestors, err = repo.GetAncestors(ctx, c.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Alpha", ancestors[0].Name)

	top, err := repo.GetAncestors(ctx, a.ID, "u1")
	require.NoError(t, err)
	assert.Empty(t, top)
}

func TestFileUpsertKeepsOneRecord(t *testing.T) {
	ctx := context.Background()
	repo := NewFileRepository(NewStore())

	first := &drive.File{UserID: "u1", FolderID: "f1", Name: "a.txt", URL: "http://blob/1", Size: 1}
	created, err := repo.Upsert(ctx, first)
	require.NoError(t, err)
	assert.True(t, created)

	second := &drive.File{UserID: "u1", FolderID: "f1", Name: "a.txt", URL: "http://blob/2", Size: 2}
	created, err = repo.Upsert(ctx, second)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	files, err := repo.ListByFolder(ctx, "f1", "u1")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "http://blob/2", files[0].URL)
	assert.Equal(t, int64(2), files[0].Size)

	exists, err := repo.ExistsByURL(ctx, "http://blob/1")
	require.NoError(t, err)
	assert.False(t, exists)

	has, err := repo.HasFiles(ctx, "f1", "u1")
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, repo.Delete(ctx, first.ID, "u1"))
	err = repo.Delete(ctx, first.ID, "u1")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestExecTxHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := NewTransactionManager().ExecTx(ctx, func(ctx context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
