package drive

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	models "cloudfiles/internal/domain/models/drive"
	driveSvc "cloudfiles/internal/domain/services/drive"
)

func TestResolveUnknownFolderIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	resolver := NewResolver(env.folders, env.logger)

	for _, id := range []string{"missing", "00000000-0000-0000-0000-000000000000", "../root"} {
		t.Run(id, func(t *testing.T) {
			folder, err := resolver.Resolve(context.Background(), testUser, models.FolderByID(id))
			require.NoError(t, err)
			assert.Nil(t, folder)
		})
	}
}

func TestResolveRootWithoutStoreAccess(t *testing.T) {
	env := newTestEnv(t)
	counting := &countingFolderRepo{FolderRepository: env.folders}
	resolver := NewResolver(counting, env.logger)

	for _, ref := range []models.FolderRef{models.Root(), models.FolderByID(""), models.FolderByID("root")} {
		folder, err := resolver.Resolve(context.Background(), testUser, ref)
		require.NoError(t, err)
		require.NotNil(t, folder)
		assert.True(t, folder.IsRoot())
		assert.Empty(t, folder.Path)
	}

	assert.Zero(t, counting.gets.Load())
	assert.Zero(t, counting.ancestors.Load())
}

func TestResolveNestedFolder(t *testing.T) {
	env := newTestEnv(t)
	a := env.mkdir(t, models.RootID, "A")
	b := env.mkdir(t, a.ID, "B")

	folder, err := NewResolver(env.folders, env.logger).Resolve(context.Background(), testUser, models.FolderByID(b.ID))
	require.NoError(t, err)
	require.NotNil(t, folder)

	assert.Equal(t, "B", folder.Name)
	assert.Equal(t, []models.PathEntry{{ID: a.ID, Name: "A"}}, folder.Path)
}

func TestResolveScopesToUser(t *testing.T) {
	env := newTestEnv(t)
	a := env.mkdir(t, models.RootID, "A")

	folder, err := NewResolver(env.folders, env.logger).Resolve(context.Background(), otherUser, models.FolderByID(a.ID))
	require.NoError(t, err)
	assert.Nil(t, folder)
}

func TestResolveReflectsAncestorRename(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	a := env.mkdir(t, models.RootID, "A")
	b := env.mkdir(t, a.ID, "B")
	c := env.mkdir(t, b.ID, "C")

	_, err := env.service.RenameFolder(ctx, &driveSvc.RenameFolderRequest{UserID: testUser, FolderID: a.ID, Name: "Alpha"})
	require.NoError(t, err)

	folder, err := NewResolver(env.folders, env.logger).Resolve(ctx, testUser, models.FolderByID(c.ID))
	require.NoError(t, err)
	assert.Equal(t, []models.PathEntry{{ID: a.ID, Name: "Alpha"}, {ID: b.ID, Name: "B"}}, folder.Path)

	// The stored creation snapshot is left as written
	stored, err := env.folders.GetByID(ctx, c.ID, testUser)
	require.NoError(t, err)
	assert.Equal(t, "A", stored.Path[0].Name)
}

func TestSeed(t *testing.T) {
	resolver := NewResolver(nil, discardLogger())
	known := &models.Folder{ID: "f1", Name: "Known", Path: []models.PathEntry{{ID: "p", Name: "P"}}}

	assert.True(t, resolver.Seed(models.Root(), known).IsRoot())
	assert.Nil(t, resolver.Seed(models.FolderByID("f2"), known))
	assert.Nil(t, resolver.Seed(models.FolderByID("f1"), nil))

	seeded := resolver.Seed(models.FolderByID("f1"), known)
	require.NotNil(t, seeded)
	assert.Equal(t, "Known", seeded.Name)
	seeded.Path[0].Name = "changed"
	assert.Equal(t, "P", known.Path[0].Name, "seed is a copy")
}
