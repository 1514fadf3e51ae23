package drive

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cloudfiles/internal/changefeed"
	models "cloudfiles/internal/domain/models/drive"
	driveRepo "cloudfiles/internal/domain/repositories/drive"
	driveSvc "cloudfiles/internal/domain/services/drive"
	"cloudfiles/internal/repository/memory"
	"cloudfiles/internal/storage/blob"
)

const (
	testUser  = "user-1"
	otherUser = "user-2"
	blobBase  = "http://localhost:8080/api/blobs"
)

type testEnv struct {
	store   *memory.Store
	folders driveRepo.FolderRepository
	files   driveRepo.FileRepository
	feed    *changefeed.MemoryFeed
	blobs   *blob.LocalStore
	service driveSvc.DriveService
	logger  *slog.Logger
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.NewStore()
	logger := discardLogger()
	blobs, err := blob.NewLocalStore(t.TempDir(), blobBase)
	require.NoError(t, err)

	env := &testEnv{
		store:   store,
		folders: memory.NewFolderRepository(store),
		files:   memory.NewFileRepository(store),
		feed:    changefeed.NewMemoryFeed(64, logger),
		blobs:   blobs,
		logger:  logger,
	}
	env.service = NewDriveService(env.folders, env.files, env.blobs, env.feed, memory.NewTransactionManager(), logger)
	return env
}

func (e *testEnv) watcher(folders driveRepo.FolderRepository, opts ...WatcherOption) *Watcher {
	if folders == nil {
		folders = e.folders
	}
	return NewWatcher(folders, e.files, e.feed, e.logger, opts...)
}

func (e *testEnv) mkdir(t *testing.T, parentID, name string) *models.Folder {
	t.Helper()
	folder, err := e.service.CreateFolder(context.Background(), &driveSvc.CreateFolderRequest{
		UserID:   testUser,
		ParentID: parentID,
		Name:     name,
	})
	require.NoError(t, err)
	return folder
}

func (e *testEnv) upload(t *testing.T, folderID, name, content string) *driveSvc.UploadResult {
	t.Helper()
	result, err := e.service.UploadFile(context.Background(), &driveSvc.UploadFileRequest{
		UserID:      testUser,
		FolderID:    folderID,
		Name:        name,
		ContentType: "text/plain",
		Size:        int64(len(content)),
		Body:        strings.NewReader(content),
	})
	require.NoError(t, err)
	return result
}

// waitForView polls the session until cond holds
func waitForView(t *testing.T, s *Session, cond func(ViewState) bool) ViewState {
	t.Helper()
	var last ViewState
	require.Eventually(t, func() bool {
		last = s.Snapshot()
		return cond(last)
	}, 2*time.Second, 5*time.Millisecond, "view never reached expected state")
	return last
}

func folderNames(folders []models.Folder) []string {
	names := make([]string, 0, len(folders))
	for _, f := range folders {
		names = append(names, f.Name)
	}
	return names
}

func fileNames(files []models.File) []string {
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name)
	}
	return names
}

// countingFolderRepo counts point reads
type countingFolderRepo struct {
	driveRepo.FolderRepository
	gets      atomic.Int64
	ancestors atomic.Int64
}

func (r *countingFolderRepo) GetByID(ctx context.Context, id, userID string) (*models.Folder, error) {
	r.gets.Add(1)
	return r.FolderRepository.GetByID(ctx, id, userID)
}

func (r *countingFolderRepo) GetAncestors(ctx context.Context, id, userID string) ([]models.PathEntry, error) {
	r.ancestors.Add(1)
	return r.FolderRepository.GetAncestors(ctx, id, userID)
}

// gatedFolderRepo holds ListChildren for one parent until release is closed,
// ignoring cancellation, to simulate a late-arriving result
type gatedFolderRepo struct {
	driveRepo.FolderRepository
	parentID string
	release  chan struct{}
	returned chan struct{}
}

func (r *gatedFolderRepo) ListChildren(ctx context.Context, parentID, userID string) ([]models.Folder, error) {
	if parentID != r.parentID {
		return r.FolderRepository.ListChildren(ctx, parentID, userID)
	}
	<-r.release
	defer close(r.returned)
	return r.FolderRepository.ListChildren(context.Background(), parentID, userID)
}

// stalledFileRepo never answers ListByFolder before ctx ends
type stalledFileRepo struct {
	driveRepo.FileRepository
}

func (r *stalledFileRepo) ListByFolder(ctx context.Context, folderID, userID string) ([]models.File, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// failingBlobStore fails every delete
type failingBlobStore struct {
	driveSvc.BlobStore
}

func (f *failingBlobStore) Delete(ctx context.Context, url string) error {
	return errors.New("object storage unavailable")
}

// readBlob returns the content stored at url
func (e *testEnv) readBlob(t *testing.T, url string) string {
	t.Helper()
	key, err := blob.KeyFromURL(blobBase, url)
	require.NoError(t, err)
	r, _, err := e.blobs.Open(context.Background(), key)
	require.NoError(t, err)
	defer r.Close()
	content, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(content)
}
