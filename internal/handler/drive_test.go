package handler

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cloudfiles/internal/changefeed"
	models "cloudfiles/internal/domain/models/drive"
	driveSvc "cloudfiles/internal/domain/services/drive"
	"cloudfiles/internal/handler/sse"
	"cloudfiles/internal/middleware"
	"cloudfiles/internal/repository/memory"
	driveService "cloudfiles/internal/service/drive"
	"cloudfiles/internal/storage/blob"
)

const testUser = "user-1"

func newTestServer(t *testing.T, userID string) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewStore()
	folders := memory.NewFolderRepository(store)
	files := memory.NewFileRepository(store)
	feed := changefeed.NewMemoryFeed(64, logger)

	srv := httptest.NewUnstartedServer(nil)
	baseURL := "http://" + srv.Listener.Addr().String() + "/api/blobs"
	blobs, err := blob.NewLocalStore(t.TempDir(), baseURL)
	require.NoError(t, err)

	service := driveService.NewDriveService(folders, files, blobs, feed, memory.NewTransactionManager(), logger)
	watcher := driveService.NewWatcher(folders, files, feed, logger)

	mux := http.NewServeMux()
	RegisterRoutes(mux, &Handlers{
		Drive: NewDriveHandler(service, 1<<20, logger),
		Watch: NewWatchHandler(watcher, &sse.Config{KeepAliveInterval: time.Hour}, logger),
		Blob:  NewBlobHandler(blobs, logger),
	})

	srv.Config.Handler = middleware.DevAuthMiddleware(userID)(mux)
	srv.Start()
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, srv *httptest.Server, method, path string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func uploadFile(t *testing.T, srv *httptest.Server, folderID, name, content string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = io.WriteString(part, content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/folders/"+folderID+"/files", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestFolderLifecycle(t *testing.T) {
	srv := newTestServer(t, testUser)

	resp := doJSON(t, srv, http.MethodGet, "/api/folders/root", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	root := decode[models.Folder](t, resp)
	assert.Equal(t, models.RootID, root.ID)
	assert.Empty(t, root.Path)

	resp = doJSON(t, srv, http.MethodPost, "/api/folders", map[string]string{"name": "A", "parent_id": "root"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	a := decode[models.Folder](t, resp)

	resp = doJSON(t, srv, http.MethodPost, "/api/folders", map[string]string{"name": "B", "parent_id": a.ID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	b := decode[models.Folder](t, resp)

	resp = doJSON(t, srv, http.MethodGet, "/api/folders/"+b.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[models.Folder](t, resp)
	assert.Equal(t, "B", got.Name)
	assert.Equal(t, []models.PathEntry{{ID: a.ID, Name: "A"}}, got.Path)

	// Duplicate name returns the existing folder
	resp = doJSON(t, srv, http.MethodPost, "/api/folders", map[string]string{"name": "A"})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, a.ID, decode[models.Folder](t, resp).ID)

	resp = doJSON(t, srv, http.MethodPatch, "/api/folders/"+a.ID, map[string]string{"name": "Alpha"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Alpha", decode[models.Folder](t, resp).Name)

	resp = doJSON(t, srv, http.MethodDelete, "/api/folders/"+a.ID, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = doJSON(t, srv, http.MethodDelete, "/api/folders/"+b.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, srv, http.MethodGet, "/api/folders/"+b.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"))
}

func TestCreateFolderValidation(t *testing.T) {
	srv := newTestServer(t, testUser)

	resp := doJSON(t, srv, http.MethodPost, "/api/folders", map[string]string{"name": "a/b"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, srv, http.MethodPost, "/api/folders", map[string]string{"name": "x", "parent_id": "missing"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUploadDownloadDelete(t *testing.T) {
	srv := newTestServer(t, testUser)

	resp := uploadFile(t, srv, "root", "notes.txt", "v1")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	first := decode[driveSvc.UploadResult](t, resp)
	assert.True(t, first.Created)
	assert.True(t, strings.HasPrefix(first.File.ContentType, "text/plain"), first.File.ContentType)

	resp = uploadFile(t, srv, "root", "notes.txt", "version two")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	second := decode[driveSvc.UploadResult](t, resp)
	assert.Equal(t, first.File.ID, second.File.ID)

	resp = doJSON(t, srv, http.MethodGet, "/api/folders/root/children", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	contents := decode[driveSvc.FolderContents](t, resp)
	require.Len(t, contents.Files, 1)

	download, err := srv.Client().Get(second.File.URL)
	require.NoError(t, err)
	defer download.Body.Close()
	require.Equal(t, http.StatusOK, download.StatusCode)
	body, err := io.ReadAll(download.Body)
	require.NoError(t, err)
	assert.Equal(t, "version two", string(body))

	resp = doJSON(t, srv, http.MethodDelete, "/api/files/"+second.File.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	gone, err := srv.Client().Get(second.File.URL)
	require.NoError(t, err)
	defer gone.Body.Close()
	assert.Equal(t, http.StatusNotFound, gone.StatusCode)
}

func TestUploadRootFileNamedLikeFolder(t *testing.T) {
	srv := newTestServer(t, testUser)

	resp := doJSON(t, srv, http.MethodPost, "/api/folders", map[string]string{"name": "A"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	a := decode[models.Folder](t, resp)

	resp = uploadFile(t, srv, a.ID, "doc.txt", "inside")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = uploadFile(t, srv, "root", "A", "root file")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	result := decode[driveSvc.UploadResult](t, resp)

	download, err := srv.Client().Get(result.File.URL)
	require.NoError(t, err)
	defer download.Body.Close()
	require.Equal(t, http.StatusOK, download.StatusCode)
	body, err := io.ReadAll(download.Body)
	require.NoError(t, err)
	assert.Equal(t, "root file", string(body))
}

func TestUploadTooLarge(t *testing.T) {
	srv := newTestServer(t, testUser)

	resp := uploadFile(t, srv, "root", "big.bin", strings.Repeat("x", 1<<20+4096))
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestBlobsAreOwnerScoped(t *testing.T) {
	srv := newTestServer(t, testUser)

	resp := doJSON(t, srv, http.MethodGet, "/api/blobs/files/someone-else/secret.txt", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWatchFolderStreamsViews(t *testing.T) {
	srv := newTestServer(t, testUser)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/folders/root/watch", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	views := make(chan driveService.ViewState, 16)
	go func() {
		defer close(views)
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64<<10), 1<<20)
		for scanner.Scan() {
			data, ok := strings.CutPrefix(scanner.Text(), "data: ")
			if !ok {
				continue
			}
			var view driveService.ViewState
			if json.Unmarshal([]byte(data), &view) != nil {
				continue
			}
			select {
			case views <- view:
			case <-ctx.Done():
				return
			}
		}
	}()

	waitFor := func(cond func(driveService.ViewState) bool) {
		t.Helper()
		timeout := time.After(2 * time.Second)
		for {
			select {
			case v, ok := <-views:
				require.True(t, ok, "stream ended")
				if cond(v) {
					return
				}
			case <-timeout:
				t.Fatal("expected view never arrived")
			}
		}
	}

	waitFor(func(v driveService.ViewState) bool { return v.Ready })

	created := doJSON(t, srv, http.MethodPost, "/api/folders", map[string]string{"name": "Live"})
	require.Equal(t, http.StatusCreated, created.StatusCode)

	waitFor(func(v driveService.ViewState) bool {
		return len(v.Folders) == 1 && v.Folders[0].Name == "Live"
	})
}
