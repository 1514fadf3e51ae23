package handler

import (
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"

	models "cloudfiles/internal/domain/models/drive"
	driveSvc "cloudfiles/internal/domain/services/drive"
	"cloudfiles/internal/httputil"
)

// multipartMemory is how much of an upload is held in memory before
// spilling to a temp file
const multipartMemory = 32 << 20

// DriveHandler handles folder and file HTTP requests
type DriveHandler struct {
	driveService   driveSvc.DriveService
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewDriveHandler creates a new drive handler
func NewDriveHandler(driveService driveSvc.DriveService, maxUploadBytes int64, logger *slog.Logger) *DriveHandler {
	return &DriveHandler{
		driveService:   driveService,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// GetFolder returns a folder with its current path
// GET /api/folders/{id} ("root" addresses the top of the tree)
func (h *DriveHandler) GetFolder(w http.ResponseWriter, r *http.Request) {
	folderID, ok := PathParam(w, r, "id", "Folder ID")
	if !ok {
		return
	}

	userID := httputil.GetUserID(r)
	folder, err := h.driveService.GetFolder(r.Context(), userID, models.FolderByID(folderID))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, folder)
}

// ListChildren returns a folder with its child folders and files
// GET /api/folders/{id}/children
func (h *DriveHandler) ListChildren(w http.ResponseWriter, r *http.Request) {
	folderID, ok := PathParam(w, r, "id", "Folder ID")
	if !ok {
		return
	}

	userID := httputil.GetUserID(r)
	contents, err := h.driveService.ListChildren(r.Context(), userID, models.FolderByID(folderID))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, contents)
}

// CreateFolder creates a folder
// POST /api/folders
// Returns 201 if created, 409 with the existing folder if the name is taken
func (h *DriveHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	var req driveSvc.CreateFolderRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.UserID = userID

	folder, err := h.driveService.CreateFolder(r.Context(), &req)
	if err != nil {
		HandleCreateConflict(w, err, func(id string) (*models.Folder, error) {
			return h.driveService.GetFolder(r.Context(), userID, models.FolderByID(id))
		})
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, folder)
}

// RenameFolder renames a folder
// PATCH /api/folders/{id}
func (h *DriveHandler) RenameFolder(w http.ResponseWriter, r *http.Request) {
	folderID, ok := PathParam(w, r, "id", "Folder ID")
	if !ok {
		return
	}

	var req driveSvc.RenameFolderRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.UserID = httputil.GetUserID(r)
	req.FolderID = folderID

	folder, err := h.driveService.RenameFolder(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, folder)
}

// DeleteFolder deletes an empty folder
// DELETE /api/folders/{id}
// Returns 409 when the folder still contains folders or files
func (h *DriveHandler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	folderID, ok := PathParam(w, r, "id", "Folder ID")
	if !ok {
		return
	}

	if err := h.driveService.DeleteFolder(r.Context(), httputil.GetUserID(r), folderID); err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondNoContent(w)
}

// UploadFile stores the multipart "file" part in the folder
// POST /api/folders/{id}/files
// Returns 201 for a new file, 200 when an existing same-named file was replaced
func (h *DriveHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	folderID, ok := PathParam(w, r, "id", "Folder ID")
	if !ok {
		return
	}

	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			handleError(w, err)
			return
		}
		httputil.RespondError(w, http.StatusBadRequest, "expected multipart form with a file field")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	name := r.FormValue("name")
	if name == "" {
		name = header.Filename
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		if byExt := mime.TypeByExtension(filepath.Ext(name)); byExt != "" {
			contentType = byExt
		}
	}

	result, err := h.driveService.UploadFile(r.Context(), &driveSvc.UploadFileRequest{
		UserID:      httputil.GetUserID(r),
		FolderID:    folderID,
		Name:        name,
		ContentType: contentType,
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		handleError(w, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	httputil.RespondJSON(w, status, result)
}

// DeleteFile deletes a file's content and record
// DELETE /api/files/{id}
func (h *DriveHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	fileID, ok := PathParam(w, r, "id", "File ID")
	if !ok {
		return
	}

	if err := h.driveService.DeleteFile(r.Context(), httputil.GetUserID(r), fileID); err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondNoContent(w)
}
