package handler

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"path"

	driveSvc "cloudfiles/internal/domain/services/drive"
	"cloudfiles/internal/httputil"
	"cloudfiles/internal/storage/blob"
)

// BlobHandler serves file content from stores that hold it locally
type BlobHandler struct {
	reader driveSvc.BlobReader
	logger *slog.Logger
}

// NewBlobHandler creates a new blob handler
func NewBlobHandler(reader driveSvc.BlobReader, logger *slog.Logger) *BlobHandler {
	return &BlobHandler{reader: reader, logger: logger}
}

// GetBlob streams an object owned by the caller
// GET /api/blobs/{key...}
func (h *BlobHandler) GetBlob(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if err := blob.ValidateKey(key); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid blob key")
		return
	}

	// Other users' objects are reported as missing
	owner, ok := blob.OwnerOf(key)
	if !ok || owner != httputil.GetUserID(r) {
		httputil.RespondError(w, http.StatusNotFound, "file not found")
		return
	}

	content, obj, err := h.reader.Open(r.Context(), key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, blob.ErrInvalidKey) {
			httputil.RespondError(w, http.StatusNotFound, "file not found")
			return
		}
		h.logger.Error("failed to open blob", "key", key, "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	defer content.Close()

	http.ServeContent(w, r, path.Base(key), obj.ModifiedAt, content)
}
