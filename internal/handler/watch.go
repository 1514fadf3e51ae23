package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	models "cloudfiles/internal/domain/models/drive"
	"cloudfiles/internal/handler/sse"
	"cloudfiles/internal/httputil"
	driveService "cloudfiles/internal/service/drive"
)

// WatchHandler streams live folder views over Server-Sent Events
type WatchHandler struct {
	watcher *driveService.Watcher
	config  *sse.Config
	logger  *slog.Logger
}

// NewWatchHandler creates a new watch handler
func NewWatchHandler(watcher *driveService.Watcher, config *sse.Config, logger *slog.Logger) *WatchHandler {
	if config == nil {
		config = sse.DefaultConfig()
	}
	return &WatchHandler{
		watcher: watcher,
		config:  config,
		logger:  logger,
	}
}

// WatchFolder streams "view" events carrying the folder, its child folders
// and files, and the per-list load state. Each event is a full snapshot.
// GET /api/folders/{id}/watch
func (h *WatchHandler) WatchFolder(w http.ResponseWriter, r *http.Request) {
	folderID, ok := PathParam(w, r, "id", "Folder ID")
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.RespondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	userID := httputil.GetUserID(r)
	clientID := uuid.NewString()

	session, err := h.watcher.Open(r.Context(), userID, models.FolderByID(folderID), nil)
	if err != nil {
		h.logger.Error("failed to open folder view",
			"folder_id", folderID,
			"user_id", userID,
			"error", err,
		)
		handleError(w, err)
		return
	}
	defer session.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	writer := sse.NewWriter(w, flusher)
	keepAlive := sse.NewTickerKeepAlive(h.config.KeepAliveInterval)
	stopped := keepAlive.Start(writer, h.logger)
	defer keepAlive.Stop()

	h.logger.Debug("folder watch started",
		"folder_id", folderID,
		"user_id", userID,
		"client_id", clientID,
	)

	var seq int
	for {
		select {
		case <-r.Context().Done():
			h.logger.Debug("folder watch client disconnected", "client_id", clientID)
			return

		case <-stopped:
			return

		case view, ok := <-session.Updates():
			if !ok {
				return
			}

			payload, err := json.Marshal(view)
			if err != nil {
				h.logger.Error("failed to encode folder view", "client_id", clientID, "error", err)
				return
			}

			seq++
			if err := writer.WriteEvent("view", strconv.Itoa(seq), payload); err != nil {
				h.logger.Info("client disconnected during event write",
					"client_id", clientID,
					"error", err,
				)
				return
			}
		}
	}
}
