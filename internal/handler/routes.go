package handler

import "net/http"

// Handlers groups the HTTP handlers the server mounts
type Handlers struct {
	Drive *DriveHandler
	Watch *WatchHandler
	Blob  *BlobHandler // nil when content is served by the object store itself
}

// RegisterRoutes mounts every route on mux (Go 1.22+ patterns)
func RegisterRoutes(mux *http.ServeMux, h *Handlers) {
	mux.HandleFunc("GET /health", HealthCheck)

	// Folder routes ("root" addresses the top of the tree)
	mux.HandleFunc("POST /api/folders", h.Drive.CreateFolder)
	mux.HandleFunc("GET /api/folders/{id}", h.Drive.GetFolder)
	mux.HandleFunc("PATCH /api/folders/{id}", h.Drive.RenameFolder)
	mux.HandleFunc("DELETE /api/folders/{id}", h.Drive.DeleteFolder)
	mux.HandleFunc("GET /api/folders/{id}/children", h.Drive.ListChildren)
	mux.HandleFunc("GET /api/folders/{id}/watch", h.Watch.WatchFolder) // SSE
	mux.HandleFunc("POST /api/folders/{id}/files", h.Drive.UploadFile)

	// File routes
	mux.HandleFunc("DELETE /api/files/{id}", h.Drive.DeleteFile)

	if h.Blob != nil {
		mux.HandleFunc("GET /api/blobs/{key...}", h.Blob.GetBlob)
	}
}
