package drive

import (
	"context"
	"io"

	"cloudfiles/internal/domain/models/drive"
)

// DriveService handles folder and file business logic
type DriveService interface {
	// GetFolder resolves a folder with its current path (domain.ErrNotFound when absent)
	GetFolder(ctx context.Context, userID string, ref drive.FolderRef) (*drive.Folder, error)

	// ListChildren returns a one-shot snapshot of a folder's children
	ListChildren(ctx context.Context, userID string, ref drive.FolderRef) (*FolderContents, error)

	// CreateFolder creates a folder under the given parent
	CreateFolder(ctx context.Context, req *CreateFolderRequest) (*drive.Folder, error)

	// RenameFolder changes a folder's name
	RenameFolder(ctx context.Context, req *RenameFolderRequest) (*drive.Folder, error)

	// DeleteFolder deletes a folder (must be empty)
	DeleteFolder(ctx context.Context, userID, folderID string) error

	// UploadFile stores content and upserts the file record
	UploadFile(ctx context.Context, req *UploadFileRequest) (*UploadResult, error)

	// DeleteFile removes the blob, then the record
	DeleteFile(ctx context.Context, userID, fileID string) error
}

// CreateFolderRequest represents a folder creation request
type CreateFolderRequest struct {
	UserID   string `json:"-"`
	Name     string `json:"name"`
	ParentID string `json:"parent_id"` // "root" or empty for top level
}

// RenameFolderRequest represents a folder rename request
type RenameFolderRequest struct {
	UserID   string `json:"-"`
	FolderID string `json:"-"`
	Name     string `json:"name"`
}

// UploadFileRequest represents a file upload
type UploadFileRequest struct {
	UserID      string
	FolderID    string
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// UploadResult is the stored record and whether it was newly created
type UploadResult struct {
	File    *drive.File `json:"file"`
	Created bool        `json:"created"`
}

// FolderContents represents a folder with its children
type FolderContents struct {
	Folder  *drive.Folder  `json:"folder"`
	Folders []drive.Folder `json:"folders"`
	Files   []drive.File   `json:"files"`
}
