package drive

import (
	"time"
)

type File struct {
	ID          string    `json:"id" db:"id"`
	UserID      string    `json:"user_id,omitempty" db:"user_id"`
	FolderID    string    `json:"folder_id" db:"folder_id"` // RootID for top-level files
	Name        string    `json:"name" db:"name"`
	URL         string    `json:"url" db:"url"` // Download reference issued by the blob store
	Size        int64     `json:"size" db:"size"`
	ContentType string    `json:"content_type,omitempty" db:"content_type"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
