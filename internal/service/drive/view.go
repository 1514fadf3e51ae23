package drive

import (
	models "cloudfiles/internal/domain/models/drive"
)

// SubscriptionState is the lifecycle of one live query
type SubscriptionState string

const (
	StateUnsubscribed SubscriptionState = "unsubscribed"
	StateSubscribing  SubscriptionState = "subscribing"
	StateLive         SubscriptionState = "live"

	// StateError is terminal until the session navigates elsewhere
	StateError SubscriptionState = "error"
)

// PartStatus reports one live query of a view
type PartStatus struct {
	State  SubscriptionState `json:"state"`
	Loaded bool              `json:"loaded"` // first snapshot received
	Error  string            `json:"error,omitempty"`
}

// ViewState is a point-in-time copy of a folder view.
// Folder is nil when the folder does not exist; Found is only meaningful
// once FolderStatus.Loaded is true or the folder was seeded.
type ViewState struct {
	Generation    uint64          `json:"generation"`
	FolderID      string          `json:"folder_id"`
	Folder        *models.Folder  `json:"folder"`
	Found         bool            `json:"found"`
	Folders       []models.Folder `json:"folders"`
	Files         []models.File   `json:"files"`
	FolderStatus  PartStatus      `json:"folder_status"`
	FoldersStatus PartStatus      `json:"folders_status"`
	FilesStatus   PartStatus      `json:"files_status"`
	Ready         bool            `json:"ready"` // both child lists loaded
}

func (v ViewState) clone() ViewState {
	c := v
	c.Folder = v.Folder.Clone()
	c.Folders = make([]models.Folder, 0, len(v.Folders))
	for i := range v.Folders {
		c.Folders = append(c.Folders, *v.Folders[i].Clone())
	}
	c.Files = append([]models.File{}, v.Files...)
	return c
}

// part identifies one of the three live queries of a view
type part int

const (
	partFolder part = iota
	partFolders
	partFiles
	partCount
)

func (p part) String() string {
	switch p {
	case partFolder:
		return "folder"
	case partFolders:
		return "folders"
	case partFiles:
		return "files"
	}
	return "unknown"
}

func (v *ViewState) status(p part) *PartStatus {
	switch p {
	case partFolder:
		return &v.FolderStatus
	case partFolders:
		return &v.FoldersStatus
	default:
		return &v.FilesStatus
	}
}
