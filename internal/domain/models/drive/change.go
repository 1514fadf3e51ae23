package drive

import "time"

// Collection names the store collection a change belongs to.
type Collection string

const (
	CollectionFolders Collection = "folders"
	CollectionFiles   Collection = "files"
)

// ChangeOp is the kind of mutation.
type ChangeOp string

const (
	OpCreated ChangeOp = "created"
	OpUpdated ChangeOp = "updated"
	OpDeleted ChangeOp = "deleted"

	// OpResync tells a subscriber that events were dropped and every
	// query it holds must be refreshed.
	OpResync ChangeOp = "resync"
)

// ChangeEvent describes a committed mutation of a folder or file record.
// ParentID is the containing folder (parent_id for folders, folder_id for files).
type ChangeEvent struct {
	Collection Collection `json:"collection"`
	Op         ChangeOp   `json:"op"`
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	ParentID   string     `json:"parent_id"`
	At         time.Time  `json:"at"`
}

// ResyncEvent builds the wildcard event delivered after an overflow.
func ResyncEvent(userID string) ChangeEvent {
	return ChangeEvent{Op: OpResync, UserID: userID, At: time.Now()}
}
