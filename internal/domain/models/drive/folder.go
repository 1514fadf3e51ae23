package drive

import (
	"strings"
	"time"
)

// RootID is the explicit marker for the top of the folder tree.
// It is stored in parent_id / folder_id columns and used in routes.
const RootID = "root"

// RootName is the display label of the synthetic root folder.
const RootName = "Root"

// FolderRef identifies a folder: either Root or a persisted folder by id.
// The zero value is Root.
type FolderRef struct {
	id string
}

// Root returns the reference to the synthetic root folder.
func Root() FolderRef {
	return FolderRef{}
}

// FolderByID returns a reference to the folder with the given id.
// An empty id or the root marker yields Root.
func FolderByID(id string) FolderRef {
	id = strings.TrimSpace(id)
	if id == "" || id == RootID {
		return Root()
	}
	return FolderRef{id: id}
}

func (r FolderRef) IsRoot() bool {
	return r.id == ""
}

// ID returns the persisted identifier, or RootID for Root.
func (r FolderRef) ID() string {
	if r.IsRoot() {
		return RootID
	}
	return r.id
}

func (r FolderRef) String() string {
	return r.ID()
}

// PathEntry is one ancestor in a folder's materialized path.
type PathEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Folder struct {
	ID        string      `json:"id" db:"id"`
	UserID    string      `json:"user_id,omitempty" db:"user_id"`
	ParentID  string      `json:"parent_id,omitempty" db:"parent_id"` // RootID for top-level folders, empty only for Root itself
	Name      string      `json:"name" db:"name"`
	Path      []PathEntry `json:"path" db:"path"`             // Ancestors from root (exclusive) to parent (inclusive)
	CreatedAt time.Time   `json:"created_at" db:"created_at"` // Zero for Root
	UpdatedAt time.Time   `json:"updated_at" db:"updated_at"`
}

// RootFolder returns a fresh copy of the root sentinel.
func RootFolder() *Folder {
	return &Folder{
		ID:   RootID,
		Name: RootName,
		Path: []PathEntry{},
	}
}

func (f *Folder) IsRoot() bool {
	return f.ID == RootID
}

func (f *Folder) Ref() FolderRef {
	return FolderByID(f.ID)
}

// ChildPath returns the path a folder created directly under f must carry.
func (f *Folder) ChildPath() []PathEntry {
	if f.IsRoot() {
		return []PathEntry{}
	}
	path := make([]PathEntry, 0, len(f.Path)+1)
	path = append(path, f.Path...)
	return append(path, PathEntry{ID: f.ID, Name: f.Name})
}

// PathNames returns the ancestor names followed by f's own name.
// Root yields an empty slice.
func (f *Folder) PathNames() []string {
	if f.IsRoot() {
		return nil
	}
	names := make([]string, 0, len(f.Path)+1)
	for _, entry := range f.Path {
		names = append(names, entry.Name)
	}
	return append(names, f.Name)
}

// Clone returns a deep copy so callers can hand out snapshots safely.
func (f *Folder) Clone() *Folder {
	if f == nil {
		return nil
	}
	c := *f
	c.Path = append([]PathEntry{}, f.Path...)
	return &c
}
