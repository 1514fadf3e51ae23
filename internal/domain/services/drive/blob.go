package drive

import (
	"context"
	"io"
	"time"
)

// BlobStore stores file content under hierarchical keys
type BlobStore interface {
	// Put stores body under key and returns a durable download URL
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)

	// URLFor returns the URL Put would return for key, without storing anything
	URLFor(key string) string

	// Delete removes the object referenced by a URL returned from Put.
	// Deleting a missing object is not an error.
	Delete(ctx context.Context, url string) error

	// List returns every object whose key starts with prefix
	List(ctx context.Context, prefix string) ([]BlobObject, error)
}

// BlobObject describes a stored object
type BlobObject struct {
	Key        string
	URL        string
	Size       int64
	ModifiedAt time.Time
}

// BlobReader is implemented by stores that can serve content themselves
type BlobReader interface {
	Open(ctx context.Context, key string) (io.ReadSeekCloser, BlobObject, error)
}
