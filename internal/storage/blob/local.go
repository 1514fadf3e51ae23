package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	driveSvc "cloudfiles/internal/domain/services/drive"
)

const tempPrefix = ".upload-"

// LocalStore keeps objects as plain files under a directory. Content is
// served back through the API at BaseURL.
type LocalStore struct {
	dir     string
	baseURL string
}

// NewLocalStore creates dir if needed
func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob directory: %w", err)
	}
	return &LocalStore{dir: dir, baseURL: baseURL}, nil
}

func (s *LocalStore) path(key string) string {
	return filepath.Join(s.dir, filepath.FromSlash(key))
}

// Put writes to a temp file and renames it into place, replacing any
// previous object at key
func (s *LocalStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := s.checkFree(key); err != nil {
		return "", err
	}

	dst := s.path(key)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create blob directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), tempPrefix+"*")
	if err != nil {
		return "", fmt.Errorf("create temp blob: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	written, err := io.Copy(tmp, body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", fmt.Errorf("write blob: %w", err)
	}
	if size >= 0 && written != size {
		return "", fmt.Errorf("write blob: got %d bytes, expected %d", written, size)
	}

	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("store blob: %w", err)
	}

	return URLForKey(s.baseURL, key), nil
}

// URLFor returns the download URL of key
func (s *LocalStore) URLFor(key string) string {
	return URLForKey(s.baseURL, key)
}

// checkFree fails with ErrKeyConflict when an ancestor of key is an object
// or key itself is a directory holding other objects. It runs before the
// body is read so callers can retry under another key.
func (s *LocalStore) checkFree(key string) error {
	segments := strings.Split(key, "/")
	for i := 1; i < len(segments); i++ {
		prefix := strings.Join(segments[:i], "/")
		info, err := os.Stat(s.path(prefix))
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("stat blob path: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("%w: %q is an object", ErrKeyConflict, prefix)
		}
	}

	info, err := os.Stat(s.path(key))
	if err == nil && info.IsDir() {
		return fmt.Errorf("%w: %q holds other objects", ErrKeyConflict, key)
	}
	return nil
}

// Delete removes the object addressed by url; missing objects are ignored
func (s *LocalStore) Delete(ctx context.Context, url string) error {
	key, err := KeyFromURL(s.baseURL, url)
	if err != nil {
		return err
	}
	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

// List walks the directory and returns objects whose key starts with prefix
func (s *LocalStore) List(ctx context.Context, prefix string) ([]driveSvc.BlobObject, error) {
	var objects []driveSvc.BlobObject

	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), tempPrefix) {
			return nil
		}

		rel, err := filepath.Rel(s.dir, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		objects = append(objects, driveSvc.BlobObject{
			Key:        key,
			URL:        URLForKey(s.baseURL, key),
			Size:       info.Size(),
			ModifiedAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list blobs: %w", err)
	}

	return objects, nil
}

// Open returns the object's content for serving
func (s *LocalStore) Open(ctx context.Context, key string) (io.ReadSeekCloser, driveSvc.BlobObject, error) {
	if err := ValidateKey(key); err != nil {
		return nil, driveSvc.BlobObject{}, err
	}

	f, err := os.Open(s.path(key))
	if err != nil {
		return nil, driveSvc.BlobObject{}, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, driveSvc.BlobObject{}, err
	}
	if info.IsDir() {
		f.Close()
		return nil, driveSvc.BlobObject{}, fmt.Errorf("%w: %q is a directory", ErrInvalidKey, key)
	}

	return f, driveSvc.BlobObject{
		Key:        key,
		URL:        URLForKey(s.baseURL, key),
		Size:       info.Size(),
		ModifiedAt: info.ModTime(),
	}, nil
}
