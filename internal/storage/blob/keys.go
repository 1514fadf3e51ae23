// Package blob stores file content under hierarchical keys that mirror the
// folder tree: files/<user>/<ancestor names...>/<folder name>/<file name>.
package blob

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// KeyPrefix is the top-level prefix of every uploaded object
const KeyPrefix = "files/"

// isolatedPrefix starts the unique segment of an isolated key
const isolatedPrefix = ".v-"

// ErrKeyConflict is returned by Put when key cannot hold an object: it would
// replace a prefix that other objects live under, or nest under an object
var ErrKeyConflict = errors.New("blob key conflicts with an existing object")

// ErrInvalidKey is returned for keys or URLs that do not address an object
// in this store
var ErrInvalidKey = errors.New("invalid blob key")

// ObjectKey builds the storage key for a file. folderPath holds the names of
// the containing folder's ancestors followed by the folder itself; it is
// empty for files at the root.
func ObjectKey(userID string, folderPath []string, fileName string) string {
	segments := make([]string, 0, len(folderPath)+2)
	segments = append(segments, userID)
	segments = append(segments, folderPath...)
	segments = append(segments, fileName)
	return KeyPrefix + strings.Join(segments, "/")
}

// IsolatedObjectKey builds the key used when ObjectKey is unusable: the same
// hierarchy below a unique segment directly under the user, so it can neither
// alias nor nest under any other object.
func IsolatedObjectKey(userID, token string, folderPath []string, fileName string) string {
	return ObjectKey(userID, append([]string{isolatedPrefix + token}, folderPath...), fileName)
}

// OwnerOf returns the user segment of a key produced by ObjectKey
func OwnerOf(key string) (string, bool) {
	rest, ok := strings.CutPrefix(key, KeyPrefix)
	if !ok {
		return "", false
	}
	owner, _, ok := strings.Cut(rest, "/")
	if !ok || owner == "" {
		return "", false
	}
	return owner, true
}

// ValidateKey rejects empty, absolute and dot segments
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, segment := range strings.Split(key, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}

// URLForKey joins baseURL and the path-escaped key segments
func URLForKey(baseURL, key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.TrimSuffix(baseURL, "/") + "/" + strings.Join(segments, "/")
}

// KeyFromURL reverses URLForKey
func KeyFromURL(baseURL, rawURL string) (string, error) {
	rest, ok := strings.CutPrefix(rawURL, strings.TrimSuffix(baseURL, "/")+"/")
	if !ok {
		return "", fmt.Errorf("%w: url %q is outside %q", ErrInvalidKey, rawURL, baseURL)
	}

	segments := strings.Split(rest, "/")
	for i, s := range segments {
		decoded, err := url.PathUnescape(s)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		segments[i] = decoded
	}

	key := strings.Join(segments, "/")
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return key, nil
}
