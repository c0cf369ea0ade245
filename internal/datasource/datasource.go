// Package datasource defines the object-storage contract the migration reads
// graph export files through.
package datasource

import (
	"context"
	"errors"
	"io"
	"strings"
)

// ErrNotFound is returned by Open when the key does not exist.
var ErrNotFound = errors.New("datasource: object not found")

// ObjectStore lists and opens objects addressed by slash-separated keys.
// Implementations must be safe for concurrent use.
type ObjectStore interface {
	// List returns every key that starts with prefix, sorted ascending.
	List(ctx context.Context, prefix string) ([]string, error)
	// Open returns a reader over the object's bytes.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// JoinPrefix joins an export prefix and a folder name into a listing prefix
// ending in "/". An empty prefix yields "folder/".
func JoinPrefix(prefix, folder string) string {
	folder = strings.Trim(folder, "/")
	prefix = strings.TrimLeft(prefix, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix + folder + "/"
}
