// Package file implements a local filesystem-backed object store. Keys are
// slash-separated paths relative to a root directory, so an export copied
// from a bucket can be migrated from disk unchanged.
package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"graph2sql/internal/datasource"
)

// Local is an ObjectStore rooted at a directory.
type Local struct{ root string }

var _ datasource.ObjectStore = (*Local)(nil)

// NewLocal returns a Local store rooted at root. The returned value is safe
// for concurrent use by multiple goroutines.
func NewLocal(root string) *Local { return &Local{root: root} }

// List walks the root directory and returns every regular file whose
// slash-separated relative path starts with prefix.
func (l *Local) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var keys []string
	err := filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(l.root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", l.root, err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Open opens the file addressed by key for reading.
//
// Behavior:
//   - If the context is already canceled or its deadline exceeded at the time
//     of the call, Open returns the context error immediately without touching
//     the filesystem.
//   - A missing file yields an error wrapping datasource.ErrNotFound.
//   - Keys that escape the root directory are rejected.
func (l *Local) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	clean := filepath.Clean(filepath.FromSlash(key))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("open %s: key escapes store root", key)
	}
	path := filepath.Join(l.root, clean)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("open %s: %w", key, datasource.ErrNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	return f, nil
}
