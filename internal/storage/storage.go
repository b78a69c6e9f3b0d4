// Package storage persists uploaded profile images: store bytes, record a path.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ImageStore writes an uploaded image and returns the path recorded on the
// profile. Implementations do no deduplication, no content-type validation,
// and enforce no size limit — callers that need those add them above.
type ImageStore interface {
	Save(ownerID, originalName string, data []byte) (string, error)
}

// DiskStore is the local-filesystem ImageStore. Files land in a single
// configurable directory; names are prefixed with the owner's ID and a
// millisecond timestamp, so repeated uploads never collide.
type DiskStore struct {
	dir string
	// now is swappable in tests for deterministic file names.
	now func() time.Time
}

var _ ImageStore = (*DiskStore)(nil)

// NewDiskStore creates the uploads directory if needed and returns a store
// writing into it.
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: creating uploads directory %s: %w", dir, err)
	}
	return &DiskStore{dir: dir, now: time.Now}, nil
}

// Save writes data to "{ownerID}_{unixMillis}_{originalName}" inside the
// uploads directory and returns that path. The original name is flattened to
// its base component so a crafted filename cannot escape the directory.
// The write error is returned — a response is never sent before the bytes
// are durably on disk.
func (s *DiskStore) Save(ownerID, originalName string, data []byte) (string, error) {
	name := fmt.Sprintf("%s_%d_%s", ownerID, s.now().UnixMilli(), filepath.Base(originalName))
	path := filepath.Join(s.dir, name)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: writing image %s: %w", path, err)
	}

	return path, nil
}
