package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/erazemk/inventar/internal/model"
)

var errInvalidID = errors.New("not a blob id")

// FS keeps one file per blob in a directory, named by the blob id.
type FS struct {
	dir string
}

// NewFS creates the directory if needed and returns a store rooted there.
func NewFS(dir string) (*FS, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, model.Storage("creating blob directory", err)
	}
	return &FS{dir: dir}, nil
}

// Dir returns the directory holding the blob files.
func (s *FS) Dir() string { return s.dir }

// Put writes data to a temp file and links it under a fresh id. Linking
// fails instead of replacing an existing file.
func (s *FS) Put(_ context.Context, data []byte) (string, error) {
	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", model.Storage("creating blob", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", model.Storage("writing blob", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", model.Storage("syncing blob", err)
	}
	if err := tmp.Close(); err != nil {
		return "", model.Storage("closing blob", err)
	}

	id := newID()
	if err := os.Link(tmpName, s.path(id)); err != nil {
		return "", model.Storage("publishing blob", err)
	}
	return id, nil
}

// Get reads the blob stored under id.
func (s *FS) Get(_ context.Context, id string) ([]byte, error) {
	if !validID(id) {
		return nil, model.NotFound("blob %q", id)
	}
	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, model.NotFound("blob %s", id)
	}
	if err != nil {
		return nil, model.Storage("reading blob", err)
	}
	return data, nil
}

// Delete removes the blob stored under id. A missing blob is not an error.
// An id this store could not have handed out is refused, so a foreign
// reference never passes as cleaned up.
func (s *FS) Delete(_ context.Context, id string) error {
	if !validID(id) {
		return model.Storage(fmt.Sprintf("deleting blob %q", id), errInvalidID)
	}
	err := os.Remove(s.path(id))
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return model.Storage(fmt.Sprintf("deleting blob %s", id), err)
}

func (s *FS) path(id string) string {
	return filepath.Join(s.dir, id)
}
