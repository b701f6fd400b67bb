// Package blob stores photo content under opaque, system-chosen ids.
package blob

import (
	"context"

	"github.com/google/uuid"
)

// Store maps blob ids to binary content.
//
// Put never overwrites an existing blob. Get fails with model.ErrNotFound
// when no blob exists under the id. Delete succeeds when the blob is
// already gone and reports every other failure as a model.StorageError.
type Store interface {
	Put(ctx context.Context, data []byte) (string, error)
	Get(ctx context.Context, id string) ([]byte, error)
	Delete(ctx context.Context, id string) error
}

// newID returns a fresh blob id.
func newID() string {
	return uuid.NewString()
}

// validID reports whether id has the shape of an id handed out by newID.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil && len(id) == 36
}
