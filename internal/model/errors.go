package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrValidation marks bad or missing input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks an unknown item, an item without a photo, or a
	// photo blob missing from the medium.
	ErrNotFound = errors.New("not found")
	// ErrStorage marks a failure of the durable medium.
	ErrStorage = errors.New("storage failure")
)

// Invalid returns a validation error with the given message.
func Invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// NotFound returns a not-found error describing what was missing.
func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// StorageError wraps an I/O failure of the document or blob medium.
type StorageError struct {
	Op  string
	Err error
}

// Storage wraps err as a StorageError for the named operation.
func Storage(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrStorage) hold for every StorageError.
func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

// CleanupWarning reports a blob that could not be removed after the item
// stopped referencing it. The operation itself succeeded.
type CleanupWarning struct {
	ItemID int64
	BlobID string
	Err    error
}

func (w *CleanupWarning) Error() string {
	return fmt.Sprintf("orphaned blob %s of item %d: %v", w.BlobID, w.ItemID, w.Err)
}

func (w *CleanupWarning) Unwrap() error { return w.Err }

// MarshalJSON includes the error message, which has no JSON form of its own.
func (w *CleanupWarning) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ItemID  int64  `json:"item_id"`
		BlobID  string `json:"blob_id"`
		Message string `json:"message"`
	}{w.ItemID, w.BlobID, w.Error()})
}
