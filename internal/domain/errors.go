package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a document does not exist or is not owned by the caller.
	// The two cases are never distinguished.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when creating a per-user index that already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrStorageUnavailable marks infrastructure failures of the durable store.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// ValidationError reports a missing or invalid request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// StorageError wraps a backend failure. It matches ErrStorageUnavailable.
type StorageError struct {
	Op  string
	Err error
}

// NewStorageError wraps err as a storage failure of op.
func NewStorageError(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrStorageUnavailable) match any StorageError.
func (e *StorageError) Is(target error) bool {
	return target == ErrStorageUnavailable
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
