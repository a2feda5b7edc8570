package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest marks caller input that failed validation. No side effects happened.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNotFound marks a history id that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrStorage marks a persistence medium that is unreachable or rejected the operation.
	ErrStorage = errors.New("storage failure")
)

// InvalidRequest wraps ErrInvalidRequest with a caller-facing message.
func InvalidRequest(msg string) error {
	return &invalidRequestError{msg: msg}
}

type invalidRequestError struct{ msg string }

func (e *invalidRequestError) Error() string { return e.msg }
func (e *invalidRequestError) Unwrap() error { return ErrInvalidRequest }

// StorageError carries the failing store operation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

// Unwrap exposes both ErrStorage and the driver error to errors.Is / errors.As.
func (e *StorageError) Unwrap() []error {
	return []error{ErrStorage, e.Err}
}

// NewStorageError wraps err unless it is nil or already a not-found.
func NewStorageError(op string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
