package service

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned when no pane exists for an id, or it was deleted by its owner.
	ErrNotFound = errors.New("pane not found")
	// ErrGone is returned when a pane existed but is past its expiry.
	ErrGone = errors.New("pane has expired")
	// ErrForbidden is returned when a caller deletes a pane it does not own.
	ErrForbidden = errors.New("not authorized to delete this pane")
	// ErrInvalidUpload matches any *ValidationError through errors.Is.
	ErrInvalidUpload = errors.New("invalid upload")
)

// ValidationError lists every rule an upload broke. It is returned before
// any store is touched.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return ErrInvalidUpload.Error() + ": " + strings.Join(e.Violations, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidUpload
}

// UpstreamError wraps a failure of the metadata store or the blob store.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
