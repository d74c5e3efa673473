package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrJobNotFound is returned when a job cannot be found in the database
	ErrJobNotFound = errors.New("job not found")

	// ErrProjectNotFound is returned when a project cannot be found in the database
	ErrProjectNotFound = errors.New("project not found")

	// ErrInvalidTransition is returned when a status update does not start
	// from one of the allowed source states
	ErrInvalidTransition = errors.New("invalid job status transition")

	// ErrUnknownJobType is returned when no workflow exists for a job type
	ErrUnknownJobType = errors.New("unknown job type")
)

// ValidationError reports a missing or malformed required field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Field)
}

// NewValidationError creates a new validation error
func NewValidationError(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// AdapterError wraps a non-success response from an external platform
type AdapterError struct {
	Platform   string
	Op         string
	StatusCode int
	Body       string
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("%s %s failed: %d %s", e.Platform, e.Op, e.StatusCode, e.Body)
}

// WorkspaceConflictError is returned when a workspace holds files but no
// version-control checkout
type WorkspaceConflictError struct {
	Path string
}

func (e *WorkspaceConflictError) Error() string {
	return fmt.Sprintf("workspace %s is not empty and has no git repo", e.Path)
}

// StorageError wraps a persistence failure
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError wraps err, passing nil through
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// IsValidation reports whether err carries a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
