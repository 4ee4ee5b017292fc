package domain

import "fmt"

// ValidationError reports a submission missing a required field. It is
// surfaced to the caller before anything is persisted or broadcast.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// StorageError wraps a persistence failure so the HTTP boundary can
// distinguish it from validation problems.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
