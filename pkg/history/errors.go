package history

import "fmt"

// StorageError reports a failed storage operation.
type StorageError struct {
	Backend string
	Op      string
	Cause   error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("%s history %s failed: %v", e.Backend, e.Op, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *StorageError) Unwrap() error {
	return e.Cause
}
