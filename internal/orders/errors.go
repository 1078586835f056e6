package orders

import (
	"errors"
	"fmt"
	"strings"
)

var ErrNotFound = errors.New("order not found")

// ValidationError carries one message per offending field so the caller can
// correct the request.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation error: " + strings.Join(e.Fields, "; ")
}

func validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Fields: []string{fmt.Sprintf(format, args...)}}
}

// AllocationError means the sequence allocator could not produce an order
// number, either because the daily range is exhausted or because write
// conflicts kept recurring after several retries.
type AllocationError struct {
	Day string
	Err error
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("order number allocation failed for %s: %v", e.Day, e.Err)
}

func (e *AllocationError) Unwrap() error { return e.Err }

// StorageError wraps a durable-store failure (I/O, timeout, lost connection).
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
