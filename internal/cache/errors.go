package cache

import (
	"errors"
	"fmt"
)

// ErrCacheClosed is returned by AsyncCache requests submitted after the
// dispatcher stopped.
var ErrCacheClosed = errors.New("cache: closed")

// OperationsExceededError is returned when a batch processes more
// operations than Config.MaxOperations allows.
//
// The batch is aborted. Under the buffer nothing is applied; without it the
// operations applied so far remain.
type OperationsExceededError struct {
	Operations int // Operations processed when the bound was hit
	Limit      int // Configured bound
}

// Error implements the error interface.
func (e *OperationsExceededError) Error() string {
	return fmt.Sprintf("OPERATIONS_EXCEEDED: batch processed %d operations (limit %d)", e.Operations, e.Limit)
}

// ErrorCode returns the stable code used by scenario files and the CLI.
func (e *OperationsExceededError) ErrorCode() string {
	return "OPERATIONS_EXCEEDED"
}

// IsOperationsExceeded reports whether err wraps an OperationsExceededError.
func IsOperationsExceeded(err error) bool {
	var oe *OperationsExceededError
	return errors.As(err, &oe)
}

// quota counts the operations of one batch.
type quota struct {
	limit   int
	current int
}

// check counts one operation and fails once the limit is passed.
func (q *quota) check() error {
	q.current++
	if q.limit > 0 && q.current > q.limit {
		return &OperationsExceededError{Operations: q.current, Limit: q.limit}
	}
	return nil
}
