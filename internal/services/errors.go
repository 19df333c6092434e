package services

import (
	"errors"
	"fmt"
)

// ErrTaskNotFound reports that no task exists for the requested id.
var ErrTaskNotFound = errors.New("task not found")

// ValidationError reports input that violated a task validation rule.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// StorageError carries a failed storage interaction together with the
// operation that attempted it. It is never used for missing rows or
// invalid input.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
