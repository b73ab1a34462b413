package core

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated is returned by Create when no identity is available.
	ErrUnauthenticated = errors.New("core: no authenticated user")
	// ErrNotFound is returned when an operation targets an id the store does not hold.
	ErrNotFound = errors.New("core: entity not found")
	// ErrDuplicateID is returned when the remote adapter hands back an id already present.
	ErrDuplicateID = errors.New("core: duplicate entity id")
	// ErrInvalidEntity is returned when the remote adapter returns an entity without an id.
	ErrInvalidEntity = errors.New("core: remote returned entity without id")
)

// RemoteError wraps a failure reported by the persistence adapter.
type RemoteError struct {
	Op     Operation
	Entity EntityType
	ID     string
	Err    error
}

func (e *RemoteError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Err)
	}
	return fmt.Sprintf("%s %s %s: %v", e.Op, e.Entity, e.ID, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// BatchError reports which ids of a bulk operation failed remotely. The whole
// batch is rolled back locally regardless of how many ids failed.
type BatchError struct {
	Op     Operation
	Entity EntityType
	Failed map[string]error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%s %s: %d of batch failed", e.Op, e.Entity, len(e.Failed))
}

// Unwrap exposes the individual failures to errors.Is / errors.As.
func (e *BatchError) Unwrap() []error {
	out := make([]error, 0, len(e.Failed))
	for _, err := range e.Failed {
		out = append(out, err)
	}
	return out
}
