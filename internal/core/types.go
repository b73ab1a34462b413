package core

import (
	"context"
	"time"

	"creatorhub/pkg/domain"
)

type (
	EntityType = domain.EntityType
	Action     = domain.Action
)

const (
	ActionCreate       = domain.ActionCreate
	ActionUpdate       = domain.ActionUpdate
	ActionDelete       = domain.ActionDelete
	ActionStatusChange = domain.ActionStatusChange
)

// Operation names a store operation for metrics, traces and notifications.
type Operation string

// Store operations.
const (
	OpInitialize Operation = "initialize"
	OpCreate     Operation = "create"
	OpUpdate     Operation = "update"
	OpDelete     Operation = "delete"
	OpBulkUpdate Operation = "bulk_update"
	OpBulkDelete Operation = "bulk_delete"
)

// PendingState is the per-entity synchronisation state.
//
//	Confirmed(E) -> Pending(E, previous) -> Confirmed(E') | Confirmed(previous)
type PendingState int

const (
	// StateConfirmed means the local value matches the last server acknowledgement.
	StateConfirmed PendingState = iota
	// StatePendingUpdate means an optimistic update is in flight.
	StatePendingUpdate
	// StatePendingDelete means the entity is hidden while its delete is in flight.
	StatePendingDelete
)

func (s PendingState) String() string {
	switch s {
	case StateConfirmed:
		return "confirmed"
	case StatePendingUpdate:
		return "pending_update"
	case StatePendingDelete:
		return "pending_delete"
	default:
		return "unknown"
	}
}

// Entity is the shape the store needs from a collection element. E is the
// concrete type so Touch can return a copy.
type Entity[ID comparable, E any] interface {
	EntityID() ID
	LastUpdated() time.Time
	Touch(at time.Time) E
}

// Patch is a partial update applied locally before it is sent remotely.
type Patch[E any] interface {
	Apply(E) E
}

// Backend is the remote persistence adapter a store keeps in step with.
// Failures are returned as errors; the store does not distinguish validation
// errors from transient ones.
type Backend[ID comparable, E any, P any] interface {
	List(ctx context.Context, ownerID string) ([]E, error)
	Create(ctx context.Context, ownerID string, draft E) (E, error)
	Update(ctx context.Context, id ID, patch P) (E, error)
	Delete(ctx context.Context, id ID) error
}
