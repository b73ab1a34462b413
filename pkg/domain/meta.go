package domain

import "time"

// Meta carries the identity and timestamps every persisted entity embeds.
// ID and timestamps are assigned by the persistence layer; clients never
// invent final ids.
type Meta struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EntityID returns the server-assigned identifier.
func (m Meta) EntityID() string { return m.ID }

// Owner returns the owning creator id.
func (m Meta) Owner() string { return m.OwnerID }

// LastUpdated returns UpdatedAt.
func (m Meta) LastUpdated() time.Time { return m.UpdatedAt }

// Metadata returns the embedded metadata block.
func (m Meta) Metadata() Meta { return m }

// Record is the contract persistence adapters require from entity values.
// E is the concrete entity type so copies can be returned without reflection.
type Record[E any] interface {
	EntityID() string
	Owner() string
	LastUpdated() time.Time
	Metadata() Meta
	Touch(at time.Time) E
	WithMetadata(Meta) E
}

// Named entities expose a human readable label for logs and notifications.
type Named interface {
	DisplayName() string
}

// CloneString copies an optional string so patches and entities never alias
// caller memory.
func CloneString(v *string) *string {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

func copyTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}
