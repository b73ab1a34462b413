// Package persistence adapts row-level storage drivers to the typed remote
// backends the entity stores keep in step with. Drivers store one JSON payload
// per entity; Collection owns id assignment, timestamps and rule checks.
package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"creatorhub/pkg/domain"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("persistence: record not found")

// Row is the driver-level representation of one entity.
type Row struct {
	Kind      domain.EntityType
	ID        string
	OwnerID   string
	Payload   []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RowStore is implemented by the memory, sqlite and postgres drivers.
// ListRows returns rows in insertion order. UpdateRow runs fn against the
// current row inside the driver's transaction and stores what it returns.
type RowStore interface {
	ListRows(ctx context.Context, kind domain.EntityType, ownerID string) ([]Row, error)
	InsertRow(ctx context.Context, row Row) error
	UpdateRow(ctx context.Context, kind domain.EntityType, id string, fn func(Row) (Row, error)) (Row, error)
	DeleteRow(ctx context.Context, kind domain.EntityType, id string) error
	Close() error
}

// Option configures a Collection.
type Option func(*collectionConfig)

type collectionConfig struct {
	now   func() time.Time
	newID func() string
	rules *domain.RulesEngine
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *collectionConfig) {
		if now != nil {
			c.now = now
		}
	}
}

// WithIDGenerator overrides uuid id assignment.
func WithIDGenerator(fn func() string) Option {
	return func(c *collectionConfig) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// WithRules sets the rules engine writes are checked against. A nil engine
// disables checks.
func WithRules(engine *domain.RulesEngine) Option {
	return func(c *collectionConfig) { c.rules = engine }
}

// Collection is a typed view of one entity kind in a RowStore. It satisfies
// core.Backend[string, E, P].
type Collection[E domain.Record[E], P domain.Patch[E]] struct {
	kind  domain.EntityType
	rows  RowStore
	now   func() time.Time
	newID func() string
	rules *domain.RulesEngine
}

// NewCollection binds kind in rows to entity type E.
func NewCollection[E domain.Record[E], P domain.Patch[E]](rows RowStore, kind domain.EntityType, opts ...Option) *Collection[E, P] {
	cfg := collectionConfig{
		now:   func() time.Time { return time.Now().UTC() },
		newID: func() string { return uuid.NewString() },
		rules: domain.NewDefaultRulesEngine(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Collection[E, P]{kind: kind, rows: rows, now: cfg.now, newID: cfg.newID, rules: cfg.rules}
}

// Kind returns the entity kind the collection reads and writes.
func (c *Collection[E, P]) Kind() domain.EntityType { return c.kind }

// List returns every entity owned by ownerID in creation order.
func (c *Collection[E, P]) List(ctx context.Context, ownerID string) ([]E, error) {
	rows, err := c.rows.ListRows(ctx, c.kind, ownerID)
	if err != nil {
		return nil, err
	}
	out := make([]E, 0, len(rows))
	for _, row := range rows {
		v, err := decode[E](row)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Create assigns id and timestamps to draft and inserts it.
func (c *Collection[E, P]) Create(ctx context.Context, ownerID string, draft E) (E, error) {
	var zero E
	now := c.now()
	v := draft.WithMetadata(domain.Meta{ID: c.newID(), OwnerID: ownerID, CreatedAt: now, UpdatedAt: now})
	if err := c.check(ctx, domain.ActionCreate, nil, v); err != nil {
		return zero, err
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return zero, fmt.Errorf("encode %s: %w", c.kind, err)
	}
	row := Row{Kind: c.kind, ID: v.EntityID(), OwnerID: ownerID, Payload: payload, CreatedAt: now, UpdatedAt: now}
	if err := c.rows.InsertRow(ctx, row); err != nil {
		return zero, err
	}
	return v, nil
}

// Update applies patch to the stored entity and returns the stored result.
func (c *Collection[E, P]) Update(ctx context.Context, id string, patch P) (E, error) {
	var out E
	_, err := c.rows.UpdateRow(ctx, c.kind, id, func(row Row) (Row, error) {
		before, err := decode[E](row)
		if err != nil {
			return Row{}, err
		}
		now := c.now()
		after := patch.Apply(before).Touch(now)
		if err := c.check(ctx, domain.ActionUpdate, before, after); err != nil {
			return Row{}, err
		}
		payload, err := json.Marshal(after)
		if err != nil {
			return Row{}, fmt.Errorf("encode %s: %w", c.kind, err)
		}
		out = after
		row.Payload = payload
		row.UpdatedAt = now
		return row, nil
	})
	if err != nil {
		var zero E
		return zero, err
	}
	return out, nil
}

// Delete removes the entity.
func (c *Collection[E, P]) Delete(ctx context.Context, id string) error {
	return c.rows.DeleteRow(ctx, c.kind, id)
}

func (c *Collection[E, P]) check(ctx context.Context, action domain.Action, before any, after E) error {
	if c.rules == nil {
		return nil
	}
	return c.rules.Check(ctx, domain.Change{Entity: c.kind, Action: action, Before: before, After: after})
}

func decode[E any](row Row) (E, error) {
	var v E
	if err := json.Unmarshal(row.Payload, &v); err != nil {
		return v, fmt.Errorf("decode %s %s: %w", row.Kind, row.ID, err)
	}
	return v, nil
}

// NotFound formats the driver error for a missing row.
func NotFound(kind domain.EntityType, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
}
