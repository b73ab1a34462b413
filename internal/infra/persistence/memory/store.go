// Package memory provides an in-memory row store used for tests, demo mode
// and ephemeral sessions. It can inject failures and latency so callers can
// exercise rollback paths without a database.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"creatorhub/internal/infra/persistence"
	"creatorhub/pkg/domain"
)

var _ persistence.RowStore = (*Store)(nil)

// Op names a driver operation for fault injection.
type Op string

// Driver operations.
const (
	OpList   Op = "list"
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// FaultFunc decides whether an operation fails. Returning nil lets it through.
type FaultFunc func(op Op, kind domain.EntityType, id string) error

type table struct {
	order []string
	rows  map[string]persistence.Row
}

func newTable() *table { return &table{rows: make(map[string]persistence.Row)} }

func (t *table) clone() *table {
	cp := &table{order: append([]string(nil), t.order...), rows: make(map[string]persistence.Row, len(t.rows))}
	for id, row := range t.rows {
		cp.rows[id] = cloneRow(row)
	}
	return cp
}

// Store keeps rows per entity kind in insertion order.
type Store struct {
	mu      sync.RWMutex
	tables  map[domain.EntityType]*table
	fault   FaultFunc
	latency time.Duration
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{tables: make(map[domain.EntityType]*table)}
}

// SetFault installs a fault hook; nil clears it.
func (s *Store) SetFault(fn FaultFunc) {
	s.mu.Lock()
	s.fault = fn
	s.mu.Unlock()
}

// SetLatency delays every operation by d, honouring context cancellation.
func (s *Store) SetLatency(d time.Duration) {
	s.mu.Lock()
	s.latency = d
	s.mu.Unlock()
}

func (s *Store) enter(ctx context.Context, op Op, kind domain.EntityType, id string) error {
	s.mu.RLock()
	fault, latency := s.fault, s.latency
	s.mu.RUnlock()
	if latency > 0 {
		timer := time.NewTimer(latency)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if fault != nil {
		return fault(op, kind, id)
	}
	return nil
}

func (s *Store) tableLocked(kind domain.EntityType) *table {
	t, ok := s.tables[kind]
	if !ok {
		t = newTable()
		s.tables[kind] = t
	}
	return t
}

// ListRows implements persistence.RowStore.
func (s *Store) ListRows(ctx context.Context, kind domain.EntityType, ownerID string) ([]persistence.Row, error) {
	if err := s.enter(ctx, OpList, kind, ""); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[kind]
	if !ok {
		return nil, nil
	}
	out := make([]persistence.Row, 0, len(t.order))
	for _, id := range t.order {
		row := t.rows[id]
		if ownerID == "" || row.OwnerID == ownerID {
			out = append(out, cloneRow(row))
		}
	}
	return out, nil
}

// InsertRow implements persistence.RowStore.
func (s *Store) InsertRow(ctx context.Context, row persistence.Row) error {
	if err := s.enter(ctx, OpInsert, row.Kind, row.ID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tableLocked(row.Kind)
	if _, exists := t.rows[row.ID]; exists {
		return fmt.Errorf("%s %s already exists", row.Kind, row.ID)
	}
	t.order = append(t.order, row.ID)
	t.rows[row.ID] = cloneRow(row)
	return nil
}

// UpdateRow implements persistence.RowStore. fn sees a copy; nothing is
// stored when it fails.
func (s *Store) UpdateRow(ctx context.Context, kind domain.EntityType, id string, fn func(persistence.Row) (persistence.Row, error)) (persistence.Row, error) {
	if err := s.enter(ctx, OpUpdate, kind, id); err != nil {
		return persistence.Row{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tableLocked(kind)
	current, ok := t.rows[id]
	if !ok {
		return persistence.Row{}, persistence.NotFound(kind, id)
	}
	next, err := fn(cloneRow(current))
	if err != nil {
		return persistence.Row{}, err
	}
	next.Kind, next.ID, next.CreatedAt = current.Kind, current.ID, current.CreatedAt
	t.rows[id] = cloneRow(next)
	return next, nil
}

// DeleteRow implements persistence.RowStore.
func (s *Store) DeleteRow(ctx context.Context, kind domain.EntityType, id string) error {
	if err := s.enter(ctx, OpDelete, kind, id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tableLocked(kind)
	if _, ok := t.rows[id]; !ok {
		return persistence.NotFound(kind, id)
	}
	delete(t.rows, id)
	for i, cur := range t.order {
		if cur == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return nil
}

// Close implements persistence.RowStore.
func (s *Store) Close() error { return nil }

// Snapshot is a deep copy of every table, keyed by kind.
type Snapshot map[domain.EntityType][]persistence.Row

// ExportState copies the store contents.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(Snapshot, len(s.tables))
	for kind, t := range s.tables {
		rows := make([]persistence.Row, 0, len(t.order))
		for _, id := range t.order {
			rows = append(rows, cloneRow(t.rows[id]))
		}
		out[kind] = rows
	}
	return out
}

// ImportState replaces the store contents with snap.
func (s *Store) ImportState(snap Snapshot) {
	tables := make(map[domain.EntityType]*table, len(snap))
	for kind, rows := range snap {
		t := newTable()
		for _, row := range rows {
			if _, dup := t.rows[row.ID]; dup {
				continue
			}
			t.order = append(t.order, row.ID)
			t.rows[row.ID] = cloneRow(row)
		}
		tables[kind] = t
	}
	s.mu.Lock()
	s.tables = tables
	s.mu.Unlock()
}

// Clone returns an independent copy of the store without hooks.
func (s *Store) Clone() *Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := NewStore()
	for kind, t := range s.tables {
		cp.tables[kind] = t.clone()
	}
	return cp
}

func cloneRow(r persistence.Row) persistence.Row {
	r.Payload = append([]byte(nil), r.Payload...)
	return r
}
