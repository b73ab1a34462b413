package core

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// entry tracks one entity through the synchronisation state machine.
//
// confirmed is the last value the server acknowledged and is the rollback
// target. pending holds the in-flight updates in issue order; value is always
// confirmed with every pending patch applied, so a rejected patch drops out
// when it settles. seq counts requests issued for the entity. applied is the
// newest request whose server response was adopted; an older response still
// folds its patch into confirmed but its server timestamp is discarded.
type entry[ID comparable, E any] struct {
	id        ID
	value     E
	confirmed E
	state     PendingState
	pending   []pendingPatch[E]
	deleting  uint64
	seq       uint64
	applied   uint64
}

type pendingPatch[E any] struct {
	seq   uint64
	apply func(E) E
}

// settle removes request seq from the pending list.
func (e *entry[ID, E]) settle(seq uint64) (pendingPatch[E], bool) {
	for i, p := range e.pending {
		if p.seq == seq {
			e.pending = append(e.pending[:i:i], e.pending[i+1:]...)
			return p, true
		}
	}
	return pendingPatch[E]{}, false
}

// rebuild recomputes value and state from confirmed and the pending requests.
func (e *entry[ID, E]) rebuild() {
	v := e.confirmed
	for _, p := range e.pending {
		v = p.apply(v)
	}
	e.value = v
	switch {
	case e.deleting != 0:
		e.state = StatePendingDelete
	case len(e.pending) > 0:
		e.state = StatePendingUpdate
	default:
		e.state = StateConfirmed
	}
}

// track registers an optimistic update and returns its request number.
func (e *entry[ID, E]) track(apply func(E) E) uint64 {
	e.seq++
	e.pending = append(e.pending, pendingPatch[E]{seq: e.seq, apply: apply})
	e.rebuild()
	return e.seq
}

type selection[ID comparable] struct {
	cleared    bool
	id         ID
	detailOpen bool
}

// Store keeps an ordered in-memory collection of one entity type in step with
// a remote Backend. Updates and deletes are applied locally before the remote
// call and reverted to the last confirmed value if it fails; creates wait for
// the server so ids are always server-assigned.
//
// Values returned by the store are copies of the held entities and must be
// treated as read-only.
type Store[ID comparable, E Entity[ID, E], P Patch[E]] struct {
	entity  EntityType
	backend Backend[ID, E, P]
	opts    options

	mu          sync.RWMutex
	order       []*entry[ID, E]
	byID        map[ID]*entry[ID, E]
	owner       string
	initialized bool
	selected    ID
	hasSelected bool
	detailOpen  bool

	loads singleflight.Group
}

// NewStore constructs a store for entity backed by the remote adapter.
func NewStore[ID comparable, E Entity[ID, E], P Patch[E]](entity EntityType, backend Backend[ID, E, P], opts ...Option) *Store[ID, E, P] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Store[ID, E, P]{
		entity:  entity,
		backend: backend,
		opts:    o,
		byID:    make(map[ID]*entry[ID, E]),
	}
}

// Entity returns the entity type this store holds.
func (s *Store[ID, E, P]) Entity() EntityType { return s.entity }

// Initialize loads the owner's collection once per store lifetime. Concurrent
// calls share a single remote load; calls after a successful load return the
// current collection without contacting the backend. A failed load leaves the
// store empty and uninitialized so the caller may retry.
func (s *Store[ID, E, P]) Initialize(ctx context.Context, ownerID string) ([]E, error) {
	if s.Initialized() {
		return s.List(), nil
	}
	_, err, _ := s.loads.Do(ownerID, func() (any, error) {
		if s.Initialized() {
			return nil, nil
		}
		ctx, finish := s.begin(ctx, OpInitialize)
		items, err := s.backend.List(ctx, ownerID)
		if err != nil {
			rerr := &RemoteError{Op: OpInitialize, Entity: s.entity, Err: err}
			finish(rerr)
			s.opts.logger.Error("initial load failed", "entity", s.entity, "owner", ownerID, "error", err)
			s.opts.notifier.Notify(ctx, Notification{Level: NotifyError, Op: OpInitialize, Entity: s.entity, Err: rerr})
			return nil, rerr
		}
		s.mu.Lock()
		if !s.initialized {
			s.loadLocked(items)
			s.owner = ownerID
			s.initialized = true
		}
		s.mu.Unlock()
		finish(nil)
		s.opts.logger.Debug("collection loaded", "entity", s.entity, "owner", ownerID, "count", len(items))
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	return s.List(), nil
}

// Reload discards local state and fetches the owner's collection again.
// Responses to requests issued before the reload are ignored.
func (s *Store[ID, E, P]) Reload(ctx context.Context) ([]E, error) {
	s.mu.RLock()
	owner, ok := s.owner, s.initialized
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("reload %s: %w", s.entity, ErrNotFound)
	}
	ctx, finish := s.begin(ctx, OpInitialize)
	items, err := s.backend.List(ctx, owner)
	if err != nil {
		rerr := &RemoteError{Op: OpInitialize, Entity: s.entity, Err: err}
		finish(rerr)
		s.opts.logger.Warn("reload failed", "entity", s.entity, "owner", owner, "error", err)
		s.opts.notifier.Notify(ctx, Notification{Level: NotifyError, Op: OpInitialize, Entity: s.entity, Err: rerr})
		return nil, rerr
	}
	s.mu.Lock()
	s.loadLocked(items)
	s.mu.Unlock()
	finish(nil)
	return s.List(), nil
}

// Replace installs items as the confirmed collection without a remote call
// and marks the store initialized. Duplicate ids keep their first occurrence.
func (s *Store[ID, E, P]) Replace(ownerID string, items []E) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked(items)
	s.owner = ownerID
	s.initialized = true
}

// Reset tears the store down to its freshly constructed state.
func (s *Store[ID, E, P]) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = nil
	s.byID = make(map[ID]*entry[ID, E])
	s.owner = ""
	s.initialized = false
	s.clearSelectionLocked()
}

func (s *Store[ID, E, P]) loadLocked(items []E) {
	s.order = make([]*entry[ID, E], 0, len(items))
	s.byID = make(map[ID]*entry[ID, E], len(items))
	for _, item := range items {
		id := item.EntityID()
		if _, dup := s.byID[id]; dup {
			s.opts.logger.Warn("dropping duplicate id from load", "entity", s.entity, "id", id)
			continue
		}
		e := &entry[ID, E]{id: id, value: item, confirmed: item}
		s.order = append(s.order, e)
		s.byID[id] = e
	}
	s.clearSelectionLocked()
}

// Initialized reports whether a load or Replace has completed.
func (s *Store[ID, E, P]) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// Owner returns the owner id the store was initialized for.
func (s *Store[ID, E, P]) Owner() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.owner
}

// List returns the visible collection in insertion order.
func (s *Store[ID, E, P]) List() []E {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]E, 0, len(s.order))
	for _, e := range s.order {
		if e.state != StatePendingDelete {
			out = append(out, e.value)
		}
	}
	return out
}

// Where returns the visible entities matching pred.
func (s *Store[ID, E, P]) Where(pred func(E) bool) []E {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []E
	for _, e := range s.order {
		if e.state != StatePendingDelete && pred(e.value) {
			out = append(out, e.value)
		}
	}
	return out
}

// Get returns the visible entity with id.
func (s *Store[ID, E, P]) Get(id ID) (E, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.visibleLocked(id)
	if !ok {
		var zero E
		return zero, false
	}
	return e.value, true
}

// Len returns the number of visible entities.
func (s *Store[ID, E, P]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.order {
		if e.state != StatePendingDelete {
			n++
		}
	}
	return n
}

// State reports the synchronisation state of id, including hidden entities
// whose delete is in flight.
func (s *Store[ID, E, P]) State(id ID) (PendingState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byID[id]
	if !ok {
		return 0, false
	}
	return e.state, true
}

// Select marks id as the entity shown in the detail view.
func (s *Store[ID, E, P]) Select(id ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.visibleLocked(id); !ok {
		return fmt.Errorf("select %s %v: %w", s.entity, id, ErrNotFound)
	}
	s.selected = id
	s.hasSelected = true
	return nil
}

// OpenDetail selects id and opens the detail panel.
func (s *Store[ID, E, P]) OpenDetail(id ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.visibleLocked(id); !ok {
		return fmt.Errorf("open %s %v: %w", s.entity, id, ErrNotFound)
	}
	s.selected = id
	s.hasSelected = true
	s.detailOpen = true
	return nil
}

// CloseDetail closes the detail panel but keeps the selection.
func (s *Store[ID, E, P]) CloseDetail() {
	s.mu.Lock()
	s.detailOpen = false
	s.mu.Unlock()
}

// ClearSelection drops the selection and closes the detail panel.
func (s *Store[ID, E, P]) ClearSelection() {
	s.mu.Lock()
	s.clearSelectionLocked()
	s.mu.Unlock()
}

// Selected returns the current value of the selected entity.
func (s *Store[ID, E, P]) Selected() (E, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var zero E
	if !s.hasSelected {
		return zero, false
	}
	e, ok := s.visibleLocked(s.selected)
	if !ok {
		return zero, false
	}
	return e.value, true
}

// DetailOpen reports whether the detail panel is open.
func (s *Store[ID, E, P]) DetailOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.detailOpen
}

func (s *Store[ID, E, P]) clearSelectionLocked() {
	var zero ID
	s.selected = zero
	s.hasSelected = false
	s.detailOpen = false
}

// clearSelectionForLocked drops the selection if it points at one of ids and
// returns what is needed to restore it.
func (s *Store[ID, E, P]) clearSelectionForLocked(ids map[ID]struct{}) selection[ID] {
	if !s.hasSelected {
		return selection[ID]{}
	}
	if _, hit := ids[s.selected]; !hit {
		return selection[ID]{}
	}
	snap := selection[ID]{cleared: true, id: s.selected, detailOpen: s.detailOpen}
	s.clearSelectionLocked()
	return snap
}

func (s *Store[ID, E, P]) restoreSelectionLocked(snap selection[ID]) {
	if !snap.cleared || s.hasSelected {
		return
	}
	if _, ok := s.visibleLocked(snap.id); !ok {
		return
	}
	s.selected = snap.id
	s.hasSelected = true
	s.detailOpen = snap.detailOpen
}

// Create sends draft to the backend and appends the canonical entity it
// returns. Nothing is inserted locally until the server confirms.
func (s *Store[ID, E, P]) Create(ctx context.Context, draft E) (E, error) {
	ctx, finish := s.begin(ctx, OpCreate)
	var zero E
	userID, ok := s.opts.identity.CurrentUserID()
	if !ok || userID == "" {
		finish(ErrUnauthenticated)
		s.opts.logger.Warn("create refused without identity", "entity", s.entity)
		s.notify(ctx, NotifyError, OpCreate, s.displayName(draft), 1, ErrUnauthenticated)
		return zero, ErrUnauthenticated
	}
	owner := s.Owner()
	if owner == "" {
		owner = userID
	}

	created, rerr := s.backend.Create(ctx, owner, draft)
	if rerr != nil {
		err := &RemoteError{Op: OpCreate, Entity: s.entity, Err: rerr}
		finish(err)
		s.opts.logger.Warn("create failed", "entity", s.entity, "error", rerr)
		s.notify(ctx, NotifyError, OpCreate, s.displayName(draft), 1, err)
		return zero, err
	}

	var zeroID ID
	id := created.EntityID()
	s.mu.Lock()
	var err error
	switch _, dup := s.byID[id]; {
	case id == zeroID:
		err = ErrInvalidEntity
	case dup:
		err = fmt.Errorf("%w: %v", ErrDuplicateID, id)
	default:
		e := &entry[ID, E]{id: id, value: created, confirmed: created}
		s.order = append(s.order, e)
		s.byID[id] = e
	}
	s.mu.Unlock()
	finish(err)
	if err != nil {
		s.opts.logger.Error("rejecting created entity", "entity", s.entity, "id", id, "error", err)
		s.notify(ctx, NotifyError, OpCreate, s.displayName(draft), 1, err)
		return zero, err
	}

	s.recordActivity(ctx, ActionCreate, created, nil)
	s.notify(ctx, NotifySuccess, OpCreate, s.displayName(created), 1, nil)
	return created, nil
}

// Update applies patch locally, then remotely. On remote failure the entity
// returns to its last confirmed value.
func (s *Store[ID, E, P]) Update(ctx context.Context, id ID, patch P) (E, error) {
	return s.update(ctx, ActionUpdate, id, patch)
}

// UpdateAs is Update with the activity entry recorded under action, e.g.
// ActionStatusChange.
func (s *Store[ID, E, P]) UpdateAs(ctx context.Context, action Action, id ID, patch P) (E, error) {
	return s.update(ctx, action, id, patch)
}

func (s *Store[ID, E, P]) update(ctx context.Context, action Action, id ID, patch P) (E, error) {
	ctx, finish := s.begin(ctx, OpUpdate)
	var zero E

	s.mu.Lock()
	e, ok := s.visibleLocked(id)
	if !ok {
		s.mu.Unlock()
		err := fmt.Errorf("update %s %v: %w", s.entity, id, ErrNotFound)
		finish(err)
		s.notify(ctx, NotifyError, OpUpdate, idString(id), 1, err)
		return zero, err
	}
	now := s.opts.clock.Now()
	seq := e.track(func(v E) E { return patch.Apply(v).Touch(now) })
	next := e.value
	s.mu.Unlock()

	server, rerr := s.backend.Update(ctx, id, patch)

	var err error
	s.mu.Lock()
	if rerr != nil {
		err = &RemoteError{Op: OpUpdate, Entity: s.entity, ID: idString(id), Err: rerr}
		s.failLocked(e, seq)
	} else {
		next = s.confirmLocked(e, seq, server)
	}
	s.mu.Unlock()
	finish(err)

	if err != nil {
		s.opts.logger.Warn("update rolled back", "entity", s.entity, "id", id, "error", rerr)
		s.notify(ctx, NotifyError, OpUpdate, s.displayName(next), 1, err)
		return zero, err
	}
	s.recordActivity(ctx, action, next, changedFields(patch))
	s.notify(ctx, NotifySuccess, OpUpdate, s.displayName(next), 1, nil)
	return next, nil
}

// Delete hides id immediately and removes it once the backend confirms. On
// failure the entity, selection and detail flag are restored together.
func (s *Store[ID, E, P]) Delete(ctx context.Context, id ID) error {
	ctx, finish := s.begin(ctx, OpDelete)

	s.mu.Lock()
	e, ok := s.visibleLocked(id)
	if !ok {
		s.mu.Unlock()
		err := fmt.Errorf("delete %s %v: %w", s.entity, id, ErrNotFound)
		finish(err)
		s.notify(ctx, NotifyError, OpDelete, idString(id), 1, err)
		return err
	}
	removed := e.value
	e.seq++
	seq := e.seq
	e.deleting = seq
	e.rebuild()
	sel := s.clearSelectionForLocked(map[ID]struct{}{id: {}})
	s.mu.Unlock()

	rerr := s.backend.Delete(ctx, id)

	var err error
	s.mu.Lock()
	if rerr != nil {
		err = &RemoteError{Op: OpDelete, Entity: s.entity, ID: idString(id), Err: rerr}
		if s.failLocked(e, seq) {
			s.restoreSelectionLocked(sel)
		}
	} else {
		s.removeLocked(e, seq)
	}
	s.mu.Unlock()
	finish(err)

	if err != nil {
		s.opts.logger.Warn("delete rolled back", "entity", s.entity, "id", id, "error", rerr)
		s.notify(ctx, NotifyError, OpDelete, s.displayName(removed), 1, err)
		return err
	}
	s.recordActivity(ctx, ActionDelete, removed, nil)
	s.notify(ctx, NotifySuccess, OpDelete, s.displayName(removed), 1, nil)
	return nil
}

type batchItem[ID comparable, E any] struct {
	e     *entry[ID, E]
	seq   uint64
	value E
}

// BulkUpdate applies patch to every id locally, issues the remote updates
// concurrently and waits for all of them. If any fails, every entity in the
// batch is rolled back; remote calls that succeeded are not undone.
func (s *Store[ID, E, P]) BulkUpdate(ctx context.Context, ids []ID, patch P) ([]E, error) {
	ctx, finish := s.begin(ctx, OpBulkUpdate)
	ids = dedupe(ids)
	if len(ids) == 0 {
		finish(nil)
		return nil, nil
	}

	now := s.opts.clock.Now()
	s.mu.Lock()
	if err := s.requireVisibleLocked(OpBulkUpdate, ids); err != nil {
		s.mu.Unlock()
		finish(err)
		s.notify(ctx, NotifyError, OpBulkUpdate, "", len(ids), err)
		return nil, err
	}
	items := make([]batchItem[ID, E], 0, len(ids))
	for _, id := range ids {
		e := s.byID[id]
		seq := e.track(func(v E) E { return patch.Apply(v).Touch(now) })
		items = append(items, batchItem[ID, E]{e: e, seq: seq, value: e.value})
	}
	s.mu.Unlock()

	servers := make([]E, len(items))
	errs := fanOut(ctx, len(items), func(ctx context.Context, i int) error {
		srv, err := s.backend.Update(ctx, items[i].e.id, patch)
		servers[i] = srv
		return err
	})
	batchErr := s.batchError(OpBulkUpdate, items, errs)

	var out []E
	s.mu.Lock()
	if batchErr == nil {
		out = make([]E, 0, len(items))
		for i, it := range items {
			out = append(out, s.confirmLocked(it.e, it.seq, servers[i]))
		}
	} else {
		for _, it := range items {
			s.failLocked(it.e, it.seq)
		}
	}
	s.mu.Unlock()
	finish(batchErr)

	if batchErr != nil {
		s.opts.logger.Warn("bulk update rolled back", "entity", s.entity, "size", len(items), "failed", len(batchErr.Failed))
		s.notify(ctx, NotifyError, OpBulkUpdate, "", len(items), batchErr)
		return nil, batchErr
	}
	fields := changedFields(patch)
	for _, v := range out {
		s.recordActivity(ctx, ActionUpdate, v, fields)
	}
	s.notify(ctx, NotifySuccess, OpBulkUpdate, "", len(out), nil)
	return out, nil
}

// BulkDelete hides every id, deletes them remotely in parallel and restores
// the whole batch if any delete fails.
func (s *Store[ID, E, P]) BulkDelete(ctx context.Context, ids []ID) error {
	ctx, finish := s.begin(ctx, OpBulkDelete)
	ids = dedupe(ids)
	if len(ids) == 0 {
		finish(nil)
		return nil
	}

	s.mu.Lock()
	if err := s.requireVisibleLocked(OpBulkDelete, ids); err != nil {
		s.mu.Unlock()
		finish(err)
		s.notify(ctx, NotifyError, OpBulkDelete, "", len(ids), err)
		return err
	}
	set := make(map[ID]struct{}, len(ids))
	items := make([]batchItem[ID, E], 0, len(ids))
	for _, id := range ids {
		e := s.byID[id]
		e.seq++
		e.deleting = e.seq
		e.rebuild()
		items = append(items, batchItem[ID, E]{e: e, seq: e.seq, value: e.value})
		set[id] = struct{}{}
	}
	sel := s.clearSelectionForLocked(set)
	s.mu.Unlock()

	errs := fanOut(ctx, len(items), func(ctx context.Context, i int) error {
		return s.backend.Delete(ctx, items[i].e.id)
	})
	batchErr := s.batchError(OpBulkDelete, items, errs)

	s.mu.Lock()
	if batchErr == nil {
		for _, it := range items {
			s.removeLocked(it.e, it.seq)
		}
	} else {
		restored := false
		for _, it := range items {
			if s.failLocked(it.e, it.seq) {
				restored = true
			}
		}
		if restored {
			s.restoreSelectionLocked(sel)
		}
	}
	s.mu.Unlock()
	finish(batchErr)

	if batchErr != nil {
		s.opts.logger.Warn("bulk delete rolled back", "entity", s.entity, "size", len(items), "failed", len(batchErr.Failed))
		s.notify(ctx, NotifyError, OpBulkDelete, "", len(items), batchErr)
		return batchErr
	}
	for _, it := range items {
		s.recordActivity(ctx, ActionDelete, it.value, nil)
	}
	s.notify(ctx, NotifySuccess, OpBulkDelete, "", len(items), nil)
	return nil
}

func (s *Store[ID, E, P]) batchError(op Operation, items []batchItem[ID, E], errs []error) *BatchError {
	var failed map[string]error
	for i, err := range errs {
		if err == nil {
			continue
		}
		if failed == nil {
			failed = make(map[string]error)
		}
		id := idString(items[i].e.id)
		failed[id] = &RemoteError{Op: op, Entity: s.entity, ID: id, Err: err}
	}
	if failed == nil {
		return nil
	}
	return &BatchError{Op: op, Entity: s.entity, Failed: failed}
}

func (s *Store[ID, E, P]) requireVisibleLocked(op Operation, ids []ID) error {
	for _, id := range ids {
		if _, ok := s.visibleLocked(id); !ok {
			return fmt.Errorf("%s %s %v: %w", op, s.entity, id, ErrNotFound)
		}
	}
	return nil
}

func (s *Store[ID, E, P]) visibleLocked(id ID) (*entry[ID, E], bool) {
	e, ok := s.byID[id]
	if !ok || e.state == StatePendingDelete {
		return nil, false
	}
	return e, true
}

// liveLocked reports whether e is still the entry tracked for its id. A
// Reload replaces entries, which turns every older response stale.
func (s *Store[ID, E, P]) liveLocked(e *entry[ID, E]) bool {
	return s.byID[e.id] == e
}

// confirmLocked folds the patch of a successful request seq into the
// confirmed value and returns it. The server timestamp is adopted only when
// no newer response has been applied.
func (s *Store[ID, E, P]) confirmLocked(e *entry[ID, E], seq uint64, server E) E {
	p, ok := e.settle(seq)
	if !ok {
		return e.value
	}
	v := p.apply(e.confirmed)
	if !s.liveLocked(e) {
		s.opts.logger.Debug("discarding response issued before reload", "entity", s.entity, "id", e.id, "seq", seq)
		return reconcile(v, server)
	}
	if seq > e.applied {
		e.applied = seq
		v = reconcile(v, server)
	} else {
		s.opts.logger.Debug("discarding stale server timestamp", "entity", s.entity, "id", e.id, "seq", seq)
	}
	e.confirmed = v
	e.rebuild()
	return v
}

// failLocked drops request seq and rebuilds the entity from its confirmed
// value and the requests still in flight. It reports whether the entity is
// still tracked.
func (s *Store[ID, E, P]) failLocked(e *entry[ID, E], seq uint64) bool {
	e.settle(seq)
	if e.deleting == seq {
		e.deleting = 0
	}
	if !s.liveLocked(e) {
		s.opts.logger.Debug("discarding failure issued before reload", "entity", s.entity, "id", e.id, "seq", seq)
		return false
	}
	e.rebuild()
	return true
}

func (s *Store[ID, E, P]) removeLocked(e *entry[ID, E], seq uint64) {
	if !s.liveLocked(e) || seq <= e.applied {
		return
	}
	e.applied = seq
	delete(s.byID, e.id)
	for i, cur := range s.order {
		if cur == e {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *Store[ID, E, P]) begin(ctx context.Context, op Operation) (context.Context, func(error)) {
	name := string(op) + "_" + string(s.entity)
	started := time.Now()
	ctx, span := s.opts.tracer.Start(ctx, name)
	return ctx, func(err error) {
		span.End(err)
		s.opts.metrics.Observe(ctx, name, err == nil, time.Since(started))
	}
}

func (s *Store[ID, E, P]) notify(ctx context.Context, level NotificationLevel, op Operation, name string, count int, err error) {
	s.opts.notifier.Notify(ctx, Notification{
		Level:  level,
		Op:     op,
		Entity: s.entity,
		Name:   name,
		Count:  count,
		Err:    err,
	})
}

func (s *Store[ID, E, P]) recordActivity(ctx context.Context, action Action, v E, metadata map[string]any) {
	defer func() {
		if r := recover(); r != nil {
			s.opts.logger.Error("activity recorder panicked", "entity", s.entity, "panic", r)
		}
	}()
	s.opts.activity.Record(ctx, ActivityEntry{
		Action:      action,
		Entity:      s.entity,
		EntityID:    idString(v.EntityID()),
		DisplayName: s.displayName(v),
		Metadata:    metadata,
		OccurredAt:  s.opts.clock.Now(),
	})
}

func (s *Store[ID, E, P]) displayName(v E) string {
	if n, ok := any(v).(interface{ DisplayName() string }); ok {
		if name := n.DisplayName(); name != "" {
			return name
		}
	}
	var zeroID ID
	if id := v.EntityID(); id != zeroID {
		return idString(id)
	}
	return ""
}

// reconcile adopts the server's UpdatedAt when it reports one.
func reconcile[ID comparable, E Entity[ID, E]](local, server E) E {
	if ts := server.LastUpdated(); !ts.IsZero() {
		return local.Touch(ts)
	}
	return local
}

func changedFields(patch any) map[string]any {
	p, ok := patch.(interface{ Fields() map[string]any })
	if !ok {
		return nil
	}
	fields := p.Fields()
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return map[string]any{"changed": keys}
}

// fanOut runs call for every index concurrently and waits for all of them;
// one failure does not cancel the others.
func fanOut(ctx context.Context, n int, call func(ctx context.Context, i int) error) []error {
	errs := make([]error, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			errs[i] = call(ctx, i)
			return errs[i]
		})
	}
	_ = g.Wait()
	return errs
}

func dedupe[ID comparable](ids []ID) []ID {
	seen := make(map[ID]struct{}, len(ids))
	out := make([]ID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func idString[ID comparable](id ID) string {
	if s, ok := any(id).(string); ok {
		return s
	}
	return fmt.Sprint(id)
}
