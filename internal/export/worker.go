// Package export renders a creator's collections to JSON or CSV and writes
// them to the archive on a background worker.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"creatorhub/internal/archive"
	"creatorhub/internal/core"
	"creatorhub/pkg/domain"
)

// Status is the lifecycle stage of an export.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Format is an output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

func (f Format) contentType() string {
	if f == FormatCSV {
		return "text/csv"
	}
	return "application/json"
}

// ErrQueueFull is returned when the worker cannot accept more requests.
var ErrQueueFull = errors.New("export: queue full")

// ErrStopped is recorded on exports still queued when the worker stops and
// returned for requests made after it.
var ErrStopped = errors.New("export: worker stopped")

// Source yields the current items of one collection for an owner.
type Source interface {
	Owner() string
	Items(entity domain.EntityType) ([]any, error)
}

// Request asks for an export. Empty Entities means every collection; empty
// Formats means JSON only.
type Request struct {
	Source      Source
	Entities    []domain.EntityType
	Formats     []Format
	RequestedBy string
}

// Artifact is one written object.
type Artifact struct {
	Entity domain.EntityType `json:"entity"`
	Format Format            `json:"format"`
	Rows   int               `json:"rows"`
	URL    string            `json:"url,omitempty"`
	archive.Object
}

// Record tracks one export.
type Record struct {
	ID          string              `json:"id"`
	Owner       string              `json:"owner"`
	Entities    []domain.EntityType `json:"entities"`
	Formats     []Format            `json:"formats"`
	Status      Status              `json:"status"`
	Error       string              `json:"error,omitempty"`
	Artifacts   []Artifact          `json:"artifacts,omitempty"`
	RequestedBy string              `json:"requested_by,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
}

func (r Record) copy() Record {
	dup := r
	dup.Entities = append([]domain.EntityType(nil), r.Entities...)
	dup.Formats = append([]Format(nil), r.Formats...)
	dup.Artifacts = append([]Artifact(nil), r.Artifacts...)
	return dup
}

// Done reports whether the export reached a final status.
func (r Record) Done() bool { return r.Status == StatusSucceeded || r.Status == StatusFailed }

type job struct {
	id  string
	req Request
}

// Worker processes export requests one at a time.
type Worker struct {
	store  archive.Store
	logger core.Logger

	queue chan job
	mu    sync.RWMutex
	jobs  map[string]*Record
	done  map[string]chan struct{}
	// stopped is guarded by mu; no job enters the queue once it is set.
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWorker constructs a worker with room for queueSize pending requests.
func NewWorker(store archive.Store, queueSize int, logger core.Logger) *Worker {
	if queueSize <= 0 {
		queueSize = 16
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		store:  store,
		logger: logger,
		queue:  make(chan job, queueSize),
		jobs:   make(map[string]*Record),
		done:   make(map[string]chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start launches the processing loop.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop cancels the loop and waits for it up to ctx. Exports still queued
// fail with ErrStopped, which releases anyone waiting on them.
func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	w.stopped = true
	w.mu.Unlock()
	w.cancel()
	finished := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		w.drain()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	defer w.drain()
	for {
		if w.ctx.Err() != nil {
			return
		}
		select {
		case <-w.ctx.Done():
			return
		case j := <-w.queue:
			w.process(j)
		}
	}
}

// drain fails every queued export without blocking.
func (w *Worker) drain() {
	for {
		select {
		case j := <-w.queue:
			w.finish(j.id, nil, ErrStopped)
		default:
			return
		}
	}
}

// Enqueue validates req and queues it.
func (w *Worker) Enqueue(req Request) (Record, error) {
	if req.Source == nil {
		return Record{}, errors.New("export: source is required")
	}
	owner := req.Source.Owner()
	if owner == "" {
		return Record{}, errors.New("export: source has no owner")
	}
	entities := req.Entities
	if len(entities) == 0 {
		entities = domain.EntityTypes()
	}
	known := make(map[domain.EntityType]bool)
	for _, e := range domain.EntityTypes() {
		known[e] = true
	}
	for _, e := range entities {
		if !known[e] {
			return Record{}, fmt.Errorf("export: unknown collection %q", e)
		}
	}
	formats, err := uniqueFormats(req.Formats)
	if err != nil {
		return Record{}, err
	}

	now := time.Now().UTC()
	rec := &Record{
		ID:          uuid.NewString(),
		Owner:       owner,
		Entities:    append([]domain.EntityType(nil), entities...),
		Formats:     formats,
		Status:      StatusQueued,
		RequestedBy: req.RequestedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return Record{}, ErrStopped
	}
	w.jobs[rec.ID] = rec
	w.done[rec.ID] = make(chan struct{})
	snapshot := rec.copy()
	var queued bool
	select {
	case w.queue <- job{id: rec.ID, req: req}:
		queued = true
	default:
	}
	w.mu.Unlock()

	if !queued {
		w.finish(rec.ID, nil, ErrQueueFull)
		return Record{}, ErrQueueFull
	}
	return snapshot, nil
}

func uniqueFormats(in []Format) ([]Format, error) {
	if len(in) == 0 {
		return []Format{FormatJSON}, nil
	}
	seen := make(map[Format]bool)
	out := make([]Format, 0, len(in))
	for _, f := range in {
		if f != FormatJSON && f != FormatCSV {
			return nil, fmt.Errorf("export: unsupported format %q", f)
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out, nil
}

// Get returns a snapshot of the export.
func (w *Worker) Get(id string) (Record, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	rec, ok := w.jobs[id]
	if !ok {
		return Record{}, false
	}
	return rec.copy(), true
}

// Wait blocks until the export finishes or ctx ends.
func (w *Worker) Wait(ctx context.Context, id string) (Record, error) {
	w.mu.RLock()
	ch, ok := w.done[id]
	w.mu.RUnlock()
	if !ok {
		return Record{}, fmt.Errorf("export %s not found", id)
	}
	select {
	case <-ch:
		rec, _ := w.Get(id)
		return rec, nil
	case <-ctx.Done():
		return Record{}, ctx.Err()
	}
}

func (w *Worker) process(j job) {
	rec, ok := w.Get(j.id)
	if !ok {
		return
	}
	w.setRunning(j.id)

	var artifacts []Artifact
	for _, entity := range rec.Entities {
		items, err := j.req.Source.Items(entity)
		if err != nil {
			w.finish(j.id, nil, fmt.Errorf("read %s: %w", entity, err))
			return
		}
		for _, format := range rec.Formats {
			payload, err := render(format, items)
			if err != nil {
				w.finish(j.id, nil, fmt.Errorf("render %s as %s: %w", entity, format, err))
				return
			}
			key := fmt.Sprintf("%s/%s/%s.%s", rec.Owner, rec.ID, entity, format)
			obj, err := w.store.Put(w.ctx, key, bytes.NewReader(payload), archive.PutOptions{
				ContentType: format.contentType(),
				Metadata:    map[string]string{"entity": string(entity), "export": rec.ID},
			})
			if err != nil {
				w.finish(j.id, nil, fmt.Errorf("store %s: %w", key, err))
				return
			}
			art := Artifact{Entity: entity, Format: format, Rows: len(items), Object: obj}
			if u, err := w.store.URL(w.ctx, key, 0); err == nil {
				art.URL = u
			}
			artifacts = append(artifacts, art)
		}
	}
	w.finish(j.id, artifacts, nil)
}

func (w *Worker) setRunning(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if rec, ok := w.jobs[id]; ok {
		rec.Status = StatusRunning
		rec.UpdatedAt = time.Now().UTC()
	}
}

func (w *Worker) finish(id string, artifacts []Artifact, err error) {
	now := time.Now().UTC()
	w.mu.Lock()
	rec, ok := w.jobs[id]
	if ok {
		rec.UpdatedAt = now
		rec.CompletedAt = &now
		if err != nil {
			rec.Status = StatusFailed
			rec.Error = err.Error()
		} else {
			rec.Status = StatusSucceeded
			rec.Artifacts = artifacts
		}
	}
	if ch, ok := w.done[id]; ok {
		close(ch)
	}
	w.mu.Unlock()

	if w.logger == nil || !ok {
		return
	}
	if err != nil {
		w.logger.Warn("export failed", "export", id, "owner", rec.Owner, "error", err)
		return
	}
	w.logger.Info("export finished", "export", id, "owner", rec.Owner, "artifacts", len(artifacts))
}

func render(format Format, items []any) ([]byte, error) {
	if format == FormatJSON {
		if items == nil {
			items = []any{}
		}
		return json.MarshalIndent(items, "", "  ")
	}
	rows := make([]map[string]any, 0, len(items))
	colSet := make(map[string]bool)
	for _, item := range items {
		raw, err := json.Marshal(item)
		if err != nil {
			return nil, err
		}
		var row map[string]any
		if err := json.Unmarshal(raw, &row); err != nil {
			return nil, err
		}
		for k := range row {
			colSet[k] = true
		}
		rows = append(rows, row)
	}
	columns := orderColumns(colSet)
	buf := &bytes.Buffer{}
	cw := csv.NewWriter(buf)
	if err := cw.Write(columns); err != nil {
		return nil, err
	}
	for _, row := range rows {
		record := make([]string, len(columns))
		for i, c := range columns {
			record[i] = formatValue(row[c])
		}
		if err := cw.Write(record); err != nil {
			return nil, err
		}
	}
	cw.Flush()
	return buf.Bytes(), cw.Error()
}

// orderColumns puts the metadata columns first, the rest alphabetically.
func orderColumns(set map[string]bool) []string {
	lead := []string{"id", "owner_id", "created_at", "updated_at"}
	out := make([]string, 0, len(set))
	for _, c := range lead {
		if set[c] {
			out = append(out, c)
			delete(set, c)
		}
	}
	rest := make([]string, 0, len(set))
	for c := range set {
		rest = append(rest, c)
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}
