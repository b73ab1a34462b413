package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"

	"creatorhub/internal/archive"
	"creatorhub/internal/infra/persistence/memory"
	"creatorhub/internal/workspace"
	"creatorhub/pkg/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var now = time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)

func demoWorkspace(t *testing.T) *workspace.Workspace {
	t.Helper()
	ws := workspace.New(memory.NewStore(), workspace.Options{})
	ws.LoadDemo("ana", now)
	return ws
}

func startWorker(t *testing.T, store archive.Store, size int) *Worker {
	t.Helper()
	w := NewWorker(store, size, nil)
	w.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := w.Stop(ctx); err != nil {
			t.Errorf("stop: %v", err)
		}
	})
	return w
}

func read(t *testing.T, store archive.Store, key string) []byte {
	t.Helper()
	_, rc, err := store.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("get %s: %v", key, err)
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read %s: %v", key, err)
	}
	return b
}

func TestExportWritesEveryFormat(t *testing.T) {
	store := archive.NewMemory()
	w := startWorker(t, store, 4)
	ws := demoWorkspace(t)

	rec, err := w.Enqueue(Request{
		Source:   FromWorkspace(ws),
		Entities: []domain.EntityType{domain.EntityCompany, domain.EntityTask},
		Formats:  []Format{FormatJSON, FormatCSV, FormatJSON},
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if rec.Status != StatusQueued || rec.Owner != "ana" || len(rec.Formats) != 2 {
		t.Fatalf("unexpected queued record %+v", rec)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	done, err := w.Wait(ctx, rec.ID)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if done.Status != StatusSucceeded || len(done.Artifacts) != 4 || done.CompletedAt == nil {
		t.Fatalf("unexpected finished record %+v", done)
	}

	var companies []domain.Company
	if err := json.Unmarshal(read(t, store, "ana/"+rec.ID+"/company.json"), &companies); err != nil {
		t.Fatalf("decode companies: %v", err)
	}
	if len(companies) != 3 {
		t.Fatalf("expected 3 companies, got %d", len(companies))
	}

	rows, err := csv.NewReader(strings.NewReader(string(read(t, store, "ana/"+rec.ID+"/task.csv")))).ReadAll()
	if err != nil {
		t.Fatalf("decode tasks csv: %v", err)
	}
	if len(rows) != 6 || rows[0][0] != "id" || rows[0][1] != "owner_id" {
		t.Fatalf("unexpected csv header %v (%d rows)", rows[0], len(rows))
	}
	for _, a := range done.Artifacts {
		if a.Entity == domain.EntityTask && a.Rows != 5 {
			t.Fatalf("expected 5 task rows, got %d", a.Rows)
		}
		if a.Metadata["export"] != rec.ID {
			t.Fatalf("artifact metadata missing export id: %+v", a.Metadata)
		}
	}
}

type brokenSource struct{}

func (brokenSource) Owner() string { return "ana" }
func (brokenSource) Items(domain.EntityType) ([]any, error) {
	return nil, errors.New("disk gone")
}

func TestExportFailureIsRecorded(t *testing.T) {
	w := startWorker(t, archive.NewMemory(), 1)
	rec, err := w.Enqueue(Request{Source: brokenSource{}, Entities: []domain.EntityType{domain.EntityGoal}})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	done, err := w.Wait(ctx, rec.ID)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if done.Status != StatusFailed || !strings.Contains(done.Error, "disk gone") {
		t.Fatalf("expected failed export, got %+v", done)
	}
}

func TestEnqueueValidation(t *testing.T) {
	w := NewWorker(archive.NewMemory(), 1, nil)
	ws := demoWorkspace(t)
	cases := map[string]Request{
		"no source":  {},
		"no owner":   {Source: FromWorkspace(workspace.New(memory.NewStore(), workspace.Options{}))},
		"bad entity": {Source: FromWorkspace(ws), Entities: []domain.EntityType{"invoice"}},
		"bad format": {Source: FromWorkspace(ws), Formats: []Format{"xlsx"}},
	}
	for name, req := range cases {
		if _, err := w.Enqueue(req); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}

	// The worker is not started, so the second request overflows the queue.
	if _, err := w.Enqueue(Request{Source: FromWorkspace(ws)}); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	if _, err := w.Enqueue(Request{Source: FromWorkspace(ws)}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if _, err := w.Wait(context.Background(), "missing"); err == nil {
		t.Fatalf("expected unknown export error")
	}
}

func TestStopFailsQueuedExports(t *testing.T) {
	w := NewWorker(archive.NewMemory(), 4, nil)
	ws := demoWorkspace(t)
	var ids []string
	for range 2 {
		rec, err := w.Enqueue(Request{Source: FromWorkspace(ws)})
		if err != nil {
			t.Fatalf("enqueue: %v", err)
		}
		ids = append(ids, rec.ID)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := w.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	for _, id := range ids {
		rec, err := w.Wait(ctx, id)
		if err != nil {
			t.Fatalf("wait %s: %v", id, err)
		}
		if rec.Status != StatusFailed || rec.Error != ErrStopped.Error() || rec.CompletedAt == nil {
			t.Fatalf("queued export not failed on stop: %+v", rec)
		}
	}
	if _, err := w.Enqueue(Request{Source: FromWorkspace(ws)}); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped after stop, got %v", err)
	}
}

func TestFormatValue(t *testing.T) {
	cases := map[string]any{
		"":           nil,
		"3":          float64(3),
		"2.5":        2.5,
		"true":       true,
		`["a","b"]`:  []any{"a", "b"},
		"plain text": "plain text",
	}
	for want, in := range cases {
		if got := formatValue(in); got != want {
			t.Fatalf("formatValue(%v) = %q, want %q", in, got, want)
		}
	}
}
