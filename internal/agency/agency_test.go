package agency

import (
	"context"
	"errors"
	"testing"
	"time"

	"creatorhub/internal/core"
	"creatorhub/internal/infra/persistence"
	"creatorhub/internal/infra/persistence/memory"
	"creatorhub/internal/views"
	"creatorhub/internal/workspace"
	"creatorhub/pkg/domain"
)

var now = time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)

func seed(t *testing.T, rows *memory.Store, owner string, companies []domain.Company, tasks []domain.Task) {
	t.Helper()
	ctx := context.Background()
	cc := persistence.NewCollection[domain.Company, domain.CompanyPatch](rows, domain.EntityCompany,
		persistence.WithClock(func() time.Time { return now }))
	for _, c := range companies {
		if _, err := cc.Create(ctx, owner, c); err != nil {
			t.Fatalf("seed company: %v", err)
		}
	}
	tc := persistence.NewCollection[domain.Task, domain.TaskPatch](rows, domain.EntityTask,
		persistence.WithClock(func() time.Time { return now }))
	for _, tk := range tasks {
		if _, err := tc.Create(ctx, owner, tk); err != nil {
			t.Fatalf("seed task: %v", err)
		}
	}
}

func TestOverviewOrdersLeastHealthyFirst(t *testing.T) {
	rows := memory.NewStore()
	late := now.Add(-48 * time.Hour)
	seed(t, rows, "ana", []domain.Company{{Name: "Calm Co", Status: domain.CompanyActive}}, nil)
	seed(t, rows, "ben", []domain.Company{{Name: "Busy Co", Status: domain.CompanyPaused}},
		[]domain.Task{{Title: "late", Status: domain.TaskTodo, Priority: domain.PriorityLow, DueDate: &late}})

	a := New(rows, workspace.Options{Clock: core.ClockFunc(func() time.Time { return now })}, views.DefaultThresholds)
	ctx := context.Background()
	for _, c := range []Creator{{ID: "ana", Name: "Ana"}, {ID: "ben", Name: "Ben"}} {
		if _, err := a.Add(ctx, c); err != nil {
			t.Fatalf("add %s: %v", c.ID, err)
		}
	}
	if _, err := a.Add(ctx, Creator{ID: "ana"}); err != nil {
		t.Fatalf("re-add: %v", err)
	}
	if got := a.Creators(); len(got) != 2 || got[0].Name != "Ana" {
		t.Fatalf("unexpected creators %+v", got)
	}

	rows0 := a.Overview(now)
	if len(rows0) != 2 {
		t.Fatalf("expected 2 overview rows, got %d", len(rows0))
	}
	if rows0[0].Creator.ID != "ben" || rows0[0].Summary.OverdueTasks != 1 {
		t.Fatalf("expected ben first, got %+v", rows0[0])
	}
	if rows0[1].Summary.AverageHealth <= rows0[0].Summary.AverageHealth {
		t.Fatalf("overview not sorted: %d then %d", rows0[0].Summary.AverageHealth, rows0[1].Summary.AverageHealth)
	}
	if len(rows0[0].Week) != 7 {
		t.Fatalf("expected a week of load")
	}
}

func TestWorkspacesActAsTheirCreator(t *testing.T) {
	rows := memory.NewStore()
	a := New(rows, workspace.Options{}, views.DefaultThresholds)
	ctx := context.Background()
	ana, err := a.Add(ctx, Creator{ID: "ana"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := a.Add(ctx, Creator{ID: "ben"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	created, err := ana.Tasks.Create(ctx, domain.Task{Title: "ana's task", Status: domain.TaskTodo, Priority: domain.PriorityLow})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.OwnerID != "ana" {
		t.Fatalf("expected ana as owner, got %q", created.OwnerID)
	}

	// A write made directly in storage shows up after Refresh.
	seed(t, rows, "ben", nil, []domain.Task{{Title: "from elsewhere", Status: domain.TaskTodo, Priority: domain.PriorityLow}})
	if err := a.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	ben, err := a.Workspace("ben")
	if err != nil {
		t.Fatalf("workspace: %v", err)
	}
	if ben.Tasks.Len() != 1 || ana.Tasks.Len() != 1 {
		t.Fatalf("unexpected task counts ana=%d ben=%d", ana.Tasks.Len(), ben.Tasks.Len())
	}

	if err := a.Remove("ben"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := a.Workspace("ben"); !errors.Is(err, ErrUnknownCreator) {
		t.Fatalf("expected unknown creator, got %v", err)
	}
	if err := a.Remove("ben"); !errors.Is(err, ErrUnknownCreator) {
		t.Fatalf("expected unknown creator on second remove, got %v", err)
	}
	if _, err := a.Add(ctx, Creator{}); err == nil {
		t.Fatalf("expected error for empty creator id")
	}
	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
