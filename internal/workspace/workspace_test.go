package workspace

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/goleak"

	"creatorhub/internal/config"
	"creatorhub/internal/core"
	"creatorhub/internal/identity"
	"creatorhub/internal/infra/persistence"
	"creatorhub/internal/infra/persistence/memory"
	"creatorhub/internal/notify"
	"creatorhub/internal/views"
	"creatorhub/pkg/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var now = time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC) // Monday

type fixture struct {
	rows  *memory.Store
	ws    *Workspace
	toast *notify.Recorder
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	rows := memory.NewStore()
	toast := notify.NewRecorder(nil, 0)
	ws := New(rows, Options{
		Identity: identity.Static("creator-1"),
		Notifier: toast,
		Clock:    core.ClockFunc(func() time.Time { return now }),
	})
	return fixture{rows: rows, ws: ws, toast: toast}
}

func (f fixture) open(t *testing.T) {
	t.Helper()
	if err := f.ws.Open(context.Background(), "creator-1"); err != nil {
		t.Fatalf("open: %v", err)
	}
}

func TestOpenLoadsPersistedCollections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seed := persistence.NewCollection[domain.Company, domain.CompanyPatch](f.rows, domain.EntityCompany)
	if _, err := seed.Create(ctx, "creator-1", domain.Company{Name: "Acme", Status: domain.CompanyActive}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := seed.Create(ctx, "someone-else", domain.Company{Name: "Other", Status: domain.CompanyActive}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	f.open(t)
	if !f.ws.Initialized() {
		t.Fatalf("expected every store initialized")
	}
	counts := f.ws.Counts()
	if counts[domain.EntityCompany] != 1 || counts[domain.EntityTask] != 0 || len(counts) != 6 {
		t.Fatalf("unexpected counts %v", counts)
	}
}

func TestOpenFailureAllowsRetry(t *testing.T) {
	f := newFixture(t)
	offline := errors.New("offline")
	f.rows.SetFault(func(op memory.Op, kind domain.EntityType, _ string) error {
		if op == memory.OpList && kind == domain.EntityTask {
			return offline
		}
		return nil
	})
	err := f.ws.Open(context.Background(), "creator-1")
	if !errors.Is(err, offline) {
		t.Fatalf("expected offline error, got %v", err)
	}
	if f.ws.Tasks.Initialized() || f.ws.Initialized() {
		t.Fatalf("failed store must stay uninitialized")
	}
	if f.toast.Count(core.NotifyError) == 0 {
		t.Fatalf("expected an error toast")
	}
	f.rows.SetFault(nil)
	f.open(t)
}

func TestTaskQueriesAndStatusChange(t *testing.T) {
	f := newFixture(t)
	f.open(t)
	ctx := context.Background()

	company, err := f.ws.Companies.Create(ctx, domain.Company{Name: "Acme", Status: domain.CompanyActive})
	if err != nil {
		t.Fatalf("create company: %v", err)
	}
	yesterday := now.Add(-24 * time.Hour)
	today := now.Add(2 * time.Hour)
	late, err := f.ws.Tasks.Create(ctx, domain.Task{Title: "invoice", Status: domain.TaskTodo, Priority: domain.PriorityLow, DueDate: &yesterday})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	due, err := f.ws.Tasks.Create(ctx, domain.Task{Title: "caption", Status: domain.TaskTodo, Priority: domain.PriorityHigh, DueDate: &today})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if _, err := f.ws.Tasks.LinkCompany(ctx, due.ID, company); err != nil {
		t.Fatalf("link: %v", err)
	}

	if got := f.ws.Tasks.Overdue(now); len(got) != 1 || got[0].ID != late.ID {
		t.Fatalf("unexpected overdue %+v", got)
	}
	if got := f.ws.Tasks.ForDate(now); len(got) != 1 || got[0].ID != due.ID {
		t.Fatalf("unexpected ForDate %+v", got)
	}
	if got := f.ws.Tasks.ForCompany(company.ID); len(got) != 1 || got[0].CompanyName != "Acme" {
		t.Fatalf("unexpected ForCompany %+v", got)
	}

	done, err := f.ws.Tasks.SetStatus(ctx, late.ID, domain.TaskDone, now)
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	if done.CompletedAt == nil || !done.CompletedAt.Equal(now) {
		t.Fatalf("expected completed_at stamp, got %+v", done)
	}
	if len(f.ws.Tasks.Overdue(now)) != 0 || len(f.ws.Tasks.ByStatus(domain.TaskDone)) != 1 {
		t.Fatalf("status change not visible in queries")
	}

	entries := f.ws.Activity.ForEntity(domain.EntityTask, late.ID)
	if len(entries) != 2 || entries[1].Type != domain.ActionStatusChange {
		t.Fatalf("unexpected activity %+v", entries)
	}
	if f.ws.ActivityFailures() != 0 {
		t.Fatalf("unexpected activity failures")
	}

	// Renaming the company leaves the task snapshot alone.
	if _, err := f.ws.Companies.Update(ctx, company.ID, domain.CompanyPatch{Name: domain.Ptr("Acme Corp")}); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if got, _ := f.ws.Tasks.Get(due.ID); got.CompanyName != "Acme" {
		t.Fatalf("snapshot must not follow rename, got %q", got.CompanyName)
	}
	reopened, err := f.ws.Tasks.SetStatus(ctx, late.ID, domain.TaskInProgress, now)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reopened.CompletedAt != nil || reopened.Status != domain.TaskInProgress {
		t.Fatalf("reopening must clear completed_at, got %+v", reopened)
	}
	persisted, err := f.ws.Tasks.Reload(ctx)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	for _, tk := range persisted {
		if tk.ID == late.ID && tk.CompletedAt != nil {
			t.Fatalf("completed_at survived in storage: %+v", tk)
		}
	}
}

func TestUpdateRollbackThroughDriver(t *testing.T) {
	f := newFixture(t)
	f.open(t)
	ctx := context.Background()
	g, err := f.ws.Goals.Create(ctx, domain.Goal{Title: "posts", Date: now, Target: 2})
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}
	if g, err = f.ws.Goals.Progress(ctx, g.ID, 2); err != nil || !g.Completed {
		t.Fatalf("progress: %+v %v", g, err)
	}
	// The rules engine rejects a zero target; the store restores the goal.
	if _, err := f.ws.Goals.Update(ctx, g.ID, domain.GoalPatch{Target: domain.Ptr(0)}); err == nil {
		t.Fatalf("expected rule violation")
	}
	got, _ := f.ws.Goals.Get(g.ID)
	if got.Target != 2 || got.Progress != 2 {
		t.Fatalf("goal not restored: %+v", got)
	}
	if _, err := f.ws.Goals.Progress(ctx, "missing", 1); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if len(f.ws.Goals.ForDate(now)) != 1 {
		t.Fatalf("ForDate missed the goal")
	}
}

func TestApplyTemplateAndRebalance(t *testing.T) {
	f := newFixture(t)
	f.open(t)
	ctx := context.Background()
	company, err := f.ws.Companies.Create(ctx, domain.Company{Name: "Lumen", Status: domain.CompanyActive})
	if err != nil {
		t.Fatalf("create company: %v", err)
	}
	tpl, err := views.ParseTemplate([]byte("name: cadence\nslots:\n  - weekday: monday\n    time: \"09:00\"\n    title: Reel\n  - weekday: friday\n    time: \"18:00\"\n    title: Story\n"))
	if err != nil {
		t.Fatalf("template: %v", err)
	}
	events, err := f.ws.ApplyTemplate(ctx, tpl, now, &company)
	if err != nil || len(events) != 2 {
		t.Fatalf("apply template: %d %v", len(events), err)
	}
	if got := f.ws.Events.ForCompany(company.ID); len(got) != 2 || got[0].CompanyName != "Lumen" {
		t.Fatalf("events not linked: %+v", got)
	}
	if len(f.ws.Events.InRange(now.AddDate(0, 0, 4), now.AddDate(0, 0, 5))) != 1 {
		t.Fatalf("friday event missing")
	}

	monday := views.StartOfDay(now)
	for i := 0; i < 3; i++ {
		due := monday.Add(time.Duration(10+i) * time.Hour)
		if _, err := f.ws.Tasks.Create(ctx, domain.Task{Title: "batch", Status: domain.TaskTodo, Priority: domain.PriorityLow, DueDate: &due}); err != nil {
			t.Fatalf("create task: %v", err)
		}
	}
	th := views.Thresholds{Light: 1, Moderate: 2}
	if load := f.ws.WeeklyLoad(now, th); load[0].Total != 4 || load[0].Level != views.LoadHeavy {
		t.Fatalf("unexpected monday load %+v", load[0])
	}
	moves, err := f.ws.Rebalance(ctx, now, th)
	if err != nil || len(moves) != 2 {
		t.Fatalf("rebalance: %+v %v", moves, err)
	}
	if load := f.ws.WeeklyLoad(now, th); load[0].Total != 2 {
		t.Fatalf("monday still heavy: %+v", load[0])
	}
}

func TestLoadDemoDoesNotPersist(t *testing.T) {
	f := newFixture(t)
	demo := f.ws.LoadDemo("creator-1", now)
	if !f.ws.Initialized() {
		t.Fatalf("demo must mark stores initialized")
	}
	if f.ws.Companies.Len() != len(demo.Companies) || f.ws.Tasks.Len() != len(demo.Tasks) || f.ws.Activity.Len() != len(demo.Activity) {
		t.Fatalf("demo not installed: %v", f.ws.Counts())
	}
	rows, err := f.rows.ListRows(context.Background(), domain.EntityCompany, "")
	if err != nil || len(rows) != 0 {
		t.Fatalf("demo leaked into persistence: %d %v", len(rows), err)
	}
	summary := f.ws.Health(now)
	if summary.ActiveCompanies != 2 || summary.OverdueTasks != 2 {
		t.Fatalf("unexpected demo summary %+v", summary)
	}
	if got := f.ws.Generations.Favorites(); len(got) != 1 {
		t.Fatalf("unexpected favorites %+v", got)
	}
	if recent := f.ws.Activity.Recent(1); len(recent) != 1 || recent[0].ID != "demo-activity-2" {
		t.Fatalf("unexpected recent %+v", recent)
	}
	if got := f.ws.Companies.Search("fit"); len(got) != 1 || got[0].Name != "Lumen Fitness" {
		t.Fatalf("unexpected search %+v", got)
	}
	f.ws.Reset()
	if f.ws.Initialized() || f.ws.Companies.Len() != 0 {
		t.Fatalf("reset left state behind")
	}
}

func TestBindFollowsSession(t *testing.T) {
	rows := memory.NewStore()
	session := identity.NewSession()
	ws := New(rows, Options{Identity: session})
	ws.Bind(session)
	ctx := context.Background()

	if err := session.Login(ctx, "creator-9"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if !ws.Initialized() || ws.Companies.Owner() != "creator-9" {
		t.Fatalf("login must open the workspace")
	}
	if _, err := ws.Companies.Create(ctx, domain.Company{Name: "Acme", Status: domain.CompanyLead}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := session.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if ws.Initialized() || ws.Companies.Len() != 0 {
		t.Fatalf("logout must reset the workspace")
	}
	if _, err := ws.Companies.Create(ctx, domain.Company{Name: "Nope"}); !errors.Is(err, core.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated after logout, got %v", err)
	}
	if err := ws.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestOpenRowStoreDrivers(t *testing.T) {
	ctx := context.Background()
	mem, err := OpenRowStore(ctx, config.StorageConfig{Driver: config.StorageMemory})
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	_ = mem.Close()

	lite, err := OpenRowStore(ctx, config.StorageConfig{Driver: config.StorageSQLite, SQLitePath: filepath.Join(t.TempDir(), "hub.db")})
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	ws := New(lite, Options{Identity: identity.Static("c")})
	if err := ws.Open(ctx, "c"); err != nil {
		t.Fatalf("open over sqlite: %v", err)
	}
	if _, err := ws.Tasks.Create(ctx, domain.Task{Title: "persisted", Status: domain.TaskTodo, Priority: domain.PriorityLow}); err != nil {
		t.Fatalf("create over sqlite: %v", err)
	}
	if err := ws.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if _, err := OpenRowStore(ctx, config.StorageConfig{Driver: "mongo"}); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}
