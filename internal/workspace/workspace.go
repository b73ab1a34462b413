// Package workspace assembles one creator's stores into a single context
// object with an explicit open/reset/close lifecycle.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"creatorhub/internal/activity"
	"creatorhub/internal/core"
	"creatorhub/internal/identity"
	"creatorhub/internal/infra/persistence"
	"creatorhub/internal/views"
	"creatorhub/pkg/domain"
)

// Options carries the collaborators shared by every store. Nil fields fall
// back to the store defaults.
type Options struct {
	Identity core.IdentityProvider
	Notifier core.Notifier
	Logger   core.Logger
	Metrics  core.MetricsRecorder
	Tracer   core.Tracer
	Clock    core.Clock
	// Persistence options applied to every collection, e.g. custom rules.
	Collection []persistence.Option
}

// Workspace holds the six stores of one signed-in creator.
type Workspace struct {
	Companies   CompanyStore
	Tasks       TaskStore
	Events      EventStore
	Goals       GoalStore
	Generations GenerationStore
	Activity    ActivityStore

	rows   persistence.RowStore
	log    *activity.Log
	logger core.Logger
	clock  core.Clock
}

// New wires the stores over rows. The activity store itself records no
// activity and emits no notifications.
func New(rows persistence.RowStore, opts Options) *Workspace {
	logger := opts.Logger
	if logger == nil {
		logger = nopLogger{}
	}
	clock := opts.Clock
	if clock == nil {
		clock = core.ClockFunc(func() time.Time { return time.Now().UTC() })
	}
	base := []core.Option{
		core.WithIdentity(opts.Identity),
		core.WithLogger(opts.Logger),
		core.WithMetricsRecorder(opts.Metrics),
		core.WithTracer(opts.Tracer),
		core.WithClock(opts.Clock),
	}

	ws := &Workspace{rows: rows, logger: logger, clock: clock}
	ws.Activity = ActivityStore{core.NewStore[string, domain.Activity, domain.ActivityPatch](domain.EntityActivity,
		persistence.NewCollection[domain.Activity, domain.ActivityPatch](rows, domain.EntityActivity, opts.Collection...),
		base...)}
	ws.log = activity.NewLog(ws.Activity, opts.Logger)

	full := append(append([]core.Option(nil), base...),
		core.WithNotifier(opts.Notifier),
		core.WithActivityRecorder(ws.log),
	)
	ws.Companies = CompanyStore{core.NewStore[string, domain.Company, domain.CompanyPatch](domain.EntityCompany,
		persistence.NewCollection[domain.Company, domain.CompanyPatch](rows, domain.EntityCompany, opts.Collection...), full...)}
	ws.Tasks = TaskStore{core.NewStore[string, domain.Task, domain.TaskPatch](domain.EntityTask,
		persistence.NewCollection[domain.Task, domain.TaskPatch](rows, domain.EntityTask, opts.Collection...), full...)}
	ws.Events = EventStore{core.NewStore[string, domain.CalendarEvent, domain.EventPatch](domain.EntityEvent,
		persistence.NewCollection[domain.CalendarEvent, domain.EventPatch](rows, domain.EntityEvent, opts.Collection...), full...)}
	ws.Goals = GoalStore{core.NewStore[string, domain.Goal, domain.GoalPatch](domain.EntityGoal,
		persistence.NewCollection[domain.Goal, domain.GoalPatch](rows, domain.EntityGoal, opts.Collection...), full...)}
	ws.Generations = GenerationStore{core.NewStore[string, domain.Generation, domain.GenerationPatch](domain.EntityGeneration,
		persistence.NewCollection[domain.Generation, domain.GenerationPatch](rows, domain.EntityGeneration, opts.Collection...), full...)}
	return ws
}

type lifecycle interface {
	Entity() core.EntityType
	Initialized() bool
	Reset()
	Len() int
}

func (w *Workspace) stores() []lifecycle {
	return []lifecycle{w.Companies, w.Tasks, w.Events, w.Goals, w.Generations, w.Activity}
}

// Rows exposes the persistence driver.
func (w *Workspace) Rows() persistence.RowStore { return w.rows }

// ActivityFailures reports activity entries that could not be appended.
func (w *Workspace) ActivityFailures() int64 { return w.log.Failures() }

// Open loads every collection for ownerID concurrently. Stores that loaded
// stay initialized when another fails, so a retry only refetches the rest.
func (w *Workspace) Open(ctx context.Context, ownerID string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { _, err := w.Companies.Initialize(gctx, ownerID); return err })
	g.Go(func() error { _, err := w.Tasks.Initialize(gctx, ownerID); return err })
	g.Go(func() error { _, err := w.Events.Initialize(gctx, ownerID); return err })
	g.Go(func() error { _, err := w.Goals.Initialize(gctx, ownerID); return err })
	g.Go(func() error { _, err := w.Generations.Initialize(gctx, ownerID); return err })
	g.Go(func() error { _, err := w.Activity.Initialize(gctx, ownerID); return err })
	if err := g.Wait(); err != nil {
		return fmt.Errorf("open workspace for %s: %w", ownerID, err)
	}
	w.logger.Info("workspace opened", "owner", ownerID, "companies", w.Companies.Len(), "tasks", w.Tasks.Len(), "events", w.Events.Len())
	return nil
}

// Initialized reports whether every store has loaded.
func (w *Workspace) Initialized() bool {
	for _, s := range w.stores() {
		if !s.Initialized() {
			return false
		}
	}
	return true
}

// Reset clears every store, e.g. on logout.
func (w *Workspace) Reset() {
	for _, s := range w.stores() {
		s.Reset()
	}
}

// Close resets the stores and closes the persistence driver.
func (w *Workspace) Close() error {
	w.Reset()
	if w.rows == nil {
		return nil
	}
	return w.rows.Close()
}

// Bind opens the workspace on login and resets it on logout.
func (w *Workspace) Bind(s *identity.Session) {
	s.OnLogin(func(ctx context.Context, userID string) error {
		w.Reset()
		return w.Open(ctx, userID)
	})
	s.OnLogout(func(context.Context, string) error {
		w.Reset()
		return nil
	})
}

// Counts returns the size of each collection.
func (w *Workspace) Counts() map[domain.EntityType]int {
	out := make(map[domain.EntityType]int, 6)
	for _, s := range w.stores() {
		out[s.Entity()] = s.Len()
	}
	return out
}

// WeeklyLoad buckets the week starting at weekStart.
func (w *Workspace) WeeklyLoad(weekStart time.Time, th views.Thresholds) []views.DayLoad {
	return views.WeeklyLoad(weekStart, w.Events.List(), w.Tasks.List(), th)
}

// Health summarizes the creator's collections at now.
func (w *Workspace) Health(now time.Time) views.CreatorSummary {
	return views.CreatorHealth(w.Companies.List(), w.Tasks.List(), w.Events.List(), w.Goals.List(), now)
}

// ApplyTemplate expands tpl into the week and creates each event, linked to
// company when one is given. Events created before a failure are kept and
// returned alongside the error.
func (w *Workspace) ApplyTemplate(ctx context.Context, tpl views.Template, weekStart time.Time, company *domain.Company) ([]domain.CalendarEvent, error) {
	drafts, err := views.ExpandTemplate(tpl, weekStart)
	if err != nil {
		return nil, err
	}
	created := make([]domain.CalendarEvent, 0, len(drafts))
	for _, d := range drafts {
		if company != nil {
			d.CompanyID = domain.CloneString(&company.ID)
			d.CompanyName = company.Name
		}
		ev, err := w.Events.Create(ctx, d)
		if err != nil {
			return created, fmt.Errorf("apply template %q: %w", tpl.Name, err)
		}
		created = append(created, ev)
	}
	return created, nil
}

// Rebalance applies suggested moves one task at a time and returns the moves
// that were applied. Failed moves are rolled back by the store and joined
// into the returned error.
func (w *Workspace) Rebalance(ctx context.Context, weekStart time.Time, th views.Thresholds) ([]views.Move, error) {
	moves := views.SuggestRebalance(w.WeeklyLoad(weekStart, th), w.Tasks.List(), th)
	applied := make([]views.Move, 0, len(moves))
	var errs []error
	for _, m := range moves {
		if _, err := w.Tasks.Update(ctx, m.TaskID, views.RebalancePatch(m)); err != nil {
			errs = append(errs, err)
			continue
		}
		applied = append(applied, m)
	}
	return applied, errors.Join(errs...)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
