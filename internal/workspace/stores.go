package workspace

import (
	"context"
	"fmt"
	"strings"
	"time"

	"creatorhub/internal/activity"
	"creatorhub/internal/core"
	"creatorhub/internal/views"
	"creatorhub/pkg/domain"
)

// CompanyStore holds the creator's clients.
type CompanyStore struct {
	*core.Store[string, domain.Company, domain.CompanyPatch]
}

// ByStatus filters companies by lifecycle status.
func (s CompanyStore) ByStatus(status domain.CompanyStatus) []domain.Company {
	return s.Where(func(c domain.Company) bool { return c.Status == status })
}

// Active lists companies that are not archived or churned.
func (s CompanyStore) Active() []domain.Company {
	return s.Where(func(c domain.Company) bool {
		return !c.Archived && c.Status != domain.CompanyChurned
	})
}

// Search matches name or industry, case-insensitively.
func (s CompanyStore) Search(q string) []domain.Company {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return s.List()
	}
	return s.Where(func(c domain.Company) bool {
		return strings.Contains(strings.ToLower(c.Name), q) || strings.Contains(strings.ToLower(c.Industry), q)
	})
}

// SetStatus moves a company through its lifecycle.
func (s CompanyStore) SetStatus(ctx context.Context, id string, status domain.CompanyStatus) (domain.Company, error) {
	return s.UpdateAs(ctx, domain.ActionStatusChange, id, domain.CompanyPatch{Status: &status})
}

// Archive hides a company from the active list without deleting it.
func (s CompanyStore) Archive(ctx context.Context, id string) (domain.Company, error) {
	return s.Update(ctx, id, domain.CompanyPatch{Archived: domain.Ptr(true)})
}

// TaskStore holds to-do items.
type TaskStore struct {
	*core.Store[string, domain.Task, domain.TaskPatch]
}

// ByStatus filters tasks by workflow status.
func (s TaskStore) ByStatus(status domain.TaskStatus) []domain.Task {
	return s.Where(func(t domain.Task) bool { return t.Status == status })
}

// ForDate lists tasks due on the calendar day of day.
func (s TaskStore) ForDate(day time.Time) []domain.Task {
	start := views.StartOfDay(day)
	end := start.AddDate(0, 0, 1)
	return s.Where(func(t domain.Task) bool {
		return t.DueDate != nil && !t.DueDate.Before(start) && t.DueDate.Before(end)
	})
}

// Overdue lists open tasks due before now.
func (s TaskStore) Overdue(now time.Time) []domain.Task {
	return s.Where(func(t domain.Task) bool { return views.Overdue(t, now) })
}

// ForCompany lists tasks linked to a company.
func (s TaskStore) ForCompany(companyID string) []domain.Task {
	return s.Where(func(t domain.Task) bool { return t.CompanyID != nil && *t.CompanyID == companyID })
}

// ForEvent lists tasks linked to a calendar event.
func (s TaskStore) ForEvent(eventID string) []domain.Task {
	return s.Where(func(t domain.Task) bool { return t.EventID != nil && *t.EventID == eventID })
}

// SetStatus changes a task's status, stamping CompletedAt when it is done and
// clearing it otherwise.
func (s TaskStore) SetStatus(ctx context.Context, id string, status domain.TaskStatus, now time.Time) (domain.Task, error) {
	patch := domain.TaskPatch{Status: &status}
	if status == domain.TaskDone {
		patch.CompletedAt = &now
	} else {
		patch.ClearCompletedAt = true
	}
	return s.UpdateAs(ctx, domain.ActionStatusChange, id, patch)
}

// LinkCompany links a task to c, snapshotting its name.
func (s TaskStore) LinkCompany(ctx context.Context, id string, c domain.Company) (domain.Task, error) {
	return s.Update(ctx, id, domain.TaskPatch{CompanyID: &c.ID, CompanyName: &c.Name})
}

// LinkEvent links a task to ev, snapshotting its title.
func (s TaskStore) LinkEvent(ctx context.Context, id string, ev domain.CalendarEvent) (domain.Task, error) {
	return s.Update(ctx, id, domain.TaskPatch{EventID: &ev.ID, EventTitle: &ev.Title})
}

// EventStore holds calendar events.
type EventStore struct {
	*core.Store[string, domain.CalendarEvent, domain.EventPatch]
}

// InRange lists events starting in [from, to).
func (s EventStore) InRange(from, to time.Time) []domain.CalendarEvent {
	return s.Where(func(e domain.CalendarEvent) bool {
		return !e.Start.Before(from) && e.Start.Before(to)
	})
}

// ForDate lists events starting on the calendar day of day.
func (s EventStore) ForDate(day time.Time) []domain.CalendarEvent {
	start := views.StartOfDay(day)
	return s.InRange(start, start.AddDate(0, 0, 1))
}

// ByStatus filters events by publishing status.
func (s EventStore) ByStatus(status domain.EventStatus) []domain.CalendarEvent {
	return s.Where(func(e domain.CalendarEvent) bool { return e.Status == status })
}

// ForCompany lists events linked to a company.
func (s EventStore) ForCompany(companyID string) []domain.CalendarEvent {
	return s.Where(func(e domain.CalendarEvent) bool { return e.CompanyID != nil && *e.CompanyID == companyID })
}

// SetStatus marks an event planned, published or cancelled.
func (s EventStore) SetStatus(ctx context.Context, id string, status domain.EventStatus) (domain.CalendarEvent, error) {
	return s.UpdateAs(ctx, domain.ActionStatusChange, id, domain.EventPatch{Status: &status})
}

// GoalStore holds daily goals.
type GoalStore struct {
	*core.Store[string, domain.Goal, domain.GoalPatch]
}

// ForDate lists goals set for the calendar day of day.
func (s GoalStore) ForDate(day time.Time) []domain.Goal {
	start := views.StartOfDay(day)
	return s.Where(func(g domain.Goal) bool {
		return views.StartOfDay(g.Date.In(start.Location())).Equal(start)
	})
}

// Progress adds delta to a goal's progress, never below zero, and marks it
// completed once the target is reached.
func (s GoalStore) Progress(ctx context.Context, id string, delta int) (domain.Goal, error) {
	g, ok := s.Get(id)
	if !ok {
		return domain.Goal{}, fmt.Errorf("goal %s: %w", id, core.ErrNotFound)
	}
	progress := max(0, g.Progress+delta)
	done := progress >= g.Target
	return s.Update(ctx, id, domain.GoalPatch{Progress: &progress, Completed: &done})
}

// GenerationStore holds AI content drafts.
type GenerationStore struct {
	*core.Store[string, domain.Generation, domain.GenerationPatch]
}

// ByKind filters drafts by content kind.
func (s GenerationStore) ByKind(kind domain.GenerationKind) []domain.Generation {
	return s.Where(func(g domain.Generation) bool { return g.Kind == kind })
}

// Favorites lists starred drafts.
func (s GenerationStore) Favorites() []domain.Generation {
	return s.Where(func(g domain.Generation) bool { return g.Favorite })
}

// ForCompany lists drafts written for a company.
func (s GenerationStore) ForCompany(companyID string) []domain.Generation {
	return s.Where(func(g domain.Generation) bool { return g.CompanyID != nil && *g.CompanyID == companyID })
}

// ToggleFavorite flips the favorite flag.
func (s GenerationStore) ToggleFavorite(ctx context.Context, id string) (domain.Generation, error) {
	g, ok := s.Get(id)
	if !ok {
		return domain.Generation{}, fmt.Errorf("generation %s: %w", id, core.ErrNotFound)
	}
	return s.Update(ctx, id, domain.GenerationPatch{Favorite: domain.Ptr(!g.Favorite)})
}

// ActivityStore holds the activity log.
type ActivityStore struct {
	*core.Store[string, domain.Activity, domain.ActivityPatch]
}

// Recent returns up to n entries newest first.
func (s ActivityStore) Recent(n int) []domain.Activity {
	return activity.Recent(s.List(), n)
}

// ForEntity lists entries about one entity.
func (s ActivityStore) ForEntity(entity domain.EntityType, id string) []domain.Activity {
	return activity.ForEntity(s.List(), entity, id)
}
