package workspace

import (
	"fmt"
	"time"

	"creatorhub/internal/views"
	"creatorhub/pkg/domain"
)

// Demo is a canned data set for exploring the dashboard without a backend.
type Demo struct {
	Companies   []domain.Company
	Tasks       []domain.Task
	Events      []domain.CalendarEvent
	Goals       []domain.Goal
	Generations []domain.Generation
	Activity    []domain.Activity
}

// DemoData builds the demo set for owner around now. Ids are prefixed
// "demo-" and never reach a persistence driver.
func DemoData(owner string, now time.Time) Demo {
	today := views.StartOfDay(now)
	meta := func(kind string, n int, age time.Duration) domain.Meta {
		ts := now.Add(-age)
		return domain.Meta{ID: fmt.Sprintf("demo-%s-%d", kind, n), OwnerID: owner, CreatedAt: ts, UpdatedAt: ts}
	}
	day := func(offset, hour int) *time.Time {
		t := today.AddDate(0, 0, offset).Add(time.Duration(hour) * time.Hour)
		return &t
	}

	var d Demo
	d.Companies = []domain.Company{
		{Meta: meta("company", 1, 72*time.Hour), Name: "Northwind Coffee", Industry: "Food & Beverage", Status: domain.CompanyActive, ContactEmail: "partners@northwind.example"},
		{Meta: meta("company", 2, 48*time.Hour), Name: "Lumen Fitness", Industry: "Health", Status: domain.CompanyActive},
		{Meta: meta("company", 3, 24*time.Hour), Name: "Paper Lantern Books", Industry: "Publishing", Status: domain.CompanyLead},
	}
	c1, c2 := d.Companies[0], d.Companies[1]

	d.Events = []domain.CalendarEvent{
		{Meta: meta("event", 1, 10*time.Hour), Title: "Latte art reel", Kind: domain.EventPost, Platform: "instagram", Start: *day(0, 10), End: *day(0, 11), Status: domain.EventPlanned, CompanyID: &c1.ID, CompanyName: c1.Name},
		{Meta: meta("event", 2, 9*time.Hour), Title: "Gym shoot", Kind: domain.EventShoot, Start: *day(1, 8), End: *day(1, 12), Status: domain.EventPlanned, CompanyID: &c2.ID, CompanyName: c2.Name},
		{Meta: meta("event", 3, 8*time.Hour), Title: "Monthly sync", Kind: domain.EventMeeting, Start: *day(2, 15), End: *day(2, 16), Status: domain.EventPlanned, CompanyID: &c1.ID, CompanyName: c1.Name},
		{Meta: meta("event", 4, 7*time.Hour), Title: "Campaign deadline", Kind: domain.EventDeadline, Start: *day(4, 17), End: *day(4, 17), Status: domain.EventPlanned},
	}
	ev1 := d.Events[0]

	d.Tasks = []domain.Task{
		{Meta: meta("task", 1, 6*time.Hour), Title: "Write caption", Status: domain.TaskTodo, Priority: domain.PriorityHigh, DueDate: day(0, 9), CompanyID: &c1.ID, CompanyName: c1.Name, EventID: &ev1.ID, EventTitle: ev1.Title},
		{Meta: meta("task", 2, 5*time.Hour), Title: "Edit gym footage", Status: domain.TaskInProgress, Priority: domain.PriorityMedium, DueDate: day(1, 18), CompanyID: &c2.ID, CompanyName: c2.Name},
		{Meta: meta("task", 3, 4*time.Hour), Title: "Send invoice", Status: domain.TaskTodo, Priority: domain.PriorityLow, DueDate: day(-1, 12), CompanyID: &c1.ID, CompanyName: c1.Name},
		{Meta: meta("task", 4, 3*time.Hour), Title: "Pitch deck for Paper Lantern", Status: domain.TaskTodo, Priority: domain.PriorityMedium, DueDate: day(3, 10)},
		{Meta: meta("task", 5, 2*time.Hour), Title: "Archive old drafts", Status: domain.TaskDone, Priority: domain.PriorityLow, CompletedAt: day(0, 0)},
	}

	d.Goals = []domain.Goal{
		{Meta: meta("goal", 1, time.Hour), Title: "Publish posts", Date: today, Target: 2, Progress: 1},
		{Meta: meta("goal", 2, time.Hour), Title: "Reply to comments", Date: today, Target: 20, Progress: 20, Completed: true},
	}

	d.Generations = []domain.Generation{
		{Meta: meta("generation", 1, 30*time.Minute), Kind: domain.GenerationCaption, Prompt: "Caption for a latte art reel", Output: "Pour, swirl, sip. Monday sorted. ☕", Model: "demo", Favorite: true, CompanyID: &c1.ID, CompanyName: c1.Name},
		{Meta: meta("generation", 2, 20*time.Minute), Kind: domain.GenerationHook, Prompt: "Hook for a 30 second workout", Output: "You have 30 seconds. So does this workout.", Model: "demo"},
	}

	d.Activity = []domain.Activity{
		{Meta: meta("activity", 1, 6*time.Hour), Type: domain.ActionCreate, Entity: domain.EntityTask, EntityID: d.Tasks[0].ID, DisplayName: d.Tasks[0].Title},
		{Meta: meta("activity", 2, 2*time.Hour), Type: domain.ActionStatusChange, Entity: domain.EntityTask, EntityID: d.Tasks[4].ID, DisplayName: d.Tasks[4].Title},
	}
	return d
}

// LoadDemo installs the demo set through each store's public setter. The
// stores are marked initialized for owner; nothing is persisted.
func (w *Workspace) LoadDemo(owner string, now time.Time) Demo {
	d := DemoData(owner, now)
	w.Companies.Replace(owner, d.Companies)
	w.Tasks.Replace(owner, d.Tasks)
	w.Events.Replace(owner, d.Events)
	w.Goals.Replace(owner, d.Goals)
	w.Generations.Replace(owner, d.Generations)
	w.Activity.Replace(owner, d.Activity)
	return d
}
