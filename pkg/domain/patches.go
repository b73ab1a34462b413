package domain

import "time"

// Patch is a partial update. Apply merges it into a copy of the entity and
// Fields lists only the changed columns, keyed by their storage names.
type Patch[E any] interface {
	Apply(E) E
	Fields() map[string]any
}

// CompanyPatch updates selected company fields.
type CompanyPatch struct {
	Name         *string
	Industry     *string
	Status       *CompanyStatus
	ContactEmail *string
	Website      *string
	Notes        *string
	Archived     *bool
}

// Apply implements Patch.
func (p CompanyPatch) Apply(c Company) Company {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Industry != nil {
		c.Industry = *p.Industry
	}
	if p.Status != nil {
		c.Status = *p.Status
	}
	if p.ContactEmail != nil {
		c.ContactEmail = *p.ContactEmail
	}
	if p.Website != nil {
		c.Website = *p.Website
	}
	if p.Notes != nil {
		c.Notes = *p.Notes
	}
	if p.Archived != nil {
		c.Archived = *p.Archived
	}
	return c
}

// Fields implements Patch.
func (p CompanyPatch) Fields() map[string]any {
	f := map[string]any{}
	if p.Name != nil {
		f["name"] = *p.Name
	}
	if p.Industry != nil {
		f["industry"] = *p.Industry
	}
	if p.Status != nil {
		f["status"] = *p.Status
	}
	if p.ContactEmail != nil {
		f["contact_email"] = *p.ContactEmail
	}
	if p.Website != nil {
		f["website"] = *p.Website
	}
	if p.Notes != nil {
		f["notes"] = *p.Notes
	}
	if p.Archived != nil {
		f["archived"] = *p.Archived
	}
	return f
}

// TaskPatch updates selected task fields. The Clear* flags unlink optional
// references; when set they win over the matching value field.
type TaskPatch struct {
	Title        *string
	Description  *string
	Status       *TaskStatus
	Priority     *Priority
	DueDate      *time.Time
	ClearDueDate bool
	CompanyID    *string
	CompanyName  *string
	ClearCompany bool
	EventID      *string
	EventTitle   *string
	ClearEvent   bool
	CompletedAt  *time.Time
	// ClearCompletedAt reopens a task.
	ClearCompletedAt bool
}

// Apply implements Patch.
func (p TaskPatch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	switch {
	case p.ClearDueDate:
		t.DueDate = nil
	case p.DueDate != nil:
		t.DueDate = copyTime(p.DueDate)
	}
	switch {
	case p.ClearCompany:
		t.CompanyID = nil
		t.CompanyName = ""
	case p.CompanyID != nil:
		t.CompanyID = CloneString(p.CompanyID)
		if p.CompanyName != nil {
			t.CompanyName = *p.CompanyName
		}
	}
	switch {
	case p.ClearEvent:
		t.EventID = nil
		t.EventTitle = ""
	case p.EventID != nil:
		t.EventID = CloneString(p.EventID)
		if p.EventTitle != nil {
			t.EventTitle = *p.EventTitle
		}
	}
	switch {
	case p.ClearCompletedAt:
		t.CompletedAt = nil
	case p.CompletedAt != nil:
		t.CompletedAt = copyTime(p.CompletedAt)
	}
	return t
}

// Fields implements Patch.
func (p TaskPatch) Fields() map[string]any {
	f := map[string]any{}
	if p.Title != nil {
		f["title"] = *p.Title
	}
	if p.Description != nil {
		f["description"] = *p.Description
	}
	if p.Status != nil {
		f["status"] = *p.Status
	}
	if p.Priority != nil {
		f["priority"] = *p.Priority
	}
	switch {
	case p.ClearDueDate:
		f["due_date"] = nil
	case p.DueDate != nil:
		f["due_date"] = *p.DueDate
	}
	switch {
	case p.ClearCompany:
		f["company_id"] = nil
		f["company_name"] = ""
	case p.CompanyID != nil:
		f["company_id"] = *p.CompanyID
		if p.CompanyName != nil {
			f["company_name"] = *p.CompanyName
		}
	}
	switch {
	case p.ClearEvent:
		f["event_id"] = nil
		f["event_title"] = ""
	case p.EventID != nil:
		f["event_id"] = *p.EventID
		if p.EventTitle != nil {
			f["event_title"] = *p.EventTitle
		}
	}
	switch {
	case p.ClearCompletedAt:
		f["completed_at"] = nil
	case p.CompletedAt != nil:
		f["completed_at"] = *p.CompletedAt
	}
	return f
}

// EventPatch updates selected calendar event fields.
type EventPatch struct {
	Title        *string
	Kind         *EventKind
	Platform     *string
	Start        *time.Time
	End          *time.Time
	AllDay       *bool
	Status       *EventStatus
	CompanyID    *string
	CompanyName  *string
	ClearCompany bool
}

// Apply implements Patch.
func (p EventPatch) Apply(e CalendarEvent) CalendarEvent {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Kind != nil {
		e.Kind = *p.Kind
	}
	if p.Platform != nil {
		e.Platform = *p.Platform
	}
	if p.Start != nil {
		e.Start = *p.Start
	}
	if p.End != nil {
		e.End = *p.End
	}
	if p.AllDay != nil {
		e.AllDay = *p.AllDay
	}
	if p.Status != nil {
		e.Status = *p.Status
	}
	switch {
	case p.ClearCompany:
		e.CompanyID = nil
		e.CompanyName = ""
	case p.CompanyID != nil:
		e.CompanyID = CloneString(p.CompanyID)
		if p.CompanyName != nil {
			e.CompanyName = *p.CompanyName
		}
	}
	return e
}

// Fields implements Patch.
func (p EventPatch) Fields() map[string]any {
	f := map[string]any{}
	if p.Title != nil {
		f["title"] = *p.Title
	}
	if p.Kind != nil {
		f["kind"] = *p.Kind
	}
	if p.Platform != nil {
		f["platform"] = *p.Platform
	}
	if p.Start != nil {
		f["start"] = *p.Start
	}
	if p.End != nil {
		f["end"] = *p.End
	}
	if p.AllDay != nil {
		f["all_day"] = *p.AllDay
	}
	if p.Status != nil {
		f["status"] = *p.Status
	}
	switch {
	case p.ClearCompany:
		f["company_id"] = nil
		f["company_name"] = ""
	case p.CompanyID != nil:
		f["company_id"] = *p.CompanyID
		if p.CompanyName != nil {
			f["company_name"] = *p.CompanyName
		}
	}
	return f
}

// GoalPatch updates selected goal fields.
type GoalPatch struct {
	Title     *string
	Date      *time.Time
	Target    *int
	Progress  *int
	Completed *bool
}

// Apply implements Patch.
func (p GoalPatch) Apply(g Goal) Goal {
	if p.Title != nil {
		g.Title = *p.Title
	}
	if p.Date != nil {
		g.Date = *p.Date
	}
	if p.Target != nil {
		g.Target = *p.Target
	}
	if p.Progress != nil {
		g.Progress = *p.Progress
	}
	if p.Completed != nil {
		g.Completed = *p.Completed
	}
	return g
}

// Fields implements Patch.
func (p GoalPatch) Fields() map[string]any {
	f := map[string]any{}
	if p.Title != nil {
		f["title"] = *p.Title
	}
	if p.Date != nil {
		f["date"] = *p.Date
	}
	if p.Target != nil {
		f["target"] = *p.Target
	}
	if p.Progress != nil {
		f["progress"] = *p.Progress
	}
	if p.Completed != nil {
		f["completed"] = *p.Completed
	}
	return f
}

// GenerationPatch updates selected generation fields.
type GenerationPatch struct {
	Output   *string
	Favorite *bool
}

// Apply implements Patch.
func (p GenerationPatch) Apply(g Generation) Generation {
	if p.Output != nil {
		g.Output = *p.Output
	}
	if p.Favorite != nil {
		g.Favorite = *p.Favorite
	}
	return g
}

// Fields implements Patch.
func (p GenerationPatch) Fields() map[string]any {
	f := map[string]any{}
	if p.Output != nil {
		f["output"] = *p.Output
	}
	if p.Favorite != nil {
		f["favorite"] = *p.Favorite
	}
	return f
}

// ActivityPatch lets the activity log share the generic store. The log is
// append-only so the patch carries no fields.
type ActivityPatch struct{}

// Apply implements Patch.
func (ActivityPatch) Apply(a Activity) Activity { return a }

// Fields implements Patch.
func (ActivityPatch) Fields() map[string]any { return map[string]any{} }

// Ptr returns a pointer to v; handy for building patches.
func Ptr[T any](v T) *T { return &v }
