// Package domain defines the persistent entities, patches and validation
// primitives shared by the creatorhub stores and persistence adapters.
package domain

import (
	"time"
)

// EntityType identifies the kind of record held by a store.
type EntityType string

// Supported entity type identifiers used in activity entries and storage rows.
const (
	// EntityCompany identifies a client company tracked by a creator.
	EntityCompany EntityType = "company"
	// EntityTask identifies a to-do item.
	EntityTask EntityType = "task"
	// EntityEvent identifies a calendar event.
	EntityEvent EntityType = "calendar_event"
	// EntityGoal identifies a daily goal.
	EntityGoal EntityType = "goal"
	// EntityGeneration identifies an AI content generation.
	EntityGeneration EntityType = "generation"
	// EntityActivity identifies an activity log entry.
	EntityActivity EntityType = "activity"
)

// Action indicates the type of modification performed.
type Action string

// Actions recorded in the activity log.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	// ActionStatusChange indicates only the status field moved.
	ActionStatusChange Action = "status_change"
)

// CompanyStatus tracks where a client sits in the relationship lifecycle.
type CompanyStatus string

// Company statuses.
const (
	CompanyLead    CompanyStatus = "lead"
	CompanyActive  CompanyStatus = "active"
	CompanyPaused  CompanyStatus = "paused"
	CompanyChurned CompanyStatus = "churned"
)

// Company is a client or brand a creator works with.
type Company struct {
	Meta
	Name         string        `json:"name"`
	Industry     string        `json:"industry,omitempty"`
	Status       CompanyStatus `json:"status"`
	ContactEmail string        `json:"contact_email,omitempty"`
	Website      string        `json:"website,omitempty"`
	Notes        string        `json:"notes,omitempty"`
	Archived     bool          `json:"archived"`
}

// Touch returns a copy with UpdatedAt set to at.
func (c Company) Touch(at time.Time) Company { c.UpdatedAt = at; return c }

// WithMetadata returns a copy carrying the supplied metadata.
func (c Company) WithMetadata(m Meta) Company { c.Meta = m; return c }

// DisplayName is used in activity entries and notifications.
func (c Company) DisplayName() string { return c.Name }

// TaskStatus is the workflow state of a task.
type TaskStatus string

// Task statuses.
const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
)

// Priority ranks tasks.
type Priority string

// Task priorities.
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Task is a unit of work, optionally linked to a company and a calendar event.
//
// CompanyName and EventTitle are snapshots written when the link is made.
// They are not refreshed when the referenced entity is renamed.
type Task struct {
	Meta
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      TaskStatus `json:"status"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CompanyID   *string    `json:"company_id,omitempty"`
	CompanyName string     `json:"company_name,omitempty"`
	EventID     *string    `json:"event_id,omitempty"`
	EventTitle  string     `json:"event_title,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Touch returns a copy with UpdatedAt set to at.
func (t Task) Touch(at time.Time) Task { t.UpdatedAt = at; return t }

// WithMetadata returns a copy carrying the supplied metadata.
func (t Task) WithMetadata(m Meta) Task { t.Meta = m; return t }

// DisplayName is used in activity entries and notifications.
func (t Task) DisplayName() string { return t.Title }

// Open reports whether the task still needs work.
func (t Task) Open() bool { return t.Status != TaskDone }

// EventKind classifies calendar entries.
type EventKind string

// Calendar event kinds.
const (
	EventPost     EventKind = "post"
	EventShoot    EventKind = "shoot"
	EventMeeting  EventKind = "meeting"
	EventDeadline EventKind = "deadline"
)

// EventStatus is the publishing state of a calendar event.
type EventStatus string

// Calendar event statuses.
const (
	EventPlanned   EventStatus = "planned"
	EventPublished EventStatus = "published"
	EventCancelled EventStatus = "cancelled"
)

// CalendarEvent is a scheduled item on the content calendar.
type CalendarEvent struct {
	Meta
	Title       string      `json:"title"`
	Kind        EventKind   `json:"kind"`
	Platform    string      `json:"platform,omitempty"`
	Start       time.Time   `json:"start"`
	End         time.Time   `json:"end"`
	AllDay      bool        `json:"all_day"`
	Status      EventStatus `json:"status"`
	CompanyID   *string     `json:"company_id,omitempty"`
	CompanyName string      `json:"company_name,omitempty"`
}

// Touch returns a copy with UpdatedAt set to at.
func (e CalendarEvent) Touch(at time.Time) CalendarEvent { e.UpdatedAt = at; return e }

// WithMetadata returns a copy carrying the supplied metadata.
func (e CalendarEvent) WithMetadata(m Meta) CalendarEvent { e.Meta = m; return e }

// DisplayName is used in activity entries and notifications.
func (e CalendarEvent) DisplayName() string { return e.Title }

// Goal is a daily target such as "publish 2 posts".
type Goal struct {
	Meta
	Title     string    `json:"title"`
	Date      time.Time `json:"date"`
	Target    int       `json:"target"`
	Progress  int       `json:"progress"`
	Completed bool      `json:"completed"`
}

// Touch returns a copy with UpdatedAt set to at.
func (g Goal) Touch(at time.Time) Goal { g.UpdatedAt = at; return g }

// WithMetadata returns a copy carrying the supplied metadata.
func (g Goal) WithMetadata(m Meta) Goal { g.Meta = m; return g }

// DisplayName is used in activity entries and notifications.
func (g Goal) DisplayName() string { return g.Title }

// GenerationKind is the type of content requested from the model.
type GenerationKind string

// Generation kinds.
const (
	GenerationCaption GenerationKind = "caption"
	GenerationScript  GenerationKind = "script"
	GenerationHook    GenerationKind = "hook"
	GenerationIdea    GenerationKind = "idea"
)

// Generation stores one AI-assisted content draft.
type Generation struct {
	Meta
	Kind        GenerationKind `json:"kind"`
	Prompt      string         `json:"prompt"`
	Output      string         `json:"output"`
	Model       string         `json:"model,omitempty"`
	Favorite    bool           `json:"favorite"`
	CompanyID   *string        `json:"company_id,omitempty"`
	CompanyName string         `json:"company_name,omitempty"`
}

// Touch returns a copy with UpdatedAt set to at.
func (g Generation) Touch(at time.Time) Generation { g.UpdatedAt = at; return g }

// WithMetadata returns a copy carrying the supplied metadata.
func (g Generation) WithMetadata(m Meta) Generation { g.Meta = m; return g }

// DisplayName is used in activity entries and notifications.
func (g Generation) DisplayName() string {
	const max = 40
	if len(g.Prompt) <= max {
		return g.Prompt
	}
	return g.Prompt[:max] + "..."
}

// Activity is one entry in the activity log.
type Activity struct {
	Meta
	Type        Action         `json:"type"`
	Entity      EntityType     `json:"entity"`
	EntityID    string         `json:"entity_id"`
	DisplayName string         `json:"display_name"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Touch returns a copy with UpdatedAt set to at.
func (a Activity) Touch(at time.Time) Activity { a.UpdatedAt = at; return a }

// WithMetadata returns a copy carrying the supplied metadata.
func (a Activity) WithMetadata(m Meta) Activity {
	a.Meta = m
	if a.Metadata != nil {
		cp := make(map[string]any, len(a.Metadata))
		for k, v := range a.Metadata {
			cp[k] = v
		}
		a.Metadata = cp
	}
	return a
}

// Label returns the activity display name; named to avoid clashing with the field.
func (a Activity) Label() string { return a.DisplayName }
