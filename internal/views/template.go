package views

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"creatorhub/pkg/domain"
)

// Template is a reusable weekly posting cadence.
type Template struct {
	Name  string `yaml:"name"`
	Slots []Slot `yaml:"slots"`
}

// Slot places one event on a weekday. Time is "15:04" local to the week
// start; Duration uses time.ParseDuration syntax and defaults to one hour.
type Slot struct {
	Weekday  string           `yaml:"weekday"`
	Time     string           `yaml:"time"`
	Duration string           `yaml:"duration"`
	AllDay   bool             `yaml:"all_day"`
	Title    string           `yaml:"title"`
	Kind     domain.EventKind `yaml:"kind"`
	Platform string           `yaml:"platform"`
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// ParseTemplate decodes a YAML template and validates every slot.
func ParseTemplate(data []byte) (Template, error) {
	var tpl Template
	if err := yaml.Unmarshal(data, &tpl); err != nil {
		return Template{}, fmt.Errorf("parse template: %w", err)
	}
	if err := tpl.Validate(); err != nil {
		return Template{}, err
	}
	return tpl, nil
}

// Validate reports every malformed slot.
func (t Template) Validate() error {
	if len(t.Slots) == 0 {
		return errors.New("template has no slots")
	}
	var errs []error
	for i, s := range t.Slots {
		if _, err := s.resolve(); err != nil {
			errs = append(errs, fmt.Errorf("slot %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

type resolved struct {
	offset   time.Duration
	duration time.Duration
	weekday  time.Weekday
}

func (s Slot) resolve() (resolved, error) {
	var r resolved
	wd, ok := weekdays[strings.ToLower(strings.TrimSpace(s.Weekday))]
	if !ok {
		return r, fmt.Errorf("unknown weekday %q", s.Weekday)
	}
	r.weekday = wd
	if strings.TrimSpace(s.Title) == "" {
		return r, errors.New("title is required")
	}
	switch s.Kind {
	case domain.EventPost, domain.EventShoot, domain.EventMeeting, domain.EventDeadline:
	case "":
	default:
		return r, fmt.Errorf("unknown kind %q", s.Kind)
	}
	if s.AllDay {
		r.duration = 24 * time.Hour
		return r, nil
	}
	clock, err := time.Parse("15:04", s.Time)
	if err != nil {
		return r, fmt.Errorf("time %q: %w", s.Time, err)
	}
	r.offset = time.Duration(clock.Hour())*time.Hour + time.Duration(clock.Minute())*time.Minute
	r.duration = time.Hour
	if s.Duration != "" {
		d, err := time.ParseDuration(s.Duration)
		if err != nil || d <= 0 {
			return r, fmt.Errorf("duration %q is invalid", s.Duration)
		}
		r.duration = d
	}
	return r, nil
}

// ExpandTemplate turns the template into event drafts for the seven days
// starting at weekStart. Drafts carry no ids; they are meant for Create.
func ExpandTemplate(tpl Template, weekStart time.Time) ([]domain.CalendarEvent, error) {
	if err := tpl.Validate(); err != nil {
		return nil, err
	}
	start := StartOfDay(weekStart)
	out := make([]domain.CalendarEvent, 0, len(tpl.Slots))
	for _, s := range tpl.Slots {
		r, _ := s.resolve()
		shift := (int(r.weekday) - int(start.Weekday()) + 7) % 7
		day := start.AddDate(0, 0, shift)
		begin := day.Add(r.offset)
		kind := s.Kind
		if kind == "" {
			kind = domain.EventPost
		}
		out = append(out, domain.CalendarEvent{
			Title:    s.Title,
			Kind:     kind,
			Platform: s.Platform,
			Start:    begin,
			End:      begin.Add(r.duration),
			AllDay:   s.AllDay,
			Status:   domain.EventPlanned,
		})
	}
	return out, nil
}
