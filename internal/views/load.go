// Package views computes dashboard summaries from store snapshots. Every
// function is a pure transformation of its inputs.
package views

import (
	"time"

	"creatorhub/pkg/domain"
)

// LoadLevel classifies how busy a day is.
type LoadLevel string

// Load levels.
const (
	LoadLight    LoadLevel = "light"
	LoadModerate LoadLevel = "moderate"
	LoadHeavy    LoadLevel = "heavy"
)

// Thresholds bound the light and moderate buckets, inclusive.
type Thresholds struct {
	Light    int
	Moderate int
}

// DefaultThresholds: up to 2 items is light, up to 5 moderate.
var DefaultThresholds = Thresholds{Light: 2, Moderate: 5}

// Classify buckets a day total.
func (t Thresholds) Classify(total int) LoadLevel {
	switch {
	case total <= t.Light:
		return LoadLight
	case total <= t.Moderate:
		return LoadModerate
	default:
		return LoadHeavy
	}
}

// DayLoad counts the scheduled work on one day.
type DayLoad struct {
	Date   time.Time
	Events int
	Tasks  int
	Total  int
	Level  LoadLevel
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// WeeklyLoad returns seven buckets starting at the day of weekStart.
// Cancelled events and completed tasks do not count.
func WeeklyLoad(weekStart time.Time, events []domain.CalendarEvent, tasks []domain.Task, th Thresholds) []DayLoad {
	start := StartOfDay(weekStart)
	loc := start.Location()
	days := make([]DayLoad, 7)
	for i := range days {
		days[i].Date = start.AddDate(0, 0, i)
	}
	index := func(t time.Time) int {
		d := StartOfDay(t.In(loc))
		for i := range days {
			if days[i].Date.Equal(d) {
				return i
			}
		}
		return -1
	}
	for _, ev := range events {
		if ev.Status == domain.EventCancelled {
			continue
		}
		if i := index(ev.Start); i >= 0 {
			days[i].Events++
		}
	}
	for _, t := range tasks {
		if !t.Open() || t.DueDate == nil {
			continue
		}
		if i := index(*t.DueDate); i >= 0 {
			days[i].Tasks++
		}
	}
	for i := range days {
		days[i].Total = days[i].Events + days[i].Tasks
		days[i].Level = th.Classify(days[i].Total)
	}
	return days
}

// Busiest returns the index of the heaviest day, earliest on ties, or -1.
func Busiest(days []DayLoad) int {
	best := -1
	for i, d := range days {
		if best < 0 || d.Total > days[best].Total {
			best = i
		}
	}
	return best
}
