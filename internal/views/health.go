package views

import (
	"time"

	"creatorhub/pkg/domain"
)

// HealthStatus labels a score.
type HealthStatus string

// Health statuses.
const (
	HealthGood     HealthStatus = "healthy"
	HealthAtRisk   HealthStatus = "at_risk"
	HealthCritical HealthStatus = "critical"
)

const (
	overduePenalty   = 15
	overdueCap       = 45
	noUpcomingWindow = 14 * 24 * time.Hour
	noUpcomingCost   = 20
	staleWindow      = 30 * 24 * time.Hour
	staleCost        = 15
	pausedCost       = 10
)

// Label maps a score onto a status.
func Label(score int) HealthStatus {
	switch {
	case score >= 70:
		return HealthGood
	case score >= 40:
		return HealthAtRisk
	default:
		return HealthCritical
	}
}

// HealthScore rates one client relationship from 0 to 100. Churned or
// archived companies score 0. Deductions:
//   - 15 per overdue open task, at most 45
//   - 20 when nothing is scheduled in the next 14 days
//   - 15 when no linked task or event changed in 30 days
//   - 10 while the company is paused
func HealthScore(c domain.Company, tasks []domain.Task, events []domain.CalendarEvent, now time.Time) int {
	if c.Archived || c.Status == domain.CompanyChurned {
		return 0
	}
	score := 100

	overdue := 0
	lastTouch := c.UpdatedAt
	for _, t := range tasks {
		if !linked(t.CompanyID, c.ID) {
			continue
		}
		if t.UpdatedAt.After(lastTouch) {
			lastTouch = t.UpdatedAt
		}
		if Overdue(t, now) {
			overdue++
		}
	}
	score -= min(overdue*overduePenalty, overdueCap)

	upcoming := false
	for _, ev := range events {
		if !linked(ev.CompanyID, c.ID) {
			continue
		}
		if ev.UpdatedAt.After(lastTouch) {
			lastTouch = ev.UpdatedAt
		}
		if ev.Status != domain.EventCancelled && !ev.Start.Before(now) && ev.Start.Sub(now) <= noUpcomingWindow {
			upcoming = true
		}
	}
	if !upcoming {
		score -= noUpcomingCost
	}
	if now.Sub(lastTouch) > staleWindow {
		score -= staleCost
	}
	if c.Status == domain.CompanyPaused {
		score -= pausedCost
	}
	return max(0, min(100, score))
}

// Overdue reports whether an open task is past its due date.
func Overdue(t domain.Task, now time.Time) bool {
	return t.Open() && t.DueDate != nil && t.DueDate.Before(now)
}

func linked(ref *string, id string) bool {
	return ref != nil && *ref == id
}

// CompanyHealth pairs a company with its score.
type CompanyHealth struct {
	CompanyID string
	Name      string
	Score     int
	Status    HealthStatus
}

// CreatorSummary aggregates one creator's workload for agency oversight.
type CreatorSummary struct {
	ActiveCompanies int
	OpenTasks       int
	OverdueTasks    int
	UpcomingEvents  int
	GoalsDone       int
	GoalsTotal      int
	AverageHealth   int
	Status          HealthStatus
	Companies       []CompanyHealth
}

// GoalCompletion is the share of completed goals, 0 when there are none.
func (s CreatorSummary) GoalCompletion() float64 {
	if s.GoalsTotal == 0 {
		return 0
	}
	return float64(s.GoalsDone) / float64(s.GoalsTotal)
}

// CreatorHealth summarizes a creator's collections. Upcoming events are
// those starting within seven days of now; goals count from today on.
func CreatorHealth(companies []domain.Company, tasks []domain.Task, events []domain.CalendarEvent, goals []domain.Goal, now time.Time) CreatorSummary {
	var s CreatorSummary
	total := 0
	for _, c := range companies {
		if c.Archived || c.Status == domain.CompanyChurned {
			continue
		}
		if c.Status == domain.CompanyActive {
			s.ActiveCompanies++
		}
		score := HealthScore(c, tasks, events, now)
		total += score
		s.Companies = append(s.Companies, CompanyHealth{CompanyID: c.ID, Name: c.Name, Score: score, Status: Label(score)})
	}
	for _, t := range tasks {
		if t.Open() {
			s.OpenTasks++
		}
		if Overdue(t, now) {
			s.OverdueTasks++
		}
	}
	week := now.Add(7 * 24 * time.Hour)
	for _, ev := range events {
		if ev.Status != domain.EventCancelled && !ev.Start.Before(now) && ev.Start.Before(week) {
			s.UpcomingEvents++
		}
	}
	today := StartOfDay(now)
	for _, g := range goals {
		if StartOfDay(g.Date.In(now.Location())).Before(today) {
			continue
		}
		s.GoalsTotal++
		if g.Completed {
			s.GoalsDone++
		}
	}
	if len(s.Companies) > 0 {
		s.AverageHealth = total / len(s.Companies)
	} else {
		s.AverageHealth = 100
	}
	s.Status = Label(s.AverageHealth)
	return s
}
