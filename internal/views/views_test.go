package views

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"creatorhub/pkg/domain"
)

var monday = time.Date(2024, 6, 3, 8, 30, 0, 0, time.UTC)

func at(day, hour int) time.Time {
	return StartOfDay(monday).AddDate(0, 0, day).Add(time.Duration(hour) * time.Hour)
}

func dueTask(id string, day, hour int, p domain.Priority) domain.Task {
	due := at(day, hour)
	return domain.Task{Meta: domain.Meta{ID: id}, Title: "task " + id, Status: domain.TaskTodo, Priority: p, DueDate: &due}
}

func event(id string, day, hour int) domain.CalendarEvent {
	return domain.CalendarEvent{Meta: domain.Meta{ID: id}, Title: "event " + id, Kind: domain.EventPost, Start: at(day, hour), Status: domain.EventPlanned}
}

func TestThresholdsClassify(t *testing.T) {
	cases := map[int]LoadLevel{0: LoadLight, 2: LoadLight, 3: LoadModerate, 5: LoadModerate, 6: LoadHeavy}
	for total, want := range cases {
		if got := DefaultThresholds.Classify(total); got != want {
			t.Fatalf("Classify(%d) = %s, want %s", total, got, want)
		}
	}
}

func TestWeeklyLoadBuckets(t *testing.T) {
	cancelled := event("x", 0, 9)
	cancelled.Status = domain.EventCancelled
	done := dueTask("d", 0, 10, domain.PriorityLow)
	done.Status = domain.TaskDone
	events := []domain.CalendarEvent{event("e1", 0, 9), event("e2", 0, 18), cancelled, event("e3", 6, 23), event("late", 7, 1)}
	tasks := []domain.Task{dueTask("t1", 0, 12, domain.PriorityLow), done, dueTask("t2", 2, 9, domain.PriorityMedium), {Title: "no due", Status: domain.TaskTodo}}

	days := WeeklyLoad(monday, events, tasks, DefaultThresholds)
	if len(days) != 7 {
		t.Fatalf("expected 7 days, got %d", len(days))
	}
	got := make([]int, 7)
	for i, d := range days {
		got[i] = d.Total
	}
	if diff := cmp.Diff([]int{3, 0, 1, 0, 0, 0, 1}, got); diff != "" {
		t.Fatalf("totals mismatch (-want +got):\n%s", diff)
	}
	if days[0].Events != 2 || days[0].Tasks != 1 || days[0].Level != LoadModerate {
		t.Fatalf("unexpected monday %+v", days[0])
	}
	if !days[0].Date.Equal(StartOfDay(monday)) {
		t.Fatalf("week must start at midnight, got %v", days[0].Date)
	}
	if Busiest(days) != 0 || Busiest(nil) != -1 {
		t.Fatalf("unexpected busiest day")
	}
}

func TestHealthScore(t *testing.T) {
	now := at(0, 12)
	id := "c1"
	company := domain.Company{Meta: domain.Meta{ID: id, UpdatedAt: now.Add(-time.Hour)}, Name: "Acme", Status: domain.CompanyActive}

	upcoming := event("e1", 3, 10)
	upcoming.CompanyID = &id
	if got := HealthScore(company, nil, []domain.CalendarEvent{upcoming}, now); got != 100 {
		t.Fatalf("healthy company scored %d", got)
	}

	var overdue []domain.Task
	for _, tid := range []string{"a", "b", "c", "d"} {
		tk := dueTask(tid, -2, 9, domain.PriorityLow)
		tk.CompanyID = &id
		overdue = append(overdue, tk)
	}
	// 4 overdue capped at 45, nothing upcoming 20, paused 10.
	company.Status = domain.CompanyPaused
	if got := HealthScore(company, overdue, nil, now); got != 25 {
		t.Fatalf("expected 25, got %d", got)
	}
	company.Status = domain.CompanyActive
	company.UpdatedAt = now.Add(-40 * 24 * time.Hour)
	if got := HealthScore(company, nil, nil, now); got != 65 {
		t.Fatalf("stale company expected 65, got %d", got)
	}
	company.Status = domain.CompanyChurned
	if got := HealthScore(company, nil, nil, now); got != 0 {
		t.Fatalf("churned company expected 0, got %d", got)
	}
	if Label(80) != HealthGood || Label(50) != HealthAtRisk || Label(10) != HealthCritical {
		t.Fatalf("unexpected labels")
	}
}

func TestCreatorHealth(t *testing.T) {
	now := at(0, 12)
	a, b := "a", "b"
	companies := []domain.Company{
		{Meta: domain.Meta{ID: a, UpdatedAt: now}, Name: "A", Status: domain.CompanyActive},
		{Meta: domain.Meta{ID: b, UpdatedAt: now}, Name: "B", Status: domain.CompanyLead},
		{Meta: domain.Meta{ID: "gone"}, Name: "Gone", Status: domain.CompanyChurned},
	}
	ev := event("e", 1, 9)
	ev.CompanyID = &a
	late := dueTask("t", -1, 9, domain.PriorityHigh)
	goals := []domain.Goal{
		{Title: "today", Date: now, Target: 2, Completed: true},
		{Title: "tomorrow", Date: now.AddDate(0, 0, 1), Target: 1},
		{Title: "yesterday", Date: now.AddDate(0, 0, -1), Target: 1},
	}
	s := CreatorHealth(companies, []domain.Task{late}, []domain.CalendarEvent{ev}, goals, now)
	if s.ActiveCompanies != 1 || len(s.Companies) != 2 {
		t.Fatalf("unexpected company counts %+v", s)
	}
	if s.OpenTasks != 1 || s.OverdueTasks != 1 || s.UpcomingEvents != 1 {
		t.Fatalf("unexpected task/event counts %+v", s)
	}
	if s.GoalsTotal != 2 || s.GoalsDone != 1 || s.GoalCompletion() != 0.5 {
		t.Fatalf("unexpected goals %+v", s)
	}
	// A scores 100, B has nothing upcoming: 80.
	if s.AverageHealth != 90 || s.Status != HealthGood {
		t.Fatalf("unexpected average %d %s", s.AverageHealth, s.Status)
	}
	if empty := CreatorHealth(nil, nil, nil, nil, now); empty.AverageHealth != 100 || empty.GoalCompletion() != 0 {
		t.Fatalf("unexpected empty summary %+v", empty)
	}
}

const cadence = `
name: weekly cadence
slots:
  - weekday: wednesday
    time: "09:30"
    duration: 45m
    title: Reel
    kind: post
    platform: instagram
  - weekday: mon
    time: "14:00"
    title: Client sync
    kind: meeting
  - weekday: Sunday
    all_day: true
    title: Batch shoot
    kind: shoot
`

func TestExpandTemplate(t *testing.T) {
	tpl, err := ParseTemplate([]byte(cadence))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	events, err := ExpandTemplate(tpl, monday)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	type slot struct {
		Title string
		Start time.Time
		End   time.Time
		Kind  domain.EventKind
	}
	got := make([]slot, 0, len(events))
	for _, ev := range events {
		if ev.ID != "" || ev.Status != domain.EventPlanned {
			t.Fatalf("drafts must be unsaved planned events, got %+v", ev)
		}
		got = append(got, slot{ev.Title, ev.Start, ev.End, ev.Kind})
	}
	want := []slot{
		{"Reel", at(2, 0).Add(9*time.Hour + 30*time.Minute), at(2, 0).Add(10*time.Hour + 15*time.Minute), domain.EventPost},
		{"Client sync", at(0, 14), at(0, 15), domain.EventMeeting},
		{"Batch shoot", at(6, 0), at(7, 0), domain.EventShoot},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("expansion mismatch (-want +got):\n%s", diff)
	}
}

func TestParseTemplateRejectsBadSlots(t *testing.T) {
	bad := `
slots:
  - weekday: someday
    time: "09:00"
    title: x
  - weekday: monday
    time: "25:00"
    title: y
  - weekday: monday
    time: "09:00"
    title: ""
`
	_, err := ParseTemplate([]byte(bad))
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, part := range []string{"slot 0", "slot 1", "slot 2"} {
		if !strings.Contains(err.Error(), part) {
			t.Fatalf("error %q missing %s", err, part)
		}
	}
	if _, err := ParseTemplate([]byte("name: empty\n")); err == nil {
		t.Fatalf("expected empty template error")
	}
}

func TestSuggestRebalance(t *testing.T) {
	th := Thresholds{Light: 1, Moderate: 3}
	tasks := []domain.Task{
		dueTask("m1", 0, 9, domain.PriorityMedium),
		dueTask("l1", 0, 11, domain.PriorityLow),
		dueTask("h1", 0, 13, domain.PriorityHigh),
		dueTask("m2", 0, 15, domain.PriorityMedium),
		dueTask("l2", 0, 17, domain.PriorityLow),
	}
	events := []domain.CalendarEvent{event("e", 0, 8)}
	for d := 1; d < 7; d++ {
		for k := 0; k < 2; k++ {
			events = append(events, event("busy", d, 9+k))
		}
	}
	events = events[:len(events)-1] // sunday has one event

	days := WeeklyLoad(monday, events, tasks, th)
	if days[0].Total != 6 || days[6].Total != 1 {
		t.Fatalf("unexpected setup %+v", days)
	}
	moves := SuggestRebalance(days, tasks, th)

	want := []Move{
		{TaskID: "l1", Title: "task l1", From: at(0, 11), To: at(6, 11)},
		{TaskID: "l2", Title: "task l2", From: at(0, 17), To: at(1, 17)},
		{TaskID: "m1", Title: "task m1", From: at(0, 9), To: at(2, 9)},
	}
	if diff := cmp.Diff(want, moves); diff != "" {
		t.Fatalf("moves mismatch (-want +got):\n%s", diff)
	}
	if days[0].Total != 6 {
		t.Fatalf("input days mutated")
	}
	if p := RebalancePatch(moves[0]); p.DueDate == nil || !p.DueDate.Equal(at(6, 11)) {
		t.Fatalf("unexpected patch %+v", p)
	}
}

func TestSuggestRebalanceNoRoom(t *testing.T) {
	th := Thresholds{Light: 0, Moderate: 1}
	var tasks []domain.Task
	for d := 0; d < 7; d++ {
		tasks = append(tasks, dueTask("t", d, 9, domain.PriorityLow))
	}
	tasks = append(tasks, dueTask("extra", 0, 10, domain.PriorityLow))
	days := WeeklyLoad(monday, nil, tasks, th)
	if moves := SuggestRebalance(days, tasks, th); len(moves) != 0 {
		t.Fatalf("expected no moves when every day is full, got %+v", moves)
	}
}
