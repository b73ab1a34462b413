package domain

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"creatorhub/testutil"
)

func TestDomainDoesNotImportInternal(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.Under(testutil.Module+"/internal"),
		"domain types are shared by every layer")
}

func TestDefaultRules(t *testing.T) {
	engine := NewDefaultRulesEngine()
	ctx := context.Background()
	start := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)
	cases := map[string]struct {
		change Change
		block  string
	}{
		"company ok":        {Change{Action: ActionCreate, After: Company{Name: "Acme"}}, ""},
		"company unnamed":   {Change{Action: ActionCreate, After: Company{Name: "  "}}, "company name is required"},
		"company bad email": {Change{Action: ActionUpdate, After: Company{Name: "Acme", ContactEmail: "nope"}}, "contact email is invalid"},
		"task untitled":     {Change{Action: ActionCreate, After: Task{}}, "task title is required"},
		"event inverted":    {Change{Action: ActionCreate, After: CalendarEvent{Title: "Shoot", Start: start, End: start.Add(-time.Hour)}}, "event ends before it starts"},
		"event all day":     {Change{Action: ActionCreate, After: CalendarEvent{Title: "Trip", AllDay: true, Start: start, End: start.Add(-time.Hour)}}, ""},
		"goal zero target":  {Change{Action: ActionCreate, After: Goal{Title: "Post"}}, "goal target must be positive"},
		"goal negative":     {Change{Action: ActionUpdate, After: Goal{Title: "Post", Target: 1, Progress: -1}}, "goal progress cannot be negative"},
		"generation":        {Change{Action: ActionCreate, After: Generation{Output: "x"}}, "generation prompt is required"},
		"activity":          {Change{Action: ActionCreate, After: Activity{Entity: EntityTask}}, "activity type and entity are required"},
		"delete skips":      {Change{Action: ActionDelete, After: Task{}}, ""},
	}
	for name, tc := range cases {
		err := engine.Check(ctx, tc.change)
		if tc.block == "" {
			if err != nil {
				t.Fatalf("%s: unexpected error %v", name, err)
			}
			continue
		}
		var rv RuleViolationError
		if !errors.As(err, &rv) || !strings.Contains(err.Error(), tc.block) {
			t.Fatalf("%s: expected %q, got %v", name, tc.block, err)
		}
	}
	var nilEngine *RulesEngine
	if err := nilEngine.Check(ctx, Change{After: Task{}}); err != nil {
		t.Fatalf("nil engine should allow everything, got %v", err)
	}
}

type failingRule struct{}

func (failingRule) Name() string { return "broken" }
func (failingRule) Evaluate(context.Context, Change) (Result, error) {
	return Result{}, errors.New("boom")
}

func TestRuleErrorsAreWrapped(t *testing.T) {
	e := NewRulesEngine()
	e.Register(failingRule{})
	if err := e.Check(context.Background(), Change{}); err == nil || !strings.Contains(err.Error(), "rule broken: boom") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestTaskPatchLinksAndClears(t *testing.T) {
	companyID := "c1"
	due := time.Date(2024, 6, 4, 9, 0, 0, 0, time.UTC)
	task := TaskPatch{CompanyID: &companyID, CompanyName: Ptr("Acme"), DueDate: &due}.Apply(Task{Title: "Edit"})
	companyID = "changed"
	due = due.Add(time.Hour)
	if task.CompanyID == nil || *task.CompanyID != "c1" || task.CompanyName != "Acme" || task.DueDate.Hour() != 9 {
		t.Fatalf("patch aliased caller memory: %+v", task)
	}

	cleared := TaskPatch{ClearCompany: true, CompanyID: Ptr("c2"), ClearDueDate: true}.Apply(task)
	if cleared.CompanyID != nil || cleared.CompanyName != "" || cleared.DueDate != nil {
		t.Fatalf("clear flags should win: %+v", cleared)
	}
	if task.CompanyID == nil {
		t.Fatalf("Apply must not modify its input")
	}

	done := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	reopened := TaskPatch{ClearCompletedAt: true, CompletedAt: &done}.Apply(Task{CompletedAt: &done})
	if reopened.CompletedAt != nil {
		t.Fatalf("ClearCompletedAt should win: %+v", reopened)
	}
	if f := (TaskPatch{ClearCompletedAt: true}).Fields(); len(f) != 1 || f["completed_at"] != nil {
		t.Fatalf("unexpected reopen fields %v", f)
	}

	fields := TaskPatch{Status: Ptr(TaskDone), ClearDueDate: true}.Fields()
	if fields["status"] != TaskDone || fields["due_date"] != nil || len(fields) != 2 {
		t.Fatalf("unexpected fields %v", fields)
	}
}

func TestKindAndLabels(t *testing.T) {
	for _, tc := range []struct {
		v    any
		want EntityType
	}{
		{Company{}, EntityCompany},
		{&Task{}, EntityTask},
		{CalendarEvent{}, EntityEvent},
		{Goal{}, EntityGoal},
		{&Generation{}, EntityGeneration},
		{Activity{}, EntityActivity},
		{"other", ""},
	} {
		if got := Kind(tc.v); got != tc.want {
			t.Fatalf("Kind(%T) = %q, want %q", tc.v, got, tc.want)
		}
	}
	if len(EntityTypes()) != 6 {
		t.Fatalf("expected six collections")
	}
	long := Generation{Prompt: strings.Repeat("a", 50)}
	if got := long.DisplayName(); len(got) != 43 || !strings.HasSuffix(got, "...") {
		t.Fatalf("unexpected truncated name %q", got)
	}
	if (Task{Status: TaskDone}).Open() {
		t.Fatalf("done tasks are not open")
	}
}
