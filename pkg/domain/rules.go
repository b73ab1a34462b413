package domain

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
)

// Severity captures rule outcomes.
type Severity string

const (
	// SeverityBlock rejects the write.
	SeverityBlock Severity = "block"
	// SeverityWarn is reported but lets the write through.
	SeverityWarn Severity = "warn"
)

// Change describes a write a persistence adapter is about to apply.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned by adapters when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	msgs := make([]string, 0, len(e.Result.Violations))
	for _, v := range e.Result.Violations {
		if v.Severity == SeverityBlock {
			msgs = append(msgs, v.Message)
		}
	}
	return "write rejected: " + strings.Join(msgs, "; ")
}

// Rule is a validation evaluated by persistence adapters before a write.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, change Change) (Result, error)
}

// RulesEngine orchestrates rule evaluation.
type RulesEngine struct {
	rules []Rule
}

// NewRulesEngine constructs an empty engine.
func NewRulesEngine() *RulesEngine {
	return &RulesEngine{}
}

// NewDefaultRulesEngine returns an engine preloaded with the required-field rules.
func NewDefaultRulesEngine() *RulesEngine {
	e := NewRulesEngine()
	e.Register(RequiredFieldsRule())
	e.Register(EventWindowRule())
	e.Register(GoalProgressRule())
	return e
}

// Register appends a rule to the engine.
func (e *RulesEngine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// Evaluate executes all registered rules and aggregates their results.
func (e *RulesEngine) Evaluate(ctx context.Context, change Change) (Result, error) {
	var combined Result
	if e == nil {
		return combined, nil
	}
	for _, rule := range e.rules {
		res, err := rule.Evaluate(ctx, change)
		if err != nil {
			return Result{}, fmt.Errorf("rule %s: %w", rule.Name(), err)
		}
		combined.Merge(res)
	}
	return combined, nil
}

// Check evaluates the change and converts blocking violations into an error.
func (e *RulesEngine) Check(ctx context.Context, change Change) error {
	res, err := e.Evaluate(ctx, change)
	if err != nil {
		return err
	}
	if res.HasBlocking() {
		return RuleViolationError{Result: res}
	}
	return nil
}

type ruleFunc struct {
	name string
	fn   func(Change) []Violation
}

func (r ruleFunc) Name() string { return r.name }

func (r ruleFunc) Evaluate(_ context.Context, change Change) (Result, error) {
	if change.Action == ActionDelete {
		return Result{}, nil
	}
	return Result{Violations: r.fn(change)}, nil
}

func block(rule string, entity EntityType, id, msg string) Violation {
	return Violation{Rule: rule, Severity: SeverityBlock, Message: msg, Entity: entity, EntityID: id}
}

// RequiredFieldsRule rejects entities missing the fields the dashboard cannot render without.
func RequiredFieldsRule() Rule {
	const name = "required_fields"
	return ruleFunc{name: name, fn: func(change Change) []Violation {
		var out []Violation
		switch v := change.After.(type) {
		case Company:
			if strings.TrimSpace(v.Name) == "" {
				out = append(out, block(name, EntityCompany, v.ID, "company name is required"))
			}
			if v.ContactEmail != "" {
				if _, err := mail.ParseAddress(v.ContactEmail); err != nil {
					out = append(out, block(name, EntityCompany, v.ID, "contact email is invalid"))
				}
			}
		case Task:
			if strings.TrimSpace(v.Title) == "" {
				out = append(out, block(name, EntityTask, v.ID, "task title is required"))
			}
		case CalendarEvent:
			if strings.TrimSpace(v.Title) == "" {
				out = append(out, block(name, EntityEvent, v.ID, "event title is required"))
			}
		case Goal:
			if strings.TrimSpace(v.Title) == "" {
				out = append(out, block(name, EntityGoal, v.ID, "goal title is required"))
			}
		case Generation:
			if strings.TrimSpace(v.Prompt) == "" {
				out = append(out, block(name, EntityGeneration, v.ID, "generation prompt is required"))
			}
		case Activity:
			if v.Entity == "" || v.Type == "" {
				out = append(out, block(name, EntityActivity, v.ID, "activity type and entity are required"))
			}
		}
		return out
	}}
}

// EventWindowRule rejects calendar events that end before they start.
func EventWindowRule() Rule {
	const name = "event_window"
	return ruleFunc{name: name, fn: func(change Change) []Violation {
		ev, ok := change.After.(CalendarEvent)
		if !ok || ev.AllDay || ev.End.IsZero() {
			return nil
		}
		if ev.End.Before(ev.Start) {
			return []Violation{block(name, EntityEvent, ev.ID, "event ends before it starts")}
		}
		return nil
	}}
}

// GoalProgressRule keeps goal counters non-negative and targets positive.
func GoalProgressRule() Rule {
	const name = "goal_progress"
	return ruleFunc{name: name, fn: func(change Change) []Violation {
		g, ok := change.After.(Goal)
		if !ok {
			return nil
		}
		var out []Violation
		if g.Target <= 0 {
			out = append(out, block(name, EntityGoal, g.ID, "goal target must be positive"))
		}
		if g.Progress < 0 {
			out = append(out, block(name, EntityGoal, g.ID, "goal progress cannot be negative"))
		}
		return out
	}}
}
