// Package generation drafts captions, scripts, hooks and ideas with a
// language model and saves them to the generations store.
package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"creatorhub/internal/core"
	"creatorhub/pkg/domain"
)

// ErrEmptyOutput is returned when the model produced no text.
var ErrEmptyOutput = errors.New("generation: model returned no text")

// Model turns a prompt into text.
type Model interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// Saver persists a finished draft. The generations store satisfies it.
type Saver interface {
	Create(ctx context.Context, draft domain.Generation) (domain.Generation, error)
}

// Request describes the content wanted.
type Request struct {
	Kind     domain.GenerationKind
	Topic    string
	Platform string
	Tone     string
	Company  *domain.Company
}

func (r Request) validate() error {
	switch r.Kind {
	case domain.GenerationCaption, domain.GenerationScript, domain.GenerationHook, domain.GenerationIdea:
	default:
		return fmt.Errorf("generation: unknown kind %q", r.Kind)
	}
	if strings.TrimSpace(r.Topic) == "" {
		return errors.New("generation: topic is required")
	}
	return nil
}

var instructions = map[domain.GenerationKind]string{
	domain.GenerationCaption: "Write one social media caption under 60 words. Include at most three hashtags.",
	domain.GenerationScript:  "Write a short video script with a hook, three beats and a call to action.",
	domain.GenerationHook:    "Write one opening line that makes a viewer stop scrolling. Under 15 words.",
	domain.GenerationIdea:    "List five distinct content ideas, one per line, no numbering.",
}

// BuildPrompt renders the request as model input.
func BuildPrompt(r Request) string {
	var b strings.Builder
	b.WriteString(instructions[r.Kind])
	b.WriteString("\nTopic: ")
	b.WriteString(strings.TrimSpace(r.Topic))
	if r.Platform != "" {
		b.WriteString("\nPlatform: ")
		b.WriteString(r.Platform)
	}
	if r.Tone != "" {
		b.WriteString("\nTone: ")
		b.WriteString(r.Tone)
	}
	if r.Company != nil {
		b.WriteString("\nBrand: ")
		b.WriteString(r.Company.Name)
		if r.Company.Industry != "" {
			b.WriteString(" (" + r.Company.Industry + ")")
		}
	}
	return b.String()
}

// Service generates drafts and saves them.
type Service struct {
	model   Model
	saver   Saver
	timeout time.Duration
	logger  core.Logger
}

// NewService constructs a service. timeout <= 0 means no per-call deadline.
func NewService(model Model, saver Saver, timeout time.Duration, logger core.Logger) *Service {
	return &Service{model: model, saver: saver, timeout: timeout, logger: logger}
}

// Generate asks the model for a draft and saves it through the store, so
// the usual create notification and activity entry follow.
func (s *Service) Generate(ctx context.Context, r Request) (domain.Generation, error) {
	if err := r.validate(); err != nil {
		return domain.Generation{}, err
	}
	prompt := BuildPrompt(r)
	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	started := time.Now()
	text, err := s.model.Generate(callCtx, prompt)
	if err != nil {
		s.warn("model call failed", "model", s.model.Name(), "kind", r.Kind, "error", err)
		return domain.Generation{}, fmt.Errorf("generate %s: %w", r.Kind, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Generation{}, ErrEmptyOutput
	}
	if s.logger != nil {
		s.logger.Debug("draft generated", "model", s.model.Name(), "kind", r.Kind, "elapsed", time.Since(started))
	}

	draft := domain.Generation{Kind: r.Kind, Prompt: r.Topic, Output: text, Model: s.model.Name()}
	if r.Company != nil {
		draft.CompanyID = domain.CloneString(&r.Company.ID)
		draft.CompanyName = r.Company.Name
	}
	return s.saver.Create(ctx, draft)
}

func (s *Service) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}

// Canned is an offline model returning fixed text per kind, used for demos.
type Canned map[domain.GenerationKind]string

// Name implements Model.
func (Canned) Name() string { return "canned" }

// Generate implements Model. The kind is recovered from the instruction line.
func (c Canned) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	for kind, instr := range instructions {
		if strings.HasPrefix(prompt, instr) {
			if out, ok := c[kind]; ok {
				return out, nil
			}
		}
	}
	return "", nil
}
