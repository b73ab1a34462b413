// Package notify renders store outcomes into localized toasts and delivers
// them to logs, in-process recorders and connected dashboards.
package notify

import (
	"context"
	"sync"
	"time"

	"creatorhub/internal/core"
)

// Toast is a rendered notification as a dashboard displays it.
type Toast struct {
	Level   core.NotificationLevel `json:"level"`
	Op      core.Operation         `json:"op"`
	Entity  core.EntityType        `json:"entity"`
	Message string                 `json:"message"`
	At      time.Time              `json:"at"`
}

func render(l *Localizer, n core.Notification, at time.Time) Toast {
	return Toast{Level: n.Level, Op: n.Op, Entity: n.Entity, Message: l.Render(n), At: at}
}

// LogNotifier writes every notification to a logger. Errors log at warn.
type LogNotifier struct {
	logger    core.Logger
	localizer *Localizer
}

// NewLogNotifier constructs a log sink rendering in the localizer's language.
func NewLogNotifier(logger core.Logger, localizer *Localizer) *LogNotifier {
	if localizer == nil {
		localizer = NewLocalizer("en")
	}
	return &LogNotifier{logger: logger, localizer: localizer}
}

// Notify implements core.Notifier.
func (n *LogNotifier) Notify(_ context.Context, note core.Notification) {
	if n.logger == nil {
		return
	}
	msg := n.localizer.Render(note)
	args := []any{"op", note.Op, "entity", note.Entity}
	if note.Level == core.NotifyError {
		n.logger.Warn(msg, append(args, "error", note.Err)...)
		return
	}
	n.logger.Info(msg, args...)
}

// Recorder keeps rendered toasts in memory, newest last.
type Recorder struct {
	mu        sync.Mutex
	localizer *Localizer
	now       func() time.Time
	limit     int
	toasts    []Toast
}

// NewRecorder keeps at most limit toasts; limit <= 0 keeps everything.
func NewRecorder(localizer *Localizer, limit int) *Recorder {
	if localizer == nil {
		localizer = NewLocalizer("en")
	}
	return &Recorder{localizer: localizer, limit: limit, now: func() time.Time { return time.Now().UTC() }}
}

// Notify implements core.Notifier.
func (r *Recorder) Notify(_ context.Context, n core.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, render(r.localizer, n, r.now()))
	if r.limit > 0 && len(r.toasts) > r.limit {
		r.toasts = append([]Toast(nil), r.toasts[len(r.toasts)-r.limit:]...)
	}
}

// Toasts returns a copy of the recorded toasts.
func (r *Recorder) Toasts() []Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Toast(nil), r.toasts...)
}

// Count returns how many toasts of level were recorded.
func (r *Recorder) Count(level core.NotificationLevel) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := 0
	for _, t := range r.toasts {
		if t.Level == level {
			c++
		}
	}
	return c
}

// Multi fans a notification out to every non-nil sink in order.
type Multi []core.Notifier

// Notify implements core.Notifier.
func (m Multi) Notify(ctx context.Context, n core.Notification) {
	for _, sink := range m {
		if sink != nil {
			sink.Notify(ctx, n)
		}
	}
}

// Func adapts a function to core.Notifier.
type Func func(ctx context.Context, n core.Notification)

// Notify implements core.Notifier.
func (f Func) Notify(ctx context.Context, n core.Notification) { f(ctx, n) }
