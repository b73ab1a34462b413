package core

import (
	"context"
	"time"
)

// Logger is the structured logger the store writes to. Arguments are
// alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Clock supplies timestamps for optimistic updates.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// MetricsRecorder observes operation outcomes.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Tracer starts spans around store operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan is ended with the operation error, if any.
type TraceSpan interface {
	End(err error)
}

// IdentityProvider answers "who is signed in" synchronously.
type IdentityProvider interface {
	CurrentUserID() (string, bool)
}

// NotificationLevel distinguishes success toasts from failures.
type NotificationLevel string

// Notification levels.
const (
	NotifySuccess NotificationLevel = "success"
	NotifyError   NotificationLevel = "error"
)

// Notification is a user-facing outcome message. Rendering into the display
// language is left to the sink.
type Notification struct {
	Level  NotificationLevel
	Op     Operation
	Entity EntityType
	Name   string
	Count  int
	Err    error
}

// Notifier receives fire-and-forget notifications. Implementations must not block.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// ActivityEntry is appended to the activity log after successful mutations.
type ActivityEntry struct {
	Action      Action
	Entity      EntityType
	EntityID    string
	DisplayName string
	Metadata    map[string]any
	OccurredAt  time.Time
}

// ActivityRecorder appends activity entries on a best-effort basis. It has no
// error return: a failing log never changes the outcome of the primary operation.
type ActivityRecorder interface {
	Record(ctx context.Context, entry ActivityEntry)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, Notification) {}

type noopActivityRecorder struct{}

func (noopActivityRecorder) Record(context.Context, ActivityEntry) {}

type anonymous struct{}

func (anonymous) CurrentUserID() (string, bool) { return "", false }

type options struct {
	logger   Logger
	clock    Clock
	metrics  MetricsRecorder
	tracer   Tracer
	notifier Notifier
	activity ActivityRecorder
	identity IdentityProvider
}

func defaultOptions() options {
	return options{
		logger:   noopLogger{},
		clock:    ClockFunc(func() time.Time { return time.Now().UTC() }),
		metrics:  noopMetricsRecorder{},
		tracer:   noopTracer{},
		notifier: noopNotifier{},
		activity: noopActivityRecorder{},
		identity: anonymous{},
	}
}

// Option configures a Store.
type Option func(*options)

// WithLogger sets the structured logger.
func WithLogger(l Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(c Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithMetricsRecorder sets the metrics sink.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(t Tracer) Option {
	return func(o *options) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithNotifier sets the notification sink.
func WithNotifier(n Notifier) Option {
	return func(o *options) {
		if n != nil {
			o.notifier = n
		}
	}
}

// WithActivityRecorder sets the activity log collaborator.
func WithActivityRecorder(a ActivityRecorder) Option {
	return func(o *options) {
		if a != nil {
			o.activity = a
		}
	}
}

// WithIdentity sets the identity provider consulted before creates.
func WithIdentity(p IdentityProvider) Option {
	return func(o *options) {
		if p != nil {
			o.identity = p
		}
	}
}
