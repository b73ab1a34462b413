package notify

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/text/language"

	"creatorhub/internal/core"
	"creatorhub/pkg/domain"
)

var _ core.Notifier = (*Hub)(nil)
var _ core.Notifier = (*Recorder)(nil)
var _ core.Notifier = (*LogNotifier)(nil)
var _ core.Notifier = Multi(nil)

func TestLocalizerMatchesLanguage(t *testing.T) {
	cases := map[string]language.Tag{
		"en":    language.English,
		"es":    language.Spanish,
		"es-MX": language.Spanish,
		"fr":    language.English,
		"":      language.English,
	}
	for locale, want := range cases {
		if got := NewLocalizer(locale).Language(); got != want {
			t.Fatalf("NewLocalizer(%q) = %v, want %v", locale, got, want)
		}
	}
}

func TestRenderMessages(t *testing.T) {
	en := NewLocalizer("en")
	es := NewLocalizer("es")
	boom := errors.New("boom")
	cases := []struct {
		l    *Localizer
		n    core.Notification
		want string
	}{
		{en, core.Notification{Level: core.NotifySuccess, Op: core.OpCreate, Entity: domain.EntityCompany, Name: "Acme"}, `Created company "Acme"`},
		{en, core.Notification{Level: core.NotifyError, Op: core.OpUpdate, Entity: domain.EntityTask, Name: "Edit", Err: boom}, `Could not update task "Edit": boom`},
		{en, core.Notification{Level: core.NotifyError, Op: core.OpBulkDelete, Entity: domain.EntityTask, Count: 2, Err: boom}, "Could not delete 2 task items: boom"},
		{en, core.Notification{Level: core.NotifyError, Op: core.OpCreate, Entity: domain.EntityGoal, Err: core.ErrUnauthenticated}, "Sign in to create a goal"},
		{es, core.Notification{Level: core.NotifySuccess, Op: core.OpDelete, Entity: domain.EntityEvent, Name: "Shoot"}, `Se eliminó evento "Shoot"`},
		{es, core.Notification{Level: core.NotifySuccess, Op: core.OpBulkUpdate, Entity: domain.EntityTask, Count: 3}, "Se actualizaron 3 elementos de tarea"},
	}
	for _, tc := range cases {
		if got := tc.l.Render(tc.n); got != tc.want {
			t.Fatalf("Render(%+v) = %q, want %q", tc.n, got, tc.want)
		}
	}
}

type captureLogger struct {
	lines []string
}

func (c *captureLogger) Debug(msg string, _ ...any) { c.lines = append(c.lines, "debug "+msg) }
func (c *captureLogger) Info(msg string, _ ...any)  { c.lines = append(c.lines, "info "+msg) }
func (c *captureLogger) Warn(msg string, _ ...any)  { c.lines = append(c.lines, "warn "+msg) }
func (c *captureLogger) Error(msg string, _ ...any) { c.lines = append(c.lines, "error "+msg) }

func TestLogNotifierLevels(t *testing.T) {
	logger := &captureLogger{}
	n := NewLogNotifier(logger, nil)
	n.Notify(context.Background(), core.Notification{Level: core.NotifySuccess, Op: core.OpDelete, Entity: domain.EntityGoal, Name: "Post twice"})
	n.Notify(context.Background(), core.Notification{Level: core.NotifyError, Op: core.OpInitialize, Entity: domain.EntityGoal, Err: errors.New("offline")})
	if len(logger.lines) != 2 {
		t.Fatalf("expected 2 log lines, got %v", logger.lines)
	}
	if !strings.HasPrefix(logger.lines[0], "info Deleted goal") || logger.lines[1] != "warn Could not load goal items: offline" {
		t.Fatalf("unexpected lines %v", logger.lines)
	}
}

func TestRecorderLimitAndMulti(t *testing.T) {
	rec := NewRecorder(nil, 2)
	var calls int
	sink := Multi{rec, nil, Func(func(context.Context, core.Notification) { calls++ })}
	for i := 0; i < 3; i++ {
		sink.Notify(context.Background(), core.Notification{Level: core.NotifySuccess, Op: core.OpCreate, Entity: domain.EntityTask, Name: string(rune('a' + i))})
	}
	sink.Notify(context.Background(), core.Notification{Level: core.NotifyError, Op: core.OpCreate, Entity: domain.EntityTask, Err: errors.New("x")})
	if calls != 4 {
		t.Fatalf("expected func sink to see 4 notifications, got %d", calls)
	}
	toasts := rec.Toasts()
	if len(toasts) != 2 {
		t.Fatalf("expected 2 retained toasts, got %d", len(toasts))
	}
	if toasts[0].Message != `Created task "c"` {
		t.Fatalf("unexpected oldest retained toast %+v", toasts[0])
	}
	if rec.Count(core.NotifyError) != 1 || rec.Count(core.NotifySuccess) != 1 {
		t.Fatalf("unexpected counts in %+v", toasts)
	}
}

func TestHubBroadcastsToasts(t *testing.T) {
	hub := NewHub(NewLocalizer("en"), nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.Notify(context.Background(), core.Notification{Level: core.NotifySuccess, Op: core.OpCreate, Entity: domain.EntityCompany, Name: "Acme"})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Toast
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read toast: %v", err)
	}
	if got.Message != `Created company "Acme"` || got.Level != core.NotifySuccess {
		t.Fatalf("unexpected toast %+v", got)
	}

	if err := hub.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if hub.Clients() != 0 {
		t.Fatalf("expected no clients after close")
	}
	hub.Notify(context.Background(), core.Notification{Level: core.NotifySuccess, Op: core.OpCreate, Entity: domain.EntityCompany, Name: "late"})
}
