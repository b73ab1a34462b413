// Package activity appends store mutations to the activity log.
package activity

import (
	"context"
	"sort"
	"sync/atomic"

	"creatorhub/internal/core"
	"creatorhub/pkg/domain"
)

// Appender creates activity entries. The activity store satisfies it; that
// store must not itself carry a Log as its activity recorder.
type Appender interface {
	Create(ctx context.Context, draft domain.Activity) (domain.Activity, error)
}

// Log implements core.ActivityRecorder on top of an Appender. Failures are
// logged and counted, never returned.
type Log struct {
	appender Appender
	logger   core.Logger
	failures atomic.Int64
}

// NewLog constructs a recorder. A nil logger discards failure logs.
func NewLog(appender Appender, logger core.Logger) *Log {
	return &Log{appender: appender, logger: logger}
}

// Record implements core.ActivityRecorder.
func (l *Log) Record(ctx context.Context, e core.ActivityEntry) {
	if l == nil || l.appender == nil {
		return
	}
	draft := domain.Activity{
		Type:        e.Action,
		Entity:      e.Entity,
		EntityID:    e.EntityID,
		DisplayName: e.DisplayName,
		Metadata:    e.Metadata,
	}
	if _, err := l.appender.Create(ctx, draft); err != nil {
		l.failures.Add(1)
		if l.logger != nil {
			l.logger.Warn("activity append failed", "action", e.Action, "entity", e.Entity, "id", e.EntityID, "error", err)
		}
	}
}

// Failures returns how many entries could not be appended.
func (l *Log) Failures() int64 { return l.failures.Load() }

// Recent returns up to n entries newest first. n <= 0 returns all.
func Recent(items []domain.Activity, n int) []domain.Activity {
	out := append([]domain.Activity(nil), items...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// ForEntity filters entries about one entity.
func ForEntity(items []domain.Activity, entity domain.EntityType, id string) []domain.Activity {
	var out []domain.Activity
	for _, a := range items {
		if a.Entity == entity && a.EntityID == id {
			out = append(out, a)
		}
	}
	return out
}
