// Package agency gives an agency one workspace per managed creator and an
// aggregated overview across them.
package agency

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"creatorhub/internal/identity"
	"creatorhub/internal/infra/persistence"
	"creatorhub/internal/views"
	"creatorhub/internal/workspace"
)

// ErrUnknownCreator is returned for creators that were never added.
var ErrUnknownCreator = errors.New("agency: unknown creator")

// Creator is one managed creator.
type Creator struct {
	ID   string
	Name string
}

// Overview is one row of the agency dashboard.
type Overview struct {
	Creator   Creator
	Summary   views.CreatorSummary
	Week      []views.DayLoad
	HeavyDays int
}

type member struct {
	creator Creator
	ws      *workspace.Workspace
}

// Agency holds the creators' workspaces over one shared row store. Each
// workspace acts as its creator.
type Agency struct {
	rows       persistence.RowStore
	opts       workspace.Options
	thresholds views.Thresholds

	mu      sync.RWMutex
	members map[string]*member
	order   []string
}

// New constructs an agency. opts.Identity is ignored; each workspace gets its
// creator's identity.
func New(rows persistence.RowStore, opts workspace.Options, th views.Thresholds) *Agency {
	return &Agency{rows: rows, opts: opts, thresholds: th, members: make(map[string]*member)}
}

// Add opens a workspace for c. Adding an existing creator returns its workspace.
func (a *Agency) Add(ctx context.Context, c Creator) (*workspace.Workspace, error) {
	if c.ID == "" {
		return nil, errors.New("agency: creator id is required")
	}
	a.mu.RLock()
	m, ok := a.members[c.ID]
	a.mu.RUnlock()
	if ok {
		return m.ws, nil
	}

	opts := a.opts
	opts.Identity = identity.Static(c.ID)
	ws := workspace.New(a.rows, opts)
	if err := ws.Open(ctx, c.ID); err != nil {
		return nil, fmt.Errorf("add creator %s: %w", c.ID, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if m, ok := a.members[c.ID]; ok {
		return m.ws, nil
	}
	a.members[c.ID] = &member{creator: c, ws: ws}
	a.order = append(a.order, c.ID)
	return ws, nil
}

// Workspace returns the creator's workspace.
func (a *Agency) Workspace(creatorID string) (*workspace.Workspace, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	m, ok := a.members[creatorID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCreator, creatorID)
	}
	return m.ws, nil
}

// Remove drops a creator and resets their workspace. The shared row store
// stays open.
func (a *Agency) Remove(creatorID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	m, ok := a.members[creatorID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCreator, creatorID)
	}
	m.ws.Reset()
	delete(a.members, creatorID)
	for i, id := range a.order {
		if id == creatorID {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
	return nil
}

// Creators lists creators in the order they were added.
func (a *Agency) Creators() []Creator {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]Creator, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, a.members[id].creator)
	}
	return out
}

func (a *Agency) snapshot() []*member {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]*member, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, a.members[id])
	}
	return out
}

// Refresh reloads every creator's collections concurrently.
func (a *Agency) Refresh(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, m := range a.snapshot() {
		ws := m.ws
		g.Go(func() error {
			if _, err := ws.Companies.Reload(gctx); err != nil {
				return err
			}
			if _, err := ws.Tasks.Reload(gctx); err != nil {
				return err
			}
			if _, err := ws.Events.Reload(gctx); err != nil {
				return err
			}
			_, err := ws.Goals.Reload(gctx)
			return err
		})
	}
	return g.Wait()
}

// Overview summarizes every creator at now, least healthy first. Ties keep
// the order creators were added in.
func (a *Agency) Overview(now time.Time) []Overview {
	members := a.snapshot()
	out := make([]Overview, 0, len(members))
	for _, m := range members {
		week := m.ws.WeeklyLoad(now, a.thresholds)
		heavy := 0
		for _, d := range week {
			if d.Level == views.LoadHeavy {
				heavy++
			}
		}
		out = append(out, Overview{Creator: m.creator, Summary: m.ws.Health(now), Week: week, HeavyDays: heavy})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Summary.AverageHealth < out[j].Summary.AverageHealth
	})
	return out
}

// Close resets every workspace and closes the shared row store.
func (a *Agency) Close() error {
	for _, m := range a.snapshot() {
		m.ws.Reset()
	}
	if a.rows == nil {
		return nil
	}
	return a.rows.Close()
}
