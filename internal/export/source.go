package export

import (
	"fmt"

	"creatorhub/internal/workspace"
	"creatorhub/pkg/domain"
)

type workspaceSource struct {
	ws *workspace.Workspace
}

// FromWorkspace exports what the workspace currently holds in memory,
// including optimistic entries not yet confirmed by storage.
func FromWorkspace(ws *workspace.Workspace) Source {
	return workspaceSource{ws: ws}
}

func (s workspaceSource) Owner() string { return s.ws.Companies.Owner() }

func (s workspaceSource) Items(entity domain.EntityType) ([]any, error) {
	switch entity {
	case domain.EntityCompany:
		return toAny(s.ws.Companies.List()), nil
	case domain.EntityTask:
		return toAny(s.ws.Tasks.List()), nil
	case domain.EntityEvent:
		return toAny(s.ws.Events.List()), nil
	case domain.EntityGoal:
		return toAny(s.ws.Goals.List()), nil
	case domain.EntityGeneration:
		return toAny(s.ws.Generations.List()), nil
	case domain.EntityActivity:
		return toAny(s.ws.Activity.List()), nil
	default:
		return nil, fmt.Errorf("no collection %q", entity)
	}
}

func toAny[E any](items []E) []any {
	out := make([]any, len(items))
	for i, it := range items {
		out[i] = it
	}
	return out
}
