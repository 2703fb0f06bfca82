package service

import (
	"context"
	"fmt"

	"github.com/alexanderramin/tempo/internal/domain"
	"github.com/alexanderramin/tempo/internal/repository"
	"github.com/alexanderramin/tempo/internal/schedule"
)

// moveTarget is a validated destination for a task.
type moveTarget struct {
	parent   *domain.Task
	parentID *string
	level    int
	number   int
	reparent bool
}

// planMove validates a move before anything is written.
func planMove(h *schedule.Hierarchy, project *domain.Project, t *domain.Task, m *TaskMove) (*moveTarget, error) {
	mv := &moveTarget{parentID: m.ParentID, number: m.Number, level: t.Level}
	if m.ParentID != nil {
		p, ok := h.Task(*m.ParentID)
		if !ok {
			return nil, domain.NewValidationError("parent_id", "parent task %s not found in project", *m.ParentID)
		}
		mv.parent = p
	}
	mv.reparent = !sameScope(
		repository.Scope{ProjectID: t.ProjectID, ParentID: t.ParentID},
		repository.Scope{ProjectID: t.ProjectID, ParentID: m.ParentID},
	)
	if !mv.reparent {
		return mv, nil
	}

	if err := h.ValidateReparent(t, mv.parent, project.MaxTaskDepth); err != nil {
		return nil, err
	}
	mv.level = 1
	if mv.parent != nil {
		if len(mv.parent.Dependencies) > 0 {
			return nil, &domain.StructuralConflictError{
				Kind:    domain.ConflictParentHasDeps,
				Message: fmt.Sprintf("parent task %s has dependencies; a task with dependencies cannot have children", labeler(h)(mv.parent.ID)),
			}
		}
		mv.level = mv.parent.Level + 1
	}
	if err := schedule.ValidateParentLevel(mv.parent, mv.level); err != nil {
		return nil, err
	}
	return mv, nil
}

// validateSubtreeDependencies checks deps, the edge set t will own, and,
// when t changes parent, the edges of every task below t against their
// ancestry after the move.
func validateSubtreeDependencies(h *schedule.Hierarchy, tasks []*domain.Task, t *domain.Task, deps []domain.Dependency, mv *moveTarget) error {
	edges := make([]domain.Dependency, 0, len(tasks))
	for _, other := range tasks {
		if other.ID != t.ID {
			edges = append(edges, other.Dependencies...)
		}
	}
	edges = append(edges, deps...)

	chain := h.Ancestors(t.ID)
	if mv != nil && mv.reparent {
		chain = ancestorsUnder(h, mv.parent)
	}
	label := labeler(h)
	check := func(owner string, owned []domain.Dependency, ancestors []string) error {
		if len(owned) == 0 {
			return nil
		}
		_, err := schedule.ValidateAndOrderDependencies(edges, owned, owner,
			schedule.WithAncestors(ancestors...),
			schedule.WithLabels(label),
		)
		return err
	}

	if err := check(t.ID, deps, chain); err != nil {
		return err
	}
	if mv == nil || !mv.reparent {
		return nil
	}
	for _, id := range h.Descendants(t.ID) {
		d, _ := h.Task(id)
		var within []string
		for _, a := range h.Ancestors(id) {
			within = append(within, a)
			if a == t.ID {
				break
			}
		}
		if err := check(id, d.Dependencies, append(within, chain...)); err != nil {
			return err
		}
	}
	return nil
}

// applyMove renumbers both scopes, places t and shifts its subtree's levels.
func applyMove(ctx context.Context, r txRepos, h *schedule.Hierarchy, t *domain.Task, mv *moveTarget) error {
	from := Slot{Scope: repository.Scope{ProjectID: t.ProjectID, ParentID: t.ParentID}, Number: t.Number}
	to := Slot{Scope: repository.Scope{ProjectID: t.ProjectID, ParentID: mv.parentID}, Number: mv.number}

	pos, err := Renumber(ctx, r.tasks, RenumberMove, t.ID, from, to)
	if err != nil {
		return err
	}
	if err := r.tasks.SetPlacement(ctx, t.ID, mv.parentID, mv.level, pos); err != nil {
		return err
	}
	if delta := mv.level - t.Level; delta != 0 {
		for _, id := range h.Descendants(t.ID) {
			d, _ := h.Task(id)
			if err := r.tasks.SetPlacement(ctx, d.ID, d.ParentID, d.Level+delta, d.Number); err != nil {
				return err
			}
		}
	}
	t.ParentID, t.Level, t.Number = mv.parentID, mv.level, pos
	return nil
}
