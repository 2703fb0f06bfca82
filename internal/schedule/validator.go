package schedule

import (
	"fmt"

	"github.com/alexanderramin/tempo/internal/domain"
)

// Order is the topological order of the start-class and finish-class
// dependency graphs, prerequisites first.
type Order struct {
	Start  []string
	Finish []string
}

type validateOptions struct {
	ancestors []string
	label     func(id string) string
}

type ValidateOption func(*validateOptions)

// WithAncestors names the hierarchy ancestors of the task that owns the
// candidate edges. None of them may be a direct or transitive prerequisite.
func WithAncestors(ids ...string) ValidateOption {
	return func(o *validateOptions) {
		o.ancestors = append(o.ancestors, ids...)
	}
}

// WithLabels renders task IDs in cycle chains and error messages.
func WithLabels(fn func(id string) string) ValidateOption {
	return func(o *validateOptions) {
		o.label = fn
	}
}

// ValidateAndOrderDependencies checks candidate edges against the existing
// project edges and returns the resulting topological orders. Edges owned by
// excludeTaskID in existing are ignored, since candidates replace them.
//
// The start-class graph (finish_to_start, start_to_start) and the
// finish-class graph (start_to_finish, finish_to_finish) are validated
// independently, then the combined graph is checked for mixed-type cycles.
func ValidateAndOrderDependencies(existing, candidates []domain.Dependency, excludeTaskID string, opts ...ValidateOption) (*Order, error) {
	o := validateOptions{label: func(id string) string { return id }}
	for _, opt := range opts {
		opt(&o)
	}
	if len(candidates) == 0 {
		return &Order{Start: []string{}, Finish: []string{}}, nil
	}

	kept := make([]domain.Dependency, 0, len(existing))
	for _, e := range existing {
		if e.TaskID != excludeTaskID {
			kept = append(kept, e)
		}
	}

	if err := checkTargets(kept, candidates, excludeTaskID, o); err != nil {
		return nil, err
	}

	var order Order
	for _, class := range []domain.DependencyClass{domain.ClassStart, domain.ClassFinish} {
		g := NewGraph()
		for _, e := range kept {
			if e.Type.Class() == class {
				g.AddEdge(e.PrerequisiteID, e.TaskID)
			}
		}
		var owned []domain.Dependency
		for _, c := range candidates {
			if c.Type.Class() == class {
				owned = append(owned, c)
			}
		}
		if err := addAcyclic(g, owned, excludeTaskID, string(class), o.label); err != nil {
			return nil, err
		}
		sorted, err := g.TopologicalSort()
		if err != nil {
			return nil, cycleError(string(class), g.FindCycle(), o.label)
		}
		if class == domain.ClassStart {
			order.Start = sorted
		} else {
			order.Finish = sorted
		}
	}

	combined := NewGraph()
	for _, e := range kept {
		combined.AddEdge(e.PrerequisiteID, e.TaskID)
	}
	if err := addAcyclic(combined, candidates, excludeTaskID, "mixed-type", o.label); err != nil {
		return nil, err
	}
	return &order, nil
}

// checkTargets rejects self references, duplicates, unknown types and
// prerequisites that are ancestors of the task or depend on one.
func checkTargets(kept, candidates []domain.Dependency, taskID string, o validateOptions) error {
	ancestors := make(map[string]bool, len(o.ancestors))
	for _, a := range o.ancestors {
		ancestors[a] = true
	}

	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		if !domain.ValidDependencyTypes[string(c.Type)] {
			return domain.NewValidationError("dependencies", "invalid dependency type %q", c.Type)
		}
		if c.PrerequisiteID == "" {
			return domain.NewValidationError("dependencies", "invalid dependency target: prerequisite is required")
		}
		if c.PrerequisiteID == taskID {
			return domain.NewValidationError("dependencies", "invalid dependency target: a task cannot depend on itself")
		}
		if ancestors[c.PrerequisiteID] {
			return domain.NewValidationError("dependencies",
				"invalid dependency target: %s is an ancestor of the task", o.label(c.PrerequisiteID))
		}
		if seen[c.PrerequisiteID] {
			return domain.NewValidationError("dependencies",
				"invalid dependency target: %s is listed more than once", o.label(c.PrerequisiteID))
		}
		seen[c.PrerequisiteID] = true
	}

	if len(ancestors) == 0 {
		return nil
	}
	g := NewGraph()
	for _, e := range kept {
		g.AddEdge(e.PrerequisiteID, e.TaskID)
	}
	for _, c := range candidates {
		for _, a := range o.ancestors {
			if g.HasNode(a) && g.HasNode(c.PrerequisiteID) && g.Reachable(a, c.PrerequisiteID) {
				return domain.NewValidationError("dependencies",
					"invalid dependency target: %s depends on ancestor %s",
					o.label(c.PrerequisiteID), o.label(a))
			}
		}
	}
	return nil
}

// addAcyclic inserts candidate edges one at a time, stopping at the first
// edge that closes a cycle.
func addAcyclic(g *Graph, candidates []domain.Dependency, taskID, class string, label func(string) string) error {
	for _, c := range candidates {
		g.AddNode(taskID)
		closes := g.HasNode(c.PrerequisiteID) && g.Reachable(taskID, c.PrerequisiteID)
		g.AddEdge(c.PrerequisiteID, taskID)
		if closes {
			return cycleError(class, g.FindCycle(), label)
		}
	}
	return nil
}

func cycleError(class string, chain []string, label func(string) string) error {
	if len(chain) == 0 {
		return &domain.StructuralConflictError{
			Kind:    domain.ConflictCircularDependency,
			Message: "circular dependency detected",
		}
	}
	labels := make([]string, len(chain))
	for i, id := range chain {
		labels[i] = label(id)
	}
	return &domain.StructuralConflictError{
		Kind:    domain.ConflictCircularDependency,
		Message: fmt.Sprintf("circular dependency in %s dependencies", class),
		Chain:   labels,
	}
}
