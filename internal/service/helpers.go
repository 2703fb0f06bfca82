package service

import (
	"time"

	"github.com/alexanderramin/tempo/internal/domain"
	"github.com/alexanderramin/tempo/internal/schedule"
)

// labeler renders task IDs as "<wbs code> <title>" for error messages.
func labeler(h *schedule.Hierarchy) func(id string) string {
	codes := h.WBSCodes()
	return func(id string) string {
		t, ok := h.Task(id)
		if !ok {
			return id
		}
		return codes[id] + " " + t.Title
	}
}

// ancestorsUnder returns parent and its ancestors, nearest first.
func ancestorsUnder(h *schedule.Hierarchy, parent *domain.Task) []string {
	if parent == nil {
		return nil
	}
	return append([]string{parent.ID}, h.Ancestors(parent.ID)...)
}

// allEdges flattens the dependencies attached to tasks.
func allEdges(tasks []*domain.Task) []domain.Dependency {
	var edges []domain.Dependency
	for _, t := range tasks {
		edges = append(edges, t.Dependencies...)
	}
	return edges
}

// ownedBy copies deps with their owner set to taskID.
func ownedBy(taskID string, deps []domain.Dependency) []domain.Dependency {
	out := make([]domain.Dependency, len(deps))
	for i, d := range deps {
		d.TaskID = taskID
		out[i] = d
	}
	return out
}

// dependencyInputs pairs each dependency with its prerequisite's dates. Every
// prerequisite must be a live task of the same project.
func dependencyInputs(h *schedule.Hierarchy, deps []domain.Dependency) ([]schedule.DependencyInput, error) {
	inputs := make([]schedule.DependencyInput, 0, len(deps))
	for _, d := range deps {
		pre, ok := h.Task(d.PrerequisiteID)
		if !ok {
			return nil, domain.NewValidationError("dependencies",
				"invalid dependency target: task %s not found in project", d.PrerequisiteID)
		}
		inputs = append(inputs, schedule.DependencyInput{
			PrerequisiteID: d.PrerequisiteID,
			Type:           d.Type,
			Latency:        d.Latency,
			Prerequisite:   schedule.DatesOf(pre),
		})
	}
	return inputs, nil
}

func applyResolution(t *domain.Task, r *schedule.Resolution) {
	t.PlannedStart, t.PlannedStartComputed = r.Start.Value, r.Start.Computed
	t.PlannedFinish, t.PlannedFinishComputed = r.Finish.Value, r.Finish.Computed
	t.PlannedDuration, t.PlannedDurationComputed = r.Duration.Value, r.Duration.Computed
}

// applyActuals sets the actual dates and derives the actual duration.
func applyActuals(t *domain.Task, start, finish *time.Time) error {
	if start != nil {
		t.ActualStart = domain.DatePtr(*start)
	}
	if finish != nil {
		t.ActualFinish = domain.DatePtr(*finish)
	}
	if t.ActualStart != nil && t.ActualFinish != nil {
		d := domain.InclusiveDuration(*t.ActualStart, *t.ActualFinish)
		if d <= 0 {
			return domain.NewValidationError("actual_finish", "must not be before actual_start")
		}
		t.ActualDuration = &d
	}
	return nil
}

// mergePlanned combines supplied planned fields with stored ones until two of
// the three are known. Stored values enter in the order start, duration,
// finish; values the caller supplied itself are preferred over derived ones.
func mergePlanned(t *domain.Task, start, finish *time.Time, duration *int) (*time.Time, *time.Time, *int) {
	known := 0
	for _, set := range []bool{start != nil, finish != nil, duration != nil} {
		if set {
			known++
		}
	}
	for _, derived := range []bool{false, true} {
		if known < 2 && start == nil && t.PlannedStart != nil && t.PlannedStartComputed == derived {
			start = t.PlannedStart
			known++
		}
		if known < 2 && duration == nil && t.PlannedDuration != nil && t.PlannedDurationComputed == derived {
			duration = t.PlannedDuration
			known++
		}
		if known < 2 && finish == nil && t.PlannedFinish != nil && t.PlannedFinishComputed == derived {
			finish = t.PlannedFinish
			known++
		}
	}
	return start, finish, duration
}

func validateCompletion(pct *float64) error {
	if pct != nil && (*pct < 0 || *pct > 100) {
		return domain.NewValidationError("completion_pct", "must be between 0 and 100, got %g", *pct)
	}
	return nil
}
