package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/tempo/internal/db"
	"github.com/alexanderramin/tempo/internal/domain"
	"github.com/alexanderramin/tempo/internal/repository"
	"github.com/alexanderramin/tempo/internal/schedule"
)

// recomputer refreshes the cached projections of one project inside a
// caller-owned transaction.
type recomputer struct {
	cfg settings
}

func (c *recomputer) recompute(ctx context.Context, r txRepos, projectID, trigger string) (*RecomputeResult, error) {
	began := time.Now()
	defer func() {
		recomputeDuration.WithLabelValues(trigger).Observe(time.Since(began).Seconds())
	}()

	project, err := r.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("loading project %s: %w", projectID, err)
	}
	tasks, err := loadTasksWithEdges(ctx, r, projectID)
	if err != nil {
		return nil, err
	}

	res := schedule.Project(tasks, c.cfg.now())

	updates := make([]repository.ProjectionUpdate, 0, len(res.Changed))
	for _, id := range res.Changed {
		p := res.Projections[id]
		updates = append(updates, repository.ProjectionUpdate{TaskID: id, Start: p.Start, Finish: p.Finish, Delay: p.Delay})
	}
	if len(updates) > 0 {
		if err := r.tasks.UpdateProjections(ctx, updates); err != nil {
			return nil, err
		}
		projectionWrites.Add(float64(len(updates)))
	}

	if start, finish, changed := topoPositions(tasks); changed {
		if err := r.tasks.UpdateTopoPositions(ctx, projectID, start, finish); err != nil {
			return nil, err
		}
	}

	paused := false
	latest, err := r.accompaniments.Latest(ctx, projectID)
	switch {
	case err == nil:
		paused = latest.SchedulePaused
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("loading latest accompaniment: %w", err)
	}

	rollup := schedule.ProjectRollup(project, tasks, res.Projections, paused)
	rollupChanged := !rollup.Equal(project.Rollup())
	if rollupChanged {
		if err := r.projects.UpdateRollup(ctx, projectID, rollup, c.cfg.now()); err != nil {
			return nil, err
		}
	}

	for _, w := range res.Warnings {
		projectionWarnings.Inc()
		c.cfg.logger.WarnContext(ctx, "task not projected",
			"project_id", projectID, "task_id", w.TaskID, "reason", w.Reason)
	}

	return &RecomputeResult{
		ProjectID:     projectID,
		TasksWritten:  len(updates),
		RollupChanged: rollupChanged,
		Rollup:        rollup,
		Warnings:      res.Warnings,
	}, nil
}

// loadTasksWithEdges returns the project's live tasks with their outgoing
// dependency edges attached.
func loadTasksWithEdges(ctx context.Context, r txRepos, projectID string) ([]*domain.Task, error) {
	tasks, err := r.tasks.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	edges, err := r.deps.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*domain.Task, len(tasks))
	for _, t := range tasks {
		t.Dependencies = nil
		byID[t.ID] = t
	}
	for _, e := range edges {
		if t, ok := byID[e.TaskID]; ok {
			t.Dependencies = append(t.Dependencies, e)
		}
	}
	return tasks, nil
}

// topoPositions orders the start-class and finish-class graphs of the stored
// edges. Tasks outside a graph get no position. changed reports whether any
// cached position differs.
func topoPositions(tasks []*domain.Task) (start, finish map[string]int, changed bool) {
	graphs := map[domain.DependencyClass]*schedule.Graph{
		domain.ClassStart:  schedule.NewGraph(),
		domain.ClassFinish: schedule.NewGraph(),
	}
	for _, t := range tasks {
		for _, d := range t.Dependencies {
			graphs[d.Type.Class()].AddEdge(d.PrerequisiteID, d.TaskID)
		}
	}
	start = positions(graphs[domain.ClassStart])
	finish = positions(graphs[domain.ClassFinish])

	for _, t := range tasks {
		if !samePosition(t.StartTopoPosition, start, t.ID) || !samePosition(t.FinishTopoPosition, finish, t.ID) {
			changed = true
			break
		}
	}
	return start, finish, changed
}

func positions(g *schedule.Graph) map[string]int {
	order, err := g.TopologicalSort()
	if err != nil {
		return map[string]int{}
	}
	pos := make(map[string]int, len(order))
	for i, id := range order {
		pos[id] = i + 1
	}
	return pos
}

func samePosition(cached *int, fresh map[string]int, id string) bool {
	p, ok := fresh[id]
	if cached == nil {
		return !ok
	}
	return ok && *cached == p
}

type projectionService struct {
	uow        db.UnitOfWork
	recomputer *recomputer
	cfg        settings
}

// NewProjectionService recomputes projections without taking the project
// lock. Races with structural writers surface as retryable conflicts.
func NewProjectionService(uow db.UnitOfWork, opts ...Option) ProjectionService {
	cfg := newSettings(opts)
	return &projectionService{uow: uow, recomputer: &recomputer{cfg: cfg}, cfg: cfg}
}

func (s *projectionService) RecomputeProjections(ctx context.Context, projectID string) (*RecomputeResult, error) {
	return s.run(ctx, projectID, "manual")
}

func (s *projectionService) run(ctx context.Context, projectID, trigger string) (result *RecomputeResult, err error) {
	startedAt := time.Now()
	fields := map[string]any{"project_id": projectID, "trigger": trigger}
	defer func() {
		if result != nil {
			fields["tasks_written"] = result.TasksWritten
			fields["warnings"] = len(result.Warnings)
		}
		observe(ctx, s.cfg.observer, "recompute-projections", startedAt, fields, &err)
	}()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.timeout)
	defer cancel()

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		var rerr error
		result, rerr = s.recomputer.recompute(ctx, reposFor(tx), projectID, trigger)
		return rerr
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
