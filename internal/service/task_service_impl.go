package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/tempo/internal/db"
	"github.com/alexanderramin/tempo/internal/domain"
	"github.com/alexanderramin/tempo/internal/lock"
	"github.com/alexanderramin/tempo/internal/repository"
	"github.com/alexanderramin/tempo/internal/schedule"
	"github.com/google/uuid"
)

type taskService struct {
	tasks  repository.TaskRepo
	deps   repository.DependencyRepo
	uow    db.UnitOfWork
	writer *structuralWriter
	cfg    settings
}

func NewTaskService(
	tasks repository.TaskRepo,
	deps repository.DependencyRepo,
	uow db.UnitOfWork,
	locker lock.Locker,
	opts ...Option,
) TaskService {
	cfg := newSettings(opts)
	return &taskService{
		tasks: tasks,
		deps:  deps,
		uow:   uow,
		writer: &structuralWriter{
			uow:        uow,
			locker:     locker,
			recomputer: &recomputer{cfg: cfg},
			timeout:    cfg.timeout,
		},
		cfg: cfg,
	}
}

func (s *taskService) Create(ctx context.Context, req CreateTaskRequest) (task *domain.Task, err error) {
	startedAt := time.Now()
	fields := map[string]any{"project_id": req.ProjectID, "dependencies": len(req.Dependencies)}
	defer func() { observe(ctx, s.cfg.observer, "create-task", startedAt, fields, &err) }()

	if err := validateCreate(req); err != nil {
		return nil, err
	}

	var created *domain.Task
	err = s.writer.run(ctx, req.ProjectID, func(ctx context.Context, r txRepos) error {
		var err error
		created, err = s.createTx(ctx, r, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	fields["task_id"] = created.ID
	return s.Get(ctx, created.ID)
}

func validateCreate(req CreateTaskRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return domain.NewValidationError("title", "is required")
	}
	if req.ProjectID == "" {
		return domain.NewValidationError("project_id", "is required")
	}
	return nil
}

// createTx inserts one task inside the caller's unit of work.
func (s *taskService) createTx(ctx context.Context, r txRepos, req CreateTaskRequest) (*domain.Task, error) {
	now := s.cfg.now()
	t := &domain.Task{
		ID:             uuid.New().String(),
		ProjectID:      req.ProjectID,
		ParentID:       req.ParentID,
		Title:          strings.TrimSpace(req.Title),
		Description:    req.Description,
		ResponsibleOrg: req.ResponsibleOrg,
		IsMilestone:    req.IsMilestone,
		EstimatedCost:  req.EstimatedCost,
		CreatedBy:      req.Actor,
		UpdatedBy:      req.Actor,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	project, err := r.projects.GetByID(ctx, req.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("loading project: %w", err)
	}
	tasks, err := loadTasksWithEdges(ctx, r, req.ProjectID)
	if err != nil {
		return nil, err
	}
	h := schedule.NewHierarchy(tasks)

	var parent *domain.Task
	if req.ParentID != nil {
		p, ok := h.Task(*req.ParentID)
		if !ok {
			return nil, domain.NewValidationError("parent_id", "parent task %s not found in project", *req.ParentID)
		}
		parent = p
	}
	level := req.Level
	if level == 0 {
		level = 1
		if parent != nil {
			level = parent.Level + 1
		}
	}
	if err := project.ValidateDepth(level); err != nil {
		return nil, err
	}
	if err := schedule.ValidateParentLevel(parent, level); err != nil {
		return nil, err
	}
	if parent != nil && len(parent.Dependencies) > 0 {
		return nil, &domain.StructuralConflictError{
			Kind:    domain.ConflictParentHasDeps,
			Message: fmt.Sprintf("parent task %s has dependencies; a task with dependencies cannot have children", labeler(h)(parent.ID)),
		}
	}
	t.Level = level

	deps := ownedBy(t.ID, req.Dependencies)
	inputs, err := dependencyInputs(h, deps)
	if err != nil {
		return nil, err
	}
	if _, err := schedule.ValidateAndOrderDependencies(allEdges(tasks), deps, t.ID,
		schedule.WithAncestors(ancestorsUnder(h, parent)...),
		schedule.WithLabels(labeler(h)),
	); err != nil {
		return nil, err
	}
	res, err := schedule.ResolveDates(inputs, req.PlannedStart, req.PlannedFinish, req.PlannedDuration)
	if err != nil {
		return nil, err
	}
	applyResolution(t, res)
	if err := applyActuals(t, req.ActualStart, req.ActualFinish); err != nil {
		return nil, err
	}

	scope := repository.Scope{ProjectID: req.ProjectID, ParentID: req.ParentID}
	t.Number, err = Renumber(ctx, r.tasks, RenumberInsert, t.ID, Slot{}, Slot{Scope: scope, Number: req.Number})
	if err != nil {
		return nil, err
	}
	if err := r.tasks.Create(ctx, t); err != nil {
		return nil, err
	}
	if len(deps) > 0 {
		if err := r.deps.ReplaceForTask(ctx, t.ID, deps); err != nil {
			return nil, err
		}
	}
	t.Dependencies = deps
	return t, nil
}

func (s *taskService) Update(ctx context.Context, req UpdateTaskRequest) (task *domain.Task, err error) {
	startedAt := time.Now()
	fields := map[string]any{"task_id": req.ID}
	defer func() { observe(ctx, s.cfg.observer, "update-task", startedAt, fields, &err) }()

	current, err := s.tasks.GetByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	fields["project_id"] = current.ProjectID

	err = s.writer.run(ctx, current.ProjectID, func(ctx context.Context, r txRepos) error {
		project, err := r.projects.GetByID(ctx, current.ProjectID)
		if err != nil {
			return fmt.Errorf("loading project: %w", err)
		}
		tasks, err := loadTasksWithEdges(ctx, r, current.ProjectID)
		if err != nil {
			return err
		}
		h := schedule.NewHierarchy(tasks)
		t, ok := h.Task(req.ID)
		if !ok {
			return fmt.Errorf("task %s: %w", req.ID, repository.ErrNotFound)
		}

		if !t.IsLeaf() {
			if field := leafOnlyField(req); field != "" {
				return domain.NewValidationError(field, "cannot be edited on a task with children")
			}
		}
		if err := validateCompletion(req.CompletionPercent); err != nil {
			return err
		}

		var mv *moveTarget
		if req.Move != nil {
			mv, err = planMove(h, project, t, req.Move)
			if err != nil {
				return err
			}
		}

		deps := t.Dependencies
		depsChanged := req.Dependencies != nil && (len(*req.Dependencies) > 0 || len(t.Dependencies) > 0)
		if depsChanged {
			deps = ownedBy(t.ID, *req.Dependencies)
		}
		if depsChanged || (mv != nil && mv.reparent) {
			if err := validateSubtreeDependencies(h, tasks, t, deps, mv); err != nil {
				return err
			}
		}

		if depsChanged || req.PlannedStart != nil || req.PlannedFinish != nil || req.PlannedDuration != nil {
			inputs, err := dependencyInputs(h, deps)
			if err != nil {
				return err
			}
			start, finish, duration := mergePlanned(t, req.PlannedStart, req.PlannedFinish, req.PlannedDuration)
			res, err := schedule.ResolveDates(inputs, start, finish, duration)
			if err != nil {
				return err
			}
			applyResolution(t, res)
		}
		if err := applyActuals(t, req.ActualStart, req.ActualFinish); err != nil {
			return err
		}
		applyDescriptive(t, req)
		t.UpdatedBy = req.Actor
		t.UpdatedAt = s.cfg.now()

		if err := r.tasks.Update(ctx, t); err != nil {
			return err
		}
		if depsChanged {
			if err := r.deps.ReplaceForTask(ctx, t.ID, deps); err != nil {
				return err
			}
		}
		if mv != nil {
			if err := applyMove(ctx, r, h, t, mv); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, req.ID)
}

func (s *taskService) Remove(ctx context.Context, id, actor string) (err error) {
	startedAt := time.Now()
	fields := map[string]any{"task_id": id}
	defer func() { observe(ctx, s.cfg.observer, "remove-task", startedAt, fields, &err) }()

	current, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return err
	}
	fields["project_id"] = current.ProjectID

	return s.writer.run(ctx, current.ProjectID, func(ctx context.Context, r txRepos) error {
		t, err := r.tasks.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if t.ChildCount > 0 {
			return &domain.StructuralConflictError{
				Kind:    domain.ConflictHasChildren,
				Message: fmt.Sprintf("task has %d children; delete children first", t.ChildCount),
			}
		}
		dependent, err := r.deps.FirstDependent(ctx, id)
		switch {
		case err == nil:
			tasks, err := r.tasks.ListByProject(ctx, t.ProjectID)
			if err != nil {
				return err
			}
			return &domain.StructuralConflictError{
				Kind: domain.ConflictHasDependents,
				Message: fmt.Sprintf("task is a prerequisite of %s; remove that dependency first",
					labeler(schedule.NewHierarchy(tasks))(dependent.ID)),
			}
		case !errors.Is(err, repository.ErrNotFound):
			return err
		}

		scope := repository.Scope{ProjectID: t.ProjectID, ParentID: t.ParentID}
		if _, err := Renumber(ctx, r.tasks, RenumberRemove, id, Slot{Scope: scope, Number: t.Number}, Slot{}); err != nil {
			return err
		}
		if err := r.tasks.SoftDelete(ctx, id, actor, s.cfg.now()); err != nil {
			return err
		}
		return r.deps.DeleteForTask(ctx, id)
	})
}

func (s *taskService) Get(ctx context.Context, id string) (*domain.Task, error) {
	t, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	t.Dependencies, err = s.deps.ListByTask(ctx, id)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *taskService) ListTree(ctx context.Context, projectID string) (tree *TaskTree, err error) {
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		r := reposFor(tx)
		project, err := r.projects.GetByID(ctx, projectID)
		if err != nil {
			return err
		}
		tasks, err := loadTasksWithEdges(ctx, r, projectID)
		if err != nil {
			return err
		}
		h := schedule.NewHierarchy(tasks)
		tree = &TaskTree{
			Project: project,
			Tasks:   outline(h, nil),
			Codes:   h.WBSCodes(),
			Edges:   allEdges(tasks),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tree, nil
}

// CheckDependencies validates a prospective dependency set and resolves the
// dates it implies without writing anything.
func (s *taskService) CheckDependencies(ctx context.Context, req CheckDependenciesRequest) (check *DependencyCheck, err error) {
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		r := reposFor(tx)
		tasks, err := loadTasksWithEdges(ctx, r, req.ProjectID)
		if err != nil {
			return err
		}
		h := schedule.NewHierarchy(tasks)

		owner := req.TaskID
		var ancestors []string
		start, finish, duration := req.PlannedStart, req.PlannedFinish, req.PlannedDuration
		if owner != "" {
			t, ok := h.Task(owner)
			if !ok {
				return fmt.Errorf("task %s: %w", owner, repository.ErrNotFound)
			}
			if !t.IsLeaf() && len(req.Dependencies) > 0 {
				return domain.NewValidationError("dependencies", "cannot be edited on a task with children")
			}
			ancestors = h.Ancestors(owner)
			start, finish, duration = mergePlanned(t, start, finish, duration)
		} else {
			owner = "(new task)"
			if req.ParentID != nil {
				parent, ok := h.Task(*req.ParentID)
				if !ok {
					return domain.NewValidationError("parent_id", "parent task %s not found in project", *req.ParentID)
				}
				ancestors = ancestorsUnder(h, parent)
			}
		}

		deps := ownedBy(owner, req.Dependencies)
		inputs, err := dependencyInputs(h, deps)
		if err != nil {
			return err
		}
		label := labeler(h)
		order, err := schedule.ValidateAndOrderDependencies(allEdges(tasks), deps, owner,
			schedule.WithAncestors(ancestors...),
			schedule.WithLabels(func(id string) string {
				if id == owner && req.TaskID == "" {
					return owner
				}
				return label(id)
			}),
		)
		if err != nil {
			return err
		}
		res, err := schedule.ResolveDates(inputs, start, finish, duration)
		if err != nil {
			return err
		}
		check = &DependencyCheck{Order: order, Resolution: res}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return check, nil
}

// leafOnlyField names the first supplied field that only leaf tasks accept.
func leafOnlyField(req UpdateTaskRequest) string {
	switch {
	case req.PlannedStart != nil:
		return "planned_start"
	case req.PlannedFinish != nil:
		return "planned_finish"
	case req.PlannedDuration != nil:
		return "planned_duration"
	case req.ActualStart != nil:
		return "actual_start"
	case req.ActualFinish != nil:
		return "actual_finish"
	case req.EstimatedCost != nil:
		return "estimated_cost"
	case req.ActualCost != nil:
		return "actual_cost"
	case req.CompletionPercent != nil:
		return "completion_pct"
	case req.Dependencies != nil && len(*req.Dependencies) > 0:
		return "dependencies"
	}
	return ""
}

func applyDescriptive(t *domain.Task, req UpdateTaskRequest) {
	if req.Title != nil && strings.TrimSpace(*req.Title) != "" {
		t.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.ResponsibleOrg != nil {
		t.ResponsibleOrg = *req.ResponsibleOrg
	}
	if req.IsMilestone != nil {
		t.IsMilestone = *req.IsMilestone
	}
	if req.EstimatedCost != nil {
		t.EstimatedCost = req.EstimatedCost
	}
	if req.ActualCost != nil {
		t.ActualCost = req.ActualCost
	}
	if req.CompletionPercent != nil {
		t.CompletionPercent = req.CompletionPercent
	}
}

// outline lists the subtree under parentID in preorder.
func outline(h *schedule.Hierarchy, parentID *string) []*domain.Task {
	var out []*domain.Task
	for _, c := range h.Children(parentID) {
		out = append(out, c)
		id := c.ID
		out = append(out, outline(h, &id)...)
	}
	return out
}
