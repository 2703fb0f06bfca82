package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/alexanderramin/tempo/internal/db"
	"github.com/alexanderramin/tempo/internal/domain"
	"github.com/alexanderramin/tempo/internal/lock"
	"github.com/alexanderramin/tempo/internal/repository"
	"github.com/google/uuid"
)

type projectService struct {
	projects repository.ProjectRepo
	writer   *structuralWriter
	cfg      settings
}

func NewProjectService(projects repository.ProjectRepo, uow db.UnitOfWork, locker lock.Locker, opts ...Option) ProjectService {
	cfg := newSettings(opts)
	return &projectService{
		projects: projects,
		writer: &structuralWriter{
			uow:        uow,
			locker:     locker,
			recomputer: &recomputer{cfg: cfg},
			timeout:    cfg.timeout,
		},
		cfg: cfg,
	}
}

func (s *projectService) Create(ctx context.Context, p *domain.Project) error {
	if err := prepareProject(p, s.cfg.now()); err != nil {
		return err
	}
	return s.projects.Create(ctx, p)
}

// prepareProject fills defaults and validates a new project.
func prepareProject(p *domain.Project, now time.Time) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.ShortID = strings.ToUpper(p.ShortID)
	if err := validateProjectSettings(p); err != nil {
		return err
	}
	if p.MaxTaskDepth == 0 {
		p.MaxTaskDepth = domain.DefaultMaxTaskDepth
	}
	if p.ScheduleStatus == "" {
		p.ScheduleStatus = domain.ScheduleOnTime
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

func validateProjectSettings(p *domain.Project) error {
	if p.ShortID != "" {
		if err := p.ValidateShortID(); err != nil {
			return domain.NewValidationError("short_id", "%s", err.Error())
		}
	}
	if strings.TrimSpace(p.Name) == "" {
		return domain.NewValidationError("name", "is required")
	}
	if p.PlannedDuration != nil && *p.PlannedDuration <= 0 {
		return domain.NewValidationError("planned_duration", "must be positive, got %d", *p.PlannedDuration)
	}
	if p.TolerancePct < 0 || p.TolerancePct > 100 {
		return domain.NewValidationError("tolerance_pct", "must be between 0 and 100, got %d", p.TolerancePct)
	}
	if p.MaxTaskDepth < 0 {
		return domain.NewValidationError("max_task_depth", "must be positive, got %d", p.MaxTaskDepth)
	}
	return nil
}

func (s *projectService) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	return s.projects.GetByID(ctx, id)
}

func (s *projectService) Resolve(ctx context.Context, ref string) (*domain.Project, error) {
	p, err := s.projects.GetByShortID(ctx, ref)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	return s.projects.GetByID(ctx, ref)
}

func (s *projectService) List(ctx context.Context) ([]*domain.Project, error) {
	return s.projects.List(ctx)
}

// Update writes project settings and refreshes the rollup, since tolerance
// and planned duration feed the schedule status.
func (s *projectService) Update(ctx context.Context, p *domain.Project) (err error) {
	startedAt := time.Now()
	defer func() {
		observe(ctx, s.cfg.observer, "update-project", startedAt, map[string]any{"project_id": p.ID}, &err)
	}()

	if err := validateProjectSettings(p); err != nil {
		return err
	}
	if p.MaxTaskDepth == 0 {
		p.MaxTaskDepth = domain.DefaultMaxTaskDepth
	}
	return s.writer.run(ctx, p.ID, func(ctx context.Context, r txRepos) error {
		tasks, err := r.tasks.ListByProject(ctx, p.ID)
		if err != nil {
			return err
		}
		for _, t := range tasks {
			if t.Level > p.MaxTaskDepth {
				return &domain.StructuralConflictError{
					Kind:    domain.ConflictDepthExceeded,
					Message: "existing tasks are deeper than the new maximum depth",
				}
			}
		}
		p.UpdatedAt = s.cfg.now()
		return r.projects.Update(ctx, p)
	})
}

// Finish records the project's actual finish, which marks it Concluído.
func (s *projectService) Finish(ctx context.Context, id string, at time.Time) (err error) {
	startedAt := time.Now()
	defer func() {
		observe(ctx, s.cfg.observer, "finish-project", startedAt, map[string]any{"project_id": id}, &err)
	}()

	return s.writer.run(ctx, id, func(ctx context.Context, r txRepos) error {
		p, err := r.projects.GetByID(ctx, id)
		if err != nil {
			return err
		}
		p.ActualFinish = domain.DatePtr(at)
		p.UpdatedAt = s.cfg.now()
		return r.projects.Update(ctx, p)
	})
}
