package service

import (
	"context"
	"fmt"
	"time"

	"github.com/alexanderramin/tempo/internal/db"
	"github.com/alexanderramin/tempo/internal/domain"
	"github.com/alexanderramin/tempo/internal/importer"
	"github.com/alexanderramin/tempo/internal/lock"
)

type importService struct {
	writer *structuralWriter
	tasks  *taskService
	cfg    settings
}

func NewImportService(uow db.UnitOfWork, locker lock.Locker, opts ...Option) ImportService {
	cfg := newSettings(opts)
	return &importService{
		writer: &structuralWriter{
			uow:        uow,
			locker:     locker,
			recomputer: &recomputer{cfg: cfg},
			timeout:    cfg.timeout,
		},
		tasks: &taskService{cfg: cfg},
		cfg:   cfg,
	}
}

func (s *importService) ImportProject(ctx context.Context, filePath string) (*ImportResult, error) {
	schema, err := importer.LoadImportSchema(filePath)
	if err != nil {
		return nil, fmt.Errorf("loading import file: %w", err)
	}
	return s.importSchema(ctx, schema)
}

func (s *importService) ImportProjectFromSchema(ctx context.Context, schema *importer.ImportSchema) (*ImportResult, error) {
	return s.importSchema(ctx, schema)
}

// importSchema creates the project and every task in one unit of work, so a
// failing task leaves nothing behind.
func (s *importService) importSchema(ctx context.Context, schema *importer.ImportSchema) (result *ImportResult, err error) {
	startedAt := time.Now()
	fields := map[string]any{"tasks": len(schema.Tasks), "dependencies": len(schema.Dependencies)}
	defer func() { observe(ctx, s.cfg.observer, "import-project", startedAt, fields, &err) }()

	if errs := importer.ValidateImportSchema(schema); len(errs) > 0 {
		return nil, formatValidationErrors(errs)
	}

	plan, err := importer.Convert(schema)
	if err != nil {
		return nil, fmt.Errorf("converting import schema: %w", err)
	}
	if err := prepareProject(plan.Project, s.cfg.now()); err != nil {
		return nil, err
	}
	fields["project_id"] = plan.Project.ID

	depCount := 0
	err = s.writer.run(ctx, plan.Project.ID, func(ctx context.Context, r txRepos) error {
		if err := r.projects.Create(ctx, plan.Project); err != nil {
			return fmt.Errorf("creating project: %w", err)
		}

		ids := make(map[string]string, len(plan.Tasks))
		created := make(map[string]*domain.Task, len(plan.Tasks))
		for _, pt := range plan.Tasks {
			req := createRequestFor(plan.Project.ID, pt, ids)
			t, err := s.tasks.createTx(ctx, r, req)
			if err != nil {
				return fmt.Errorf("creating task %q: %w", pt.Ref, err)
			}
			ids[pt.Ref] = t.ID
			created[pt.Ref] = t
			depCount += len(pt.Dependencies)
		}

		// Tasks were created parents and prerequisites first; restore the
		// sibling numbering the file declared.
		for _, pt := range plan.Tasks {
			t := created[pt.Ref]
			if t.Number == pt.Number {
				continue
			}
			if err := r.tasks.SetPlacement(ctx, t.ID, t.ParentID, t.Level, pt.Number); err != nil {
				return fmt.Errorf("numbering task %q: %w", pt.Ref, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &ImportResult{
		Project:         plan.Project,
		TaskCount:       len(plan.Tasks),
		DependencyCount: depCount,
	}, nil
}

func createRequestFor(projectID string, pt importer.PlannedTask, ids map[string]string) CreateTaskRequest {
	t := pt.Task
	req := CreateTaskRequest{
		ProjectID:       projectID,
		Title:           t.Title,
		Description:     t.Description,
		ResponsibleOrg:  t.ResponsibleOrg,
		IsMilestone:     t.IsMilestone,
		PlannedStart:    t.PlannedStart,
		PlannedFinish:   t.PlannedFinish,
		PlannedDuration: t.PlannedDuration,
		ActualStart:     t.ActualStart,
		ActualFinish:    t.ActualFinish,
		EstimatedCost:   t.EstimatedCost,
		Actor:           "import",
	}
	if pt.ParentRef != "" {
		parentID := ids[pt.ParentRef]
		req.ParentID = &parentID
	}
	for _, d := range pt.Dependencies {
		req.Dependencies = append(req.Dependencies, domain.Dependency{
			PrerequisiteID: ids[d.PrerequisiteRef],
			Type:           d.Type,
			Latency:        d.Latency,
		})
	}
	return req
}

func formatValidationErrors(errs []error) error {
	msg := fmt.Sprintf("import validation failed (%d errors):", len(errs))
	for _, e := range errs {
		msg += "\n  - " + e.Error()
	}
	return domain.NewValidationError("", "%s", msg)
}
