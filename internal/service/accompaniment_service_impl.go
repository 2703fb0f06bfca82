package service

import (
	"context"
	"time"

	"github.com/alexanderramin/tempo/internal/db"
	"github.com/alexanderramin/tempo/internal/domain"
	"github.com/alexanderramin/tempo/internal/lock"
	"github.com/alexanderramin/tempo/internal/repository"
	"github.com/google/uuid"
)

type accompanimentService struct {
	accompaniments repository.AccompanimentRepo
	writer         *structuralWriter
	cfg            settings
}

func NewAccompanimentService(accompaniments repository.AccompanimentRepo, uow db.UnitOfWork, locker lock.Locker, opts ...Option) AccompanimentService {
	cfg := newSettings(opts)
	return &accompanimentService{
		accompaniments: accompaniments,
		writer: &structuralWriter{
			uow:        uow,
			locker:     locker,
			recomputer: &recomputer{cfg: cfg},
			timeout:    cfg.timeout,
		},
		cfg: cfg,
	}
}

// Record stores a follow-up and refreshes the project rollup, so a paused
// schedule shows as Paralisado right away.
func (s *accompanimentService) Record(ctx context.Context, a *domain.Accompaniment) (err error) {
	startedAt := time.Now()
	defer func() {
		observe(ctx, s.cfg.observer, "record-accompaniment", startedAt,
			map[string]any{"project_id": a.ProjectID, "paused": a.SchedulePaused}, &err)
	}()

	if a.ProjectID == "" {
		return domain.NewValidationError("project_id", "is required")
	}
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	now := s.cfg.now()
	if a.RecordedAt.IsZero() {
		a.RecordedAt = now
	}
	a.CreatedAt = now

	return s.writer.run(ctx, a.ProjectID, func(ctx context.Context, r txRepos) error {
		if _, err := r.projects.GetByID(ctx, a.ProjectID); err != nil {
			return err
		}
		return r.accompaniments.Create(ctx, a)
	})
}

func (s *accompanimentService) ListByProject(ctx context.Context, projectID string) ([]*domain.Accompaniment, error) {
	return s.accompaniments.ListByProject(ctx, projectID)
}
