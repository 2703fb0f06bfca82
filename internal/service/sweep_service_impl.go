package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/alexanderramin/tempo/internal/db"
	"github.com/alexanderramin/tempo/internal/domain"
	"github.com/alexanderramin/tempo/internal/repository"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

type sweepService struct {
	projects   repository.ProjectRepo
	uow        db.UnitOfWork
	recomputer *recomputer
	cfg        settings
	group      singleflight.Group
}

// NewSweepService recomputes projects whose projections went stale because
// the date moved on. Each project runs in its own transaction; a failing
// project is logged and retried on the next tick.
func NewSweepService(projects repository.ProjectRepo, uow db.UnitOfWork, opts ...Option) SweepService {
	cfg := newSettings(opts)
	return &sweepService{
		projects:   projects,
		uow:        uow,
		recomputer: &recomputer{cfg: cfg},
		cfg:        cfg,
	}
}

// RunOnce processes one batch of stale projects. Overlapping calls share a
// single pass.
func (s *sweepService) RunOnce(ctx context.Context) (*SweepResult, error) {
	v, err, _ := s.group.Do("sweep", func() (any, error) {
		return s.sweep(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*SweepResult), nil
}

func (s *sweepService) sweep(ctx context.Context) (result *SweepResult, err error) {
	startedAt := time.Now()
	fields := map[string]any{"batch_size": s.cfg.batchSize}
	defer func() {
		if result != nil {
			fields["recomputed"] = len(result.Recomputed)
			fields["failed"] = len(result.Failed)
		}
		observe(ctx, s.cfg.observer, "sweep", startedAt, fields, &err)
	}()

	now := s.cfg.now()
	stale, err := s.projects.ListStale(ctx, now, s.cfg.batchSize)
	if err != nil {
		return nil, err
	}

	result = &SweepResult{}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.concurrency)
	for _, p := range stale {
		g.Go(func() error {
			perr := s.refresh(gctx, p.ID, now)
			mu.Lock()
			defer mu.Unlock()
			if perr != nil {
				sweepProjects.WithLabelValues("failed").Inc()
				s.cfg.logger.ErrorContext(gctx, "sweep recompute failed", "project_id", p.ID, "error", perr)
				result.Failed = append(result.Failed, SweepFailure{ProjectID: p.ID, Err: perr})
				return nil
			}
			sweepProjects.WithLabelValues("recomputed").Inc()
			result.Recomputed = append(result.Recomputed, p.ID)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// refresh recomputes one project and schedules its next run for the
// following midnight, when today's date changes the projections again.
func (s *sweepService) refresh(ctx context.Context, projectID string, now time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.timeout)
	defer cancel()

	return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		r := reposFor(tx)
		if _, err := s.recomputer.recompute(ctx, r, projectID, "sweep"); err != nil {
			return err
		}
		return r.projects.SetNextRecompute(ctx, projectID, domain.AddDays(now, 1))
	})
}

func (s *sweepService) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		res, err := s.RunOnce(ctx)
		switch {
		case errors.Is(err, context.Canceled):
			return nil
		case err != nil:
			s.cfg.logger.ErrorContext(ctx, "sweep failed", "error", err)
		case len(res.Recomputed) > 0 || len(res.Failed) > 0:
			s.cfg.logger.InfoContext(ctx, "sweep finished",
				"recomputed", len(res.Recomputed), "failed", len(res.Failed))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
