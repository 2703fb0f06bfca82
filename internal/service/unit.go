package service

import (
	"context"
	"time"

	"github.com/alexanderramin/tempo/internal/db"
	"github.com/alexanderramin/tempo/internal/lock"
	"github.com/alexanderramin/tempo/internal/repository"
)

// txRepos are the repositories bound to one transaction.
type txRepos struct {
	projects       repository.ProjectRepo
	tasks          repository.TaskRepo
	deps           repository.DependencyRepo
	accompaniments repository.AccompanimentRepo
}

func reposFor(tx db.DBTX) txRepos {
	return txRepos{
		projects:       repository.NewSQLiteProjectRepo(tx),
		tasks:          repository.NewSQLiteTaskRepo(tx),
		deps:           repository.NewSQLiteDependencyRepo(tx),
		accompaniments: repository.NewSQLiteAccompanimentRepo(tx),
	}
}

// structuralWriter runs project mutations under the project lock inside one
// serializable transaction, and refreshes the project's projections before
// committing.
type structuralWriter struct {
	uow        db.UnitOfWork
	locker     lock.Locker
	recomputer *recomputer
	timeout    time.Duration
}

func (w *structuralWriter) run(ctx context.Context, projectID string, fn func(ctx context.Context, r txRepos) error) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	release, err := w.locker.Acquire(ctx, projectID)
	if err != nil {
		return err
	}
	defer release()

	return w.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		r := reposFor(tx)
		if err := fn(ctx, r); err != nil {
			return err
		}
		_, err := w.recomputer.recompute(ctx, r, projectID, "write")
		return err
	})
}
