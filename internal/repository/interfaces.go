package repository

import (
	"context"
	"time"

	"github.com/alexanderramin/tempo/internal/domain"
)

type ProjectRepo interface {
	Create(ctx context.Context, p *domain.Project) error
	GetByID(ctx context.Context, id string) (*domain.Project, error)
	GetByShortID(ctx context.Context, shortID string) (*domain.Project, error)
	List(ctx context.Context) ([]*domain.Project, error)
	Update(ctx context.Context, p *domain.Project) error
	UpdateRollup(ctx context.Context, id string, r domain.Rollup, at time.Time) error
	ListStale(ctx context.Context, now time.Time, limit int) ([]*domain.Project, error)
	SetNextRecompute(ctx context.Context, id string, at time.Time) error
}

// ProjectionUpdate carries the cached projection for one task.
type ProjectionUpdate struct {
	TaskID string
	Start  *time.Time
	Finish *time.Time
	Delay  *int
}

// Scope identifies a sibling set: the children of ParentID within a project,
// or the project's root tasks when ParentID is nil.
type Scope struct {
	ProjectID string
	ParentID  *string
}

type TaskRepo interface {
	Create(ctx context.Context, t *domain.Task) error
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	ListByProject(ctx context.Context, projectID string) ([]*domain.Task, error)
	ListChildren(ctx context.Context, scope Scope) ([]*domain.Task, error)
	Update(ctx context.Context, t *domain.Task) error
	SetPlacement(ctx context.Context, id string, parentID *string, level, number int) error
	SoftDelete(ctx context.Context, id, actor string, at time.Time) error
	CountSiblings(ctx context.Context, scope Scope) (int, error)
	ShiftSiblings(ctx context.Context, scope Scope, from, delta int, excludeID string) error
	UpdateProjections(ctx context.Context, updates []ProjectionUpdate) error
	UpdateTopoPositions(ctx context.Context, projectID string, start, finish map[string]int) error
}

type DependencyRepo interface {
	ListByProject(ctx context.Context, projectID string) ([]domain.Dependency, error)
	ListByTask(ctx context.Context, taskID string) ([]domain.Dependency, error)
	ReplaceForTask(ctx context.Context, taskID string, deps []domain.Dependency) error
	DeleteForTask(ctx context.Context, taskID string) error
	FirstDependent(ctx context.Context, prerequisiteID string) (*domain.Task, error)
}

type AccompanimentRepo interface {
	Create(ctx context.Context, a *domain.Accompaniment) error
	Latest(ctx context.Context, projectID string) (*domain.Accompaniment, error)
	ListByProject(ctx context.Context, projectID string) ([]*domain.Accompaniment, error)
}
