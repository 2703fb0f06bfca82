package service

import (
	"context"
	"time"

	"github.com/alexanderramin/tempo/internal/domain"
	"github.com/alexanderramin/tempo/internal/importer"
	"github.com/alexanderramin/tempo/internal/schedule"
)

type ProjectService interface {
	Create(ctx context.Context, p *domain.Project) error
	GetByID(ctx context.Context, id string) (*domain.Project, error)
	// Resolve accepts a short ID (case-insensitive) or a full ID.
	Resolve(ctx context.Context, ref string) (*domain.Project, error)
	List(ctx context.Context) ([]*domain.Project, error)
	Update(ctx context.Context, p *domain.Project) error
	Finish(ctx context.Context, id string, at time.Time) error
}

type AccompanimentService interface {
	Record(ctx context.Context, a *domain.Accompaniment) error
	ListByProject(ctx context.Context, projectID string) ([]*domain.Accompaniment, error)
}

// CreateTaskRequest describes a new task. Dependencies are owned by the new
// task; their TaskID is ignored.
type CreateTaskRequest struct {
	ProjectID string
	ParentID  *string
	// Level is optional; zero derives it from the parent.
	Level int
	// Number is the sibling position; zero appends.
	Number int

	Title          string
	Description    string
	ResponsibleOrg string
	IsMilestone    bool

	PlannedStart    *time.Time
	PlannedFinish   *time.Time
	PlannedDuration *int

	ActualStart  *time.Time
	ActualFinish *time.Time

	EstimatedCost *float64
	Dependencies  []domain.Dependency

	Actor string
}

// TaskMove places a task under ParentID (nil for the root level) at Number
// (zero appends).
type TaskMove struct {
	ParentID *string
	Number   int
}

// UpdateTaskRequest carries the fields to change. Nil fields are left as
// they are. A non-nil Dependencies replaces the whole edge set, so an empty
// slice clears it.
type UpdateTaskRequest struct {
	ID string

	Title          *string
	Description    *string
	ResponsibleOrg *string
	IsMilestone    *bool

	PlannedStart    *time.Time
	PlannedFinish   *time.Time
	PlannedDuration *int

	ActualStart  *time.Time
	ActualFinish *time.Time

	EstimatedCost     *float64
	ActualCost        *float64
	CompletionPercent *float64

	Dependencies *[]domain.Dependency
	Move         *TaskMove

	Actor string
}

// TaskTree is the flattened, numbered task list of a project with its edges.
type TaskTree struct {
	Project *domain.Project
	// Tasks are in outline order: each parent precedes its children.
	Tasks []*domain.Task
	Codes map[string]string
	Edges []domain.Dependency
}

// CheckDependenciesRequest describes a prospective dependency set for an
// existing task (TaskID set) or a task not yet created (ParentID set or nil).
type CheckDependenciesRequest struct {
	ProjectID string
	TaskID    string
	ParentID  *string

	Dependencies []domain.Dependency

	PlannedStart    *time.Time
	PlannedFinish   *time.Time
	PlannedDuration *int
}

// DependencyCheck is the outcome of a dry-run dependency check.
type DependencyCheck struct {
	Order      *schedule.Order
	Resolution *schedule.Resolution
}

type TaskService interface {
	Create(ctx context.Context, req CreateTaskRequest) (*domain.Task, error)
	Update(ctx context.Context, req UpdateTaskRequest) (*domain.Task, error)
	Remove(ctx context.Context, id, actor string) error
	Get(ctx context.Context, id string) (*domain.Task, error)
	ListTree(ctx context.Context, projectID string) (*TaskTree, error)
	CheckDependencies(ctx context.Context, req CheckDependenciesRequest) (*DependencyCheck, error)
}

// RecomputeResult summarizes one projection run.
type RecomputeResult struct {
	ProjectID     string
	TasksWritten  int
	RollupChanged bool
	Rollup        domain.Rollup
	Warnings      []schedule.Warning
}

type ProjectionService interface {
	RecomputeProjections(ctx context.Context, projectID string) (*RecomputeResult, error)
}

// SweepFailure records a project the sweep could not recompute.
type SweepFailure struct {
	ProjectID string
	Err       error
}

// SweepResult summarizes one sweep tick.
type SweepResult struct {
	Recomputed []string
	Failed     []SweepFailure
}

type SweepService interface {
	RunOnce(ctx context.Context) (*SweepResult, error)
	// Run sweeps immediately and then every interval until ctx is done.
	Run(ctx context.Context, interval time.Duration) error
}

// ImportResult holds the outcome of a project import.
type ImportResult struct {
	Project         *domain.Project
	TaskCount       int
	DependencyCount int
}

type ImportService interface {
	ImportProject(ctx context.Context, filePath string) (*ImportResult, error)
	ImportProjectFromSchema(ctx context.Context, schema *importer.ImportSchema) (*ImportResult, error)
}
