package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/alexanderramin/tempo/internal/db"
	"github.com/alexanderramin/tempo/internal/domain"
	"github.com/alexanderramin/tempo/internal/lock"
	"github.com/alexanderramin/tempo/internal/repository"
	"github.com/alexanderramin/tempo/internal/testutil"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	db             *sql.DB
	uow            db.UnitOfWork
	locker         *lock.KeyedMutex
	projects       repository.ProjectRepo
	tasks          repository.TaskRepo
	deps           repository.DependencyRepo
	accompaniments repository.AccompanimentRepo
	today          time.Time
}

func newTestEnv(t *testing.T, today string) *testEnv {
	t.Helper()
	return newEnvOn(t, testutil.NewTestDB(t), today)
}

func newEnvOn(t *testing.T, database *sql.DB, today string) *testEnv {
	t.Helper()
	return &testEnv{
		db:             database,
		uow:            testutil.NewTestUoW(database),
		locker:         lock.NewKeyedMutex(),
		projects:       repository.NewSQLiteProjectRepo(database),
		tasks:          repository.NewSQLiteTaskRepo(database),
		deps:           repository.NewSQLiteDependencyRepo(database),
		accompaniments: repository.NewSQLiteAccompanimentRepo(database),
		today:          testutil.Date(today),
	}
}

func (e *testEnv) opts() []Option {
	return []Option{WithClock(func() time.Time { return e.today })}
}

func (e *testEnv) taskService() TaskService {
	return NewTaskService(e.tasks, e.deps, e.uow, e.locker, e.opts()...)
}

func (e *testEnv) projectService() ProjectService {
	return NewProjectService(e.projects, e.uow, e.locker, e.opts()...)
}

func (e *testEnv) projectionService() ProjectionService {
	return NewProjectionService(e.uow, e.opts()...)
}

func (e *testEnv) seedProject(t *testing.T, opts ...testutil.ProjectOption) *domain.Project {
	t.Helper()
	p := testutil.NewTestProject("Obra", opts...)
	require.NoError(t, e.projects.Create(context.Background(), p))
	return p
}

// addTask creates a task through the service and fails the test on error.
func addTask(t *testing.T, svc TaskService, req CreateTaskRequest) *domain.Task {
	t.Helper()
	if req.Actor == "" {
		req.Actor = "test"
	}
	task, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	return task
}

func codesOf(t *testing.T, svc TaskService, projectID string) map[string]string {
	t.Helper()
	tree, err := svc.ListTree(context.Background(), projectID)
	require.NoError(t, err)
	byTitle := make(map[string]string, len(tree.Tasks))
	for _, task := range tree.Tasks {
		byTitle[task.Title] = tree.Codes[task.ID]
	}
	return byTitle
}

func intPtr(v int) *int { return &v }

func strPtr(s string) *string { return &s }
