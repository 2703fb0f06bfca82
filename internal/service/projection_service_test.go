package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alexanderramin/tempo/internal/domain"
	"github.com/alexanderramin/tempo/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectionService_SecondRecomputeWritesNothing(t *testing.T) {
	env := newTestEnv(t, "2024-01-01")
	svc := env.taskService()
	proj := env.seedProject(t, testutil.WithProjectDuration(30))

	a := addTask(t, svc, CreateTaskRequest{ProjectID: proj.ID, Title: "A", PlannedStart: testutil.DatePtr("2024-01-01"), PlannedDuration: intPtr(5)})
	addTask(t, svc, CreateTaskRequest{
		ProjectID:       proj.ID,
		Title:           "B",
		PlannedDuration: intPtr(3),
		Dependencies:    []domain.Dependency{{PrerequisiteID: a.ID, Type: domain.FinishToStart, Latency: 2}},
	})

	// Any write fails the run.
	failUoW := &testutil.FailOnNthExecUoW{DB: env.db, FailOn: 1, Err: fmt.Errorf("unexpected write")}
	res, err := NewProjectionService(failUoW, env.opts()...).RecomputeProjections(context.Background(), proj.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, res.TasksWritten)
	assert.False(t, res.RollupChanged)
	assert.Empty(t, res.Warnings)
}

func TestProjectionService_DependentOfParentFollowsRollupInSameWrite(t *testing.T) {
	env := newTestEnv(t, "2024-01-01")
	svc := env.taskService()
	proj := env.seedProject(t, testutil.WithProjectDuration(30))

	parent := addTask(t, svc, CreateTaskRequest{ProjectID: proj.ID, Title: "Fundação",
		PlannedStart: testutil.DatePtr("2024-01-01"), PlannedFinish: testutil.DatePtr("2024-01-10")})
	child := addTask(t, svc, CreateTaskRequest{ProjectID: proj.ID, ParentID: &parent.ID, Title: "Escavação",
		PlannedStart: testutil.DatePtr("2024-01-01"), PlannedDuration: intPtr(10)})
	dependent := addTask(t, svc, CreateTaskRequest{
		ProjectID:       proj.ID,
		Title:           "Estrutura",
		PlannedDuration: intPtr(3),
		Dependencies:    []domain.Dependency{{PrerequisiteID: parent.ID, Type: domain.FinishToStart}},
	})

	// Stretching the child moves the parent's rollup, and the dependent must
	// follow within the same write.
	_, err := svc.Update(context.Background(), UpdateTaskRequest{ID: child.ID, PlannedDuration: intPtr(15), Actor: "test"})
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), dependent.ID)
	require.NoError(t, err)
	assert.Equal(t, testutil.Date("2024-01-15"), *got.ProjectedStart)
	assert.Equal(t, testutil.Date("2024-01-17"), *got.ProjectedFinish)

	failUoW := &testutil.FailOnNthExecUoW{DB: env.db, FailOn: 1, Err: fmt.Errorf("unexpected write")}
	res, err := NewProjectionService(failUoW, env.opts()...).RecomputeProjections(context.Background(), proj.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, res.TasksWritten)
	assert.False(t, res.RollupChanged)
	assert.Zero(t, failUoW.Execs())
}

func TestProjectionService_TodayMovesUnstartedTasks(t *testing.T) {
	env := newTestEnv(t, "2024-01-01")
	svc := env.taskService()
	proj := env.seedProject(t, testutil.WithProjectDuration(10), testutil.WithTolerance(10))

	a := addTask(t, svc, CreateTaskRequest{ProjectID: proj.ID, Title: "A", PlannedStart: testutil.DatePtr("2024-01-01"), PlannedDuration: intPtr(5)})

	env.today = testutil.Date("2024-01-04")
	res, err := env.projectionService().RecomputeProjections(context.Background(), proj.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.TasksWritten)
	assert.True(t, res.RollupChanged)
	assert.Equal(t, domain.ScheduleLate, res.Rollup.Status)
	assert.Equal(t, 3, *res.Rollup.Delay)

	got, err := svc.Get(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, testutil.Date("2024-01-04"), *got.ProjectedStart)
	assert.Equal(t, testutil.Date("2024-01-08"), *got.ProjectedFinish)
	assert.Equal(t, 3, *got.ProjectedDelay)
}

func TestProjectionService_WarnsOnUnschedulableTask(t *testing.T) {
	env := newTestEnv(t, "2024-01-01")
	svc := env.taskService()
	proj := env.seedProject(t)

	a := addTask(t, svc, CreateTaskRequest{ProjectID: proj.ID, Title: "A"})

	res, err := env.projectionService().RecomputeProjections(context.Background(), proj.ID)
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, a.ID, res.Warnings[0].TaskID)
}

func TestProjectionService_PausedAccompanimentWins(t *testing.T) {
	env := newTestEnv(t, "2024-01-01")
	svc := env.taskService()
	proj := env.seedProject(t, testutil.WithProjectDuration(10))
	addTask(t, svc, CreateTaskRequest{ProjectID: proj.ID, Title: "A", PlannedStart: testutil.DatePtr("2024-01-01"), PlannedDuration: intPtr(5)})

	acc := NewAccompanimentService(env.accompaniments, env.uow, env.locker, env.opts()...)
	require.NoError(t, acc.Record(context.Background(), &domain.Accompaniment{
		ProjectID:      proj.ID,
		RecordedAt:     time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		SchedulePaused: true,
	}))

	stored, err := env.projects.GetByID(context.Background(), proj.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SchedulePaused, stored.ScheduleStatus)

	require.NoError(t, acc.Record(context.Background(), &domain.Accompaniment{
		ProjectID:  proj.ID,
		RecordedAt: time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC),
	}))
	stored, err = env.projects.GetByID(context.Background(), proj.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ScheduleOnTime, stored.ScheduleStatus)

	list, err := acc.ListByProject(context.Background(), proj.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestAccompanimentService_UnknownProject(t *testing.T) {
	env := newTestEnv(t, "2024-01-01")
	acc := NewAccompanimentService(env.accompaniments, env.uow, env.locker, env.opts()...)

	err := acc.Record(context.Background(), &domain.Accompaniment{ProjectID: "missing"})
	require.Error(t, err)
}
