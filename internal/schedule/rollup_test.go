package schedule

import (
	"testing"

	"github.com/alexanderramin/tempo/internal/domain"
	"github.com/alexanderramin/tempo/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rollupFixture(projectedFinish string) ([]*domain.Task, map[string]Projection) {
	p := testutil.NewTestTask(project, "P", testutil.WithPlanned("2024-01-01", 32))
	child := testutil.NewTestTask(project, "child", testutil.WithParent(p), testutil.WithPlanned("2024-01-01", 32))
	other := testutil.NewTestTask(project, "other", testutil.WithNumber(2), testutil.WithPlanned("2024-01-01", 10))
	projections := map[string]Projection{
		p.ID:     {Finish: testutil.DatePtr(projectedFinish)},
		child.ID: {Finish: testutil.DatePtr("2024-12-31")},
		other.ID: {Finish: testutil.DatePtr("2024-01-10")},
	}
	return []*domain.Task{p, child, other}, projections
}

// 9 days late on a 60-day plan with 10% tolerance is late.
func TestProjectRollup_Late(t *testing.T) {
	proj := testutil.NewTestProject("Rollup", testutil.WithProjectDuration(60), testutil.WithTolerance(10))
	tasks, projections := rollupFixture("2024-02-10")

	r := ProjectRollup(proj, tasks, projections, false)
	require.NotNil(t, r.Delay)
	assert.Equal(t, 9, *r.Delay, "only level-1 tasks count")
	assertDate(t, "2024-02-10", r.ProjectedFinish)
	require.NotNil(t, r.LatePct)
	assert.Equal(t, 15, *r.LatePct)
	assert.True(t, r.IsLate)
	assert.Equal(t, domain.ScheduleLate, r.Status)
}

func TestProjectRollup_LateWhenRoundedPctReachesTolerance(t *testing.T) {
	// 9 of 61 days is 14.75%, stored as 15%.
	proj := testutil.NewTestProject("Rollup", testutil.WithProjectDuration(61), testutil.WithTolerance(15))
	tasks, projections := rollupFixture("2024-02-10")

	r := ProjectRollup(proj, tasks, projections, false)
	require.NotNil(t, r.LatePct)
	assert.Equal(t, 15, *r.LatePct)
	assert.True(t, r.IsLate)
	assert.Equal(t, domain.ScheduleLate, r.Status)
}

func TestProjectRollup_WithinTolerance(t *testing.T) {
	proj := testutil.NewTestProject("Rollup", testutil.WithProjectDuration(60), testutil.WithTolerance(20))
	tasks, projections := rollupFixture("2024-02-10")

	r := ProjectRollup(proj, tasks, projections, false)
	assert.False(t, r.IsLate)
	assert.Equal(t, domain.ScheduleOnTime, r.Status)
}

func TestProjectRollup_AheadOfPlan(t *testing.T) {
	proj := testutil.NewTestProject("Rollup", testutil.WithProjectDuration(60))
	tasks, projections := rollupFixture("2024-01-20")

	r := ProjectRollup(proj, tasks, projections, false)
	assert.Equal(t, domain.IntPtr(0), r.Delay)
	assert.Nil(t, r.LatePct)
	assert.False(t, r.IsLate)
	assert.Equal(t, domain.ScheduleOnTime, r.Status)
}

func TestProjectRollup_StatusPrecedence(t *testing.T) {
	tasks, projections := rollupFixture("2024-03-30")

	paused := testutil.NewTestProject("Paused", testutil.WithProjectDuration(60))
	r := ProjectRollup(paused, tasks, projections, true)
	assert.True(t, r.IsLate)
	assert.Equal(t, domain.SchedulePaused, r.Status)

	done := testutil.NewTestProject("Done", testutil.WithProjectDuration(60),
		testutil.WithProjectFinished(testutil.Date("2024-04-01")))
	r = ProjectRollup(done, tasks, projections, true)
	assert.True(t, r.IsLate)
	assert.Equal(t, domain.ScheduleCompleted, r.Status)
}

func TestProjectRollup_NoProjections(t *testing.T) {
	proj := testutil.NewTestProject("Empty")
	r := ProjectRollup(proj, nil, nil, false)
	assert.Nil(t, r.Delay)
	assert.Nil(t, r.ProjectedFinish)
	assert.Equal(t, domain.ScheduleOnTime, r.Status)
}
