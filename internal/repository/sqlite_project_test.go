package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alexanderramin/tempo/internal/domain"
	"github.com/alexanderramin/tempo/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectRepo_CreateAndGetByID(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteProjectRepo(db)
	ctx := context.Background()

	proj := testutil.NewTestProject("Bridge", testutil.WithProjectDuration(120), testutil.WithTolerance(10))
	require.NoError(t, repo.Create(ctx, proj))

	fetched, err := repo.GetByID(ctx, proj.ID)
	require.NoError(t, err)
	assert.Equal(t, proj.ID, fetched.ID)
	assert.Equal(t, "Bridge", fetched.Name)
	require.NotNil(t, fetched.PlannedDuration)
	assert.Equal(t, 120, *fetched.PlannedDuration)
	assert.Equal(t, 10, fetched.TolerancePct)
	assert.Equal(t, domain.DefaultMaxTaskDepth, fetched.MaxTaskDepth)
	assert.Equal(t, domain.ScheduleOnTime, fetched.ScheduleStatus)
	assert.Nil(t, fetched.Delay)
	assert.True(t, proj.CreatedAt.Equal(fetched.CreatedAt))
}

func TestProjectRepo_GetByShortID(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteProjectRepo(db)
	ctx := context.Background()

	proj := testutil.NewTestProject("Road", testutil.WithShortID("ROAD01"))
	require.NoError(t, repo.Create(ctx, proj))

	// Case-insensitive lookup.
	fetched, err := repo.GetByShortID(ctx, "road01")
	require.NoError(t, err)
	assert.Equal(t, proj.ID, fetched.ID)
	assert.Equal(t, "ROAD01", fetched.ShortID)
}

func TestProjectRepo_GetByID_NotFound(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteProjectRepo(db)

	_, err := repo.GetByID(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProjectRepo_UpdateRollup(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteProjectRepo(db)
	ctx := context.Background()

	proj := testutil.NewTestProject("School")
	require.NoError(t, repo.Create(ctx, proj))

	rollup := domain.Rollup{
		Delay:           domain.IntPtr(12),
		ProjectedFinish: testutil.DatePtr("2025-06-30"),
		IsLate:          true,
		LatePct:         domain.IntPtr(10),
		Status:          domain.ScheduleLate,
	}
	require.NoError(t, repo.UpdateRollup(ctx, proj.ID, rollup, time.Now()))

	fetched, err := repo.GetByID(ctx, proj.ID)
	require.NoError(t, err)
	assert.True(t, fetched.Rollup().Equal(rollup))

	err = repo.UpdateRollup(ctx, "missing", rollup, time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProjectRepo_Update_KeepsRollup(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteProjectRepo(db)
	ctx := context.Background()

	proj := testutil.NewTestProject("Harbor")
	require.NoError(t, repo.Create(ctx, proj))
	require.NoError(t, repo.UpdateRollup(ctx, proj.ID, domain.Rollup{Delay: domain.IntPtr(3), Status: domain.ScheduleLate}, time.Now()))

	proj.Name = "Harbor II"
	proj.TolerancePct = 25
	proj.UpdatedAt = time.Now().UTC()
	require.NoError(t, repo.Update(ctx, proj))

	fetched, err := repo.GetByID(ctx, proj.ID)
	require.NoError(t, err)
	assert.Equal(t, "Harbor II", fetched.Name)
	assert.Equal(t, 25, fetched.TolerancePct)
	require.NotNil(t, fetched.Delay)
	assert.Equal(t, 3, *fetched.Delay)
}

func TestProjectRepo_ListStale(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteProjectRepo(db)
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	var ids []string
	for i, offset := range []time.Duration{-3 * time.Hour, -time.Hour, time.Hour} {
		p := testutil.NewTestProject("Stale")
		next := now.Add(offset)
		p.NextRecomputeAt = &next
		p.CreatedAt = now.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Create(ctx, p))
		ids = append(ids, p.ID)
	}

	stale, err := repo.ListStale(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, stale, 2)
	assert.Equal(t, ids[0], stale[0].ID, "oldest schedule first")
	assert.Equal(t, ids[1], stale[1].ID)

	limited, err := repo.ListStale(ctx, now, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	require.NoError(t, repo.SetNextRecompute(ctx, ids[0], now.Add(24*time.Hour)))
	stale, err = repo.ListStale(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, ids[1], stale[0].ID)
}
