package db

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/alexanderramin/tempo/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

const seedProject = `INSERT INTO projects (id, name, short_id, created_at, updated_at)
	VALUES ('p1', 'Test', 'TST01', '2025-01-01T00:00:00Z', '2025-01-01T00:00:00Z')`

func seedTask(t *testing.T, db *sql.DB, id string, parent any, level, number int) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO tasks (id, project_id, parent_id, level, number, title, created_at, updated_at)
		VALUES (?, 'p1', ?, ?, ?, ?, '2025-01-01T00:00:00Z', '2025-01-01T00:00:00Z')`,
		id, parent, level, number, "Task "+id)
	require.NoError(t, err)
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openTestDB(t)

	// Run migrations a second time; should succeed without error.
	err := Migrate(db)
	require.NoError(t, err)

	// Third time for good measure.
	err = Migrate(db)
	require.NoError(t, err)
}

func TestMigrate_CreatesAllTables(t *testing.T) {
	db := openTestDB(t)

	expected := []string{"projects", "tasks", "task_dependencies", "project_accompaniments"}
	for _, table := range expected {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_CreatesIndexes(t *testing.T) {
	db := openTestDB(t)

	expected := []string{
		"idx_projects_short_id",
		"idx_projects_next_recompute",
		"idx_tasks_project",
		"idx_tasks_parent",
		"idx_tasks_scope",
		"idx_task_dependencies_prerequisite",
		"idx_accompaniments_project",
	}
	for _, idx := range expected {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='index' AND name=?`, idx).Scan(&name)
		require.NoError(t, err, "index %s should exist", idx)
	}
}

func TestMigrate_ForeignKeysEnabled(t *testing.T) {
	db := openTestDB(t)

	var fk int
	err := db.QueryRow(`PRAGMA foreign_keys`).Scan(&fk)
	require.NoError(t, err)
	assert.Equal(t, 1, fk, "foreign keys should be enabled")
}

func TestMigrate_BusyTimeoutSet(t *testing.T) {
	db := openTestDB(t)

	var timeout int
	err := db.QueryRow(`PRAGMA busy_timeout`).Scan(&timeout)
	require.NoError(t, err)
	assert.Equal(t, 5000, timeout)
}

func TestMigrate_MemoryDBSharesSingleConnection(t *testing.T) {
	db := openTestDB(t)
	assert.Equal(t, 1, db.Stats().MaxOpenConnections)
}

func TestMigrate_ProjectsScheduleStatusCheckConstraint(t *testing.T) {
	db := openTestDB(t)

	_, err := db.Exec(`INSERT INTO projects (id, name, schedule_status, created_at, updated_at)
		VALUES ('p1', 'Test', 'INVALID', '2025-01-01T00:00:00Z', '2025-01-01T00:00:00Z')`)
	assert.Error(t, err, "invalid schedule status should be rejected by CHECK constraint")
}

func TestMigrate_ProjectDefaults(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Exec(seedProject)
	require.NoError(t, err)

	var depth, tolerance, isLate int
	var status string
	err = db.QueryRow(`SELECT max_task_depth, tolerance_pct, is_late, schedule_status FROM projects WHERE id = 'p1'`).
		Scan(&depth, &tolerance, &isLate, &status)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultMaxTaskDepth, depth)
	assert.Equal(t, 0, tolerance)
	assert.Equal(t, 0, isLate)
	assert.Equal(t, string(domain.ScheduleOnTime), status)
}

func TestMigrate_TasksLevelAndNumberChecks(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Exec(seedProject)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO tasks (id, project_id, level, number, title, created_at, updated_at)
		VALUES ('t0', 'p1', 0, 1, 'Bad level', '2025-01-01T00:00:00Z', '2025-01-01T00:00:00Z')`)
	assert.Error(t, err, "level below 1 should be rejected")

	_, err = db.Exec(`INSERT INTO tasks (id, project_id, level, number, title, created_at, updated_at)
		VALUES ('t0', 'p1', 1, 0, 'Bad number', '2025-01-01T00:00:00Z', '2025-01-01T00:00:00Z')`)
	assert.Error(t, err, "number below 1 should be rejected")
}

func TestMigrate_DependencyTypeCheckConstraint(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Exec(seedProject)
	require.NoError(t, err)
	seedTask(t, db, "a", nil, 1, 1)
	seedTask(t, db, "b", nil, 1, 2)

	_, err = db.Exec(`INSERT INTO task_dependencies (task_id, prerequisite_id, type) VALUES ('b', 'a', 'later')`)
	assert.Error(t, err)

	_, err = db.Exec(`INSERT INTO task_dependencies (task_id, prerequisite_id, type, latency) VALUES ('b', 'a', 'finish_to_start', -2)`)
	require.NoError(t, err, "negative latency is allowed")

	_, err = db.Exec(`INSERT INTO task_dependencies (task_id, prerequisite_id, type) VALUES ('b', 'a', 'start_to_start')`)
	assert.Error(t, err, "duplicate prerequisite should violate composite primary key")
}

func TestMigrate_DependenciesCascadeWithTask(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Exec(seedProject)
	require.NoError(t, err)
	seedTask(t, db, "a", nil, 1, 1)
	seedTask(t, db, "b", nil, 1, 2)
	_, err = db.Exec(`INSERT INTO task_dependencies (task_id, prerequisite_id, type) VALUES ('b', 'a', 'finish_to_start')`)
	require.NoError(t, err)

	_, err = db.Exec(`DELETE FROM tasks WHERE id = 'a'`)
	require.NoError(t, err)

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM task_dependencies`).Scan(&count))
	assert.Equal(t, 0, count)
}

func TestMigrate_ProjectsShortIDPartialUniqueIndex(t *testing.T) {
	db := openTestDB(t)

	insert := func(id, shortID string) error {
		_, err := db.Exec(`INSERT INTO projects (id, name, short_id, created_at, updated_at)
			VALUES (?, ?, ?, '2025-01-01T00:00:00Z', '2025-01-01T00:00:00Z')`, id, "Project "+id, shortID)
		return err
	}

	// Empty short IDs should be allowed repeatedly due to partial unique index predicate.
	require.NoError(t, insert("p1", ""))
	require.NoError(t, insert("p2", ""))

	// Non-empty duplicates should violate unique index.
	require.NoError(t, insert("p3", "DUP01"))
	assert.Error(t, insert("p4", "DUP01"))
}

func TestMigrate_BackfillsNextRecompute(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Exec(seedProject)
	require.NoError(t, err)

	require.NoError(t, Migrate(db))

	var next sql.NullString
	require.NoError(t, db.QueryRow(`SELECT next_recompute_at FROM projects WHERE id = 'p1'`).Scan(&next))
	assert.True(t, next.Valid)
	assert.Equal(t, "2025-01-01T00:00:00Z", next.String)
}

func TestClassify_DeadlineBecomesConcurrencyConflict(t *testing.T) {
	err := classify("", fmt.Errorf("waiting: %w", context.DeadlineExceeded))

	var conflict *domain.ConcurrencyConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "transaction", conflict.Op)
	assert.True(t, domain.IsRetryable(err))
}

func TestClassify_PassesThroughDomainErrors(t *testing.T) {
	verr := domain.NewValidationError("title", "is required")
	err := classify("", verr)
	assert.Same(t, verr, err)

	wrapped := classify("committing transaction", fmt.Errorf("disk full"))
	assert.EqualError(t, wrapped, "committing transaction: disk full")
	assert.False(t, domain.IsRetryable(wrapped))
}
