package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Migrate runs all schema migrations.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			// Tolerate "duplicate column name" errors from ALTER TABLE
			// since the migration system re-runs all statements.
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	if err := migrateBackfillNextRecompute(db); err != nil {
		return fmt.Errorf("backfilling next_recompute_at: %w", err)
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS projects (
		id                TEXT PRIMARY KEY,
		short_id          TEXT NOT NULL DEFAULT '',
		name              TEXT NOT NULL,
		planned_duration  INTEGER,
		tolerance_pct     INTEGER NOT NULL DEFAULT 0 CHECK(tolerance_pct >= 0),
		max_task_depth    INTEGER NOT NULL DEFAULT 5 CHECK(max_task_depth >= 1),
		actual_finish     TEXT,
		delay             INTEGER,
		projected_finish  TEXT,
		is_late           INTEGER NOT NULL DEFAULT 0,
		late_pct          INTEGER,
		schedule_status   TEXT NOT NULL DEFAULT 'Em dia'
		                  CHECK(schedule_status IN ('Concluído','Paralisado','Em dia','Atrasado')),
		created_at        TEXT NOT NULL,
		updated_at        TEXT NOT NULL
	)`,

	`CREATE UNIQUE INDEX IF NOT EXISTS idx_projects_short_id ON projects(short_id) WHERE short_id != ''`,

	`CREATE TABLE IF NOT EXISTS tasks (
		id                        TEXT PRIMARY KEY,
		project_id                TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		parent_id                 TEXT REFERENCES tasks(id) ON DELETE CASCADE,
		level                     INTEGER NOT NULL CHECK(level >= 1),
		number                    INTEGER NOT NULL CHECK(number >= 1),
		title                     TEXT NOT NULL,
		description               TEXT NOT NULL DEFAULT '',
		responsible_org           TEXT NOT NULL DEFAULT '',
		is_milestone              INTEGER NOT NULL DEFAULT 0,
		planned_start             TEXT,
		planned_finish            TEXT,
		planned_duration          INTEGER,
		planned_start_computed    INTEGER NOT NULL DEFAULT 0,
		planned_finish_computed   INTEGER NOT NULL DEFAULT 0,
		planned_duration_computed INTEGER NOT NULL DEFAULT 0,
		actual_start              TEXT,
		actual_finish             TEXT,
		actual_duration           INTEGER,
		estimated_cost            REAL,
		actual_cost               REAL,
		completion_pct            REAL CHECK(completion_pct IS NULL OR (completion_pct >= 0 AND completion_pct <= 100)),
		projected_start           TEXT,
		projected_finish          TEXT,
		projected_delay           INTEGER,
		start_topo_position       INTEGER,
		finish_topo_position      INTEGER,
		created_by                TEXT NOT NULL DEFAULT '',
		updated_by                TEXT NOT NULL DEFAULT '',
		removed_by                TEXT NOT NULL DEFAULT '',
		created_at                TEXT NOT NULL,
		updated_at                TEXT NOT NULL,
		removed_at                TEXT
	)`,

	`CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_parent ON tasks(parent_id)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_scope ON tasks(project_id, parent_id, number) WHERE removed_at IS NULL`,

	`CREATE TABLE IF NOT EXISTS task_dependencies (
		task_id         TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		prerequisite_id TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		type            TEXT NOT NULL
		                CHECK(type IN ('finish_to_start','start_to_start','start_to_finish','finish_to_finish')),
		latency         INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (task_id, prerequisite_id)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_task_dependencies_prerequisite ON task_dependencies(prerequisite_id)`,

	`CREATE TABLE IF NOT EXISTS project_accompaniments (
		id              TEXT PRIMARY KEY,
		project_id      TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		recorded_at     TEXT NOT NULL,
		schedule_paused INTEGER NOT NULL DEFAULT 0,
		notes           TEXT NOT NULL DEFAULT '',
		created_at      TEXT NOT NULL,
		removed_at      TEXT
	)`,

	`CREATE INDEX IF NOT EXISTS idx_accompaniments_project ON project_accompaniments(project_id, recorded_at)`,

	// Stale-project sweep bookkeeping
	`ALTER TABLE projects ADD COLUMN next_recompute_at TEXT`,
	`CREATE INDEX IF NOT EXISTS idx_projects_next_recompute ON projects(next_recompute_at)`,
}

// migrateBackfillNextRecompute schedules projects that predate the sweep
// column for an immediate recompute. Idempotent.
func migrateBackfillNextRecompute(db *sql.DB) error {
	ctx := context.Background()
	_, err := db.ExecContext(ctx,
		`UPDATE projects SET next_recompute_at = created_at WHERE next_recompute_at IS NULL`)
	if err != nil {
		return fmt.Errorf("updating projects: %w", err)
	}
	return nil
}
