package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alexanderramin/tempo/internal/db"
	"github.com/alexanderramin/tempo/internal/domain"
)

// SQLiteDependencyRepo implements DependencyRepo using a SQLite database.
type SQLiteDependencyRepo struct {
	db db.DBTX
}

// NewSQLiteDependencyRepo creates a new SQLiteDependencyRepo.
func NewSQLiteDependencyRepo(conn db.DBTX) *SQLiteDependencyRepo {
	return &SQLiteDependencyRepo{db: conn}
}

// ListByProject returns every edge of the project whose endpoints are both live.
func (r *SQLiteDependencyRepo) ListByProject(ctx context.Context, projectID string) ([]domain.Dependency, error) {
	query := `SELECT d.task_id, d.prerequisite_id, d.type, d.latency
		FROM task_dependencies d
		JOIN tasks t ON t.id = d.task_id
		JOIN tasks p ON p.id = d.prerequisite_id
		WHERE t.project_id = ? AND t.removed_at IS NULL AND p.removed_at IS NULL
		ORDER BY t.level, t.number, d.rowid`
	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing project dependencies: %w", err)
	}
	defer rows.Close()
	return r.scanDependencies(rows)
}

func (r *SQLiteDependencyRepo) ListByTask(ctx context.Context, taskID string) ([]domain.Dependency, error) {
	query := `SELECT d.task_id, d.prerequisite_id, d.type, d.latency
		FROM task_dependencies d
		JOIN tasks p ON p.id = d.prerequisite_id
		WHERE d.task_id = ? AND p.removed_at IS NULL
		ORDER BY d.rowid`
	rows, err := r.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("listing task dependencies: %w", err)
	}
	defer rows.Close()
	return r.scanDependencies(rows)
}

// ReplaceForTask swaps the full edge set owned by taskID.
func (r *SQLiteDependencyRepo) ReplaceForTask(ctx context.Context, taskID string, deps []domain.Dependency) error {
	if err := r.DeleteForTask(ctx, taskID); err != nil {
		return err
	}
	query := `INSERT INTO task_dependencies (task_id, prerequisite_id, type, latency) VALUES (?, ?, ?, ?)`
	for _, d := range deps {
		if _, err := r.db.ExecContext(ctx, query, taskID, d.PrerequisiteID, string(d.Type), d.Latency); err != nil {
			return fmt.Errorf("inserting dependency on %s: %w", d.PrerequisiteID, err)
		}
	}
	return nil
}

func (r *SQLiteDependencyRepo) DeleteForTask(ctx context.Context, taskID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM task_dependencies WHERE task_id = ?`, taskID); err != nil {
		return fmt.Errorf("deleting task dependencies: %w", err)
	}
	return nil
}

// FirstDependent returns one live task that depends on prerequisiteID, or
// ErrNotFound when none does.
func (r *SQLiteDependencyRepo) FirstDependent(ctx context.Context, prerequisiteID string) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks t
		JOIN task_dependencies d ON d.task_id = t.id
		WHERE d.prerequisite_id = ? AND t.removed_at IS NULL
		ORDER BY t.level, t.number
		LIMIT 1`
	return scanTask(r.db.QueryRowContext(ctx, query, prerequisiteID))
}

func (r *SQLiteDependencyRepo) scanDependencies(rows *sql.Rows) ([]domain.Dependency, error) {
	var deps []domain.Dependency
	for rows.Next() {
		var d domain.Dependency
		var typ string
		if err := rows.Scan(&d.TaskID, &d.PrerequisiteID, &typ, &d.Latency); err != nil {
			return nil, fmt.Errorf("scanning dependency: %w", err)
		}
		d.Type = domain.DependencyType(typ)
		deps = append(deps, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating dependencies: %w", err)
	}
	return deps, nil
}
