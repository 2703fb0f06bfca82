package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/tempo/internal/db"
	"github.com/alexanderramin/tempo/internal/domain"
)

// projectColumns is the canonical SELECT column list for projects.
const projectColumns = `id, short_id, name, planned_duration, tolerance_pct, max_task_depth,
		actual_finish, delay, projected_finish, is_late, late_pct, schedule_status,
		next_recompute_at, created_at, updated_at`

// SQLiteProjectRepo implements ProjectRepo using a SQLite database.
type SQLiteProjectRepo struct {
	db db.DBTX
}

// NewSQLiteProjectRepo creates a new SQLiteProjectRepo.
func NewSQLiteProjectRepo(conn db.DBTX) *SQLiteProjectRepo {
	return &SQLiteProjectRepo{db: conn}
}

func (r *SQLiteProjectRepo) Create(ctx context.Context, p *domain.Project) error {
	query := `INSERT INTO projects (` + projectColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		p.ID,
		p.ShortID,
		p.Name,
		nullableIntToValue(p.PlannedDuration),
		p.TolerancePct,
		p.MaxTaskDepth,
		nullableTimeToString(p.ActualFinish, dateLayout),
		nullableIntToValue(p.Delay),
		nullableTimeToString(p.ProjectedFinish, dateLayout),
		boolToInt(p.IsLate),
		nullableIntToValue(p.LatePct),
		string(p.ScheduleStatus),
		nullableTimeToString(p.NextRecomputeAt, time.RFC3339),
		p.CreatedAt.Format(time.RFC3339),
		p.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting project: %w", err)
	}
	return nil
}

func (r *SQLiteProjectRepo) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = ?`
	return scanProject(r.db.QueryRowContext(ctx, query, id))
}

func (r *SQLiteProjectRepo) GetByShortID(ctx context.Context, shortID string) (*domain.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE UPPER(short_id) = UPPER(?)`
	return scanProject(r.db.QueryRowContext(ctx, query, shortID))
}

func (r *SQLiteProjectRepo) List(ctx context.Context) ([]*domain.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()
	return scanProjects(rows)
}

// Update writes the user-editable project settings. Rollup columns are
// owned by UpdateRollup.
func (r *SQLiteProjectRepo) Update(ctx context.Context, p *domain.Project) error {
	query := `UPDATE projects SET short_id = ?, name = ?, planned_duration = ?, tolerance_pct = ?,
		max_task_depth = ?, actual_finish = ?, schedule_status = ?, updated_at = ?
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query,
		p.ShortID,
		p.Name,
		nullableIntToValue(p.PlannedDuration),
		p.TolerancePct,
		p.MaxTaskDepth,
		nullableTimeToString(p.ActualFinish, dateLayout),
		string(p.ScheduleStatus),
		p.UpdatedAt.Format(time.RFC3339),
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("updating project: %w", err)
	}
	return requireAffected(res, "project")
}

func (r *SQLiteProjectRepo) UpdateRollup(ctx context.Context, id string, ru domain.Rollup, at time.Time) error {
	query := `UPDATE projects SET delay = ?, projected_finish = ?, is_late = ?, late_pct = ?,
		schedule_status = ?, updated_at = ?
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query,
		nullableIntToValue(ru.Delay),
		nullableTimeToString(ru.ProjectedFinish, dateLayout),
		boolToInt(ru.IsLate),
		nullableIntToValue(ru.LatePct),
		string(ru.Status),
		at.UTC().Format(time.RFC3339),
		id,
	)
	if err != nil {
		return fmt.Errorf("updating project rollup: %w", err)
	}
	return requireAffected(res, "project")
}

// ListStale returns up to limit projects whose next recompute time has
// passed, oldest first.
func (r *SQLiteProjectRepo) ListStale(ctx context.Context, now time.Time, limit int) ([]*domain.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects
		WHERE next_recompute_at IS NULL OR next_recompute_at < ?
		ORDER BY next_recompute_at, created_at
		LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, now.UTC().Format(time.RFC3339), limit)
	if err != nil {
		return nil, fmt.Errorf("listing stale projects: %w", err)
	}
	defer rows.Close()
	return scanProjects(rows)
}

func (r *SQLiteProjectRepo) SetNextRecompute(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE projects SET next_recompute_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, at.UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("scheduling project recompute: %w", err)
	}
	return requireAffected(res, "project")
}

func scanProject(row rowScanner) (*domain.Project, error) {
	p, err := populateProject(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("project: %w", ErrNotFound)
		}
		return nil, err
	}
	return p, nil
}

func scanProjects(rows *sql.Rows) ([]*domain.Project, error) {
	var projects []*domain.Project
	for rows.Next() {
		p, err := populateProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating projects: %w", err)
	}
	return projects, nil
}

func populateProject(row rowScanner) (*domain.Project, error) {
	var p domain.Project
	var plannedDuration, delay, latePct sql.NullInt64
	var actualFinish, projectedFinish, nextRecompute sql.NullString
	var isLate int
	var status, createdAtStr, updatedAtStr string

	err := row.Scan(
		&p.ID, &p.ShortID, &p.Name, &plannedDuration, &p.TolerancePct, &p.MaxTaskDepth,
		&actualFinish, &delay, &projectedFinish, &isLate, &latePct, &status,
		&nextRecompute, &createdAtStr, &updatedAtStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning project: %w", err)
	}

	p.PlannedDuration = parseNullableInt(plannedDuration)
	p.ActualFinish = parseNullableTime(actualFinish, dateLayout)
	p.Delay = parseNullableInt(delay)
	p.ProjectedFinish = parseNullableTime(projectedFinish, dateLayout)
	p.IsLate = intToBool(isLate)
	p.LatePct = parseNullableInt(latePct)
	p.ScheduleStatus = domain.ScheduleStatus(status)
	p.NextRecomputeAt = parseNullableTime(nextRecompute, time.RFC3339)

	if p.CreatedAt, err = parseTimestamp(createdAtStr, "created_at"); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTimestamp(updatedAtStr, "updated_at"); err != nil {
		return nil, err
	}
	return &p, nil
}

// requireAffected maps a zero-row write to ErrNotFound.
func requireAffected(res sql.Result, entity string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", entity, ErrNotFound)
	}
	return nil
}
