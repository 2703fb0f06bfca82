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

// taskColumns is the canonical SELECT column list for tasks, aliased as t.
// child_count is derived from live rows rather than stored.
const taskColumns = `t.id, t.project_id, t.parent_id, t.level, t.number,
		t.title, t.description, t.responsible_org, t.is_milestone,
		t.planned_start, t.planned_finish, t.planned_duration,
		t.planned_start_computed, t.planned_finish_computed, t.planned_duration_computed,
		t.actual_start, t.actual_finish, t.actual_duration,
		t.estimated_cost, t.actual_cost, t.completion_pct,
		t.projected_start, t.projected_finish, t.projected_delay,
		t.start_topo_position, t.finish_topo_position,
		t.created_by, t.updated_by, t.removed_by, t.created_at, t.updated_at, t.removed_at,
		(SELECT COUNT(*) FROM tasks c WHERE c.parent_id = t.id AND c.removed_at IS NULL)`

// SQLiteTaskRepo implements TaskRepo using a SQLite database.
type SQLiteTaskRepo struct {
	db db.DBTX
}

// NewSQLiteTaskRepo creates a new SQLiteTaskRepo.
func NewSQLiteTaskRepo(conn db.DBTX) *SQLiteTaskRepo {
	return &SQLiteTaskRepo{db: conn}
}

func (r *SQLiteTaskRepo) Create(ctx context.Context, t *domain.Task) error {
	query := `INSERT INTO tasks (id, project_id, parent_id, level, number,
		title, description, responsible_org, is_milestone,
		planned_start, planned_finish, planned_duration,
		planned_start_computed, planned_finish_computed, planned_duration_computed,
		actual_start, actual_finish, actual_duration,
		estimated_cost, actual_cost, completion_pct,
		created_by, updated_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		t.ID,
		t.ProjectID,
		t.ParentID, // *string: nil becomes SQL NULL
		t.Level,
		t.Number,
		t.Title,
		t.Description,
		t.ResponsibleOrg,
		boolToInt(t.IsMilestone),
		nullableTimeToString(t.PlannedStart, dateLayout),
		nullableTimeToString(t.PlannedFinish, dateLayout),
		nullableIntToValue(t.PlannedDuration),
		boolToInt(t.PlannedStartComputed),
		boolToInt(t.PlannedFinishComputed),
		boolToInt(t.PlannedDurationComputed),
		nullableTimeToString(t.ActualStart, dateLayout),
		nullableTimeToString(t.ActualFinish, dateLayout),
		nullableIntToValue(t.ActualDuration),
		nullableFloatToValue(t.EstimatedCost),
		nullableFloatToValue(t.ActualCost),
		nullableFloatToValue(t.CompletionPercent),
		t.CreatedBy,
		t.UpdatedBy,
		t.CreatedAt.UTC().Format(time.RFC3339),
		t.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting task: %w", err)
	}
	return nil
}

// GetByID returns a live task. Soft-deleted tasks are reported as ErrNotFound.
func (r *SQLiteTaskRepo) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks t WHERE t.id = ? AND t.removed_at IS NULL`
	return scanTask(r.db.QueryRowContext(ctx, query, id))
}

// ListByProject returns every live task of the project ordered by level then
// sibling number.
func (r *SQLiteTaskRepo) ListByProject(ctx context.Context, projectID string) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks t
		WHERE t.project_id = ? AND t.removed_at IS NULL
		ORDER BY t.level, t.number`
	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (r *SQLiteTaskRepo) ListChildren(ctx context.Context, scope Scope) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks t
		WHERE t.project_id = ? AND t.parent_id IS ? AND t.removed_at IS NULL
		ORDER BY t.number`
	rows, err := r.db.QueryContext(ctx, query, scope.ProjectID, scope.ParentID)
	if err != nil {
		return nil, fmt.Errorf("listing child tasks: %w", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

// Update writes the descriptive, planned and actual fields of a task.
// Placement is owned by SetPlacement; projections by UpdateProjections.
func (r *SQLiteTaskRepo) Update(ctx context.Context, t *domain.Task) error {
	query := `UPDATE tasks SET title = ?, description = ?, responsible_org = ?, is_milestone = ?,
		planned_start = ?, planned_finish = ?, planned_duration = ?,
		planned_start_computed = ?, planned_finish_computed = ?, planned_duration_computed = ?,
		actual_start = ?, actual_finish = ?, actual_duration = ?,
		estimated_cost = ?, actual_cost = ?, completion_pct = ?,
		updated_by = ?, updated_at = ?
		WHERE id = ? AND removed_at IS NULL`
	res, err := r.db.ExecContext(ctx, query,
		t.Title,
		t.Description,
		t.ResponsibleOrg,
		boolToInt(t.IsMilestone),
		nullableTimeToString(t.PlannedStart, dateLayout),
		nullableTimeToString(t.PlannedFinish, dateLayout),
		nullableIntToValue(t.PlannedDuration),
		boolToInt(t.PlannedStartComputed),
		boolToInt(t.PlannedFinishComputed),
		boolToInt(t.PlannedDurationComputed),
		nullableTimeToString(t.ActualStart, dateLayout),
		nullableTimeToString(t.ActualFinish, dateLayout),
		nullableIntToValue(t.ActualDuration),
		nullableFloatToValue(t.EstimatedCost),
		nullableFloatToValue(t.ActualCost),
		nullableFloatToValue(t.CompletionPercent),
		t.UpdatedBy,
		t.UpdatedAt.UTC().Format(time.RFC3339),
		t.ID,
	)
	if err != nil {
		return fmt.Errorf("updating task: %w", err)
	}
	return requireAffected(res, "task")
}

func (r *SQLiteTaskRepo) SetPlacement(ctx context.Context, id string, parentID *string, level, number int) error {
	query := `UPDATE tasks SET parent_id = ?, level = ?, number = ? WHERE id = ? AND removed_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, parentID, level, number, id)
	if err != nil {
		return fmt.Errorf("placing task: %w", err)
	}
	return requireAffected(res, "task")
}

func (r *SQLiteTaskRepo) SoftDelete(ctx context.Context, id, actor string, at time.Time) error {
	ts := at.UTC().Format(time.RFC3339)
	query := `UPDATE tasks SET removed_at = ?, removed_by = ?, updated_at = ?
		WHERE id = ? AND removed_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, ts, actor, ts, id)
	if err != nil {
		return fmt.Errorf("removing task: %w", err)
	}
	return requireAffected(res, "task")
}

func (r *SQLiteTaskRepo) CountSiblings(ctx context.Context, scope Scope) (int, error) {
	query := `SELECT COUNT(*) FROM tasks
		WHERE project_id = ? AND parent_id IS ? AND removed_at IS NULL`
	var n int
	if err := r.db.QueryRowContext(ctx, query, scope.ProjectID, scope.ParentID).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting siblings: %w", err)
	}
	return n, nil
}

// ShiftSiblings adds delta to the number of every live sibling in scope whose
// number is at least from, skipping excludeID.
func (r *SQLiteTaskRepo) ShiftSiblings(ctx context.Context, scope Scope, from, delta int, excludeID string) error {
	query := `UPDATE tasks SET number = number + ?
		WHERE project_id = ? AND parent_id IS ? AND removed_at IS NULL
		AND number >= ? AND id != ?`
	if _, err := r.db.ExecContext(ctx, query, delta, scope.ProjectID, scope.ParentID, from, excludeID); err != nil {
		return fmt.Errorf("shifting sibling numbers: %w", err)
	}
	return nil
}

// UpdateProjections writes the cached projection of each listed task.
func (r *SQLiteTaskRepo) UpdateProjections(ctx context.Context, updates []ProjectionUpdate) error {
	query := `UPDATE tasks SET projected_start = ?, projected_finish = ?, projected_delay = ? WHERE id = ?`
	for _, u := range updates {
		_, err := r.db.ExecContext(ctx, query,
			nullableTimeToString(u.Start, dateLayout),
			nullableTimeToString(u.Finish, dateLayout),
			nullableIntToValue(u.Delay),
			u.TaskID,
		)
		if err != nil {
			return fmt.Errorf("updating projection for task %s: %w", u.TaskID, err)
		}
	}
	return nil
}

// UpdateTopoPositions replaces the project's cached topological positions.
// Tasks absent from a map get NULL for that class.
func (r *SQLiteTaskRepo) UpdateTopoPositions(ctx context.Context, projectID string, start, finish map[string]int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET start_topo_position = NULL, finish_topo_position = NULL WHERE project_id = ?`,
		projectID)
	if err != nil {
		return fmt.Errorf("clearing topological positions: %w", err)
	}
	for id, pos := range start {
		if _, err := r.db.ExecContext(ctx, `UPDATE tasks SET start_topo_position = ? WHERE id = ?`, pos, id); err != nil {
			return fmt.Errorf("setting start position for task %s: %w", id, err)
		}
	}
	for id, pos := range finish {
		if _, err := r.db.ExecContext(ctx, `UPDATE tasks SET finish_topo_position = ? WHERE id = ?`, pos, id); err != nil {
			return fmt.Errorf("setting finish position for task %s: %w", id, err)
		}
	}
	return nil
}

func scanTask(row rowScanner) (*domain.Task, error) {
	t, err := populateTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("task: %w", ErrNotFound)
		}
		return nil, err
	}
	return t, nil
}

func scanTasks(rows *sql.Rows) ([]*domain.Task, error) {
	var tasks []*domain.Task
	for rows.Next() {
		t, err := populateTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tasks: %w", err)
	}
	return tasks, nil
}

func populateTask(row rowScanner) (*domain.Task, error) {
	var t domain.Task
	var parentID sql.NullString
	var isMilestone, startComputed, finishComputed, durationComputed int
	var plannedStart, plannedFinish, actualStart, actualFinish sql.NullString
	var projectedStart, projectedFinish, removedAt sql.NullString
	var plannedDuration, actualDuration, projectedDelay, startPos, finishPos sql.NullInt64
	var estimatedCost, actualCost, completion sql.NullFloat64
	var createdAtStr, updatedAtStr string

	err := row.Scan(
		&t.ID, &t.ProjectID, &parentID, &t.Level, &t.Number,
		&t.Title, &t.Description, &t.ResponsibleOrg, &isMilestone,
		&plannedStart, &plannedFinish, &plannedDuration,
		&startComputed, &finishComputed, &durationComputed,
		&actualStart, &actualFinish, &actualDuration,
		&estimatedCost, &actualCost, &completion,
		&projectedStart, &projectedFinish, &projectedDelay,
		&startPos, &finishPos,
		&t.CreatedBy, &t.UpdatedBy, &t.RemovedBy, &createdAtStr, &updatedAtStr, &removedAt,
		&t.ChildCount,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning task: %w", err)
	}

	if parentID.Valid {
		t.ParentID = &parentID.String
	}
	t.IsMilestone = intToBool(isMilestone)
	t.PlannedStart = parseNullableTime(plannedStart, dateLayout)
	t.PlannedFinish = parseNullableTime(plannedFinish, dateLayout)
	t.PlannedDuration = parseNullableInt(plannedDuration)
	t.PlannedStartComputed = intToBool(startComputed)
	t.PlannedFinishComputed = intToBool(finishComputed)
	t.PlannedDurationComputed = intToBool(durationComputed)
	t.ActualStart = parseNullableTime(actualStart, dateLayout)
	t.ActualFinish = parseNullableTime(actualFinish, dateLayout)
	t.ActualDuration = parseNullableInt(actualDuration)
	t.EstimatedCost = parseNullableFloat(estimatedCost)
	t.ActualCost = parseNullableFloat(actualCost)
	t.CompletionPercent = parseNullableFloat(completion)
	t.ProjectedStart = parseNullableTime(projectedStart, dateLayout)
	t.ProjectedFinish = parseNullableTime(projectedFinish, dateLayout)
	t.ProjectedDelay = parseNullableInt(projectedDelay)
	t.StartTopoPosition = parseNullableInt(startPos)
	t.FinishTopoPosition = parseNullableInt(finishPos)
	t.RemovedAt = parseNullableTime(removedAt, time.RFC3339)

	if t.CreatedAt, err = parseTimestamp(createdAtStr, "created_at"); err != nil {
		return nil, err
	}
	if t.UpdatedAt, err = parseTimestamp(updatedAtStr, "updated_at"); err != nil {
		return nil, err
	}
	return &t, nil
}
