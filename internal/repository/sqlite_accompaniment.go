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

const accompanimentColumns = `id, project_id, recorded_at, schedule_paused, notes, created_at`

// SQLiteAccompanimentRepo implements AccompanimentRepo using a SQLite database.
type SQLiteAccompanimentRepo struct {
	db db.DBTX
}

func NewSQLiteAccompanimentRepo(conn db.DBTX) *SQLiteAccompanimentRepo {
	return &SQLiteAccompanimentRepo{db: conn}
}

func (r *SQLiteAccompanimentRepo) Create(ctx context.Context, a *domain.Accompaniment) error {
	query := `INSERT INTO project_accompaniments (` + accompanimentColumns + `) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		a.ID,
		a.ProjectID,
		a.RecordedAt.UTC().Format(time.RFC3339),
		boolToInt(a.SchedulePaused),
		a.Notes,
		a.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting accompaniment: %w", err)
	}
	return nil
}

// Latest returns the most recently recorded live accompaniment.
func (r *SQLiteAccompanimentRepo) Latest(ctx context.Context, projectID string) (*domain.Accompaniment, error) {
	query := `SELECT ` + accompanimentColumns + ` FROM project_accompaniments
		WHERE project_id = ? AND removed_at IS NULL
		ORDER BY recorded_at DESC, created_at DESC
		LIMIT 1`
	a, err := populateAccompaniment(r.db.QueryRowContext(ctx, query, projectID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("accompaniment: %w", ErrNotFound)
		}
		return nil, err
	}
	return a, nil
}

func (r *SQLiteAccompanimentRepo) ListByProject(ctx context.Context, projectID string) ([]*domain.Accompaniment, error) {
	query := `SELECT ` + accompanimentColumns + ` FROM project_accompaniments
		WHERE project_id = ? AND removed_at IS NULL
		ORDER BY recorded_at, created_at`
	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing accompaniments: %w", err)
	}
	defer rows.Close()

	var out []*domain.Accompaniment
	for rows.Next() {
		a, err := populateAccompaniment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating accompaniments: %w", err)
	}
	return out, nil
}

func populateAccompaniment(row rowScanner) (*domain.Accompaniment, error) {
	var a domain.Accompaniment
	var paused int
	var recordedAt, createdAt string
	if err := row.Scan(&a.ID, &a.ProjectID, &recordedAt, &paused, &a.Notes, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning accompaniment: %w", err)
	}
	a.SchedulePaused = intToBool(paused)

	var err error
	if a.RecordedAt, err = parseTimestamp(recordedAt, "recorded_at"); err != nil {
		return nil, err
	}
	if a.CreatedAt, err = parseTimestamp(createdAt, "created_at"); err != nil {
		return nil, err
	}
	return &a, nil
}
