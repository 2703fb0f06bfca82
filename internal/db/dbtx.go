package db

import (
	"context"
	"database/sql"
)

// DBTX is what repositories run statements against: the pool for plain
// reads, or the serializable transaction of a structural write so that
// task rows, edges, projections and the project rollup commit together.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ DBTX = (*sql.DB)(nil)
	_ DBTX = (*sql.Tx)(nil)
)
