package testutil

import (
	"context"
	"database/sql"
	"sync/atomic"

	"github.com/alexanderramin/tempo/internal/db"
)

// FailOnNthExecUoW runs the production unit of work but fails the FailOn-th
// write (1-based) with Err, so structural writes can be tested for rollback
// at a precise statement. Reads are never counted. FailOn zero never fails.
type FailOnNthExecUoW struct {
	DB     *sql.DB
	FailOn int32
	Err    error

	execs atomic.Int32
}

func (u *FailOnNthExecUoW) WithinTx(ctx context.Context, fn func(ctx context.Context, tx db.DBTX) error) error {
	return db.NewSQLiteUnitOfWork(u.DB).WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		return fn(ctx, &countingTx{DBTX: tx, uow: u})
	})
}

// Execs is the number of writes attempted across all transactions, the
// failing one included.
func (u *FailOnNthExecUoW) Execs() int {
	return int(u.execs.Load())
}

type countingTx struct {
	db.DBTX
	uow *FailOnNthExecUoW
	n   int32
}

func (c *countingTx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	c.n++
	c.uow.execs.Add(1)
	if c.n == c.uow.FailOn {
		return nil, c.uow.Err
	}
	return c.DBTX.ExecContext(ctx, query, args...)
}
