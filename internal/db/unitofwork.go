package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alexanderramin/tempo/internal/domain"
	"modernc.org/sqlite"
)

// SQLite primary result codes that signal lock contention.
const (
	sqliteBusy   = 5
	sqliteLocked = 6
)

// UnitOfWork manages transactional boundaries. The callback receives a DBTX
// backed by a *sql.Tx; callers create tx-scoped repositories from it.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error
}

// SQLiteUnitOfWork implements UnitOfWork using serializable database/sql
// transactions. Lock contention reported by SQLite is surfaced as a
// domain.ConcurrencyConflictError so callers can retry.
type SQLiteUnitOfWork struct {
	db *sql.DB
}

// NewSQLiteUnitOfWork creates a UnitOfWork backed by the given *sql.DB.
func NewSQLiteUnitOfWork(db *sql.DB) *SQLiteUnitOfWork {
	return &SQLiteUnitOfWork{db: db}
}

func (u *SQLiteUnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error {
	tx, err := u.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return classify("beginning transaction", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, classify("", err))
		}
		return classify("", err)
	}

	if err := tx.Commit(); err != nil {
		return classify("committing transaction", err)
	}
	return nil
}

// classify wraps SQLite busy/locked failures and context deadline errors in a
// ConcurrencyConflictError. Other errors pass through, wrapped with op when set.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrConcurrencyConflict) {
		return err
	}
	if IsBusy(err) || errors.Is(err, context.DeadlineExceeded) {
		if op == "" {
			op = "transaction"
		}
		return &domain.ConcurrencyConflictError{Op: op, Err: err}
	}
	if op == "" {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsBusy reports whether err carries an SQLITE_BUSY or SQLITE_LOCKED code,
// including extended codes.
func IsBusy(err error) bool {
	var sqlErr *sqlite.Error
	if !errors.As(err, &sqlErr) {
		return false
	}
	switch sqlErr.Code() & 0xff {
	case sqliteBusy, sqliteLocked:
		return true
	}
	return false
}
