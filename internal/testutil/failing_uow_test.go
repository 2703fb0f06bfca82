package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/alexanderramin/tempo/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailOnNthExecUoW_RollsBackEarlierWrites(t *testing.T) {
	database := NewTestDB(t)
	injected := errors.New("injected")
	uow := &FailOnNthExecUoW{DB: database, FailOn: 2, Err: injected}

	err := uow.WithinTx(context.Background(), func(ctx context.Context, tx db.DBTX) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO projects (id, name, created_at, updated_at) VALUES ('p1', 'Obra', '2024-01-01', '2024-01-01')`); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `UPDATE projects SET name = 'x' WHERE id = 'p1'`)
		return err
	})
	require.ErrorIs(t, err, injected)
	assert.Equal(t, 2, uow.Execs())

	var n int
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM projects`).Scan(&n))
	assert.Zero(t, n, "first insert must be rolled back")
}
