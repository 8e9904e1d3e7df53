package tx_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medadmit/internal/platform/sqlite"
	"medadmit/pkg/platform/tx"
)

const schema = `CREATE TABLE items (name TEXT PRIMARY KEY);`

func count(t *testing.T, ctx context.Context, e tx.Execer) int {
	t.Helper()
	var n int
	require.NoError(t, e.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&n))
	return n
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.Open(ctx, ":memory:", schema)
	require.NoError(t, err)
	defer db.Close()

	t.Run("commits on success", func(t *testing.T) {
		err := tx.Run(ctx, db, func(ctx context.Context) error {
			_, ok := tx.From(ctx)
			assert.True(t, ok)
			_, err := tx.ExecerFrom(ctx, db).ExecContext(ctx, `INSERT INTO items (name) VALUES ('a')`)
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, 1, count(t, ctx, db))
	})

	t.Run("rolls back on error", func(t *testing.T) {
		boom := errors.New("boom")
		err := tx.Run(ctx, db, func(ctx context.Context) error {
			if _, err := tx.ExecerFrom(ctx, db).ExecContext(ctx, `INSERT INTO items (name) VALUES ('b')`); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)
		assert.Equal(t, 1, count(t, ctx, db))
	})

	t.Run("nested run joins the outer transaction", func(t *testing.T) {
		err := tx.Run(ctx, db, func(outer context.Context) error {
			outerTx, _ := tx.From(outer)
			return tx.Run(outer, db, func(inner context.Context) error {
				innerTx, _ := tx.From(inner)
				assert.Same(t, outerTx, innerTx)
				return nil
			})
		})
		require.NoError(t, err)
	})

	t.Run("no transaction falls back to db", func(t *testing.T) {
		_, ok := tx.From(ctx)
		assert.False(t, ok)
		assert.Equal(t, tx.WithTx(ctx, nil), ctx)
	})
}
