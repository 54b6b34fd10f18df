package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tablegate/tablegate/pkg/storage"
	"github.com/tablegate/tablegate/pkg/storage/sqlcommon"
)

func TestPrepareDSN(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{
			name:     "defaults",
			uri:      "/tmp/db.sqlite",
			expected: "/tmp/db.sqlite?_pragma=journal_mode%28WAL%29&_pragma=busy_timeout%28100%29&_txlock=immediate",
		},
		{
			name:     "keeps_explicit_pragmas",
			uri:      "/tmp/db.sqlite?_pragma=journal_mode(DELETE)&_pragma=busy_timeout(5)&_txlock=deferred",
			expected: "/tmp/db.sqlite?_pragma=journal_mode%28DELETE%29&_pragma=busy_timeout%285%29&_txlock=deferred",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			dsn, err := PrepareDSN(test.uri)
			require.NoError(t, err)
			require.Equal(t, test.expected, dsn)
		})
	}

	t.Run("invalid_query", func(t *testing.T) {
		_, err := PrepareDSN("/tmp/db.sqlite?%zz")
		require.ErrorContains(t, err, "error parsing dsn")
	})
}

func TestDialect(t *testing.T) {
	d := Dialect{}
	require.Equal(t, "sqlite", d.Name())
	require.Equal(t, `"desc"`, d.QuoteIdentifier("desc"))
	require.False(t, d.SupportsReturning())
}

func TestHandleSQLError(t *testing.T) {
	ds, err := New(filepath.Join(t.TempDir(), "errors.db"), sqlcommon.NewConfig())
	require.NoError(t, err)
	defer ds.Close()

	ctx := context.Background()
	_, err = ds.ExecContext(ctx, `create table items (id text primary key)`)
	require.NoError(t, err)
	_, err = ds.ExecContext(ctx, `insert into items (id) values ('a')`)
	require.NoError(t, err)

	t.Run("constraint_violation_is_collision", func(t *testing.T) {
		_, err := ds.ExecContext(ctx, `insert into items (id) values ('a')`)
		require.Error(t, err)
		require.ErrorIs(t, ds.Dialect.HandleSQLError(err), storage.ErrCollision)
	})

	t.Run("syntax_error_is_wrapped", func(t *testing.T) {
		_, err := ds.ExecContext(ctx, `select from where`)
		require.Error(t, err)

		handled := HandleSQLError(err)
		require.ErrorContains(t, handled, "sql error")
		require.ErrorIs(t, handled, err)
		require.NotErrorIs(t, handled, storage.ErrCollision)
	})

	t.Run("closed_database", func(t *testing.T) {
		require.ErrorIs(t, HandleSQLError(errors.New("sql: database is closed")), storage.ErrConnectionClosed)
	})
}
