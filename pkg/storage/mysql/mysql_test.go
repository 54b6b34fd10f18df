package mysql

import (
	"database/sql"
	"errors"
	"os"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"

	"github.com/tablegate/tablegate/pkg/storage"
	"github.com/tablegate/tablegate/pkg/storage/sqlcommon"
)

func TestHandleSQLError(t *testing.T) {
	t.Run("duplicate_entry_is_collision", func(t *testing.T) {
		duplicateKeyError := &mysql.MySQLError{
			Number:  1062,
			Message: "Duplicate entry '' for key ''",
		}
		err := HandleSQLError(duplicateKeyError)
		require.ErrorIs(t, err, storage.ErrCollision)

		var me *mysql.MySQLError
		require.ErrorAs(t, err, &me)
	})

	t.Run("other_mysql_errors_are_wrapped", func(t *testing.T) {
		err := HandleSQLError(&mysql.MySQLError{Number: 1054, Message: "Unknown column 'foo'"})
		require.ErrorContains(t, err, "sql error")
		require.NotErrorIs(t, err, storage.ErrCollision)
	})

	t.Run("invalid_connection_is_closed", func(t *testing.T) {
		require.ErrorIs(t, HandleSQLError(mysql.ErrInvalidConn), storage.ErrConnectionClosed)
	})

	t.Run("no_rows_is_not_found", func(t *testing.T) {
		require.ErrorIs(t, HandleSQLError(sql.ErrNoRows), storage.ErrNotFound)
	})

	t.Run("plain_error", func(t *testing.T) {
		cause := errors.New("boom")
		require.ErrorIs(t, HandleSQLError(cause), cause)
	})
}

func TestPrepareDSN(t *testing.T) {
	const uri = "root:secret@tcp(localhost:3306)/tablegate?parseTime=true"

	t.Run("unchanged_without_credentials", func(t *testing.T) {
		dsn, err := PrepareDSN(uri, sqlcommon.NewConfig())
		require.NoError(t, err)
		require.Equal(t, uri, dsn)
	})

	t.Run("overrides_credentials", func(t *testing.T) {
		dsn, err := PrepareDSN(uri, sqlcommon.NewConfig(
			sqlcommon.WithUsername("app"),
			sqlcommon.WithPassword("pw"),
		))
		require.NoError(t, err)

		parsed, err := mysql.ParseDSN(dsn)
		require.NoError(t, err)
		require.Equal(t, "app", parsed.User)
		require.Equal(t, "pw", parsed.Passwd)
		require.Equal(t, "tablegate", parsed.DBName)
	})

	t.Run("invalid_dsn", func(t *testing.T) {
		_, err := PrepareDSN("not a dsn", sqlcommon.NewConfig(sqlcommon.WithUsername("app")))
		require.ErrorContains(t, err, "failed to parse mysql connection dsn")
	})
}

func TestDialect(t *testing.T) {
	d := Dialect{}
	require.Equal(t, "mysql", d.Name())
	require.Equal(t, "`products`.`uuid`", d.QuoteIdentifier("products.uuid"))
	require.False(t, d.SupportsReturning())
}

func TestMySQLDatastore(t *testing.T) {
	uri := os.Getenv("TABLEGATE_MYSQL_URI")
	if uri == "" {
		t.Skip("TABLEGATE_MYSQL_URI not set")
	}

	ds, err := New(uri, sqlcommon.NewConfig())
	require.NoError(t, err)
	require.NoError(t, ds.Close())
}
