// Package storage provides throwaway databases carrying the fixture schema
// from assets, for tests.
package storage

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tablegate/tablegate/pkg/storage/mysql"
	"github.com/tablegate/tablegate/pkg/storage/postgres"
	"github.com/tablegate/tablegate/pkg/storage/sqlcommon"
	"github.com/tablegate/tablegate/pkg/storage/sqlite"
)

// DatastoreTestContainer represents a runnable database for testing specific datastore engines.
type DatastoreTestContainer interface {
	// GetConnectionURI returns a connection string to the database.
	GetConnectionURI(includeCredentials bool) string

	// GetDatabaseSchemaVersion returns the last migration applied (e.g. 2) when the database was created.
	GetDatabaseSchemaVersion() int64

	GetUsername() string
	GetPassword() string
}

// RunDatastoreTestContainer constructs and runs a specific DatastoreTestContainer for the provided
// datastore engine and applies the fixture migrations. MySQL and Postgres tests are skipped unless
// TABLEGATE_MYSQL_URI or TABLEGATE_POSTGRES_URI is set.
func RunDatastoreTestContainer(t testing.TB, engine string) DatastoreTestContainer {
	switch engine {
	case "sqlite":
		return NewSqliteTestContainer().RunSqliteTestDatabase(t)
	case "mysql":
		return NewMySQLTestContainer().RunMySQLTestContainer(t)
	case "postgres":
		return NewPostgresTestContainer().RunPostgresTestContainer(t)
	default:
		t.Fatalf("'%s' engine is not supported by RunDatastoreTestContainer", engine)
		return nil
	}
}

// MustBootstrapDatastore returns an open pool on a freshly migrated database.
// The pool is closed when the test ends.
func MustBootstrapDatastore(t testing.TB, engine string, opts ...sqlcommon.DatastoreOption) *sqlcommon.Datastore {
	testDatastore := RunDatastoreTestContainer(t, engine)

	return MustOpenDatastore(t, engine, testDatastore.GetConnectionURI(true), opts...)
}

// MustOpenDatastore opens a pool on uri for engine and closes it when the
// test ends.
func MustOpenDatastore(t testing.TB, engine, uri string, opts ...sqlcommon.DatastoreOption) *sqlcommon.Datastore {
	cfg := sqlcommon.NewConfig(opts...)

	var ds *sqlcommon.Datastore
	var err error

	switch engine {
	case "sqlite":
		ds, err = sqlite.New(uri, cfg)
	case "mysql":
		ds, err = mysql.New(uri, cfg)
	case "postgres":
		ds, err = postgres.New(uri, cfg)
	default:
		t.Fatalf("'%s' is not a supported datastore engine", engine)
	}
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = ds.Close()
	})

	return ds
}
