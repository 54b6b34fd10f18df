package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"

	"github.com/tablegate/tablegate/assets"
	"github.com/tablegate/tablegate/pkg/storage/sqlite"
)

type sqliteTestContainer struct {
	path    string
	version int64
}

// NewSqliteTestContainer returns an implementation of the DatastoreTestContainer interface
// for SQLite.
func NewSqliteTestContainer() *sqliteTestContainer {
	return &sqliteTestContainer{}
}

func (m *sqliteTestContainer) GetDatabaseSchemaVersion() int64 {
	return m.version
}

// RunSqliteTestDatabase creates a sqlite database file, migrates it and returns a
// bootstrapped implementation of the DatastoreTestContainer interface wired up for the
// sqlite datastore engine. A file is used because every connection to ":memory:" sees
// its own database.
func (m *sqliteTestContainer) RunSqliteTestDatabase(t testing.TB) DatastoreTestContainer {
	dbDir, err := os.MkdirTemp("", "tablegate-test-sqlite-*")
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, os.RemoveAll(dbDir)) })

	m.path = filepath.Join(dbDir, "database.db")

	m.version = migrate(t, sqlite.DriverName, m.GetConnectionURI(true), assets.SqliteMigrationDir)

	return m
}

// GetConnectionURI returns the sqlite connection uri for the test database.
func (m *sqliteTestContainer) GetConnectionURI(includeCredentials bool) string {
	return fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(100)", m.path)
}

func (m *sqliteTestContainer) GetUsername() string {
	return ""
}

func (m *sqliteTestContainer) GetPassword() string {
	return ""
}

// migrate applies every migration in dir and returns the resulting schema version.
// goose derives its dialect from driverName.
func migrate(t testing.TB, driverName, uri, dir string) int64 {
	t.Helper()

	goose.SetLogger(goose.NopLogger())

	db, err := goose.OpenDBWithDriver(driverName, uri)
	require.NoError(t, err)
	defer db.Close()

	goose.SetBaseFS(assets.EmbedMigrations)

	require.NoError(t, goose.Up(db, dir))

	version, err := goose.GetDBVersion(db)
	require.NoError(t, err)

	return version
}

// reset rolls back every migration in dir, for databases that outlive the test.
func reset(t testing.TB, driverName, uri, dir string) {
	t.Helper()

	db, err := goose.OpenDBWithDriver(driverName, uri)
	require.NoError(t, err)
	defer db.Close()

	goose.SetBaseFS(assets.EmbedMigrations)

	require.NoError(t, goose.Reset(db, dir))
}
