package storage

import (
	"os"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"

	"github.com/tablegate/tablegate/assets"
	mysqlstore "github.com/tablegate/tablegate/pkg/storage/mysql"
)

// MySQLURIEnv names the variable holding the DSN of a disposable MySQL database.
const MySQLURIEnv = "TABLEGATE_MYSQL_URI"

type mySQLTestContainer struct {
	cfg     *mysql.Config
	version int64
}

// NewMySQLTestContainer returns an implementation of the DatastoreTestContainer interface
// for MySQL.
func NewMySQLTestContainer() *mySQLTestContainer {
	return &mySQLTestContainer{}
}

func (m *mySQLTestContainer) GetDatabaseSchemaVersion() int64 {
	return m.version
}

// RunMySQLTestContainer connects to the database named by TABLEGATE_MYSQL_URI, waits
// until it answers, applies the migrations and returns a bootstrapped implementation of
// the DatastoreTestContainer interface wired up for the MySQL datastore engine. The test
// is skipped when the variable is unset. Fixture tables are dropped again on cleanup.
func (m *mySQLTestContainer) RunMySQLTestContainer(t testing.TB) DatastoreTestContainer {
	uri := os.Getenv(MySQLURIEnv)
	if uri == "" {
		t.Skipf("%s not set, skipping MySQL tests", MySQLURIEnv)
	}

	cfg, err := mysql.ParseDSN(uri)
	require.NoError(t, err)
	cfg.ParseTime = true
	m.cfg = cfg

	require.NoError(t, waitForDatabase(mysqlstore.DriverName, m.GetConnectionURI(true)))

	m.version = migrate(t, mysqlstore.DriverName, m.GetConnectionURI(true), assets.MySQLMigrationDir)
	t.Cleanup(func() {
		reset(t, mysqlstore.DriverName, m.GetConnectionURI(true), assets.MySQLMigrationDir)
	})

	return m
}

// GetConnectionURI returns the MySQL DSN, with or without credentials.
func (m *mySQLTestContainer) GetConnectionURI(includeCredentials bool) string {
	cfg := m.cfg.Clone()
	if !includeCredentials {
		cfg.User = ""
		cfg.Passwd = ""
	}
	return cfg.FormatDSN()
}

func (m *mySQLTestContainer) GetUsername() string {
	return m.cfg.User
}

func (m *mySQLTestContainer) GetPassword() string {
	return m.cfg.Passwd
}
