package storage

import (
	"net/url"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tablegate/tablegate/assets"
	"github.com/tablegate/tablegate/pkg/storage/postgres"
)

// PostgresURIEnv names the variable holding the uri of a disposable PostgreSQL database.
const PostgresURIEnv = "TABLEGATE_POSTGRES_URI"

type postgresTestContainer struct {
	uri     *url.URL
	version int64
}

// NewPostgresTestContainer returns an implementation of the DatastoreTestContainer interface
// for Postgres.
func NewPostgresTestContainer() *postgresTestContainer {
	return &postgresTestContainer{}
}

func (p *postgresTestContainer) GetDatabaseSchemaVersion() int64 {
	return p.version
}

// RunPostgresTestContainer connects to the database named by TABLEGATE_POSTGRES_URI,
// waits until it answers, applies the migrations and returns a bootstrapped implementation
// of the DatastoreTestContainer interface wired up for the Postgres datastore engine. The
// test is skipped when the variable is unset. Fixture tables are dropped again on cleanup.
func (p *postgresTestContainer) RunPostgresTestContainer(t testing.TB) DatastoreTestContainer {
	uri := os.Getenv(PostgresURIEnv)
	if uri == "" {
		t.Skipf("%s not set, skipping Postgres tests", PostgresURIEnv)
	}

	parsed, err := url.Parse(uri)
	require.NoError(t, err)
	p.uri = parsed

	require.NoError(t, waitForDatabase(postgres.DriverName, p.GetConnectionURI(true)))

	p.version = migrate(t, postgres.DriverName, p.GetConnectionURI(true), assets.PostgresMigrationDir)
	t.Cleanup(func() {
		reset(t, postgres.DriverName, p.GetConnectionURI(true), assets.PostgresMigrationDir)
	})

	return p
}

// GetConnectionURI returns the Postgres uri, with or without credentials.
func (p *postgresTestContainer) GetConnectionURI(includeCredentials bool) string {
	u := *p.uri
	if !includeCredentials {
		u.User = nil
	}
	return u.String()
}

func (p *postgresTestContainer) GetUsername() string {
	if p.uri.User == nil {
		return ""
	}
	return p.uri.User.Username()
}

func (p *postgresTestContainer) GetPassword() string {
	if p.uri.User == nil {
		return ""
	}
	password, _ := p.uri.User.Password()
	return password
}
