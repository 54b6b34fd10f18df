// Package postgres provides the PostgreSQL engine, backed by pgx through its
// database/sql adapter.
package postgres

import (
	"errors"
	"fmt"
	"net/url"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver.

	"github.com/tablegate/tablegate/pkg/storage"
	"github.com/tablegate/tablegate/pkg/storage/sqlcommon"
)

// DriverName is the database/sql driver registered by pgx/v5/stdlib.
const DriverName = "pgx"

// SQLSTATE codes, see https://www.postgresql.org/docs/current/errcodes-appendix.html.
const (
	uniqueViolation        = "23505"
	connectionDoesNotExist = "08003"
	connectionFailure      = "08006"
	adminShutdown          = "57P01"
)

// Dialect is the PostgreSQL [storage.Dialect].
type Dialect struct{}

var _ storage.Dialect = Dialect{}

func (Dialect) Name() string {
	return "postgres"
}

func (Dialect) QuoteIdentifier(name string) string {
	return storage.QuoteWith(name, '"')
}

func (Dialect) PlaceholderFormat() sq.PlaceholderFormat {
	return sq.Dollar
}

// SupportsReturning is true: pgx does not implement LastInsertId, identities
// come back through INSERT ... RETURNING.
func (Dialect) SupportsReturning() bool {
	return true
}

func (Dialect) HandleSQLError(err error, args ...interface{}) error {
	return HandleSQLError(err, args...)
}

// PrepareDSN overrides the credentials of a postgres:// uri with the
// configured ones, keeping whichever part is not overridden.
func PrepareDSN(uri string, cfg *sqlcommon.Config) (string, error) {
	if cfg.Username == "" && cfg.Password == "" {
		return uri, nil
	}

	parsed, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("parse postgres connection uri: %w", err)
	}

	username := ""
	if cfg.Username != "" {
		username = cfg.Username
	} else if parsed.User != nil {
		username = parsed.User.Username()
	}

	switch {
	case cfg.Password != "":
		parsed.User = url.UserPassword(username, cfg.Password)
	case parsed.User != nil:
		if password, ok := parsed.User.Password(); ok {
			parsed.User = url.UserPassword(username, password)
		} else {
			parsed.User = url.User(username)
		}
	default:
		parsed.User = url.User(username)
	}

	return parsed.String(), nil
}

// New opens a PostgreSQL connection pool.
func New(uri string, cfg *sqlcommon.Config) (*sqlcommon.Datastore, error) {
	uri, err := PrepareDSN(uri, cfg)
	if err != nil {
		return nil, err
	}

	return sqlcommon.Open(DriverName, uri, Dialect{}, cfg)
}

// HandleSQLError processes an SQL error and converts it into a more
// specific error type based on the nature of the SQL error.
func HandleSQLError(err error, _ ...interface{}) error {
	if handled := storage.HandleSQLError(err); handled != nil {
		return handled
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return fmt.Errorf("%w: %w", storage.ErrCollision, err)
		case adminShutdown, connectionFailure, connectionDoesNotExist:
			return fmt.Errorf("%w: %w", storage.ErrConnectionClosed, err)
		}
	}

	return fmt.Errorf("sql error: %w", err)
}
