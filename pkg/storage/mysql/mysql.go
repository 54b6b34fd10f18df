// Package mysql provides the MySQL engine, backed by github.com/go-sql-driver/mysql.
package mysql

import (
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/go-sql-driver/mysql"

	"github.com/tablegate/tablegate/pkg/storage"
	"github.com/tablegate/tablegate/pkg/storage/sqlcommon"
)

// DriverName is the database/sql driver registered by go-sql-driver/mysql.
const DriverName = "mysql"

const errDuplicateEntry = 1062

// Dialect is the MySQL [storage.Dialect].
type Dialect struct{}

var _ storage.Dialect = Dialect{}

func (Dialect) Name() string {
	return "mysql"
}

func (Dialect) QuoteIdentifier(name string) string {
	return storage.QuoteWith(name, '`')
}

func (Dialect) PlaceholderFormat() sq.PlaceholderFormat {
	return sq.Question
}

// SupportsReturning is false: the driver reports AUTO_INCREMENT values through LastInsertId.
func (Dialect) SupportsReturning() bool {
	return false
}

func (Dialect) HandleSQLError(err error, args ...interface{}) error {
	return HandleSQLError(err, args...)
}

// PrepareDSN overrides the credentials of uri with the configured ones, if any.
func PrepareDSN(uri string, cfg *sqlcommon.Config) (string, error) {
	if cfg.Username == "" && cfg.Password == "" {
		return uri, nil
	}

	dsnCfg, err := mysql.ParseDSN(uri)
	if err != nil {
		return "", fmt.Errorf("failed to parse mysql connection dsn: %w", err)
	}

	if cfg.Username != "" {
		dsnCfg.User = cfg.Username
	}
	if cfg.Password != "" {
		dsnCfg.Passwd = cfg.Password
	}

	return dsnCfg.FormatDSN(), nil
}

// New opens a MySQL connection pool.
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

	if errors.Is(err, mysql.ErrInvalidConn) {
		return fmt.Errorf("%w: %w", storage.ErrConnectionClosed, err)
	}

	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == errDuplicateEntry {
		return fmt.Errorf("%w: %w", storage.ErrCollision, err)
	}

	return fmt.Errorf("sql error: %w", err)
}
