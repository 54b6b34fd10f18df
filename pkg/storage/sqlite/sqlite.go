// Package sqlite provides the SQLite engine, backed by the pure Go
// modernc.org/sqlite driver.
package sqlite

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/tablegate/tablegate/pkg/storage"
	"github.com/tablegate/tablegate/pkg/storage/sqlcommon"
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

// Dialect is the SQLite [storage.Dialect].
type Dialect struct{}

var _ storage.Dialect = Dialect{}

func (Dialect) Name() string {
	return "sqlite"
}

func (Dialect) QuoteIdentifier(name string) string {
	return storage.QuoteWith(name, '"')
}

func (Dialect) PlaceholderFormat() sq.PlaceholderFormat {
	return sq.Question
}

// SupportsReturning is false: LastInsertId reports the rowid of the inserted row.
func (Dialect) SupportsReturning() bool {
	return false
}

func (Dialect) HandleSQLError(err error, args ...interface{}) error {
	return HandleSQLError(err, args...)
}

// PrepareDSN sets journal mode, busy timeout and transaction locking pragmas
// on a raw DSN unless the DSN already specifies them.
func PrepareDSN(uri string) (string, error) {
	query := url.Values{}
	var err error

	if i := strings.Index(uri, "?"); i != -1 {
		query, err = url.ParseQuery(uri[i+1:])
		if err != nil {
			return uri, fmt.Errorf("error parsing dsn: %w", err)
		}

		uri = uri[:i]
	}

	foundJournalMode := false
	foundBusyTimeout := false
	for _, val := range query["_pragma"] {
		if strings.HasPrefix(val, "journal_mode") {
			foundJournalMode = true
		} else if strings.HasPrefix(val, "busy_timeout") {
			foundBusyTimeout = true
		}
	}

	if !foundJournalMode {
		query.Add("_pragma", "journal_mode(WAL)")
	}
	if !foundBusyTimeout {
		query.Add("_pragma", "busy_timeout(100)")
	}

	if !query.Has("_txlock") {
		query.Set("_txlock", "immediate")
	}

	uri += "?" + query.Encode()

	return uri, nil
}

// New opens a SQLite database file.
func New(uri string, cfg *sqlcommon.Config) (*sqlcommon.Datastore, error) {
	uri, err := PrepareDSN(uri)
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

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code()&0xFF == sqlite3.SQLITE_CONSTRAINT {
		return fmt.Errorf("%w: %w", storage.ErrCollision, err)
	}

	return fmt.Errorf("sql error: %w", err)
}
