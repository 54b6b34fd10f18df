package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCollision if an item already exists within the table, i.e. a unique
	// or primary key constraint was violated.
	ErrCollision = errors.New("item already exists")

	// ErrNotFound if a single-row lookup matched nothing.
	ErrNotFound = errors.New("not found")

	// ErrConnectionClosed if the connection handle is closed or otherwise unusable.
	ErrConnectionClosed = errors.New("connection is closed")
)

// IsConnectionClosed reports whether err means the database handle can no
// longer be used. database/sql does not export its "database is closed"
// error, so that case is matched on the message.
func IsConnectionClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, ErrConnectionClosed) {
		return true
	}
	return strings.Contains(err.Error(), "sql: database is closed")
}

// HandleSQLError holds the classification shared by all dialects. It returns
// nil when err needs driver-specific inspection.
func HandleSQLError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	if IsConnectionClosed(err) {
		return fmt.Errorf("%w: %w", ErrConnectionClosed, err)
	}

	return nil
}
