//go:generate mockgen -source conn.go -destination ../../internal/mocks/mock_conn.go -package mocks Conn
package gateway

import (
	"context"
	"database/sql"
)

// Conn is the part of database/sql a gateway sends statements through.
type Conn interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

var (
	_ Conn = (*sql.DB)(nil)
	_ Conn = (*sql.Tx)(nil)
	_ Conn = (*sql.Conn)(nil)
)
