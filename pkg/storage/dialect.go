package storage

import (
	sq "github.com/Masterminds/squirrel"
)

// Dialect captures what the gateway needs to know about a database platform.
type Dialect interface {
	// Name is the engine name as used in configuration, e.g. "sqlite".
	Name() string

	// QuoteIdentifier quotes a table or column name.
	QuoteIdentifier(name string) string

	// PlaceholderFormat is the bind parameter style of the driver.
	PlaceholderFormat() sq.PlaceholderFormat

	// SupportsReturning reports whether INSERT ... RETURNING yields the
	// generated identity. Platforms without it report the identity through
	// sql.Result.LastInsertId.
	SupportsReturning() bool

	// HandleSQLError converts a driver error into one of the storage errors
	// where possible, keeping the original error wrapped.
	HandleSQLError(err error, args ...interface{}) error
}

// StatementBuilder returns a squirrel statement builder using the dialect's
// placeholder format.
func StatementBuilder(d Dialect) sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(d.PlaceholderFormat())
}

// QuoteWith doubles every occurrence of quote inside name and wraps the
// result in quotes. Dotted names are quoted part by part.
func QuoteWith(name string, quote byte) string {
	q := string(quote)
	out := make([]byte, 0, len(name)+2)
	out = append(out, quote)
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch c {
		case '.':
			out = append(out, quote, '.', quote)
			continue
		case quote:
			out = append(out, quote)
		}
		out = append(out, c)
	}
	out = append(out, q...)
	return string(out)
}
