package entity

import (
	"database/sql"
	"slices"
)

// Row is one raw result row: column names in result order and their values.
type Row struct {
	columns []string
	values  map[string]any
}

// NewRow returns an empty row with room for n columns.
func NewRow(n int) *Row {
	return &Row{
		columns: make([]string, 0, n),
		values:  make(map[string]any, n),
	}
}

// RowOf builds a row from alternating column/value pairs. It is meant for
// tests and literals; a trailing column without a value is ignored.
func RowOf(pairs ...any) *Row {
	r := NewRow(len(pairs) / 2)
	for i := 0; i+1 < len(pairs); i += 2 {
		r.Set(pairs[i].(string), pairs[i+1])
	}
	return r
}

// Set appends a column or replaces the value of an existing one.
func (r *Row) Set(column string, value any) {
	if _, ok := r.values[column]; !ok {
		r.columns = append(r.columns, column)
	}
	r.values[column] = value
}

// Get returns the value of a column and whether the column is present.
func (r *Row) Get(column string) (any, bool) {
	v, ok := r.values[column]
	return v, ok
}

// Columns returns the column names in order.
func (r *Row) Columns() []string {
	return slices.Clone(r.columns)
}

func (r *Row) Len() int {
	return len(r.columns)
}

// Map returns the row as a plain map, for handing to a query builder.
func (r *Row) Map() map[string]any {
	m := make(map[string]any, len(r.values))
	for k, v := range r.values {
		m[k] = v
	}
	return m
}

// ScanRow reads the current row of rows. columns must be the result of
// rows.Columns(); it is passed in so callers can resolve it once per result set.
func ScanRow(rows *sql.Rows, columns []string) (*Row, error) {
	values := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}

	if err := rows.Scan(dest...); err != nil {
		return nil, err
	}

	row := NewRow(len(columns))
	for i, c := range columns {
		row.Set(c, Normalize(values[i]))
	}

	return row, nil
}
