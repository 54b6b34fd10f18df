package gateway

import (
	"context"
	"database/sql"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"time"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"

	"github.com/tablegate/tablegate/pkg/entity"
)

type columnSet map[string]struct{}

func newColumnSet(columns []string) columnSet {
	set := make(columnSet, len(columns))
	for _, c := range columns {
		set[c] = struct{}{}
	}
	return set
}

func (s columnSet) has(column string) bool {
	_, ok := s[column]
	return ok
}

// writableColumns returns the columns of the table. Without WithColumns they
// are read once from an empty select and kept; a failed read is retried on
// the next write.
func (g *Gateway) writableColumns(ctx context.Context) (columnSet, error) {
	if set := g.columns.Load(); set != nil {
		return *set, nil
	}

	rows, err := g.query(ctx, "columns", g.QueryBuilder().Where("1 = 0"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, g.stream.queryError(err)
	}

	set := newColumnSet(names)
	g.columns.Store(&set)
	return set, nil
}

// payload keeps the fields naming a table column, with quoted column names,
// in a stable order. Unknown fields are dropped with a warning.
func (g *Gateway) payload(ctx context.Context, fields map[string]any) ([]string, []any, error) {
	if len(fields) == 0 {
		return nil, nil, fmt.Errorf("%w: no fields to write to %s", ErrInvalidWrite, g.table)
	}

	writable, err := g.writableColumns(ctx)
	if err != nil {
		return nil, nil, err
	}

	names := slices.Sorted(maps.Keys(fields))
	columns := make([]string, 0, len(names))
	values := make([]any, 0, len(names))
	var dropped []string
	for _, name := range names {
		if !writable.has(name) {
			dropped = append(dropped, name)
			continue
		}
		columns = append(columns, g.Quote(name))
		values = append(values, fields[name])
	}

	if len(columns) == 0 {
		return nil, nil, fmt.Errorf("%w: none of %v is a column of %s", ErrInvalidWrite, names, g.table)
	}

	if len(dropped) > 0 {
		g.logger.WarnWithContext(ctx, "dropping unknown columns from write", zap.Strings("columns", dropped))
	}

	return columns, values, nil
}

// exec compiles and runs a write statement.
func (g *Gateway) exec(ctx context.Context, operation string, q sq.Sqlizer) (sql.Result, error) {
	query, args, err := g.compile(q)
	if err != nil {
		return nil, fmt.Errorf("%w: build %s: %w", ErrInvalidWrite, operation, err)
	}

	g.logger.DebugWithContext(ctx, "gateway exec", zap.String("operation", operation), zap.String("sql", query))

	defer observeQuery(operation, time.Now())
	result, err := g.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, classify(ErrWrite, g.dialect, err)
	}
	return result, nil
}

func (g *Gateway) affected(ctx context.Context, operation string, q sq.Sqlizer) (string, error) {
	result, err := g.exec(ctx, operation, q)
	if err != nil {
		return "", err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return strconv.FormatInt(n, 10), nil
}

// Insert writes one row and returns its generated primary key. Fields that
// are not columns of the table are dropped; a payload left without any column
// fails with ErrInvalidWrite before a statement is sent. The id is "0" when
// the driver reports none.
func (g *Gateway) Insert(ctx context.Context, fields map[string]any) (string, error) {
	if err := g.ready(); err != nil {
		return "", err
	}

	ctx, span := g.startSpan(ctx, "Insert")
	defer span.End()

	columns, values, err := g.payload(ctx, fields)
	if err != nil {
		return "", traceError(span, err)
	}

	ib := g.builder.Insert(g.table).Columns(columns...).Values(values...)

	if g.dialect.SupportsReturning() {
		id, err := g.insertReturning(ctx, ib)
		return id, traceError(span, err)
	}

	result, err := g.exec(ctx, "insert", ib)
	if err != nil {
		return "", traceError(span, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		g.logger.DebugWithContext(ctx, "driver reported no insert id", zap.Error(err))
		return "0", nil
	}
	return strconv.FormatInt(id, 10), nil
}

func (g *Gateway) insertReturning(ctx context.Context, ib sq.InsertBuilder) (string, error) {
	query, args, err := g.compile(ib.Suffix("RETURNING " + g.Quote(g.primary)))
	if err != nil {
		return "", fmt.Errorf("%w: build insert: %w", ErrInvalidWrite, err)
	}

	g.logger.DebugWithContext(ctx, "gateway exec", zap.String("operation", "insert"), zap.String("sql", query))

	defer observeQuery("insert", time.Now())
	rows, err := g.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return "", classify(ErrWrite, g.dialect, err)
	}

	id, ok, err := g.stream.scalar(rows, ErrWrite)
	if err != nil {
		return "", err
	}
	if !ok {
		return "0", nil
	}
	return id, nil
}

// Update targets q at the gateway's table, runs it and returns the number of
// affected rows. q is a value, so the caller's builder is left untouched.
func (g *Gateway) Update(ctx context.Context, q sq.UpdateBuilder) (string, error) {
	if err := g.ready(); err != nil {
		return "", err
	}

	ctx, span := g.startSpan(ctx, "Update")
	defer span.End()

	n, err := g.affected(ctx, "update", q.Table(g.table))
	return n, traceError(span, err)
}

// Delete targets q at the gateway's table, runs it and returns the number of
// affected rows.
func (g *Gateway) Delete(ctx context.Context, q sq.DeleteBuilder) (string, error) {
	if err := g.ready(); err != nil {
		return "", err
	}

	ctx, span := g.startSpan(ctx, "Delete")
	defer span.End()

	n, err := g.affected(ctx, "delete", q.From(g.table))
	return n, traceError(span, err)
}

// Persist inserts e when its primary key is absent or nil and returns the new
// id. Otherwise it updates the row with that key and returns the affected
// count, which is "0" when no such row exists.
func (g *Gateway) Persist(ctx context.Context, e entity.Entity) (string, error) {
	if err := g.ready(); err != nil {
		return "", err
	}
	if e == nil {
		return "", fmt.Errorf("%w: nil entity", ErrInvalidWrite)
	}

	fields := g.mapper.ToRow(e, g.primary).Map()

	id, ok := entity.Value(e, g.primary)
	if !ok || id == nil {
		return g.Insert(ctx, fields)
	}

	ctx, span := g.startSpan(ctx, "Persist")
	defer span.End()

	columns, values, err := g.payload(ctx, fields)
	if err != nil {
		return "", traceError(span, err)
	}

	ub := g.UpdateBuilder().Where(sq.Eq{g.Quote(g.primary): id})
	for i, column := range columns {
		ub = ub.Set(column, values[i])
	}

	n, err := g.affected(ctx, "update", ub)
	return n, traceError(span, err)
}
