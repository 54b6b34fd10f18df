package gateway

import (
	"context"

	sq "github.com/Masterminds/squirrel"
)

// Count returns COUNT(column) over the rows matched by q. q is copied, never
// modified. A nil q means the whole table and an empty column means the
// quoted table.primary pair. An empty or all-NULL result yields "0".
func (g *Gateway) Count(ctx context.Context, q *sq.SelectBuilder, column string) (string, error) {
	return g.aggregate(ctx, "COUNT", q, column)
}

// Sum returns SUM(column), see Count.
func (g *Gateway) Sum(ctx context.Context, q *sq.SelectBuilder, column string) (string, error) {
	return g.aggregate(ctx, "SUM", q, column)
}

// Min returns MIN(column), see Count.
func (g *Gateway) Min(ctx context.Context, q *sq.SelectBuilder, column string) (string, error) {
	return g.aggregate(ctx, "MIN", q, column)
}

// Max returns MAX(column), see Count.
func (g *Gateway) Max(ctx context.Context, q *sq.SelectBuilder, column string) (string, error) {
	return g.aggregate(ctx, "MAX", q, column)
}

func (g *Gateway) aggregate(ctx context.Context, fn string, q *sq.SelectBuilder, column string) (string, error) {
	if err := g.ready(); err != nil {
		return "", err
	}

	var sb sq.SelectBuilder
	if q != nil {
		sb = *q
	} else {
		sb = g.QueryBuilder()
	}

	if column == "" {
		column = g.Quote(g.table + "." + g.primary)
	}

	value, ok, err := g.Column(ctx, sb.RemoveColumns().Column(fn+"("+column+")"))
	if err != nil {
		return "", err
	}
	if !ok {
		return "0", nil
	}
	return value, nil
}
