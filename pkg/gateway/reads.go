package gateway

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tablegate/tablegate/pkg/entity"
)

func (g *Gateway) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "gateway."+name, trace.WithAttributes(
		attribute.String("table", g.table),
		attribute.String("dialect", g.dialect.Name()),
	))
}

// Fetch returns the first entity matched by q, or nil when nothing matches.
// A nil q selects from the whole table.
func (g *Gateway) Fetch(ctx context.Context, q sq.Sqlizer) (entity.Entity, error) {
	if err := g.ready(); err != nil {
		return nil, err
	}

	ctx, span := g.startSpan(ctx, "Fetch")
	defer span.End()

	rows, err := g.query(ctx, "fetch", q)
	if err != nil {
		return nil, traceError(span, err)
	}

	e, err := g.stream.one(rows)
	return e, traceError(span, err)
}

// Find returns the entity whose primary key equals id, or nil.
func (g *Gateway) Find(ctx context.Context, id any) (entity.Entity, error) {
	if err := g.ready(); err != nil {
		return nil, err
	}

	return g.Fetch(ctx, g.QueryBuilder().Where(sq.Eq{g.Quote(g.primary): id}).Limit(1))
}

// Get buffers every entity matched by q. The read is aborted with an
// *OverflowError when the memory guard runs out of headroom; no partial
// result is returned. An empty result is an empty, non-nil slice.
func (g *Gateway) Get(ctx context.Context, q sq.Sqlizer) ([]entity.Entity, error) {
	if err := g.ready(); err != nil {
		return nil, err
	}

	ctx, span := g.startSpan(ctx, "Get")
	defer span.End()

	rows, err := g.query(ctx, "get", q)
	if err != nil {
		return nil, traceError(span, err)
	}

	entities, err := g.stream.all(rows)
	if err != nil {
		return nil, traceError(span, err)
	}

	span.SetAttributes(attribute.Int("rows", len(entities)))
	return entities, nil
}

// GetUnbuffered runs q and returns a lazy iterator over its result. The
// statement is executed before GetUnbuffered returns.
func (g *Gateway) GetUnbuffered(ctx context.Context, q sq.Sqlizer) (*Iterator, error) {
	if err := g.ready(); err != nil {
		return nil, err
	}

	ctx, span := g.startSpan(ctx, "GetUnbuffered")
	defer span.End()

	rows, err := g.query(ctx, "get_unbuffered", q)
	if err != nil {
		return nil, traceError(span, err)
	}

	return g.stream.lazy(rows), nil
}

// Column returns the first column of the first row matched by q as a
// string. ok is false when there is no row or the value is NULL.
func (g *Gateway) Column(ctx context.Context, q sq.Sqlizer) (value string, ok bool, err error) {
	if err := g.ready(); err != nil {
		return "", false, err
	}

	ctx, span := g.startSpan(ctx, "Column")
	defer span.End()

	rows, err := g.query(ctx, "column", q)
	if err != nil {
		return "", false, traceError(span, err)
	}

	value, ok, err = g.stream.scalar(rows, ErrQueryExecution)
	return value, ok, traceError(span, err)
}
