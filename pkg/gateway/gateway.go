// Package gateway implements a table gateway: CRUD, aggregates and
// memory-bounded reads against one table, mapping rows to entities.
//
// Queries are squirrel builders. A gateway never opens or closes the
// connection it is given; *sql.DB, *sql.Tx and *sql.Conn all satisfy Conn.
package gateway

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"

	"github.com/tablegate/tablegate/pkg/entity"
	"github.com/tablegate/tablegate/pkg/logger"
	"github.com/tablegate/tablegate/pkg/memlimit"
	"github.com/tablegate/tablegate/pkg/storage"
	"github.com/tablegate/tablegate/pkg/storage/sqlcommon"
)

// Config holds the optional settings of a Gateway.
type Config struct {
	Prototype  entity.Entity
	EntityType string
	Registry   *entity.Registry

	Dialect storage.Dialect
	Logger  logger.Logger
	Guard   *memlimit.Guard

	// Columns is the writable column set. When empty it is read from the
	// table on the first insert.
	Columns []string
}

// Option defines a function type used for configuring a Gateway.
type Option func(*Config)

// WithPrototype makes every row an independent clone of prototype.
func WithPrototype(prototype entity.Entity) Option {
	return func(cfg *Config) {
		cfg.Prototype = prototype
	}
}

// WithEntityType makes every row a new instance of a named type looked up in
// the registry. A prototype takes precedence.
func WithEntityType(name string) Option {
	return func(cfg *Config) {
		cfg.EntityType = name
	}
}

// WithRegistry sets the registry WithEntityType resolves against. The
// default is entity.DefaultRegistry.
func WithRegistry(registry *entity.Registry) Option {
	return func(cfg *Config) {
		cfg.Registry = registry
	}
}

// WithDialect sets the database platform. It may be omitted when the
// connection is a *sqlcommon.Datastore.
func WithDialect(dialect storage.Dialect) Option {
	return func(cfg *Config) {
		cfg.Dialect = dialect
	}
}

func WithLogger(l logger.Logger) Option {
	return func(cfg *Config) {
		cfg.Logger = l
	}
}

// WithMemoryGuard shares a guard between gateways.
func WithMemoryGuard(guard *memlimit.Guard) Option {
	return func(cfg *Config) {
		cfg.Guard = guard
	}
}

// WithMemory builds a dedicated guard from opts.
func WithMemory(opts ...memlimit.Option) Option {
	return func(cfg *Config) {
		cfg.Guard = memlimit.New(opts...)
	}
}

// WithColumns fixes the writable column set instead of reading it from the table.
func WithColumns(columns ...string) Option {
	return func(cfg *Config) {
		cfg.Columns = columns
	}
}

// Gateway is a table gateway. The zero value is unconfigured and every
// operation on it fails with ErrConfiguration. A Gateway is safe for
// concurrent use.
type Gateway struct {
	conn    Conn
	table   string
	primary string
	dialect storage.Dialect
	builder sq.StatementBuilderType
	mapper  *entity.Mapper
	stream  *streamer
	logger  logger.Logger

	columns atomic.Pointer[columnSet]
}

// New returns a gateway for table, keyed by primary, sending statements
// through conn.
func New(conn Conn, table, primary string, opts ...Option) (*Gateway, error) {
	if conn == nil {
		return nil, fmt.Errorf("%w: nil connection", ErrConfiguration)
	}
	if table == "" || primary == "" {
		return nil, fmt.Errorf("%w: table and primary key are required", ErrConfiguration)
	}

	cfg := &Config{}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Dialect == nil {
		if ds, ok := conn.(*sqlcommon.Datastore); ok {
			cfg.Dialect = ds.Dialect
		}
	}
	if cfg.Dialect == nil {
		return nil, fmt.Errorf("%w: no dialect for table %s", ErrConfiguration, table)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.NewNoopLogger()
	}

	if cfg.Guard == nil {
		cfg.Guard = memlimit.New()
	}

	mapper, err := entity.NewMapper(cfg.Prototype, cfg.EntityType, cfg.Registry)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	log := cfg.Logger.With(zap.String("table", table))
	g := &Gateway{
		conn:    conn,
		table:   table,
		primary: primary,
		dialect: cfg.Dialect,
		builder: storage.StatementBuilder(cfg.Dialect),
		mapper:  mapper,
		logger:  log,
		stream: &streamer{
			mapper:  mapper,
			guard:   cfg.Guard,
			dialect: cfg.Dialect,
			logger:  log,
		},
	}

	if len(cfg.Columns) > 0 {
		set := newColumnSet(cfg.Columns)
		g.columns.Store(&set)
	}

	return g, nil
}

func (g *Gateway) ready() error {
	if g == nil || g.conn == nil || g.table == "" || g.primary == "" || g.dialect == nil || g.stream == nil {
		return ErrConfiguration
	}
	return nil
}

// Table is the name of the target table.
func (g *Gateway) Table() string {
	if g == nil {
		return ""
	}
	return g.table
}

// Primary is the name of the primary key column.
func (g *Gateway) Primary() string {
	if g == nil {
		return ""
	}
	return g.primary
}

func (g *Gateway) Conn() Conn {
	if g == nil {
		return nil
	}
	return g.conn
}

func (g *Gateway) Dialect() storage.Dialect {
	if g == nil {
		return nil
	}
	return g.dialect
}

// Quote quotes an identifier for the gateway's dialect.
func (g *Gateway) Quote(name string) string {
	if g == nil || g.dialect == nil {
		return name
	}
	return g.dialect.QuoteIdentifier(name)
}

// QueryBuilder returns SELECT * FROM <table>, ready to be refined and passed
// to any read or aggregate operation.
func (g *Gateway) QueryBuilder() sq.SelectBuilder {
	return g.statements().Select("*").From(g.Table())
}

// UpdateBuilder returns UPDATE <table> for Update.
func (g *Gateway) UpdateBuilder() sq.UpdateBuilder {
	return g.statements().Update(g.Table())
}

// DeleteBuilder returns DELETE FROM <table> for Delete.
func (g *Gateway) DeleteBuilder() sq.DeleteBuilder {
	return g.statements().Delete(g.Table())
}

func (g *Gateway) statements() sq.StatementBuilderType {
	if g == nil || g.dialect == nil {
		return sq.StatementBuilder
	}
	return g.builder
}

// compile renders q with the dialect's placeholders. A nil q selects the whole table.
func (g *Gateway) compile(q sq.Sqlizer) (string, []any, error) {
	format := g.dialect.PlaceholderFormat()
	rewrite := false
	switch b := q.(type) {
	case nil:
		q = g.QueryBuilder()
	case sq.SelectBuilder:
		q = b.PlaceholderFormat(format)
	case *sq.SelectBuilder:
		if b == nil {
			q = g.QueryBuilder()
		} else {
			q = b.PlaceholderFormat(format)
		}
	case sq.UpdateBuilder:
		q = b.PlaceholderFormat(format)
	case sq.DeleteBuilder:
		q = b.PlaceholderFormat(format)
	case sq.InsertBuilder:
		q = b.PlaceholderFormat(format)
	default:
		// raw expressions and foreign Sqlizers render with "?"
		rewrite = true
	}

	query, args, err := q.ToSql()
	if err != nil {
		return "", nil, err
	}

	if rewrite {
		query, err = format.ReplacePlaceholders(query)
		if err != nil {
			return "", nil, err
		}
	}
	return query, args, nil
}

// query compiles and runs q, returning the open cursor.
func (g *Gateway) query(ctx context.Context, operation string, q sq.Sqlizer) (*sql.Rows, error) {
	query, args, err := g.compile(q)
	if err != nil {
		return nil, fmt.Errorf("%w: build query: %w", ErrQueryExecution, err)
	}

	g.logger.DebugWithContext(ctx, "gateway query", zap.String("operation", operation), zap.String("sql", query))

	defer observeQuery(operation, time.Now())
	rows, err := g.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(ErrQueryExecution, g.dialect, err)
	}
	return rows, nil
}
