// Package sqlcommon holds the connection setup shared by the SQL engines:
// configuration options, pool tuning, readiness checks and metrics.
package sqlcommon

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/tablegate/tablegate/pkg/logger"
	"github.com/tablegate/tablegate/pkg/storage"
)

const defaultReadyTimeout = 1 * time.Minute

// Config defines the configuration parameters
// for setting up and managing a sql connection.
type Config struct {
	Username string
	Password string
	Logger   logger.Logger

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration

	// ReadyTimeout bounds how long Open waits for the database to answer a ping.
	ReadyTimeout time.Duration

	ExportMetrics bool
}

// DatastoreOption defines a function type
// used for configuring a Config object.
type DatastoreOption func(*Config)

// WithUsername returns a DatastoreOption that overrides the username of the connection uri.
func WithUsername(username string) DatastoreOption {
	return func(config *Config) {
		config.Username = username
	}
}

// WithPassword returns a DatastoreOption that overrides the password of the connection uri.
func WithPassword(password string) DatastoreOption {
	return func(config *Config) {
		config.Password = password
	}
}

// WithLogger returns a DatastoreOption that sets the Logger in the Config.
func WithLogger(l logger.Logger) DatastoreOption {
	return func(cfg *Config) {
		cfg.Logger = l
	}
}

// WithMaxOpenConns returns a DatastoreOption that sets the
// maximum number of open connections in the Config.
func WithMaxOpenConns(c int) DatastoreOption {
	return func(cfg *Config) {
		cfg.MaxOpenConns = c
	}
}

// WithMaxIdleConns returns a DatastoreOption that sets the
// maximum number of idle connections in the Config.
func WithMaxIdleConns(c int) DatastoreOption {
	return func(cfg *Config) {
		cfg.MaxIdleConns = c
	}
}

// WithConnMaxIdleTime returns a DatastoreOption that sets
// the maximum idle time for a connection in the Config.
func WithConnMaxIdleTime(d time.Duration) DatastoreOption {
	return func(cfg *Config) {
		cfg.ConnMaxIdleTime = d
	}
}

// WithConnMaxLifetime returns a DatastoreOption that sets
// the maximum lifetime for a connection in the Config.
func WithConnMaxLifetime(d time.Duration) DatastoreOption {
	return func(cfg *Config) {
		cfg.ConnMaxLifetime = d
	}
}

// WithReadyTimeout returns a DatastoreOption that bounds the initial ping retries.
func WithReadyTimeout(d time.Duration) DatastoreOption {
	return func(cfg *Config) {
		cfg.ReadyTimeout = d
	}
}

// WithMetrics returns a DatastoreOption that
// enables the export of connection pool metrics.
func WithMetrics() DatastoreOption {
	return func(cfg *Config) {
		cfg.ExportMetrics = true
	}
}

// NewConfig creates a new Config instance with default values
// and applies any provided DatastoreOption modifications.
func NewConfig(opts ...DatastoreOption) *Config {
	cfg := &Config{}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.NewNoopLogger()
	}

	if cfg.ReadyTimeout == 0 {
		cfg.ReadyTimeout = defaultReadyTimeout
	}

	return cfg
}

// Datastore is an open connection pool together with the dialect of the
// engine behind it. It satisfies gateway.Conn through the embedded *sql.DB.
type Datastore struct {
	*sql.DB
	Dialect storage.Dialect

	collector prometheus.Collector
}

// Close unregisters the pool metrics, if any, and closes the pool.
func (d *Datastore) Close() error {
	if d.collector != nil {
		prometheus.Unregister(d.collector)
	}
	return d.DB.Close()
}

// Open opens a pool for driverName, applies the pool settings of cfg and
// waits, with exponential backoff, until the database answers a ping.
func Open(driverName, uri string, dialect storage.Dialect, cfg *Config) (*Datastore, error) {
	db, err := sql.Open(driverName, uri)
	if err != nil {
		return nil, fmt.Errorf("initialize %s connection: %w", dialect.Name(), err)
	}

	ds, err := NewWithDB(db, dialect, cfg)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return ds, nil
}

// NewWithDB wraps an already opened pool.
func NewWithDB(db *sql.DB, dialect storage.Dialect, cfg *Config) (*Datastore, error) {
	if cfg.MaxOpenConns != 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if cfg.MaxIdleConns != 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	if cfg.ConnMaxIdleTime != 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	if cfg.ConnMaxLifetime != 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := WaitReady(context.Background(), db, cfg); err != nil {
		return nil, fmt.Errorf("initialize %s connection: %w", dialect.Name(), err)
	}

	var collector prometheus.Collector
	if cfg.ExportMetrics {
		collector = collectors.NewDBStatsCollector(db, dialect.Name())
		if err := prometheus.Register(collector); err != nil {
			return nil, fmt.Errorf("initialize metrics: %w", err)
		}
	}

	return &Datastore{
		DB:        db,
		Dialect:   dialect,
		collector: collector,
	}, nil
}

// WaitReady pings db until it answers or cfg.ReadyTimeout elapses.
func WaitReady(ctx context.Context, db *sql.DB, cfg *Config) error {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = cfg.ReadyTimeout
	attempt := 1

	err := backoff.Retry(func() error {
		err := db.PingContext(ctx)
		if err != nil {
			if storage.IsConnectionClosed(err) {
				return backoff.Permanent(err)
			}
			cfg.Logger.Info("waiting for database", zap.Int("attempt", attempt), zap.Error(err))
			attempt++
			return err
		}
		return nil
	}, backoff.WithContext(policy, ctx))
	if err != nil {
		return fmt.Errorf("ping db: %w", err)
	}

	return nil
}
