package sqlcommon

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/tablegate/tablegate/pkg/logger"
	"github.com/tablegate/tablegate/pkg/storage"
)

type testDialect struct{}

func (testDialect) Name() string                           { return "sqlcommon_test" }
func (testDialect) QuoteIdentifier(name string) string     { return storage.QuoteWith(name, '"') }
func (testDialect) PlaceholderFormat() sq.PlaceholderFormat { return sq.Question }
func (testDialect) SupportsReturning() bool                { return false }
func (testDialect) HandleSQLError(err error, _ ...interface{}) error {
	return err
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig()
	require.NotNil(t, cfg.Logger)
	require.Equal(t, defaultReadyTimeout, cfg.ReadyTimeout)
	require.False(t, cfg.ExportMetrics)

	l := logger.NewNoopLogger()
	cfg = NewConfig(
		WithUsername("user"),
		WithPassword("secret"),
		WithLogger(l),
		WithMaxOpenConns(4),
		WithMaxIdleConns(2),
		WithConnMaxIdleTime(time.Second),
		WithConnMaxLifetime(time.Minute),
		WithReadyTimeout(5*time.Second),
		WithMetrics(),
	)
	require.Equal(t, &Config{
		Username:        "user",
		Password:        "secret",
		Logger:          l,
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxIdleTime: time.Second,
		ConnMaxLifetime: time.Minute,
		ReadyTimeout:    5 * time.Second,
		ExportMetrics:   true,
	}, cfg)
}

func TestOpen(t *testing.T) {
	uri := filepath.Join(t.TempDir(), "open.db")

	t.Run("applies_pool_settings", func(t *testing.T) {
		ds, err := Open("sqlite", uri, testDialect{}, NewConfig(WithMaxOpenConns(3)))
		require.NoError(t, err)
		defer ds.Close()

		require.Equal(t, 3, ds.Stats().MaxOpenConnections)
		require.Equal(t, "sqlcommon_test", ds.Dialect.Name())
	})

	t.Run("registers_and_unregisters_metrics", func(t *testing.T) {
		ds, err := Open("sqlite", uri, testDialect{}, NewConfig(WithMetrics()))
		require.NoError(t, err)
		require.NotNil(t, ds.collector)

		// a second registration of the same collector name is rejected
		_, err = Open("sqlite", uri, testDialect{}, NewConfig(WithMetrics()))
		require.ErrorContains(t, err, "initialize metrics")

		require.NoError(t, ds.Close())
		require.False(t, prometheus.Unregister(ds.collector))
	})

	t.Run("unknown_driver", func(t *testing.T) {
		_, err := Open("nope", uri, testDialect{}, NewConfig())
		require.ErrorContains(t, err, "initialize sqlcommon_test connection")
	})
}

func TestWaitReadyStopsOnClosedPool(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "closed.db"))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	start := time.Now()
	err = WaitReady(context.Background(), db, NewConfig(WithReadyTimeout(time.Minute)))
	require.Error(t, err)
	require.Less(t, time.Since(start), 10*time.Second)
}
