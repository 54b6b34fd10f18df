// Package util provides common utilities for spf13/cobra CLI utilities
// that can be used for various commands within this project.
package util

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/tablegate/tablegate/pkg/logger"
	"github.com/tablegate/tablegate/pkg/memlimit"
	"github.com/tablegate/tablegate/pkg/storage/mysql"
	"github.com/tablegate/tablegate/pkg/storage/postgres"
	"github.com/tablegate/tablegate/pkg/storage/sqlcommon"
	"github.com/tablegate/tablegate/pkg/storage/sqlite"
	storagefixtures "github.com/tablegate/tablegate/pkg/testfixtures/storage"
)

// Configuration keys shared by every command.
const (
	DatastoreEngineConf          = "datastore.engine"
	DatastoreURIConf             = "datastore.uri"
	DatastoreUsernameConf        = "datastore.username"
	DatastorePasswordConf        = "datastore.password"
	DatastoreMaxOpenConnsConf    = "datastore.maxOpenConns"
	DatastoreMaxIdleConnsConf    = "datastore.maxIdleConns"
	DatastoreConnMaxIdleTimeConf = "datastore.connMaxIdleTime"
	DatastoreConnMaxLifetimeConf = "datastore.connMaxLifetime"
	DatastoreMetricsEnabledConf  = "datastore.metrics.enabled"
	LogFormatConf                = "log.format"
	LogLevelConf                 = "log.level"
	MemoryLimitConf              = "memory.limit"
	MemoryBufferConf             = "memory.buffer"
)

// MustBindPFlag attempts to bind a specific key to a pflag (as used by cobra) and panics
// if the binding fails with a non-nil error.
func MustBindPFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic("failed to bind pflag: " + err.Error())
	}
}

func MustBindEnv(input ...string) {
	if err := viper.BindEnv(input...); err != nil {
		panic("failed to bind env key: " + err.Error())
	}
}

// NewLogger builds the logger described by log.format and log.level.
func NewLogger() (logger.Logger, error) {
	return logger.NewLogger(viper.GetString(LogFormatConf), viper.GetString(LogLevelConf))
}

// OpenDatastore opens a pool on the configured engine and waits until the
// database answers.
func OpenDatastore(log logger.Logger) (*sqlcommon.Datastore, error) {
	engine := viper.GetString(DatastoreEngineConf)
	uri := viper.GetString(DatastoreURIConf)

	opts := []sqlcommon.DatastoreOption{
		sqlcommon.WithLogger(log),
		sqlcommon.WithUsername(viper.GetString(DatastoreUsernameConf)),
		sqlcommon.WithPassword(viper.GetString(DatastorePasswordConf)),
		sqlcommon.WithMaxOpenConns(viper.GetInt(DatastoreMaxOpenConnsConf)),
		sqlcommon.WithMaxIdleConns(viper.GetInt(DatastoreMaxIdleConnsConf)),
		sqlcommon.WithConnMaxIdleTime(viper.GetDuration(DatastoreConnMaxIdleTimeConf)),
		sqlcommon.WithConnMaxLifetime(viper.GetDuration(DatastoreConnMaxLifetimeConf)),
	}
	if viper.GetBool(DatastoreMetricsEnabledConf) {
		opts = append(opts, sqlcommon.WithMetrics())
	}
	cfg := sqlcommon.NewConfig(opts...)

	var (
		ds  *sqlcommon.Datastore
		err error
	)
	switch engine {
	case "sqlite":
		ds, err = sqlite.New(uri, cfg)
	case "mysql":
		ds, err = mysql.New(uri, cfg)
	case "postgres":
		ds, err = postgres.New(uri, cfg)
	case "":
		return nil, fmt.Errorf("missing datastore engine type")
	default:
		return nil, fmt.Errorf("storage engine '%s' is unsupported", engine)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open a connection to the datastore: %w", err)
	}

	return ds, nil
}

// MemoryOptions validates memory.limit and memory.buffer and turns them into
// guard options. An empty limit leaves the Go runtime limit in charge.
func MemoryOptions() ([]memlimit.Option, error) {
	var opts []memlimit.Option

	if limit := viper.GetString(MemoryLimitConf); limit != "" {
		n, err := memlimit.ParseBytes(limit)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", MemoryLimitConf, limit, err)
		}
		opts = append(opts, memlimit.WithLimit(n))
	}

	if buffer := viper.GetString(MemoryBufferConf); buffer != "" {
		n, err := memlimit.ParseBytes(buffer)
		if err != nil || n == memlimit.Unbounded {
			return nil, fmt.Errorf("invalid %s %q: %w", MemoryBufferConf, buffer, memlimit.ErrInvalidLimit)
		}
		opts = append(opts, memlimit.WithBuffer(n))
	}

	return opts, nil
}

// MustBootstrapDatastore migrates a test database for engine and returns its
// uri together with an open pool on it, for seeding.
func MustBootstrapDatastore(t testing.TB, engine string) (string, *sqlcommon.Datastore) {
	uri := storagefixtures.RunDatastoreTestContainer(t, engine).GetConnectionURI(true)

	return uri, storagefixtures.MustOpenDatastore(t, engine, uri)
}

// PrepareTempConfigDir points $HOME at an empty temp dir and returns its
// .tablegate directory. viper is reset when the test ends, so values read
// from a config file do not leak into the next test.
func PrepareTempConfigDir(t *testing.T) string {
	t.Cleanup(viper.Reset)

	_, err := os.Stat("/etc/tablegate/config.yaml")
	require.ErrorIs(t, err, os.ErrNotExist, "Config file at /etc/tablegate/config.yaml would disturb test result.")

	homedir := t.TempDir()
	t.Setenv("HOME", homedir)

	confdir := filepath.Join(homedir, ".tablegate")
	require.NoError(t, os.Mkdir(confdir, 0750))

	return confdir
}

func PrepareTempConfigFile(t *testing.T, config string) {
	confdir := PrepareTempConfigDir(t)
	confFile, err := os.Create(filepath.Join(confdir, "config.yaml"))
	require.NoError(t, err)
	_, err = confFile.WriteString(config)
	require.NoError(t, err)
	require.NoError(t, confFile.Close())
}
