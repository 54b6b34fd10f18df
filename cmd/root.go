// Package cmd contains all the commands included in the binary file.
package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tablegate/tablegate/cmd/util"
)

// NewRootCommand enables all children commands to read flags from CLI flags, environment variables prefixed with TABLEGATE, or config.yaml (in that order).
func NewRootCommand() *cobra.Command {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("TABLEGATE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	configPaths := []string{"/etc/tablegate", "$HOME/.tablegate", "."}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	// a missing config file is not an error, the flags and environment still apply
	_ = viper.ReadInConfig()

	cmd := &cobra.Command{
		Use:   "tablegate",
		Short: "Read, write and aggregate rows of a single database table",
		Long: `Read, write and aggregate rows of a single database table.

tablegate works against SQLite, MySQL and PostgreSQL. Buffered reads are bounded by a memory limit
(GOMEMLIMIT unless --memory-limit is set), streamed reads are not.`,
		SilenceUsage: true,
	}

	bindPersistentFlags(cmd)

	return cmd
}

// bindPersistentFlags binds the cobra cmd flags to the equivalent config value being managed
// by viper. This bridges the config between cobra flags and viper flags.
func bindPersistentFlags(command *cobra.Command) {
	flags := command.PersistentFlags()

	flags.String("datastore-engine", "", "the datastore engine: sqlite, mysql or postgres")
	util.MustBindPFlag(util.DatastoreEngineConf, flags.Lookup("datastore-engine"))
	util.MustBindEnv(util.DatastoreEngineConf, "TABLEGATE_DATASTORE_ENGINE")

	flags.String("datastore-uri", "", "the connection uri of the datastore")
	util.MustBindPFlag(util.DatastoreURIConf, flags.Lookup("datastore-uri"))
	util.MustBindEnv(util.DatastoreURIConf, "TABLEGATE_DATASTORE_URI")

	flags.String("datastore-username", "", "(optional) overwrite the username in the connection uri")
	util.MustBindPFlag(util.DatastoreUsernameConf, flags.Lookup("datastore-username"))
	util.MustBindEnv(util.DatastoreUsernameConf, "TABLEGATE_DATASTORE_USERNAME")

	flags.String("datastore-password", "", "(optional) overwrite the password in the connection uri")
	util.MustBindPFlag(util.DatastorePasswordConf, flags.Lookup("datastore-password"))
	util.MustBindEnv(util.DatastorePasswordConf, "TABLEGATE_DATASTORE_PASSWORD")

	flags.Int("datastore-max-open-conns", 0, "the maximum number of open connections to the datastore (0 means unlimited)")
	util.MustBindPFlag(util.DatastoreMaxOpenConnsConf, flags.Lookup("datastore-max-open-conns"))
	util.MustBindEnv(util.DatastoreMaxOpenConnsConf, "TABLEGATE_DATASTORE_MAX_OPEN_CONNS", "TABLEGATE_DATASTORE_MAXOPENCONNS")

	flags.Int("datastore-max-idle-conns", 0, "the maximum number of connections to the datastore in the idle connection pool")
	util.MustBindPFlag(util.DatastoreMaxIdleConnsConf, flags.Lookup("datastore-max-idle-conns"))
	util.MustBindEnv(util.DatastoreMaxIdleConnsConf, "TABLEGATE_DATASTORE_MAX_IDLE_CONNS", "TABLEGATE_DATASTORE_MAXIDLECONNS")

	flags.Duration("datastore-conn-max-idle-time", 0, "the maximum amount of time a connection to the datastore may be idle")
	util.MustBindPFlag(util.DatastoreConnMaxIdleTimeConf, flags.Lookup("datastore-conn-max-idle-time"))
	util.MustBindEnv(util.DatastoreConnMaxIdleTimeConf, "TABLEGATE_DATASTORE_CONN_MAX_IDLE_TIME", "TABLEGATE_DATASTORE_CONNMAXIDLETIME")

	flags.Duration("datastore-conn-max-lifetime", 0, "the maximum amount of time a connection to the datastore may be reused")
	util.MustBindPFlag(util.DatastoreConnMaxLifetimeConf, flags.Lookup("datastore-conn-max-lifetime"))
	util.MustBindEnv(util.DatastoreConnMaxLifetimeConf, "TABLEGATE_DATASTORE_CONN_MAX_LIFETIME", "TABLEGATE_DATASTORE_CONNMAXLIFETIME")

	flags.Bool("datastore-metrics-enabled", false, "enable/disable sql connection pool metrics")
	util.MustBindPFlag(util.DatastoreMetricsEnabledConf, flags.Lookup("datastore-metrics-enabled"))
	util.MustBindEnv(util.DatastoreMetricsEnabledConf, "TABLEGATE_DATASTORE_METRICS_ENABLED")

	flags.String("log-format", "text", "the log format to output logs in: text or json")
	util.MustBindPFlag(util.LogFormatConf, flags.Lookup("log-format"))
	util.MustBindEnv(util.LogFormatConf, "TABLEGATE_LOG_FORMAT")

	flags.String("log-level", "warn", "the log level to use: none, debug, info, warn, error, panic or fatal")
	util.MustBindPFlag(util.LogLevelConf, flags.Lookup("log-level"))
	util.MustBindEnv(util.LogLevelConf, "TABLEGATE_LOG_LEVEL")

	flags.String("memory-limit", "", "the memory ceiling for buffered reads, e.g. 512M (-1 disables it, empty uses GOMEMLIMIT)")
	util.MustBindPFlag(util.MemoryLimitConf, flags.Lookup("memory-limit"))
	util.MustBindEnv(util.MemoryLimitConf, "TABLEGATE_MEMORY_LIMIT")

	flags.String("memory-buffer", "1M", "the headroom kept below the memory limit")
	util.MustBindPFlag(util.MemoryBufferConf, flags.Lookup("memory-buffer"))
	util.MustBindEnv(util.MemoryBufferConf, "TABLEGATE_MEMORY_BUFFER")
}
