// Package migrate contains the command that installs the bundled example schema.
package migrate

import (
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/tablegate/tablegate/assets"
	"github.com/tablegate/tablegate/cmd/util"
	"github.com/tablegate/tablegate/pkg/storage/mysql"
	"github.com/tablegate/tablegate/pkg/storage/postgres"
	"github.com/tablegate/tablegate/pkg/storage/sqlite"
)

const (
	versionFlag          = "version"
	verboseMigrationFlag = "verbose"
)

func NewMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Install the example products and orders tables",
		Long: `Install the example products and orders tables into the configured datastore.

Without --version the latest schema is applied. A version below the current one rolls the schema back.`,
		RunE: runMigration,
		Args: cobra.NoArgs,
	}

	flags := cmd.Flags()
	flags.Int64(versionFlag, 0, "the version to migrate to (if omitted the latest schema will be used)")
	flags.Bool(verboseMigrationFlag, false, "enable verbose migration logs (default false)")

	// NOTE: if you add a new flag here, update the function below, too

	cmd.PreRun = bindRunFlagsFunc(flags)

	return cmd
}

// migrationSource maps an engine to the goose dialect and the embedded
// directory holding its migrations.
func migrationSource(engine string) (dialect, dir string, err error) {
	switch engine {
	case "sqlite":
		return sqlite.DriverName, assets.SqliteMigrationDir, nil
	case "mysql":
		return mysql.DriverName, assets.MySQLMigrationDir, nil
	case "postgres":
		return postgres.DriverName, assets.PostgresMigrationDir, nil
	case "":
		return "", "", fmt.Errorf("missing datastore engine type")
	default:
		return "", "", fmt.Errorf("unknown datastore engine type: %s", engine)
	}
}

func runMigration(cmd *cobra.Command, _ []string) error {
	targetVersion := viper.GetInt64(versionFlag)
	verbose := viper.GetBool(verboseMigrationFlag)

	dialect, dir, err := migrationSource(viper.GetString(util.DatastoreEngineConf))
	if err != nil {
		return err
	}

	log, err := util.NewLogger()
	if err != nil {
		return err
	}

	ds, err := util.OpenDatastore(log)
	if err != nil {
		return err
	}
	defer ds.Close()

	if !verbose {
		goose.SetLogger(goose.NopLogger())
	}
	goose.SetVerbose(verbose)
	goose.SetBaseFS(assets.EmbedMigrations)
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}

	current, err := goose.GetDBVersion(ds.DB)
	if err != nil {
		return fmt.Errorf("failed to read the schema version: %w", err)
	}

	switch {
	case targetVersion == 0:
		err = goose.Up(ds.DB, dir)
	case targetVersion < current:
		err = goose.DownTo(ds.DB, dir, targetVersion)
	default:
		err = goose.UpTo(ds.DB, dir, targetVersion)
	}
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, err := goose.GetDBVersion(ds.DB)
	if err != nil {
		return fmt.Errorf("failed to read the schema version: %w", err)
	}

	log.Info("migration done", zap.Int64("from", current), zap.Int64("version", version))
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", version)
	return err
}
