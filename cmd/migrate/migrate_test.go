package migrate

import (
	"bytes"
	"io"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/tablegate/tablegate/cmd"
	"github.com/tablegate/tablegate/cmd/util"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	t.Cleanup(viper.Reset)

	root := cmd.NewRootCommand()
	root.AddCommand(NewMigrateCommand())

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"migrate", "--log-level", "none"}, args...))

	err := root.Execute()
	return out.String(), err
}

func TestMigrateCommandConfigIsMerged(t *testing.T) {
	util.PrepareTempConfigFile(t, `datastore:
    engine: randomEngine
`)
	t.Setenv("TABLEGATE_VERBOSE", "true")

	migrateCmd := NewMigrateCommand()
	migrateCmd.RunE = func(cmd *cobra.Command, _ []string) error {
		require.Equal(t, "randomEngine", viper.GetString(util.DatastoreEngineConf))
		require.Equal(t, int64(0), viper.GetInt64(versionFlag))
		require.True(t, viper.GetBool(verboseMigrationFlag))
		return nil
	}

	root := cmd.NewRootCommand()
	root.AddCommand(migrateCmd)
	root.SetArgs([]string{"migrate"})
	require.NoError(t, root.Execute())
}

func TestMigrateSqlite(t *testing.T) {
	util.PrepareTempConfigDir(t)
	uri := "file:" + filepath.Join(t.TempDir(), "tablegate.db")

	out, err := execute(t, "--datastore-engine", "sqlite", "--datastore-uri", uri)
	require.NoError(t, err)
	require.Equal(t, "schema version 2\n", out)

	out, err = execute(t, "--datastore-engine", "sqlite", "--datastore-uri", uri, "--version", "1")
	require.NoError(t, err)
	require.Equal(t, "schema version 1\n", out)

	out, err = execute(t, "--datastore-engine", "sqlite", "--datastore-uri", uri, "--version", "2")
	require.NoError(t, err)
	require.Equal(t, "schema version 2\n", out)
}

func TestMigrateUnknownEngine(t *testing.T) {
	util.PrepareTempConfigDir(t)

	_, err := execute(t)
	require.ErrorContains(t, err, "missing datastore engine type")

	_, err = execute(t, "--datastore-engine", "oracle")
	require.ErrorContains(t, err, "unknown datastore engine type: oracle")
}
