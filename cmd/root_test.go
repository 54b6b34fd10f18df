package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"sigs.k8s.io/yaml"

	"github.com/tablegate/tablegate/cmd/aggregate"
	"github.com/tablegate/tablegate/cmd/util"
	"github.com/tablegate/tablegate/internal/build"
	"github.com/tablegate/tablegate/pkg/gateway"
)

func TestVersionCommand(t *testing.T) {
	root := NewRootCommand()
	root.AddCommand(NewVersionCommand())

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())

	require.Equal(t, fmt.Sprintf("tablegate version %s date %s commit id %s\n", build.Version, build.Date, build.Commit), out.String())
}

func TestConfigSources(t *testing.T) {
	uri, ds := util.MustBootstrapDatastore(t, "sqlite")

	g, err := gateway.New(ds, "products", "uuid")
	require.NoError(t, err)
	_, err = g.Insert(context.Background(), map[string]any{"uuid": "a", "sku": "s1", "qty": 7})
	require.NoError(t, err)

	util.PrepareTempConfigFile(t, fmt.Sprintf(`datastore:
  engine: sqlite
  uri: %q
log:
  level: none
`, uri))

	root := NewRootCommand()
	root.AddCommand(aggregate.NewAggregateCommand())

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"aggregate", "--table", "products", "--primary", "uuid", "--column", "qty"})
	require.NoError(t, root.Execute())

	var results map[string]string
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &results))
	require.Equal(t, "7", results["sum"])
}

func TestMemoryOptions(t *testing.T) {
	root := NewRootCommand()
	require.NoError(t, root.ParseFlags([]string{"--memory-limit", "2G", "--memory-buffer", "4K"}))

	opts, err := util.MemoryOptions()
	require.NoError(t, err)
	require.Len(t, opts, 2)

	require.NoError(t, root.ParseFlags([]string{"--memory-buffer=-1"}))
	_, err = util.MemoryOptions()
	require.Error(t, err)
}
