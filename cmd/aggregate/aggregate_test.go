package aggregate_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"sigs.k8s.io/yaml"

	"github.com/tablegate/tablegate/cmd"
	"github.com/tablegate/tablegate/cmd/aggregate"
	"github.com/tablegate/tablegate/cmd/util"
	"github.com/tablegate/tablegate/pkg/gateway"
)

func execute(t *testing.T, uri string, args ...string) map[string]string {
	t.Helper()

	t.Cleanup(viper.Reset)

	root := cmd.NewRootCommand()
	root.AddCommand(aggregate.NewAggregateCommand())

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{
		"aggregate",
		"--datastore-engine", "sqlite",
		"--datastore-uri", uri,
		"--log-level", "none",
		"--table", "orders",
		"--primary", "id",
	}, args...))
	require.NoError(t, root.Execute())

	var results map[string]string
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &results))
	return results
}

func TestAggregate(t *testing.T) {
	uri, ds := util.MustBootstrapDatastore(t, "sqlite")

	require.Equal(t, map[string]string{"count": "0", "sum": "0", "min": "0", "max": "0"}, execute(t, uri))

	g, err := gateway.New(ds, "orders", "id")
	require.NoError(t, err)
	for _, amount := range []int{5, 2, 9, 4} {
		_, err := g.Insert(context.Background(), map[string]any{"product": "p", "amount": amount})
		require.NoError(t, err)
	}

	require.Equal(t, map[string]string{"count": "4", "sum": "10", "min": "1", "max": "4"}, execute(t, uri))
	require.Equal(t, map[string]string{"count": "4", "sum": "20", "min": "2", "max": "9"}, execute(t, uri, "--column", "amount"))
	require.Equal(t, map[string]string{"count": "2", "sum": "14", "min": "5", "max": "9"}, execute(t, uri, "--column", "amount", "--where", "amount > 4"))
}
