// Package aggregate contains the command that prints count, sum, min and max of a column.
package aggregate

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"sigs.k8s.io/yaml"

	"github.com/tablegate/tablegate/cmd/util"
	"github.com/tablegate/tablegate/pkg/gateway"
)

const (
	tableFlag   = "table"
	primaryFlag = "primary"
	columnFlag  = "column"
	whereFlag   = "where"
)

func NewAggregateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Print count, sum, min and max of a column",
		Long: `Print count, sum, min and max of a column as a YAML document.

The column defaults to the primary key. Aggregates over no rows, or over NULLs only, print 0.`,
		RunE: runAggregate,
		Args: cobra.NoArgs,
	}

	flags := cmd.Flags()
	flags.String(tableFlag, "", "(required) the table to read")
	flags.String(primaryFlag, "", "(required) the primary key column of the table")
	flags.String(columnFlag, "", "(optional) the column or expression to aggregate")
	flags.String(whereFlag, "", "(optional) an SQL condition rows must satisfy")

	cobra.CheckErr(cmd.MarkFlagRequired(tableFlag))
	cobra.CheckErr(cmd.MarkFlagRequired(primaryFlag))

	// NOTE: if you add a new flag here, update the function below, too

	cmd.PreRun = bindRunFlagsFunc(flags)

	return cmd
}

type aggregateFunc func(context.Context, *sq.SelectBuilder, string) (string, error)

func runAggregate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	log, err := util.NewLogger()
	if err != nil {
		return err
	}

	ds, err := util.OpenDatastore(log)
	if err != nil {
		return err
	}
	defer ds.Close()

	g, err := gateway.New(ds, viper.GetString(tableFlag), viper.GetString(primaryFlag), gateway.WithLogger(log))
	if err != nil {
		return err
	}

	q := g.QueryBuilder()
	if where := viper.GetString(whereFlag); where != "" {
		q = q.Where(where)
	}
	column := viper.GetString(columnFlag)

	aggregates := map[string]aggregateFunc{
		"count": g.Count,
		"sum":   g.Sum,
		"min":   g.Min,
		"max":   g.Max,
	}
	results := make(map[string]string, len(aggregates))
	values := make([]string, len(aggregates))
	names := make([]string, 0, len(aggregates))

	grp, gctx := errgroup.WithContext(ctx)
	for name, fn := range aggregates {
		i := len(names)
		names = append(names, name)
		grp.Go(func() error {
			value, err := fn(gctx, &q, column)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			values[i] = value
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return err
	}

	for i, name := range names {
		results[name] = values[i]
	}

	out, err := yaml.Marshal(results)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}
