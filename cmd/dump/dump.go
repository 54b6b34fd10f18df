// Package dump contains the command that prints the rows of a table.
package dump

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"sigs.k8s.io/yaml"

	"github.com/tablegate/tablegate/cmd/util"
	"github.com/tablegate/tablegate/pkg/entity"
	"github.com/tablegate/tablegate/pkg/gateway"
)

const (
	tableFlag    = "table"
	primaryFlag  = "primary"
	whereFlag    = "where"
	orderByFlag  = "order-by"
	limitFlag    = "limit"
	bufferedFlag = "buffered"
	outputFlag   = "output"
)

func NewDumpCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the rows of a table",
		Long: `Print the rows of a table, one document per row.

Rows are streamed by default. With --buffered the whole result is read into memory first,
subject to the memory limit.`,
		RunE: runDump,
		Args: cobra.NoArgs,
	}

	flags := cmd.Flags()
	flags.String(tableFlag, "", "(required) the table to read")
	flags.String(primaryFlag, "", "(required) the primary key column of the table")
	flags.String(whereFlag, "", "(optional) an SQL condition rows must satisfy")
	flags.String(orderByFlag, "", "(optional) an SQL ORDER BY expression")
	flags.Uint64(limitFlag, 0, "(optional) the maximum number of rows to print")
	flags.Bool(bufferedFlag, false, "read the whole result before printing")
	flags.String(outputFlag, "json", "the output format: json or yaml")

	cobra.CheckErr(cmd.MarkFlagRequired(tableFlag))
	cobra.CheckErr(cmd.MarkFlagRequired(primaryFlag))

	// NOTE: if you add a new flag here, update the function below, too

	cmd.PreRun = bindRunFlagsFunc(flags)

	return cmd
}

func runDump(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	encode, err := newEncoder(cmd.OutOrStdout(), viper.GetString(outputFlag))
	if err != nil {
		return err
	}

	log, err := util.NewLogger()
	if err != nil {
		return err
	}

	memory, err := util.MemoryOptions()
	if err != nil {
		return err
	}

	ds, err := util.OpenDatastore(log)
	if err != nil {
		return err
	}
	defer ds.Close()

	g, err := gateway.New(ds, viper.GetString(tableFlag), viper.GetString(primaryFlag),
		gateway.WithLogger(log),
		gateway.WithMemory(memory...))
	if err != nil {
		return err
	}

	q := g.QueryBuilder()
	if where := viper.GetString(whereFlag); where != "" {
		q = q.Where(where)
	}
	if orderBy := viper.GetString(orderByFlag); orderBy != "" {
		q = q.OrderBy(orderBy)
	}
	if limit := viper.GetUint64(limitFlag); limit > 0 {
		q = q.Limit(limit)
	}

	if viper.GetBool(bufferedFlag) {
		entities, err := g.Get(ctx, q)
		if err != nil {
			return err
		}
		for _, e := range entities {
			if err := encode(e); err != nil {
				return err
			}
		}
		return nil
	}

	it, err := g.GetUnbuffered(ctx, q)
	if err != nil {
		return err
	}
	for e, err := range it.All(ctx) {
		if err != nil {
			return err
		}
		if err := encode(e); err != nil {
			return err
		}
	}

	return nil
}

type encoder func(entity.Entity) error

// newEncoder writes JSON lines, or YAML documents separated by "---".
func newEncoder(w io.Writer, format string) (encoder, error) {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		return func(e entity.Entity) error {
			return enc.Encode(document(e))
		}, nil
	case "yaml":
		first := true
		return func(e entity.Entity) error {
			out, err := yaml.Marshal(document(e))
			if err != nil {
				return err
			}
			if !first {
				if _, err := io.WriteString(w, "---\n"); err != nil {
					return err
				}
			}
			first = false
			_, err = w.Write(out)
			return err
		}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q, expected json or yaml", format)
	}
}

func document(e entity.Entity) map[string]any {
	names := entity.Names(e)
	doc := make(map[string]any, len(names))
	for _, name := range names {
		doc[name], _ = entity.Value(e, name)
	}
	return doc
}
