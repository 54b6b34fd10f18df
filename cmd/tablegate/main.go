package main

import (
	"os"

	"github.com/tablegate/tablegate/cmd"
	"github.com/tablegate/tablegate/cmd/aggregate"
	"github.com/tablegate/tablegate/cmd/dump"
	"github.com/tablegate/tablegate/cmd/migrate"
)

func main() {
	rootCmd := cmd.NewRootCommand()

	dumpCmd := dump.NewDumpCommand()
	rootCmd.AddCommand(dumpCmd)

	aggregateCmd := aggregate.NewAggregateCommand()
	rootCmd.AddCommand(aggregateCmd)

	migrateCmd := migrate.NewMigrateCommand()
	rootCmd.AddCommand(migrateCmd)

	versionCmd := cmd.NewVersionCommand()
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
