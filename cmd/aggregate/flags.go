package aggregate

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/tablegate/tablegate/cmd/util"
)

// bindRunFlagsFunc binds the cobra cmd flags to the equivalent config value being managed
// by viper. This bridges the config between cobra flags and viper flags.
func bindRunFlagsFunc(flags *pflag.FlagSet) func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		util.MustBindPFlag(tableFlag, flags.Lookup(tableFlag))
		util.MustBindPFlag(primaryFlag, flags.Lookup(primaryFlag))
		util.MustBindPFlag(columnFlag, flags.Lookup(columnFlag))
		util.MustBindPFlag(whereFlag, flags.Lookup(whereFlag))
	}
}
