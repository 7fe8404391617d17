package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is stamped at build time with -ldflags.
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the slurmdbdctl version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "slurmdbdctl %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
