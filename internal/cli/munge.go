package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// mungeCmd is the parent command for munge authentication checks.
var mungeCmd = &cobra.Command{
	Use:   "munge",
	Short: "Munge authentication checks",
}

var mungeCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Round-trip a munge credential",
	Long: `Verify munge is usable: the munged unit must be active and a
credential from munge -n must decode through unmunge.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()

		if err := app.Manager.CheckMunge(cmd.Context()); err != nil {
			return err
		}

		if app.JSON {
			return json.NewEncoder(app.Out).Encode(map[string]string{"status": "ok"})
		}
		fmt.Fprintln(app.Out, "munge working as expected")
		return nil
	},
}

func init() {
	mungeCmd.AddCommand(mungeCheckCmd)

	rootCmd.AddCommand(mungeCmd)
}
