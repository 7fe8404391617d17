package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Aggregate slurmdbd status",
	Long: `Check the rendered configuration, the stored database settings,
munge, and the slurmdbd unit, and fold them into one state: blocked
while prerequisites are missing, waiting while components come up,
active when slurmdbd is available.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()

		summary := app.Manager.HealthChecker().Summarize(cmd.Context())

		if app.JSON {
			return json.NewEncoder(app.Out).Encode(summary)
		}

		fmt.Fprintf(app.Out, "%s: %s\n", summary.State, summary.Message)
		for _, cr := range summary.Components {
			fmt.Fprintf(app.Out, "  %-12s %-8s %s", cr.Name, cr.State, cr.Message)
			if cr.Error != "" {
				fmt.Fprintf(app.Out, " (%s)", cr.Error)
			}
			fmt.Fprintln(app.Out)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
