package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"slurmdbdops/internal/dbdconf"
	"slurmdbdops/internal/ops"
	"slurmdbdops/internal/params"
)

var (
	renderParamsFile string
	renderRestart    bool
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render slurmdbd.conf from stored settings",
	Long: `Assemble the maintained parameters, the stored accounting database
settings, and optional override parameters from a YAML file, then
rewrite slurmdbd.conf. With --restart the unit is stopped before the
write and brought back up with verification afterwards.

Example:
  slurmdbdctl render
  slurmdbdctl render --params overrides.yaml --restart`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()

		var overrides map[dbdconf.Token]string
		if renderParamsFile != "" {
			var err error
			overrides, err = params.LoadFile(renderParamsFile)
			if err != nil {
				return err
			}
		}

		var res *ops.RenderResult
		var err error
		if renderRestart {
			res, err = app.Manager.RenderAndRestart(cmd.Context(), overrides)
		} else {
			res, err = app.Manager.Render(overrides)
		}
		if err != nil {
			return err
		}

		if app.JSON {
			return json.NewEncoder(app.Out).Encode(res)
		}
		fmt.Fprintf(app.Out, "Rendered %s (%d keys)\n", res.Path, res.Keys)
		if renderRestart {
			fmt.Fprintf(app.Out, "%s running\n", app.Cfg.Service.Unit)
		}
		return nil
	},
}

func init() {
	renderCmd.Flags().StringVar(&renderParamsFile, "params", "", "YAML file of override parameters")
	renderCmd.Flags().BoolVar(&renderRestart, "restart", false, "Stop slurmdbd before the write and restart it after")

	rootCmd.AddCommand(renderCmd)
}
