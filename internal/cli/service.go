package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// serviceCmd is the parent command for slurmdbd unit control.
var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Control the slurmdbd unit",
}

var serviceStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start slurmdbd",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()

		if err := app.Manager.StartService(cmd.Context()); err != nil {
			return err
		}
		return serviceReport(app, "started")
	},
}

var serviceStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop slurmdbd",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()

		if err := app.Manager.StopService(cmd.Context()); err != nil {
			return err
		}
		return serviceReport(app, "stopped")
	},
}

var serviceRestartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart slurmdbd and verify it comes up",
	Long: `Restart the slurmdbd unit, then poll its state and keep restarting
until it reports active or the attempts run out.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		ctx := cmd.Context()

		if err := app.Manager.RestartService(ctx); err != nil {
			return err
		}
		if err := app.Manager.RestartAndVerify(ctx); err != nil {
			return err
		}
		return serviceReport(app, "running")
	},
}

var serviceStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the slurmdbd unit state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()

		st, err := app.Manager.ServiceState(cmd.Context())
		if err != nil {
			return err
		}

		if app.JSON {
			return json.NewEncoder(app.Out).Encode(map[string]string{
				"unit":  app.Cfg.Service.Unit,
				"state": st,
			})
		}
		fmt.Fprintf(app.Out, "%s: %s\n", app.Cfg.Service.Unit, st)
		return nil
	},
}

func serviceReport(app *App, result string) error {
	if app.JSON {
		return json.NewEncoder(app.Out).Encode(map[string]string{
			"unit":   app.Cfg.Service.Unit,
			"result": result,
		})
	}
	fmt.Fprintf(app.Out, "%s %s\n", app.Cfg.Service.Unit, result)
	return nil
}

func init() {
	serviceCmd.AddCommand(serviceStartCmd)
	serviceCmd.AddCommand(serviceStopCmd)
	serviceCmd.AddCommand(serviceRestartCmd)
	serviceCmd.AddCommand(serviceStatusCmd)

	rootCmd.AddCommand(serviceCmd)
}
