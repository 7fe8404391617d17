package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"slurmdbdops/internal/envfile"
)

// envCmd is the parent command for the environment defaults file.
var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Edit the environment defaults file",
	Long: `Set and unset variables in the defaults file the service manager
sources before starting slurmdbd. Comments and unrelated lines are
preserved.`,
}

// parseAssignments turns KEY=VALUE arguments into an edit set.
func parseAssignments(args []string) (map[string]*string, error) {
	changes := make(map[string]*string, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("expected KEY=VALUE, got %q", arg)
		}
		changes[key] = envfile.Value(value)
	}
	return changes, nil
}

var envSetCmd = &cobra.Command{
	Use:   "set KEY=VALUE [KEY=VALUE...]",
	Short: "Set variables in the defaults file",
	Long: `Set one or more variables, replacing existing declarations in place.

Example:
  slurmdbdctl env set MYSQL_UNIX_PORT='"/run/mysql/mysql.sock"'`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()

		changes, err := parseAssignments(args)
		if err != nil {
			return err
		}
		if err := app.Manager.ApplyEnv(changes); err != nil {
			return err
		}

		if app.JSON {
			return json.NewEncoder(app.Out).Encode(map[string]any{
				"status": "ok",
				"file":   app.Cfg.DefaultsFile(),
				"set":    len(changes),
			})
		}
		fmt.Fprintf(app.Out, "Updated %s\n", app.Cfg.DefaultsFile())
		return nil
	},
}

var envUnsetCmd = &cobra.Command{
	Use:   "unset KEY [KEY...]",
	Short: "Remove variables from the defaults file",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()

		changes := make(map[string]*string, len(args))
		for _, key := range args {
			if strings.Contains(key, "=") {
				return fmt.Errorf("expected a bare KEY, got %q", key)
			}
			changes[key] = envfile.Unset
		}
		if err := app.Manager.ApplyEnv(changes); err != nil {
			return err
		}

		if app.JSON {
			return json.NewEncoder(app.Out).Encode(map[string]any{
				"status": "ok",
				"file":   app.Cfg.DefaultsFile(),
				"unset":  len(changes),
			})
		}
		fmt.Fprintf(app.Out, "Updated %s\n", app.Cfg.DefaultsFile())
		return nil
	},
}

func init() {
	envCmd.AddCommand(envSetCmd)
	envCmd.AddCommand(envUnsetCmd)

	rootCmd.AddCommand(envCmd)
}
