package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// confCmd is the parent command for slurmdbd.conf operations.
var confCmd = &cobra.Command{
	Use:   "conf",
	Short: "Edit slurmdbd.conf parameters",
	Long: `Read and write individual slurmdbd.conf parameters. Keys must
match a recognized slurmdbd option exactly and values are validated
before anything is written.`,
}

var confGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one parameter value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()

		value, ok, err := app.Manager.ConfValue(args[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s is not set", args[0])
		}

		if app.JSON {
			return json.NewEncoder(app.Out).Encode(map[string]string{
				"key":   args[0],
				"value": value,
			})
		}
		fmt.Fprintln(app.Out, value)
		return nil
	},
}

var confSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set one parameter",
	Long: `Validate and set one slurmdbd.conf parameter, rewriting the file.

Example:
  slurmdbdctl conf set DebugLevel debug2
  slurmdbdctl conf set PurgeJobAfter 12month`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()

		if err := app.Manager.ConfSet(args[0], args[1]); err != nil {
			return err
		}

		if app.JSON {
			return json.NewEncoder(app.Out).Encode(map[string]string{
				"status": "ok",
				"key":    args[0],
				"value":  args[1],
			})
		}
		fmt.Fprintf(app.Out, "Set %s=%s\n", args[0], args[1])
		return nil
	},
}

var confUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove one parameter",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()

		if err := app.Manager.ConfUnset(args[0]); err != nil {
			return err
		}

		if app.JSON {
			return json.NewEncoder(app.Out).Encode(map[string]string{
				"status": "ok",
				"key":    args[0],
			})
		}
		fmt.Fprintf(app.Out, "Removed %s\n", args[0])
		return nil
	},
}

// confEntryJSON is the JSON shape for one listed parameter.
type confEntryJSON struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

var confListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all parameters in file order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()

		entries, err := app.Manager.ConfEntries()
		if err != nil {
			return err
		}

		if app.JSON {
			out := make([]confEntryJSON, 0, len(entries))
			for _, e := range entries {
				out = append(out, confEntryJSON{Key: string(e.Key), Value: e.Value})
			}
			return json.NewEncoder(app.Out).Encode(out)
		}
		for _, e := range entries {
			fmt.Fprintf(app.Out, "%s=%s\n", e.Key, e.Value)
		}
		return nil
	},
}

var confClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every parameter",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()

		if err := app.Manager.ConfClear(); err != nil {
			return err
		}

		if app.JSON {
			return json.NewEncoder(app.Out).Encode(map[string]string{"status": "ok"})
		}
		fmt.Fprintf(app.Out, "Cleared %s\n", app.Cfg.ConfFile())
		return nil
	},
}

func init() {
	confCmd.AddCommand(confGetCmd)
	confCmd.AddCommand(confSetCmd)
	confCmd.AddCommand(confUnsetCmd)
	confCmd.AddCommand(confListCmd)
	confCmd.AddCommand(confClearCmd)

	rootCmd.AddCommand(confCmd)
}
