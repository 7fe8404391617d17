package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"slurmdbdops/internal/params"
)

// databaseCmd is the parent command for accounting database settings.
var databaseCmd = &cobra.Command{
	Use:   "database",
	Short: "Manage the accounting database settings",
}

var databaseSetCmd = &cobra.Command{
	Use:   "set <file>",
	Short: "Store database settings from a document",
	Long: `Validate a YAML or JSON database settings document and store it for
the next render. Use - to read the document from stdin.

The document carries username, password, an optional database name
(default slurm_acct_db), and an optional host/port pair:

  username: slurmdbd
  password: s3cret
  host: 10.0.0.5
  port: "3306"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()

		var data []byte
		var err error
		if args[0] == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			data, err = os.ReadFile(args[0])
		}
		if err != nil {
			return err
		}

		db, err := params.ParseDatabase(data)
		if err != nil {
			return err
		}
		if err := app.Manager.SetDatabase(*db); err != nil {
			return err
		}

		if app.JSON {
			return json.NewEncoder(app.Out).Encode(map[string]string{
				"status":   "ok",
				"database": db.Name,
			})
		}
		fmt.Fprintf(app.Out, "Stored settings for database %s\n", db.Name)
		return nil
	},
}

var databaseShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored database settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()

		db, err := app.Manager.Database()
		if err != nil {
			return err
		}
		if db == nil {
			return fmt.Errorf("no database configured")
		}

		if app.JSON {
			// The password stays out of command output.
			redacted := *db
			redacted.Password = ""
			return json.NewEncoder(app.Out).Encode(redacted)
		}
		fmt.Fprintf(app.Out, "database: %s\n", db.Name)
		fmt.Fprintf(app.Out, "username: %s\n", db.Username)
		if db.Host != "" {
			fmt.Fprintf(app.Out, "host: %s\n", db.Host)
			fmt.Fprintf(app.Out, "port: %s\n", db.Port)
		} else {
			fmt.Fprintln(app.Out, "endpoint: local socket")
		}
		return nil
	},
}

var (
	endpointsUsername string
	endpointsPassword string
)

var databaseUseEndpointsCmd = &cobra.Command{
	Use:   "use-endpoints <endpoint>...",
	Short: "Wire the database from a provider endpoint list",
	Long: `Classify the endpoint list a MySQL provider publishes and store the
resulting database settings. file:// endpoints select a local socket,
written to the defaults file as MYSQL_UNIX_PORT; otherwise the first
host:port endpoint becomes the stored host and port and any previous
socket setting is cleared. Socket endpoints win over tcp ones.

Example:
  slurmdbdctl database use-endpoints --username slurm --password s3cret 10.0.0.5:3306
  slurmdbdctl database use-endpoints --username slurm --password s3cret file:///run/mysql/mysql.sock`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()

		db, err := app.Manager.ConfigureDatabase(endpointsUsername, endpointsPassword, strings.Join(args, ","))
		if err != nil {
			return err
		}

		if app.JSON {
			redacted := *db
			redacted.Password = ""
			return json.NewEncoder(app.Out).Encode(redacted)
		}
		if db.Host != "" {
			fmt.Fprintf(app.Out, "Using tcp endpoint %s:%s\n", db.Host, db.Port)
		} else {
			fmt.Fprintln(app.Out, "Using local socket endpoint")
		}
		return nil
	},
}

func init() {
	databaseUseEndpointsCmd.Flags().StringVar(&endpointsUsername, "username", "", "Database username")
	databaseUseEndpointsCmd.Flags().StringVar(&endpointsPassword, "password", "", "Database password")
	databaseUseEndpointsCmd.MarkFlagRequired("username")
	databaseUseEndpointsCmd.MarkFlagRequired("password")

	databaseCmd.AddCommand(databaseSetCmd)
	databaseCmd.AddCommand(databaseShowCmd)
	databaseCmd.AddCommand(databaseUseEndpointsCmd)

	rootCmd.AddCommand(databaseCmd)
}
