package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// jwtCmd is the parent command for JWT signing key management.
var jwtCmd = &cobra.Command{
	Use:   "jwt",
	Short: "Manage the JWT signing key",
}

var jwtInstallCmd = &cobra.Command{
	Use:   "install <file>",
	Short: "Install a JWT HS256 signing key",
	Long: `Install the key slurmdbd uses for JWT authentication, written
atomically with mode 0600 and owned by the slurm account. Use - to
read the key from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()

		var key []byte
		var err error
		if args[0] == "-" {
			key, err = io.ReadAll(cmd.InOrStdin())
		} else {
			key, err = os.ReadFile(args[0])
		}
		if err != nil {
			return err
		}
		if len(key) == 0 {
			return fmt.Errorf("key is empty")
		}

		if err := app.Manager.WriteJWTKey(key); err != nil {
			return err
		}

		if app.JSON {
			return json.NewEncoder(app.Out).Encode(map[string]string{
				"status": "ok",
				"path":   app.Cfg.JWTKeyFile(),
			})
		}
		fmt.Fprintf(app.Out, "Installed %s\n", app.Cfg.JWTKeyFile())
		return nil
	},
}

func init() {
	jwtCmd.AddCommand(jwtInstallCmd)

	rootCmd.AddCommand(jwtCmd)
}
