package cli

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"slurmdbdops/internal/drift"
	"slurmdbdops/internal/logging"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the managed files for drift",
	Long: `Watch slurmdbd.conf and the defaults file, comparing settled content
against the last recorded render. Out-of-band modifications are logged
as drift warnings. Runs until interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()

		debounce := time.Duration(app.Cfg.Watch.DebounceMs) * time.Millisecond
		paths := []string{app.Cfg.ConfFile(), app.Cfg.DefaultsFile()}
		w, err := drift.New(app.Store, paths, debounce)
		if err != nil {
			return err
		}
		if err := w.Start(); err != nil {
			w.Stop()
			return err
		}

		// Set up signal handling for graceful shutdown
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
		defer signal.Stop(sigChan)

		for {
			select {
			case <-sigChan:
				return w.Stop()

			case ev, ok := <-w.Events():
				if !ok {
					return nil
				}
				reportDrift(app, ev)

			case err, ok := <-w.Errors():
				if !ok {
					return nil
				}
				logging.Warn("watch error", "error", err)
			}
		}
	},
}

func reportDrift(app *App, ev drift.Event) {
	switch {
	case ev.Checksum == "":
		logging.Warn("managed file removed", "path", ev.Path, "expected", ev.Expected)
	case ev.Expected == "":
		logging.Warn("managed file changed with no recorded render", "path", ev.Path, "checksum", ev.Checksum)
	default:
		logging.Warn("managed file drifted from last render", "path", ev.Path, "checksum", ev.Checksum, "expected", ev.Expected)
	}

	if app.JSON {
		json.NewEncoder(app.Out).Encode(ev)
	}
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
