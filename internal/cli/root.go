// Package cli implements the slurmdbdctl commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"slurmdbdops/internal/config"
	"slurmdbdops/internal/logging"
	"slurmdbdops/internal/ops"
	"slurmdbdops/internal/service"
	"slurmdbdops/internal/state"
)

// App holds the application state shared across all commands.
type App struct {
	Cfg     *config.Config
	Store   *state.Store
	Manager *ops.Manager
	Out     io.Writer
	Err     io.Writer
	JSON    bool

	logger *logging.Logger
	audit  *logging.AuditLogger
	sysd   *lazySystemd
}

var (
	// Global flags
	configPath string
	jsonOutput bool

	// The App instance, initialized in PersistentPreRunE
	app *App
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "slurmdbdctl",
	Short: "Manage slurmdbd and its configuration",
	Long: `slurmdbdctl manages a host's slurmdbd deployment: the slurmdbd.conf
parameters, the environment defaults file, the accounting database
wiring, service restarts with verification, auth material, and drift
detection on the rendered files.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip initialization for commands that don't touch the host
		if cmd.Name() == "help" || cmd.Name() == "version" || cmd.Name() == "completion" {
			return nil
		}

		var err error
		app, err = NewApp(configPath, jsonOutput, os.Stdout, os.Stderr)
		return err
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if app == nil {
			return nil
		}
		return app.Close()
	},
}

// NewApp loads the toolkit configuration and wires up the shared
// state: logger, audit trail, state store, and the operations manager
// over a lazy systemd connection.
func NewApp(configPath string, jsonOutput bool, out, errOut io.Writer) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		return nil, err
	}
	logging.SetDefault(logger)

	var audit *logging.AuditLogger
	if cfg.Logging.AuditPath != "" {
		audit, err = logging.NewAuditLogger(cfg.Logging.AuditPath)
		if err != nil {
			return nil, fmt.Errorf("open audit trail: %w", err)
		}
	}

	store, err := state.Open(cfg.StateDB())
	if err != nil {
		return nil, err
	}

	sysd := &lazySystemd{}
	return &App{
		Cfg:     cfg,
		Store:   store,
		Manager: ops.NewManager(cfg, store, sysd, audit),
		Out:     out,
		Err:     errOut,
		JSON:    jsonOutput,
		logger:  logger,
		audit:   audit,
		sysd:    sysd,
	}, nil
}

// buildLogger translates the toolkit logging section into a logger.
func buildLogger(cfg *config.Config) (*logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(cfg.Logging.Format)
	if err != nil {
		return nil, err
	}

	lcfg := logging.DefaultConfig()
	lcfg.Level = level
	lcfg.Format = format
	lcfg.Output = cfg.Logging.Output
	if cfg.Logging.FilePath != "" {
		lcfg.FilePath = cfg.Logging.FilePath
	}
	return logging.New(lcfg)
}

// Close releases everything NewApp opened.
func (a *App) Close() error {
	var firstErr error
	if err := a.Store.Close(); err != nil {
		firstErr = err
	}
	if err := a.sysd.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := a.audit.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if a.logger != nil {
		a.logger.Close()
	}
	return firstErr
}

// lazySystemd defers the D-Bus connection until a command actually
// touches a unit, so file-only commands work on hosts without a
// system bus.
type lazySystemd struct {
	mu   sync.Mutex
	conn *service.Conn
}

func (l *lazySystemd) get() (*service.Conn, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn == nil {
		conn, err := service.Connect()
		if err != nil {
			return nil, err
		}
		l.conn = conn
	}
	return l.conn, nil
}

func (l *lazySystemd) Start(ctx context.Context, unit string) error {
	conn, err := l.get()
	if err != nil {
		return err
	}
	return conn.Start(ctx, unit)
}

func (l *lazySystemd) Stop(ctx context.Context, unit string) error {
	conn, err := l.get()
	if err != nil {
		return err
	}
	return conn.Stop(ctx, unit)
}

func (l *lazySystemd) Restart(ctx context.Context, unit string) error {
	conn, err := l.get()
	if err != nil {
		return err
	}
	return conn.Restart(ctx, unit)
}

func (l *lazySystemd) ActiveState(ctx context.Context, unit string) (string, error) {
	conn, err := l.get()
	if err != nil {
		return "", err
	}
	return conn.ActiveState(ctx, unit)
}

func (l *lazySystemd) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn == nil {
		return nil
	}
	err := l.conn.Close()
	l.conn = nil
	return err
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetApp returns the initialized App instance.
// This should only be called from subcommand Run functions.
func GetApp() *App {
	return app
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Toolkit configuration file (default /etc/slurmdbdctl/config.toml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
}
