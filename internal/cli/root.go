// Package cli implements the inventory command-line interface. Every
// mutating command is dispatched through the host service registry, so the
// CLI exercises the same path as any other caller of the plugin.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/inventory/internal/host"
	"github.com/mesh-intelligence/inventory/internal/paths"
	"github.com/mesh-intelligence/inventory/pkg/inventory"
	"github.com/mesh-intelligence/inventory/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values for one command tree.
type rootFlags struct {
	configDir string
	dataDir   string
	backend   string
	logLevel  string
	jsonMode  bool
}

// app is the state shared by the commands of one root.
type app struct {
	flags     rootFlags
	configDir string
	v         *viper.Viper
	log       *slog.Logger
}

// NewRootCmd creates the top-level "inventory" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{log: slog.New(slog.NewTextHandler(io.Discard, nil))}
	root := &cobra.Command{
		Use:   "inventory",
		Short: "Track household items and their quantities",
		Long: "Inventory keeps a list of items with a category, a quantity and an\n" +
			"optional unit, and persists it as one JSON document.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: ./.inventory or the user config dir)")
	pf.StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: ./.inventory-db)")
	pf.StringVar(&a.flags.backend, "backend", "", "storage backend: file, memory, sqlite, postgres, s3")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(a))
	root.AddCommand(newAddCmd(a))
	root.AddCommand(newRemoveCmd(a))
	root.AddCommand(newIncreaseCmd(a))
	root.AddCommand(newDecreaseCmd(a))
	root.AddCommand(newListCmd(a))
	root.AddCommand(newShowCmd(a))
	root.AddCommand(newCallCmd(a))

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "inventory:", err)
		os.Exit(exitCode(err))
	}
}

// setup resolves the config directory, loads the config and builds the
// logger. It runs before every subcommand except version.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	dir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return sysError(fmt.Errorf("resolve config dir: %w", err))
	}
	v, err := loadConfig(dir)
	if err != nil {
		return sysError(err)
	}
	if a.flags.backend != "" {
		v.Set(cfgKeyBackend, a.flags.backend)
	}
	if a.flags.logLevel != "" {
		v.Set(cfgKeyLogLevel, a.flags.logLevel)
	}
	logger, err := newLogger(cmd.ErrOrStderr(), v.GetString(cfgKeyLogLevel), v.GetString(cfgKeyLogFormat))
	if err != nil {
		return err
	}
	a.configDir, a.v, a.log = dir, v, logger
	return nil
}

// config assembles the storage configuration from flags and viper.
func (a *app) config() (types.Config, error) {
	dataDir, err := paths.ResolveDataDir(a.flags.dataDir, a.v.GetString(cfgKeyDataDir), a.configDir)
	if err != nil {
		return types.Config{}, sysError(fmt.Errorf("resolve data dir: %w", err))
	}
	cfg := configFromViper(a.v)
	cfg.DataDir = dataDir
	if err := cfg.Validate(); err != nil {
		return types.Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// open starts the runtime with the plugin loaded. The caller must Close
// the instance.
func (a *app) open(ctx context.Context) (*inventory.Instance, error) {
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}
	inst, err := inventory.Start(ctx, cfg, host.Options{Logger: a.log})
	if err != nil {
		return nil, sysError(err)
	}
	return inst, nil
}

// exitError carries an explicit exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func sysError(err error) error {
	return &exitError{code: exitSysError, err: err}
}

// exitCode maps err to a process exit code. Storage failures are system
// errors; everything else the user can fix.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	if errors.Is(err, types.ErrPersistence) || errors.Is(err, types.ErrCorruptState) {
		return exitSysError
	}
	return exitUserError
}
