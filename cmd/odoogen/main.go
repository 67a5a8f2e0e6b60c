package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"odoogen/internal/config"
	"odoogen/internal/logging"
)

var (
	// Global flags
	verbose    bool
	configPath string
	workspace  string
	dryRun     bool
	timeout    time.Duration

	// Resolved at startup
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "odoogen",
	Short: "odoogen - scaffold dockerised Odoo projects",
	Long: `odoogen creates a ready-to-run Odoo project:

  1. Picks a free host port for the web service
  2. Writes docker-compose.yml and config/odoo.conf
  3. Copies the addons you choose from the addon catalog into custom_addons
  4. Optionally starts the stack with docker compose

Run without a subcommand to create a project interactively.`,
	SilenceUsage:      true,
	PersistentPreRunE: bootstrap,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
	RunE: runNew,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: $XDG_CONFIG_HOME/odoogen/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Directory the project is created in (default: current)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Show what would happen without writing files or running commands")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 15*time.Minute, "Operation timeout")

	addNewFlags(rootCmd)
	addNewFlags(newCmd)

	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(portCmd)
	rootCmd.AddCommand(versionsCmd)
	rootCmd.AddCommand(addonsCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap loads .env and the config file, then installs the logger.
func bootstrap(cmd *cobra.Command, args []string) error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}

	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	loaded, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", path, err)
	}
	cfg = loaded

	if _, err := logging.Initialize(logging.Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Verbose: verbose,
		Outputs: cfg.Logging.Outputs(),
	}); err != nil {
		return err
	}
	logger = logging.Get(logging.CategoryBoot)
	logger.Debug("configuration loaded", zap.String("path", path), zap.Bool("dry_run", dryRun))
	return nil
}

// commandContext returns a context bounded by --timeout and cancelled on
// SIGINT/SIGTERM.
func commandContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	return ctx, func() {
		stop()
		cancel()
	}
}

// resolveWorkspace returns --workspace or the current directory.
func resolveWorkspace() string {
	if workspace != "" {
		return workspace
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return cwd
}

// currentConfig returns the loaded config, or defaults when bootstrap did
// not run (tests call run functions directly).
func currentConfig() *config.Config {
	if cfg == nil {
		return config.DefaultConfig()
	}
	return cfg
}

func currentLogger() *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
