// Package cmd provides the CLI commands for the cinedesk console.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/cinedesk/cinedesk/internal/app"
	"github.com/cinedesk/cinedesk/internal/config"
)

var (
	cfgFile string
	devMode bool
)

var rootCmd = &cobra.Command{
	Use:   "cinedesk",
	Short: "cinedesk - cinema admin console",
	Long: `cinedesk is the command-line console for the cinema management backend.

It manages an authenticated session against the backend, enforces the
same role and permission rules as the admin web console, and answers
whether the signed-in user may reach a given screen or perform a given
action.

Quick start:
  1. Create a config file: cinedesk.yaml (api.base_url is required)
  2. Sign in: cinedesk login --phone <phone>

Configuration:
  Config is loaded from cinedesk.yaml in the current directory or
  $HOME/.cinedesk/.

  Environment variables override config values with the CINEDESK_ prefix.
  Example: CINEDESK_API_BASE_URL=https://api.example.com

Commands:
  login        Sign in to the backend
  logout       Sign out and clear local credentials
  whoami       Show the current session
  navigate     Run the navigation guard against a route
  permissions  Show or check the current permission grant
  version      Print version information`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./cinedesk.yaml)")
	rootCmd.PersistentFlags().BoolVar(&devMode, "dev", false, "enable development mode (debug logging, localhost backend)")
}

func initConfig() {
	config.InitViper(cfgFile)
}

// loadConfig loads configuration with the --dev flag applied before
// validation.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigRaw()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if devMode {
		cfg.DevMode = true
	}
	cfg.SetDevDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// buildApp assembles the console core for a command invocation.
func buildApp() (*app.App, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := newLogger(cfg)
	if file := config.ConfigFileUsed(); file != "" {
		logger.Debug("loaded config", "file", file)
	}
	a, err := app.New(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return a, cfg, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := parseLogLevel(cfg.LogLevel)
	if cfg.DevMode {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func parseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
