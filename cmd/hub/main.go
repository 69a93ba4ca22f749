package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xaenox/knowledge-hub/pkg/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "hub",
		Short:        "Personal knowledge hub: API server, Telegram bot and GitHub sync",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Serve the HTTP API (and the Telegram bot when a token is configured)
  hub serve

  # Pull repositories and gists into the hub
  hub sync octocat

  # Preview the tags and routing a file would get
  hub classify notes.md
`),
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// A missing .env is fine, the environment may already be set.
		_ = godotenv.Load()

		cfg, err := config.LoadConfig(app.ConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		logger, err := newLogger(cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		app.Config = cfg
		app.Logger = logger
		return nil
	}
	cmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		if app.Logger != nil {
			_ = app.Logger.Sync()
		}
	}

	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", envOr("HUB_CONFIG", "config.yaml"), "Path to the YAML config file")

	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newSyncCmd(app))
	cmd.AddCommand(newCaptureCmd(app))
	cmd.AddCommand(newUploadCmd(app))
	cmd.AddCommand(newClassifyCmd(app))
	cmd.AddCommand(newStatsCmd(app))
	cmd.AddCommand(newGistCmd(app))
	cmd.AddCommand(newImportCmd(app))

	return cmd
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	if cfg.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		zc.Level = level
	}
	return zc.Build()
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
