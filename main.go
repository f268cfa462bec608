package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"walk-loop-server/config"
)

var version = "--- set from makefile ---"

var rootCmd = &cobra.Command{
	Use:           "loopwalk",
	Short:         "Generate closed walking loops over a street network",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(routeCmd)
	rootCmd.AddCommand(truncateCmd)
}

// setup loads .env, the configuration and the logger shared by every command.
func setup() (*config.Config, *slog.Logger, error) {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	if envErr != nil {
		logger.Debug("no .env file found, using environment variables")
	}
	return cfg, logger, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("loopwalk failed", "error", err)
		os.Exit(1)
	}
}
