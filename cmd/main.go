package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/psync/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config.toml, using defaults", "error", err)
		}
	}

	runner := NewRunner(RunnerOpts{
		Config: config,
		Logger: logger,
	})
	defer runner.close()

	app := &cli.Command{
		Name:     "psync",
		Usage:    "Keep local playlists reconciled with their Spotify counterparts",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		switch {
		case errors.Is(err, shared.ErrNotConnected), errors.Is(err, shared.ErrNeedsReconnect):
			logger.Error("account not linked, run 'psync auth login'", "error", err)
			os.Exit(1)
		case errors.Is(err, shared.ErrPartialFailure):
			logger.Error("sync applied partially, run again to converge", "error", err)
			os.Exit(1)
		default:
			logger.Fatalf("application error: %v", err)
		}
	}
}
