// Command server runs the memory journal API.
//
// main stays small: read config, build the logger, hand both to the server.
// Everything else is wired in internal/server.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/sakif/memory-journal/internal/config"
	"github.com/sakif/memory-journal/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Validate already rejected unparseable levels.
	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	srv, err := server.New(context.Background(), cfg, logger, server.Oracles{})
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
