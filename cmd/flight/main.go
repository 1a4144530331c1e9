// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/cansat_computer/internal/app"
	"github.com/relabs-tech/cansat_computer/internal/config"
	"github.com/relabs-tech/cansat_computer/internal/logging"
)

const appName = "flight"

// Default version is "dev" if not set with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	configPath := flag.String("config", "./cansat.yaml", "path to configuration file (empty = defaults)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stderr, cfg, version, appName)
	slog.SetDefault(logger)
	logger.Info("starting cansat flight computer (sensors + GPS → radio)",
		"version", version,
		"period", cfg.Cadence.Period,
		"log_level", cfg.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunFlight(ctx, cfg, logger); err != nil {
		logger.Error("fatal", "err", err)
		os.Exit(1)
	}
	logger.Info("shutting down")
}
