// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/relabs-tech/cansat_computer/internal/app"
	"github.com/relabs-tech/cansat_computer/internal/config"
	"github.com/relabs-tech/cansat_computer/internal/logging"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "./cansat.yaml", "path to configuration file (empty = defaults)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stderr, cfg, version, "i2c_scan")

	if err := app.RunI2CScan(cfg, logger, os.Stdout); err != nil {
		logger.Error("fatal", "err", err)
		os.Exit(1)
	}
}
