// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"io"
	"log/slog"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/cansat_computer/internal/bus"
	"github.com/relabs-tech/cansat_computer/internal/config"
	"github.com/relabs-tech/cansat_computer/internal/sensors"
)

// RunI2CScan runs one discovery pass on the payload bus and prints which
// roles would be available in flight.
func RunI2CScan(cfg *config.Config, logger *slog.Logger, w io.Writer) error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}
	i2cBus, err := i2creg.Open(cfg.Bus.Name)
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer i2cBus.Close()

	return WriteScanReport(w, bus.NewI2CProber(i2cBus), sensors.AddressesFromConfig(cfg.Bus), logger)
}

// WriteScanReport prints one line per role followed by the summary.
func WriteScanReport(w io.Writer, p bus.Prober, addrs sensors.Addresses, logger *slog.Logger) error {
	avail := sensors.Discover(p, addrs, logger)

	for _, r := range sensors.Roles {
		state := "MISSING (sentinel values)"
		if avail.Has(r) {
			state = "present"
		}
		if _, err := fmt.Fprintf(w, "%-18s %-10s %s  %s\n", r, r.Device(), bus.HexAddr(addrs[r]), state); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%d/%d roles available: %s\n", avail.Count(), sensors.NumRoles, avail)
	return err
}
