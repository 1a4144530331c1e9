// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/cansat_computer/internal/bus"
	"github.com/relabs-tech/cansat_computer/internal/config"
	"github.com/relabs-tech/cansat_computer/internal/display"
	"github.com/relabs-tech/cansat_computer/internal/link"
	"github.com/relabs-tech/cansat_computer/internal/sensors"
)

// RunFlight brings up the payload hardware and runs the telemetry loop until
// ctx is cancelled. Only failing to open the bus or a serial port is fatal.
func RunFlight(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	i2cBus, err := i2creg.Open(cfg.Bus.Name)
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer i2cBus.Close()

	gpsPort, err := link.Open(link.GPSPort(cfg))
	if err != nil {
		return fmt.Errorf("gps port: %w", err)
	}
	defer gpsPort.Close()
	logger.Info("gps: serial port opened", "port", cfg.GPS.Port, "baud", cfg.GPS.BaudRate)

	radio, err := link.Open(link.LinkPort(cfg))
	if err != nil {
		return fmt.Errorf("telemetry link: %w", err)
	}
	defer radio.Close()
	logger.Info("link: serial port opened", "port", cfg.Link.Port, "baud", cfg.Link.BaudRate, "driver", cfg.Link.Driver)

	gpsStream := link.NewStream("gps", gpsPort, link.DefaultQueueDepth, logger)
	defer gpsStream.Close()
	inbound := link.NewStream("link", radio, link.DefaultQueueDepth, logger)
	defer inbound.Close()

	var panel *display.Display
	if cfg.Display.I2CAddr != 0 {
		dev, err := display.Open(i2cBus)
		if err != nil {
			logger.Warn("display: disabled", "err", err)
		} else {
			panel = display.New(dev, cfg.Display.EveryCycles, logger)
			logger.Info("display: initialized", "addr", bus.HexAddr(cfg.Display.I2CAddr))
		}
	}

	payload, err := NewPayload(cfg, PayloadDeps{
		Prober:  bus.NewI2CProber(i2cBus),
		Bus:     i2cBus,
		Openers: sensors.DefaultOpeners(cfg.Sensors),
		GPS:     gpsStream,
		Inbound: inbound,
		Radio:   radio,
		Display: panel,
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	if panel != nil {
		panel.Splash(payload.Availability())
	}

	err = payload.Run(ctx)
	if dropped := gpsStream.Dropped() + inbound.Dropped(); dropped > 0 {
		logger.Warn("link: receive queue overflowed", "gps_bytes", gpsStream.Dropped(), "link_bytes", inbound.Dropped())
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
