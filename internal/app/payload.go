// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"periph.io/x/conn/v3/i2c"

	"github.com/relabs-tech/cansat_computer/internal/bus"
	"github.com/relabs-tech/cansat_computer/internal/cadence"
	"github.com/relabs-tech/cansat_computer/internal/config"
	"github.com/relabs-tech/cansat_computer/internal/display"
	"github.com/relabs-tech/cansat_computer/internal/gps"
	"github.com/relabs-tech/cansat_computer/internal/sensors"
	"github.com/relabs-tech/cansat_computer/internal/telemetry"
)

// ErrAlreadyDiscovered is returned by a second discovery attempt. The bus is
// scanned once per process.
var ErrAlreadyDiscovered = errors.New("app: bus discovery already ran")

// Drainer hands over buffered input without blocking. *link.Stream
// implements it.
type Drainer interface {
	Drain(fn func([]byte)) int
}

// PayloadDeps are the payload's collaborators.
type PayloadDeps struct {
	Prober  bus.Prober
	Bus     i2c.Bus
	Openers map[sensors.Role]sensors.Opener

	GPS     Drainer   // positioning receiver bytes
	Inbound Drainer   // command bytes from the radio
	Radio   io.Writer // record sink

	Clock   cadence.Clock    // nil = system clock
	Display *display.Display // optional
	Logger  *slog.Logger
}

// Payload is the process-wide state of the flight computer: the fixed
// availability set, the bound adapters and the stream consumers. It is
// built once and driven from one goroutine.
type Payload struct {
	cfg    *config.Config
	deps   PayloadDeps
	logger *slog.Logger

	clock   cadence.Clock
	cadence *cadence.Controller
	started time.Time

	discovered bool
	addrs      sensors.Addresses
	sensors    *sensors.Set

	gps   *gps.Decoder
	inbox *telemetry.Inbox

	cycle   uint64
	lastMSG string
	stats   TxStats
}

// TxStats counts what happened to the records built so far.
type TxStats struct {
	Sent      uint64
	Truncated uint64
	Skipped   uint64 // too large even without MSG
	Failed    uint64 // radio write errors
}

// NewPayload wires the payload and runs the one bus discovery pass.
func NewPayload(cfg *config.Config, deps PayloadDeps) (*Payload, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("app: payload needs a logger")
	}
	if deps.Prober == nil || deps.GPS == nil || deps.Inbound == nil || deps.Radio == nil {
		return nil, fmt.Errorf("app: payload needs a prober, both streams and a radio writer")
	}
	clock := deps.Clock
	if clock == nil {
		clock = cadence.SystemClock
	}

	p := &Payload{
		cfg:     cfg,
		deps:    deps,
		logger:  deps.Logger,
		clock:   clock,
		cadence: cadence.New(cfg.Cadence.Period, cfg.Cadence.Poll, clock),
		started: clock.Now(),
		addrs:   sensors.AddressesFromConfig(cfg.Bus),
		gps:     gps.NewDecoder(cfg.GPS.FixMaxAge, gps.WithClock(clock.Now)),
		inbox:   telemetry.NewInbox(cfg.Link.MaxLineBytes, deps.Logger),
	}
	if err := p.Discover(); err != nil {
		return nil, err
	}
	return p, nil
}

// Discover scans the bus and binds every present role. Only the first call
// does anything.
func (p *Payload) Discover() error {
	if p.discovered {
		return ErrAlreadyDiscovered
	}
	p.discovered = true

	avail := sensors.Discover(p.deps.Prober, p.addrs, p.logger)
	p.sensors = sensors.Bind(avail, sensors.BindOptions{
		Bus:                  p.deps.Bus,
		Addresses:            p.addrs,
		Openers:              p.deps.Openers,
		Logger:               p.logger,
		ReadErrorLogInterval: p.cfg.Sensors.ReadErrorLogInterval,
		Now:                  p.clock.Now,
	})

	p.logger.Info("discovery: sensor roles bound",
		"available", p.sensors.Availability().String(),
		"count", p.sensors.Availability().Count(),
	)
	return nil
}

func (p *Payload) Availability() sensors.Availability { return p.sensors.Availability() }
func (p *Payload) GPS() *gps.Decoder                   { return p.gps }
func (p *Payload) Stats() TxStats                      { return p.stats }

// DrainGPS feeds every pending positioning byte to the decoder.
func (p *Payload) DrainGPS() int {
	return p.deps.GPS.Drain(p.gps.Feed)
}

// Cycle runs one active phase: drain positioning, sample, take the inbound
// MSG, build, transmit.
func (p *Payload) Cycle(start time.Time) {
	p.cycle++
	gpsBytes := p.DrainGPS()

	sample := p.sensors.Sample()

	p.deps.Inbound.Drain(p.inbox.Feed)
	msg, _ := p.inbox.Take()
	if msg != "" {
		p.lastMSG = msg
	}

	env := telemetry.Build(telemetry.Inputs{
		Sample:  sample,
		Elapsed: start.Sub(p.started),
		Message: msg,
	}, p.gps)

	sent := p.transmit(env)

	if p.deps.Display != nil {
		p.deps.Display.Update(display.Status{
			Cycle:     p.cycle,
			Fix:       p.gps.Fix(),
			AltitudeM: env.ALT,
			Avail:     p.sensors.Availability(),
			LastMSG:   p.lastMSG,
		})
	}

	p.logger.Debug("cycle: done",
		"cycle", p.cycle,
		"ts", env.TS,
		"bytes", sent,
		"gps_bytes", gpsBytes,
		"active", p.clock.Now().Sub(start),
	)
}

// transmit applies the record size policy and writes one framed record.
func (p *Payload) transmit(env telemetry.Envelope) int {
	body, truncated, err := telemetry.Encode(env, p.cfg.Link.MaxRecordBytes)
	if err != nil {
		p.stats.Skipped++
		p.logger.Error("telemetry: record not sent", "cycle", p.cycle, "err", err)
		return 0
	}
	if truncated {
		p.stats.Truncated++
		p.logger.Warn("telemetry: MSG truncated to fit record", "cycle", p.cycle, "limit", p.cfg.Link.MaxRecordBytes)
	}

	n, err := p.deps.Radio.Write(telemetry.Frame(body))
	if err != nil {
		p.stats.Failed++
		p.logger.Warn("telemetry: radio write failed", "cycle", p.cycle, "err", err)
		return n
	}
	p.stats.Sent++
	return n
}

// Run cycles until ctx is done. Cancellation is seen between cycles only.
func (p *Payload) Run(ctx context.Context) error {
	p.logger.Info("cycle: starting loop", "period", p.cadence.Period())
	err := p.cadence.Run(ctx, p.Cycle, p.DrainGPS)

	st := p.gps.Stats()
	p.logger.Info("cycle: loop stopped",
		"cycles", p.cycle,
		"sent", p.stats.Sent,
		"truncated", p.stats.Truncated,
		"skipped", p.stats.Skipped,
		"gps_passed", st.Passed,
		"gps_failed", st.Failed,
	)
	return err
}
