// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/relabs-tech/cansat_computer/internal/config"
	"github.com/relabs-tech/cansat_computer/internal/link"
	"github.com/relabs-tech/cansat_computer/internal/telemetry"
)

const groundPollInterval = 20 * time.Millisecond

// RecordSink receives every record the ground station decodes.
type RecordSink interface {
	Name() string
	Publish(ctx context.Context, line []byte, env telemetry.Envelope) error
}

// GroundStation decodes records arriving from the payload and fans them out
// to the configured sinks.
type GroundStation struct {
	logger *slog.Logger
	sinks  []RecordSink
	lines  *telemetry.LineSplitter

	received  uint64
	malformed uint64
}

func NewGroundStation(sinks []RecordSink, maxLine int, logger *slog.Logger) *GroundStation {
	return &GroundStation{
		logger: logger,
		sinks:  sinks,
		lines:  telemetry.NewLineSplitter(maxLine),
	}
}

// Feed consumes raw link bytes.
func (g *GroundStation) Feed(ctx context.Context, p []byte) {
	g.lines.Split(p,
		func(line []byte) { g.HandleLine(ctx, line) },
		func(head []byte) {
			g.malformed++
			g.logger.Warn("ground: line too long, discarding", "head", string(head))
		},
	)
}

// HandleLine decodes one record line and publishes it. A sink error is
// logged and does not stop the other sinks.
func (g *GroundStation) HandleLine(ctx context.Context, line []byte) {
	env, err := telemetry.Decode(line)
	if err != nil {
		g.malformed++
		g.logger.Warn("ground: invalid record", "raw", string(line), "err", err)
		return
	}
	g.received++

	g.logger.Info("ground: record",
		"ts", env.TS,
		"alt", env.ALT,
		"prs", env.PRS,
		"sat", env.SAT,
		"lat", env.LAT,
		"lng", env.LNG,
	)
	if env.MSG != "" {
		g.logger.Info("ground: <<<< MSG", "msg", env.MSG)
	}

	for _, s := range g.sinks {
		if err := s.Publish(ctx, line, env); err != nil {
			g.logger.Warn("ground: sink error", "sink", s.Name(), "err", err)
		}
	}
}

// Replay feeds a recorded session through the sinks.
func (g *GroundStation) Replay(ctx context.Context, r io.Reader) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		g.HandleLine(ctx, []byte(line))
	}
	return sc.Err()
}

func (g *GroundStation) Counts() (received, malformed uint64) {
	return g.received, g.malformed
}

// Uplink serializes MSG commands to the payload. A command is written only
// while no received bytes are waiting, so it lands between two records.
type Uplink struct {
	w       io.Writer
	pending func() bool
	logger  *slog.Logger
	queue   chan string
}

func NewUplink(w io.Writer, pending func() bool, logger *slog.Logger) *Uplink {
	return &Uplink{
		w:       w,
		pending: pending,
		logger:  logger,
		queue:   make(chan string, 16),
	}
}

// Send queues msg. It never blocks; a full queue drops msg.
func (u *Uplink) Send(msg string) {
	select {
	case u.queue <- msg:
	default:
		u.logger.Warn("ground: uplink queue full, dropping MSG", "msg", msg)
	}
}

// Run writes queued commands until ctx is done.
func (u *Uplink) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-u.queue:
			for u.pending() {
				select {
				case <-ctx.Done():
					return
				case <-time.After(groundPollInterval):
				}
			}
			frame, err := telemetry.EncodeCommand(msg)
			if err != nil {
				u.logger.Warn("ground: encode MSG", "err", err)
				continue
			}
			if _, err := u.w.Write(frame); err != nil {
				u.logger.Warn("ground: uplink write failed", "err", err)
				continue
			}
			u.logger.Info("ground: >>>> MSG", "msg", msg)
		}
	}
}

// ReadCommands sends every non-blank line of r as a MSG.
func ReadCommands(r io.Reader, send func(string)) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			send(line)
		}
	}
	return sc.Err()
}

// RunGroundStation receives the payload's records until ctx is done. With a
// non-empty replayPath it plays a session log instead of opening the link.
func RunGroundStation(ctx context.Context, cfg *config.Config, logger *slog.Logger, replayPath string, stdin io.Reader) error {
	var sinks []RecordSink

	if cfg.Ground.SessionLog != "" && replayPath == "" {
		sl, err := openSessionLog(cfg.Ground.SessionLog)
		if err != nil {
			return err
		}
		defer sl.Close()
		sinks = append(sinks, sl)
		logger.Info("ground: session log", "path", cfg.Ground.SessionLog)
	}

	if cfg.Ground.MQTTBroker != "" {
		ms, err := newMQTTSink(cfg.Ground, logger)
		if err != nil {
			logger.Warn("ground: MQTT relay disabled", "err", err)
		} else {
			defer ms.Close()
			sinks = append(sinks, ms)
		}
	}

	if cfg.Ground.InfluxURL != "" {
		is := newInfluxSink(cfg.Ground)
		defer is.Close()
		sinks = append(sinks, is)
		logger.Info("ground: influx sink", "url", cfg.Ground.InfluxURL, "bucket", cfg.Ground.InfluxBucket)
	}

	var hub *Hub
	if cfg.Ground.WebAddr != "" {
		hub = NewHub(logger)
		sinks = append(sinks, hub)

		srv := &http.Server{Addr: cfg.Ground.WebAddr, Handler: hub.Handler()}
		go func() {
			logger.Info("ground: web server listening", "addr", cfg.Ground.WebAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("ground: web server stopped", "err", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	station := NewGroundStation(sinks, cfg.Link.MaxRecordBytes+2, logger)

	if replayPath != "" {
		f, err := os.Open(replayPath)
		if err != nil {
			return fmt.Errorf("open replay: %w", err)
		}
		defer f.Close()
		err = station.Replay(ctx, f)
		received, malformed := station.Counts()
		logger.Info("ground: replay done", "records", received, "malformed", malformed)
		return err
	}

	port, err := link.Open(link.LinkPort(cfg))
	if err != nil {
		return fmt.Errorf("telemetry link: %w", err)
	}
	defer port.Close()
	logger.Info("ground: link opened", "port", cfg.Link.Port, "baud", cfg.Link.BaudRate)

	stream := link.NewStream("link", port, link.DefaultQueueDepth, logger)
	defer stream.Close()

	uplink := NewUplink(port, stream.Pending, logger)
	go uplink.Run(ctx)
	if hub != nil {
		hub.SetUplink(uplink.Send)
	}
	if stdin != nil {
		go func() {
			if err := ReadCommands(stdin, uplink.Send); err != nil {
				logger.Warn("ground: stdin", "err", err)
			}
		}()
	}

	ticker := time.NewTicker(groundPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			received, malformed := station.Counts()
			logger.Info("ground: shutting down", "records", received, "malformed", malformed)
			return nil
		case <-ticker.C:
			stream.Drain(func(p []byte) { station.Feed(ctx, p) })
		}
	}
}
