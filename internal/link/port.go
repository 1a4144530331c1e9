// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package link opens the serial ports used by the payload and turns their
// receive side into a non-blocking queue.
package link

import (
	"errors"
	"fmt"
	"io"
	"time"

	jserial "github.com/jacobsa/go-serial/serial"
	tserial "github.com/tarm/serial"

	"github.com/relabs-tech/cansat_computer/internal/config"
)

// ReadTimeout bounds every blocking read so a closed stream's pump exits.
const ReadTimeout = 100 * time.Millisecond

// PortConfig selects a serial device and the driver used to open it.
type PortConfig struct {
	Name     string
	BaudRate int
	Driver   string // "jacobsa" (default) or "tarm"
}

// LinkPort is the telemetry radio port.
func LinkPort(c *config.Config) PortConfig {
	return PortConfig{Name: c.Link.Port, BaudRate: c.Link.BaudRate, Driver: c.Link.Driver}
}

// GPSPort is the positioning receiver port. It uses the same driver as the
// link.
func GPSPort(c *config.Config) PortConfig {
	return PortConfig{Name: c.GPS.Port, BaudRate: c.GPS.BaudRate, Driver: c.Link.Driver}
}

// Open opens the port 8N1. Reads return after ReadTimeout with no data
// instead of blocking.
func Open(pc PortConfig) (io.ReadWriteCloser, error) {
	switch pc.Driver {
	case "", "jacobsa":
		port, err := jserial.Open(jserial.OpenOptions{
			PortName:              pc.Name,
			BaudRate:              uint(pc.BaudRate),
			DataBits:              8,
			StopBits:              1,
			ParityMode:            jserial.PARITY_NONE,
			MinimumReadSize:       0,
			InterCharacterTimeout: uint(ReadTimeout / time.Millisecond),
		})
		if err != nil {
			return nil, fmt.Errorf("link: open %s: %w", pc.Name, err)
		}
		return timeoutPort{port}, nil

	case "tarm":
		port, err := tserial.OpenPort(&tserial.Config{
			Name:        pc.Name,
			Baud:        pc.BaudRate,
			ReadTimeout: ReadTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("link: open %s: %w", pc.Name, err)
		}
		return timeoutPort{port}, nil

	default:
		return nil, fmt.Errorf("link: unknown serial driver %q", pc.Driver)
	}
}

// timeoutPort reports an expired read timeout as an empty read rather than
// io.EOF, which is what both drivers surface from the tty.
type timeoutPort struct {
	io.ReadWriteCloser
}

func (p timeoutPort) Read(b []byte) (int, error) {
	n, err := p.ReadWriteCloser.Read(b)
	if n == 0 && errors.Is(err, io.EOF) {
		return 0, nil
	}
	return n, err
}
