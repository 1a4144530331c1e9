// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package bus scans the shared two-wire bus for devices that acknowledge
// their address.
package bus

import (
	"fmt"
	"log/slog"

	"periph.io/x/conn/v3/i2c"
)

// Valid 7-bit device addresses. 0x00 is the general call address and 0x7F is
// reserved, so neither is probed.
const (
	FirstAddr uint16 = 0x01
	LastAddr  uint16 = 0x7E
)

// Prober reports whether a device acknowledges addr.
type Prober interface {
	Probe(addr uint16) bool
}

// ProberFunc adapts a plain function to Prober.
type ProberFunc func(addr uint16) bool

func (f ProberFunc) Probe(addr uint16) bool { return f(addr) }

type i2cProber struct {
	bus i2c.Bus
	buf [1]byte
}

// NewI2CProber probes addresses on a periph I2C bus.
//
// periph's sysfs Tx returns early for a transaction with neither write nor
// read payload, so the probe is a single byte read; a NACK on the address
// phase surfaces as an error.
func NewI2CProber(b i2c.Bus) Prober {
	return &i2cProber{bus: b}
}

func (p *i2cProber) Probe(addr uint16) bool {
	return p.bus.Tx(addr, nil, p.buf[:]) == nil
}

// Scan probes every address in [FirstAddr, LastAddr] exactly once and returns
// the ones that answered, in ascending order. A silent address is not an
// error.
func Scan(p Prober, logger *slog.Logger) []uint16 {
	logger.Info("discovery: scanning I2C devices", "from", HexAddr(FirstAddr), "to", HexAddr(LastAddr))

	var found []uint16
	for addr := FirstAddr; addr <= LastAddr; addr++ {
		if !p.Probe(addr) {
			continue
		}
		logger.Info("discovery: found device", "addr", HexAddr(addr))
		found = append(found, addr)
	}

	logger.Info("discovery: I2C scan complete", "devices", len(found))
	return found
}

// HexAddr renders a bus address the way datasheets print it.
func HexAddr(addr uint16) string {
	return fmt.Sprintf("0x%02X", addr)
}
