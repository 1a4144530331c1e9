// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"log/slog"

	"github.com/relabs-tech/cansat_computer/internal/bus"
)

// Discover runs one bus scan and marks every role whose address answered.
// Devices at unknown addresses are logged and otherwise ignored.
func Discover(p bus.Prober, addrs Addresses, logger *slog.Logger) Availability {
	var avail Availability
	for _, addr := range bus.Scan(p, logger) {
		role, ok := addrs.RoleFor(addr)
		if !ok {
			logger.Info("discovery: ignoring device with no role", "addr", bus.HexAddr(addr))
			continue
		}
		avail[role] = true
		logger.Info("discovery: role present", "role", role, "device", role.Device(), "addr", bus.HexAddr(addr))
	}
	return avail
}
