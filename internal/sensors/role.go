// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"strings"

	"github.com/relabs-tech/cansat_computer/internal/config"
)

// Role is the functional slot a physical device fills on the payload.
type Role int

const (
	PressureTemp Role = iota
	HumidityTemp
	InertialPrimary
	InertialSecondary

	NumRoles = 4
)

// Roles lists every role in envelope order.
var Roles = [NumRoles]Role{PressureTemp, HumidityTemp, InertialPrimary, InertialSecondary}

func (r Role) String() string {
	switch r {
	case PressureTemp:
		return "pressure_temp"
	case HumidityTemp:
		return "humidity_temp"
	case InertialPrimary:
		return "inertial_primary"
	case InertialSecondary:
		return "inertial_secondary"
	default:
		return "unknown"
	}
}

// Device names the part fitted for the role.
func (r Role) Device() string {
	switch r {
	case PressureTemp:
		return "BMP280"
	case HumidityTemp:
		return "AHT20"
	case InertialPrimary:
		return "MPU6050 #1"
	case InertialSecondary:
		return "MPU6050 #2"
	default:
		return "?"
	}
}

// Addresses maps each role to its bus address.
type Addresses [NumRoles]uint16

func DefaultAddresses() Addresses {
	return Addresses{
		PressureTemp:      0x77,
		HumidityTemp:      0x38,
		InertialPrimary:   0x68,
		InertialSecondary: 0x69,
	}
}

func AddressesFromConfig(c config.BusConfig) Addresses {
	return Addresses{
		PressureTemp:      c.PressureTempAddr,
		HumidityTemp:      c.HumidityTempAddr,
		InertialPrimary:   c.InertialPrimaryAddr,
		InertialSecondary: c.InertialSecondaryAddr,
	}
}

// RoleFor returns the role bound to addr, if any.
func (a Addresses) RoleFor(addr uint16) (Role, bool) {
	for _, r := range Roles {
		if a[r] == addr {
			return r, true
		}
	}
	return 0, false
}

// Availability holds one flag per role. It is fixed after discovery.
type Availability [NumRoles]bool

func (a Availability) Has(r Role) bool {
	return r >= 0 && r < NumRoles && a[r]
}

func (a Availability) Count() int {
	n := 0
	for _, ok := range a {
		if ok {
			n++
		}
	}
	return n
}

// String renders e.g. "BMP+ AHT+ MPU1- MPU2+".
func (a Availability) String() string {
	short := [NumRoles]string{"BMP", "AHT", "MPU1", "MPU2"}
	parts := make([]string, 0, NumRoles)
	for _, r := range Roles {
		mark := "-"
		if a[r] {
			mark = "+"
		}
		parts = append(parts, short[r]+mark)
	}
	return strings.Join(parts, " ")
}
