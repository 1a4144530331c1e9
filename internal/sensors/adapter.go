// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"errors"
	"log/slog"
	"time"

	"periph.io/x/conn/v3/i2c"

	"github.com/relabs-tech/cansat_computer/internal/bus"
	"github.com/relabs-tech/cansat_computer/internal/config"
)

// ErrUnexpectedDevice is returned by an opener when the device at the role's
// address is not the part the role expects.
var ErrUnexpectedDevice = errors.New("sensors: unexpected device")

// Driver produces a typed reading or fails.
type Driver interface {
	Read() (Reading, error)
}

// Opener binds a driver to the device at addr. It runs once per role.
type Opener func(b i2c.Bus, addr uint16) (Driver, error)

// DefaultOpeners returns the drivers for the flight hardware.
func DefaultOpeners(cfg config.SensorsConfig) map[Role]Opener {
	mpu := func(b i2c.Bus, addr uint16) (Driver, error) {
		return NewMPU6050(b, addr, cfg.MPUTempOffsetC)
	}
	return map[Role]Opener{
		PressureTemp: func(b i2c.Bus, addr uint16) (Driver, error) {
			return NewBMP280(b, addr, cfg.SeaLevelHPa)
		},
		HumidityTemp: func(b i2c.Bus, addr uint16) (Driver, error) {
			return NewAHT20(b, addr)
		},
		InertialPrimary:   mpu,
		InertialSecondary: mpu,
	}
}

// Adapter owns one role. A role without a driver always reports its
// sentinel and never touches the bus.
type Adapter struct {
	role   Role
	addr   uint16
	drv    Driver
	logger *slog.Logger

	now        func() time.Time
	logEvery   time.Duration
	lastLogged time.Time
	suppressed int
}

func (a *Adapter) Role() Role      { return a.role }
func (a *Adapter) Available() bool { return a.drv != nil }

// Read returns this cycle's reading, or the sentinel on failure. There is no
// retry within a cycle and a failed read does not disable the role.
func (a *Adapter) Read() Reading {
	if a.drv == nil {
		return Fallback(a.role)
	}
	r, err := a.drv.Read()
	if err != nil {
		a.noteFailure(err)
		return Fallback(a.role)
	}
	return r
}

// noteFailure logs at most one read failure per logEvery.
func (a *Adapter) noteFailure(err error) {
	now := a.now()
	if !a.lastLogged.IsZero() && now.Sub(a.lastLogged) < a.logEvery {
		a.suppressed++
		return
	}
	a.logger.Warn("sensors: read failed, using fallback",
		"role", a.role,
		"device", a.role.Device(),
		"addr", bus.HexAddr(a.addr),
		"err", err,
		"suppressed", a.suppressed,
	)
	a.lastLogged = now
	a.suppressed = 0
}

type BindOptions struct {
	Bus       i2c.Bus
	Addresses Addresses
	Openers   map[Role]Opener
	Logger    *slog.Logger

	// ReadErrorLogInterval throttles per-cycle read failure logs.
	ReadErrorLogInterval time.Duration
	Now                  func() time.Time
}

// Set holds one adapter per role.
type Set struct {
	adapters [NumRoles]*Adapter
}

// Bind initializes every discovered role once. A role whose driver fails to
// initialize is demoted to unavailable for the rest of the run.
func Bind(avail Availability, opts BindOptions) *Set {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	s := &Set{}
	for _, r := range Roles {
		a := &Adapter{
			role:     r,
			addr:     opts.Addresses[r],
			logger:   opts.Logger,
			now:      now,
			logEvery: opts.ReadErrorLogInterval,
		}
		s.adapters[r] = a

		if !avail.Has(r) {
			opts.Logger.Warn("sensors: device NOT found", "role", r, "device", r.Device(), "addr", bus.HexAddr(a.addr))
			continue
		}
		open := opts.Openers[r]
		if open == nil {
			opts.Logger.Warn("sensors: no driver for role", "role", r, "device", r.Device())
			continue
		}
		drv, err := open(opts.Bus, a.addr)
		if err != nil {
			opts.Logger.Warn("sensors: init failed, role disabled", "role", r, "device", r.Device(), "addr", bus.HexAddr(a.addr), "err", err)
			continue
		}
		a.drv = drv
		opts.Logger.Info("sensors: device found", "role", r, "device", r.Device(), "addr", bus.HexAddr(a.addr))
	}
	return s
}

func (s *Set) Adapter(r Role) *Adapter { return s.adapters[r] }

// Availability reports the roles that survived initialization.
func (s *Set) Availability() Availability {
	var avail Availability
	for _, r := range Roles {
		avail[r] = s.adapters[r].Available()
	}
	return avail
}

// Sample reads every role once.
func (s *Set) Sample() Sample {
	return Sample{
		Env:       readAs(s.adapters[PressureTemp], FallbackEnv),
		Humidity:  readAs(s.adapters[HumidityTemp], FallbackHumidity),
		Primary:   readAs(s.adapters[InertialPrimary], FallbackInertial),
		Secondary: readAs(s.adapters[InertialSecondary], FallbackInertial),
	}
}

func readAs[T Reading](a *Adapter, fallback T) T {
	if v, ok := a.Read().(T); ok {
		return v
	}
	return fallback
}
