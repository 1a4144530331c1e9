// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"math"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/bmxx80"
)

// Forced-mode measurement stays around 20ms with these settings.
var bmp280Opts = bmxx80.Opts{
	Temperature: bmxx80.O2x,
	Pressure:    bmxx80.O8x,
	Filter:      bmxx80.F4,
}

// barometer is the part of *bmxx80.Dev the adapter uses.
type barometer interface {
	Sense(e *physic.Env) error
	Halt() error
}

type bmp280 struct {
	dev           barometer
	seaLevelHPa   float64
	baseAltitudeM float64
}

// NewBMP280 binds the barometer and records the launch-site altitude that
// later readings are reported against.
func NewBMP280(b i2c.Bus, addr uint16, seaLevelHPa float64) (Driver, error) {
	dev, err := bmxx80.NewI2C(b, addr, &bmp280Opts)
	if err != nil {
		return nil, fmt.Errorf("BMP280 init: %w", err)
	}
	s, err := newBMP280(dev, seaLevelHPa)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func newBMP280(dev barometer, seaLevelHPa float64) (*bmp280, error) {
	var e physic.Env
	if err := dev.Sense(&e); err != nil {
		_ = dev.Halt()
		return nil, fmt.Errorf("BMP280 initial sense: %w", err)
	}

	return &bmp280{
		dev:           dev,
		seaLevelHPa:   seaLevelHPa,
		baseAltitudeM: PressureAltitude(pressureHPa(e), seaLevelHPa),
	}, nil
}

// Read reads temperature + pressure and derives the relative altitude.
func (s *bmp280) Read() (Reading, error) {
	var e physic.Env
	if err := s.dev.Sense(&e); err != nil {
		return nil, fmt.Errorf("BMP280 sense: %w", err)
	}

	p := pressureHPa(e)
	return Env{
		TemperatureC: e.Temperature.Celsius(),
		PressureHPa:  p,
		AltitudeM:    PressureAltitude(p, s.seaLevelHPa) - s.baseAltitudeM,
	}, nil
}

func pressureHPa(e physic.Env) float64 {
	pressurePa := float64(e.Pressure) / float64(physic.Pascal)
	return pressurePa / 100.0 // 1 hPa = 100 Pa
}

// PressureAltitude is the international barometric formula, in meters.
func PressureAltitude(pressureHPa, seaLevelHPa float64) float64 {
	return 44330.0 * (1.0 - math.Pow(pressureHPa/seaLevelHPa, 0.1903))
}
