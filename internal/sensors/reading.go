// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import "github.com/relabs-tech/cansat_computer/internal/imu"

// Sentinels substituted for a missing or failed reading. Every value is
// outside the physical range of the fitted parts.
const (
	SentinelTemperatureC = -99.99
	SentinelPressureHPa  = -1.0
	SentinelAltitudeM    = -1.0
	SentinelHumidity     = -1.0
	SentinelAxis         = -999.0
)

// Reading is one of Env, Humidity or Inertial.
type Reading interface {
	isReading()
}

// Env is the PressureTemp reading.
type Env struct {
	TemperatureC float64 `json:"temp_c"`
	PressureHPa  float64 `json:"pressure_hpa"`
	AltitudeM    float64 `json:"altitude_m"` // relative to the altitude at bind time
}

// Humidity is the HumidityTemp reading.
type Humidity struct {
	TemperatureC     float64 `json:"temp_c"`
	RelativeHumidity float64 `json:"rh_pct"`
}

// Inertial is the reading of either inertial role.
type Inertial struct {
	Motion       imu.Motion `json:"motion"`
	TemperatureC float64    `json:"temp_c"`
}

func (Env) isReading()      {}
func (Humidity) isReading() {}
func (Inertial) isReading() {}

var sentinelVec = imu.Vec3{X: SentinelAxis, Y: SentinelAxis, Z: SentinelAxis}

var (
	FallbackEnv = Env{
		TemperatureC: SentinelTemperatureC,
		PressureHPa:  SentinelPressureHPa,
		AltitudeM:    SentinelAltitudeM,
	}
	FallbackHumidity = Humidity{
		TemperatureC:     SentinelTemperatureC,
		RelativeHumidity: SentinelHumidity,
	}
	FallbackInertial = Inertial{
		Motion:       imu.Motion{Accel: sentinelVec, Gyro: sentinelVec},
		TemperatureC: SentinelTemperatureC,
	}
)

// Fallback returns the sentinel reading for r.
func Fallback(r Role) Reading {
	switch r {
	case PressureTemp:
		return FallbackEnv
	case HumidityTemp:
		return FallbackHumidity
	default:
		return FallbackInertial
	}
}

// Sample is every role's reading for one cycle.
type Sample struct {
	Env       Env
	Humidity  Humidity
	Primary   Inertial
	Secondary Inertial
}
