// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package telemetry builds the per-cycle record sent over the radio link and
// parses the commands that come back on it.
package telemetry

import (
	"math"
	"time"

	"github.com/relabs-tech/cansat_computer/internal/gps"
	"github.com/relabs-tech/cansat_computer/internal/imu"
	"github.com/relabs-tech/cansat_computer/internal/sensors"
)

// Keys is the fixed record schema in wire order. MSG is optional and last.
var Keys = []string{
	"TMP_BMP", "TMP_AHT", "TMP_MPU1", "TMP_MPU2",
	"PRS", "ALT",
	"AX", "AY", "AZ",
	"GX", "GY", "GZ",
	"LAT", "LNG", "GPS_ALT", "SAT", "SPD", "DIR",
	"MST", "TS",
}

// KeyMSG is the optional free-text field.
const KeyMSG = "MSG"

// Envelope is one cycle's record. Field order matches Keys.
type Envelope struct {
	TmpBMP  float64 `json:"TMP_BMP"`  // °C
	TmpAHT  float64 `json:"TMP_AHT"`  // °C
	TmpMPU1 float64 `json:"TMP_MPU1"` // °C, offset-corrected
	TmpMPU2 float64 `json:"TMP_MPU2"` // °C, offset-corrected
	PRS     float64 `json:"PRS"`      // hPa
	ALT     float64 `json:"ALT"`      // m, relative to launch site
	AX      float64 `json:"AX"`       // m/s², fused
	AY      float64 `json:"AY"`
	AZ      float64 `json:"AZ"`
	GX      float64 `json:"GX"` // rad/s, fused
	GY      float64 `json:"GY"`
	GZ      float64 `json:"GZ"`
	LAT     float64 `json:"LAT"`
	LNG     float64 `json:"LNG"`
	GpsALT  float64 `json:"GPS_ALT"` // m MSL
	SAT     int     `json:"SAT"`
	SPD     float64 `json:"SPD"` // km/h
	DIR     float64 `json:"DIR"` // degrees
	MST     float64 `json:"MST"` // %RH
	TS      int64   `json:"TS"`  // ms since start
	MSG     string  `json:"MSG,omitempty"`
}

// Positioner is the read side of the positioning decoder. Invalid fields
// report false and are sent as zero.
type Positioner interface {
	Location() (gps.Location, bool)
	Altitude() (float64, bool)
	Satellites() (int, bool)
	SpeedKmh() (float64, bool)
	Course() (float64, bool)
}

// Inputs is everything a cycle contributes besides the position.
type Inputs struct {
	Sample  sensors.Sample
	Elapsed time.Duration // since process start
	Message string
}

// Build assembles the record. It has no error path: every key gets either a
// reading or its sentinel. NaN and ±Inf cannot be encoded, so they are
// replaced by the field's sentinel (0 for position fields).
func Build(in Inputs, pos Positioner) Envelope {
	s := in.Sample
	fused := imu.Fuse(s.Primary.Motion, s.Secondary.Motion)

	env := Envelope{
		TmpBMP:  reading(s.Env.TemperatureC, sensors.SentinelTemperatureC),
		TmpAHT:  reading(s.Humidity.TemperatureC, sensors.SentinelTemperatureC),
		TmpMPU1: reading(s.Primary.TemperatureC, sensors.SentinelTemperatureC),
		TmpMPU2: reading(s.Secondary.TemperatureC, sensors.SentinelTemperatureC),
		PRS:     reading(s.Env.PressureHPa, sensors.SentinelPressureHPa),
		ALT:     reading(s.Env.AltitudeM, sensors.SentinelAltitudeM),
		AX:      reading(fused.Accel.X, sensors.SentinelAxis),
		AY:      reading(fused.Accel.Y, sensors.SentinelAxis),
		AZ:      reading(fused.Accel.Z, sensors.SentinelAxis),
		GX:      reading(fused.Gyro.X, sensors.SentinelAxis),
		GY:      reading(fused.Gyro.Y, sensors.SentinelAxis),
		GZ:      reading(fused.Gyro.Z, sensors.SentinelAxis),
		MST:     reading(s.Humidity.RelativeHumidity, sensors.SentinelHumidity),
		TS:      in.Elapsed.Milliseconds(),
		MSG:     in.Message,
	}

	// Each accessor is read on its own; there is no snapshot.
	if loc, ok := pos.Location(); ok {
		env.LAT = round6(finite(loc.Lat, 0))
		env.LNG = round6(finite(loc.Lng, 0))
	}
	if v, ok := pos.Altitude(); ok {
		env.GpsALT = reading(v, 0)
	}
	if v, ok := pos.Satellites(); ok {
		env.SAT = v
	}
	if v, ok := pos.SpeedKmh(); ok {
		env.SPD = reading(v, 0)
	}
	if v, ok := pos.Course(); ok {
		env.DIR = reading(v, 0)
	}
	return env
}

// Fields returns the record as a flat key/value map. MSG is present only
// when set.
func (e Envelope) Fields() map[string]any {
	m := map[string]any{
		"TMP_BMP":  e.TmpBMP,
		"TMP_AHT":  e.TmpAHT,
		"TMP_MPU1": e.TmpMPU1,
		"TMP_MPU2": e.TmpMPU2,
		"PRS":      e.PRS,
		"ALT":      e.ALT,
		"AX":       e.AX,
		"AY":       e.AY,
		"AZ":       e.AZ,
		"GX":       e.GX,
		"GY":       e.GY,
		"GZ":       e.GZ,
		"LAT":      e.LAT,
		"LNG":      e.LNG,
		"GPS_ALT":  e.GpsALT,
		"SAT":      e.SAT,
		"SPD":      e.SPD,
		"DIR":      e.DIR,
		"MST":      e.MST,
		"TS":       e.TS,
	}
	if e.MSG != "" {
		m[KeyMSG] = e.MSG
	}
	return m
}

// reading rounds v for the wire, or returns sentinel if v is not finite.
func reading(v, sentinel float64) float64 { return round2(finite(v, sentinel)) }

func finite(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round6(v float64) float64 { return math.Round(v*1e6) / 1e6 }
