// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package gps decodes the NMEA byte stream of the positioning receiver one
// byte at a time.
package gps

import (
	"time"

	nmea "github.com/adrianmo/go-nmea"
)

// MaxSentenceLen is the longest line accepted, '$' and checksum included.
// NMEA 0183 caps sentences at 82 characters; the slack covers receivers that
// append proprietary fields.
const MaxSentenceLen = 120

const knotsToKmh = 1.852

type field[T any] struct {
	v  T
	at time.Time
	ok bool
}

func (f *field[T]) set(v T, at time.Time) {
	f.v, f.at, f.ok = v, at, true
}

func (f *field[T]) invalidate() {
	var zero T
	f.v, f.ok = zero, false
}

func (f *field[T]) get(now time.Time, maxAge time.Duration) (T, bool) {
	var zero T
	if !f.ok {
		return zero, false
	}
	if maxAge > 0 && now.Sub(f.at) > maxAge {
		return zero, false
	}
	return f.v, true
}

// Decoder is an incremental NMEA consumer. It never blocks and never returns
// an error: bad input is counted in Stats and dropped.
//
// A Decoder is not safe for concurrent use. Fields may change between two
// accessor calls if bytes are consumed in between.
type Decoder struct {
	maxAge time.Duration
	now    func() time.Time

	line   []byte
	inLine bool

	location   field[Location]
	altitude   field[float64]
	satellites field[int]
	speed      field[float64]
	course     field[float64]

	stats Stats
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithClock replaces time.Now for age-out checks.
func WithClock(now func() time.Time) Option {
	return func(d *Decoder) { d.now = now }
}

// NewDecoder returns a decoder whose fields go invalid once they have not
// been refreshed for maxAge. A zero maxAge disables age-out.
func NewDecoder(maxAge time.Duration, opts ...Option) *Decoder {
	d := &Decoder{
		maxAge: maxAge,
		now:    time.Now,
		line:   make([]byte, 0, MaxSentenceLen),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Feed consumes every byte of p.
func (d *Decoder) Feed(p []byte) {
	for _, b := range p {
		d.Consume(b)
	}
}

// Write implements io.Writer. It always consumes all of p.
func (d *Decoder) Write(p []byte) (int, error) {
	d.Feed(p)
	return len(p), nil
}

// Consume advances the line state machine by one byte.
func (d *Decoder) Consume(b byte) {
	d.stats.Chars++

	switch {
	case b == '$':
		if d.inLine && len(d.line) > 1 {
			d.stats.Discarded++
		}
		d.line = append(d.line[:0], b)
		d.inLine = true

	case !d.inLine:
		// noise between sentences

	case b == '\r' || b == '\n':
		d.inLine = false
		d.parse(string(d.line))

	case len(d.line) >= MaxSentenceLen:
		d.inLine = false
		d.stats.Discarded++

	default:
		d.line = append(d.line, b)
	}
}

func (d *Decoder) parse(raw string) {
	s, err := nmea.Parse(raw)
	if err != nil {
		d.stats.Failed++
		return
	}
	d.stats.Passed++

	now := d.now()
	switch m := s.(type) {
	case nmea.RMC:
		if m.Validity != nmea.ValidRMC {
			d.location.invalidate()
			d.speed.invalidate()
			d.course.invalidate()
			return
		}
		d.location.set(Location{Lat: m.Latitude, Lng: m.Longitude}, now)
		d.speed.set(m.Speed*knotsToKmh, now)
		d.course.set(m.Course, now)

	case nmea.GGA:
		// The satellite count is meaningful with or without a fix.
		d.satellites.set(int(m.NumSatellites), now)
		if m.FixQuality == nmea.Invalid {
			d.location.invalidate()
			d.altitude.invalidate()
			return
		}
		d.location.set(Location{Lat: m.Latitude, Lng: m.Longitude}, now)
		d.altitude.set(m.Altitude, now)
	}
}

// Location returns the last position and whether it is still valid.
func (d *Decoder) Location() (Location, bool) {
	return d.location.get(d.now(), d.maxAge)
}

// Altitude returns the altitude above mean sea level in meters.
func (d *Decoder) Altitude() (float64, bool) {
	return d.altitude.get(d.now(), d.maxAge)
}

func (d *Decoder) Satellites() (int, bool) {
	return d.satellites.get(d.now(), d.maxAge)
}

// SpeedKmh returns the ground speed in km/h.
func (d *Decoder) SpeedKmh() (float64, bool) {
	return d.speed.get(d.now(), d.maxAge)
}

// Course returns the course over ground in degrees.
func (d *Decoder) Course() (float64, bool) {
	return d.course.get(d.now(), d.maxAge)
}

// Fix copies every field at once. The telemetry cycle reads the accessors
// individually; Fix is for status output.
func (d *Decoder) Fix() Fix {
	var f Fix
	f.Location, f.HasLocation = d.Location()
	f.AltitudeM, _ = d.Altitude()
	f.Satellites, _ = d.Satellites()
	f.SpeedKmh, _ = d.SpeedKmh()
	f.CourseDeg, _ = d.Course()
	return f
}

func (d *Decoder) Stats() Stats {
	return d.stats
}
