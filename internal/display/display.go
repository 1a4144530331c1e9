// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package display drives the optional SSD1306 status panel on the payload
// bus.
package display

import (
	"fmt"
	"image"
	"log/slog"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/relabs-tech/cansat_computer/internal/gps"
	"github.com/relabs-tech/cansat_computer/internal/sensors"
)

// Addr is the SSD1306 bus address; the periph driver does not take another.
const Addr uint16 = 0x3C

const (
	width  = 128
	height = 64
	cols   = width / 7 // basicfont.Face7x13
)

// Panel is the drawing side of an ssd1306.Dev.
type Panel interface {
	Bounds() image.Rectangle
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
}

// Status is what the panel shows.
type Status struct {
	Cycle     uint64
	Fix       gps.Fix
	AltitudeM float64 // barometric, relative
	Avail     sensors.Availability
	LastMSG   string
}

// Open initializes the SSD1306 at Addr on the payload bus.
func Open(b i2c.Bus) (*ssd1306.Dev, error) {
	dev, err := ssd1306.NewI2C(b, &ssd1306.DefaultOpts)
	if err != nil {
		return nil, fmt.Errorf("display: init SSD1306 at 0x%02X: %w", Addr, err)
	}
	return dev, nil
}

// Display redraws the panel every N updates.
type Display struct {
	panel  Panel
	every  int
	logger *slog.Logger
	calls  int
}

func New(panel Panel, everyCycles int, logger *slog.Logger) *Display {
	if everyCycles < 1 {
		everyCycles = 1
	}
	return &Display{panel: panel, every: everyCycles, logger: logger}
}

// Splash shows the boot screen with the discovery result.
func (d *Display) Splash(avail sensors.Availability) {
	img := newFrame()
	drawLines(img,
		"CanSat",
		"Discovery:",
		compactAvailability(avail),
		"Starting...",
	)
	if err := d.panel.Draw(d.panel.Bounds(), img, image.Point{}); err != nil {
		d.logger.Warn("display: error showing splash", "err", err)
	}
}

// Update redraws on the first call and then every N calls. Draw errors are
// logged and otherwise ignored.
func (d *Display) Update(s Status) {
	d.calls++
	if (d.calls-1)%d.every != 0 {
		return
	}
	if err := d.panel.Draw(d.panel.Bounds(), Render(s), image.Point{}); err != nil {
		d.logger.Warn("display: error updating", "err", err)
	}
}

// Render draws the four status lines.
func Render(s Status) *image1bit.VerticalLSB {
	img := newFrame()

	pos := "NO FIX"
	if s.Fix.HasLocation {
		pos = fmt.Sprintf("%8.4f %8.4f", s.Fix.Location.Lat, s.Fix.Location.Lng)
	}
	status := compactAvailability(s.Avail)
	if s.LastMSG != "" {
		status += " " + s.LastMSG
	}

	drawLines(img,
		fmt.Sprintf("C%-7d SAT%02d", s.Cycle, s.Fix.Satellites),
		fmt.Sprintf("ALT %8.1f m", s.AltitudeM),
		pos,
		status,
	)
	return img
}

func newFrame() *image1bit.VerticalLSB {
	return image1bit.NewVerticalLSB(image.Rect(0, 0, width, height))
}

func drawLines(img *image1bit.VerticalLSB, lines ...string) {
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, line := range lines {
		if len(line) > cols {
			line = line[:cols]
		}
		drawer.Dot = fixed.P(0, 13*(i+1))
		drawer.DrawBytes([]byte(line))
	}
}

// compactAvailability fits the role flags on one short line, e.g. "B+A+1-2+".
func compactAvailability(a sensors.Availability) string {
	var sb strings.Builder
	for i, r := range sensors.Roles {
		sb.WriteString([]string{"B", "A", "1", "2"}[i])
		if a.Has(r) {
			sb.WriteByte('+')
		} else {
			sb.WriteByte('-')
		}
	}
	return sb.String()
}
