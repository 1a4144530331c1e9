// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"
)

const (
	aht20CmdCalibrate = 0xBE
	aht20CmdTrigger   = 0xAC

	aht20StatusBusy       = 0x80
	aht20StatusCalibrated = 0x08

	aht20CalibrateDelay = 10 * time.Millisecond
	aht20MeasureDelay   = 80 * time.Millisecond
)

type aht20 struct {
	dev   *i2c.Dev
	sleep func(time.Duration)
}

// NewAHT20 binds the humidity sensor, running the calibration command if
// the status register says it is needed.
func NewAHT20(b i2c.Bus, addr uint16) (Driver, error) {
	return newAHT20(b, addr, time.Sleep)
}

func newAHT20(b i2c.Bus, addr uint16, sleep func(time.Duration)) (*aht20, error) {
	s := &aht20{dev: &i2c.Dev{Bus: b, Addr: addr}, sleep: sleep}

	st, err := s.status()
	if err != nil {
		return nil, fmt.Errorf("AHT20 status: %w", err)
	}
	if st&aht20StatusCalibrated != 0 {
		return s, nil
	}

	if err := s.dev.Tx([]byte{aht20CmdCalibrate, 0x08, 0x00}, nil); err != nil {
		return nil, fmt.Errorf("AHT20 calibrate: %w", err)
	}
	s.sleep(aht20CalibrateDelay)

	if st, err = s.status(); err != nil {
		return nil, fmt.Errorf("AHT20 status: %w", err)
	}
	if st&aht20StatusCalibrated == 0 {
		return nil, fmt.Errorf("%w: AHT20 still uncalibrated (status 0x%02X)", ErrUnexpectedDevice, st)
	}
	return s, nil
}

func (s *aht20) status() (byte, error) {
	var b [1]byte
	err := s.dev.Tx(nil, b[:])
	return b[0], err
}

// Read triggers one measurement and waits for it. The 7th byte is a CRC-8
// over the first six.
func (s *aht20) Read() (Reading, error) {
	if err := s.dev.Tx([]byte{aht20CmdTrigger, 0x33, 0x00}, nil); err != nil {
		return nil, fmt.Errorf("AHT20 trigger: %w", err)
	}
	s.sleep(aht20MeasureDelay)

	var d [7]byte
	if err := s.dev.Tx(nil, d[:]); err != nil {
		return nil, fmt.Errorf("AHT20 read: %w", err)
	}
	if d[0]&aht20StatusBusy != 0 {
		return nil, fmt.Errorf("AHT20 read: measurement not ready")
	}
	if got := crc8(d[:6]); got != d[6] {
		return nil, fmt.Errorf("AHT20 read: crc 0x%02X, want 0x%02X", got, d[6])
	}

	rawH := uint32(d[1])<<12 | uint32(d[2])<<4 | uint32(d[3])>>4
	rawT := uint32(d[3]&0x0F)<<16 | uint32(d[4])<<8 | uint32(d[5])

	return Humidity{
		RelativeHumidity: float64(rawH) * 100.0 / (1 << 20),
		TemperatureC:     float64(rawT)*200.0/(1<<20) - 50.0,
	}, nil
}

// crc8 is the Sensirion/Aosong CRC: poly 0x31, init 0xFF.
func crc8(data []byte) byte {
	crc := byte(0xFF)
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ 0x31
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
