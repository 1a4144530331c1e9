// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"encoding/binary"
	"fmt"
	"math"

	"periph.io/x/conn/v3/i2c"

	"github.com/relabs-tech/cansat_computer/internal/bus"
	"github.com/relabs-tech/cansat_computer/internal/imu"
)

const standardGravity = 9.80665 // m/s² per g

type mpu6050 struct {
	name        string // for logging, e.g. "MPU6050@0x68"
	dev         *i2c.Dev
	tempOffsetC float64
}

// NewMPU6050 initializes an MPU6050 at addr: ±2g, ±500°/s, 260Hz DLPF.
// tempOffsetC is subtracted from the die temperature, which runs warm.
func NewMPU6050(b i2c.Bus, addr uint16, tempOffsetC float64) (Driver, error) {
	s := &mpu6050{
		name:        "MPU6050@" + bus.HexAddr(addr),
		dev:         &i2c.Dev{Bus: b, Addr: addr},
		tempOffsetC: tempOffsetC,
	}

	var id [1]byte
	if err := s.dev.Tx([]byte{mpuRegWhoAmI}, id[:]); err != nil {
		return nil, fmt.Errorf("%s: read WHO_AM_I: %w", s.name, err)
	}
	if id[0] != mpuWhoAmI {
		return nil, fmt.Errorf("%w: %s WHO_AM_I = 0x%02X, want 0x%02X", ErrUnexpectedDevice, s.name, id[0], mpuWhoAmI)
	}

	// Wake up first: the part powers on in sleep mode.
	for _, w := range []struct {
		reg, val byte
		what     string
	}{
		{mpuRegPwrMgmt1, mpuClockPLLX, "wake"},
		{mpuRegSmplrtDiv, mpuSampleDiv0, "set sample rate divider"},
		{mpuRegConfig, mpuDLPF260, "set DLPF config"},
		{mpuRegGyroConfig, mpuGyro500, "set gyro range"},
		{mpuRegAccelConfig, mpuAccel2G, "set accel range"},
	} {
		if err := s.dev.Tx([]byte{w.reg, w.val}, nil); err != nil {
			return nil, fmt.Errorf("%s: %s: %w", s.name, w.what, err)
		}
	}

	return s, nil
}

// Read burst-reads accel, temperature and gyro in one transaction so all
// axes come from the same sample.
func (s *mpu6050) Read() (Reading, error) {
	var buf [mpuBurstLen]byte
	if err := s.dev.Tx([]byte{mpuRegAccelXOutH}, buf[:]); err != nil {
		return nil, fmt.Errorf("%s: burst read: %w", s.name, err)
	}

	word := func(i int) float64 {
		return float64(int16(binary.BigEndian.Uint16(buf[i:])))
	}
	accel := func(i int) float64 { return word(i) / mpuAccelLSBPerG * standardGravity }
	gyro := func(i int) float64 { return word(i) / mpuGyroLSBPerDegS * math.Pi / 180.0 }

	return Inertial{
		Motion: imu.Motion{
			Accel: imu.Vec3{X: accel(0), Y: accel(2), Z: accel(4)},
			Gyro:  imu.Vec3{X: gyro(8), Y: gyro(10), Z: gyro(12)},
		},
		TemperatureC: word(6)/340.0 + 36.53 - s.tempOffsetC,
	}, nil
}
