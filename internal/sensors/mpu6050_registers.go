// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

// MPU6050 register map, the subset this driver touches.
const (
	mpuRegSmplrtDiv   = 0x19 // Sample Rate = Gyro_Output_Rate / (1 + SMPLRT_DIV)
	mpuRegConfig      = 0x1A // DLPF_CFG [2:0]: 0=260Hz accel / 256Hz gyro
	mpuRegGyroConfig  = 0x1B // FS_SEL [4:3]: 0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s
	mpuRegAccelConfig = 0x1C // AFS_SEL [4:3]: 0=±2g, 1=±4g, 2=±8g, 3=±16g
	mpuRegAccelXOutH  = 0x3B // ACCEL_XOUT_H, first of 14 burst bytes (accel, temp, gyro)
	mpuRegPwrMgmt1    = 0x6B // CLKSEL [2:0]: 1=PLL with X gyro; SLEEP bit 6
	mpuRegWhoAmI      = 0x75 // always 0x68, independent of AD0
)

const (
	mpuWhoAmI = 0x68

	mpuClockPLLX  = 0x01
	mpuGyro500    = 1 << 3
	mpuAccel2G    = 0 << 3
	mpuDLPF260    = 0x00
	mpuSampleDiv0 = 0x00

	mpuAccelLSBPerG   = 16384.0
	mpuGyroLSBPerDegS = 65.5
	mpuBurstLen       = 14
)
