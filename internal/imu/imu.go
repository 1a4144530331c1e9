// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

// Vec3 is one 3-axis measurement.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Motion is what one inertial unit reports per sample.
type Motion struct {
	Accel Vec3 `json:"accel"` // m/s²
	Gyro  Vec3 `json:"gyro"`  // rad/s
}

// Mean returns the element-wise arithmetic mean of a and b.
func Mean(a, b Vec3) Vec3 {
	return Vec3{
		X: (a.X + b.X) / 2.0,
		Y: (a.Y + b.Y) / 2.0,
		Z: (a.Z + b.Z) / 2.0,
	}
}

// Fuse averages two redundant inertial units axis by axis.
//
// KNOWN DEFECT: there is no validity propagation. If one unit failed this
// cycle its sentinel axes are averaged in like real data, biasing the result.
// Whether a failed input should instead yield a fused sentinel is an open
// product question; until it is answered the plain mean is kept.
func Fuse(primary, secondary Motion) Motion {
	return Motion{
		Accel: Mean(primary.Accel, secondary.Accel),
		Gyro:  Mean(primary.Gyro, secondary.Gyro),
	}
}
