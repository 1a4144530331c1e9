// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

// Location is a position in decimal degrees.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Fix is a copy of every decoder field taken at one instant, for status
// output. Invalid fields are zero.
type Fix struct {
	Location    Location `json:"location"`
	HasLocation bool     `json:"has_location"`
	AltitudeM   float64  `json:"altitude_m"`
	Satellites  int      `json:"satellites"`
	SpeedKmh    float64  `json:"speed_kmh"`
	CourseDeg   float64  `json:"course_deg"`
}

// Stats counts what the decoder has seen since it was created.
type Stats struct {
	Chars     uint64 `json:"chars"`     // every byte fed in
	Passed    uint64 `json:"passed"`    // sentences that parsed with a good checksum
	Failed    uint64 `json:"failed"`    // checksum or field errors
	Discarded uint64 `json:"discarded"` // overlong or interrupted lines
}
