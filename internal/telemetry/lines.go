// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import "bytes"

// LineSplitter cuts a byte stream into newline-terminated lines. A partial
// line is kept until its newline arrives. Lines longer than the limit are
// dropped whole.
type LineSplitter struct {
	max      int
	buf      []byte
	overlong bool
}

func NewLineSplitter(max int) *LineSplitter {
	return &LineSplitter{max: max, buf: make([]byte, 0, max)}
}

// Split feeds p. line is called for every complete, non-blank line with
// surrounding whitespace trimmed; the slice is only valid during the call.
// overlong is called once per dropped line with its first bytes.
func (s *LineSplitter) Split(p []byte, line func([]byte), overlong func(head []byte)) {
	for _, b := range p {
		if b == '\n' {
			if !s.overlong {
				if l := bytes.TrimSpace(s.buf); len(l) > 0 {
					line(l)
				}
			}
			s.buf = s.buf[:0]
			s.overlong = false
			continue
		}
		if s.overlong {
			continue
		}
		if len(s.buf) >= s.max {
			if overlong != nil {
				overlong(s.buf[:min(len(s.buf), 32)])
			}
			s.overlong = true
			s.buf = s.buf[:0]
			continue
		}
		s.buf = append(s.buf, b)
	}
}
