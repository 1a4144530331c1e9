// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"
)

// Terminator ends every record on the wire.
const Terminator = '\n'

var (
	// ErrRecordTooLarge means the record exceeds the cap even without MSG.
	ErrRecordTooLarge = errors.New("telemetry: record exceeds buffer")
	// ErrMalformedRecord is returned by Decode for a line that is not a record.
	ErrMalformedRecord = errors.New("telemetry: malformed record")
)

func marshal(e Envelope) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(e); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Encode renders env as one record body of at most limit bytes, terminator
// excluded. If it does not fit, MSG is shortened one rune at a time and
// truncated is true. If it cannot fit even without MSG the error wraps
// ErrRecordTooLarge and nothing should be sent.
func Encode(env Envelope, limit int) (body []byte, truncated bool, err error) {
	body, err = marshal(env)
	if err != nil {
		return nil, false, fmt.Errorf("telemetry: encode: %w", err)
	}
	if len(body) <= limit {
		return body, false, nil
	}

	msg := env.MSG
	for msg != "" {
		_, size := utf8.DecodeLastRuneInString(msg)
		msg = msg[:len(msg)-size]
		env.MSG = msg

		body, err = marshal(env)
		if err != nil {
			return nil, false, fmt.Errorf("telemetry: encode: %w", err)
		}
		if len(body) <= limit {
			return body, true, nil
		}
	}
	return nil, false, fmt.Errorf("%w: %d bytes, limit %d", ErrRecordTooLarge, len(body), limit)
}

// Frame appends the terminator to an encoded body.
func Frame(body []byte) []byte {
	out := make([]byte, 0, len(body)+1)
	out = append(out, body...)
	return append(out, Terminator)
}

// Decode parses one received record line. Every schema key must be present.
func Decode(line []byte) (Envelope, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(line, &raw); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	for _, k := range Keys {
		if _, ok := raw[k]; !ok {
			return Envelope{}, fmt.Errorf("%w: missing %s", ErrMalformedRecord, k)
		}
	}

	var env Envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	return env, nil
}
