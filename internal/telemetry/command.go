// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

// ErrMalformedCommand wraps the parse error of an inbound line.
var ErrMalformedCommand = errors.New("telemetry: malformed command")

// ParseCommand reads one inbound line. ok is false when the line is valid but
// carries no MSG. Keys other than MSG are ignored. A non-string MSG is kept
// as its JSON text.
func ParseCommand(line []byte) (msg string, ok bool, err error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(line, &doc); err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrMalformedCommand, err)
	}

	raw, found := doc[KeyMSG]
	if !found || bytes.Equal(raw, []byte("null")) {
		return "", false, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true, nil
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrMalformedCommand, err)
	}
	return compact.String(), true, nil
}

// EncodeCommand frames msg as an uplink line.
func EncodeCommand(msg string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(map[string]string{KeyMSG: msg}); err != nil {
		return nil, fmt.Errorf("telemetry: encode command: %w", err)
	}
	return buf.Bytes(), nil
}

// Inbox splits the inbound byte stream into lines and keeps the last MSG
// accepted since the previous Take.
type Inbox struct {
	lines  *LineSplitter
	logger *slog.Logger

	msg     string
	pending bool
}

func NewInbox(maxLine int, logger *slog.Logger) *Inbox {
	return &Inbox{
		lines:  NewLineSplitter(maxLine),
		logger: logger,
	}
}

// Feed consumes a chunk of inbound bytes.
func (in *Inbox) Feed(p []byte) {
	in.lines.Split(p, in.handle, func(head []byte) {
		in.logger.Warn("link: inbound line too long, discarding", "limit", in.lines.max, "head", string(head))
	})
}

func (in *Inbox) handle(line []byte) {
	msg, ok, err := ParseCommand(line)
	if err != nil {
		in.logger.Warn("link: invalid inbound message", "raw", string(line), "err", err)
		return
	}
	if !ok {
		in.logger.Debug("link: inbound message without MSG", "raw", string(line))
		return
	}
	in.msg, in.pending = msg, true
	in.logger.Info("link: MSG received", "msg", msg)
}

// Take returns the staged MSG and clears it.
func (in *Inbox) Take() (string, bool) {
	msg, ok := in.msg, in.pending
	in.msg, in.pending = "", false
	return msg, ok
}
