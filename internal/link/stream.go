// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package link

import (
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// DefaultQueueDepth chunks are buffered between drains. At 9600 baud a
	// cycle brings in at most ~350 bytes, well inside the queue.
	DefaultQueueDepth = 64

	chunkSize    = 256
	errorBackoff = 500 * time.Millisecond
)

// Stream buffers the receive side of a port so the cycle can take whatever
// has arrived without blocking. The pump goroutine only copies bytes; all
// parsing happens in the goroutine that calls Drain.
type Stream struct {
	name   string
	logger *slog.Logger

	queue chan []byte
	done  chan struct{}
	once  sync.Once

	dropped atomic.Uint64
}

// NewStream starts pumping r into a queue of depth chunks. When the queue is
// full new bytes are dropped and counted, like an overrun UART FIFO.
func NewStream(name string, r io.Reader, depth int, logger *slog.Logger) *Stream {
	if depth <= 0 {
		depth = DefaultQueueDepth
	}
	s := &Stream{
		name:   name,
		logger: logger,
		queue:  make(chan []byte, depth),
		done:   make(chan struct{}),
	}
	go s.pump(r)
	return s
}

func (s *Stream) pump(r io.Reader) {
	buf := make([]byte, chunkSize)
	for {
		n, err := r.Read(buf)

		select {
		case <-s.done:
			return
		default:
		}

		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case s.queue <- chunk:
			default:
				s.dropped.Add(uint64(n))
			}
		}
		if err != nil {
			if err == io.EOF {
				s.logger.Warn("link: stream closed", "port", s.name)
				return
			}
			s.logger.Warn("link: read error", "port", s.name, "err", err)
			time.Sleep(errorBackoff)
		}
	}
}

// Drain hands every queued chunk to fn and returns the number of bytes
// handed over. It never blocks.
func (s *Stream) Drain(fn func([]byte)) int {
	total := 0
	for {
		select {
		case chunk := <-s.queue:
			fn(chunk)
			total += len(chunk)
		default:
			return total
		}
	}
}

// Pending reports whether received bytes are waiting to be drained.
func (s *Stream) Pending() bool {
	return len(s.queue) > 0
}

// Dropped is the number of bytes lost to a full queue.
func (s *Stream) Dropped() uint64 {
	return s.dropped.Load()
}

// Close stops the pump after its current read returns. It does not close the
// underlying port.
func (s *Stream) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}
