// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package cadence runs a cycle function on a fixed minimum period and hands
// the idle tail of every period to a drain function.
package cadence

import (
	"context"
	"time"
)

// Clock is the time source. SystemClock is the real one.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// SystemClock uses time.Now and time.Sleep.
var SystemClock Clock = systemClock{}

// DrainFunc consumes whatever input is pending without blocking and returns
// the number of bytes it handled.
type DrainFunc func() int

// Controller enforces the period.
type Controller struct {
	period time.Duration
	poll   time.Duration
	clock  Clock
}

// New returns a controller with the given period. poll is how long to sleep
// when drain found nothing to do.
func New(period, poll time.Duration, clock Clock) *Controller {
	if clock == nil {
		clock = SystemClock
	}
	if poll <= 0 || poll > period {
		poll = period
	}
	return &Controller{period: period, poll: poll, clock: clock}
}

func (c *Controller) Period() time.Duration { return c.period }

// Wait keeps calling drain until period has elapsed since start, and returns
// the time spent waiting. If the active phase already used up the period it
// returns at once: there is no catch-up and no shortened next cycle.
func (c *Controller) Wait(start time.Time, drain DrainFunc) time.Duration {
	begin := c.clock.Now()
	deadline := start.Add(c.period)

	for {
		now := c.clock.Now()
		remaining := deadline.Sub(now)
		if remaining <= 0 {
			return now.Sub(begin)
		}
		if drain != nil && drain() > 0 {
			continue
		}
		c.clock.Sleep(min(c.poll, remaining))
	}
}

// CycleFunc is one active phase. start is when the cycle began.
type CycleFunc func(start time.Time)

// Run alternates cycle and Wait until ctx is done. ctx is only checked
// between cycles; a started cycle always runs to the end.
func (c *Controller) Run(ctx context.Context, cycle CycleFunc, drain DrainFunc) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := c.clock.Now()
		cycle(start)
		c.Wait(start, drain)
	}
}
