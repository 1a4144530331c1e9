package app

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/i2c"

	"github.com/relabs-tech/cansat_computer/internal/config"
	"github.com/relabs-tech/cansat_computer/internal/imu"
	"github.com/relabs-tech/cansat_computer/internal/sensors"
	"github.com/relabs-tech/cansat_computer/internal/telemetry"
)

// captureHandler records log records for assertion in tests.
type captureHandler struct {
	mu      sync.Mutex
	records []capturedRecord
}

type capturedRecord struct {
	message string
	attrs   map[string]slog.Value
}

func (h *captureHandler) Enabled(_ context.Context, _ slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	m := make(map[string]slog.Value)
	r.Attrs(func(a slog.Attr) bool {
		m[a.Key] = a.Value
		return true
	})
	h.records = append(h.records, capturedRecord{message: r.Message, attrs: m})
	return nil
}

func (h *captureHandler) WithAttrs(_ []slog.Attr) slog.Handler { return h }
func (h *captureHandler) WithGroup(_ string) slog.Handler      { return h }

func (h *captureHandler) recordsFor(t *testing.T, msg string) []map[string]slog.Value {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []map[string]slog.Value
	for _, rec := range h.records {
		if rec.message == msg {
			out = append(out, rec.attrs)
		}
	}
	return out
}

// byteQueue is a Drainer fed by the test.
type byteQueue struct {
	chunks [][]byte
}

func (q *byteQueue) push(s string) { q.chunks = append(q.chunks, []byte(s)) }

func (q *byteQueue) Drain(fn func([]byte)) int {
	n := 0
	for _, c := range q.chunks {
		fn(c)
		n += len(c)
	}
	q.chunks = nil
	return n
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Sleep(d time.Duration)   { c.t = c.t.Add(d) }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

// countingProber answers for the given addresses and counts every probe.
type countingProber struct {
	present map[uint16]bool
	probes  int
}

func (p *countingProber) Probe(addr uint16) bool {
	p.probes++
	return p.present[addr]
}

type stubDriver struct {
	r   sensors.Reading
	err error
}

func (d stubDriver) Read() (sensors.Reading, error) { return d.r, d.err }

func stubOpener(d sensors.Driver) sensors.Opener {
	return func(i2c.Bus, uint16) (sensors.Driver, error) { return d, nil }
}

func motion(a, g float64) imu.Motion {
	return imu.Motion{
		Accel: imu.Vec3{X: a, Y: a, Z: a},
		Gyro:  imu.Vec3{X: g, Y: g, Z: g},
	}
}

func healthyOpeners() map[sensors.Role]sensors.Opener {
	return map[sensors.Role]sensors.Opener{
		sensors.PressureTemp: stubOpener(stubDriver{r: sensors.Env{TemperatureC: 20.5, PressureHPa: 1001.2, AltitudeM: 35}}),
		sensors.HumidityTemp: stubOpener(stubDriver{r: sensors.Humidity{TemperatureC: 21, RelativeHumidity: 45}}),
		sensors.InertialPrimary: stubOpener(stubDriver{r: sensors.Inertial{
			Motion: motion(1, 0.5), TemperatureC: 24,
		}}),
		sensors.InertialSecondary: stubOpener(stubDriver{r: sensors.Inertial{
			Motion: motion(3, 1.5), TemperatureC: 26,
		}}),
	}
}

func allPresent() map[uint16]bool {
	return map[uint16]bool{0x77: true, 0x38: true, 0x68: true, 0x69: true}
}

type harness struct {
	payload *Payload
	prober  *countingProber
	gps     *byteQueue
	inbound *byteQueue
	radio   *bytes.Buffer
	clock   *fakeClock
	logs    *captureHandler
}

func newHarness(t *testing.T, cfg *config.Config, present map[uint16]bool, openers map[sensors.Role]sensors.Opener) *harness {
	t.Helper()
	if cfg == nil {
		c := config.Default()
		cfg = &c
	}
	h := &harness{
		prober:  &countingProber{present: present},
		gps:     &byteQueue{},
		inbound: &byteQueue{},
		radio:   &bytes.Buffer{},
		clock:   &fakeClock{t: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)},
		logs:    &captureHandler{},
	}
	p, err := NewPayload(cfg, PayloadDeps{
		Prober:  h.prober,
		Openers: openers,
		GPS:     h.gps,
		Inbound: h.inbound,
		Radio:   h.radio,
		Clock:   h.clock,
		Logger:  slog.New(h.logs),
	})
	require.NoError(t, err)
	h.payload = p
	return h
}

// step runs one cycle and returns the record it sent.
func (h *harness) step(t *testing.T) (telemetry.Envelope, map[string]any) {
	t.Helper()
	h.radio.Reset()
	h.payload.Cycle(h.clock.Now())
	h.clock.advance(350 * time.Millisecond)

	line := h.radio.String()
	require.True(t, strings.HasSuffix(line, "\n"), "record is newline terminated")
	require.Equal(t, 1, strings.Count(line, "\n"), "exactly one record per cycle")

	env, err := telemetry.Decode([]byte(strings.TrimSuffix(line, "\n")))
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, jsonUnmarshal(line, &raw))
	return env, raw
}
