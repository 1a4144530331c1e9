package sensors

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"periph.io/x/conn/v3/i2c"

	"github.com/relabs-tech/cansat_computer/internal/imu"
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

var errBus = errors.New("bus: nack")

// fakeDriver returns the queued results in order, then repeats the last one.
type fakeDriver struct {
	results []fakeResult
	reads   int
}

type fakeResult struct {
	r   Reading
	err error
}

func (d *fakeDriver) Read() (Reading, error) {
	i := d.reads
	if i >= len(d.results) {
		i = len(d.results) - 1
	}
	d.reads++
	return d.results[i].r, d.results[i].err
}

func openerFor(d Driver, err error, calls *int) Opener {
	return func(_ i2c.Bus, _ uint16) (Driver, error) {
		if calls != nil {
			*calls++
		}
		if err != nil {
			return nil, err
		}
		return d, nil
	}
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func inertial(v float64) Inertial {
	vec := imu.Vec3{X: v, Y: v, Z: v}
	return Inertial{Motion: imu.Motion{Accel: vec, Gyro: vec}, TemperatureC: 20}
}
