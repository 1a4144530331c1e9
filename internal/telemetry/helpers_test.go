package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/relabs-tech/cansat_computer/internal/gps"
	"github.com/relabs-tech/cansat_computer/internal/imu"
	"github.com/relabs-tech/cansat_computer/internal/sensors"
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

// fixedPosition reports the same answer for every accessor call.
type fixedPosition struct {
	loc   gps.Location
	alt   float64
	sats  int
	speed float64
	dir   float64
	ok    bool
}

func (p fixedPosition) Location() (gps.Location, bool) { return p.loc, p.ok }
func (p fixedPosition) Altitude() (float64, bool)      { return p.alt, p.ok }
func (p fixedPosition) Satellites() (int, bool)        { return p.sats, p.ok }
func (p fixedPosition) SpeedKmh() (float64, bool)      { return p.speed, p.ok }
func (p fixedPosition) Course() (float64, bool)        { return p.dir, p.ok }

func goodSample() sensors.Sample {
	return sensors.Sample{
		Env:      sensors.Env{TemperatureC: 21.456, PressureHPa: 1002.123, AltitudeM: 12.346},
		Humidity: sensors.Humidity{TemperatureC: 22.5, RelativeHumidity: 41.27},
		Primary: sensors.Inertial{
			Motion:       imu.Motion{Accel: imu.Vec3{X: 1, Y: 2, Z: 3}, Gyro: imu.Vec3{X: 0.1, Y: 0.2, Z: 0.3}},
			TemperatureC: 25,
		},
		Secondary: sensors.Inertial{
			Motion:       imu.Motion{Accel: imu.Vec3{X: 3, Y: 2, Z: 1}, Gyro: imu.Vec3{X: 0.3, Y: 0.2, Z: 0.1}},
			TemperatureC: 26,
		},
	}
}
