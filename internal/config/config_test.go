package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cansat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("LOG_LEVEL", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.AppEnv)
	assert.Equal(t, slog.LevelInfo, cfg.Level())
	assert.Equal(t, uint16(0x77), cfg.Bus.PressureTempAddr)
	assert.Equal(t, uint16(0x38), cfg.Bus.HumidityTempAddr)
	assert.Equal(t, uint16(0x68), cfg.Bus.InertialPrimaryAddr)
	assert.Equal(t, uint16(0x69), cfg.Bus.InertialSecondaryAddr)
	assert.Equal(t, 350*time.Millisecond, cfg.Cadence.Period)
	assert.Equal(t, 512, cfg.Link.MaxRecordBytes)
	assert.Equal(t, "jacobsa", cfg.Link.Driver)
	assert.Equal(t, 1013.25, cfg.Sensors.SeaLevelHPa)
}

func TestLoad_FileOverlaysDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("LOG_LEVEL", "")

	path := writeConfig(t, `
log_level: debug
bus:
  pressure_temp_addr: 0x76
gps:
  port: /dev/ttyAMA0
  fix_max_age: 2s
link:
  driver: tarm
  baud_rate: 115200
cadence:
  period: 500ms
display:
  i2c_addr: 0x3C
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, slog.LevelDebug, cfg.Level())
	assert.Equal(t, uint16(0x76), cfg.Bus.PressureTempAddr)
	assert.Equal(t, uint16(0x38), cfg.Bus.HumidityTempAddr, "untouched keys keep defaults")
	assert.Equal(t, "/dev/ttyAMA0", cfg.GPS.Port)
	assert.Equal(t, 2*time.Second, cfg.GPS.FixMaxAge)
	assert.Equal(t, "tarm", cfg.Link.Driver)
	assert.Equal(t, 115200, cfg.Link.BaudRate)
	assert.Equal(t, 500*time.Millisecond, cfg.Cadence.Period)
	assert.Equal(t, uint16(0x3C), cfg.Display.I2CAddr)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load(writeConfig(t, "app_env: dev\nlog_level: debug\n"))
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.AppEnv)
	assert.Equal(t, slog.LevelWarn, cfg.Level())
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("LOG_LEVEL", "")

	tests := []struct {
		name string
		body string
	}{
		{name: "app env", body: "app_env: staging\n"},
		{name: "log level", body: "log_level: loud\n"},
		{name: "role address out of range", body: "bus:\n  inertial_primary_addr: 0x7F\n"},
		{name: "serial driver", body: "link:\n  driver: bugst\n"},
		{name: "record cap too small", body: "link:\n  max_record_bytes: 10\n"},
		{name: "zero period", body: "cadence:\n  period: 0s\n"},
		{name: "poll longer than period", body: "cadence:\n  period: 100ms\n  poll: 200ms\n"},
		{name: "display address", body: "display:\n  i2c_addr: 0x80\n"},
		{name: "display address not 0x3C", body: "display:\n  i2c_addr: 0x3D\n"},
		{name: "negative fix age", body: "gps:\n  fix_max_age: -1s\n"},
		{name: "not yaml", body: "bus: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" INFO ", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLogLevel("trace")
	assert.Error(t, err)
}
