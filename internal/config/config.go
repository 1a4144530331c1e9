// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration values.
type Config struct {
	AppEnv   string `yaml:"app_env"`   // "dev" or "prod"
	LogLevel string `yaml:"log_level"` // debug, info, warn, error

	Bus     BusConfig     `yaml:"bus"`
	Sensors SensorsConfig `yaml:"sensors"`
	GPS     GPSConfig     `yaml:"gps"`
	Link    LinkConfig    `yaml:"link"`
	Cadence CadenceConfig `yaml:"cadence"`
	Display DisplayConfig `yaml:"display"`
	Ground  GroundConfig  `yaml:"ground"`
}

// BusConfig describes the shared I2C bus and the address bound to each role.
type BusConfig struct {
	Name string `yaml:"name"` // i2creg name, "" = first bus

	PressureTempAddr      uint16 `yaml:"pressure_temp_addr"`
	HumidityTempAddr      uint16 `yaml:"humidity_temp_addr"`
	InertialPrimaryAddr   uint16 `yaml:"inertial_primary_addr"`
	InertialSecondaryAddr uint16 `yaml:"inertial_secondary_addr"`
}

type SensorsConfig struct {
	SeaLevelHPa          float64       `yaml:"sea_level_hpa"`
	MPUTempOffsetC       float64       `yaml:"mpu_temp_offset_c"`
	ReadErrorLogInterval time.Duration `yaml:"read_error_log_interval"`
}

type GPSConfig struct {
	Port      string        `yaml:"port"`
	BaudRate  int           `yaml:"baud_rate"`
	FixMaxAge time.Duration `yaml:"fix_max_age"` // 0 disables age-out
}

// LinkConfig is the duplex telemetry radio (APC220 class transparent UART).
type LinkConfig struct {
	Port           string `yaml:"port"`
	BaudRate       int    `yaml:"baud_rate"`
	Driver         string `yaml:"driver"` // "jacobsa" or "tarm"
	MaxRecordBytes int    `yaml:"max_record_bytes"`
	MaxLineBytes   int    `yaml:"max_line_bytes"`
}

type CadenceConfig struct {
	Period time.Duration `yaml:"period"`
	Poll   time.Duration `yaml:"poll"`
}

type DisplayConfig struct {
	I2CAddr     uint16 `yaml:"i2c_addr"` // 0 disables the panel, 0x3C enables it
	EveryCycles int    `yaml:"every_cycles"`
}

type GroundConfig struct {
	MQTTBroker   string `yaml:"mqtt_broker"` // empty disables the relay
	MQTTClientID string `yaml:"mqtt_client_id"`
	MQTTTopic    string `yaml:"mqtt_topic"`

	WebAddr string `yaml:"web_addr"` // empty disables the websocket feed

	InfluxURL    string `yaml:"influx_url"` // empty disables the influx sink
	InfluxToken  string `yaml:"influx_token"`
	InfluxOrg    string `yaml:"influx_org"`
	InfluxBucket string `yaml:"influx_bucket"`

	SessionLog string `yaml:"session_log"`
}

// Default returns the configuration used by the flight hardware when no file
// overrides a value.
func Default() Config {
	return Config{
		AppEnv:   "dev",
		LogLevel: "info",
		Bus: BusConfig{
			PressureTempAddr:      0x77,
			HumidityTempAddr:      0x38,
			InertialPrimaryAddr:   0x68,
			InertialSecondaryAddr: 0x69,
		},
		Sensors: SensorsConfig{
			SeaLevelHPa:          1013.25,
			MPUTempOffsetC:       18,
			ReadErrorLogInterval: 10 * time.Second,
		},
		GPS: GPSConfig{
			Port:      "/dev/serial0",
			BaudRate:  9600,
			FixMaxAge: 5 * time.Second,
		},
		Link: LinkConfig{
			Port:           "/dev/ttyUSB0",
			BaudRate:       9600,
			Driver:         "jacobsa",
			MaxRecordBytes: 512,
			MaxLineBytes:   256,
		},
		Cadence: CadenceConfig{
			Period: 350 * time.Millisecond,
			Poll:   2 * time.Millisecond,
		},
		Display: DisplayConfig{
			EveryCycles: 5,
		},
		Ground: GroundConfig{
			MQTTClientID: "cansat-ground",
			MQTTTopic:    "cansat/telemetry",
		},
	}
}

// Load reads the configuration file on top of Default() and applies the
// APP_ENV / LOG_LEVEL environment overrides.
// An empty path skips the file.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("APP_ENV")); v != "" {
		c.AppEnv = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		c.LogLevel = v
	}
}

// validate checks that all required fields are set and in range.
func (c *Config) validate() error {
	switch c.AppEnv {
	case "dev", "prod":
	default:
		return fmt.Errorf("invalid app_env %q (allowed: dev, prod)", c.AppEnv)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	for name, addr := range map[string]uint16{
		"bus.pressure_temp_addr":      c.Bus.PressureTempAddr,
		"bus.humidity_temp_addr":      c.Bus.HumidityTempAddr,
		"bus.inertial_primary_addr":   c.Bus.InertialPrimaryAddr,
		"bus.inertial_secondary_addr": c.Bus.InertialSecondaryAddr,
	} {
		if addr < 1 || addr > 126 {
			return fmt.Errorf("%s must be 0x01-0x7E, got 0x%02X", name, addr)
		}
	}
	if c.Sensors.SeaLevelHPa <= 0 {
		return fmt.Errorf("sensors.sea_level_hpa must be positive, got %v", c.Sensors.SeaLevelHPa)
	}
	if c.GPS.BaudRate <= 0 {
		return fmt.Errorf("gps.baud_rate is required")
	}
	if c.GPS.FixMaxAge < 0 {
		return fmt.Errorf("gps.fix_max_age must not be negative, got %v", c.GPS.FixMaxAge)
	}
	if c.Link.BaudRate <= 0 {
		return fmt.Errorf("link.baud_rate is required")
	}
	switch c.Link.Driver {
	case "jacobsa", "tarm":
	default:
		return fmt.Errorf("invalid link.driver %q (allowed: jacobsa, tarm)", c.Link.Driver)
	}
	if c.Link.MaxRecordBytes < 64 {
		return fmt.Errorf("link.max_record_bytes must be at least 64, got %d", c.Link.MaxRecordBytes)
	}
	if c.Link.MaxLineBytes <= 0 {
		return fmt.Errorf("link.max_line_bytes must be positive, got %d", c.Link.MaxLineBytes)
	}
	if c.Cadence.Period <= 0 {
		return fmt.Errorf("cadence.period must be positive, got %v", c.Cadence.Period)
	}
	if c.Cadence.Poll <= 0 || c.Cadence.Poll > c.Cadence.Period {
		return fmt.Errorf("cadence.poll must be in (0, period], got %v", c.Cadence.Poll)
	}
	if c.Display.I2CAddr != 0 && c.Display.I2CAddr != 0x3C {
		return fmt.Errorf("display.i2c_addr must be 0 (off) or 0x3C, got 0x%02X", c.Display.I2CAddr)
	}
	if c.Display.EveryCycles <= 0 {
		return fmt.Errorf("display.every_cycles must be positive, got %d", c.Display.EveryCycles)
	}
	return nil
}

// Level returns the parsed slog level. Load has already validated it.
func (c *Config) Level() slog.Level {
	level, _ := ParseLogLevel(c.LogLevel)
	return level
}

func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log_level %q (allowed: debug, info, warn, error)", s)
	}
}
