// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/relabs-tech/cansat_computer/internal/config"
	"github.com/relabs-tech/cansat_computer/internal/telemetry"
)

// sessionLog appends every raw record line to a file so a flight can be
// replayed.
type sessionLog struct {
	mu sync.Mutex
	f  *os.File
}

func openSessionLog(path string) (*sessionLog, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open session log: %w", err)
	}
	return &sessionLog{f: f}, nil
}

func (s *sessionLog) Name() string { return "session_log" }

func (s *sessionLog) Publish(_ context.Context, line []byte, _ telemetry.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.f.Write(telemetry.Frame(line))
	return err
}

func (s *sessionLog) Close() error { return s.f.Close() }

// mqttSink republishes each record on one topic.
type mqttSink struct {
	client mqtt.Client
	topic  string
}

func newMQTTSink(cfg config.GroundConfig, logger *slog.Logger) (*mqttSink, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("MQTT connect: %w", token.Error())
	}
	logger.Info("ground: connected to MQTT broker", "broker", cfg.MQTTBroker, "topic", cfg.MQTTTopic)
	return &mqttSink{client: client, topic: cfg.MQTTTopic}, nil
}

func (s *mqttSink) Name() string { return "mqtt" }

func (s *mqttSink) Publish(_ context.Context, line []byte, _ telemetry.Envelope) error {
	token := s.client.Publish(s.topic, 0, false, line)
	token.Wait()
	return token.Error()
}

func (s *mqttSink) Close() { s.client.Disconnect(250) }

// influxSink writes each record as one point.
type influxSink struct {
	client influxdb2.Client
	write  api.WriteAPIBlocking
}

func newInfluxSink(cfg config.GroundConfig) *influxSink {
	client := influxdb2.NewClient(cfg.InfluxURL, cfg.InfluxToken)
	return &influxSink{
		client: client,
		write:  client.WriteAPIBlocking(cfg.InfluxOrg, cfg.InfluxBucket),
	}
}

func (s *influxSink) Name() string { return "influx" }

func (s *influxSink) Publish(ctx context.Context, _ []byte, env telemetry.Envelope) error {
	return s.write.WritePoint(ctx, recordPoint(env, time.Now()))
}

func (s *influxSink) Close() { s.client.Close() }

// recordPoint maps a record to the "telemetry" measurement. Every key
// becomes a field; the payload clock is kept as TS.
func recordPoint(env telemetry.Envelope, at time.Time) *write.Point {
	return influxdb2.NewPoint(
		"telemetry",
		map[string]string{"source": "cansat"},
		env.Fields(),
		at,
	)
}
