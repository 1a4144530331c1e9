// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/cansat_computer/internal/config"
	"github.com/relabs-tech/cansat_computer/internal/telemetry"
)

// RunConsoleMQTT prints the records the ground station relays over MQTT
// until ctx is done.
func RunConsoleMQTT(ctx context.Context, cfg *config.Config, logger *slog.Logger, w io.Writer) error {
	if cfg.Ground.MQTTBroker == "" {
		return fmt.Errorf("console: ground.mqtt_broker is not set")
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Ground.MQTTBroker).
		SetClientID(cfg.Ground.MQTTClientID + "-console")

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	logger.Info("console: connected to MQTT broker", "broker", cfg.Ground.MQTTBroker)

	token := client.Subscribe(cfg.Ground.MQTTTopic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		env, err := telemetry.Decode(msg.Payload())
		if err != nil {
			logger.Warn("console: record unmarshal error", "err", err)
			return
		}
		fmt.Fprint(w, formatRecord(env))
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	logger.Info("console: subscribed", "topic", cfg.Ground.MQTTTopic)

	<-ctx.Done()
	logger.Info("console: shutting down")
	return nil
}

// formatRecord renders one record as console lines.
func formatRecord(e telemetry.Envelope) string {
	s := fmt.Sprintf(
		"[ENV ] ts=%7d  T_bmp=%6.2f T_aht=%6.2f  P=%7.2fhPa  alt=%7.2fm  RH=%5.1f%%\n"+
			"[IMU ] ax=%7.2f ay=%7.2f az=%7.2f  gx=%6.2f gy=%6.2f gz=%6.2f  T1=%6.2f T2=%6.2f\n"+
			"[GPS ] lat=%.6f lng=%.6f alt=%.1fm sat=%d spd=%.1fkm/h dir=%.1f°\n",
		e.TS, e.TmpBMP, e.TmpAHT, e.PRS, e.ALT, e.MST,
		e.AX, e.AY, e.AZ, e.GX, e.GY, e.GZ, e.TmpMPU1, e.TmpMPU2,
		e.LAT, e.LNG, e.GpsALT, e.SAT, e.SPD, e.DIR,
	)
	if e.MSG != "" {
		s += fmt.Sprintf("[MSG ] %s\n", e.MSG)
	}
	return s
}
