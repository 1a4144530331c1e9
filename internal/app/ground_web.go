// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/cansat_computer/internal/telemetry"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // ground station runs on a closed field network
	},
}

// Hub pushes every record to the connected websocket clients and forwards
// their {"MSG": ...} frames to the uplink.
type Hub struct {
	logger *slog.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	last    []byte
	uplink  func(string)
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// SetUplink sets where client MSG frames go. Until it is set they are
// dropped.
func (h *Hub) SetUplink(send func(string)) {
	h.mu.Lock()
	h.uplink = send
	h.mu.Unlock()
}

func (h *Hub) Name() string { return "websocket" }

// Publish sends line to every client. A client that fails the write is
// dropped.
func (h *Hub) Publish(_ context.Context, line []byte, _ telemetry.Envelope) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.last = append(h.last[:0], line...)
	for c := range h.clients {
		if err := c.WriteMessage(websocket.TextMessage, line); err != nil {
			h.logger.Info("ground: websocket client dropped", "remote", c.RemoteAddr().String(), "err", err)
			delete(h.clients, c)
			c.Close()
		}
	}
	return nil
}

func (h *Hub) clientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Handler serves /ws and /api/last.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.serveWS)
	mux.HandleFunc("/api/last", h.serveLast)
	return mux
}

func (h *Hub) serveLast(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	last := append([]byte(nil), h.last...)
	h.mu.Unlock()

	if len(last) == 0 {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(last); err != nil {
		h.logger.Warn("ground: write last record", "err", err)
	}
}

func (h *Hub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ground: websocket upgrade error", "err", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()
	h.logger.Info("ground: websocket client connected", "remote", conn.RemoteAddr().String())

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("ground: websocket error", "err", err)
			}
			return
		}

		msg, ok, err := telemetry.ParseCommand(data)
		if err != nil {
			h.logger.Warn("ground: invalid websocket command", "raw", string(data), "err", err)
			continue
		}
		if !ok {
			continue
		}

		h.mu.Lock()
		send := h.uplink
		h.mu.Unlock()
		if send == nil {
			h.logger.Warn("ground: no uplink, dropping MSG", "msg", msg)
			continue
		}
		send(msg)
	}
}
