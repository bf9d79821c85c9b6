// Tunereel - Music Discovery Video Feed Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunereel

package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tomtom215/tunereel/internal/metrics"
)

// Message types
const (
	MessageTypeFeed     = "feed"
	MessageTypeProgress = "progress"
	MessageTypeNetwork  = "network"
	MessageTypePing     = "ping"
	MessageTypePong     = "pong"
)

// Message is the JSON frame exchanged with clients.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// NetworkData is the payload of a network message.
type NetworkData struct {
	Connected bool `json:"connected"`
}

// NetworkSource reports connectivity changes. connectivity.Probe satisfies it.
type NetworkSource interface {
	Subscribe() (<-chan bool, func())
}

// Hub maintains the set of active clients and broadcasts global messages.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}

	broadcast chan Message
	network   NetworkSource
	logger    zerolog.Logger
}

// NewHub creates a hub. network may be nil.
func NewHub(network NetworkSource, logger zerolog.Logger) *Hub {
	return &Hub{
		clients:   make(map[*Client]struct{}),
		broadcast: make(chan Message, 64),
		network:   network,
		logger:    logger.With().Str("component", "websocket-hub").Logger(),
	}
}

// Register adds c to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	metrics.WebSocketConnections.Inc()
	h.logger.Debug().Str("user_id", c.userID).Int("total_clients", n).Msg("websocket client connected")
}

// Unregister removes c and closes its send queue. Unknown clients are ignored.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	c.shutdown()
	metrics.WebSocketConnections.Dec()
	h.logger.Debug().Str("user_id", c.userID).Int("total_clients", n).Msg("websocket client disconnected")
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues a message for every client. It drops the message when
// the queue is full.
func (h *Hub) Broadcast(messageType string, data interface{}) {
	select {
	case h.broadcast <- Message{Type: messageType, Data: data}:
	default:
		h.logger.Warn().Str("type", messageType).Msg("broadcast queue full, message dropped")
	}
}

// Serve implements suture.Service. It forwards network changes and
// broadcasts until ctx ends, then closes every client.
func (h *Hub) Serve(ctx context.Context) error {
	var netCh <-chan bool
	if h.network != nil {
		ch, cancel := h.network.Subscribe()
		defer cancel()
		netCh = ch
	}

	for {
		// Shutdown takes priority over pending work.
		select {
		case <-ctx.Done():
			h.closeAll(ctx)
			return ctx.Err()
		default:
		}

		select {
		case <-ctx.Done():
			h.closeAll(ctx)
			return ctx.Err()
		case up, ok := <-netCh:
			if !ok {
				netCh = nil
				continue
			}
			h.broadcastToClients(Message{Type: MessageTypeNetwork, Data: NetworkData{Connected: up}})
		case msg := <-h.broadcast:
			h.broadcastToClients(msg)
		}
	}
}

// String implements fmt.Stringer for suture logging.
func (h *Hub) String() string { return "websocket-hub" }

// broadcastToClients delivers in client id order. Clients that cannot
// accept the message are dropped.
func (h *Hub) broadcastToClients(msg Message) {
	var slow []*Client
	for _, c := range h.sortedClients() {
		if !c.Send(msg) {
			slow = append(slow, c)
		}
	}
	for _, c := range slow {
		h.logger.Warn().Str("user_id", c.userID).Msg("dropping slow websocket client")
		h.Unregister(c)
	}
}

func (h *Hub) closeAll(ctx context.Context) {
	clients := h.sortedClients()
	for _, c := range clients {
		h.Unregister(c)
	}

	reason := "context_canceled"
	if ctx.Err() == context.DeadlineExceeded {
		reason = "context_deadline"
	}
	h.logger.Info().Str("reason", reason).Int("clients_closed", len(clients)).Msg("websocket hub stopped")
}

func (h *Hub) sortedClients() []*Client {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })
	return clients
}
