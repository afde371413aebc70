// Package websocket pushes dispatch messages (ride offers, offer
// cancellations, status updates) to connected driver clients.
package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/swiftride/dispatch/pkg/logger"
)

// Message is a single push to a driver client.
type Message struct {
	Type      string                 `json:"type"`
	RideID    string                 `json:"ride_id,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Push targets a message at one driver.
type Push struct {
	DriverID string
	Message  *Message
}

// Hub tracks connected driver clients and routes pushes to them. Sends to
// disconnected drivers are dropped; offers expire on their own.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client

	// Outbound carries queued pushes until Run delivers them. Exposed so
	// tests can observe dispatch decisions without a live connection.
	Outbound chan *Push
}

// NewHub creates a hub with a buffered outbound queue.
func NewHub() *Hub {
	return &Hub{
		clients:  make(map[string]*Client),
		Outbound: make(chan *Push, 256),
	}
}

// Run delivers queued pushes until the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case push := <-h.Outbound:
			h.deliver(push)
		}
	}
}

// SendToDriver queues a message for a driver. Never blocks; if the queue is
// full the push is dropped and logged.
func (h *Hub) SendToDriver(driverID string, msg *Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	select {
	case h.Outbound <- &Push{DriverID: driverID, Message: msg}:
	default:
		logger.Warn("websocket outbound queue full, dropping push",
			zap.String("driver_id", driverID),
			zap.String("type", msg.Type),
		)
	}
}

func (h *Hub) deliver(push *Push) {
	h.mu.RLock()
	client, ok := h.clients[push.DriverID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	data, err := json.Marshal(push.Message)
	if err != nil {
		logger.Warn("failed to marshal push", zap.Error(err))
		return
	}

	select {
	case client.send <- data:
	default:
		// Slow client; drop the push rather than stall the hub.
		logger.Warn("driver client send buffer full",
			zap.String("driver_id", push.DriverID))
	}
}

// register attaches a client, replacing any previous connection for the
// same driver.
func (h *Hub) register(c *Client) {
	h.mu.Lock()
	if prev, ok := h.clients[c.driverID]; ok {
		prev.close()
	}
	h.clients[c.driverID] = c
	h.mu.Unlock()
}

// unregister detaches a client if it is still the active one.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if current, ok := h.clients[c.driverID]; ok && current == c {
		delete(h.clients, c.driverID)
	}
	h.mu.Unlock()
}

// Connected reports whether a driver currently has a live connection.
func (h *Hub) Connected(driverID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[driverID]
	return ok
}
