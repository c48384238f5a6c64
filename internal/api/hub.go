package api

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/skynet-core/internal/device"
	"github.com/nerrad567/skynet-core/internal/events"
	"github.com/nerrad567/skynet-core/internal/infrastructure/config"
	"github.com/nerrad567/skynet-core/internal/infrastructure/logging"
)

// WebSocket defaults applied by NewHub to zero settings.
const (
	defaultMaxMessageSize = 8192
	defaultPingInterval   = 30
	defaultPongTimeout    = 10
)

// Hub fans notifier events out to WebSocket clients. It implements
// events.Listener; register it on the coordinator for every kind.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - HandleEvent never blocks: a client whose queue is full misses the
//     frame and the Dropped counter is incremented.
type Hub struct {
	cfg    config.WebSocketConfig
	logger *logging.Logger

	mu      sync.RWMutex
	clients map[*wsClient]struct{}

	dropped atomic.Uint64
}

// NewHub creates a hub.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaultMaxMessageSize
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaultPingInterval
	}
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = defaultPongTimeout
	}
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[*wsClient]struct{}),
	}
}

// Run blocks until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*wsClient]struct{})
	h.mu.Unlock()

	for c := range clients {
		c.close()
	}
	if len(clients) > 0 {
		h.logger.Info("websocket clients disconnected", "count", len(clients))
	}
}

func (h *Hub) add(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "clients", n, "subject", c.subject)
}

// remove drops c and closes its queue. Calling it twice is harmless.
func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	c.close()
	h.logger.Debug("websocket client disconnected", "clients", n)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped returns how many frames were discarded for slow clients.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// HandleEvent implements events.Listener. The event is encoded once and
// queued for every client subscribed to its kind and sensor.
func (h *Hub) HandleEvent(e events.Event) error {
	frame, err := json.Marshal(outbound{
		Type:    msgEvent,
		Channel: string(e.Kind()),
		Time:    time.Now().UTC().Format(time.RFC3339Nano),
		Data:    e,
	})
	if err != nil {
		return err
	}

	kind, sensor := e.Kind(), eventSensor(e)

	h.mu.RLock()
	targets := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		if c.wants(kind, sensor) {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if !c.enqueue(frame) {
			h.dropped.Add(1)
		}
	}
	return nil
}

// eventSensor returns the sensor an event concerns.
func eventSensor(e events.Event) device.ID {
	switch ev := e.(type) {
	case events.SensorUpdated:
		return ev.Sensor.ID
	case events.SensorOffline:
		return ev.Sensor.ID
	case events.SensorTriggered:
		return ev.Sensor.ID
	default:
		return device.ID{}
	}
}
