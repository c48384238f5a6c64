package api

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/skynet-core/internal/device"
	"github.com/nerrad567/skynet-core/internal/events"
)

// Message types.
const (
	msgSubscribe    = "subscribe"
	msgUnsubscribe  = "unsubscribe"
	msgPing         = "ping"
	msgPong         = "pong"
	msgSubscribed   = "subscribed"
	msgUnsubscribed = "unsubscribed"
	msgEvent        = "event"
	msgError        = "error"
)

// clientQueueSize is the number of frames buffered per client.
const clientQueueSize = 256

// inbound is a message sent by a client.
//
//	{"type":"subscribe","id":"1","channels":["sensor.triggered"],
//	 "sensors":[{"type":"temperature","name":"kitchen"}]}
//
// An empty sensors list means every sensor.
type inbound struct {
	Type     string      `json:"type"`
	ID       string      `json:"id,omitempty"`
	Channels []string    `json:"channels,omitempty"`
	Sensors  []device.ID `json:"sensors,omitempty"`
}

// outbound is a message sent to a client.
type outbound struct {
	Type     string      `json:"type"`
	ID       string      `json:"id,omitempty"`
	Channel  string      `json:"channel,omitempty"`
	Time     string      `json:"time"`
	Data     any         `json:"data,omitempty"`
	Channels []string    `json:"channels,omitempty"`
	Sensors  []device.ID `json:"sensors,omitempty"`
	Error    string      `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true // origins are checked by corsMiddleware
	},
}

// wsClient is one WebSocket connection and its subscriptions.
type wsClient struct {
	hub     *Hub
	conn    *websocket.Conn
	subject string // token subject; empty when auth is disabled

	mu       sync.Mutex
	queue    chan []byte
	closed   bool
	channels map[events.Kind]struct{}
	sensors  map[device.ID]struct{}
}

func newClient(hub *Hub, conn *websocket.Conn, subject string) *wsClient {
	return &wsClient{
		hub:      hub,
		conn:     conn,
		subject:  subject,
		queue:    make(chan []byte, clientQueueSize),
		channels: make(map[events.Kind]struct{}),
		sensors:  make(map[device.ID]struct{}),
	}
}

// enqueue queues frame without blocking. It reports false when the client
// is closed or its queue is full.
func (c *wsClient) enqueue(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.queue <- frame:
		return true
	default:
		return false
	}
}

// close ends the write pump. Safe to call more than once.
func (c *wsClient) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.queue)
	}
}

func (c *wsClient) wants(kind events.Kind, sensor device.ID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.channels[kind]; !ok {
		return false
	}
	if len(c.sensors) == 0 {
		return true
	}
	_, ok := c.sensors[sensor]
	return ok
}

func (c *wsClient) subscribe(kinds []events.Kind, sensors []device.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range kinds {
		c.channels[k] = struct{}{}
	}
	for _, s := range sensors {
		c.sensors[s] = struct{}{}
	}
}

func (c *wsClient) unsubscribe(kinds []events.Kind, sensors []device.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range kinds {
		delete(c.channels, k)
	}
	for _, s := range sensors {
		delete(c.sensors, s)
	}
}

// subscriptions returns the current channels and sensor filter, sorted.
func (c *wsClient) subscriptions() ([]string, []device.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var channels []string
	for _, k := range events.AllKinds() {
		if _, ok := c.channels[k]; ok {
			channels = append(channels, string(k))
		}
	}
	sensors := make([]device.ID, 0, len(c.sensors))
	for s := range c.sensors {
		sensors = append(sensors, s)
	}
	sort.Slice(sensors, func(i, j int) bool { return sensors[i].String() < sensors[j].String() })
	return channels, sensors
}

// parseChannels maps channel names to event kinds.
func parseChannels(names []string) ([]events.Kind, string) {
	kinds := make([]events.Kind, 0, len(names))
	for _, name := range names {
		kind, ok := kindByName(strings.TrimSpace(name))
		if !ok {
			return nil, "unknown channel: " + name
		}
		kinds = append(kinds, kind)
	}
	return kinds, ""
}

func kindByName(name string) (events.Kind, bool) {
	for _, k := range events.AllKinds() {
		if string(k) == name {
			return k, true
		}
	}
	return "", false
}

// handleWebSocket upgrades the connection. When auth is enabled the token
// is taken from the access_token query parameter or the Authorization
// header. A channels query parameter (comma-separated) subscribes the
// client on connect.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	var subject string
	if s.authEnabled() {
		raw := r.URL.Query().Get("access_token")
		if raw == "" {
			raw = bearerToken(r)
		}
		if raw == "" {
			writeUnauthorized(w, "access_token query parameter is required")
			return
		}
		claims, err := s.parseToken(raw)
		if err != nil {
			writeUnauthorized(w, "invalid or expired token")
			return
		}
		subject = claims.Subject
	}

	var initial []events.Kind
	if v := r.URL.Query().Get("channels"); v != "" {
		kinds, msg := parseChannels(strings.Split(v, ","))
		if msg != "" {
			writeBadRequest(w, msg)
			return
		}
		initial = kinds
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := newClient(s.hub, conn, subject)
	client.subscribe(initial, nil)
	s.hub.add(client)

	go client.writePump()
	go client.readPump()
}

// readPump handles client messages until the connection fails.
func (c *wsClient) readPump() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()

	cfg := c.hub.cfg
	deadline := time.Duration(cfg.PingInterval+cfg.PongTimeout) * time.Second

	c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	_ = c.conn.SetReadDeadline(time.Now().Add(deadline))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(deadline))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		// Browsers do not always answer protocol pings; any message counts.
		_ = c.conn.SetReadDeadline(time.Now().Add(deadline))
		c.handle(data)
	}
}

// writePump drains the queue and sends pings until the queue is closed or
// a write fails.
func (c *wsClient) writePump() {
	cfg := c.hub.cfg
	ticker := time.NewTicker(time.Duration(cfg.PingInterval) * time.Second)
	writeWait := time.Duration(cfg.PongTimeout) * time.Second
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.queue:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handle processes one client message.
func (c *wsClient) handle(data []byte) {
	var msg inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		c.reply(outbound{Type: msgError, Error: "invalid JSON message"})
		return
	}

	switch msg.Type {
	case msgPing:
		c.reply(outbound{Type: msgPong, ID: msg.ID})
	case msgSubscribe, msgUnsubscribe:
		kinds, errMsg := parseChannels(msg.Channels)
		if errMsg == "" {
			errMsg = validateSensors(msg.Sensors)
		}
		if errMsg != "" {
			c.reply(outbound{Type: msgError, ID: msg.ID, Error: errMsg})
			return
		}

		reply := msgSubscribed
		if msg.Type == msgSubscribe {
			c.subscribe(kinds, msg.Sensors)
		} else {
			c.unsubscribe(kinds, msg.Sensors)
			reply = msgUnsubscribed
		}
		channels, sensors := c.subscriptions()
		c.hub.logger.Debug("websocket subscriptions changed",
			"channels", channels,
			"sensors", len(sensors),
			"subject", c.subject,
		)
		c.reply(outbound{Type: reply, ID: msg.ID, Channels: channels, Sensors: sensors})
	default:
		c.reply(outbound{Type: msgError, ID: msg.ID, Error: "unknown message type: " + msg.Type})
	}
}

func validateSensors(ids []device.ID) string {
	for _, id := range ids {
		if err := id.Validate(); err != nil {
			return err.Error()
		}
	}
	return ""
}

func (c *wsClient) reply(msg outbound) {
	msg.Time = time.Now().UTC().Format(time.RFC3339Nano)
	frame, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if !c.enqueue(frame) {
		c.hub.dropped.Add(1)
	}
}
