package api

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/inventory-core/internal/infrastructure/config"
	"github.com/nerrad567/inventory-core/internal/infrastructure/logging"
	"github.com/nerrad567/inventory-core/internal/inventory"
)

// WebSocket message types.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypeStats       = "stats"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"
)

const (
	// wsSendBufferSize is the per-client outbound message buffer size.
	wsSendBufferSize = 256

	defaultPingInterval = 30 * time.Second
	defaultPongTimeout  = 10 * time.Second
)

// WSMessage is the envelope for every frame in both directions.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// WSSubscribePayload is the payload for subscribe/unsubscribe messages.
//
// A channel is one of:
//   - an event type, e.g. "device.taken"
//   - an entity wildcard, "device.*" or "user.*"
//   - a single entity, e.g. "device:00" or "user:03"
//   - WSChannelAll
type WSSubscribePayload struct {
	Channels []string `json:"channels"`
}

// Hub fans registry events out to connected WebSocket clients.
// It implements inventory.Notifier.
type Hub struct {
	cfg    config.WebSocketConfig
	logger *logging.Logger
	stats  func() inventory.Stats

	mu      sync.RWMutex
	clients map[*WSClient]struct{}
}

// WSClient is one connected WebSocket peer.
type WSClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu   sync.RWMutex
	subs channelSet
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by CORS middleware
		return true
	},
}

// NewHub creates a hub with no clients.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[*WSClient]struct{}),
	}
}

// SetStatsSource sets the function answering "stats" requests.
// Without one, clients asking for stats get an error frame.
func (h *Hub) SetStatsSource(fn func() inventory.Stats) {
	h.mu.Lock()
	h.stats = fn
	h.mu.Unlock()
}

// Run blocks until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// Notify implements inventory.Notifier.
func (h *Hub) Notify(_ context.Context, ev inventory.Event) {
	at := ev.Timestamp
	if at.IsZero() {
		at = time.Now()
	}
	data, err := json.Marshal(WSMessage{
		Type:      WSTypeEvent,
		EventType: string(ev.Type),
		Timestamp: at.UTC().Format(time.RFC3339Nano),
		Payload:   ev,
	})
	if err != nil {
		h.logger.Error("failed to marshal event", "event", ev.Type, "error", err)
		return
	}

	channels := eventChannels(ev)
	if n := h.deliver(channels, data); n > 0 {
		h.logger.Debug("event delivered", "event", ev.Type, "recipients", n)
	}
}

// deliver queues data for every client subscribed to any of channels and
// returns how many clients it was queued for.
// The hub lock is released before per-client checks so the two locks are
// never held together.
func (h *Hub) deliver(channels []string, data []byte) int {
	h.mu.RLock()
	clients := make([]*WSClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	n := 0
	for _, c := range clients {
		if c.wants(channels) {
			c.trySend(data)
			n++
		}
	}
	return n
}

// Register adds a client to the hub.
func (h *Hub) Register(c *WSClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "clients", count)
}

// Unregister removes a client. Only the call that actually removes the
// client closes its send channel, so concurrent shutdown paths cannot
// double-close.
func (h *Hub) Unregister(c *WSClient) {
	h.mu.Lock()
	_, existed := h.clients[c]
	delete(h.clients, c)
	count := len(h.clients)
	h.mu.Unlock()

	if existed {
		close(c.send)
		h.logger.Debug("websocket client disconnected", "clients", count)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) statsSource() func() inventory.Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.stats
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		close(c.send)
		if c.conn != nil {
			c.conn.Close()
		}
		delete(h.clients, c)
	}
}

// handleWebSocket upgrades the connection. A new client receives no events
// until it subscribes to at least one channel.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	c := newWSClient(s.hub, conn)
	s.hub.Register(c)

	go c.writePump(s.wsCfg)
	go c.readPump(s.wsCfg)
}

func newWSClient(hub *Hub, conn *websocket.Conn) *WSClient {
	return &WSClient{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, wsSendBufferSize),
		subs: make(channelSet),
	}
}

func (c *WSClient) readPump(cfg config.WebSocketConfig) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	pingInterval, pongWait := wsTimings(cfg)
	extend := func() error {
		return c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	}

	c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	extend() //nolint:errcheck // Best-effort deadline on connection setup
	c.conn.SetPongHandler(func(string) error { return extend() })

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		extend() //nolint:errcheck // Any client frame counts as liveness
		c.handleMessage(data)
	}
}

func (c *WSClient) writePump(cfg config.WebSocketConfig) {
	pingInterval, pongWait := wsTimings(cfg)
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	write := func(kind int, data []byte) error {
		c.conn.SetWriteDeadline(time.Now().Add(pongWait)) //nolint:errcheck // Write error caught by caller
		return c.conn.WriteMessage(kind, data)
	}

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				write(websocket.CloseMessage, nil) //nolint:errcheck // Best-effort close frame
				return
			}
			if err := write(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// wsTimings returns the keepalive intervals, substituting defaults for
// unset values.
func wsTimings(cfg config.WebSocketConfig) (ping, pong time.Duration) {
	ping = time.Duration(cfg.PingInterval) * time.Second
	if ping <= 0 {
		ping = defaultPingInterval
	}
	pong = time.Duration(cfg.PongTimeout) * time.Second
	if pong <= 0 {
		pong = defaultPongTimeout
	}
	return ping, pong
}

func (c *WSClient) handleMessage(data []byte) {
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("", "invalid JSON message")
		return
	}

	switch msg.Type {
	case WSTypeSubscribe, WSTypeUnsubscribe:
		c.handleSubscribe(msg)
	case WSTypeStats:
		fn := c.hub.statsSource()
		if fn == nil {
			c.sendError(msg.ID, "stats unavailable")
			return
		}
		c.reply(msg.ID, WSTypeResponse, fn())
	case WSTypePing:
		c.reply(msg.ID, WSTypePong, nil)
	default:
		c.sendError(msg.ID, "unknown message type: "+msg.Type)
	}
}

// handleSubscribe applies a subscribe or unsubscribe request. Either every
// requested channel is valid and the whole request is applied, or nothing
// changes.
func (c *WSClient) handleSubscribe(msg WSMessage) {
	raw, err := json.Marshal(msg.Payload)
	if err != nil {
		c.sendError(msg.ID, "invalid payload")
		return
	}
	var req WSSubscribePayload
	if err := json.Unmarshal(raw, &req); err != nil || len(req.Channels) == 0 {
		c.sendError(msg.ID, "invalid "+msg.Type+" payload")
		return
	}

	subscribe := msg.Type == WSTypeSubscribe
	if subscribe {
		var bad []string
		for _, ch := range req.Channels {
			if err := validateChannel(ch); err != nil {
				bad = append(bad, err.Error())
			}
		}
		if len(bad) > 0 {
			c.sendError(msg.ID, strings.Join(bad, "; "))
			return
		}
	}

	c.mu.Lock()
	for _, ch := range req.Channels {
		if subscribe {
			c.subs[ch] = struct{}{}
		} else {
			delete(c.subs, ch)
		}
	}
	active := c.subs.names()
	c.mu.Unlock()
	slices.Sort(active)

	if subscribe {
		c.hub.logger.Debug("websocket client subscribed", "channels", req.Channels)
	}
	c.reply(msg.ID, WSTypeResponse, map[string]any{msg.Type + "d": req.Channels, "active": active})
}

func (c *WSClient) wants(channels []string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subs.matchesAny(channels)
}

// trySend queues data without blocking. Frames for a slow client with a
// full buffer are dropped, as are sends racing a disconnect.
func (c *WSClient) trySend(data []byte) {
	defer func() {
		recover() //nolint:errcheck // Absorb send-on-closed-channel panic
	}()

	select {
	case c.send <- data:
	default:
	}
}

func (c *WSClient) reply(id, msgType string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      msgType,
		ID:        id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		return
	}
	c.trySend(data)
}

func (c *WSClient) sendError(id, message string) {
	c.reply(id, WSTypeError, map[string]string{"message": message})
}
