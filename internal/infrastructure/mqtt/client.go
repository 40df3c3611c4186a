package mqtt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/inventory-core/internal/infrastructure/config"
)

// Client publishes inventory events to an MQTT broker through paho.
// All methods are safe for concurrent use.
type Client struct {
	client pahomqtt.Client
	cfg    config.MQTTConfig
	topics Topics

	mu           sync.RWMutex
	connected    bool
	lost         bool // set by a dropped connection, cleared on reconnect
	onConnect    func()
	onDisconnect func(err error)
	logger       Logger

	published  atomic.Uint64
	failed     atomic.Uint64
	reconnects atomic.Uint64
}

// Logger is the subset of logging.Logger the client uses.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Stats counts publishes and reconnects since Connect.
type Stats struct {
	Published  uint64 `json:"published"`
	Failed     uint64 `json:"failed"`
	Reconnects uint64 `json:"reconnects"`
}

// Connect dials the broker and waits for the first connection.
//
// A retained "offline" Last Will is registered on the system status topic
// and a retained "online" status is published on every (re)connect.
// Auto-reconnect with backoff is enabled.
func Connect(cfg config.MQTTConfig) (*Client, error) {
	c := &Client{
		cfg:    cfg,
		topics: NewTopics(cfg.TopicPrefix),
	}

	opts := buildClientOptions(cfg)
	configureLWT(opts, c.topics, cfg.Broker.ClientID)
	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.handleConnect() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.handleDisconnect(err) })

	c.client = pahomqtt.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		c.client.Disconnect(0) // stop the background retry loop
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		c.client.Disconnect(0)
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The connect handler runs asynchronously.
	c.setConnected(true)
	return c, nil
}

// Topics returns the topic builder for the configured prefix.
func (c *Client) Topics() Topics {
	return c.topics
}

// QoS returns the configured default QoS.
func (c *Client) QoS() byte {
	return byte(c.cfg.QoS)
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}

func (c *Client) handleConnect() {
	c.mu.Lock()
	reconnected := c.lost
	c.connected, c.lost = true, false
	callback, logger := c.onConnect, c.logger
	c.mu.Unlock()

	if reconnected {
		c.reconnects.Add(1)
	}
	c.announce("online", "")

	if logger != nil {
		logger.Info("mqtt connected", "broker", brokerURL(c.cfg))
	}
	if callback != nil {
		callback()
	}
}

func (c *Client) handleDisconnect(err error) {
	c.mu.Lock()
	c.connected, c.lost = false, true
	callback, logger := c.onDisconnect, c.logger
	c.mu.Unlock()

	if logger != nil {
		logger.Warn("mqtt connection lost", "error", err)
	}
	if callback != nil {
		callback(err)
	}
}

// announce publishes the retained service status without waiting.
func (c *Client) announce(status, reason string) pahomqtt.Token {
	payload := buildStatusPayload(status, c.cfg.Broker.ClientID, reason)
	return c.client.Publish(c.topics.SystemStatus(), c.QoS(), true, payload)
}

// Close publishes a retained "offline" status and disconnects.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}

	if c.IsConnected() {
		c.announce("offline", "graceful_shutdown").WaitTimeout(defaultPublishTimeout)
	}
	c.client.Disconnect(defaultDisconnectQuiesce)
	c.setConnected(false)
	return nil
}

// HealthCheck returns ErrNotConnected while the broker link is down.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected reports the last known connection state.
func (c *Client) IsConnected() bool {
	if c == nil || c.client == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected && c.client.IsConnected()
}

// Stats returns the publish counters.
func (c *Client) Stats() Stats {
	if c == nil {
		return Stats{}
	}
	return Stats{
		Published:  c.published.Load(),
		Failed:     c.failed.Load(),
		Reconnects: c.reconnects.Load(),
	}
}

// SetOnConnect sets a callback run on every reconnect.
func (c *Client) SetOnConnect(callback func()) {
	c.mu.Lock()
	c.onConnect = callback
	c.mu.Unlock()
}

// SetOnDisconnect sets a callback run when the connection drops.
func (c *Client) SetOnDisconnect(callback func(err error)) {
	c.mu.Lock()
	c.onDisconnect = callback
	c.mu.Unlock()
}

// SetLogger sets a logger for connection events.
func (c *Client) SetLogger(logger Logger) {
	c.mu.Lock()
	c.logger = logger
	c.mu.Unlock()
}
