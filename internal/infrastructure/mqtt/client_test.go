package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/nerrad567/inventory-core/internal/infrastructure/config"
)

// testConfig returns an MQTT configuration pointing at a local broker.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Enabled: true,
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "inventory-test",
		},
		QoS:         1,
		TopicPrefix: "inventory-test",
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

func TestTopics(t *testing.T) {
	topics := NewTopics("lab/")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"system status", topics.SystemStatus(), "lab/system/status"},
		{"device state", topics.DeviceState("00"), "lab/device/00/state"},
		{"device event", topics.Event("device", "07", "taken"), "lab/device/07/taken"},
		{"user event", topics.Event("user", "01", "registered"), "lab/user/01/registered"},
		{"wildcard", topics.AllEvents(), "lab/#"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestNewTopics_DefaultPrefix(t *testing.T) {
	for _, prefix := range []string{"", "/", "//"} {
		if got := NewTopics(prefix).SystemStatus(); got != "inventory/system/status" {
			t.Errorf("NewTopics(%q).SystemStatus() = %q", prefix, got)
		}
	}
	if got := (Topics{}).DeviceState("00"); got != "inventory/device/00/state" {
		t.Errorf("zero Topics DeviceState() = %q", got)
	}
}

func TestBrokerURL(t *testing.T) {
	cfg := testConfig()
	if got := brokerURL(cfg); got != "tcp://127.0.0.1:1883" {
		t.Errorf("brokerURL() = %q", got)
	}

	cfg.Broker.TLS = true
	cfg.Broker.Port = 8883
	if got := brokerURL(cfg); got != "ssl://127.0.0.1:8883" {
		t.Errorf("brokerURL(tls) = %q", got)
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = config.MQTTAuthConfig{Username: "svc", Password: "pw"}
	cfg.Broker.TLS = true

	opts := buildClientOptions(cfg)

	if opts.ClientID != "inventory-test" {
		t.Errorf("ClientID = %q", opts.ClientID)
	}
	if opts.Username != "svc" || opts.Password != "pw" {
		t.Errorf("credentials = %q/%q", opts.Username, opts.Password)
	}
	if !opts.AutoReconnect || !opts.CleanSession {
		t.Error("expected auto-reconnect and clean session")
	}
	if opts.TLSConfig == nil || opts.TLSConfig.MinVersion != tlsMinVersion {
		t.Error("expected TLS config with minimum version")
	}
	if len(opts.Servers) != 1 || opts.Servers[0].String() != "ssl://127.0.0.1:1883" {
		t.Errorf("Servers = %v", opts.Servers)
	}
}

func TestConfigureLWT(t *testing.T) {
	opts := buildClientOptions(testConfig())
	configureLWT(opts, NewTopics("lab"), "inventory-test")

	if !opts.WillEnabled || !opts.WillRetained {
		t.Fatal("expected retained will message")
	}
	if opts.WillTopic != "lab/system/status" {
		t.Errorf("WillTopic = %q", opts.WillTopic)
	}

	var status statusPayload
	if err := json.Unmarshal(opts.WillPayload, &status); err != nil {
		t.Fatalf("will payload not JSON: %v", err)
	}
	if status.Status != "offline" || status.Reason != "unexpected_disconnect" {
		t.Errorf("will payload = %+v", status)
	}
}

func TestValidatePublish(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		wantErr error
	}{
		{"valid", "inventory/device/00/taken", []byte("{}"), 1, nil},
		{"nil payload", "inventory/device/00/state", nil, 1, nil},
		{"empty topic", "", []byte("{}"), 1, ErrInvalidTopic},
		{"bad qos", "t", []byte("{}"), 3, ErrInvalidQoS},
		{"too large", "t", make([]byte, maxPayloadSize+1), 0, ErrPublishFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validatePublish(tt.topic, tt.payload, tt.qos)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("validatePublish() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestClient_Disconnected(t *testing.T) {
	var c *Client

	if c.IsConnected() {
		t.Error("nil client should not report connected")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v", err)
	}

	idle := &Client{topics: NewTopics("")}
	if err := idle.Publish("inventory/x", []byte("{}"), 0, false); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() error = %v, want ErrNotConnected", err)
	}
	if err := idle.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
	if s := idle.Stats(); s.Failed != 1 || s.Published != 0 {
		t.Errorf("Stats() = %+v, want one failed publish", s)
	}
	if s := c.Stats(); s != (Stats{}) {
		t.Errorf("nil Stats() = %+v", s)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := idle.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck(cancelled) error = %v, want context.Canceled", err)
	}
}

func TestConnect_BrokerRefused(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.Port = 19999
	cfg.Reconnect.InitialDelay = 0

	_, err := Connect(cfg)
	if err == nil {
		t.Skip("something is listening on port 19999")
	}
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
	if !strings.Contains(err.Error(), "mqtt") {
		t.Errorf("error %q should name the subsystem", err)
	}
}
