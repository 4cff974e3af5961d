package mqtt

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/panelnode/internal/infrastructure/config"
)

// testConfig returns a configuration pointing at a port nothing listens on.
// None of the tests in this file need a broker.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:           "127.0.0.1",
			Port:           1883,
			ClientID:       "panelnode-test",
			ConnectTimeout: 2,
		},
		QoS:       1,
		KeepAlive: 30,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

func testTopics() Topics {
	return Topics{Namespace: "hadashboard", DiscoveryPrefix: "homeassistant", DeviceID: "hall_panel"}
}

func TestNew_NotConnected(t *testing.T) {
	c := New(testConfig(), testTopics().Will())

	if c.IsConnected() {
		t.Error("IsConnected() = true before Start")
	}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

func TestHealthCheckCancelled(t *testing.T) {
	c := New(testConfig(), Will{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck() error = %v, want context.Canceled", err)
	}
}

func TestPublishValidation(t *testing.T) {
	c := New(testConfig(), Will{})

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		want    error
	}{
		{"empty topic", "", []byte("x"), 1, ErrInvalidTopic},
		{"invalid qos", "a/b", []byte("x"), 3, ErrInvalidQoS},
		{"oversized payload", "a/b", make([]byte, maxPayloadSize+1), 1, ErrPublishFailed},
		{"disconnected", "a/b", []byte("ON"), 1, ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Publish(tt.topic, tt.payload, tt.qos, true)
			if !errors.Is(err, tt.want) {
				t.Errorf("Publish() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSubscribeValidation(t *testing.T) {
	c := New(testConfig(), Will{})
	noop := func(string, []byte) error { return nil }

	if err := c.Subscribe("", 1, noop); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Subscribe(empty) error = %v", err)
	}
	if err := c.Subscribe("a", 5, noop); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Subscribe(qos 5) error = %v", err)
	}
	if err := c.Subscribe("a", 1, nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("Subscribe(nil handler) error = %v", err)
	}
	if err := c.Subscribe("a", 1, noop); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Subscribe(disconnected) error = %v", err)
	}
	c.subMu.RLock()
	tracked := len(c.subscriptions)
	c.subMu.RUnlock()
	if tracked != 0 {
		t.Errorf("tracked %d subscriptions after failures, want 0", tracked)
	}
}

func TestCloseNeverConnected(t *testing.T) {
	c := New(testConfig(), testTopics().Will())
	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Username = "panel"
	cfg.Auth.Password = "secret"
	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://127.0.0.1:1883" {
		t.Errorf("Servers = %v", opts.Servers)
	}
	if opts.ClientID != "panelnode-test" {
		t.Errorf("ClientID = %q", opts.ClientID)
	}
	if opts.Username != "panel" || opts.Password != "secret" {
		t.Errorf("credentials not applied")
	}
	if !opts.CleanSession || !opts.AutoReconnect || !opts.ConnectRetry {
		t.Errorf("CleanSession/AutoReconnect/ConnectRetry = %v/%v/%v, want all true",
			opts.CleanSession, opts.AutoReconnect, opts.ConnectRetry)
	}
	if opts.Order {
		t.Error("Order = true, want handlers off the router goroutine")
	}
	if opts.KeepAlive != 30 {
		t.Errorf("KeepAlive = %d, want 30", opts.KeepAlive)
	}
	if opts.ConnectTimeout != 2*time.Second {
		t.Errorf("ConnectTimeout = %v, want 2s", opts.ConnectTimeout)
	}

	cfg.Broker.TLS = true
	cfg.KeepAlive = 0
	cfg.Broker.ConnectTimeout = 0
	opts = buildClientOptions(cfg)
	if opts.Servers[0].Scheme != "ssl" {
		t.Errorf("TLS scheme = %q, want ssl", opts.Servers[0].Scheme)
	}
	if opts.TLSConfig == nil || opts.TLSConfig.MinVersion != tlsMinVersion {
		t.Error("TLS config not applied")
	}
	if opts.KeepAlive != int64(defaultKeepAlive/time.Second) {
		t.Errorf("KeepAlive default = %d", opts.KeepAlive)
	}
	if opts.ConnectTimeout != defaultConnectTimeout {
		t.Errorf("ConnectTimeout default = %v", opts.ConnectTimeout)
	}
}

func TestConfigureLWT(t *testing.T) {
	opts := buildClientOptions(testConfig())
	configureLWT(opts, testTopics().Will(), 1)

	if !opts.WillEnabled {
		t.Fatal("WillEnabled = false")
	}
	if opts.WillTopic != "hadashboard/hall_panel/availability" {
		t.Errorf("WillTopic = %q", opts.WillTopic)
	}
	if string(opts.WillPayload) != PayloadOffline || !opts.WillRetained {
		t.Errorf("WillPayload = %q retained=%v", opts.WillPayload, opts.WillRetained)
	}

	bare := buildClientOptions(testConfig())
	configureLWT(bare, Will{}, 1)
	if bare.WillEnabled {
		t.Error("empty Will must not enable LWT")
	}
}

func TestTopicBuilders(t *testing.T) {
	topics := testTopics()

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"Control", topics.Control(), "hadashboard/hall_panel/control"},
		{"Status", topics.Status("battery"), "hadashboard/hall_panel/status/battery"},
		{"Availability", topics.Availability(), "hadashboard/hall_panel/availability"},
		{"DiscoveryConfig", topics.DiscoveryConfig("switch", "screen_state"), "homeassistant/switch/hall_panel/screen_state/config"},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}
