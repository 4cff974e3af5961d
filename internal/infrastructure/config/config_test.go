package config

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
device:
  id: "hall_panel"
  name: "Hall Panel"
mode: "mqtt"
mqtt:
  broker:
    host: "broker.lan"
    port: 1883
  qos: 1
mqtt_bridge:
  namespace: "hadashboard"
  discovery_prefix: "homeassistant"
  status_interval: 15
database:
  path: "/tmp/test.db"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Device.ID != "hall_panel" {
		t.Errorf("Device.ID = %q, want %q", cfg.Device.ID, "hall_panel")
	}
	if cfg.Mode != ModeMQTT {
		t.Errorf("Mode = %q, want %q", cfg.Mode, ModeMQTT)
	}
	if cfg.MQTT.Broker.Host != "broker.lan" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "broker.lan")
	}
	if cfg.GetStatusInterval() != 15*time.Second {
		t.Errorf("GetStatusInterval() = %v, want 15s", cfg.GetStatusInterval())
	}
	// Untouched sections keep their defaults.
	if cfg.API.Port != 6053 {
		t.Errorf("API.Port = %d, want 6053", cfg.API.Port)
	}
	if cfg.Device.FriendlyName != "Hall Panel" {
		t.Errorf("Device.FriendlyName = %q, want name fallback", cfg.Device.FriendlyName)
	}
	if cfg.MQTT.Broker.ClientID != "panelnode-hall_panel" {
		t.Errorf("MQTT.Broker.ClientID = %q", cfg.MQTT.Broker.ClientID)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "invalid: [yaml: content")

	_, err := Load(path)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	path := writeConfig(t, `
mode: "bluetooth"
`)

	_, err := Load(path)
	if err == nil {
		t.Error("Load() expected validation error for unknown mode, got nil")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
device:
  id: "file_id"
  name: "Panel"
`)
	t.Setenv("PANELNODE_DEVICE_ID", "env_id")
	t.Setenv("PANELNODE_API_PORT", "7000")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Device.ID != "env_id" {
		t.Errorf("Device.ID = %q, want env override", cfg.Device.ID)
	}
	if cfg.API.Port != 7000 {
		t.Errorf("API.Port = %d, want 7000", cfg.API.Port)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := defaultConfig()
		cfg.fillDerived()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *Config) {}, wantErr: false},
		{name: "missing device id", mutate: func(c *Config) { c.Device.ID = "" }, wantErr: true},
		{name: "device id with wildcard", mutate: func(c *Config) { c.Device.ID = "a/#" }, wantErr: true},
		{name: "missing device name", mutate: func(c *Config) { c.Device.Name = "" }, wantErr: true},
		{name: "unknown mode", mutate: func(c *Config) { c.Mode = "zigbee" }, wantErr: true},
		{name: "port low", mutate: func(c *Config) { c.API.Port = 0 }, wantErr: true},
		{name: "port high", mutate: func(c *Config) { c.API.Port = 70000 }, wantErr: true},
		{name: "zero broadcast interval", mutate: func(c *Config) { c.API.Broadcast.Interval = 0 }, wantErr: true},
		{name: "invalid QoS", mutate: func(c *Config) { c.MQTT.QoS = 3 }, wantErr: true},
		{
			name: "mqtt mode without broker",
			mutate: func(c *Config) {
				c.Mode = ModeMQTT
				c.MQTT.Broker.Host = ""
			},
			wantErr: true,
		},
		{
			name: "api mode ignores broker",
			mutate: func(c *Config) {
				c.Mode = ModeAPI
				c.MQTT.Broker.Host = ""
			},
			wantErr: false,
		},
		{
			name: "influx enabled without url",
			mutate: func(c *Config) {
				c.InfluxDB.Enabled = true
				c.InfluxDB.Bucket = "panel"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDeriveMAC(t *testing.T) {
	macPattern := regexp.MustCompile(`^02(:[0-9A-F]{2}){5}$`)

	a := DeriveMAC("hall_panel")
	if !macPattern.MatchString(a) {
		t.Fatalf("DeriveMAC() = %q, want locally administered MAC", a)
	}
	if b := DeriveMAC("hall_panel"); a != b {
		t.Errorf("DeriveMAC() not stable: %q then %q", a, b)
	}
	if c := DeriveMAC("kitchen_panel"); a == c {
		t.Errorf("DeriveMAC() gave %q for two different ids", a)
	}
}

func TestDurationGetters(t *testing.T) {
	cfg := defaultConfig()

	if got := cfg.GetBroadcastInitialDelay(); got != 10*time.Second {
		t.Errorf("GetBroadcastInitialDelay() = %v, want 10s", got)
	}
	if got := cfg.GetBroadcastInterval(); got != 30*time.Second {
		t.Errorf("GetBroadcastInterval() = %v, want 30s", got)
	}
	if got := cfg.GetWriteTimeout(); got != 5*time.Second {
		t.Errorf("GetWriteTimeout() = %v, want 5s", got)
	}
	if got := cfg.ListenAddr(); got != "0.0.0.0:6053" {
		t.Errorf("ListenAddr() = %q", got)
	}
}
