package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Integration modes. Exactly one runs per process.
const (
	ModeAPI  = "api"
	ModeMQTT = "mqtt"
)

// Config is the root configuration structure for panelnode.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Device     DeviceConfig     `yaml:"device"`
	Mode       string           `yaml:"mode"`
	API        APIConfig        `yaml:"api"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	MQTTBridge MQTTBridgeConfig `yaml:"mqtt_bridge"`
	Database   DatabaseConfig   `yaml:"database"`
	InfluxDB   InfluxDBConfig   `yaml:"influxdb"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Logging    LoggingConfig    `yaml:"logging"`
	Host       HostConfig       `yaml:"host"`
}

// DeviceConfig identifies this panel to the controller.
type DeviceConfig struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	FriendlyName string `yaml:"friendly_name"`
	Model        string `yaml:"model"`
	Manufacturer string `yaml:"manufacturer"`
	MAC          string `yaml:"mac"`
	Project      string `yaml:"project"`
}

// APIConfig contains native API server settings.
type APIConfig struct {
	Host         string          `yaml:"host"`
	Port         int             `yaml:"port"`
	WriteTimeout int             `yaml:"write_timeout"`
	Broadcast    BroadcastConfig `yaml:"broadcast"`
	MDNS         MDNSConfig      `yaml:"mdns"`
}

// BroadcastConfig controls the periodic state push to connected clients.
// Values are in seconds.
type BroadcastConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	Interval     int `yaml:"interval"`
}

// MDNSConfig controls the DNS-SD advertisement of the API server.
type MDNSConfig struct {
	Enabled bool   `yaml:"enabled"`
	Domain  string `yaml:"domain"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	KeepAlive int                 `yaml:"keep_alive"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	TLS            bool   `yaml:"tls"`
	ClientID       string `yaml:"client_id"`
	ConnectTimeout int    `yaml:"connect_timeout"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// MQTTBridgeConfig contains the discovery bridge topic layout.
type MQTTBridgeConfig struct {
	// Namespace prefixes the control, status and availability topics.
	Namespace string `yaml:"namespace"`

	// DiscoveryPrefix is the topic root the controller watches for config documents.
	DiscoveryPrefix string `yaml:"discovery_prefix"`

	// StatusInterval is how often the status snapshot is republished (seconds).
	StatusInterval int `yaml:"status_interval"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// MetricsConfig contains the Prometheus endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// HostConfig describes where the Linux host actions find their inputs.
type HostConfig struct {
	BacklightPath string      `yaml:"backlight_path"`
	BatteryPath   string      `yaml:"battery_path"`
	DataPath      string      `yaml:"data_path"`
	Hooks         HooksConfig `yaml:"hooks"`
	Media         MediaConfig `yaml:"media"`
}

// HooksConfig lists the shell commands run for actions that have no
// portable kernel interface. An empty hook makes the action unavailable.
type HooksConfig struct {
	Timeout     int    `yaml:"timeout"`
	ScreenOn    string `yaml:"screen_on"`
	ScreenOff   string `yaml:"screen_off"`
	KioskOn     string `yaml:"kiosk_on"`
	KioskOff    string `yaml:"kiosk_off"`
	KioskStatus string `yaml:"kiosk_status"`
	Reload      string `yaml:"reload"`
	ZoomIn      string `yaml:"zoom_in"`
	ZoomOut     string `yaml:"zoom_out"`
	SetVolume   string `yaml:"set_volume"`
}

// MediaConfig configures the external media player process.
type MediaConfig struct {
	Binary          string   `yaml:"binary"`
	Args            []string `yaml:"args"`
	GracefulTimeout int      `yaml:"graceful_timeout"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: PANELNODE_SECTION_KEY
// For example: PANELNODE_MODE, PANELNODE_MQTT_HOST
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	cfg.fillDerived()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration with derived fields filled.
// Used when no config file exists yet.
func Default() *Config {
	cfg := defaultConfig()
	applyEnvOverrides(cfg)
	cfg.fillDerived()
	return cfg
}

func defaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			ID:           "panelnode",
			Name:         "panelnode",
			Model:        "Panel",
			Manufacturer: "panelnode",
			Project:      "panelnode.kiosk",
		},
		Mode: ModeAPI,
		API: APIConfig{
			Host:         "0.0.0.0",
			Port:         6053,
			WriteTimeout: 5,
			Broadcast: BroadcastConfig{
				InitialDelay: 10,
				Interval:     30,
			},
			MDNS: MDNSConfig{
				Enabled: true,
				Domain:  "local.",
			},
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:           "localhost",
				Port:           1883,
				ConnectTimeout: 15,
			},
			QoS:       1,
			KeepAlive: 60,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		MQTTBridge: MQTTBridgeConfig{
			Namespace:       "hadashboard",
			DiscoveryPrefix: "homeassistant",
			StatusInterval:  30,
		},
		Database: DatabaseConfig{
			Path:        "./data/panelnode.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Metrics: MetricsConfig{
			Host: "0.0.0.0",
			Port: 9105,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Host: HostConfig{
			BacklightPath: "/sys/class/backlight/10-0045",
			BatteryPath:   "/sys/class/power_supply/battery",
			DataPath:      "/",
			Hooks: HooksConfig{
				Timeout: 5,
			},
			Media: MediaConfig{
				Binary:          "/usr/bin/mpv",
				Args:            []string{"--no-video", "--really-quiet"},
				GracefulTimeout: 3,
			},
		},
	}
}

// fillDerived fills identity fields that default from other fields.
func (c *Config) fillDerived() {
	if c.Device.FriendlyName == "" {
		c.Device.FriendlyName = c.Device.Name
	}
	if c.Device.MAC == "" {
		c.Device.MAC = DeriveMAC(c.Device.ID)
	}
	if c.MQTT.Broker.ClientID == "" {
		c.MQTT.Broker.ClientID = "panelnode-" + c.Device.ID
	}
}

// DeriveMAC builds a stable, locally administered MAC address from a device id.
// Controllers key devices by MAC, so the value must not change between runs.
func DeriveMAC(id string) string {
	// FNV-1a over the id, folded into the five bytes after the 0x02 prefix.
	var h uint64 = 14695981039346656037
	for i := 0; i < len(id); i++ {
		h ^= uint64(id[i])
		h *= 1099511628211
	}
	b := [6]byte{0x02}
	for i := 1; i < 6; i++ {
		b[i] = byte(h >> (8 * (i - 1)))
	}
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", b[0], b[1], b[2], b[3], b[4], b[5])
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: PANELNODE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Device
	if v := os.Getenv("PANELNODE_DEVICE_ID"); v != "" {
		cfg.Device.ID = v
	}
	if v := os.Getenv("PANELNODE_DEVICE_NAME"); v != "" {
		cfg.Device.Name = v
	}

	if v := os.Getenv("PANELNODE_MODE"); v != "" {
		cfg.Mode = v
	}

	// API
	if v := os.Getenv("PANELNODE_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// MQTT
	if v := os.Getenv("PANELNODE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("PANELNODE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("PANELNODE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Database
	if v := os.Getenv("PANELNODE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// InfluxDB
	if v := os.Getenv("PANELNODE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Device.ID == "" {
		errs = append(errs, "device.id is required")
	} else if strings.ContainsAny(c.Device.ID, "/+# ") {
		errs = append(errs, "device.id must not contain spaces or MQTT topic characters")
	}
	if c.Device.Name == "" {
		errs = append(errs, "device.name is required")
	}

	switch c.Mode {
	case ModeAPI, ModeMQTT:
	default:
		errs = append(errs, fmt.Sprintf("mode must be %q or %q", ModeAPI, ModeMQTT))
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	if c.API.Broadcast.Interval < 1 {
		errs = append(errs, "api.broadcast.interval must be at least 1 second")
	}
	if c.API.Broadcast.InitialDelay < 0 {
		errs = append(errs, "api.broadcast.initial_delay must not be negative")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.Mode == ModeMQTT {
		if c.MQTT.Broker.Host == "" {
			errs = append(errs, "mqtt.broker.host is required in mqtt mode")
		}
		if c.MQTTBridge.Namespace == "" || c.MQTTBridge.DiscoveryPrefix == "" {
			errs = append(errs, "mqtt_bridge.namespace and mqtt_bridge.discovery_prefix are required")
		}
		if c.MQTTBridge.StatusInterval < 1 {
			errs = append(errs, "mqtt_bridge.status_interval must be at least 1 second")
		}
		if c.Database.Path == "" {
			errs = append(errs, "database.path is required in mqtt mode")
		}
	}

	if c.InfluxDB.Enabled && (c.InfluxDB.URL == "" || c.InfluxDB.Bucket == "") {
		errs = append(errs, "influxdb.url and influxdb.bucket are required when influxdb is enabled")
	}

	if c.Metrics.Enabled && (c.Metrics.Port < 1 || c.Metrics.Port > 65535) {
		errs = append(errs, "metrics.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// ListenAddr returns the host:port the API server binds.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}

// GetWriteTimeout returns the per-frame API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.WriteTimeout) * time.Second
}

// GetBroadcastInitialDelay returns the delay before the first state broadcast.
func (c *Config) GetBroadcastInitialDelay() time.Duration {
	return time.Duration(c.API.Broadcast.InitialDelay) * time.Second
}

// GetBroadcastInterval returns the period between state broadcasts.
func (c *Config) GetBroadcastInterval() time.Duration {
	return time.Duration(c.API.Broadcast.Interval) * time.Second
}

// GetStatusInterval returns the period between MQTT status snapshots.
func (c *Config) GetStatusInterval() time.Duration {
	return time.Duration(c.MQTTBridge.StatusInterval) * time.Second
}

// GetHookTimeout returns the maximum run time of a host hook command.
func (c *Config) GetHookTimeout() time.Duration {
	return time.Duration(c.Host.Hooks.Timeout) * time.Second
}
