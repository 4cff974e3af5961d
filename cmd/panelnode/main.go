// panelnode presents a wall-mounted Linux panel to a home-automation
// controller as a native device.
//
// It runs in one of two modes, chosen by config:
//   - api: serves the ESPHome native API on TCP 6053 and advertises it with mDNS
//   - mqtt: publishes Home Assistant discovery and state documents over MQTT
//
// Both modes expose the same entities and drive the same host actions.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	_ "github.com/nerrad567/panelnode/migrations"

	"github.com/nerrad567/panelnode/internal/advertise"
	"github.com/nerrad567/panelnode/internal/bridges/esphome"
	"github.com/nerrad567/panelnode/internal/bridges/hass"
	"github.com/nerrad567/panelnode/internal/entity"
	"github.com/nerrad567/panelnode/internal/host"
	"github.com/nerrad567/panelnode/internal/infrastructure/config"
	"github.com/nerrad567/panelnode/internal/infrastructure/database"
	"github.com/nerrad567/panelnode/internal/infrastructure/influxdb"
	"github.com/nerrad567/panelnode/internal/infrastructure/logging"
	"github.com/nerrad567/panelnode/internal/infrastructure/metrics"
	"github.com/nerrad567/panelnode/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// options are the command-line flags.
type options struct {
	configPath     string
	mode           string
	resetDiscovery bool
	showVersion    bool
}

func parseFlags(args []string) (options, error) {
	var opts options

	fs := pflag.NewFlagSet("panelnode", pflag.ContinueOnError)
	fs.StringVarP(&opts.configPath, "config", "c", getConfigPath(), "path to the YAML configuration file")
	fs.StringVar(&opts.mode, "mode", "", "override the integration mode (api or mqtt)")
	fs.BoolVar(&opts.resetDiscovery, "reset-discovery", false, "republish MQTT discovery documents on the next connect")
	fs.BoolVarP(&opts.showVersion, "version", "v", false, "print version information and exit")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return opts, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	if opts.showVersion {
		fmt.Printf("panelnode %s (commit %s, built %s)\n", version, commit, date)
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// It returns nil on a clean shutdown after ctx is cancelled.
func run(ctx context.Context, opts options) error {
	log := logging.Default()
	log.Info("starting panelnode",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := loadConfig(opts)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", opts.configPath,
		"mode", cfg.Mode,
		"device", cfg.Device.ID,
	)

	registry, err := entity.NewDefaultRegistry(cfg.Device.Name)
	if err != nil {
		return fmt.Errorf("building entity registry: %w", err)
	}
	state := entity.NewState()

	surface := host.New(cfg.Host, log.With("component", "host"))
	defer func() {
		if closeErr := surface.Close(); closeErr != nil {
			log.Error("error stopping media player", "error", closeErr)
		}
	}()
	sampler := entity.NewSampler(registry, state, surface)

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	influxClient, err = influxdb.Connect(cfg.InfluxDB)
	switch {
	case errors.Is(err, influxdb.ErrDisabled):
		log.Info("InfluxDB disabled")
	case err != nil:
		log.Warn("InfluxDB unavailable, sensor history disabled", "error", err)
		influxClient = nil
	default:
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		sampler.SetRecorder(cfg.Device.ID, influxClient)
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	}

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(
			fmt.Sprintf("%s:%d", cfg.Metrics.Host, cfg.Metrics.Port),
			log.With("component", "metrics"),
		)
		if influxClient != nil {
			metricsServer.AddHealthCheck("influxdb", influxClient.HealthCheck)
		}
	}

	switch cfg.Mode {
	case config.ModeAPI:
		stop, err := startAPI(ctx, cfg, registry, state, sampler, surface, metricsServer, log)
		if err != nil {
			return err
		}
		defer stop()
	case config.ModeMQTT:
		stop, err := startMQTT(ctx, cfg, opts, registry, state, sampler, surface, metricsServer, log)
		if err != nil {
			return err
		}
		defer stop()
	}

	if metricsServer != nil {
		if err := metricsServer.Start(); err != nil {
			return fmt.Errorf("starting metrics server: %w", err)
		}
		defer func() {
			if stopErr := metricsServer.Stop(); stopErr != nil {
				log.Error("error stopping metrics server", "error", stopErr)
			}
		}()
	}

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	return nil
}

// loadConfig reads the config file and applies flag overrides. A missing
// file at the default path falls back to built-in defaults.
func loadConfig(opts options) (*config.Config, error) {
	var cfg *config.Config
	_, statErr := os.Stat(opts.configPath)
	if errors.Is(statErr, os.ErrNotExist) && opts.configPath == defaultConfigPath {
		cfg = config.Default()
	} else {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if opts.mode != "" {
		cfg.Mode = opts.mode
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// getConfigPath returns the configuration file path.
// Uses PANELNODE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("PANELNODE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// startAPI binds the native API server and advertises it.
func startAPI(
	ctx context.Context,
	cfg *config.Config,
	registry *entity.Registry,
	state *entity.State,
	sampler *entity.Sampler,
	surface *host.Host,
	metricsServer *metrics.Server,
	log *logging.Logger,
) (func(), error) {
	apiLog := log.With("component", "api")

	dispatcher := esphome.NewDispatcher(esphome.DeviceInfo{
		ID:             cfg.Device.ID,
		Name:           cfg.Device.Name,
		FriendlyName:   cfg.Device.FriendlyName,
		Model:          cfg.Device.Model,
		Manufacturer:   cfg.Device.Manufacturer,
		MACAddress:     cfg.Device.MAC,
		ProjectName:    cfg.Device.Project,
		ProjectVersion: version,
	}, registry, state, sampler, surface, apiLog)

	server := esphome.NewServer(esphome.Config{
		Host:                  cfg.API.Host,
		Port:                  cfg.API.Port,
		WriteTimeout:          cfg.GetWriteTimeout(),
		BroadcastInitialDelay: cfg.GetBroadcastInitialDelay(),
		BroadcastInterval:     cfg.GetBroadcastInterval(),
	}, dispatcher, nil, apiLog)

	if err := server.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting API server: %w", err)
	}
	log.Info("API server listening", "addr", server.Addr().String())

	if metricsServer != nil {
		metricsServer.AddHealthCheck("api", server.HealthCheck)
	}

	var announcer *advertise.Announcer
	if cfg.API.MDNS.Enabled {
		announcer = advertise.New(advertise.Info{
			Name:         cfg.Device.Name,
			FriendlyName: cfg.Device.FriendlyName,
			Port:         server.Port(),
			Version:      esphome.ESPHomeVersion,
			Model:        cfg.Device.Model,
			MAC:          cfg.Device.MAC,
			ProjectName:  cfg.Device.Project,
			Domain:       cfg.API.MDNS.Domain,
		}, log.With("component", "mdns"))
		if err := announcer.Start(); err != nil {
			// The server stays reachable by address.
			log.Warn("mDNS advertisement failed", "error", err)
			announcer = nil
		}
	}

	return func() {
		if announcer != nil {
			announcer.Stop()
		}
		log.Info("stopping API server")
		server.Stop()
	}, nil
}

// startMQTT opens the discovery store, connects to the broker and starts
// the discovery bridge.
func startMQTT(
	ctx context.Context,
	cfg *config.Config,
	opts options,
	registry *entity.Registry,
	state *entity.State,
	sampler *entity.Sampler,
	surface *host.Host,
	metricsServer *metrics.Server,
	log *logging.Logger,
) (func(), error) {
	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database ready", "path", db.Path())

	topics := mqtt.Topics{
		Namespace:       cfg.MQTTBridge.Namespace,
		DiscoveryPrefix: cfg.MQTTBridge.DiscoveryPrefix,
		DeviceID:        cfg.Device.ID,
	}
	client := mqtt.New(cfg.MQTT, topics.Will())
	client.SetLogger(log.With("component", "mqtt"))
	client.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	bridge, err := hass.New(hass.Options{
		Device: hass.DeviceInfo{
			ID:           cfg.Device.ID,
			Name:         cfg.Device.Name,
			Model:        cfg.Device.Model,
			Manufacturer: cfg.Device.Manufacturer,
			Version:      version,
		},
		Topics:         topics,
		QoS:            byte(cfg.MQTT.QoS),
		StatusInterval: cfg.GetStatusInterval(),
		MQTT:           client,
		Store:          hass.NewSQLiteStore(db.DB),
		Registry:       registry,
		State:          state,
		Sampler:        sampler,
		Surface:        surface,
		Logger:         log.With("component", "hass"),
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating discovery bridge: %w", err)
	}

	if opts.resetDiscovery {
		if err := bridge.ResetDiscovery(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("resetting discovery: %w", err)
		}
		log.Info("discovery reset, documents will be republished")
	}

	client.SetOnConnect(bridge.OnConnect)
	bridge.Start(ctx)
	client.Start()
	log.Info("MQTT bridge started",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	if metricsServer != nil {
		metricsServer.AddHealthCheck("mqtt", client.HealthCheck)
		metricsServer.AddHealthCheck("database", db.HealthCheck)
	}

	return func() {
		log.Info("stopping MQTT bridge")
		bridge.Stop()
		if closeErr := client.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}, nil
}
