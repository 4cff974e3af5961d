package hass

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/nerrad567/panelnode/internal/actions"
	"github.com/nerrad567/panelnode/internal/entity"
	"github.com/nerrad567/panelnode/internal/infrastructure/metrics"
	"github.com/nerrad567/panelnode/internal/infrastructure/mqtt"
	"github.com/nerrad567/panelnode/internal/periodic"
)

const (
	// actionTimeout bounds the host action triggered by one control message.
	actionTimeout = 10 * time.Second

	metricsSource = "mqtt"

	publishDiscovery = "discovery"
	publishStatus    = "status"
)

// MQTTClient is the subset of *mqtt.Client the bridge uses.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	IsConnected() bool
}

// Logger is the logging interface used by the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Options configures a Bridge. Every field except StatusInterval is required.
type Options struct {
	Device DeviceInfo
	Topics mqtt.Topics
	QoS    byte

	// StatusInterval is the period of the status snapshot republish.
	// Zero disables the periodic task.
	StatusInterval time.Duration

	MQTT     MQTTClient
	Store    DiscoveryStore
	Registry *entity.Registry
	State    *entity.State
	Sampler  *entity.Sampler
	Surface  actions.Surface
	Logger   Logger
}

// Bridge publishes Home Assistant discovery and state documents over MQTT
// and turns text commands on the control topic into host actions.
//
// Announce runs on every broker (re)connect. Discovery documents are sent
// at most once per device identity and firmware version, tracked in the
// DiscoveryStore; the status snapshot is sent every time.
//
// All methods are safe for concurrent use.
type Bridge struct {
	opts Options

	announceMu sync.Mutex
	// execMu applies control commands one at a time; the MQTT client
	// delivers each message on its own goroutine.
	execMu sync.Mutex

	status *periodic.Task
	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
}

// New validates opts and creates a bridge. Call Start to begin the
// status schedule and register Announce as the connect callback.
func New(opts Options) (*Bridge, error) {
	switch {
	case opts.MQTT == nil:
		return nil, fmt.Errorf("%w: mqtt client is required", ErrInvalidOptions)
	case opts.Store == nil:
		return nil, fmt.Errorf("%w: discovery store is required", ErrInvalidOptions)
	case opts.Registry == nil || opts.State == nil || opts.Sampler == nil:
		return nil, fmt.Errorf("%w: registry, state and sampler are required", ErrInvalidOptions)
	case opts.Surface == nil:
		return nil, fmt.Errorf("%w: action surface is required", ErrInvalidOptions)
	case opts.Logger == nil:
		return nil, fmt.Errorf("%w: logger is required", ErrInvalidOptions)
	case opts.Device.ID == "":
		return nil, fmt.Errorf("%w: device id is required", ErrInvalidOptions)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Bridge{opts: opts, ctx: ctx, cancel: cancel}, nil
}

// Start begins the periodic status republish.
func (b *Bridge) Start(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.status != nil || b.opts.StatusInterval <= 0 {
		return
	}
	b.status = periodic.New(periodic.Config{
		Name:         "hass-status",
		InitialDelay: b.opts.StatusInterval,
		Interval:     b.opts.StatusInterval,
	}, b.PublishStatus)
	b.status.Start(ctx)
}

// Stop ends the status schedule and cancels in-flight actions.
func (b *Bridge) Stop() {
	b.mu.Lock()
	task := b.status
	b.mu.Unlock()

	if task != nil {
		task.Stop()
	}
	b.cancel()
}

// OnConnect is the broker connect callback. It runs Announce with the
// bridge's own context.
func (b *Bridge) OnConnect() {
	if err := b.Announce(b.ctx); err != nil {
		b.opts.Logger.Warn("announce failed", "error", err)
	}
}

// Announce subscribes to the control topic, publishes discovery documents
// unless already sent for this identity and version, then publishes the
// status snapshot.
func (b *Bridge) Announce(ctx context.Context) error {
	b.announceMu.Lock()
	defer b.announceMu.Unlock()

	control := b.opts.Topics.Control()
	if err := b.opts.MQTT.Subscribe(control, b.opts.QoS, b.HandleControl); err != nil {
		return fmt.Errorf("subscribing to %s: %w", control, err)
	}

	announced, err := b.opts.Store.Announced(ctx, b.opts.Device.ID, b.opts.Device.Version)
	if err != nil {
		b.opts.Logger.Warn("discovery store unavailable, publishing discovery", "error", err)
		announced = false
	}

	if !announced {
		if err := b.PublishDiscovery(ctx); err != nil {
			return err
		}
		if err := b.opts.Store.MarkAnnounced(ctx, b.opts.Device.ID, b.opts.Device.Version); err != nil {
			b.opts.Logger.Warn("recording discovery announcement failed", "error", err)
		}
		b.opts.Logger.Info("discovery published", "device", b.opts.Device.ID, "version", b.opts.Device.Version)
	} else {
		b.opts.Logger.Debug("discovery already published", "device", b.opts.Device.ID)
	}

	b.PublishStatus(ctx)
	return nil
}

// PublishDiscovery publishes one retained discovery document per bound
// entity. It stops at the first failed publish.
func (b *Bridge) PublishDiscovery(_ context.Context) error {
	for _, bd := range bindings {
		e, err := b.opts.Registry.LookupID(bd.entityID)
		if err != nil {
			continue
		}

		payload, err := discoveryDocument(b.opts.Device, b.opts.Topics, bd, e).marshal()
		if err != nil {
			return fmt.Errorf("encoding discovery for %s: %w", bd.entityID, err)
		}

		topic := b.opts.Topics.DiscoveryConfig(bd.component, bd.key)
		if err := b.publish(publishDiscovery, topic, payload); err != nil {
			return fmt.Errorf("publishing discovery for %s: %w", bd.entityID, err)
		}
	}
	return nil
}

// PublishStatus publishes the current value of every stateful entity to
// its retained status topic. Entities whose probe failed are skipped.
func (b *Bridge) PublishStatus(_ context.Context) {
	if !b.opts.MQTT.IsConnected() {
		return
	}

	for _, r := range b.opts.Sampler.Snapshot() {
		if r.Err != nil {
			b.opts.Logger.Debug("probe failed", "entity", r.Entity.ID, "error", r.Err)
			metrics.ProbeError(r.Entity.ID)
			continue
		}
		bd, ok := bindingFor(r.Entity.ID)
		if !ok {
			continue
		}
		if err := b.publish(publishStatus, b.opts.Topics.Status(bd.key), []byte(statusPayload(r))); err != nil {
			if errors.Is(err, mqtt.ErrNotConnected) {
				return
			}
		}
	}
}

func (b *Bridge) publish(kind, topic string, payload []byte) error {
	err := b.opts.MQTT.Publish(topic, payload, b.opts.QoS, true)
	switch {
	case err == nil:
		metrics.Publish(kind, metrics.OutcomeOK)
	case errors.Is(err, mqtt.ErrNotConnected):
		b.opts.Logger.Debug("dropping publish while disconnected", "topic", topic)
		metrics.Publish(kind, metrics.OutcomeIgnored)
	default:
		b.opts.Logger.Warn("publish failed", "topic", topic, "error", err)
		metrics.Publish(kind, metrics.OutcomeError)
	}
	return err
}

func (b *Bridge) publishStatusOf(entityID string, payload string) {
	bd, ok := bindingFor(entityID)
	if !ok {
		return
	}
	_ = b.publish(publishStatus, b.opts.Topics.Status(bd.key), []byte(payload)) //nolint:errcheck // logged in publish
}

// statusPayload renders a reading the way its discovery document expects.
func statusPayload(r entity.Reading) string {
	switch r.Entity.Kind {
	case entity.KindSwitch:
		return onOff(r.On)
	case entity.KindLight:
		if !r.On {
			return "0"
		}
		return formatPercent(r.Value * 100)
	case entity.KindMediaPlayer:
		return r.Media.String()
	default:
		return strconv.FormatFloat(r.Value, 'f', 0, 64)
	}
}

func onOff(on bool) string {
	if on {
		return stateOn
	}
	return stateOff
}

func formatPercent(pct float64) string {
	return strconv.FormatFloat(math.Round(pct), 'f', 0, 64)
}

// HandleControl is the control-topic message handler. Payloads outside
// the grammar are ignored.
func (b *Bridge) HandleControl(_ string, payload []byte) error {
	cmd, err := ParseCommand(string(payload))
	if err != nil {
		b.opts.Logger.Debug("ignoring control message", "payload", string(payload), "error", err)
		return nil
	}

	b.execMu.Lock()
	defer b.execMu.Unlock()

	ctx, cancel := context.WithTimeout(b.ctx, actionTimeout)
	defer cancel()

	b.execute(ctx, cmd)
	return nil
}

func (b *Bridge) execute(ctx context.Context, cmd Command) {
	s := b.opts.Surface

	switch cmd.Kind {
	case CmdScreenOn, CmdScreenOff:
		on := cmd.Kind == CmdScreenOn
		b.opts.State.SetScreenOn(on)
		b.done(entity.IDScreen, "set_screen_power", s.SetScreenPower(ctx, on))
		b.publishStatusOf(entity.IDScreen, onOff(on))

	case CmdKioskOn, CmdKioskOff:
		locked := cmd.Kind == CmdKioskOn
		b.done(entity.IDKiosk, "set_kiosk_lock", s.SetKioskLock(ctx, locked))
		b.publishStatusOf(entity.IDKiosk, onOff(locked))

	case CmdBrightness:
		level := actions.LevelFromPercent(cmd.Percent)
		b.opts.State.SetLight(level > 0, cmd.Percent/100)
		b.done(entity.IDBacklight, "set_backlight_brightness", s.SetBacklightBrightness(ctx, level))
		b.publishStatusOf(entity.IDBacklight, formatPercent(cmd.Percent))

	case CmdReload:
		b.done(entity.IDReload, "reload_content", s.ReloadContent(ctx))
	case CmdZoomIn:
		b.done(entity.IDZoomIn, "zoom_in", s.ZoomIn(ctx))
	case CmdZoomOut:
		b.done(entity.IDZoomOut, "zoom_out", s.ZoomOut(ctx))

	case CmdMediaPlay:
		b.done(entity.IDMedia, "media_play", s.MediaTransport(ctx, actions.MediaPlay))
		b.publishStatusOf(entity.IDMedia, s.MediaState().String())
	case CmdMediaPause:
		b.done(entity.IDMedia, "media_pause", s.MediaTransport(ctx, actions.MediaPause))
		b.publishStatusOf(entity.IDMedia, s.MediaState().String())
	case CmdMediaStop:
		b.done(entity.IDMedia, "media_stop", s.MediaTransport(ctx, actions.MediaStop))
		b.publishStatusOf(entity.IDMedia, s.MediaState().String())
	case CmdVolume:
		b.opts.State.ClearMute()
		b.done(entity.IDMedia, "set_volume", s.SetVolume(ctx, cmd.Percent/100))
	case CmdPlayURL:
		b.done(entity.IDMedia, "play_media_url", s.PlayMediaURL(ctx, cmd.URL))
		b.publishStatusOf(entity.IDMedia, s.MediaState().String())
	}
}

func (b *Bridge) done(entityID, action string, err error) {
	if err != nil {
		b.opts.Logger.Warn("action failed", "entity", entityID, "action", action, "error", err)
		metrics.Command(metricsSource, entityID, metrics.OutcomeError)
		return
	}
	metrics.Command(metricsSource, entityID, metrics.OutcomeOK)
}

// ResetDiscovery forgets that discovery was published, so the next
// Announce sends the documents again.
func (b *Bridge) ResetDiscovery(ctx context.Context) error {
	return b.opts.Store.Reset(ctx, b.opts.Device.ID)
}
