package esphome

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/panelnode/internal/actions"
	"github.com/nerrad567/panelnode/internal/entity"
	"github.com/nerrad567/panelnode/internal/infrastructure/metrics"
)

// API version reported in HelloResponse.
const (
	APIVersionMajor = 1
	APIVersionMinor = 10
)

// ESPHomeVersion is the firmware version string reported to controllers.
// Controllers gate features on it, so it tracks a real release.
const ESPHomeVersion = "2024.1.0"

const metricsSource = "api"

// DeviceInfo is the identity reported in HelloResponse and DeviceInfoResponse.
type DeviceInfo struct {
	// ID prefixes every entity unique_id.
	ID             string
	Name           string
	FriendlyName   string
	Model          string
	Manufacturer   string
	MACAddress     string
	ProjectName    string
	ProjectVersion string
}

// Logger is the logging interface used by the server and dispatcher.
// Satisfied by *logging.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Result is what one inbound frame produces.
type Result struct {
	// Replies are written back to the sending connection in order.
	Replies []Frame

	// Close asks the server to close the connection after the replies.
	Close bool
}

type handlerFunc func(ctx context.Context, payload []byte) (Result, error)

// Dispatcher turns inbound frames into action calls and reply frames.
//
// Each supported message type has one entry in a handler table; frames of
// any other type are dropped without a reply. Handlers never fail because
// an action failed: the failure is logged and the echo reflects the
// requested value. They only fail on payloads that cannot be decoded.
//
// Dispatcher is safe for concurrent use by many connections.
type Dispatcher struct {
	device   DeviceInfo
	registry *entity.Registry
	state    *entity.State
	sampler  *entity.Sampler
	surface  actions.Surface
	logger   Logger
	now      func() time.Time

	handlers map[MessageType]handlerFunc
}

// NewDispatcher builds the handler table.
func NewDispatcher(device DeviceInfo, registry *entity.Registry, state *entity.State, sampler *entity.Sampler, surface actions.Surface, logger Logger) *Dispatcher {
	d := &Dispatcher{
		device:   device,
		registry: registry,
		state:    state,
		sampler:  sampler,
		surface:  surface,
		logger:   logger,
		now:      time.Now,
	}

	d.handlers = map[MessageType]handlerFunc{
		TypeHelloRequest:              d.handleHello,
		TypeConnectRequest:            d.handleConnect,
		TypeDisconnectRequest:         d.handleDisconnect,
		TypePingRequest:               d.handlePing,
		TypeDeviceInfoRequest:         d.handleDeviceInfo,
		TypeListEntitiesRequest:       d.handleListEntities,
		TypeSubscribeStatesRequest:    d.handleSubscribeStates,
		TypeGetTimeRequest:            d.handleGetTime,
		TypeSwitchCommandRequest:      d.handleSwitchCommand,
		TypeLightCommandRequest:       d.handleLightCommand,
		TypeButtonCommandRequest:      d.handleButtonCommand,
		TypeMediaPlayerCommandRequest: d.handleMediaPlayerCommand,
	}

	return d
}

// Handles reports whether msgType has a handler.
func (d *Dispatcher) Handles(msgType MessageType) bool {
	_, ok := d.handlers[msgType]
	return ok
}

// Handle processes one inbound frame. Unsupported types return an empty
// Result. A non-nil error means the payload was malformed and the
// connection should be closed.
func (d *Dispatcher) Handle(ctx context.Context, f Frame) (Result, error) {
	h, ok := d.handlers[f.Type]
	if !ok {
		d.logger.Debug("ignoring unsupported message", "type", uint32(f.Type))
		return Result{}, nil
	}

	res, err := h(ctx, f.Payload)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", f.Type, err)
	}
	return res, nil
}

func reply(msgType MessageType, payload []byte) Result {
	return Result{Replies: []Frame{{Type: msgType, Payload: payload}}}
}

func (d *Dispatcher) handleHello(_ context.Context, payload []byte) (Result, error) {
	var req HelloRequest
	if err := req.Unmarshal(payload); err != nil {
		return Result{}, err
	}
	d.logger.Info("client hello",
		"client_info", req.ClientInfo,
		"api_version", fmt.Sprintf("%d.%d", req.APIVersionMajor, req.APIVersionMinor),
	)

	resp := HelloResponse{
		APIVersionMajor: APIVersionMajor,
		APIVersionMinor: APIVersionMinor,
		ServerInfo:      "panelnode " + d.device.ProjectVersion,
		Name:            d.device.Name,
	}
	return reply(TypeHelloResponse, resp.Marshal()), nil
}

// handleConnect accepts any password.
func (d *Dispatcher) handleConnect(_ context.Context, _ []byte) (Result, error) {
	resp := ConnectResponse{InvalidPassword: false}
	return reply(TypeConnectResponse, resp.Marshal()), nil
}

func (d *Dispatcher) handleDisconnect(_ context.Context, _ []byte) (Result, error) {
	res := reply(TypeDisconnectResponse, nil)
	res.Close = true
	return res, nil
}

func (d *Dispatcher) handlePing(_ context.Context, _ []byte) (Result, error) {
	return reply(TypePingResponse, nil), nil
}

func (d *Dispatcher) handleDeviceInfo(_ context.Context, _ []byte) (Result, error) {
	resp := DeviceInfoResponse{
		Name:           d.device.Name,
		FriendlyName:   d.device.FriendlyName,
		MACAddress:     d.device.MACAddress,
		ESPHomeVersion: ESPHomeVersion,
		Model:          d.device.Model,
		Manufacturer:   d.device.Manufacturer,
		ProjectName:    d.device.ProjectName,
		ProjectVersion: d.device.ProjectVersion,
	}
	return reply(TypeDeviceInfoResponse, resp.Marshal()), nil
}

func (d *Dispatcher) handleListEntities(_ context.Context, _ []byte) (Result, error) {
	entities := d.registry.Entities()
	frames := make([]Frame, 0, len(entities)+1)
	for _, e := range entities {
		f, ok := d.listEntityFrame(e)
		if !ok {
			continue
		}
		frames = append(frames, f)
	}
	frames = append(frames, Frame{Type: TypeListEntitiesDoneResponse})
	return Result{Replies: frames}, nil
}

func (d *Dispatcher) listEntityFrame(e entity.Entity) (Frame, bool) {
	header := entityHeader{
		ObjectID: e.ID,
		Key:      e.Key,
		Name:     e.Name,
		UniqueID: d.device.ID + "_" + e.ID,
	}

	switch e.Kind {
	case entity.KindSwitch:
		m := ListEntitiesSwitchResponse{entityHeader: header, Icon: e.Icon, DeviceClass: e.DeviceClass}
		return Frame{Type: TypeListEntitiesSwitchResponse, Payload: m.Marshal()}, true

	case entity.KindLight:
		modes := make([]uint32, len(e.ColorModes))
		for i, cm := range e.ColorModes {
			modes[i] = uint32(cm)
		}
		m := ListEntitiesLightResponse{entityHeader: header, SupportedColorModes: modes, Icon: e.Icon}
		return Frame{Type: TypeListEntitiesLightResponse, Payload: m.Marshal()}, true

	case entity.KindSensor:
		m := ListEntitiesSensorResponse{
			entityHeader:      header,
			Icon:              e.Icon,
			UnitOfMeasurement: e.Unit,
			AccuracyDecimals:  e.AccuracyDecimals,
			DeviceClass:       e.DeviceClass,
			StateClass:        sensorStateClasses[e.StateClass],
		}
		return Frame{Type: TypeListEntitiesSensorResponse, Payload: m.Marshal()}, true

	case entity.KindButton:
		m := ListEntitiesButtonResponse{entityHeader: header, Icon: e.Icon}
		return Frame{Type: TypeListEntitiesButtonResponse, Payload: m.Marshal()}, true

	case entity.KindMediaPlayer:
		m := ListEntitiesMediaPlayerResponse{
			entityHeader:  header,
			Icon:          e.Icon,
			SupportsPause: e.SupportsPause,
			FeatureFlags:  e.FeatureFlags,
		}
		return Frame{Type: TypeListEntitiesMediaPlayerResponse, Payload: m.Marshal()}, true
	}

	return Frame{}, false
}

func (d *Dispatcher) handleSubscribeStates(_ context.Context, _ []byte) (Result, error) {
	return Result{Replies: d.StateFrames()}, nil
}

func (d *Dispatcher) handleGetTime(_ context.Context, _ []byte) (Result, error) {
	resp := GetTimeResponse{EpochSeconds: uint32(d.now().Unix())} // #nosec G115 -- wire field is fixed32
	return reply(TypeGetTimeResponse, resp.Marshal()), nil
}

// lookup returns the entity for key if it exists and has the wanted kind.
// Anything else is treated as an unknown key.
func (d *Dispatcher) lookup(key uint32, kind entity.Kind) (entity.Entity, bool) {
	e, err := d.registry.Lookup(key)
	if err != nil || e.Kind != kind {
		d.logger.Debug("ignoring command for unknown key", "key", key, "kind", kind.String())
		return entity.Entity{}, false
	}
	return e, true
}

// actionDone logs and counts the outcome of one action call.
func (d *Dispatcher) actionDone(e entity.Entity, action string, err error) {
	if err != nil {
		d.logger.Warn("action failed", "entity", e.ID, "action", action, "error", err)
		metrics.Command(metricsSource, e.ID, metrics.OutcomeError)
		return
	}
	metrics.Command(metricsSource, e.ID, metrics.OutcomeOK)
}

func (d *Dispatcher) handleSwitchCommand(ctx context.Context, payload []byte) (Result, error) {
	var req SwitchCommandRequest
	if err := req.Unmarshal(payload); err != nil {
		return Result{}, err
	}

	e, ok := d.lookup(req.Key, entity.KindSwitch)
	if !ok {
		return Result{}, nil
	}

	switch e.ID {
	case entity.IDScreen:
		d.state.SetScreenOn(req.State)
		d.actionDone(e, "set_screen_power", d.surface.SetScreenPower(ctx, req.State))
	case entity.IDKiosk:
		d.actionDone(e, "set_kiosk_lock", d.surface.SetKioskLock(ctx, req.State))
	default:
		d.actionDone(e, "switch", fmt.Errorf("%w: %s", actions.ErrNotSupported, e.ID))
	}

	resp := SwitchStateResponse{Key: e.Key, State: req.State}
	return reply(TypeSwitchStateResponse, resp.Marshal()), nil
}

func (d *Dispatcher) handleLightCommand(ctx context.Context, payload []byte) (Result, error) {
	var req LightCommandRequest
	if err := req.Unmarshal(payload); err != nil {
		return Result{}, err
	}

	e, ok := d.lookup(req.Key, entity.KindLight)
	if !ok {
		return Result{}, nil
	}

	on, brightness := d.state.ResolveLight(entity.LightRequest{
		HasState:      req.HasState,
		State:         req.State,
		HasBrightness: req.HasBrightness,
		Brightness:    float64(req.Brightness),
	}, d.surface.CurrentBacklightFraction)

	var level uint8
	if on {
		level = actions.LevelFromFraction(brightness)
	}
	d.actionDone(e, "set_backlight_brightness", d.surface.SetBacklightBrightness(ctx, level))

	resp := LightStateResponse{
		Key:        e.Key,
		State:      on,
		Brightness: float32(brightness),
		ColorMode:  uint32(entity.ColorModeBrightness),
	}
	return reply(TypeLightStateResponse, resp.Marshal()), nil
}

func (d *Dispatcher) handleButtonCommand(ctx context.Context, payload []byte) (Result, error) {
	var req ButtonCommandRequest
	if err := req.Unmarshal(payload); err != nil {
		return Result{}, err
	}

	e, ok := d.lookup(req.Key, entity.KindButton)
	if !ok {
		return Result{}, nil
	}

	switch e.ID {
	case entity.IDReload:
		d.actionDone(e, "reload_content", d.surface.ReloadContent(ctx))
	case entity.IDZoomIn:
		d.actionDone(e, "zoom_in", d.surface.ZoomIn(ctx))
	case entity.IDZoomOut:
		d.actionDone(e, "zoom_out", d.surface.ZoomOut(ctx))
	default:
		d.actionDone(e, "press", fmt.Errorf("%w: %s", actions.ErrNotSupported, e.ID))
	}

	// Buttons have no state to echo.
	return Result{}, nil
}

func (d *Dispatcher) handleMediaPlayerCommand(ctx context.Context, payload []byte) (Result, error) {
	var req MediaPlayerCommandRequest
	if err := req.Unmarshal(payload); err != nil {
		return Result{}, err
	}

	e, ok := d.lookup(req.Key, entity.KindMediaPlayer)
	if !ok {
		return Result{}, nil
	}

	if req.HasMediaURL && req.MediaURL != "" {
		d.actionDone(e, "play_media_url", d.surface.PlayMediaURL(ctx, req.MediaURL))
	}

	if req.HasCommand {
		d.mediaCommand(ctx, e, req.Command)
	}

	if req.HasVolume {
		d.state.ClearMute()
		d.actionDone(e, "set_volume", d.surface.SetVolume(ctx, actions.ClampFraction(float64(req.Volume))))
	}

	r := d.sampler.Read(e)
	if req.HasVolume {
		r.Value = actions.ClampFraction(float64(req.Volume))
	}
	return Result{Replies: []Frame{mediaStateFrame(r)}}, nil
}

func (d *Dispatcher) mediaCommand(ctx context.Context, e entity.Entity, cmd uint32) {
	switch cmd {
	case MediaCommandPlay:
		d.actionDone(e, "media_play", d.surface.MediaTransport(ctx, actions.MediaPlay))
	case MediaCommandPause:
		d.actionDone(e, "media_pause", d.surface.MediaTransport(ctx, actions.MediaPause))
	case MediaCommandStop:
		d.actionDone(e, "media_stop", d.surface.MediaTransport(ctx, actions.MediaStop))
	case MediaCommandMute:
		current, err := d.surface.Volume()
		if err != nil {
			d.actionDone(e, "mute", err)
			return
		}
		d.state.Mute(current)
		d.actionDone(e, "mute", d.surface.SetVolume(ctx, 0))
	case MediaCommandUnmute:
		restore, ok := d.state.Unmute()
		if !ok {
			return
		}
		d.actionDone(e, "unmute", d.surface.SetVolume(ctx, restore))
	default:
		d.logger.Debug("ignoring unsupported media command", "command", cmd)
		metrics.Command(metricsSource, e.ID, metrics.OutcomeIgnored)
	}
}
