package esphome

import "strconv"

// MessageType is the native API message number carried in every frame.
type MessageType uint32

// Message numbers of the supported subset. They are fixed by the
// controller's protocol definition and must not change.
const (
	TypeHelloRequest        MessageType = 1
	TypeHelloResponse       MessageType = 2
	TypeConnectRequest      MessageType = 3
	TypeConnectResponse     MessageType = 4
	TypeDisconnectRequest   MessageType = 5
	TypeDisconnectResponse  MessageType = 6
	TypePingRequest         MessageType = 7
	TypePingResponse        MessageType = 8
	TypeDeviceInfoRequest   MessageType = 9
	TypeDeviceInfoResponse  MessageType = 10
	TypeListEntitiesRequest MessageType = 11

	TypeListEntitiesLightResponse  MessageType = 15
	TypeListEntitiesSensorResponse MessageType = 16
	TypeListEntitiesSwitchResponse MessageType = 17
	TypeListEntitiesDoneResponse   MessageType = 19

	TypeSubscribeStatesRequest MessageType = 20

	TypeLightStateResponse  MessageType = 24
	TypeSensorStateResponse MessageType = 25
	TypeSwitchStateResponse MessageType = 26

	TypeLightCommandRequest  MessageType = 32
	TypeSwitchCommandRequest MessageType = 33

	TypeGetTimeRequest  MessageType = 36
	TypeGetTimeResponse MessageType = 37

	TypeListEntitiesButtonResponse MessageType = 61
	TypeButtonCommandRequest       MessageType = 62

	TypeListEntitiesMediaPlayerResponse MessageType = 63
	TypeMediaPlayerStateResponse        MessageType = 64
	TypeMediaPlayerCommandRequest       MessageType = 65
)

var messageNames = map[MessageType]string{
	TypeHelloRequest:                    "hello_request",
	TypeHelloResponse:                   "hello_response",
	TypeConnectRequest:                  "connect_request",
	TypeConnectResponse:                 "connect_response",
	TypeDisconnectRequest:               "disconnect_request",
	TypeDisconnectResponse:              "disconnect_response",
	TypePingRequest:                     "ping_request",
	TypePingResponse:                    "ping_response",
	TypeDeviceInfoRequest:               "device_info_request",
	TypeDeviceInfoResponse:              "device_info_response",
	TypeListEntitiesRequest:             "list_entities_request",
	TypeListEntitiesLightResponse:       "list_entities_light_response",
	TypeListEntitiesSensorResponse:      "list_entities_sensor_response",
	TypeListEntitiesSwitchResponse:      "list_entities_switch_response",
	TypeListEntitiesDoneResponse:        "list_entities_done_response",
	TypeSubscribeStatesRequest:          "subscribe_states_request",
	TypeLightStateResponse:              "light_state_response",
	TypeSensorStateResponse:             "sensor_state_response",
	TypeSwitchStateResponse:             "switch_state_response",
	TypeLightCommandRequest:             "light_command_request",
	TypeSwitchCommandRequest:            "switch_command_request",
	TypeGetTimeRequest:                  "get_time_request",
	TypeGetTimeResponse:                 "get_time_response",
	TypeListEntitiesButtonResponse:      "list_entities_button_response",
	TypeButtonCommandRequest:            "button_command_request",
	TypeListEntitiesMediaPlayerResponse: "list_entities_media_player_response",
	TypeMediaPlayerStateResponse:        "media_player_state_response",
	TypeMediaPlayerCommandRequest:       "media_player_command_request",
}

// String returns the snake_case message name, or "type_<n>" for message
// numbers outside the supported subset.
func (t MessageType) String() string {
	if name, ok := messageNames[t]; ok {
		return name
	}
	return "type_" + strconv.FormatUint(uint64(t), 10)
}

// Media player enums as defined by the native API.
const (
	mediaStateNone    uint32 = 0
	mediaStateIdle    uint32 = 1
	mediaStatePlaying uint32 = 2
	mediaStatePaused  uint32 = 3

	MediaCommandPlay   uint32 = 0
	MediaCommandPause  uint32 = 1
	MediaCommandStop   uint32 = 2
	MediaCommandMute   uint32 = 3
	MediaCommandUnmute uint32 = 4
)

// Sensor state_class enum.
var sensorStateClasses = map[string]uint32{
	"measurement":      1,
	"total_increasing": 2,
	"total":            3,
}

// HelloRequest is the first message a client sends.
type HelloRequest struct {
	ClientInfo      string
	APIVersionMajor uint32
	APIVersionMinor uint32
}

// Marshal encodes the message payload.
func (m *HelloRequest) Marshal() []byte {
	var e encoder
	e.string(1, m.ClientInfo)
	e.uint32(2, m.APIVersionMajor)
	e.uint32(3, m.APIVersionMinor)
	return e.b
}

// Unmarshal decodes a payload, skipping unknown fields.
func (m *HelloRequest) Unmarshal(b []byte) error {
	return decodeFields(b, func(f field) {
		switch f.num {
		case 1:
			m.ClientInfo = f.asString()
		case 2:
			m.APIVersionMajor = f.asUint32()
		case 3:
			m.APIVersionMinor = f.asUint32()
		}
	})
}

// HelloResponse answers HelloRequest with the API version and device name.
type HelloResponse struct {
	APIVersionMajor uint32
	APIVersionMinor uint32
	ServerInfo      string
	Name            string
}

// Marshal encodes the message payload.
func (m *HelloResponse) Marshal() []byte {
	var e encoder
	e.uint32(1, m.APIVersionMajor)
	e.uint32(2, m.APIVersionMinor)
	e.string(3, m.ServerInfo)
	e.string(4, m.Name)
	return e.b
}

// ConnectResponse answers ConnectRequest. The password is never checked.
type ConnectResponse struct {
	InvalidPassword bool
}

// Marshal encodes the message payload.
func (m *ConnectResponse) Marshal() []byte {
	var e encoder
	e.bool(1, m.InvalidPassword)
	return e.b
}

// DeviceInfoResponse describes the device identity.
type DeviceInfoResponse struct {
	UsesPassword    bool
	Name            string
	MACAddress      string
	ESPHomeVersion  string
	CompilationTime string
	Model           string
	ProjectName     string
	ProjectVersion  string
	Manufacturer    string
	FriendlyName    string
}

// Marshal encodes the message payload.
func (m *DeviceInfoResponse) Marshal() []byte {
	var e encoder
	e.bool(1, m.UsesPassword)
	e.string(2, m.Name)
	e.string(3, m.MACAddress)
	e.string(4, m.ESPHomeVersion)
	e.string(5, m.CompilationTime)
	e.string(6, m.Model)
	e.string(8, m.ProjectName)
	e.string(9, m.ProjectVersion)
	e.string(12, m.Manufacturer)
	e.string(13, m.FriendlyName)
	return e.b
}

// entityHeader holds the fields every ListEntities*Response starts with.
type entityHeader struct {
	ObjectID string
	Key      uint32
	Name     string
	UniqueID string
}

func (h entityHeader) encode(e *encoder) {
	e.string(1, h.ObjectID)
	e.fixed32(2, h.Key)
	e.string(3, h.Name)
	e.string(4, h.UniqueID)
}

// ListEntitiesSwitchResponse lists one switch entity.
type ListEntitiesSwitchResponse struct {
	entityHeader
	Icon        string
	DeviceClass string
}

// Marshal encodes the message payload.
func (m *ListEntitiesSwitchResponse) Marshal() []byte {
	var e encoder
	m.encode(&e)
	e.string(5, m.Icon)
	e.string(9, m.DeviceClass)
	return e.b
}

// ListEntitiesLightResponse lists one light entity and its color modes.
type ListEntitiesLightResponse struct {
	entityHeader
	SupportedColorModes []uint32
	Icon                string
}

// Marshal encodes the message payload.
func (m *ListEntitiesLightResponse) Marshal() []byte {
	var e encoder
	m.encode(&e)
	e.packed(12, m.SupportedColorModes)
	e.string(14, m.Icon)
	return e.b
}

// ListEntitiesSensorResponse lists one sensor entity.
type ListEntitiesSensorResponse struct {
	entityHeader
	Icon              string
	UnitOfMeasurement string
	AccuracyDecimals  int32
	DeviceClass       string
	StateClass        uint32
}

// Marshal encodes the message payload.
func (m *ListEntitiesSensorResponse) Marshal() []byte {
	var e encoder
	m.encode(&e)
	e.string(5, m.Icon)
	e.string(6, m.UnitOfMeasurement)
	e.int32(7, m.AccuracyDecimals)
	e.string(9, m.DeviceClass)
	e.uint32(10, m.StateClass)
	return e.b
}

// ListEntitiesButtonResponse lists one button entity.
type ListEntitiesButtonResponse struct {
	entityHeader
	Icon string
}

// Marshal encodes the message payload.
func (m *ListEntitiesButtonResponse) Marshal() []byte {
	var e encoder
	m.encode(&e)
	e.string(5, m.Icon)
	return e.b
}

// ListEntitiesMediaPlayerResponse lists one media player entity.
type ListEntitiesMediaPlayerResponse struct {
	entityHeader
	Icon          string
	SupportsPause bool
	FeatureFlags  uint32
}

// Marshal encodes the message payload.
func (m *ListEntitiesMediaPlayerResponse) Marshal() []byte {
	var e encoder
	m.encode(&e)
	e.string(5, m.Icon)
	e.bool(8, m.SupportsPause)
	e.uint32(10, m.FeatureFlags)
	return e.b
}

// SwitchStateResponse reports a switch state.
type SwitchStateResponse struct {
	Key   uint32
	State bool
}

// Marshal encodes the message payload.
func (m *SwitchStateResponse) Marshal() []byte {
	var e encoder
	e.fixed32(1, m.Key)
	e.bool(2, m.State)
	return e.b
}

// LightStateResponse reports a light state and brightness.
type LightStateResponse struct {
	Key        uint32
	State      bool
	Brightness float32
	ColorMode  uint32
}

// Marshal encodes the message payload.
func (m *LightStateResponse) Marshal() []byte {
	var e encoder
	e.fixed32(1, m.Key)
	e.bool(2, m.State)
	e.float(3, m.Brightness)
	e.uint32(11, m.ColorMode)
	return e.b
}

// SensorStateResponse reports a sensor value. MissingState marks an unreadable probe.
type SensorStateResponse struct {
	Key          uint32
	State        float32
	MissingState bool
}

// Marshal encodes the message payload.
func (m *SensorStateResponse) Marshal() []byte {
	var e encoder
	e.fixed32(1, m.Key)
	e.float(2, m.State)
	e.bool(3, m.MissingState)
	return e.b
}

// MediaPlayerStateResponse reports playback state, volume and mute.
type MediaPlayerStateResponse struct {
	Key    uint32
	State  uint32
	Volume float32
	Muted  bool
}

// Marshal encodes the message payload.
func (m *MediaPlayerStateResponse) Marshal() []byte {
	var e encoder
	e.fixed32(1, m.Key)
	e.uint32(2, m.State)
	e.float(3, m.Volume)
	e.bool(4, m.Muted)
	return e.b
}

// GetTimeResponse carries the device clock as Unix seconds.
type GetTimeResponse struct {
	EpochSeconds uint32
}

// Marshal encodes the message payload.
func (m *GetTimeResponse) Marshal() []byte {
	var e encoder
	e.fixed32(1, m.EpochSeconds)
	return e.b
}

// SwitchCommandRequest sets a switch.
type SwitchCommandRequest struct {
	Key   uint32
	State bool
}

// Marshal encodes the message payload.
func (m *SwitchCommandRequest) Marshal() []byte {
	var e encoder
	e.fixed32(1, m.Key)
	e.bool(2, m.State)
	return e.b
}

// Unmarshal decodes a payload, skipping unknown fields.
func (m *SwitchCommandRequest) Unmarshal(b []byte) error {
	return decodeFields(b, func(f field) {
		switch f.num {
		case 1:
			m.Key = f.asFixed32()
		case 2:
			m.State = f.asBool()
		}
	})
}

// LightCommandRequest changes a light. The Has* flags mark which halves are present.
type LightCommandRequest struct {
	Key           uint32
	HasState      bool
	State         bool
	HasBrightness bool
	Brightness    float32
}

// Marshal encodes the message payload.
func (m *LightCommandRequest) Marshal() []byte {
	var e encoder
	e.fixed32(1, m.Key)
	e.bool(2, m.HasState)
	e.bool(3, m.State)
	e.bool(4, m.HasBrightness)
	e.float(5, m.Brightness)
	return e.b
}

// Unmarshal decodes a payload, skipping unknown fields.
func (m *LightCommandRequest) Unmarshal(b []byte) error {
	return decodeFields(b, func(f field) {
		switch f.num {
		case 1:
			m.Key = f.asFixed32()
		case 2:
			m.HasState = f.asBool()
		case 3:
			m.State = f.asBool()
		case 4:
			m.HasBrightness = f.asBool()
		case 5:
			m.Brightness = f.asFloat()
		}
	})
}

// ButtonCommandRequest presses a button.
type ButtonCommandRequest struct {
	Key uint32
}

// Marshal encodes the message payload.
func (m *ButtonCommandRequest) Marshal() []byte {
	var e encoder
	e.fixed32(1, m.Key)
	return e.b
}

// Unmarshal decodes a payload, skipping unknown fields.
func (m *ButtonCommandRequest) Unmarshal(b []byte) error {
	return decodeFields(b, func(f field) {
		if f.num == 1 {
			m.Key = f.asFixed32()
		}
	})
}

// MediaPlayerCommandRequest carries a transport command, a volume or a URL to play.
type MediaPlayerCommandRequest struct {
	Key         uint32
	HasCommand  bool
	Command     uint32
	HasVolume   bool
	Volume      float32
	HasMediaURL bool
	MediaURL    string
}

// Marshal encodes the message payload.
func (m *MediaPlayerCommandRequest) Marshal() []byte {
	var e encoder
	e.fixed32(1, m.Key)
	e.bool(2, m.HasCommand)
	e.uint32(3, m.Command)
	e.bool(4, m.HasVolume)
	e.float(5, m.Volume)
	e.bool(6, m.HasMediaURL)
	e.string(7, m.MediaURL)
	return e.b
}

// Unmarshal decodes a payload, skipping unknown fields.
func (m *MediaPlayerCommandRequest) Unmarshal(b []byte) error {
	return decodeFields(b, func(f field) {
		switch f.num {
		case 1:
			m.Key = f.asFixed32()
		case 2:
			m.HasCommand = f.asBool()
		case 3:
			m.Command = f.asUint32()
		case 4:
			m.HasVolume = f.asBool()
		case 5:
			m.Volume = f.asFloat()
		case 6:
			m.HasMediaURL = f.asBool()
		case 7:
			m.MediaURL = f.asString()
		}
	})
}
