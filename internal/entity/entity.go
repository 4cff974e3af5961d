package entity

// Kind is the entity category. It decides which list and state messages
// describe the entity on the wire and which discovery component it maps to.
type Kind int

const (
	KindSwitch Kind = iota + 1
	KindLight
	KindSensor
	KindButton
	KindMediaPlayer
)

func (k Kind) String() string {
	switch k {
	case KindSwitch:
		return "switch"
	case KindLight:
		return "light"
	case KindSensor:
		return "sensor"
	case KindButton:
		return "button"
	case KindMediaPlayer:
		return "media_player"
	default:
		return "unknown"
	}
}

// ColorMode values as defined by the native API.
type ColorMode uint32

const (
	ColorModeOnOff      ColorMode = 1
	ColorModeBrightness ColorMode = 3
)

// Media player feature bits advertised in ListEntitiesMediaPlayerResponse.
const (
	MediaFeaturePause       uint32 = 1
	MediaFeatureVolumeSet   uint32 = 2
	MediaFeatureVolumeMute  uint32 = 4
	MediaFeaturePlayMedia   uint32 = 8
	defaultMediaFeatureMask        = MediaFeaturePause | MediaFeatureVolumeSet | MediaFeatureVolumeMute | MediaFeaturePlayMedia
)

// Entity is one controllable or observable unit exposed to a controller.
// Identity fields never change after the registry is built; live values
// are read through a Sampler.
type Entity struct {
	ID   string
	Key  uint32
	Kind Kind
	Name string

	Icon             string
	Unit             string
	DeviceClass      string
	StateClass       string
	AccuracyDecimals int32

	// Light only.
	ColorModes []ColorMode

	// Media player only.
	SupportsPause bool
	FeatureFlags  uint32
}

// Stateful reports whether the entity has a value to report. Buttons do not.
func (e Entity) Stateful() bool {
	return e.Kind != KindButton
}
