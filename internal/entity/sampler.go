package entity

import (
	"fmt"
	"math"

	"github.com/nerrad567/panelnode/internal/actions"
)

// Reading is the live value of one stateful entity.
//
// Which fields are meaningful depends on the entity kind:
//   - Switch: On
//   - Light: On, Value (brightness 0.0..1.0)
//   - Sensor: Value (rounded to integer units)
//   - MediaPlayer: Media, Value (volume 0.0..1.0), Muted
//
// Err is set when the probe behind the entity failed; the other fields are
// then zero and the reading should be reported as missing.
type Reading struct {
	Entity Entity
	On     bool
	Value  float64
	Media  actions.MediaState
	Muted  bool
	Err    error
}

// Recorder receives every successful sensor reading. The InfluxDB client
// satisfies it.
type Recorder interface {
	RecordSample(deviceID, entityID, unit string, value float64)
}

// Sampler produces Readings from the state store and the host probes.
type Sampler struct {
	registry *Registry
	state    *State
	probes   actions.Probes

	sensors map[string]func() (float64, error)

	deviceID string
	recorder Recorder
}

// NewSampler wires the default sensor ids to their probes.
func NewSampler(registry *Registry, state *State, probes actions.Probes) *Sampler {
	return &Sampler{
		registry: registry,
		state:    state,
		probes:   probes,
		sensors: map[string]func() (float64, error){
			IDBattery: probes.BatteryPercent,
			IDStorage: probes.StorageUsedPercent,
			IDRAM:     probes.RAMUsedPercent,
			IDUptime:  probes.UptimeMinutes,
		},
	}
}

// SetRecorder sends successful sensor readings to r, tagged with deviceID.
// Call before the sampler is shared.
func (s *Sampler) SetRecorder(deviceID string, r Recorder) {
	s.deviceID = deviceID
	s.recorder = r
}

// Snapshot reads every stateful entity in listing order. A failing probe
// only marks its own reading.
func (s *Sampler) Snapshot() []Reading {
	entities := s.registry.Entities()
	out := make([]Reading, 0, len(entities))
	for _, e := range entities {
		if !e.Stateful() {
			continue
		}
		out = append(out, s.Read(e))
	}
	return out
}

// Read returns the live value of one entity.
func (s *Sampler) Read(e Entity) Reading {
	r := Reading{Entity: e}

	switch e.Kind {
	case KindSwitch:
		r.On, r.Err = s.readSwitch(e)

	case KindLight:
		r.On, r.Value, r.Err = s.readLight()

	case KindSensor:
		probe, ok := s.sensors[e.ID]
		if !ok {
			r.Err = fmt.Errorf("%w: %s", ErrNoProbe, e.ID)
			return r
		}
		v, err := probe()
		if err != nil {
			r.Err = err
			return r
		}
		r.Value = math.Round(v)
		if s.recorder != nil {
			s.recorder.RecordSample(s.deviceID, e.ID, e.Unit, r.Value)
		}

	case KindMediaPlayer:
		r.Media = s.probes.MediaState()
		r.Muted = s.state.Muted()
		// Volume is informational; an unreadable mixer reports zero.
		if v, err := s.probes.Volume(); err == nil {
			r.Value = actions.ClampFraction(v)
		}
	}

	return r
}

// backlightTolerance is how far, as a fraction, the probed backlight may sit
// from the stored request and still count as the same level. Coarse
// max_brightness scales do not read back exactly.
const backlightTolerance = 0.02

// readLight reports the probed backlight. The stored request only supplies
// on/off and the remembered brightness while the hardware still shows it;
// anything else changed the backlight since and the probe wins. The stored
// values stand in when the probe fails.
func (s *Sampler) readLight() (on bool, value float64, err error) {
	light := s.state.Light()

	f, err := s.probes.CurrentBacklightFraction()
	if err != nil {
		if !light.BrightnessKnown {
			return false, 0, err
		}
		on = light.On
		if !light.OnKnown {
			on = light.Brightness > 0
		}
		return on, light.Brightness, nil
	}
	probed := actions.ClampFraction(f)

	if light.OnKnown && light.BrightnessKnown {
		var want float64
		if light.On {
			want = light.Brightness
		}
		if math.Abs(probed-want) <= backlightTolerance {
			return light.On, light.Brightness, nil
		}
	}
	return probed > 0, probed, nil
}

func (s *Sampler) readSwitch(e Entity) (bool, error) {
	switch e.ID {
	case IDScreen:
		return s.state.ScreenOn(), nil
	case IDKiosk:
		return s.probes.IsScreenLocked()
	default:
		return false, fmt.Errorf("%w: %s", ErrNoProbe, e.ID)
	}
}
