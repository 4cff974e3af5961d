package esphome

import (
	"github.com/nerrad567/panelnode/internal/actions"
	"github.com/nerrad567/panelnode/internal/entity"
	"github.com/nerrad567/panelnode/internal/infrastructure/metrics"
)

// StateFrames samples every stateful entity and returns one state frame
// per entity in listing order.
//
// A sensor whose probe failed is reported with missing_state set. A switch
// or light whose probe failed is left out of the dump rather than
// reported with a made-up value.
func (d *Dispatcher) StateFrames() []Frame {
	readings := d.sampler.Snapshot()
	frames := make([]Frame, 0, len(readings))

	for _, r := range readings {
		if r.Err != nil {
			d.logger.Debug("probe failed", "entity", r.Entity.ID, "error", r.Err)
			metrics.ProbeError(r.Entity.ID)
		}

		f, ok := stateFrame(r)
		if !ok {
			continue
		}
		frames = append(frames, f)
	}

	return frames
}

func stateFrame(r entity.Reading) (Frame, bool) {
	switch r.Entity.Kind {
	case entity.KindSwitch:
		if r.Err != nil {
			return Frame{}, false
		}
		m := SwitchStateResponse{Key: r.Entity.Key, State: r.On}
		return Frame{Type: TypeSwitchStateResponse, Payload: m.Marshal()}, true

	case entity.KindLight:
		if r.Err != nil {
			return Frame{}, false
		}
		m := LightStateResponse{
			Key:        r.Entity.Key,
			State:      r.On,
			Brightness: float32(r.Value),
			ColorMode:  uint32(entity.ColorModeBrightness),
		}
		return Frame{Type: TypeLightStateResponse, Payload: m.Marshal()}, true

	case entity.KindSensor:
		m := SensorStateResponse{Key: r.Entity.Key, State: float32(r.Value), MissingState: r.Err != nil}
		return Frame{Type: TypeSensorStateResponse, Payload: m.Marshal()}, true

	case entity.KindMediaPlayer:
		return mediaStateFrame(r), true
	}

	return Frame{}, false
}

func mediaStateFrame(r entity.Reading) Frame {
	m := MediaPlayerStateResponse{
		Key:    r.Entity.Key,
		State:  wireMediaState(r.Media),
		Volume: float32(r.Value),
		Muted:  r.Muted,
	}
	return Frame{Type: TypeMediaPlayerStateResponse, Payload: m.Marshal()}
}

func wireMediaState(s actions.MediaState) uint32 {
	switch s {
	case actions.MediaPlaying:
		return mediaStatePlaying
	case actions.MediaPaused:
		return mediaStatePaused
	default:
		return mediaStateIdle
	}
}
