package entity

import (
	"sync"

	"github.com/nerrad567/panelnode/internal/actions"
)

// State holds the few values the panel cannot re-read from the host:
// the screen power it was last told to apply and the backlight the
// controller last asked for. The backlight request resolves partial
// commands and the off/on distinction; reports still probe the level.
// Everything else is probed at report time.
type State struct {
	mu sync.RWMutex

	screenOn bool

	lightOn         bool
	lightOnKnown    bool
	brightness      float64
	brightnessKnown bool

	muted            bool
	volumeBeforeMute float64
}

// Light is a snapshot of the backlight values held by State.
type Light struct {
	On              bool
	OnKnown         bool
	Brightness      float64
	BrightnessKnown bool
}

// NewState returns a State with the screen assumed on.
func NewState() *State {
	return &State{screenOn: true}
}

// ScreenOn returns the last commanded screen power.
func (s *State) ScreenOn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.screenOn
}

// SetScreenOn records a screen power command.
func (s *State) SetScreenOn(on bool) {
	s.mu.Lock()
	s.screenOn = on
	s.mu.Unlock()
}

// Light returns the backlight snapshot.
func (s *State) Light() Light {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Light{
		On:              s.lightOn,
		OnKnown:         s.lightOnKnown,
		Brightness:      s.brightness,
		BrightnessKnown: s.brightnessKnown,
	}
}

// SetLight records a resolved backlight state.
func (s *State) SetLight(on bool, brightness float64) {
	s.mu.Lock()
	s.lightOn = on
	s.lightOnKnown = true
	s.brightness = brightness
	s.brightnessKnown = true
	s.mu.Unlock()
}

// LightRequest is a backlight change where either half may be absent.
type LightRequest struct {
	HasState      bool
	State         bool
	HasBrightness bool
	Brightness    float64
}

// ResolveLight fills the absent halves of req from what is already known
// and records the result.
//
// Missing brightness falls back to the stored brightness, then to
// currentFraction (the host's backlight probe), then to full. Missing state
// falls back to the stored state, then to on. Turning the light off keeps
// the stored brightness so a later state-only "on" restores it.
func (s *State) ResolveLight(req LightRequest, currentFraction func() (float64, error)) (on bool, brightness float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case req.HasBrightness:
		brightness = actions.ClampFraction(req.Brightness)
	case s.brightnessKnown:
		brightness = s.brightness
	default:
		brightness = 1
		if currentFraction != nil {
			if f, err := currentFraction(); err == nil {
				brightness = actions.ClampFraction(f)
			}
		}
	}

	switch {
	case req.HasState:
		on = req.State
	case s.lightOnKnown:
		on = s.lightOn
	default:
		on = true
	}

	s.lightOn = on
	s.lightOnKnown = true
	s.brightness = brightness
	s.brightnessKnown = true

	return on, brightness
}

// Muted reports whether the media player was muted by a controller.
func (s *State) Muted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.muted
}

// Mute records the volume to restore on Unmute. Muting twice keeps the
// first saved volume.
func (s *State) Mute(currentVolume float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.muted {
		return
	}
	s.muted = true
	s.volumeBeforeMute = actions.ClampFraction(currentVolume)
}

// Unmute clears the mute flag and returns the volume saved by Mute.
// ok is false when the player was not muted.
func (s *State) Unmute() (restore float64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.muted {
		return 0, false
	}
	s.muted = false
	return s.volumeBeforeMute, true
}

// ClearMute forgets a mute without restoring, used when a controller sets
// an explicit volume.
func (s *State) ClearMute() {
	s.mu.Lock()
	s.muted = false
	s.mu.Unlock()
}
