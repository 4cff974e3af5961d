package entity

import (
	"errors"
	"testing"
)

func TestResolveLight(t *testing.T) {
	probe := func(v float64, err error) func() (float64, error) {
		return func() (float64, error) { return v, err }
	}

	tests := []struct {
		name           string
		prior          *Light
		req            LightRequest
		probe          func() (float64, error)
		wantOn         bool
		wantBrightness float64
	}{
		{
			name:           "state only keeps last brightness",
			prior:          &Light{On: false, Brightness: 0.4},
			req:            LightRequest{HasState: true, State: true},
			wantOn:         true,
			wantBrightness: 0.4,
		},
		{
			name:           "brightness only defaults to on",
			req:            LightRequest{HasBrightness: true, Brightness: 0.6},
			wantOn:         true,
			wantBrightness: 0.6,
		},
		{
			name:           "brightness only keeps prior state",
			prior:          &Light{On: false, Brightness: 0.2},
			req:            LightRequest{HasBrightness: true, Brightness: 0.9},
			wantOn:         false,
			wantBrightness: 0.9,
		},
		{
			name:           "state only with nothing stored reads probe",
			req:            LightRequest{HasState: true, State: true},
			probe:          probe(0.25, nil),
			wantOn:         true,
			wantBrightness: 0.25,
		},
		{
			name:           "probe failure falls back to full",
			req:            LightRequest{HasState: true, State: true},
			probe:          probe(0, errors.New("no backlight")),
			wantOn:         true,
			wantBrightness: 1,
		},
		{
			name:           "brightness clamped",
			req:            LightRequest{HasBrightness: true, Brightness: 1.7},
			wantOn:         true,
			wantBrightness: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewState()
			if tt.prior != nil {
				s.SetLight(tt.prior.On, tt.prior.Brightness)
			}

			on, b := s.ResolveLight(tt.req, tt.probe)
			if on != tt.wantOn || b != tt.wantBrightness {
				t.Errorf("ResolveLight() = (%v, %v), want (%v, %v)", on, b, tt.wantOn, tt.wantBrightness)
			}

			stored := s.Light()
			if !stored.OnKnown || !stored.BrightnessKnown || stored.On != on || stored.Brightness != b {
				t.Errorf("stored light = %+v, want resolved values", stored)
			}
		})
	}
}

func TestScreenState(t *testing.T) {
	s := NewState()
	if !s.ScreenOn() {
		t.Error("screen should start on")
	}
	s.SetScreenOn(false)
	if s.ScreenOn() {
		t.Error("SetScreenOn(false) not recorded")
	}
}

func TestMuteRestoresVolume(t *testing.T) {
	s := NewState()

	if _, ok := s.Unmute(); ok {
		t.Fatal("Unmute() on unmuted state reported ok")
	}

	s.Mute(0.6)
	s.Mute(0) // second mute must not overwrite the saved volume
	if !s.Muted() {
		t.Fatal("Muted() = false after Mute")
	}

	restore, ok := s.Unmute()
	if !ok || restore != 0.6 {
		t.Errorf("Unmute() = %v, %v, want 0.6, true", restore, ok)
	}
	if s.Muted() {
		t.Error("Muted() = true after Unmute")
	}

	s.Mute(0.3)
	s.ClearMute()
	if s.Muted() {
		t.Error("Muted() = true after ClearMute")
	}
}
