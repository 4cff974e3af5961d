package actions

import (
	"context"
	"math"
)

// Actions changes something on the host. Implementations must be safe for
// concurrent use: command handlers from several controller connections and
// the MQTT bridge may call them at the same time.
type Actions interface {
	SetScreenPower(ctx context.Context, on bool) error
	SetKioskLock(ctx context.Context, locked bool) error

	// SetBacklightBrightness sets the absolute backlight level, 0..255.
	SetBacklightBrightness(ctx context.Context, level uint8) error

	ReloadContent(ctx context.Context) error
	ZoomIn(ctx context.Context) error
	ZoomOut(ctx context.Context) error

	PlayMediaURL(ctx context.Context, url string) error
	MediaTransport(ctx context.Context, cmd MediaCommand) error

	// SetVolume sets the output volume as a fraction, 0.0..1.0.
	SetVolume(ctx context.Context, fraction float64) error
}

// Probes reads live host values. Every probe is called on each broadcast
// tick and must return promptly; none may block indefinitely.
type Probes interface {
	BatteryPercent() (float64, error)
	StorageUsedPercent() (float64, error)
	RAMUsedPercent() (float64, error)
	UptimeMinutes() (float64, error)
	IsScreenLocked() (bool, error)

	// CurrentBacklightFraction returns the backlight level as 0.0..1.0.
	CurrentBacklightFraction() (float64, error)

	MediaState() MediaState
	Volume() (float64, error)
}

// Surface is everything the dispatcher and bridge need from the host.
type Surface interface {
	Actions
	Probes
}

// MediaCommand is a transport command for the media player.
type MediaCommand int

const (
	MediaPlay MediaCommand = iota
	MediaPause
	MediaStop
)

func (c MediaCommand) String() string {
	switch c {
	case MediaPlay:
		return "play"
	case MediaPause:
		return "pause"
	case MediaStop:
		return "stop"
	default:
		return "unknown"
	}
}

// MediaState is the media player's playback state.
type MediaState int

const (
	MediaIdle MediaState = iota
	MediaPlaying
	MediaPaused
)

func (s MediaState) String() string {
	switch s {
	case MediaPlaying:
		return "playing"
	case MediaPaused:
		return "paused"
	default:
		return "idle"
	}
}

// ClampFraction limits v to 0.0..1.0.
func ClampFraction(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// LevelFromFraction converts 0.0..1.0 to an absolute 0..255 level, rounding
// to nearest.
func LevelFromFraction(f float64) uint8 {
	return uint8(math.Round(ClampFraction(f) * 255))
}

// LevelFromPercent converts a 0..100 percentage to a 0..255 level,
// round(pct*2.55), clamped. Computed as pct*255/100 so that whole
// percentages round exactly.
func LevelFromPercent(pct float64) uint8 {
	v := math.Round(pct * 255 / 100)
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return uint8(v)
	}
}
