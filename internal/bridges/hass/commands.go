package hass

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// CommandKind identifies one control-topic command word.
type CommandKind int

const (
	CmdScreenOn CommandKind = iota + 1
	CmdScreenOff
	CmdKioskOn
	CmdKioskOff
	CmdBrightness
	CmdReload
	CmdZoomIn
	CmdZoomOut
	CmdMediaPlay
	CmdMediaPause
	CmdMediaStop
	CmdVolume
	CmdPlayURL
)

// Command is one parsed control message.
type Command struct {
	Kind CommandKind

	// Percent is set for CmdBrightness and CmdVolume, clamped to 0..100.
	Percent float64

	// URL is set for CmdPlayURL.
	URL string
}

var commandWords = map[string]CommandKind{
	"SCREEN_ON":   CmdScreenOn,
	"SCREEN_OFF":  CmdScreenOff,
	"KIOSK_ON":    CmdKioskOn,
	"KIOSK_OFF":   CmdKioskOff,
	"RELOAD":      CmdReload,
	"ZOOM_IN":     CmdZoomIn,
	"ZOOM_OUT":    CmdZoomOut,
	"MEDIA_PLAY":  CmdMediaPlay,
	"MEDIA_PAUSE": CmdMediaPause,
	"MEDIA_STOP":  CmdMediaStop,
}

const (
	prefixBrightness = "BRIGHTNESS:"
	prefixVolume     = "VOLUME:"
	prefixPlayURL    = "PLAY_URL:"
)

// ParseCommand parses a control payload. Surrounding whitespace is
// ignored; words are case-sensitive.
//
//	RELOAD
//	SCREEN_ON | SCREEN_OFF | KIOSK_ON | KIOSK_OFF
//	BRIGHTNESS:<0-100>
//	ZOOM_IN | ZOOM_OUT
//	MEDIA_PLAY | MEDIA_PAUSE | MEDIA_STOP
//	VOLUME:<0-100>
//	PLAY_URL:<url>
func ParseCommand(payload string) (Command, error) {
	s := strings.TrimSpace(payload)

	if kind, ok := commandWords[s]; ok {
		return Command{Kind: kind}, nil
	}

	switch {
	case strings.HasPrefix(s, prefixBrightness):
		pct, err := parsePercent(strings.TrimPrefix(s, prefixBrightness))
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: CmdBrightness, Percent: pct}, nil

	case strings.HasPrefix(s, prefixVolume):
		pct, err := parsePercent(strings.TrimPrefix(s, prefixVolume))
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: CmdVolume, Percent: pct}, nil

	case strings.HasPrefix(s, prefixPlayURL):
		url := strings.TrimSpace(strings.TrimPrefix(s, prefixPlayURL))
		if url == "" {
			return Command{}, fmt.Errorf("%w: empty url", ErrInvalidValue)
		}
		return Command{Kind: CmdPlayURL, URL: url}, nil
	}

	return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, s)
}

func parsePercent(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidValue, s)
	}
	return math.Max(0, math.Min(100, v)), nil
}
