//go:build linux

package host

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nerrad567/panelnode/internal/actions"
	"github.com/nerrad567/panelnode/internal/process"
)

func (h *Host) SetScreenPower(ctx context.Context, on bool) error {
	if on {
		return h.hooks.run(ctx, "screen_on", h.cfg.Hooks.ScreenOn, "")
	}
	return h.hooks.run(ctx, "screen_off", h.cfg.Hooks.ScreenOff, "")
}

func (h *Host) SetKioskLock(ctx context.Context, locked bool) error {
	script, name := h.cfg.Hooks.KioskOff, "kiosk_off"
	if locked {
		script, name = h.cfg.Hooks.KioskOn, "kiosk_on"
	}
	if err := h.hooks.run(ctx, name, script, ""); err != nil {
		return err
	}
	h.mu.Lock()
	h.kioskLocked = locked
	h.mu.Unlock()
	return nil
}

// SetBacklightBrightness scales level 0..255 onto the device's
// max_brightness and writes it.
func (h *Host) SetBacklightBrightness(_ context.Context, level uint8) error {
	maxLevel, err := readSysfsInt(filepath.Join(h.cfg.BacklightPath, "max_brightness"))
	if err != nil {
		return err
	}
	raw := int64(math.Round(float64(level) * float64(maxLevel) / 255))
	return writeSysfs(filepath.Join(h.cfg.BacklightPath, "brightness"), strconv.FormatInt(raw, 10))
}

func (h *Host) ReloadContent(ctx context.Context) error {
	return h.hooks.run(ctx, "reload", h.cfg.Hooks.Reload, "")
}

func (h *Host) ZoomIn(ctx context.Context) error {
	return h.hooks.run(ctx, "zoom_in", h.cfg.Hooks.ZoomIn, "")
}

func (h *Host) ZoomOut(ctx context.Context) error {
	return h.hooks.run(ctx, "zoom_out", h.cfg.Hooks.ZoomOut, "")
}

// PlayMediaURL replaces whatever is playing with url.
func (h *Host) PlayMediaURL(_ context.Context, url string) error {
	if err := h.media.Run(url); err != nil {
		if errors.Is(err, process.ErrNoBinary) {
			return fmt.Errorf("%w: no media player configured", actions.ErrUnavailable)
		}
		return err
	}
	h.mu.Lock()
	h.lastMediaURL = url
	h.mu.Unlock()
	return nil
}

// MediaTransport maps play to resume (or replay of the last URL), pause to
// SIGSTOP and stop to terminating the player.
func (h *Host) MediaTransport(ctx context.Context, cmd actions.MediaCommand) error {
	switch cmd {
	case actions.MediaPlay:
		if h.media.Status() == process.StatusPaused {
			return h.media.Resume()
		}
		if h.media.IsRunning() {
			return nil
		}
		h.mu.Lock()
		url := h.lastMediaURL
		h.mu.Unlock()
		if url == "" {
			return nil
		}
		return h.PlayMediaURL(ctx, url)

	case actions.MediaPause:
		if err := h.media.Pause(); err != nil && !errors.Is(err, process.ErrNotRunning) {
			return err
		}
		return nil

	case actions.MediaStop:
		return h.media.Stop()

	default:
		return fmt.Errorf("%w: media command %d", actions.ErrNotSupported, cmd)
	}
}

// SetVolume runs the volume hook with the percentage in PANELNODE_VALUE.
func (h *Host) SetVolume(ctx context.Context, fraction float64) error {
	fraction = actions.ClampFraction(fraction)
	pct := strconv.Itoa(int(math.Round(fraction * 100)))
	if err := h.hooks.run(ctx, "set_volume", h.cfg.Hooks.SetVolume, pct); err != nil {
		return err
	}
	h.mu.Lock()
	h.volume = fraction
	h.mu.Unlock()
	return nil
}

func readSysfsInt(path string) (int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, sysfsError(path, err)
	}
	v, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", path, err)
	}
	return v, nil
}

func writeSysfs(path, value string) error {
	// sysfs attributes exist already; never create one.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return sysfsError(path, err)
	}
	if _, err := f.WriteString(value); err != nil {
		f.Close()
		return sysfsError(path, err)
	}
	return f.Close()
}

func sysfsError(path string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s", actions.ErrUnavailable, path)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %s", actions.ErrDenied, path)
	default:
		return fmt.Errorf("accessing %s: %w", path, err)
	}
}
