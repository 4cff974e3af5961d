//go:build linux

package host

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/nerrad567/panelnode/internal/actions"
	"github.com/nerrad567/panelnode/internal/process"
)

func (h *Host) BatteryPercent() (float64, error) {
	v, err := readSysfsInt(filepath.Join(h.cfg.BatteryPath, "capacity"))
	if err != nil {
		return 0, err
	}
	return float64(v), nil
}

// StorageUsedPercent reports usage of the data path's filesystem the way
// df does: used / (used + available to unprivileged users).
func (h *Host) StorageUsedPercent() (float64, error) {
	var st unix.Statfs_t
	if err := h.statfs(h.cfg.DataPath, &st); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", h.cfg.DataPath, err)
	}
	used := float64(st.Blocks - st.Bfree)
	avail := float64(st.Bavail)
	if used+avail == 0 {
		return 0, fmt.Errorf("%w: empty filesystem at %s", actions.ErrUnavailable, h.cfg.DataPath)
	}
	return used * 100 / (used + avail), nil
}

func (h *Host) RAMUsedPercent() (float64, error) {
	var info unix.Sysinfo_t
	if err := h.sysinfo(&info); err != nil {
		return 0, fmt.Errorf("sysinfo: %w", err)
	}
	total := float64(info.Totalram)
	if total == 0 {
		return 0, fmt.Errorf("%w: sysinfo reports no RAM", actions.ErrUnavailable)
	}
	free := float64(info.Freeram) + float64(info.Bufferram)
	return (total - free) * 100 / total, nil
}

func (h *Host) UptimeMinutes() (float64, error) {
	var info unix.Sysinfo_t
	if err := h.sysinfo(&info); err != nil {
		return 0, fmt.Errorf("sysinfo: %w", err)
	}
	return float64(info.Uptime) / 60, nil
}

// IsScreenLocked runs the kiosk status hook when one is configured (exit
// zero means locked), otherwise reports the last commanded lock.
func (h *Host) IsScreenLocked() (bool, error) {
	if strings.TrimSpace(h.cfg.Hooks.KioskStatus) != "" {
		return h.hooks.check(context.Background(), "kiosk_status", h.cfg.Hooks.KioskStatus)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.kioskLocked, nil
}

func (h *Host) CurrentBacklightFraction() (float64, error) {
	maxLevel, err := readSysfsInt(filepath.Join(h.cfg.BacklightPath, "max_brightness"))
	if err != nil {
		return 0, err
	}
	if maxLevel <= 0 {
		return 0, fmt.Errorf("%w: max_brightness is %d", actions.ErrUnavailable, maxLevel)
	}
	cur, err := readSysfsInt(filepath.Join(h.cfg.BacklightPath, "brightness"))
	if err != nil {
		return 0, err
	}
	return actions.ClampFraction(float64(cur) / float64(maxLevel)), nil
}

func (h *Host) MediaState() actions.MediaState {
	switch h.media.Status() {
	case process.StatusRunning:
		return actions.MediaPlaying
	case process.StatusPaused:
		return actions.MediaPaused
	default:
		return actions.MediaIdle
	}
}

// Volume returns the last volume set through the hook.
func (h *Host) Volume() (float64, error) {
	if strings.TrimSpace(h.cfg.Hooks.SetVolume) == "" {
		return 0, fmt.Errorf("%w: no set_volume hook configured", actions.ErrUnavailable)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.volume, nil
}
