//go:build linux

package host

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/nerrad567/panelnode/internal/actions"
	"github.com/nerrad567/panelnode/internal/infrastructure/config"
	"github.com/nerrad567/panelnode/internal/infrastructure/logging"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return strings.TrimSpace(string(data))
}

// newTestHost builds a host over fake sysfs directories.
func newTestHost(t *testing.T, hooks config.HooksConfig) (*Host, string) {
	t.Helper()
	root := t.TempDir()
	backlight := filepath.Join(root, "backlight")
	battery := filepath.Join(root, "battery")
	for _, dir := range []string{backlight, battery} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatal(err)
		}
	}
	writeFile(t, filepath.Join(backlight, "max_brightness"), "1023\n")
	writeFile(t, filepath.Join(backlight, "brightness"), "512\n")
	writeFile(t, filepath.Join(battery, "capacity"), "87\n")

	if hooks.Timeout == 0 {
		hooks.Timeout = 2
	}
	h := New(config.HostConfig{
		BacklightPath: backlight,
		BatteryPath:   battery,
		DataPath:      root,
		Hooks:         hooks,
		Media: config.MediaConfig{
			Binary:          "/bin/sleep",
			GracefulTimeout: 2,
		},
	}, logging.Discard())
	t.Cleanup(func() { h.Close() })
	return h, root
}

func TestBacklight(t *testing.T) {
	h, root := newTestHost(t, config.HooksConfig{})

	f, err := h.CurrentBacklightFraction()
	if err != nil {
		t.Fatalf("CurrentBacklightFraction() error = %v", err)
	}
	if f < 0.5 || f > 0.501 {
		t.Errorf("CurrentBacklightFraction() = %v, want ~0.5", f)
	}

	tests := []struct {
		level uint8
		want  string
	}{
		{255, "1023"},
		{0, "0"},
		{191, "766"},
	}
	for _, tt := range tests {
		if err := h.SetBacklightBrightness(context.Background(), tt.level); err != nil {
			t.Fatalf("SetBacklightBrightness(%d) error = %v", tt.level, err)
		}
		if got := readFile(t, filepath.Join(root, "backlight", "brightness")); got != tt.want {
			t.Errorf("brightness after level %d = %s, want %s", tt.level, got, tt.want)
		}
	}
}

func TestBacklight_Missing(t *testing.T) {
	h, root := newTestHost(t, config.HooksConfig{})
	os.RemoveAll(filepath.Join(root, "backlight"))

	if _, err := h.CurrentBacklightFraction(); !errors.Is(err, actions.ErrUnavailable) {
		t.Errorf("CurrentBacklightFraction() error = %v, want ErrUnavailable", err)
	}
	if err := h.SetBacklightBrightness(context.Background(), 10); !errors.Is(err, actions.ErrUnavailable) {
		t.Errorf("SetBacklightBrightness() error = %v, want ErrUnavailable", err)
	}
}

func TestBatteryPercent(t *testing.T) {
	h, root := newTestHost(t, config.HooksConfig{})

	if v, err := h.BatteryPercent(); err != nil || v != 87 {
		t.Errorf("BatteryPercent() = %v, %v, want 87", v, err)
	}

	writeFile(t, filepath.Join(root, "battery", "capacity"), "full")
	if _, err := h.BatteryPercent(); err == nil {
		t.Error("BatteryPercent() with garbage capacity: expected error")
	}
}

func TestStorageAndMemory(t *testing.T) {
	h, _ := newTestHost(t, config.HooksConfig{})
	h.statfs = func(_ string, st *unix.Statfs_t) error {
		st.Blocks = 1000
		st.Bfree = 300
		st.Bavail = 300
		return nil
	}
	h.sysinfo = func(info *unix.Sysinfo_t) error {
		info.Totalram = 1000
		info.Freeram = 200
		info.Bufferram = 250
		info.Uptime = 7200
		return nil
	}

	if v, err := h.StorageUsedPercent(); err != nil || v != 70 {
		t.Errorf("StorageUsedPercent() = %v, %v, want 70", v, err)
	}
	if v, err := h.RAMUsedPercent(); err != nil || v != 55 {
		t.Errorf("RAMUsedPercent() = %v, %v, want 55", v, err)
	}
	if v, err := h.UptimeMinutes(); err != nil || v != 120 {
		t.Errorf("UptimeMinutes() = %v, %v, want 120", v, err)
	}

	h.sysinfo = func(*unix.Sysinfo_t) error { return unix.EPERM }
	if _, err := h.RAMUsedPercent(); err == nil {
		t.Error("RAMUsedPercent() with failing sysinfo: expected error")
	}
}

func TestStorage_RealFilesystem(t *testing.T) {
	h, _ := newTestHost(t, config.HooksConfig{})

	v, err := h.StorageUsedPercent()
	if err != nil {
		t.Fatalf("StorageUsedPercent() error = %v", err)
	}
	if v < 0 || v > 100 {
		t.Errorf("StorageUsedPercent() = %v, want 0..100", v)
	}
}

func TestHooks(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "out")

	h, _ := newTestHost(t, config.HooksConfig{
		ScreenOn:  "echo on > " + marker,
		ScreenOff: "exit 1",
		KioskOn:   "true",
		KioskOff:  "true",
		Reload:    "exit 126",
		ZoomIn:    "sleep 5",
		SetVolume: `echo "$PANELNODE_VALUE" > ` + marker,
	})
	h.hooks.timeout = 200 * time.Millisecond
	ctx := context.Background()

	if err := h.SetScreenPower(ctx, true); err != nil {
		t.Fatalf("SetScreenPower(true) error = %v", err)
	}
	if got := readFile(t, marker); got != "on" {
		t.Errorf("screen_on hook output = %q", got)
	}

	if err := h.SetScreenPower(ctx, false); err == nil {
		t.Error("failing hook: expected error")
	}
	if err := h.ReloadContent(ctx); !errors.Is(err, actions.ErrDenied) {
		t.Errorf("ReloadContent() error = %v, want ErrDenied", err)
	}
	if err := h.ZoomIn(ctx); err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Errorf("ZoomIn() error = %v, want timeout", err)
	}
	if err := h.ZoomOut(ctx); !errors.Is(err, actions.ErrUnavailable) {
		t.Errorf("ZoomOut() error = %v, want ErrUnavailable", err)
	}

	if err := h.SetVolume(ctx, 0.42); err != nil {
		t.Fatalf("SetVolume() error = %v", err)
	}
	if got := readFile(t, marker); got != "42" {
		t.Errorf("volume hook saw %q, want 42", got)
	}
	if v, err := h.Volume(); err != nil || v != 0.42 {
		t.Errorf("Volume() = %v, %v, want 0.42", v, err)
	}

	if locked, _ := h.IsScreenLocked(); locked {
		t.Error("IsScreenLocked() = true before any command")
	}
	if err := h.SetKioskLock(ctx, true); err != nil {
		t.Fatalf("SetKioskLock() error = %v", err)
	}
	if locked, _ := h.IsScreenLocked(); !locked {
		t.Error("IsScreenLocked() = false after lock")
	}
}

func TestIsScreenLocked_StatusHook(t *testing.T) {
	tests := []struct {
		script string
		want   bool
	}{
		{"true", true},
		{"exit 1", false},
	}
	for _, tt := range tests {
		h, _ := newTestHost(t, config.HooksConfig{KioskStatus: tt.script})
		got, err := h.IsScreenLocked()
		if err != nil || got != tt.want {
			t.Errorf("IsScreenLocked() with %q = %v, %v, want %v", tt.script, got, err, tt.want)
		}
	}
}

func TestVolume_NoHook(t *testing.T) {
	h, _ := newTestHost(t, config.HooksConfig{})
	if _, err := h.Volume(); !errors.Is(err, actions.ErrUnavailable) {
		t.Errorf("Volume() error = %v, want ErrUnavailable", err)
	}
	if err := h.SetVolume(context.Background(), 0.5); !errors.Is(err, actions.ErrUnavailable) {
		t.Errorf("SetVolume() error = %v, want ErrUnavailable", err)
	}
}

func TestMedia(t *testing.T) {
	h, _ := newTestHost(t, config.HooksConfig{})
	ctx := context.Background()

	if got := h.MediaState(); got != actions.MediaIdle {
		t.Fatalf("initial MediaState() = %v", got)
	}
	// Play with nothing queued is a no-op.
	if err := h.MediaTransport(ctx, actions.MediaPlay); err != nil {
		t.Fatalf("MediaTransport(play) error = %v", err)
	}

	// sleep takes the "URL" as its duration.
	if err := h.PlayMediaURL(ctx, "60"); err != nil {
		t.Fatalf("PlayMediaURL() error = %v", err)
	}
	if got := h.MediaState(); got != actions.MediaPlaying {
		t.Errorf("MediaState() = %v, want playing", got)
	}

	if err := h.MediaTransport(ctx, actions.MediaPause); err != nil {
		t.Fatalf("MediaTransport(pause) error = %v", err)
	}
	if got := h.MediaState(); got != actions.MediaPaused {
		t.Errorf("MediaState() = %v, want paused", got)
	}

	if err := h.MediaTransport(ctx, actions.MediaPlay); err != nil {
		t.Fatalf("MediaTransport(play) error = %v", err)
	}
	if got := h.MediaState(); got != actions.MediaPlaying {
		t.Errorf("MediaState() = %v, want playing", got)
	}

	if err := h.MediaTransport(ctx, actions.MediaStop); err != nil {
		t.Fatalf("MediaTransport(stop) error = %v", err)
	}
	if got := h.MediaState(); got != actions.MediaIdle {
		t.Errorf("MediaState() = %v, want idle", got)
	}

	// Play after stop replays the last URL.
	if err := h.MediaTransport(ctx, actions.MediaPlay); err != nil {
		t.Fatalf("MediaTransport(play) error = %v", err)
	}
	if got := h.MediaState(); got != actions.MediaPlaying {
		t.Errorf("MediaState() after replay = %v, want playing", got)
	}

	if err := h.MediaTransport(ctx, actions.MediaCommand(99)); !errors.Is(err, actions.ErrNotSupported) {
		t.Errorf("unknown media command error = %v, want ErrNotSupported", err)
	}
}

func TestMedia_NoPlayer(t *testing.T) {
	h := New(config.HostConfig{}, logging.Discard())
	if err := h.PlayMediaURL(context.Background(), "http://x/a.mp3"); !errors.Is(err, actions.ErrUnavailable) {
		t.Errorf("PlayMediaURL() error = %v, want ErrUnavailable", err)
	}
}
