//go:build linux

package host

import (
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/nerrad567/panelnode/internal/actions"
	"github.com/nerrad567/panelnode/internal/infrastructure/config"
	"github.com/nerrad567/panelnode/internal/process"
)

const (
	defaultHookTimeout = 5 * time.Second

	// defaultVolume is reported until the first SetVolume.
	defaultVolume = 1.0
)

// Logger is the logging interface used by the host.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Host is the Linux action surface. Safe for concurrent use.
type Host struct {
	cfg    config.HostConfig
	logger Logger
	hooks  *hookRunner
	media  *process.Manager

	statfs  func(path string, buf *unix.Statfs_t) error
	sysinfo func(info *unix.Sysinfo_t) error

	mu           sync.Mutex
	kioskLocked  bool
	volume       float64
	lastMediaURL string
}

var _ actions.Surface = (*Host)(nil)

// New creates the host surface. The media player is not started until a
// URL is played.
func New(cfg config.HostConfig, logger Logger) *Host {
	timeout := time.Duration(cfg.Hooks.Timeout) * time.Second
	if timeout <= 0 {
		timeout = defaultHookTimeout
	}

	media := process.NewManager(process.Config{
		Name:            "media",
		Binary:          cfg.Media.Binary,
		Args:            cfg.Media.Args,
		GracefulTimeout: time.Duration(cfg.Media.GracefulTimeout) * time.Second,
	})
	media.SetLogger(logger)

	return &Host{
		cfg:     cfg,
		logger:  logger,
		hooks:   &hookRunner{timeout: timeout, logger: logger},
		media:   media,
		statfs:  unix.Statfs,
		sysinfo: unix.Sysinfo,
		volume:  defaultVolume,
	}
}

// Close stops the media player if it is running.
func (h *Host) Close() error {
	return h.media.Stop()
}
