package process

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"strings"
	"sync"
	"syscall"
	"time"
)

// Status represents the current state of the managed process.
type Status string

const (
	StatusStopped Status = "stopped"
	StatusRunning Status = "running"
	StatusPaused  Status = "paused"
)

const defaultGracefulTimeout = 3 * time.Second

// Config holds configuration for a managed program.
type Config struct {
	// Name is a human-readable identifier for logging.
	Name string

	// Binary is the path to the executable.
	Binary string

	// Args are passed before the per-run arguments given to Run.
	Args []string

	// Env are additional environment variables (key=value format).
	// If nil, inherits from parent process.
	Env []string

	// GracefulTimeout is how long to wait after SIGTERM before SIGKILL.
	GracefulTimeout time.Duration

	// OnExit is called when a run ends by itself. err is the wait error,
	// nil for a zero exit status. Not called for runs ended by Stop.
	OnExit func(err error)
}

// Logger defines the logging interface for the process manager.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Manager runs at most one instance of a program.
type Manager struct {
	config Config
	logger Logger

	// runMu serialises Run so a replacement never overlaps its predecessor.
	runMu sync.Mutex

	mu            sync.Mutex
	cmd           *exec.Cmd
	done          chan struct{}
	status        Status
	stopRequested bool
	lastError     error
	startTime     time.Time
	runs          int
}

// NewManager creates a new process manager with the given configuration.
func NewManager(cfg Config) *Manager {
	if cfg.GracefulTimeout <= 0 {
		cfg.GracefulTimeout = defaultGracefulTimeout
	}
	return &Manager{
		config: cfg,
		logger: noopLogger{},
		status: StatusStopped,
	}
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger Logger) {
	m.logger = logger
}

// Run starts the program with the configured arguments followed by extra.
// A run already in progress is stopped first. Run does not wait for the
// program to finish.
func (m *Manager) Run(extra ...string) error {
	if m.config.Binary == "" {
		return ErrNoBinary
	}

	m.runMu.Lock()
	defer m.runMu.Unlock()

	if err := m.Stop(); err != nil {
		return err
	}

	args := append(slices.Clone(m.config.Args), extra...)
	cmd := exec.Command(m.config.Binary, args...) //nolint:gosec // binary comes from operator config

	// Own process group, so signals reach any helpers the program forks.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if m.config.Env != nil {
		cmd.Env = append(os.Environ(), m.config.Env...)
	}
	cmd.Stdout = outputLogger{m: m, stream: "stdout"}
	cmd.Stderr = outputLogger{m: m, stream: "stderr"}
	cmd.WaitDelay = m.config.GracefulTimeout

	if err := cmd.Start(); err != nil {
		m.mu.Lock()
		m.lastError = err
		m.mu.Unlock()
		return fmt.Errorf("starting %s: %w", m.config.Name, err)
	}

	done := make(chan struct{})
	m.mu.Lock()
	m.cmd = cmd
	m.done = done
	m.status = StatusRunning
	m.stopRequested = false
	m.startTime = time.Now()
	m.runs++
	m.mu.Unlock()

	m.logger.Info("process started",
		"name", m.config.Name,
		"pid", cmd.Process.Pid,
		"args", args,
	)

	go m.wait(cmd, done)
	return nil
}

// wait reaps one run and resets the manager if that run is still current.
func (m *Manager) wait(cmd *exec.Cmd, done chan struct{}) {
	err := cmd.Wait()

	m.mu.Lock()
	requested := m.stopRequested
	if m.cmd == cmd {
		m.cmd = nil
		m.status = StatusStopped
		if !requested {
			m.lastError = err
		}
	}
	m.mu.Unlock()
	close(done)

	if requested {
		m.logger.Debug("process stopped as requested", "name", m.config.Name)
		return
	}
	if err != nil {
		m.logger.Warn("process exited with error", "name", m.config.Name, "error", err)
	} else {
		m.logger.Debug("process finished", "name", m.config.Name)
	}
	if m.config.OnExit != nil {
		m.config.OnExit(err)
	}
}

// Stop terminates the current run, if any, and waits for it to exit.
// It sends SIGTERM to the process group and SIGKILL after GracefulTimeout.
func (m *Manager) Stop() error {
	m.mu.Lock()
	cmd, done := m.cmd, m.done
	if cmd == nil {
		m.mu.Unlock()
		return nil
	}
	m.stopRequested = true
	paused := m.status == StatusPaused
	m.mu.Unlock()

	pid := cmd.Process.Pid
	m.logger.Debug("stopping process", "name", m.config.Name, "pid", pid)

	if err := signalGroup(pid, syscall.SIGTERM); err != nil {
		m.logger.Warn("failed to send SIGTERM to process group", "name", m.config.Name, "error", err)
	}
	// A stopped group only acts on SIGTERM once continued.
	if paused {
		_ = signalGroup(pid, syscall.SIGCONT) //nolint:errcheck // best effort, SIGKILL follows
	}

	select {
	case <-done:
		return nil
	case <-time.After(m.config.GracefulTimeout):
		m.logger.Warn("graceful shutdown timeout, sending SIGKILL",
			"name", m.config.Name,
			"timeout", m.config.GracefulTimeout,
		)
	}

	if err := signalGroup(pid, syscall.SIGKILL); err != nil {
		return fmt.Errorf("killing process group %s: %w", m.config.Name, err)
	}
	<-done
	return nil
}

// Pause suspends the current run with SIGSTOP. Pausing a paused run does
// nothing.
func (m *Manager) Pause() error {
	return m.transition(StatusRunning, StatusPaused, syscall.SIGSTOP)
}

// Resume continues a paused run with SIGCONT. Resuming a running program
// does nothing.
func (m *Manager) Resume() error {
	return m.transition(StatusPaused, StatusRunning, syscall.SIGCONT)
}

func (m *Manager) transition(from, to Status, sig syscall.Signal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cmd == nil {
		return ErrNotRunning
	}
	if m.status != from {
		return nil
	}
	if err := signalGroup(m.cmd.Process.Pid, sig); err != nil {
		return fmt.Errorf("signalling %s: %w", m.config.Name, err)
	}
	m.status = to
	return nil
}

// signalGroup signals the process group led by pid. A group that has
// already exited is not an error.
func signalGroup(pid int, sig syscall.Signal) error {
	if err := syscall.Kill(-pid, sig); err != nil && !errors.Is(err, syscall.ESRCH) {
		return err
	}
	return nil
}

// outputLogger forwards program output to the debug log.
type outputLogger struct {
	m      *Manager
	stream string
}

func (w outputLogger) Write(p []byte) (int, error) {
	w.m.logger.Debug("process output",
		"name", w.m.config.Name,
		"stream", w.stream,
		"output", strings.TrimRight(string(p), "\n"),
	)
	return len(p), nil
}

// Status returns the current status of the managed process.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// IsRunning returns true while a run is in progress, paused or not.
func (m *Manager) IsRunning() bool {
	return m.Status() != StatusStopped
}

// LastError returns the error the last self-ended run exited with.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastError
}

// PID returns the process ID, or 0 if not running.
func (m *Manager) PID() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cmd != nil && m.cmd.Process != nil {
		return m.cmd.Process.Pid
	}
	return 0
}

// Stats returns statistics about the managed process.
type Stats struct {
	Name      string        `json:"name"`
	Status    Status        `json:"status"`
	PID       int           `json:"pid,omitempty"`
	Uptime    time.Duration `json:"uptime,omitempty"`
	Runs      int           `json:"runs"`
	LastError string        `json:"last_error,omitempty"`
}

// Stats returns current statistics for the process.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := Stats{
		Name:   m.config.Name,
		Status: m.status,
		Runs:   m.runs,
	}
	if m.cmd != nil && m.cmd.Process != nil {
		stats.PID = m.cmd.Process.Pid
		stats.Uptime = time.Since(m.startTime)
	}
	if m.lastError != nil {
		stats.LastError = m.lastError.Error()
	}
	return stats
}
