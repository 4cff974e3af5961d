//go:build linux

package host

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/nerrad567/panelnode/internal/actions"
)

// hookValueEnv carries the command argument (volume percentage) to hooks.
const hookValueEnv = "PANELNODE_VALUE"

// hookRunner runs configured shell snippets with /bin/sh -c.
type hookRunner struct {
	timeout time.Duration
	logger  Logger
}

// run executes script with an optional value exported in the environment.
// An empty script means the action is not available on this host.
func (r *hookRunner) run(ctx context.Context, name, script, value string) error {
	if strings.TrimSpace(script) == "" {
		return fmt.Errorf("%w: no %s hook configured", actions.ErrUnavailable, name)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", script) //nolint:gosec // hooks come from operator config
	cmd.Env = append(cmd.Environ(), hookValueEnv+"="+value)
	// Kill the whole group on timeout so children of the shell go too.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = time.Second
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		r.logger.Debug("hook ran", "hook", name)
		return nil
	}
	if ctx.Err() != nil {
		return fmt.Errorf("hook %s timed out after %s: %w", name, r.timeout, ctx.Err())
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 126 {
		return fmt.Errorf("%w: hook %s: %s", actions.ErrDenied, name, strings.TrimSpace(stderr.String()))
	}
	return fmt.Errorf("hook %s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
}

// check runs script and reports whether it exited zero. Only failures to
// run at all are errors.
func (r *hookRunner) check(ctx context.Context, name, script string) (bool, error) {
	err := r.run(ctx, name, script, "")
	if err == nil {
		return true, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return false, nil
	}
	return false, err
}
