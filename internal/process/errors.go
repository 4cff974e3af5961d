package process

import "errors"

var (
	// ErrNoBinary is returned by Run when no program is configured.
	ErrNoBinary = errors.New("process: no binary configured")

	// ErrNotRunning is returned by Pause and Resume when nothing runs.
	ErrNotRunning = errors.New("process: not running")
)
