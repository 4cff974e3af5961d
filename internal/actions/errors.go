package actions

import "errors"

// Errors returned by Actions implementations. Callers log them and carry
// on; none of them is ever sent to a controller.
var (
	// ErrUnavailable means the host has no way to perform the action
	// (missing sysfs node, unconfigured hook).
	ErrUnavailable = errors.New("actions: unavailable on this host")

	// ErrDenied means the host refused the change (permissions).
	ErrDenied = errors.New("actions: denied")

	// ErrNotSupported means the command value is outside what the host understands.
	ErrNotSupported = errors.New("actions: not supported")
)
