package hass

import "errors"

// Sentinel errors for the discovery bridge.
var (
	// ErrUnknownCommand indicates a control payload outside the grammar.
	ErrUnknownCommand = errors.New("hass: unknown command")

	// ErrInvalidValue indicates a command whose argument does not parse.
	ErrInvalidValue = errors.New("hass: invalid command value")

	// ErrInvalidOptions indicates missing required bridge options.
	ErrInvalidOptions = errors.New("hass: invalid bridge options")
)
