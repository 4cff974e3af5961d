package esphome

import "errors"

// Sentinel errors for the native API server.
var (
	// ErrFraming indicates a malformed or truncated frame. The connection
	// it was read from is closed; other connections are unaffected.
	ErrFraming = errors.New("esphome: framing error")

	// ErrBadPreamble indicates the reserved first byte was not 0x00. An
	// encrypted (noise) client sends 0x01 here.
	ErrBadPreamble = errors.New("esphome: unexpected frame preamble")

	// ErrFrameTooLarge indicates a declared payload length over MaxPayloadSize.
	ErrFrameTooLarge = errors.New("esphome: frame payload too large")

	// ErrDecode indicates a payload that is not a valid protobuf message.
	ErrDecode = errors.New("esphome: message decode failed")

	// ErrBind indicates the listening socket could not be opened.
	ErrBind = errors.New("esphome: bind failed")

	// ErrAlreadyStarted is returned by Start on a running or stopped server.
	ErrAlreadyStarted = errors.New("esphome: server already started")

	// ErrNotRunning is returned by HealthCheck when the server is not listening.
	ErrNotRunning = errors.New("esphome: server not running")

	// ErrConnectionClosed is returned when writing to a closed connection.
	ErrConnectionClosed = errors.New("esphome: connection closed")
)
