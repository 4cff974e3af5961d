// Package actions defines the boundary between the protocol adapters and
// the host: the commands a controller can issue and the probes used to
// report live state.
//
// The esphome and hass bridges depend only on these interfaces. The host
// package provides the Linux implementation.
package actions
