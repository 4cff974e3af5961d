// Package entity holds the panel's fixed entity catalog and everything
// needed to report its live state.
//
// A Registry is built once at startup and never changes. State keeps the
// few values that only exist as commands (screen power, requested
// backlight). A Sampler combines both with the host probes into Readings;
// sensor values are re-read on every call, never cached.
package entity
