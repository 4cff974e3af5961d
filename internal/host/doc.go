// Package host implements the panel's action surface on a Linux host.
//
// Backlight and battery are read and written through sysfs, storage
// through statfs on the data path, and RAM and uptime through sysinfo.
// Screen power, kiosk lock, reload, zoom and volume have no portable
// kernel interface and run operator-configured shell hooks instead; an
// unconfigured hook makes its action report actions.ErrUnavailable.
// Media URLs are played by an external player managed by the process
// package.
package host
