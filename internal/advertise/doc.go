// Package advertise announces the native API server on the local network
// with mDNS/DNS-SD, so controllers discover the panel without a manual
// address.
//
// The announcement uses the service type controllers browse for native
// API devices, "_esphomelib._tcp", and carries the identity the device
// info reply reports.
package advertise
