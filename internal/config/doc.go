// Package config loads and validates the shadowsync session
// configuration.
//
// Configuration lives in a YAML file under the OS-appropriate config
// directory (see GetConfigDir), or wherever --config points. It covers
// the device identity, the broker endpoint, TLS credentials for
// mutually authenticated connections, operation timeouts, and the
// shadow session tunables.
package config
