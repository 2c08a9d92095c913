package identity

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// EnvVar is the environment variable consulted for the device
// identity before falling back to configuration.
const EnvVar = "SHADOWSYNC_THING_NAME"

// ErrNoIdentity indicates that no provider could produce a device
// identity.
var ErrNoIdentity = errors.New("no device identity available")

// Provider resolves the device identity. The identity is opaque to
// this package; the shadow package enforces length limits when topics
// are derived from it.
type Provider interface {
	DeviceID() (string, error)
}

// Static is a fixed identity, typically sourced from configuration.
type Static string

// DeviceID returns the static identity, or ErrNoIdentity when empty.
func (s Static) DeviceID() (string, error) {
	if s == "" {
		return "", ErrNoIdentity
	}
	return string(s), nil
}

// Env resolves the identity from an environment variable.
type Env struct {
	// Key is the variable name; EnvVar when empty.
	Key string
}

// DeviceID returns the variable's value, or ErrNoIdentity when unset
// or blank.
func (e Env) DeviceID() (string, error) {
	key := e.Key
	if key == "" {
		key = EnvVar
	}
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return "", fmt.Errorf("%s: %w", key, ErrNoIdentity)
	}
	return value, nil
}

// Chain tries each provider in order and returns the first identity
// found.
type Chain []Provider

// DeviceID returns the first successful resolution. When every
// provider fails, the last error is returned wrapped.
func (c Chain) DeviceID() (string, error) {
	var lastErr error = ErrNoIdentity
	for _, p := range c {
		id, err := p.DeviceID()
		if err == nil {
			return id, nil
		}
		lastErr = err
	}
	return "", lastErr
}

// Default is the standard resolution order: environment first, then
// the configured fallback.
func Default(configured string) Provider {
	return Chain{Env{}, Static(configured)}
}
