package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/muurk/shadowsync/internal/shadow"
)

const (
	appName    = "shadowsync"
	configFile = "config.yaml"
)

// Broker URL schemes accepted by the transport.
const (
	SchemeTCP = "tcp" // plaintext MQTT, local testing only
	SchemeSSL = "ssl" // MQTT over TLS
	SchemeWS  = "ws"  // MQTT over websocket
	SchemeWSS = "wss" // MQTT over websocket + TLS
)

// Config is the full session configuration.
type Config struct {
	// ThingName identifies the device to the shadow service. May be
	// overridden by the SHADOWSYNC_THING_NAME environment variable.
	ThingName string `yaml:"thing_name"`

	Broker   Broker   `yaml:"broker"`
	TLS      *TLS     `yaml:"tls,omitempty"`
	Timeouts Timeouts `yaml:"timeouts"`
	Session  Session  `yaml:"session"`
}

// Broker is the MQTT endpoint to connect to.
type Broker struct {
	// Scheme is one of tcp, ssl, ws, wss.
	Scheme string `yaml:"scheme"`
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
}

// URL renders the broker endpoint in the form the MQTT client expects.
func (b Broker) URL() string {
	return fmt.Sprintf("%s://%s:%d", b.Scheme, b.Host, b.Port)
}

// secure reports whether the scheme requires TLS credentials.
func (b Broker) secure() bool {
	return b.Scheme == SchemeSSL || b.Scheme == SchemeWSS
}

// TLS holds the transport credentials for secured schemes.
type TLS struct {
	// RootCA is the path to the PEM bundle that signs the broker
	// certificate. Required for ssl and wss schemes.
	RootCA string `yaml:"root_ca"`

	// Cert and Key enable mutual authentication. Both or neither.
	Cert string `yaml:"cert,omitempty"`
	Key  string `yaml:"key,omitempty"`

	// ALPN lists application protocols offered during the handshake
	// (e.g. "x-amzn-mqtt-ca" for port-443 brokers).
	ALPN []string `yaml:"alpn,omitempty"`

	// ServerName overrides the SNI hostname when it differs from the
	// broker host.
	ServerName string `yaml:"server_name,omitempty"`
}

// Timeouts bound the blocking network operations, in seconds.
// Zero means unbounded.
type Timeouts struct {
	Connect int `yaml:"connect"`
	Send    int `yaml:"send"`
	Receive int `yaml:"receive"`
}

// ConnectTimeout returns the connect timeout as a duration.
func (t Timeouts) ConnectTimeout() time.Duration { return time.Duration(t.Connect) * time.Second }

// SendTimeout returns the send timeout as a duration.
func (t Timeouts) SendTimeout() time.Duration { return time.Duration(t.Send) * time.Second }

// ReceiveTimeout returns the receive timeout as a duration.
func (t Timeouts) ReceiveTimeout() time.Duration { return time.Duration(t.Receive) * time.Second }

// Session tunes the shadow exchange itself.
type Session struct {
	// InitialPowerOn is the desired power state the session announces
	// after clearing the shadow.
	InitialPowerOn bool `yaml:"initial_power_on"`

	// DrainWindowMS bounds how long the session waits for the delta
	// and accepted messages after each publish, in milliseconds.
	DrainWindowMS int `yaml:"drain_window_ms"`
}

// DrainWindow returns the drain window as a duration.
func (s Session) DrainWindow() time.Duration {
	return time.Duration(s.DrainWindowMS) * time.Millisecond
}

// InitialPower returns the initial desired state as a shadow value.
func (s Session) InitialPower() shadow.PowerState {
	if s.InitialPowerOn {
		return shadow.PowerOn
	}
	return shadow.PowerOff
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Broker: Broker{
			Scheme: SchemeSSL,
			Host:   "localhost",
			Port:   8883,
		},
		Timeouts: Timeouts{
			Connect: 30,
			Send:    15,
			Receive: 15,
		},
		Session: Session{
			InitialPowerOn: true,
			DrainWindowMS:  2000,
		},
	}
}

// GetConfigDir returns the OS-appropriate configuration directory.
//   - Linux: $XDG_CONFIG_HOME/shadowsync or $HOME/.config/shadowsync
//   - macOS: $HOME/.config/shadowsync
//   - Windows: %LOCALAPPDATA%\shadowsync
func GetConfigDir() (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			userProfile := os.Getenv("USERPROFILE")
			if userProfile == "" {
				return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
			}
			baseDir = filepath.Join(userProfile, "AppData", "Local", appName)
		} else {
			baseDir = filepath.Join(localAppData, appName)
		}

	default:
		xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
		if xdgConfigHome != "" {
			baseDir = filepath.Join(xdgConfigHome, appName)
		} else {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("cannot determine home directory: %w", err)
			}
			baseDir = filepath.Join(homeDir, ".config", appName)
		}
	}

	return baseDir, nil
}

// DefaultPath returns the full path to the configuration file.
func DefaultPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, configFile), nil
}

// Load reads the configuration from path, or from the default location
// when path is empty. A missing default file yields Default(); a
// missing explicit file is an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		defaultPath, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = defaultPath
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) && !explicit {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the session cannot run
// with. ThingName may be empty here; the identity chain can still
// supply one from the environment.
func (c *Config) Validate() error {
	if c.ThingName != "" && len(c.ThingName) > shadow.MaxThingNameLength {
		return fmt.Errorf("thing_name exceeds %d characters", shadow.MaxThingNameLength)
	}

	switch c.Broker.Scheme {
	case SchemeTCP, SchemeSSL, SchemeWS, SchemeWSS:
	default:
		return fmt.Errorf("broker.scheme %q is not one of tcp, ssl, ws, wss", c.Broker.Scheme)
	}

	if c.Broker.Host == "" {
		return fmt.Errorf("broker.host is required")
	}
	if c.Broker.Port < 1 || c.Broker.Port > 65535 {
		return fmt.Errorf("broker.port %d is out of range", c.Broker.Port)
	}

	if c.Broker.secure() {
		if c.TLS == nil || c.TLS.RootCA == "" {
			return fmt.Errorf("tls.root_ca is required for scheme %q", c.Broker.Scheme)
		}
	}
	if c.TLS != nil {
		if (c.TLS.Cert == "") != (c.TLS.Key == "") {
			return fmt.Errorf("tls.cert and tls.key must be set together")
		}
	}

	if c.Timeouts.Connect < 0 || c.Timeouts.Send < 0 || c.Timeouts.Receive < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	if c.Session.DrainWindowMS < 0 {
		return fmt.Errorf("session.drain_window_ms must not be negative")
	}

	return nil
}

// Save writes the configuration to path (or the default location when
// empty) with an atomic rename, creating the directory if needed.
func (c *Config) Save(path string) error {
	if path == "" {
		defaultPath, err := DefaultPath()
		if err != nil {
			return err
		}
		path = defaultPath
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# Shadowsync Configuration File
#
# Credentials (certificates, private keys) are referenced by path and
# never stored inline.
#
# Location: ` + path + `

`)
	data = append(header, data...)

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config file: %w", err)
	}

	return nil
}
