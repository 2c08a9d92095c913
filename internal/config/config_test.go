package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadMissingDefaultFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.Broker.Scheme != SchemeSSL {
		t.Errorf("default scheme = %q, want %q", cfg.Broker.Scheme, SchemeSSL)
	}
	if cfg.Broker.Port != 8883 {
		t.Errorf("default port = %d, want 8883", cfg.Broker.Port)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() = nil error, want failure for missing explicit file")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
thing_name: test-device
broker:
  scheme: ssl
  host: example.iot.us-east-1.amazonaws.com
  port: 8883
tls:
  root_ca: /certs/AmazonRootCA1.pem
  cert: /certs/device.pem.crt
  key: /certs/private.pem.key
  alpn: [x-amzn-mqtt-ca]
timeouts:
  connect: 10
  send: 5
  receive: 5
session:
  initial_power_on: true
  drain_window_ms: 1500
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.ThingName != "test-device" {
		t.Errorf("ThingName = %q, want %q", cfg.ThingName, "test-device")
	}
	if got := cfg.Broker.URL(); got != "ssl://example.iot.us-east-1.amazonaws.com:8883" {
		t.Errorf("Broker.URL() = %q", got)
	}
	if cfg.TLS == nil || cfg.TLS.Cert != "/certs/device.pem.crt" {
		t.Errorf("TLS = %+v, want client cert populated", cfg.TLS)
	}
	if got := cfg.Timeouts.ConnectTimeout(); got != 10*time.Second {
		t.Errorf("ConnectTimeout() = %v, want 10s", got)
	}
	if got := cfg.Session.DrainWindow(); got != 1500*time.Millisecond {
		t.Errorf("DrainWindow() = %v, want 1.5s", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults with root ca are valid",
			mutate: func(c *Config) { c.TLS = &TLS{RootCA: "/certs/ca.pem"} },
		},
		{
			name:    "unknown scheme",
			mutate:  func(c *Config) { c.Broker.Scheme = "mqtt" },
			wantErr: "broker.scheme",
		},
		{
			name:    "missing host",
			mutate:  func(c *Config) { c.Broker.Host = ""; c.TLS = &TLS{RootCA: "x"} },
			wantErr: "broker.host",
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Broker.Port = 70000; c.TLS = &TLS{RootCA: "x"} },
			wantErr: "broker.port",
		},
		{
			name:    "secure scheme without root ca",
			mutate:  func(c *Config) {},
			wantErr: "tls.root_ca",
		},
		{
			name: "cert without key",
			mutate: func(c *Config) {
				c.TLS = &TLS{RootCA: "x", Cert: "/certs/device.pem"}
			},
			wantErr: "tls.cert and tls.key",
		},
		{
			name: "plaintext scheme needs no tls",
			mutate: func(c *Config) {
				c.Broker.Scheme = SchemeTCP
				c.Broker.Port = 1883
			},
		},
		{
			name: "negative timeout",
			mutate: func(c *Config) {
				c.TLS = &TLS{RootCA: "x"}
				c.Timeouts.Send = -1
			},
			wantErr: "timeouts",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := Default()
	cfg.ThingName = "saved-device"
	cfg.Broker.Host = "broker.local"
	cfg.TLS = &TLS{RootCA: "/certs/ca.pem"}

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() unexpected error: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if loaded.ThingName != "saved-device" {
		t.Errorf("ThingName = %q, want %q", loaded.ThingName, "saved-device")
	}
	if loaded.Broker.Host != "broker.local" {
		t.Errorf("Broker.Host = %q, want %q", loaded.Broker.Host, "broker.local")
	}
}
