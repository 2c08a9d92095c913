package identity

import (
	"errors"
	"testing"
)

func TestStatic(t *testing.T) {
	id, err := Static("test-device").DeviceID()
	if err != nil {
		t.Fatalf("DeviceID() unexpected error: %v", err)
	}
	if id != "test-device" {
		t.Errorf("DeviceID() = %q, want %q", id, "test-device")
	}

	if _, err := Static("").DeviceID(); !errors.Is(err, ErrNoIdentity) {
		t.Errorf("empty Static error = %v, want %v", err, ErrNoIdentity)
	}
}

func TestEnv(t *testing.T) {
	t.Setenv(EnvVar, "env-device")

	id, err := Env{}.DeviceID()
	if err != nil {
		t.Fatalf("DeviceID() unexpected error: %v", err)
	}
	if id != "env-device" {
		t.Errorf("DeviceID() = %q, want %q", id, "env-device")
	}
}

func TestEnvUnset(t *testing.T) {
	t.Setenv(EnvVar, "")

	if _, err := (Env{}).DeviceID(); !errors.Is(err, ErrNoIdentity) {
		t.Errorf("DeviceID() error = %v, want %v", err, ErrNoIdentity)
	}
}

func TestDefaultPrefersEnvironment(t *testing.T) {
	t.Setenv(EnvVar, "env-device")

	id, err := Default("config-device").DeviceID()
	if err != nil {
		t.Fatalf("DeviceID() unexpected error: %v", err)
	}
	if id != "env-device" {
		t.Errorf("DeviceID() = %q, want the environment to win", id)
	}
}

func TestDefaultFallsBackToConfig(t *testing.T) {
	t.Setenv(EnvVar, "")

	id, err := Default("config-device").DeviceID()
	if err != nil {
		t.Fatalf("DeviceID() unexpected error: %v", err)
	}
	if id != "config-device" {
		t.Errorf("DeviceID() = %q, want %q", id, "config-device")
	}
}

func TestChainExhausted(t *testing.T) {
	t.Setenv(EnvVar, "")

	if _, err := Default("").DeviceID(); !errors.Is(err, ErrNoIdentity) {
		t.Errorf("DeviceID() error = %v, want %v", err, ErrNoIdentity)
	}
}
