package config

import (
	"os"
	"testing"
)

func TestGetIntBool(t *testing.T) {
	os.Setenv("X_INT", "42")
	t.Cleanup(func() { os.Unsetenv("X_INT") })
	if v := getInt("X_INT", 1); v != 42 {
		t.Fatalf("want 42, got %d", v)
	}

	os.Setenv("X_BOOL_T", "true")
	os.Setenv("X_BOOL_F", "false")
	t.Cleanup(func() { os.Unsetenv("X_BOOL_T"); os.Unsetenv("X_BOOL_F") })
	if !getBool("X_BOOL_T", false) {
		t.Fatalf("want true")
	}
	if getBool("X_BOOL_F", true) {
		t.Fatalf("want false")
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.Entrez.URL != "https://entrez.enphaseenergy.com" {
		t.Fatalf("unexpected default entrez url: %s", cfg.Entrez.URL)
	}
	if !cfg.Envoy.InsecureTLS {
		t.Fatalf("insecure TLS should default on for self-signed gateways")
	}
	if cfg.HTTP.TimeoutSeconds != 30 {
		t.Fatalf("want 30s default timeout, got %d", cfg.HTTP.TimeoutSeconds)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("ENTREZ_USERNAME", "user@example.com")
	t.Setenv("ENVOY_HOST", "192.168.1.100")
	cfg := Load()
	if cfg.Entrez.Username != "user@example.com" {
		t.Fatalf("username override not applied: %s", cfg.Entrez.Username)
	}
	if cfg.Envoy.Host != "192.168.1.100" {
		t.Fatalf("host override not applied: %s", cfg.Envoy.Host)
	}
}
