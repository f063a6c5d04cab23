package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TRACKING_CONFIG", filepath.Join(t.TempDir(), "missing.yml"))

	cfg := Load()

	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %s", cfg.Port)
	}
	if !cfg.IsDevelopment() {
		t.Fatal("expected development mode by default")
	}

	tun := cfg.Tuning
	if tun.HeartbeatSeconds != 30 || tun.LocationTTLSeconds != 300 ||
		tun.RerouteSeconds != 120 || tun.RouteHistorySize != 10 ||
		tun.ReconnectDelayMs != 500 || tun.ReconnectAttempts != 10 {
		t.Fatalf("unexpected default tuning: %+v", tun)
	}
}

func TestTuningFileOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tracking.yml")
	yml := "heartbeat_seconds: 15\nroute_history_size: 25\n"
	if err := os.WriteFile(path, []byte(yml), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TRACKING_CONFIG", path)

	cfg := Load()

	if cfg.Tuning.HeartbeatSeconds != 15 {
		t.Fatalf("expected heartbeat override, got %d", cfg.Tuning.HeartbeatSeconds)
	}
	if cfg.Tuning.RouteHistorySize != 25 {
		t.Fatalf("expected history override, got %d", cfg.Tuning.RouteHistorySize)
	}
	// Untouched keys keep their defaults.
	if cfg.Tuning.RerouteSeconds != 120 {
		t.Fatalf("expected default reroute interval, got %d", cfg.Tuning.RerouteSeconds)
	}
}

func TestEnvOverridesTuningFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tracking.yml")
	if err := os.WriteFile(path, []byte("reroute_seconds: 60\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TRACKING_CONFIG", path)
	t.Setenv("REROUTE_SECONDS", "90")

	cfg := Load()
	if cfg.Tuning.RerouteSeconds != 90 {
		t.Fatalf("environment should beat the file, got %d", cfg.Tuning.RerouteSeconds)
	}
}

func TestRateLimitWhitelistParsing(t *testing.T) {
	t.Setenv("TRACKING_CONFIG", filepath.Join(t.TempDir(), "missing.yml"))
	t.Setenv("RATE_LIMIT_WHITELIST", "10.0.0.1, 192.168.0.0/16 ,")

	cfg := Load()
	if len(cfg.RateLimitWhitelist) != 2 {
		t.Fatalf("expected 2 whitelist entries, got %v", cfg.RateLimitWhitelist)
	}
	if cfg.RateLimitWhitelist[0] != "10.0.0.1" || cfg.RateLimitWhitelist[1] != "192.168.0.0/16" {
		t.Fatalf("whitelist mis-parsed: %v", cfg.RateLimitWhitelist)
	}
}

func TestDurationHelpers(t *testing.T) {
	tun := defaultTuning()
	if tun.Heartbeat() != 30*time.Second {
		t.Fatalf("unexpected heartbeat: %s", tun.Heartbeat())
	}
	if tun.LocationTTL() != 5*time.Minute {
		t.Fatalf("unexpected location TTL: %s", tun.LocationTTL())
	}
	if tun.RerouteInterval() != 2*time.Minute {
		t.Fatalf("unexpected reroute interval: %s", tun.RerouteInterval())
	}
	if tun.SessionIdle() != time.Hour {
		t.Fatalf("unexpected idle deadline: %s", tun.SessionIdle())
	}
}
