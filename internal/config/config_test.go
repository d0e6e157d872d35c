package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Lobby.Transport != TransportPoll {
		t.Fatalf("expected poll transport, got %q", cfg.Lobby.Transport)
	}
	if cfg.Lobby.MinStudents != 1 {
		t.Fatalf("expected min students 1, got %d", cfg.Lobby.MinStudents)
	}
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
api:
  base_url: https://api.quizspark.test
  timeout: 1500ms
lobby:
  transport: stream
  min_students: 3
redis:
  addr: localhost:6379
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.BaseURL != "https://api.quizspark.test" {
		t.Fatalf("unexpected base url %q", cfg.API.BaseURL)
	}
	if got := TTLDuration(cfg.API.Timeout, time.Second); got != 1500*time.Millisecond {
		t.Fatalf("unexpected timeout %v", got)
	}
	if cfg.Lobby.Transport != TransportStream || cfg.Lobby.MinStudents != 3 {
		t.Fatalf("unexpected lobby config %+v", cfg.Lobby)
	}
	if cfg.Lobby.PollInterval != "2s" {
		t.Fatalf("expected default poll interval to survive, got %q", cfg.Lobby.PollInterval)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv(APIURLEnv, "http://env.example")
	t.Setenv(TokenEnv, "tok")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.BaseURL != "http://env.example" || cfg.API.Token != "tok" {
		t.Fatalf("env not applied: %+v", cfg.API)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("api: [unterminated"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected yaml error")
	}
}

func TestTTLDuration(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		fallback time.Duration
		expected time.Duration
	}{
		{"empty uses fallback", "", time.Minute, time.Minute},
		{"parses value", "90s", time.Minute, 90 * time.Second},
		{"invalid uses fallback", "soon", time.Minute, time.Minute},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := TTLDuration(tc.raw, tc.fallback); got != tc.expected {
				t.Errorf("Expected %v, got %v", tc.expected, got)
			}
		})
	}
}

func TestGetEnvAsIntOrDefault(t *testing.T) {
	t.Setenv("TEST_INT_1", "42")
	t.Setenv("TEST_INT_2", "abc")
	if got := getEnvAsIntOrDefault("TEST_INT_1", 10); got != 42 {
		t.Errorf("Expected 42, got %d", got)
	}
	if got := getEnvAsIntOrDefault("TEST_INT_2", 10); got != 10 {
		t.Errorf("Expected 10, got %d", got)
	}
	if got := getEnvAsIntOrDefault("TEST_INT_UNSET", 10); got != 10 {
		t.Errorf("Expected 10, got %d", got)
	}
}
