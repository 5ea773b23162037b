// MoviePulse - Title Trend Scoring Pipeline
// Copyright 2026 MoviePulse contributors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// Load reads process-global environment and working-directory files, so
// these tests run sequentially without t.Parallel.

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q, want :8080", cfg.Server.ListenAddr)
	}
	if cfg.Trend.InternalWeight != 0.3 || cfg.Trend.ExternalWeight != 0.7 {
		t.Errorf("weights = %v/%v, want 0.3/0.7", cfg.Trend.InternalWeight, cfg.Trend.ExternalWeight)
	}
	if cfg.NATS.PoisonTopic != "trend.dlq" {
		t.Errorf("PoisonTopic = %q, want trend.dlq", cfg.NATS.PoisonTopic)
	}
	if cfg.TMDB.Timeout != 10*time.Second {
		t.Errorf("TMDB.Timeout = %v, want 10s", cfg.TMDB.Timeout)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
server:
  listen_addr: ":9999"
trend:
  internal_weight: 0.4
  external_weight: 0.6
  view_saturation: 5000
logging:
  level: "debug"
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.ListenAddr != ":9999" {
		t.Errorf("ListenAddr = %q, want :9999", cfg.Server.ListenAddr)
	}
	if cfg.Trend.ViewSaturation != 5000 {
		t.Errorf("ViewSaturation = %d, want 5000", cfg.Trend.ViewSaturation)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	// Untouched keys keep their defaults.
	if cfg.Database.URL == "" {
		t.Error("Database.URL default lost after file load")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  listen_addr: \":9999\"\n"), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("MOVIEPULSE_SERVER_LISTEN_ADDR", ":7777")
	t.Setenv("MOVIEPULSE_TMDB_API_KEY", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.ListenAddr != ":7777" {
		t.Errorf("ListenAddr = %q, env must beat file", cfg.Server.ListenAddr)
	}
	if cfg.TMDB.APIKey != "secret" {
		t.Errorf("TMDB.APIKey = %q, want secret", cfg.TMDB.APIKey)
	}
}

func TestLoadRejectsInvalidWeights(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("trend:\n  internal_weight: 0.9\n  external_weight: 0.9\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	if _, err := Load(); err == nil {
		t.Error("Load accepted weights that do not sum to 1")
	}
}

func TestValidateRequiresNATSURL(t *testing.T) {
	cfg := defaultConfig()
	cfg.NATS.EmbeddedServer = false
	cfg.NATS.URL = ""
	if err := cfg.Validate(); err == nil {
		t.Error("Validate accepted empty NATS URL without embedded server")
	}

	cfg.NATS.EmbeddedServer = true
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate rejected embedded-server config: %v", err)
	}
}

func TestEnvTransform(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"MOVIEPULSE_DATABASE_URL", "database.url"},
		{"MOVIEPULSE_SERVER_LISTEN_ADDR", "server.listen_addr"},
		{"MOVIEPULSE_NATS_RETRY_MAX_RETRIES", "nats.retry_max_retries"},
		{"MOVIEPULSE_TREND_VIEW_SATURATION", "trend.view_saturation"},
		{"MOVIEPULSE_LOGGING_LEVEL", "logging.level"},
		{"MOVIEPULSE_NATS_URL", "nats.url"},
		// Keys outside envKeyMap resolve through the fallback: the first
		// underscore is the section separator, the rest stay literal.
		{"MOVIEPULSE_NATS_RETRY_INITIAL_INTERVAL", "nats.retry_initial_interval"},
		{"MOVIEPULSE_NATS_MAX_ACK_PENDING", "nats.max_ack_pending"},
		{"MOVIEPULSE_NATS_POISON_TOPIC", "nats.poison_topic"},
		{"MOVIEPULSE_NATS_STREAM_RETENTION_DAYS", "nats.stream_retention_days"},
		{"MOVIEPULSE_GATEWAY_VIEW_RATE_PERIOD", "gateway.view_rate_period"},
	}
	for _, tt := range tests {
		if got := envTransform(tt.in); got != tt.want {
			t.Errorf("envTransform(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
