package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.HTTPAddr != defaultHTTPAddr {
		t.Errorf("http addr = %q, want %q", cfg.HTTPAddr, defaultHTTPAddr)
	}
	if cfg.DBPath != defaultDBPath {
		t.Errorf("db path = %q, want %q", cfg.DBPath, defaultDBPath)
	}
	if cfg.ConfigRefreshInterval != defaultConfigRefreshInterval {
		t.Errorf("refresh interval = %v", cfg.ConfigRefreshInterval)
	}
	if cfg.MQTTTopicPrefix != "reolink_nvr" || cfg.DiscoveryPrefix != "homeassistant" {
		t.Errorf("topic prefixes = %q/%q", cfg.MQTTTopicPrefix, cfg.DiscoveryPrefix)
	}
	if cfg.EventRetention != defaultEventRetention {
		t.Errorf("event retention = %v", cfg.EventRetention)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CONFIG_REFRESH_INTERVAL", "30s")
	t.Setenv("MQTT_BROKER_URL", " tcp://mqtt:1883 ")

	cfg := Load()
	if cfg.HTTPAddr != ":9999" {
		t.Errorf("http addr = %q", cfg.HTTPAddr)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("log level = %v", cfg.LogLevel)
	}
	if cfg.ConfigRefreshInterval != 30*time.Second {
		t.Errorf("refresh interval = %v", cfg.ConfigRefreshInterval)
	}
	if cfg.MQTTBrokerURL != "tcp://mqtt:1883" {
		t.Errorf("broker url = %q, want trimmed", cfg.MQTTBrokerURL)
	}
}

func TestParseDurationInvalid(t *testing.T) {
	t.Setenv("CONFIG_REFRESH_INTERVAL", "soon")
	if got := parseDuration("CONFIG_REFRESH_INTERVAL", time.Minute); got != time.Minute {
		t.Errorf("invalid duration = %v, want fallback", got)
	}
	t.Setenv("CONFIG_REFRESH_INTERVAL", "-5s")
	if got := parseDuration("CONFIG_REFRESH_INTERVAL", time.Minute); got != time.Minute {
		t.Errorf("negative duration = %v, want fallback", got)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		raw  string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLogLevel(tt.raw); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}
