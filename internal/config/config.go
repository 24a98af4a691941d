package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultHTTPAddr              = ":8123"
	defaultDBPath                = "/data/reolink_nvr.db"
	defaultFrontendDist          = "/app/frontend/dist"
	defaultSupervisorURL         = "http://supervisor/core"
	defaultConfigRefreshInterval = 60 * time.Second
	defaultEventRetention        = 7 * 24 * time.Hour
)

// Config stores runtime settings loaded from environment variables.
type Config struct {
	HTTPAddr              string
	DBPath                string
	FrontendDist          string
	SupervisorBaseURL     string
	SupervisorToken       string
	ConfigRefreshInterval time.Duration
	LogLevel              slog.Level
	MQTTBrokerURL         string
	MQTTUsername          string
	MQTTPassword          string
	MQTTTopicPrefix       string
	DiscoveryPrefix       string
	EventRetention        time.Duration
}

// Load builds Config from environment variables using stable defaults.
func Load() Config {
	return Config{
		HTTPAddr:              getenv("HTTP_ADDR", defaultHTTPAddr),
		DBPath:                getenv("DB_PATH", defaultDBPath),
		FrontendDist:          getenv("FRONTEND_DIST", defaultFrontendDist),
		SupervisorBaseURL:     getenv("HA_BASE_URL", defaultSupervisorURL),
		SupervisorToken:       strings.TrimSpace(os.Getenv("SUPERVISOR_TOKEN")),
		ConfigRefreshInterval: parseDuration("CONFIG_REFRESH_INTERVAL", defaultConfigRefreshInterval),
		LogLevel:              parseLogLevel(getenv("LOG_LEVEL", "info")),
		MQTTBrokerURL:         strings.TrimSpace(os.Getenv("MQTT_BROKER_URL")),
		MQTTUsername:          strings.TrimSpace(os.Getenv("MQTT_USERNAME")),
		MQTTPassword:          os.Getenv("MQTT_PASSWORD"),
		MQTTTopicPrefix:       getenv("MQTT_TOPIC_PREFIX", "reolink_nvr"),
		DiscoveryPrefix:       getenv("MQTT_DISCOVERY_PREFIX", "homeassistant"),
		EventRetention:        parseDuration("EVENT_RETENTION", defaultEventRetention),
	}
}

// DBDir returns the target directory for DBPath.
func (c Config) DBDir() string {
	return filepath.Dir(c.DBPath)
}

func getenv(key string, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func parseDuration(key string, fallback time.Duration) time.Duration {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
