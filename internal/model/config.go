package model

import (
	"strconv"
	"strings"
	"time"
)

// NVRConfig represents a normalized integration configuration payload.
type NVRConfig struct {
	Version         int64     `json:"version"`
	UpdatedAt       time.Time `json:"updated_at"`
	Host            string    `json:"host"`
	Port            int       `json:"port"`
	Username        string    `json:"username"`
	Password        string    `json:"password"`
	UseHTTPS        bool      `json:"use_https"`
	VerifyTLS       bool      `json:"verify_tls"`
	PollIntervalSec int       `json:"poll_interval_sec"`
}

func (c NVRConfig) PollInterval() time.Duration {
	interval := time.Duration(c.PollIntervalSec) * time.Second
	if interval < 5*time.Second {
		return 5 * time.Second
	}
	return interval
}

// EffectivePort resolves the configured port, falling back to the scheme default.
func (c NVRConfig) EffectivePort() int {
	if c.Port > 0 {
		return c.Port
	}
	if c.UseHTTPS {
		return 443
	}
	return 80
}

// BaseURL builds the device HTTP endpoint from scheme, host and port.
func (c NVRConfig) BaseURL() string {
	scheme := "http"
	if c.UseHTTPS {
		scheme = "https"
	}

	host := strings.TrimSpace(c.Host)
	host = strings.TrimPrefix(strings.TrimPrefix(host, "http://"), "https://")
	host = strings.Trim(host, "/")
	if host == "" {
		return scheme + "://"
	}
	return scheme + "://" + host + ":" + strconv.Itoa(c.EffectivePort())
}
