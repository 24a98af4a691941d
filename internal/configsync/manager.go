package configsync

import (
	"context"
	"log/slog"
	"sync"

	"github.com/micro-ha/reolink-nvr/addon/internal/model"
)

// ConfigFetcher fetches the current integration configuration.
type ConfigFetcher interface {
	FetchConfig(ctx context.Context) (FetchResult, error)
}

type Manager struct {
	client ConfigFetcher
	logger *slog.Logger

	mu         sync.RWMutex
	configured bool
	config     model.NVRConfig
}

func NewManager(client ConfigFetcher, logger *slog.Logger) *Manager {
	return &Manager{client: client, logger: logger}
}

// Refresh fetches the latest config and reports whether it changed.
func (m *Manager) Refresh(ctx context.Context) (bool, error) {
	res, err := m.client.FetchConfig(ctx)
	if err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	changed := false
	if !res.Configured {
		if m.configured {
			changed = true
		}
		m.configured = false
		m.config = model.NVRConfig{}
		return changed, nil
	}

	if !m.configured || res.Config.Version != m.config.Version {
		changed = true
	}
	m.configured = true
	m.config = res.Config
	return changed, nil
}

func (m *Manager) Get() (model.NVRConfig, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.configured {
		return model.NVRConfig{}, false
	}
	return m.config, true
}
