package manager

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/micro-ha/reolink-nvr/addon/internal/entity"
)

// Manager owns the live entity set for one device handle. It builds entities
// from the descriptor catalogs, attaches them as they appear and detaches
// them when the device stops reporting their channel, keeping the handle's
// command interest set in sync with which entities currently exist.
type Manager struct {
	logger       *slog.Logger
	hostDescs    []entity.HostEntityDescription
	channelDescs []entity.ChannelEntityDescription

	mu       sync.Mutex
	host     entity.Handle
	source   entity.UpdateSource
	entities map[string]entity.Entity
}

func New(logger *slog.Logger) *Manager {
	return &Manager{
		logger:       logger,
		hostDescs:    entity.HostDescriptions,
		channelDescs: entity.ChannelDescriptions,
		entities:     map[string]entity.Entity{},
	}
}

// NewWithCatalog builds a manager with an explicit descriptor catalog.
func NewWithCatalog(logger *slog.Logger, hostDescs []entity.HostEntityDescription, channelDescs []entity.ChannelEntityDescription) *Manager {
	m := New(logger)
	m.hostDescs = hostDescs
	m.channelDescs = channelDescs
	return m
}

// Reset detaches every entity and binds the manager to a new device handle.
// Called when the integration configuration is replaced.
func (m *Manager) Reset(host entity.Handle, source entity.UpdateSource) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.detachAllLocked()
	m.host = host
	m.source = source
}

// Sync reconciles the entity set against the handle's current channel list.
// New entities are attached, entities whose channel disappeared are
// detached. Entities that already exist are kept as-is so the
// register/unregister pairing stays exact.
func (m *Manager) Sync() (added, removed []entity.Entity) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.host == nil {
		return nil, nil
	}

	// Entity construction is pure identity derivation; building a candidate
	// that already exists has no side effects.
	desired := map[string]entity.Entity{}
	for _, desc := range m.hostDescs {
		if !descSupportedHost(desc, m.host) {
			continue
		}
		e := entity.NewHostEntity(m.host, m.source, desc)
		desired[e.UniqueID()] = e
	}
	for _, ch := range m.host.Channels() {
		for _, desc := range m.channelDescs {
			if !descSupportedChannel(desc, m.host, ch) {
				continue
			}
			e := entity.NewChannelEntity(m.host, m.source, desc, ch)
			desired[e.UniqueID()] = e
		}
	}

	for id, e := range desired {
		if _, ok := m.entities[id]; ok {
			continue
		}
		e.Attach()
		m.entities[id] = e
		added = append(added, e)
	}

	for id, e := range m.entities {
		if _, ok := desired[id]; ok {
			continue
		}
		e.Detach()
		delete(m.entities, id)
		removed = append(removed, e)
	}

	if len(added) > 0 || len(removed) > 0 {
		m.logger.Info("entity set changed", "added", len(added), "removed", len(removed), "total", len(m.entities))
	}
	return added, removed
}

// Entities returns the attached entities sorted by unique id.
func (m *Manager) Entities() []entity.Entity {
	m.mu.Lock()
	defer m.mu.Unlock()

	entities := make([]entity.Entity, 0, len(m.entities))
	for _, e := range m.entities {
		entities = append(entities, e)
	}
	sort.Slice(entities, func(i, j int) bool { return entities[i].UniqueID() < entities[j].UniqueID() })
	return entities
}

// DetachAll detaches every entity, used on shutdown.
func (m *Manager) DetachAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.detachAllLocked()
}

func (m *Manager) detachAllLocked() {
	for id, e := range m.entities {
		e.Detach()
		delete(m.entities, id)
	}
}

func descSupportedHost(desc entity.HostEntityDescription, host entity.Handle) bool {
	if desc.Supported == nil {
		return true
	}
	return desc.Supported(host)
}

func descSupportedChannel(desc entity.ChannelEntityDescription, host entity.Handle, channel int) bool {
	if desc.Supported == nil {
		return true
	}
	return desc.Supported(host, channel)
}
