package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/micro-ha/reolink-nvr/addon/internal/configsync"
	"github.com/micro-ha/reolink-nvr/addon/internal/entity"
	"github.com/micro-ha/reolink-nvr/addon/internal/manager"
	"github.com/micro-ha/reolink-nvr/addon/internal/model"
	"github.com/micro-ha/reolink-nvr/addon/internal/reolink"
)

var ErrIntegrationNotConfigured = errors.New("integration not configured")

// Repository is the persistence surface the service needs.
type Repository interface {
	ListCameras(ctx context.Context) (map[int]model.Camera, error)
	UpsertCameras(ctx context.Context, cameras []model.Camera) error
	ListOverrides(ctx context.Context) (map[int]model.CameraOverride, error)
	UpsertOverride(ctx context.Context, channel int, name, icon, comment *string) error
	PatchOverride(ctx context.Context, channel int, name, icon, comment *string) error
	InsertEvents(ctx context.Context, events []model.Event) error
	ListEvents(ctx context.Context, channel *int, limit int) ([]model.Event, error)
	PruneEvents(ctx context.Context, cutoff time.Time) (int64, error)
}

// Publisher hands the entity set to Home Assistant. Nil disables publishing.
type Publisher interface {
	PublishDiscovery(ctx context.Context, entities []entity.Entity) error
	PublishRemovals(ctx context.Context, entities []entity.Entity) error
	PublishStates(ctx context.Context, entities []entity.Entity) error
}

// HostFactory builds a device handle for a configuration snapshot.
// Swapped in tests for a handle backed by a fake device server.
type HostFactory func(cfg model.NVRConfig, logger *slog.Logger, httpClient *http.Client) *reolink.Host

// RegisterInput is the API payload for camera metadata overrides.
type RegisterInput struct {
	Name    *string `json:"name"`
	Icon    *string `json:"icon"`
	Comment *string `json:"comment"`
}

// Service owns the device handle lifecycle and runs one full refresh cycle
// per coordinator tick: connect if needed, refresh device state, reconcile
// the entity set, persist the channel registry and event log, publish.
type Service struct {
	repo           Repository
	config         *configsync.Manager
	entities       *manager.Manager
	publisher      Publisher
	logger         *slog.Logger
	newHost        HostFactory
	eventRetention time.Duration

	mu         sync.Mutex
	source     entity.UpdateSource
	host       *reolink.Host
	connected  bool
	cfgVersion int64
	prevMotion map[int]bool
	prevOnline map[int]bool
	prevAI     map[int]map[string]bool
}

func New(repo Repository, cfg *configsync.Manager, entities *manager.Manager, publisher Publisher, logger *slog.Logger) *Service {
	return &Service{
		repo:           repo,
		config:         cfg,
		entities:       entities,
		publisher:      publisher,
		logger:         logger,
		newHost:        reolink.NewHost,
		eventRetention: 7 * 24 * time.Hour,
		prevMotion:     map[int]bool{},
		prevOnline:     map[int]bool{},
		prevAI:         map[int]map[string]bool{},
	}
}

// SetUpdateSource binds the coordinator availability judgment consumed by
// entities. Must be called before the first poll.
func (s *Service) SetUpdateSource(source entity.UpdateSource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.source = source
}

// SetHostFactory overrides device handle construction, used by tests.
func (s *Service) SetHostFactory(factory HostFactory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.newHost = factory
}

// SetEventRetention overrides how long event rows are kept.
func (s *Service) SetEventRetention(retention time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if retention > 0 {
		s.eventRetention = retention
	}
}

// PollOnce runs one refresh cycle. The coordinator serializes calls.
func (s *Service) PollOnce(ctx context.Context) error {
	cfg, ok := s.config.Get()
	if !ok {
		return ErrIntegrationNotConfigured
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.host == nil || s.cfgVersion != cfg.Version {
		s.replaceHostLocked(ctx, cfg)
	}

	if !s.connected {
		if err := s.host.Connect(ctx); err != nil {
			return err
		}
		s.connected = true
	}

	if err := s.host.Refresh(ctx); err != nil {
		return err
	}

	added, removed := s.entities.Sync()

	if err := s.persistLocked(ctx); err != nil {
		return err
	}
	s.publishLocked(ctx, added, removed)
	return nil
}

func (s *Service) replaceHostLocked(ctx context.Context, cfg model.NVRConfig) {
	if s.host != nil {
		s.entities.DetachAll()
		closeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := s.host.Close(closeCtx); err != nil {
			s.logger.Warn("close previous device session failed", "err", err)
		}
		cancel()
	}
	s.host = s.newHost(cfg, s.logger, nil)
	s.connected = false
	s.cfgVersion = cfg.Version
	s.prevMotion = map[int]bool{}
	s.prevOnline = map[int]bool{}
	s.prevAI = map[int]map[string]bool{}
	s.entities.Reset(s.host, s.source)
	s.logger.Info("device handle replaced", "host", cfg.Host, "version", cfg.Version)
}

func (s *Service) persistLocked(ctx context.Context) error {
	now := time.Now().UTC()

	cameras := make([]model.Camera, 0)
	events := make([]model.Event, 0)
	for _, ch := range s.host.Channels() {
		info, ok := s.host.ChannelInfo(ch)
		if !ok {
			continue
		}
		camera := model.Camera{
			Channel:     ch,
			Name:        info.Name,
			Model:       info.Model,
			Firmware:    info.Firmware,
			Online:      info.Online,
			FirstSeenAt: now,
			UpdatedAt:   now,
		}
		if info.Online {
			seen := now
			camera.LastSeenAt = &seen
		}
		cameras = append(cameras, camera)
		events = append(events, s.detectTransitionsLocked(ch, info, now)...)
	}

	if err := s.repo.UpsertCameras(ctx, cameras); err != nil {
		return err
	}
	if err := s.repo.InsertEvents(ctx, events); err != nil {
		return err
	}
	if pruned, err := s.repo.PruneEvents(ctx, now.Add(-s.eventRetention)); err != nil {
		s.logger.Warn("event prune failed", "err", err)
	} else if pruned > 0 {
		s.logger.Debug("pruned events", "rows", pruned)
	}
	return nil
}

// detectTransitionsLocked turns state flips observed in this cycle into
// event log rows.
func (s *Service) detectTransitionsLocked(ch int, info reolink.ChannelInfo, now time.Time) []model.Event {
	events := []model.Event{}

	if prev, ok := s.prevOnline[ch]; !ok || prev != info.Online {
		if ok {
			eventType := model.EventTypeOnline
			if !info.Online {
				eventType = model.EventTypeOffline
			}
			events = append(events, model.Event{
				ID:         uuid.NewString(),
				Channel:    ch,
				Type:       eventType,
				Active:     info.Online,
				ObservedAt: now,
			})
		}
		s.prevOnline[ch] = info.Online
	}

	state := s.host.ChannelState(ch)
	if prev, ok := s.prevMotion[ch]; !ok || prev != state.MotionDetected {
		if ok {
			events = append(events, model.Event{
				ID:         uuid.NewString(),
				Channel:    ch,
				Type:       model.EventTypeMotion,
				Active:     state.MotionDetected,
				ObservedAt: now,
			})
		}
		s.prevMotion[ch] = state.MotionDetected
	}

	prevAI := s.prevAI[ch]
	if prevAI == nil {
		prevAI = map[string]bool{}
		s.prevAI[ch] = prevAI
	}
	for aiType, active := range state.AIStates {
		if prev, ok := prevAI[aiType]; ok && prev != active {
			events = append(events, model.Event{
				ID:         uuid.NewString(),
				Channel:    ch,
				Type:       model.EventTypeAI,
				Detail:     aiType,
				Active:     active,
				ObservedAt: now,
			})
		}
		prevAI[aiType] = active
	}

	return events
}

func (s *Service) publishLocked(ctx context.Context, added, removed []entity.Entity) {
	if s.publisher == nil {
		return
	}
	if len(added) > 0 {
		if err := s.publisher.PublishDiscovery(ctx, added); err != nil {
			s.logger.Warn("discovery publish failed", "err", err)
		}
	}
	if len(removed) > 0 {
		if err := s.publisher.PublishRemovals(ctx, removed); err != nil {
			s.logger.Warn("discovery removal publish failed", "err", err)
		}
	}
	if err := s.publisher.PublishStates(ctx, s.entities.Entities()); err != nil {
		s.logger.Warn("state publish failed", "err", err)
	}
}

// Shutdown detaches all entities and closes the device session.
func (s *Service) Shutdown(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities.DetachAll()
	if s.host != nil {
		if err := s.host.Close(ctx); err != nil {
			s.logger.Warn("close device session failed", "err", err)
		}
		s.host = nil
		s.connected = false
	}
}

// Available reports the combined device/coordinator availability.
func (s *Service) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.host == nil || s.source == nil {
		return false
	}
	return s.host.SessionActive() && s.source.LastUpdateSuccess()
}
