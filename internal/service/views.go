package service

import (
	"context"

	"github.com/micro-ha/reolink-nvr/addon/internal/entity"
	"github.com/micro-ha/reolink-nvr/addon/internal/model"
	"github.com/micro-ha/reolink-nvr/addon/internal/storage"
)

// EntityView is the API read model for one attached entity.
type EntityView struct {
	UniqueID  string            `json:"unique_id"`
	Key       string            `json:"key"`
	Component string            `json:"component"`
	Channel   *int              `json:"channel,omitempty"`
	Available bool              `json:"available"`
	State     any               `json:"state"`
	Device    entity.DeviceInfo `json:"device"`
}

// ListCameras returns the merged channel registry.
func (s *Service) ListCameras(ctx context.Context) ([]model.CameraView, error) {
	cameras, err := s.repo.ListCameras(ctx)
	if err != nil {
		return nil, err
	}
	overrides, err := s.repo.ListOverrides(ctx)
	if err != nil {
		return nil, err
	}
	return storage.MergeCameraViews(cameras, overrides), nil
}

// GetCamera returns one channel registry row.
func (s *Service) GetCamera(ctx context.Context, channel int) (model.CameraView, error) {
	views, err := s.ListCameras(ctx)
	if err != nil {
		return model.CameraView{}, err
	}
	for _, view := range views {
		if view.Channel == channel {
			return view, nil
		}
	}
	return model.CameraView{}, storage.ErrNotFound
}

// RegisterCamera creates or replaces the override row for a channel.
func (s *Service) RegisterCamera(ctx context.Context, channel int, in RegisterInput) error {
	return s.repo.UpsertOverride(ctx, channel, in.Name, in.Icon, in.Comment)
}

// PatchCamera partially updates the override row for a channel.
func (s *Service) PatchCamera(ctx context.Context, channel int, in RegisterInput) error {
	return s.repo.PatchOverride(ctx, channel, in.Name, in.Icon, in.Comment)
}

// ListEvents returns recent event log rows, newest first.
func (s *Service) ListEvents(ctx context.Context, channel *int, limit int) ([]model.Event, error) {
	return s.repo.ListEvents(ctx, channel, limit)
}

// Devices returns the identity records for the host and every channel,
// deduplicated because dual-lens channels fold onto one identity.
func (s *Service) Devices() []entity.DeviceInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.host == nil || !s.connected {
		return nil
	}

	devices := []entity.DeviceInfo{entity.HostDeviceInfo(s.host)}
	seen := map[string]struct{}{devices[0].Identifier: {}}
	for _, ch := range s.host.Channels() {
		info := entity.ChannelDeviceInfo(s.host, ch)
		if _, ok := seen[info.Identifier]; ok {
			continue
		}
		seen[info.Identifier] = struct{}{}
		devices = append(devices, info)
	}
	return devices
}

// EntityViews returns the attached entity set with current state.
func (s *Service) EntityViews() []EntityView {
	views := []EntityView{}
	for _, e := range s.entities.Entities() {
		view := EntityView{
			UniqueID:  e.UniqueID(),
			Key:       e.Key(),
			Component: e.Component(),
			Available: e.Available(),
			State:     e.State(),
			Device:    e.DeviceInfo(),
		}
		if ch, ok := e.Channel(); ok {
			channel := ch
			view.Channel = &channel
		}
		views = append(views, view)
	}
	return views
}
