package entity

import "fmt"

// UpdateSource is the coordinator-side availability judgment consumed by
// entities. Satisfied by *coordinator.Coordinator.
type UpdateSource interface {
	LastUpdateSuccess() bool
}

// Entity is the lifecycle surface the platform layer drives. Attach and
// Detach are invoked exactly once each per entity lifetime by the manager;
// both are safe against accidental double calls.
type Entity interface {
	UniqueID() string
	Key() string
	Name() string
	CmdKey() string
	Component() string
	Channel() (int, bool)
	DeviceInfo() DeviceInfo
	Available() bool
	State() any
	Attach()
	Detach()
}

// base carries the state shared by host- and channel-scoped entities.
type base struct {
	host       Handle
	source     UpdateSource
	uniqueID   string
	deviceInfo DeviceInfo
	attached   bool
	removed    bool
}

func (e *base) UniqueID() string       { return e.uniqueID }
func (e *base) DeviceInfo() DeviceInfo { return e.deviceInfo }

// Available reports whether the device session is active and the last
// coordinator refresh succeeded. Both checks are read-only.
func (e *base) Available() bool {
	return e.host.SessionActive() && e.source.LastUpdateSuccess()
}

// HostEntity represents one entity bound to the NVR/root device itself.
type HostEntity struct {
	base
	description HostEntityDescription
}

// NewHostEntity derives identity for a host-scoped entity. The unique id is
// a deterministic function of the host uid and the descriptor key.
func NewHostEntity(host Handle, source UpdateSource, description HostEntityDescription) *HostEntity {
	return &HostEntity{
		base: base{
			host:       host,
			source:     source,
			uniqueID:   fmt.Sprintf("%s_%s", host.UniqueID(), description.Key),
			deviceInfo: HostDeviceInfo(host),
		},
		description: description,
	}
}

func (e *HostEntity) Key() string          { return e.description.Key }
func (e *HostEntity) Name() string         { return e.description.Name }
func (e *HostEntity) CmdKey() string       { return e.description.CmdKey }
func (e *HostEntity) Component() string    { return e.description.Component }
func (e *HostEntity) Channel() (int, bool) { return 0, false }

func (e *HostEntity) State() any {
	if e.description.Value == nil {
		return nil
	}
	return e.description.Value(e.host)
}

// Attach registers the entity's update command with the device handle.
func (e *HostEntity) Attach() {
	if e.attached || e.removed {
		return
	}
	e.attached = true
	if e.description.CmdKey != "" {
		e.host.RegisterUpdateCmd(e.description.CmdKey)
	}
}

// Detach unregisters the update command registered by Attach.
func (e *HostEntity) Detach() {
	if !e.attached || e.removed {
		return
	}
	e.removed = true
	e.attached = false
	if e.description.CmdKey != "" {
		e.host.UnregisterUpdateCmd(e.description.CmdKey)
	}
}

// ChannelEntity represents one entity bound to a camera channel of the NVR.
type ChannelEntity struct {
	base
	description ChannelEntityDescription
	channel     int
}

// NewChannelEntity derives identity for a channel-scoped entity. The unique
// id always uses the requested channel even when device identity folds onto
// channel 0 for dual-lens models.
func NewChannelEntity(host Handle, source UpdateSource, description ChannelEntityDescription, channel int) *ChannelEntity {
	return &ChannelEntity{
		base: base{
			host:       host,
			source:     source,
			uniqueID:   fmt.Sprintf("%s_%d_%s", host.UniqueID(), channel, description.Key),
			deviceInfo: ChannelDeviceInfo(host, channel),
		},
		description: description,
		channel:     channel,
	}
}

func (e *ChannelEntity) Key() string          { return e.description.Key }
func (e *ChannelEntity) Name() string         { return e.description.Name }
func (e *ChannelEntity) CmdKey() string       { return e.description.CmdKey }
func (e *ChannelEntity) Component() string    { return e.description.Component }
func (e *ChannelEntity) Channel() (int, bool) { return e.channel, true }

func (e *ChannelEntity) State() any {
	if e.description.Value == nil {
		return nil
	}
	return e.description.Value(e.host, e.channel)
}

// Attach registers the entity's update command scoped to its channel.
func (e *ChannelEntity) Attach() {
	if e.attached || e.removed {
		return
	}
	e.attached = true
	if e.description.CmdKey != "" {
		e.host.RegisterChannelUpdateCmd(e.description.CmdKey, e.channel)
	}
}

// Detach unregisters the channel-scoped command registered by Attach.
func (e *ChannelEntity) Detach() {
	if !e.attached || e.removed {
		return
	}
	e.removed = true
	e.attached = false
	if e.description.CmdKey != "" {
		e.host.UnregisterChannelUpdateCmd(e.description.CmdKey, e.channel)
	}
}
