package entity

import "github.com/micro-ha/reolink-nvr/addon/internal/reolink"

// Handle is the device-handle surface entities consume. Satisfied by
// *reolink.Host; tests substitute a fake.
type Handle interface {
	UniqueID() string
	MACAddress() string
	Name() string
	Model() string
	Manufacturer() string
	HardwareVersion() string
	FirmwareVersion() string
	Serial() string
	Addr() string
	Port() int
	UseHTTPS() bool
	IsNVR() bool
	IsDualLens() bool
	SessionActive() bool
	Channels() []int
	CameraName(channel int) string
	CameraModel(channel int) string
	CameraFirmware(channel int) string
	CameraOnline(channel int) bool
	ChannelState(channel int) reolink.ChannelState
	HostState() reolink.HostState
	RegisterUpdateCmd(cmd string)
	UnregisterUpdateCmd(cmd string)
	RegisterChannelUpdateCmd(cmd string, channel int)
	UnregisterChannelUpdateCmd(cmd string, channel int)
}

// Component names the Home Assistant platform an entity belongs to. It is
// only used for discovery topics and the API read model.
const (
	ComponentSensor       = "sensor"
	ComponentBinarySensor = "binary_sensor"
	ComponentSwitch       = "switch"
)

// HostEntityDescription describes one entity kind scoped to the NVR itself.
//
// CmdKey identifies the update command the entity depends on; an empty
// CmdKey means the entity needs no extra polling beyond the identity set.
// A nil Supported predicate means the entity is always supported.
type HostEntityDescription struct {
	Key       string
	Name      string
	Component string
	CmdKey    string
	Supported func(host Handle) bool
	Value     func(host Handle) any
}

// ChannelEntityDescription describes one entity kind scoped to a camera channel.
type ChannelEntityDescription struct {
	Key       string
	Name      string
	Component string
	CmdKey    string
	Supported func(host Handle, channel int) bool
	Value     func(host Handle, channel int) any
}
