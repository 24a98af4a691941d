package reolink

import "time"

// DeviceIdentity holds the static identity fields reported by the device.
type DeviceIdentity struct {
	Name            string
	Model           string
	HardwareVersion string
	SoftwareVersion string
	Serial          string
	UID             string
	MAC             string
	ChannelCount    int
	DeviceType      string
}

// ChannelInfo holds per-channel camera metadata from the channel status command.
type ChannelInfo struct {
	Channel  int
	Name     string
	Model    string
	Firmware string
	Online   bool
}

// ChannelState holds the per-channel dynamic state updated on each refresh.
type ChannelState struct {
	MotionDetected   bool
	AIStates         map[string]bool
	IRLightsMode     string
	WhiteLedOn       bool
	RecordingEnabled bool
	AudioAlarmOn     bool
	UpdatedAt        time.Time
}

// HDDInfo describes one storage device attached to the host.
type HDDInfo struct {
	ID          int
	Capacity    uint64
	Used        uint64
	Formatted   bool
	StorageType string
}

// HostState holds host-scoped dynamic state updated on each refresh.
type HostState struct {
	Storage   []HDDInfo
	UpdatedAt time.Time
}

// wire envelopes for /api.cgi command batches

type commandRequest struct {
	Cmd    string `json:"cmd"`
	Action int    `json:"action"`
	Param  any    `json:"param,omitempty"`
}

type commandResponse struct {
	Cmd   string        `json:"cmd"`
	Code  int           `json:"code"`
	Value rawValue      `json:"value,omitempty"`
	Error *commandError `json:"error,omitempty"`
}

type commandError struct {
	RspCode int    `json:"rspCode"`
	Detail  string `json:"detail"`
}

type rawValue []byte

func (v *rawValue) UnmarshalJSON(data []byte) error {
	*v = append((*v)[:0], data...)
	return nil
}

func (v rawValue) MarshalJSON() ([]byte, error) {
	if len(v) == 0 {
		return []byte("null"), nil
	}
	return v, nil
}
