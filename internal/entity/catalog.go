package entity

import (
	"github.com/micro-ha/reolink-nvr/addon/internal/reolink"
)

// HostDescriptions is the catalog of entities created once per device.
var HostDescriptions = []HostEntityDescription{
	{
		Key:       "firmware",
		Name:      "Firmware",
		Component: ComponentSensor,
		Value: func(host Handle) any {
			return host.FirmwareVersion()
		},
	},
	{
		Key:       "hdd_storage",
		Name:      "Storage used",
		Component: ComponentSensor,
		CmdKey:    reolink.CmdGetHddInfo,
		Supported: func(host Handle) bool {
			return host.IsNVR()
		},
		Value: func(host Handle) any {
			var capacity, used uint64
			for _, hdd := range host.HostState().Storage {
				capacity += hdd.Capacity
				used += hdd.Used
			}
			if capacity == 0 {
				return nil
			}
			return float64(used) / float64(capacity) * 100
		},
	},
}

// ChannelDescriptions is the catalog of entities created per camera channel.
var ChannelDescriptions = []ChannelEntityDescription{
	{
		Key:       "motion",
		Name:      "Motion",
		Component: ComponentBinarySensor,
		CmdKey:    reolink.CmdGetMdState,
		Value: func(host Handle, channel int) any {
			return host.ChannelState(channel).MotionDetected
		},
	},
	{
		Key:       "person",
		Name:      "Person",
		Component: ComponentBinarySensor,
		CmdKey:    reolink.CmdGetAiState,
		Supported: aiTypeSupported("people"),
		Value:     aiTypeValue("people"),
	},
	{
		Key:       "vehicle",
		Name:      "Vehicle",
		Component: ComponentBinarySensor,
		CmdKey:    reolink.CmdGetAiState,
		Supported: aiTypeSupported("vehicle"),
		Value:     aiTypeValue("vehicle"),
	},
	{
		Key:       "pet",
		Name:      "Pet",
		Component: ComponentBinarySensor,
		CmdKey:    reolink.CmdGetAiState,
		Supported: aiTypeSupported("dog_cat"),
		Value:     aiTypeValue("dog_cat"),
	},
	{
		Key:       "ir_lights",
		Name:      "Infrared lights",
		Component: ComponentSensor,
		CmdKey:    reolink.CmdGetIrLights,
		Value: func(host Handle, channel int) any {
			return host.ChannelState(channel).IRLightsMode
		},
	},
	{
		Key:       "recording",
		Name:      "Recording",
		Component: ComponentBinarySensor,
		CmdKey:    reolink.CmdGetRec,
		Value: func(host Handle, channel int) any {
			return host.ChannelState(channel).RecordingEnabled
		},
	},
}

// aiTypeSupported gates AI entities on the detection types the camera
// reported on the last refresh. Channels that never reported the type get
// no entity.
func aiTypeSupported(aiType string) func(Handle, int) bool {
	return func(host Handle, channel int) bool {
		_, ok := host.ChannelState(channel).AIStates[aiType]
		return ok
	}
}

func aiTypeValue(aiType string) func(Handle, int) any {
	return func(host Handle, channel int) any {
		return host.ChannelState(channel).AIStates[aiType]
	}
}
