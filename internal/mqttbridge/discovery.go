package mqttbridge

import (
	"encoding/json"
	"fmt"

	"github.com/micro-ha/reolink-nvr/addon/internal/entity"
)

// discoveryDevice is the device block of a Home Assistant discovery config.
type discoveryDevice struct {
	Identifiers      []string    `json:"identifiers"`
	Connections      [][2]string `json:"connections,omitempty"`
	ViaDevice        string      `json:"via_device,omitempty"`
	Name             string      `json:"name"`
	Model            string      `json:"model,omitempty"`
	Manufacturer     string      `json:"manufacturer,omitempty"`
	HwVersion        string      `json:"hw_version,omitempty"`
	SwVersion        string      `json:"sw_version,omitempty"`
	SerialNumber     string      `json:"serial_number,omitempty"`
	ConfigurationURL string      `json:"configuration_url,omitempty"`
}

// discoveryConfig is a Home Assistant MQTT discovery entity config.
type discoveryConfig struct {
	Name              string          `json:"name"`
	UniqueID          string          `json:"unique_id"`
	StateTopic        string          `json:"state_topic"`
	AvailabilityTopic string          `json:"availability_topic"`
	PayloadOn         string          `json:"payload_on,omitempty"`
	PayloadOff        string          `json:"payload_off,omitempty"`
	Device            discoveryDevice `json:"device"`
}

func discoveryPayload(e entity.Entity, stateTopic, availabilityTopic string) ([]byte, error) {
	info := e.DeviceInfo()
	device := discoveryDevice{
		Identifiers:      []string{info.Identifier},
		ViaDevice:        info.ViaDevice,
		Name:             info.Name,
		Model:            info.Model,
		Manufacturer:     info.Manufacturer,
		HwVersion:        info.HardwareVersion,
		SwVersion:        info.FirmwareVersion,
		SerialNumber:     info.SerialNumber,
		ConfigurationURL: info.ConfigurationURL,
	}
	if info.ConnectionMAC != "" {
		device.Connections = [][2]string{{"mac", info.ConnectionMAC}}
	}

	config := discoveryConfig{
		Name:              e.Name(),
		UniqueID:          e.UniqueID(),
		StateTopic:        stateTopic,
		AvailabilityTopic: availabilityTopic,
		Device:            device,
	}
	if e.Component() == entity.ComponentBinarySensor || e.Component() == entity.ComponentSwitch {
		config.PayloadOn = "ON"
		config.PayloadOff = "OFF"
	}
	return json.Marshal(config)
}

// statePayload renders the entity state for its state topic. Booleans map to
// the HA binary payloads, nil to "unknown".
func statePayload(e entity.Entity) string {
	switch value := e.State().(type) {
	case nil:
		return "unknown"
	case bool:
		if value {
			return "ON"
		}
		return "OFF"
	case string:
		if value == "" {
			return "unknown"
		}
		return value
	case float64:
		return fmt.Sprintf("%.1f", value)
	default:
		return fmt.Sprintf("%v", value)
	}
}
