package mqttbridge

import (
	"encoding/json"
	"testing"

	"github.com/micro-ha/reolink-nvr/addon/internal/entity"
)

// stubEntity implements entity.Entity with fixed values.
type stubEntity struct {
	uniqueID  string
	key       string
	name      string
	component string
	channel   *int
	state     any
	device    entity.DeviceInfo
}

func (e *stubEntity) UniqueID() string  { return e.uniqueID }
func (e *stubEntity) Key() string       { return e.key }
func (e *stubEntity) Name() string      { return e.name }
func (e *stubEntity) CmdKey() string    { return "" }
func (e *stubEntity) Component() string { return e.component }
func (e *stubEntity) Channel() (int, bool) {
	if e.channel == nil {
		return 0, false
	}
	return *e.channel, true
}
func (e *stubEntity) DeviceInfo() entity.DeviceInfo { return e.device }
func (e *stubEntity) Available() bool               { return true }
func (e *stubEntity) State() any                    { return e.state }
func (e *stubEntity) Attach()                       {}
func (e *stubEntity) Detach()                       {}

func TestDiscoveryPayloadBinarySensor(t *testing.T) {
	ch := 1
	e := &stubEntity{
		uniqueID:  "UID0001_1_motion",
		key:       "motion",
		name:      "Motion",
		component: entity.ComponentBinarySensor,
		channel:   &ch,
		device: entity.DeviceInfo{
			Identifier:   "UID0001_ch1",
			ViaDevice:    "UID0001",
			Name:         "Driveway",
			Model:        "RLC-810A",
			Manufacturer: "Reolink",
		},
	}

	payload, err := discoveryPayload(e, "reolink_nvr/UID0001_1_motion/state", "reolink_nvr/availability")
	if err != nil {
		t.Fatalf("payload: %v", err)
	}

	var config map[string]any
	if err := json.Unmarshal(payload, &config); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if config["unique_id"] != "UID0001_1_motion" {
		t.Errorf("unique_id = %v", config["unique_id"])
	}
	if config["state_topic"] != "reolink_nvr/UID0001_1_motion/state" {
		t.Errorf("state_topic = %v", config["state_topic"])
	}
	if config["availability_topic"] != "reolink_nvr/availability" {
		t.Errorf("availability_topic = %v", config["availability_topic"])
	}
	if config["payload_on"] != "ON" || config["payload_off"] != "OFF" {
		t.Errorf("binary sensor payloads = %v/%v", config["payload_on"], config["payload_off"])
	}

	device, ok := config["device"].(map[string]any)
	if !ok {
		t.Fatalf("device block missing: %v", config)
	}
	if device["via_device"] != "UID0001" {
		t.Errorf("via_device = %v", device["via_device"])
	}
	if _, ok := device["connections"]; ok {
		t.Errorf("channel device must not carry connections: %v", device)
	}
}

func TestDiscoveryPayloadHostSensor(t *testing.T) {
	e := &stubEntity{
		uniqueID:  "UID0001_firmware",
		key:       "firmware",
		name:      "Firmware",
		component: entity.ComponentSensor,
		device: entity.DeviceInfo{
			Identifier:    "UID0001",
			ConnectionMAC: "aa:bb:cc:dd:ee:ff",
			Name:          "Backyard NVR",
		},
	}

	payload, err := discoveryPayload(e, "s", "a")
	if err != nil {
		t.Fatalf("payload: %v", err)
	}

	var config map[string]any
	if err := json.Unmarshal(payload, &config); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := config["payload_on"]; ok {
		t.Errorf("plain sensor must not set payload_on")
	}

	device := config["device"].(map[string]any)
	connections, ok := device["connections"].([]any)
	if !ok || len(connections) != 1 {
		t.Fatalf("connections = %v", device["connections"])
	}
	pair := connections[0].([]any)
	if pair[0] != "mac" || pair[1] != "aa:bb:cc:dd:ee:ff" {
		t.Errorf("connection pair = %v", pair)
	}
}

func TestStatePayload(t *testing.T) {
	tests := []struct {
		name  string
		state any
		want  string
	}{
		{"true bool", true, "ON"},
		{"false bool", false, "OFF"},
		{"nil", nil, "unknown"},
		{"empty string", "", "unknown"},
		{"string", "Auto", "Auto"},
		{"percentage", 42.25, "42.2"},
		{"int", 7, "7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &stubEntity{state: tt.state}
			if got := statePayload(e); got != tt.want {
				t.Errorf("statePayload(%v) = %q, want %q", tt.state, got, tt.want)
			}
		})
	}
}

func TestTopics(t *testing.T) {
	b := &Bridge{opts: Options{TopicPrefix: "reolink_nvr", DiscoveryPrefix: "homeassistant"}}
	e := &stubEntity{uniqueID: "UID0001_0_motion", component: entity.ComponentBinarySensor}

	if got, want := b.AvailabilityTopic(), "reolink_nvr/availability"; got != want {
		t.Errorf("availability topic = %q, want %q", got, want)
	}
	if got, want := b.stateTopic(e), "reolink_nvr/UID0001_0_motion/state"; got != want {
		t.Errorf("state topic = %q, want %q", got, want)
	}
	if got, want := b.configTopic(e), "homeassistant/binary_sensor/UID0001_0_motion/config"; got != want {
		t.Errorf("config topic = %q, want %q", got, want)
	}
}
