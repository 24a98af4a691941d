package entity

import "fmt"

// DeviceInfo is the stable identity record handed to the device registry
// and embedded in MQTT discovery payloads.
type DeviceInfo struct {
	Identifier       string `json:"identifier"`
	ViaDevice        string `json:"via_device,omitempty"`
	ConnectionMAC    string `json:"connection_mac,omitempty"`
	Name             string `json:"name"`
	Model            string `json:"model,omitempty"`
	Manufacturer     string `json:"manufacturer,omitempty"`
	HardwareVersion  string `json:"hw_version,omitempty"`
	FirmwareVersion  string `json:"sw_version,omitempty"`
	SerialNumber     string `json:"serial_number,omitempty"`
	ConfigurationURL string `json:"configuration_url,omitempty"`
}

// HostDeviceInfo derives the identity record for the NVR or standalone camera.
// Derivation is pure; every field comes from already-validated handle state.
func HostDeviceInfo(host Handle) DeviceInfo {
	return DeviceInfo{
		Identifier:       host.UniqueID(),
		ConnectionMAC:    host.MACAddress(),
		Name:             host.Name(),
		Model:            host.Model(),
		Manufacturer:     host.Manufacturer(),
		HardwareVersion:  host.HardwareVersion(),
		FirmwareVersion:  host.FirmwareVersion(),
		SerialNumber:     host.Serial(),
		ConfigurationURL: configurationURL(host),
	}
}

// ChannelDeviceInfo derives the identity record for one camera channel.
//
// On an NVR the channel gets its own identity namespaced under the host with
// a via relationship to it. Dual-lens cameras expose two channels that are
// one physical device, so their identity folds onto channel 0. A camera
// connected directly (no NVR) reuses the host identity unchanged.
func ChannelDeviceInfo(host Handle, channel int) DeviceInfo {
	if !host.IsNVR() {
		return HostDeviceInfo(host)
	}

	devCh := channel
	if host.IsDualLens() {
		devCh = 0
	}

	return DeviceInfo{
		Identifier:       fmt.Sprintf("%s_ch%d", host.UniqueID(), devCh),
		ViaDevice:        host.UniqueID(),
		Name:             host.CameraName(devCh),
		Model:            host.CameraModel(devCh),
		Manufacturer:     host.Manufacturer(),
		FirmwareVersion:  host.CameraFirmware(devCh),
		ConfigurationURL: configurationURL(host),
	}
}

func configurationURL(host Handle) string {
	scheme := "http"
	if host.UseHTTPS() {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, host.Addr(), host.Port())
}
