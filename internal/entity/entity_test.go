package entity

import (
	"fmt"
	"testing"

	"github.com/micro-ha/reolink-nvr/addon/internal/reolink"
)

// fakeHandle implements Handle in memory and records the interest
// registrations entities make against it.
type fakeHandle struct {
	uid       string
	mac       string
	name      string
	model     string
	isNVR     bool
	dualLens  bool
	session   bool
	channels  []int
	chanInfo  map[int]reolink.ChannelInfo
	chanState map[int]reolink.ChannelState
	hostState reolink.HostState

	hostRegs    map[string]int
	channelRegs map[string]int
}

func newFakeHandle() *fakeHandle {
	return &fakeHandle{
		uid:         "95270000ABCDEF",
		mac:         "aa:bb:cc:dd:ee:ff",
		name:        "Backyard NVR",
		model:       "RLN8-410",
		isNVR:       true,
		session:     true,
		channels:    []int{0, 1},
		chanInfo:    map[int]reolink.ChannelInfo{},
		chanState:   map[int]reolink.ChannelState{},
		hostRegs:    map[string]int{},
		channelRegs: map[string]int{},
	}
}

func (f *fakeHandle) UniqueID() string        { return f.uid }
func (f *fakeHandle) MACAddress() string      { return f.mac }
func (f *fakeHandle) Name() string            { return f.name }
func (f *fakeHandle) Model() string           { return f.model }
func (f *fakeHandle) Manufacturer() string    { return "Reolink" }
func (f *fakeHandle) HardwareVersion() string { return "IPC_1.0" }
func (f *fakeHandle) FirmwareVersion() string { return "v3.0.0.123" }
func (f *fakeHandle) Serial() string          { return "SN123456" }
func (f *fakeHandle) Addr() string            { return "192.168.1.10" }
func (f *fakeHandle) Port() int               { return 443 }
func (f *fakeHandle) UseHTTPS() bool          { return true }
func (f *fakeHandle) IsNVR() bool             { return f.isNVR }
func (f *fakeHandle) IsDualLens() bool        { return f.dualLens }
func (f *fakeHandle) SessionActive() bool     { return f.session }
func (f *fakeHandle) Channels() []int         { return f.channels }

func (f *fakeHandle) CameraName(channel int) string     { return f.chanInfo[channel].Name }
func (f *fakeHandle) CameraModel(channel int) string    { return f.chanInfo[channel].Model }
func (f *fakeHandle) CameraFirmware(channel int) string { return f.chanInfo[channel].Firmware }
func (f *fakeHandle) CameraOnline(channel int) bool     { return f.chanInfo[channel].Online }

func (f *fakeHandle) ChannelState(channel int) reolink.ChannelState { return f.chanState[channel] }
func (f *fakeHandle) HostState() reolink.HostState                  { return f.hostState }

func (f *fakeHandle) RegisterUpdateCmd(cmd string)   { f.hostRegs[cmd]++ }
func (f *fakeHandle) UnregisterUpdateCmd(cmd string) { f.hostRegs[cmd]-- }

func (f *fakeHandle) RegisterChannelUpdateCmd(cmd string, channel int) {
	f.channelRegs[fmt.Sprintf("%s/%d", cmd, channel)]++
}

func (f *fakeHandle) UnregisterChannelUpdateCmd(cmd string, channel int) {
	f.channelRegs[fmt.Sprintf("%s/%d", cmd, channel)]--
}

type fakeSource struct {
	success bool
}

func (f *fakeSource) LastUpdateSuccess() bool { return f.success }

func TestHostEntityUniqueID(t *testing.T) {
	h := newFakeHandle()
	e := NewHostEntity(h, &fakeSource{success: true}, HostEntityDescription{Key: "firmware"})

	if got, want := e.UniqueID(), "95270000ABCDEF_firmware"; got != want {
		t.Fatalf("unique id = %q, want %q", got, want)
	}

	// Same inputs must derive the same id.
	again := NewHostEntity(h, &fakeSource{success: true}, HostEntityDescription{Key: "firmware"})
	if again.UniqueID() != e.UniqueID() {
		t.Fatalf("unique id not deterministic: %q vs %q", again.UniqueID(), e.UniqueID())
	}
}

func TestChannelEntityUniqueID(t *testing.T) {
	h := newFakeHandle()
	e := NewChannelEntity(h, &fakeSource{success: true}, ChannelEntityDescription{Key: "motion"}, 3)

	if got, want := e.UniqueID(), "95270000ABCDEF_3_motion"; got != want {
		t.Fatalf("unique id = %q, want %q", got, want)
	}
}

func TestChannelEntityUniqueIDKeepsChannelOnDualLens(t *testing.T) {
	h := newFakeHandle()
	h.dualLens = true

	e := NewChannelEntity(h, &fakeSource{success: true}, ChannelEntityDescription{Key: "motion"}, 1)
	if got, want := e.UniqueID(), "95270000ABCDEF_1_motion"; got != want {
		t.Fatalf("unique id = %q, want %q; dual-lens folding must not leak into unique ids", got, want)
	}
	if got, want := e.DeviceInfo().Identifier, "95270000ABCDEF_ch0"; got != want {
		t.Fatalf("device identifier = %q, want %q", got, want)
	}
}

func TestHostDeviceInfo(t *testing.T) {
	h := newFakeHandle()
	info := HostDeviceInfo(h)

	if info.Identifier != h.uid {
		t.Errorf("identifier = %q, want %q", info.Identifier, h.uid)
	}
	if info.ViaDevice != "" {
		t.Errorf("host device must not carry a via relationship, got %q", info.ViaDevice)
	}
	if info.ConnectionMAC != h.mac {
		t.Errorf("connection mac = %q, want %q", info.ConnectionMAC, h.mac)
	}
	if want := "https://192.168.1.10:443"; info.ConfigurationURL != want {
		t.Errorf("configuration url = %q, want %q", info.ConfigurationURL, want)
	}
}

func TestChannelDeviceInfoOnNVR(t *testing.T) {
	h := newFakeHandle()
	h.chanInfo[1] = reolink.ChannelInfo{Name: "Driveway", Model: "RLC-810A", Firmware: "v3.1.0.9"}

	info := ChannelDeviceInfo(h, 1)

	if got, want := info.Identifier, "95270000ABCDEF_ch1"; got != want {
		t.Errorf("identifier = %q, want %q", got, want)
	}
	if info.ViaDevice != h.uid {
		t.Errorf("via device = %q, want %q", info.ViaDevice, h.uid)
	}
	if info.Name != "Driveway" {
		t.Errorf("name = %q, want Driveway", info.Name)
	}
	if info.ConnectionMAC != "" {
		t.Errorf("channel device must not claim the host mac, got %q", info.ConnectionMAC)
	}
}

func TestChannelDeviceInfoStandaloneCameraReusesHostIdentity(t *testing.T) {
	h := newFakeHandle()
	h.isNVR = false
	h.channels = []int{0}

	got := ChannelDeviceInfo(h, 0)
	want := HostDeviceInfo(h)
	if got != want {
		t.Fatalf("standalone camera channel identity = %+v, want host identity %+v", got, want)
	}
}

func TestChannelDeviceInfoDualLensFoldsToChannelZero(t *testing.T) {
	h := newFakeHandle()
	h.dualLens = true
	h.chanInfo[0] = reolink.ChannelInfo{Name: "TrackMix", Model: "TrackMix PoE"}
	h.chanInfo[1] = reolink.ChannelInfo{Name: "TrackMix tele", Model: "TrackMix PoE"}

	lens0 := ChannelDeviceInfo(h, 0)
	lens1 := ChannelDeviceInfo(h, 1)

	if lens0 != lens1 {
		t.Fatalf("dual-lens channels must share one identity: %+v vs %+v", lens0, lens1)
	}
	if got, want := lens1.Identifier, "95270000ABCDEF_ch0"; got != want {
		t.Errorf("identifier = %q, want %q", got, want)
	}
	if lens1.Name != "TrackMix" {
		t.Errorf("name = %q, want channel 0 name", lens1.Name)
	}
}

func TestHostEntityAttachDetachPairing(t *testing.T) {
	h := newFakeHandle()
	e := NewHostEntity(h, &fakeSource{success: true}, HostEntityDescription{
		Key:    "hdd_storage",
		CmdKey: reolink.CmdGetHddInfo,
	})

	e.Attach()
	e.Attach() // second call must be a no-op
	if h.hostRegs[reolink.CmdGetHddInfo] != 1 {
		t.Fatalf("register count = %d, want 1", h.hostRegs[reolink.CmdGetHddInfo])
	}

	e.Detach()
	e.Detach()
	if h.hostRegs[reolink.CmdGetHddInfo] != 0 {
		t.Fatalf("register count after detach = %d, want 0", h.hostRegs[reolink.CmdGetHddInfo])
	}

	// A removed entity must never re-register.
	e.Attach()
	if h.hostRegs[reolink.CmdGetHddInfo] != 0 {
		t.Fatalf("removed entity re-registered, count = %d", h.hostRegs[reolink.CmdGetHddInfo])
	}
}

func TestHostEntityDetachBeforeAttachIsNoop(t *testing.T) {
	h := newFakeHandle()
	e := NewHostEntity(h, &fakeSource{success: true}, HostEntityDescription{
		Key:    "hdd_storage",
		CmdKey: reolink.CmdGetHddInfo,
	})

	e.Detach()
	if h.hostRegs[reolink.CmdGetHddInfo] != 0 {
		t.Fatalf("detach before attach changed interest, count = %d", h.hostRegs[reolink.CmdGetHddInfo])
	}
	// Still allowed to attach afterwards since it was never attached.
	e.Attach()
	if h.hostRegs[reolink.CmdGetHddInfo] != 1 {
		t.Fatalf("register count = %d, want 1", h.hostRegs[reolink.CmdGetHddInfo])
	}
}

func TestChannelEntityAttachDetachScopedToChannel(t *testing.T) {
	h := newFakeHandle()
	e := NewChannelEntity(h, &fakeSource{success: true}, ChannelEntityDescription{
		Key:    "motion",
		CmdKey: reolink.CmdGetMdState,
	}, 1)

	e.Attach()
	if h.channelRegs["GetMdState/1"] != 1 {
		t.Fatalf("channel register count = %d, want 1", h.channelRegs["GetMdState/1"])
	}
	if h.channelRegs["GetMdState/0"] != 0 {
		t.Fatalf("interest leaked to another channel")
	}

	e.Detach()
	if h.channelRegs["GetMdState/1"] != 0 {
		t.Fatalf("channel register count after detach = %d, want 0", h.channelRegs["GetMdState/1"])
	}
}

func TestEntityWithoutCmdKeySkipsRegistration(t *testing.T) {
	h := newFakeHandle()
	e := NewHostEntity(h, &fakeSource{success: true}, HostEntityDescription{Key: "firmware"})

	e.Attach()
	e.Detach()
	if len(h.hostRegs) != 0 {
		t.Fatalf("entity without cmd key touched the interest set: %v", h.hostRegs)
	}
}

func TestAvailable(t *testing.T) {
	tests := []struct {
		name    string
		session bool
		success bool
		want    bool
	}{
		{"session and refresh ok", true, true, true},
		{"session down", false, true, false},
		{"refresh failed", true, false, false},
		{"both down", false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newFakeHandle()
			h.session = tt.session
			e := NewHostEntity(h, &fakeSource{success: tt.success}, HostEntityDescription{Key: "firmware"})
			if got := e.Available(); got != tt.want {
				t.Fatalf("available = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCatalogValues(t *testing.T) {
	h := newFakeHandle()
	h.chanState[0] = reolink.ChannelState{
		MotionDetected: true,
		AIStates:       map[string]bool{"people": true, "vehicle": false},
	}
	h.hostState = reolink.HostState{
		Storage: []reolink.HDDInfo{
			{Capacity: 1000, Used: 250},
			{Capacity: 1000, Used: 250},
		},
	}

	byKeyHost := map[string]HostEntityDescription{}
	for _, d := range HostDescriptions {
		byKeyHost[d.Key] = d
	}
	byKeyChannel := map[string]ChannelEntityDescription{}
	for _, d := range ChannelDescriptions {
		byKeyChannel[d.Key] = d
	}

	if got := byKeyChannel["motion"].Value(h, 0); got != true {
		t.Errorf("motion value = %v, want true", got)
	}
	if got := byKeyChannel["person"].Value(h, 0); got != true {
		t.Errorf("person value = %v, want true", got)
	}
	if !byKeyChannel["person"].Supported(h, 0) {
		t.Errorf("person should be supported on channel 0")
	}
	if byKeyChannel["person"].Supported(h, 1) {
		t.Errorf("person should not be supported on channel without ai state")
	}
	if byKeyChannel["pet"].Supported(h, 0) {
		t.Errorf("pet should not be supported without a dog_cat ai state")
	}
	if got := byKeyHost["hdd_storage"].Value(h); got != 25.0 {
		t.Errorf("hdd_storage value = %v, want 25.0", got)
	}
	if !byKeyHost["hdd_storage"].Supported(h) {
		t.Errorf("hdd_storage should be supported on an NVR")
	}
	h.isNVR = false
	if byKeyHost["hdd_storage"].Supported(h) {
		t.Errorf("hdd_storage should not be supported on a standalone camera")
	}
}
