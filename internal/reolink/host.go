package reolink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/micro-ha/reolink-nvr/addon/internal/model"
)

// hostScope marks an update command registered without a channel.
const hostScope = -1

// Host is the live device handle for one NVR or standalone camera session.
//
// It owns the command interest set: entities register the update commands
// they need while attached, and Refresh only requests commands somebody is
// interested in. Registration is reference-counted local bookkeeping and
// never fails; unregistering a command that was never registered is a no-op.
type Host struct {
	client *client
	logger *slog.Logger

	addr     string
	port     int
	useHTTPS bool

	mu            sync.RWMutex
	identity      DeviceIdentity
	channels      map[int]ChannelInfo
	channelStates map[int]ChannelState
	hostState     HostState
	sessionActive bool
	interest      map[interestKey]int
}

type interestKey struct {
	cmd     string
	channel int
}

// CommandInterest is one active interest-set entry exposed for polling.
type CommandInterest struct {
	Cmd     string
	Channel int
	Host    bool
}

// NewHost builds an unconnected device handle from integration config.
// Passing a nil httpClient uses a default client with timeouts.
func NewHost(cfg model.NVRConfig, logger *slog.Logger, httpClient *http.Client) *Host {
	if logger == nil {
		logger = slog.Default()
	}
	return &Host{
		client:        newClient(cfg, httpClient),
		logger:        logger,
		addr:          cfg.Host,
		port:          cfg.EffectivePort(),
		useHTTPS:      cfg.UseHTTPS,
		channels:      map[int]ChannelInfo{},
		channelStates: map[int]ChannelState{},
		interest:      map[interestKey]int{},
	}
}

// Connect logs in and loads the static identity plus the channel registry.
func (h *Host) Connect(ctx context.Context) error {
	if err := h.client.login(ctx); err != nil {
		h.setSessionActive(false)
		return err
	}

	responses, err := h.client.do(ctx, []commandRequest{
		{Cmd: CmdGetDevInfo, Action: 0},
		{Cmd: CmdGetLocalLink, Action: 0},
		{Cmd: CmdGetP2P, Action: 0},
		{Cmd: CmdGetChannelStatus, Action: 0},
	})
	if err != nil {
		h.setSessionActive(false)
		return fmt.Errorf("load identity: %w", err)
	}

	identity, err := parseIdentity(responses)
	if err != nil {
		h.setSessionActive(false)
		return err
	}

	h.mu.Lock()
	h.identity = identity
	h.mu.Unlock()
	if err := h.applyChannelStatus(responses[3].Value); err != nil {
		h.setSessionActive(false)
		return err
	}

	h.probeAISupport(ctx)

	h.setSessionActive(true)
	h.logger.Info("device connected",
		"model", identity.Model,
		"uid", identity.UID,
		"channels", identity.ChannelCount,
	)
	return nil
}

// probeAISupport asks each channel for its AI detection types once, so the
// entity setup can decide AI entity support before any interest exists.
// Channels without AI capability answer with an error and are skipped.
func (h *Host) probeAISupport(ctx context.Context) {
	for _, ch := range h.Channels() {
		responses, err := h.client.do(ctx, []commandRequest{{
			Cmd:    CmdGetAiState,
			Action: 0,
			Param:  map[string]any{"channel": ch},
		}})
		if err != nil {
			continue
		}
		if err := h.applyAiState(ch, responses[0].Value); err != nil {
			h.logger.Debug("ai probe decode failed", "channel", ch, "err", err)
		}
	}
}

// Close logs out and marks the session inactive.
func (h *Host) Close(ctx context.Context) error {
	h.setSessionActive(false)
	return h.client.logout(ctx)
}

// Refresh requests the channel registry plus every command in the interest
// set and applies the results. An auth failure triggers one re-login before
// the refresh is reported as failed.
func (h *Host) Refresh(ctx context.Context) error {
	if !h.client.loggedIn() {
		return ErrNotConnected
	}

	batch := h.buildRefreshBatch()
	responses, err := h.client.do(ctx, batch)
	if IsAuthError(err) {
		h.setSessionActive(false)
		if loginErr := h.client.login(ctx); loginErr != nil {
			return loginErr
		}
		responses, err = h.client.do(ctx, batch)
	}
	if err != nil {
		h.setSessionActive(false)
		return err
	}

	for i := range batch {
		if applyErr := h.applyResponse(batch[i], responses[i]); applyErr != nil {
			h.logger.Warn("apply refresh response failed", "cmd", batch[i].Cmd, "err", applyErr)
		}
	}
	h.setSessionActive(true)
	return nil
}

func (h *Host) buildRefreshBatch() []commandRequest {
	batch := []commandRequest{{Cmd: CmdGetChannelStatus, Action: 0}}
	for _, interest := range h.ActiveCommands() {
		if interest.Host {
			batch = append(batch, commandRequest{Cmd: interest.Cmd, Action: 0})
			continue
		}
		batch = append(batch, commandRequest{
			Cmd:    interest.Cmd,
			Action: 0,
			Param:  map[string]any{"channel": interest.Channel},
		})
	}
	return batch
}

// RegisterUpdateCmd adds a host-scoped command to the interest set.
func (h *Host) RegisterUpdateCmd(cmd string) {
	h.registerInterest(interestKey{cmd: cmd, channel: hostScope})
}

// UnregisterUpdateCmd removes a host-scoped command from the interest set.
func (h *Host) UnregisterUpdateCmd(cmd string) {
	h.unregisterInterest(interestKey{cmd: cmd, channel: hostScope})
}

// RegisterChannelUpdateCmd adds a channel-scoped command to the interest set.
func (h *Host) RegisterChannelUpdateCmd(cmd string, channel int) {
	h.registerInterest(interestKey{cmd: cmd, channel: channel})
}

// UnregisterChannelUpdateCmd removes a channel-scoped command from the interest set.
func (h *Host) UnregisterChannelUpdateCmd(cmd string, channel int) {
	h.unregisterInterest(interestKey{cmd: cmd, channel: channel})
}

func (h *Host) registerInterest(key interestKey) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.interest[key]++
}

func (h *Host) unregisterInterest(key interestKey) {
	h.mu.Lock()
	defer h.mu.Unlock()
	count, ok := h.interest[key]
	if !ok {
		return
	}
	if count <= 1 {
		delete(h.interest, key)
		return
	}
	h.interest[key] = count - 1
}

// ActiveCommands returns the interest set in deterministic order.
func (h *Host) ActiveCommands() []CommandInterest {
	h.mu.RLock()
	defer h.mu.RUnlock()

	interests := make([]CommandInterest, 0, len(h.interest))
	for key := range h.interest {
		interests = append(interests, CommandInterest{
			Cmd:     key.cmd,
			Channel: key.channel,
			Host:    key.channel == hostScope,
		})
	}
	sort.Slice(interests, func(i, j int) bool {
		if interests[i].Cmd != interests[j].Cmd {
			return interests[i].Cmd < interests[j].Cmd
		}
		return interests[i].Channel < interests[j].Channel
	})
	return interests
}

// identity and state accessors

func (h *Host) Addr() string         { return h.addr }
func (h *Host) Port() int            { return h.port }
func (h *Host) UseHTTPS() bool       { return h.useHTTPS }
func (h *Host) Manufacturer() string { return "Reolink" }

func (h *Host) UniqueID() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.identity.UID
}

func (h *Host) MACAddress() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.identity.MAC
}

func (h *Host) Name() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.identity.Name
}

func (h *Host) Model() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.identity.Model
}

func (h *Host) HardwareVersion() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.identity.HardwareVersion
}

func (h *Host) FirmwareVersion() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.identity.SoftwareVersion
}

func (h *Host) Serial() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.identity.Serial
}

// IsNVR reports whether the device is a recorder rather than a single camera.
// A camera connected directly is a one-channel device of a camera type.
func (h *Host) IsNVR() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.identity.DeviceType == "NVR" || h.identity.DeviceType == "WIFI_NVR" || h.identity.ChannelCount > 1
}

// IsDualLens reports whether channels fold onto channel 0 for device identity.
func (h *Host) IsDualLens() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := dualLensModels[h.identity.Model]
	return ok
}

func (h *Host) SessionActive() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sessionActive
}

func (h *Host) setSessionActive(active bool) {
	h.mu.Lock()
	h.sessionActive = active
	h.mu.Unlock()
}

// Channels returns the known channel indexes in ascending order.
func (h *Host) Channels() []int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	channels := make([]int, 0, len(h.channels))
	for ch := range h.channels {
		channels = append(channels, ch)
	}
	sort.Ints(channels)
	return channels
}

// ChannelInfo returns the registry row for one channel.
func (h *Host) ChannelInfo(channel int) (ChannelInfo, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	info, ok := h.channels[channel]
	return info, ok
}

func (h *Host) CameraName(channel int) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.channels[channel].Name
}

func (h *Host) CameraModel(channel int) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.channels[channel].Model
}

func (h *Host) CameraFirmware(channel int) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.channels[channel].Firmware
}

func (h *Host) CameraOnline(channel int) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.channels[channel].Online
}

// ChannelState returns the last refreshed dynamic state for one channel.
func (h *Host) ChannelState(channel int) ChannelState {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.channelStates[channel]
}

// HostState returns the last refreshed host-scoped state.
func (h *Host) HostState() HostState {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.hostState
}

// response application

func parseIdentity(responses []commandResponse) (DeviceIdentity, error) {
	var devInfo struct {
		DevInfo struct {
			Name       string `json:"name"`
			Model      string `json:"model"`
			HardVer    string `json:"hardVer"`
			FirmVer    string `json:"firmVer"`
			Serial     string `json:"serial"`
			ChannelNum int    `json:"channelNum"`
			Type       string `json:"type"`
			ExactType  string `json:"exactType"`
		} `json:"DevInfo"`
	}
	if err := json.Unmarshal(responses[0].Value, &devInfo); err != nil {
		return DeviceIdentity{}, fmt.Errorf("decode DevInfo: %w", err)
	}

	var localLink struct {
		LocalLink struct {
			MAC string `json:"mac"`
		} `json:"LocalLink"`
	}
	if err := json.Unmarshal(responses[1].Value, &localLink); err != nil {
		return DeviceIdentity{}, fmt.Errorf("decode LocalLink: %w", err)
	}

	var p2p struct {
		P2P struct {
			UID string `json:"uid"`
		} `json:"P2p"`
	}
	if err := json.Unmarshal(responses[2].Value, &p2p); err != nil {
		return DeviceIdentity{}, fmt.Errorf("decode P2p: %w", err)
	}

	deviceType := devInfo.DevInfo.ExactType
	if deviceType == "" {
		deviceType = devInfo.DevInfo.Type
	}
	return DeviceIdentity{
		Name:            devInfo.DevInfo.Name,
		Model:           devInfo.DevInfo.Model,
		HardwareVersion: devInfo.DevInfo.HardVer,
		SoftwareVersion: devInfo.DevInfo.FirmVer,
		Serial:          devInfo.DevInfo.Serial,
		UID:             p2p.P2P.UID,
		MAC:             localLink.LocalLink.MAC,
		ChannelCount:    devInfo.DevInfo.ChannelNum,
		DeviceType:      deviceType,
	}, nil
}

func (h *Host) applyResponse(req commandRequest, resp commandResponse) error {
	channel := hostScope
	if param, ok := req.Param.(map[string]any); ok {
		if ch, ok := param["channel"].(int); ok {
			channel = ch
		}
	}

	switch req.Cmd {
	case CmdGetChannelStatus:
		return h.applyChannelStatus(resp.Value)
	case CmdGetMdState:
		return h.applyMdState(channel, resp.Value)
	case CmdGetAiState:
		return h.applyAiState(channel, resp.Value)
	case CmdGetIrLights:
		return h.applyIrLights(channel, resp.Value)
	case CmdGetWhiteLed:
		return h.applyWhiteLed(channel, resp.Value)
	case CmdGetRec:
		return h.applyRec(channel, resp.Value)
	case CmdGetAudioAlarm:
		return h.applyAudioAlarm(channel, resp.Value)
	case CmdGetHddInfo:
		return h.applyHddInfo(resp.Value)
	default:
		// Commands without a local state projection are requested only to
		// keep the device-side push subscription warm.
		return nil
	}
}

func (h *Host) applyChannelStatus(value rawValue) error {
	var payload struct {
		Count  int `json:"count"`
		Status []struct {
			Channel  int    `json:"channel"`
			Name     string `json:"name"`
			Online   int    `json:"online"`
			TypeInfo string `json:"typeInfo"`
			FirmVer  string `json:"firmVer"`
		} `json:"status"`
	}
	if err := json.Unmarshal(value, &payload); err != nil {
		return fmt.Errorf("decode Channelstatus: %w", err)
	}

	channels := make(map[int]ChannelInfo, len(payload.Status))
	for _, status := range payload.Status {
		channels[status.Channel] = ChannelInfo{
			Channel:  status.Channel,
			Name:     status.Name,
			Model:    status.TypeInfo,
			Firmware: status.FirmVer,
			Online:   status.Online != 0,
		}
	}

	h.mu.Lock()
	h.channels = channels
	h.mu.Unlock()
	return nil
}

func (h *Host) applyMdState(channel int, value rawValue) error {
	var payload struct {
		State int `json:"state"`
	}
	if err := json.Unmarshal(value, &payload); err != nil {
		return fmt.Errorf("decode MdState: %w", err)
	}
	h.updateChannelState(channel, func(state *ChannelState) {
		state.MotionDetected = payload.State != 0
	})
	return nil
}

func (h *Host) applyAiState(channel int, value rawValue) error {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(value, &payload); err != nil {
		return fmt.Errorf("decode AiState: %w", err)
	}

	states := map[string]bool{}
	for key, raw := range payload {
		if key == "channel" {
			continue
		}
		var detection struct {
			AlarmState int `json:"alarm_state"`
			Support    int `json:"support"`
		}
		if err := json.Unmarshal(raw, &detection); err != nil {
			continue
		}
		if detection.Support != 0 {
			states[key] = detection.AlarmState != 0
		}
	}
	h.updateChannelState(channel, func(state *ChannelState) {
		state.AIStates = states
	})
	return nil
}

func (h *Host) applyIrLights(channel int, value rawValue) error {
	var payload struct {
		IrLights struct {
			State string `json:"state"`
		} `json:"IrLights"`
	}
	if err := json.Unmarshal(value, &payload); err != nil {
		return fmt.Errorf("decode IrLights: %w", err)
	}
	h.updateChannelState(channel, func(state *ChannelState) {
		state.IRLightsMode = payload.IrLights.State
	})
	return nil
}

func (h *Host) applyWhiteLed(channel int, value rawValue) error {
	var payload struct {
		WhiteLed struct {
			State int `json:"state"`
		} `json:"WhiteLed"`
	}
	if err := json.Unmarshal(value, &payload); err != nil {
		return fmt.Errorf("decode WhiteLed: %w", err)
	}
	h.updateChannelState(channel, func(state *ChannelState) {
		state.WhiteLedOn = payload.WhiteLed.State != 0
	})
	return nil
}

func (h *Host) applyRec(channel int, value rawValue) error {
	var payload struct {
		Rec struct {
			Schedule struct {
				Enable int `json:"enable"`
			} `json:"schedule"`
		} `json:"Rec"`
	}
	if err := json.Unmarshal(value, &payload); err != nil {
		return fmt.Errorf("decode Rec: %w", err)
	}
	h.updateChannelState(channel, func(state *ChannelState) {
		state.RecordingEnabled = payload.Rec.Schedule.Enable != 0
	})
	return nil
}

func (h *Host) applyAudioAlarm(channel int, value rawValue) error {
	var payload struct {
		Audio struct {
			Schedule struct {
				Enable int `json:"enable"`
			} `json:"schedule"`
		} `json:"Audio"`
	}
	if err := json.Unmarshal(value, &payload); err != nil {
		return fmt.Errorf("decode AudioAlarm: %w", err)
	}
	h.updateChannelState(channel, func(state *ChannelState) {
		state.AudioAlarmOn = payload.Audio.Schedule.Enable != 0
	})
	return nil
}

func (h *Host) applyHddInfo(value rawValue) error {
	var payload struct {
		HddInfo []struct {
			ID          int    `json:"id"`
			Capacity    uint64 `json:"capacity"`
			Size        uint64 `json:"size"`
			Format      int    `json:"format"`
			StorageType string `json:"storageType"`
		} `json:"HddInfo"`
	}
	if err := json.Unmarshal(value, &payload); err != nil {
		return fmt.Errorf("decode HddInfo: %w", err)
	}

	storage := make([]HDDInfo, 0, len(payload.HddInfo))
	for _, hdd := range payload.HddInfo {
		used := uint64(0)
		if hdd.Capacity >= hdd.Size {
			used = hdd.Capacity - hdd.Size
		}
		storage = append(storage, HDDInfo{
			ID:          hdd.ID,
			Capacity:    hdd.Capacity,
			Used:        used,
			Formatted:   hdd.Format != 0,
			StorageType: hdd.StorageType,
		})
	}

	h.mu.Lock()
	h.hostState = HostState{Storage: storage, UpdatedAt: time.Now().UTC()}
	h.mu.Unlock()
	return nil
}

func (h *Host) updateChannelState(channel int, apply func(*ChannelState)) {
	if channel == hostScope {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	state := h.channelStates[channel]
	apply(&state)
	state.UpdatedAt = time.Now().UTC()
	h.channelStates[channel] = state
}
