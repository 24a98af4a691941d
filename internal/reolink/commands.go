package reolink

// Update command keys understood by the device API. Entities register the
// commands they depend on; Refresh only requests commands with active
// registrations beyond the always-on identity set.
const (
	CmdGetDevInfo       = "GetDevInfo"
	CmdGetLocalLink     = "GetLocalLink"
	CmdGetP2P           = "GetP2p"
	CmdGetChannelStatus = "GetChannelstatus"

	CmdGetMdState    = "GetMdState"
	CmdGetAiState    = "GetAiState"
	CmdGetIrLights   = "GetIrLights"
	CmdGetWhiteLed   = "GetWhiteLed"
	CmdGetRec        = "GetRec"
	CmdGetEmail      = "GetEmail"
	CmdGetFtp        = "GetFtp"
	CmdGetPush       = "GetPush"
	CmdGetAudioAlarm = "GetAudioAlarm"
	CmdGetHddInfo    = "GetHddInfo"
	CmdGetPtzGuard   = "GetPtzGuard"
	CmdGetZoomFocus  = "GetZoomFocus"
)

// dualLensModels lists camera models exposing two lenses as two channels
// that belong to one physical device.
var dualLensModels = map[string]struct{}{
	"Reolink Duo PoE":       {},
	"Reolink Duo WiFi":      {},
	"Reolink Duo 2 POE":     {},
	"Reolink Duo 2 WiFi":    {},
	"Reolink TrackMix PoE":  {},
	"Reolink TrackMix WiFi": {},
}

// IsDualLensModel reports whether the model folds all channels onto channel 0.
func IsDualLensModel(model string) bool {
	_, ok := dualLensModels[model]
	return ok
}
