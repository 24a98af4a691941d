package model

import "time"

// Camera stores the persisted registry row for one NVR channel.
type Camera struct {
	Channel     int        `json:"channel"`
	Name        string     `json:"name"`
	Model       string     `json:"model"`
	Firmware    string     `json:"firmware"`
	Online      bool       `json:"online"`
	FirstSeenAt time.Time  `json:"first_seen_at"`
	LastSeenAt  *time.Time `json:"last_seen_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CameraOverride stores user metadata layered over a channel registry row.
type CameraOverride struct {
	Channel   int       `json:"channel"`
	Name      *string   `json:"name,omitempty"`
	Icon      *string   `json:"icon,omitempty"`
	Comment   *string   `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CameraView is the API read model merging registry and override rows.
type CameraView struct {
	Channel     int        `json:"channel"`
	Name        string     `json:"name"`
	CustomName  *string    `json:"custom_name,omitempty"`
	Icon        *string    `json:"icon,omitempty"`
	Comment     *string    `json:"comment,omitempty"`
	Model       string     `json:"model"`
	Firmware    string     `json:"firmware"`
	Online      bool       `json:"online"`
	FirstSeenAt *time.Time `json:"first_seen_at,omitempty"`
	LastSeenAt  *time.Time `json:"last_seen_at,omitempty"`
}

// DisplayName prefers the user override over the device-reported name.
func (v CameraView) DisplayName() string {
	if v.CustomName != nil && *v.CustomName != "" {
		return *v.CustomName
	}
	return v.Name
}
