package model

import "time"

const (
	EventTypeMotion  = "motion"
	EventTypeAI      = "ai"
	EventTypeOnline  = "online"
	EventTypeOffline = "offline"
)

// Event is one persisted state transition observed during a refresh.
type Event struct {
	ID         string    `json:"id"`
	Channel    int       `json:"channel"`
	Type       string    `json:"type"`
	Detail     string    `json:"detail,omitempty"`
	Active     bool      `json:"active"`
	ObservedAt time.Time `json:"observed_at"`
}
