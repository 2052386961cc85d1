package models

import (
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/gravitas-games/irongrid/internal/tilebatch"
)

// Viewer represents a client watching and editing the shared terrain
type Viewer struct {
	// From JWT claims
	ID          string `json:"id"`          // Converted from int64 user_id
	Username    string `json:"username"`    // JWT claim
	Email       string `json:"email"`       // JWT claim
	Permissions int64  `json:"permissions"` // JWT claim: bitwise permission flags
	Activated   int64  `json:"activated"`   // JWT claim: activation timestamp or ban status
	AuthMethod  string `json:"auth_method"` // JWT claim: "password", "oauth" or "anonymous"

	// Connection state
	Connected   bool      `json:"connected"`
	ConnectedAt time.Time `json:"connected_at"`
	LastSeen    time.Time `json:"last_seen"`

	// Session state
	SessionID string `json:"session_id"`

	// Color used for the viewer's colonizers
	Color tilebatch.Color `json:"color"`
}

// NewViewer returns a viewer with a color derived from its ID
func NewViewer(id, username string) *Viewer {
	return &Viewer{
		ID:       id,
		Username: username,
		Color:    ColorFor(id),
	}
}

// Anonymous returns an activated viewer for servers running without auth
func Anonymous(id string) *Viewer {
	v := NewViewer(id, "viewer-"+id)
	v.Activated = 1
	v.AuthMethod = "anonymous"
	return v
}

// ColorFor picks a stable color for an ID. Very dark colors are lifted so
// claims stay visible against the terrain.
func ColorFor(id string) tilebatch.Color {
	h := xxhash.Sum64String(id)
	r, g, b := uint8(h), uint8(h>>8), uint8(h>>16)
	return tilebatch.RGB(r|0x40, g|0x40, b|0x40)
}

// IsActive checks if the viewer account is activated and not banned
func (v *Viewer) IsActive() bool {
	// activated > 0 means activated
	// activated == 0 means not activated
	// activated == -1 means banned
	return v.Activated > 0
}

// IsBanned checks if the viewer is banned
func (v *Viewer) IsBanned() bool {
	return v.Activated == -1
}

// IsConnected checks if the viewer is currently connected
func (v *Viewer) IsConnected() bool {
	return v.Connected
}
