package network

import (
	"encoding/json"
	"fmt"

	"github.com/gravitas-games/irongrid/internal/config"
	"github.com/gravitas-games/irongrid/internal/interaction"
	"github.com/gravitas-games/irongrid/internal/picking"
	"github.com/gravitas-games/irongrid/internal/tilebatch"
	"github.com/gravitas-games/irongrid/internal/world"
)

// Message types - Client → Server
const (
	MsgTypeJoin       = "join"
	MsgTypeLeave      = "leave"
	MsgTypePing       = "ping"
	MsgTypeSelect     = "select"
	MsgTypeHover      = "hover"
	MsgTypeLevel      = "level"
	MsgTypeRelease    = "release"
	MsgTypeColonize   = "colonize"
	MsgTypeRegenerate = "regenerate"
)

// Message types - Server → Client
const (
	MsgTypeWelcome      = "welcome"
	MsgTypeViewerJoined = "viewer_joined"
	MsgTypeViewerLeft   = "viewer_left"
	MsgTypeSnapshot     = "snapshot"
	MsgTypeTiles        = "tiles"
	MsgTypeBorders      = "borders"
	MsgTypeCursor       = "cursor"
	MsgTypeError        = "error"
	MsgTypePong         = "pong"
)

// ClientMessage represents any message from client to server
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ServerMessage represents any message from server to client
type ServerMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Encode marshals a server message once so it can be fanned out to many
// connections.
func Encode(msgType string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(ServerMessage{Type: msgType, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s message: %w", msgType, err)
	}
	return data, nil
}

// --- Client Message Payloads ---

// PickPayload identifies the tile under the pointer. Index is -1 when the
// pointer is over no tile. Generation is the map the pick was made against.
type PickPayload struct {
	Index      int    `json:"index"`
	Generation uint64 `json:"generation"`

	// Either one replaces Index when set
	PickColor *tilebatch.Color `json:"pick_color,omitempty"`
	Readback  *Readback        `json:"readback,omitempty"`
}

// Readback is a region read back from the client's picking render, with the
// pointer at (x, y) inside it. Pix is RGBA, bottom row first.
type Readback struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Pix    []byte `json:"pix"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
}

// Buffer returns the readback as a picking buffer
func (r *Readback) Buffer() picking.Buffer {
	return picking.Buffer{Width: r.Width, Height: r.Height, Pix: r.Pix}
}

// PickingTexture is the per-instance ID color lookup texture. Pix is RGBA,
// Size texels square.
type PickingTexture struct {
	Size int    `json:"size"`
	Pix  []byte `json:"pix"`
}

// ColonizePayload starts a colonizer on the picked tile. Color defaults to
// the viewer's color.
type ColonizePayload struct {
	PickPayload
	Color *tilebatch.Color `json:"color,omitempty"`
	Bias  string           `json:"bias,omitempty"`
}

// RegeneratePayload replaces the terrain configuration wholesale
type RegeneratePayload struct {
	Terrain config.Terrain `json:"terrain"`
}

// --- Server Message Payloads ---

// WelcomePayload is sent to client after a successful join
type WelcomePayload struct {
	ViewerID      string          `json:"viewer_id"`
	Username      string          `json:"username"`
	Color         tilebatch.Color `json:"color"`
	SessionID     string          `json:"session_id"`
	SessionStatus SessionStatus   `json:"session_status"`
}

// ViewerJoinedPayload notifies clients when a viewer joins
type ViewerJoinedPayload struct {
	ViewerID string          `json:"viewer_id"`
	Username string          `json:"username"`
	Color    tilebatch.Color `json:"color"`
}

// ViewerLeftPayload notifies clients when a viewer leaves
type ViewerLeftPayload struct {
	ViewerID string `json:"viewer_id"`
	Username string `json:"username"`
}

// SnapshotPayload carries the whole render state. Matrices holds 16
// column-major floats per tile and Colors 3 normalized floats per tile, both
// in instance order.
type SnapshotPayload struct {
	Generation  uint64                `json:"generation"`
	Rows        int                   `json:"rows"`
	Cols        int                   `json:"cols"`
	Origin      tilebatch.Vec3        `json:"origin"`
	Matrices    []float32             `json:"matrices"`
	Colors      []float32             `json:"colors"`
	Environment world.Environment     `json:"environment"`
	Terrain     config.Terrain        `json:"terrain"`
	Borders     []interaction.Segment `json:"borders"`
	Picking     PickingTexture        `json:"picking"`
}

// NewSnapshotPayload converts a world snapshot to its wire form
func NewSnapshotPayload(s world.Snapshot) SnapshotPayload {
	return SnapshotPayload{
		Generation:  s.Generation,
		Rows:        s.Terrain.Rows,
		Cols:        s.Terrain.Cols,
		Origin:      s.Origin,
		Matrices:    s.Matrices,
		Colors:      s.Colors,
		Environment: s.Environment,
		Terrain:     s.Terrain,
		Borders:     s.Borders,
		Picking:     PickingTexture{Size: s.Picking.Width, Pix: s.Picking.Pix},
	}
}

// TilesPayload carries the tiles edited since the last update
type TilesPayload struct {
	Generation uint64             `json:"generation"`
	Updates    []world.TileUpdate `json:"updates"`
}

// BordersPayload carries the latest border segments
type BordersPayload struct {
	Generation uint64                `json:"generation"`
	Segments   []interaction.Segment `json:"segments"`
}

// CursorPayload places the hover cursor. Visible is false on a miss.
type CursorPayload struct {
	Generation uint64         `json:"generation"`
	Index      int            `json:"index"`
	Visible    bool           `json:"visible"`
	Position   tilebatch.Vec3 `json:"position"`
}

// SessionStatus represents the current session state
type SessionStatus struct {
	State       string `json:"state"`
	ViewerCount int    `json:"viewer_count"`
	MaxViewers  int    `json:"max_viewers"`
	ServerTick  int64  `json:"server_tick"`
	Generation  uint64 `json:"generation"`
	Uptime      int64  `json:"uptime"`
}

// ErrorPayload contains error information
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
