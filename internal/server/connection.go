package server

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gravitas-games/irongrid/internal/config"
	"github.com/gravitas-games/irongrid/internal/network"
	"github.com/gravitas-games/irongrid/internal/picking"
	"github.com/gravitas-games/irongrid/internal/world"
	"github.com/gravitas-games/irongrid/pkg/models"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192

	// Outbound messages queued per connection
	sendBuffer = 256
)

// Connection represents a WebSocket connection to a viewer
type Connection struct {
	ws     *websocket.Conn
	server *Server
	viewer *models.Viewer

	// Buffered channel for outbound messages
	send chan []byte

	joined    atomic.Bool
	done      chan struct{}
	closeOnce sync.Once
}

// NewConnection creates a new connection for an authenticated viewer
func NewConnection(ws *websocket.Conn, server *Server, viewer *models.Viewer) *Connection {
	return &Connection{
		ws:     ws,
		server: server,
		viewer: viewer,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
}

// Handle manages the connection lifecycle
func (c *Connection) Handle() {
	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.writePump()
	c.readPump() // Blocking
}

// readPump pumps messages from the WebSocket connection to the session
func (c *Connection) readPump() {
	defer c.Close()

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			break
		}

		var clientMsg network.ClientMessage
		if err := json.Unmarshal(message, &clientMsg); err != nil {
			log.Printf("Failed to parse client message: %v", err)
			c.SendError("invalid_message", "Failed to parse message")
			continue
		}

		c.viewer.LastSeen = time.Now()
		c.handleMessage(&clientMsg)
	}
}

// writePump pumps messages from the send channel to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("WebSocket write error: %v", err)
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			c.ws.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case <-c.server.ctx.Done():
			return
		}
	}
}

// handleMessage routes messages to appropriate handlers
func (c *Connection) handleMessage(msg *network.ClientMessage) {
	switch msg.Type {
	case network.MsgTypeJoin:
		c.handleJoin()

	case network.MsgTypeLeave:
		c.submit(func(*world.World) { c.handleLeave() })

	case network.MsgTypePing:
		c.handlePing()

	case network.MsgTypeSelect:
		c.handlePick(msg.Payload, func(w *world.World, p network.PickPayload) {
			w.Select(p.Index)
		})

	case network.MsgTypeHover:
		c.handlePick(msg.Payload, c.hover)

	case network.MsgTypeLevel:
		c.handlePick(msg.Payload, func(w *world.World, p network.PickPayload) {
			w.Level(time.Now(), p.Index)
		})

	case network.MsgTypeRelease:
		c.submit(func(w *world.World) { w.Release() })

	case network.MsgTypeColonize:
		c.handleColonize(msg.Payload)

	case network.MsgTypeRegenerate:
		c.handleRegenerate(msg.Payload)

	default:
		log.Printf("Unknown message type: %s", msg.Type)
		c.SendError("unknown_message_type", "Unknown message type")
	}
}

// submit runs fn on the session loop
func (c *Connection) submit(fn func(w *world.World)) {
	if !c.joined.Load() {
		c.SendError("not_joined", "Join the session first")
		return
	}
	if err := c.server.session.Submit(c.server.ctx, fn); err != nil {
		c.SendError("session_unavailable", err.Error())
	}
}

// handleJoin registers the viewer and sends the welcome and the snapshot
// from the session loop, so no tile update can slip in between.
func (c *Connection) handleJoin() {
	if c.joined.Load() {
		return
	}
	session := c.server.session
	err := session.Submit(c.server.ctx, func(w *world.World) {
		select {
		case <-c.done:
			return
		default:
		}
		if c.joined.Load() {
			return
		}
		if err := session.AddViewer(c.viewer, c); err != nil {
			log.Printf("Failed to add viewer to session: %v", err)
			c.SendError("join_failed", err.Error())
			return
		}
		c.joined.Store(true)
		c.viewer.Connected = true
		c.viewer.ConnectedAt = time.Now()
		c.viewer.SessionID = session.ID

		c.SendMessage(&network.ServerMessage{
			Type: network.MsgTypeWelcome,
			Payload: network.WelcomePayload{
				ViewerID:      c.viewer.ID,
				Username:      c.viewer.Username,
				Color:         c.viewer.Color,
				SessionID:     session.ID,
				SessionStatus: session.Status(w.Generation()),
			},
		})
		session.SendSnapshot(c)

		session.BroadcastExcept(c, &network.ServerMessage{
			Type: network.MsgTypeViewerJoined,
			Payload: network.ViewerJoinedPayload{
				ViewerID: c.viewer.ID,
				Username: c.viewer.Username,
				Color:    c.viewer.Color,
			},
		})
	})
	if err != nil {
		c.SendError("join_failed", err.Error())
	}
}

// handleLeave removes the viewer from the session. Runs on the loop, or
// directly once the loop has stopped.
func (c *Connection) handleLeave() {
	if !c.joined.Swap(false) {
		return
	}
	session := c.server.session
	if !session.RemoveViewer(c.viewer.ID, c) {
		return
	}
	c.viewer.Connected = false
	session.BroadcastExcept(c, &network.ServerMessage{
		Type: network.MsgTypeViewerLeft,
		Payload: network.ViewerLeftPayload{
			ViewerID: c.viewer.ID,
			Username: c.viewer.Username,
		},
	})
}

// handlePing handles ping requests
func (c *Connection) handlePing() {
	c.SendMessage(&network.ServerMessage{
		Type:    network.MsgTypePong,
		Payload: map[string]interface{}{"timestamp": time.Now().Unix()},
	})
}

// handlePick decodes a pick and applies it on the loop. Picks made against
// an older map are dropped.
func (c *Connection) handlePick(payload json.RawMessage, apply func(w *world.World, p network.PickPayload)) {
	var p network.PickPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.SendError("invalid_pick", "Invalid pick payload")
		return
	}
	c.submit(func(w *world.World) {
		if !c.current(w, p.Generation) {
			return
		}
		p.Index = resolvePick(w, p)
		apply(w, p)
	})
}

// resolvePick turns a sampled ID color or a readback into a tile index
func resolvePick(w *world.World, p network.PickPayload) int {
	switch {
	case p.PickColor != nil:
		return w.PickColor(*p.PickColor)
	case p.Readback != nil:
		return w.PickPixel(p.Readback.Buffer(), p.Readback.X, p.Readback.Y)
	}
	return p.Index
}

func (c *Connection) current(w *world.World, generation uint64) bool {
	if w.Current(generation) {
		return true
	}
	c.SendError("stale_generation",
		fmt.Sprintf("pick made against generation %d, current is %d", generation, w.Generation()))
	return false
}

// hover replies with the cursor position to this connection only
func (c *Connection) hover(w *world.World, p network.PickPayload) {
	pos, ok := w.Hover(p.Index)
	c.SendMessage(&network.ServerMessage{
		Type: network.MsgTypeCursor,
		Payload: network.CursorPayload{
			Generation: p.Generation,
			Index:      p.Index,
			Visible:    ok,
			Position:   pos,
		},
	})
}

// handleColonize starts a colonizer on the picked tile
func (c *Connection) handleColonize(payload json.RawMessage) {
	var p network.ColonizePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.SendError("invalid_colonize", "Invalid colonize payload")
		return
	}
	color := c.viewer.Color
	if p.Color != nil {
		color = *p.Color
	}
	c.submit(func(w *world.World) {
		if !c.current(w, p.Generation) {
			return
		}
		p.Index = resolvePick(w, p.PickPayload)
		if p.Index == picking.NoPick {
			return
		}
		id, err := w.Colonize(config.ColonizerConfig{Start: p.Index, Color: color, Bias: p.Bias})
		if err != nil {
			c.SendError("colonize_failed", err.Error())
			return
		}
		log.Printf("Viewer %s started colonizer %d at tile %d", c.viewer.Username, id, p.Index)
	})
}

// handleRegenerate replaces the terrain and resends every snapshot
func (c *Connection) handleRegenerate(payload json.RawMessage) {
	var p network.RegeneratePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.SendError("invalid_terrain", "Invalid regenerate payload")
		return
	}
	session := c.server.session
	c.submit(func(w *world.World) {
		if err := w.Regenerate(p.Terrain); err != nil {
			c.SendError("invalid_terrain", err.Error())
			return
		}
		log.Printf("Viewer %s regenerated the map", c.viewer.Username)
		session.BroadcastSnapshot()
	})
}

// SendMessage sends a message to the viewer
func (c *Connection) SendMessage(msg *network.ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to marshal message: %v", err)
		return
	}
	c.SendRaw(data)
}

// SendRaw queues an encoded message. Messages to a closed connection, or
// beyond a full buffer, are dropped.
func (c *Connection) SendRaw(data []byte) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- data:
	default:
		log.Printf("Send buffer full for %s, dropping message", c.viewer.Username)
	}
}

// SendError sends an error message to the viewer
func (c *Connection) SendError(code, message string) {
	c.SendMessage(&network.ServerMessage{
		Type: network.MsgTypeError,
		Payload: network.ErrorPayload{
			Code:    code,
			Message: message,
		},
	})
}

// Close stops the write pump and leaves the session
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		err := c.server.session.Submit(c.server.ctx, func(*world.World) { c.handleLeave() })
		if err != nil {
			c.handleLeave()
		}
	})
}
