package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gravitas-games/irongrid/internal/config"
	"github.com/gravitas-games/irongrid/internal/network"
	"github.com/gravitas-games/irongrid/internal/world"
	"github.com/gravitas-games/irongrid/pkg/models"
)

// Session errors
var (
	ErrSessionFull    = errors.New("session is full")
	ErrSessionStopped = errors.New("session stopped")
)

// command is a unit of work run on the session loop
type command struct {
	fn   func(w *world.World)
	done chan struct{}
}

// Session owns one World. Only the loop goroutine started by Run touches it;
// everything else submits commands.
type Session struct {
	ID        string
	CreatedAt time.Time

	// Viewer management
	viewers     map[string]*models.Viewer // viewerID -> Viewer
	connections map[string]*Connection    // viewerID -> Connection
	mu          sync.RWMutex

	// Terrain state, owned by the loop
	world    *world.World
	commands chan command
	stopped  chan struct{}
	tick     int64

	// Configuration
	config *config.Config
}

// NewSession creates a session and generates its first map
func NewSession(id string, cfg *config.Config) (*Session, error) {
	log.Printf("Creating session: %s", id)

	w, err := world.New(cfg.Terrain, cfg.Interaction, rand.New(rand.NewSource(time.Now().UnixNano())))
	if err != nil {
		return nil, err
	}

	session := &Session{
		ID:          id,
		CreatedAt:   time.Now(),
		viewers:     make(map[string]*models.Viewer),
		connections: make(map[string]*Connection),
		world:       w,
		commands:    make(chan command, 256),
		stopped:     make(chan struct{}),
		config:      cfg,
	}

	t := w.Terrain()
	log.Printf("Session %s created with %dx%d map (seed %q)", id, t.Cols, t.Rows, t.Seed)
	return session, nil
}

// Run drives the world until ctx is done: commands run as they arrive and
// timers advance at the configured tick rate.
func (s *Session) Run(ctx context.Context) {
	defer close(s.stopped)

	rate := s.config.Server.TickRate
	if rate <= 0 {
		rate = 60
	}
	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			log.Printf("Session %s stopped", s.ID)
			return

		case cmd := <-s.commands:
			cmd.fn(s.world)
			s.publish()
			if cmd.done != nil {
				close(cmd.done)
			}

		case now := <-ticker.C:
			s.world.Advance(now.Sub(last))
			last = now
			atomic.AddInt64(&s.tick, 1)
			s.publish()
		}
	}
}

// Submit queues fn to run on the session loop without waiting for it
func (s *Session) Submit(ctx context.Context, fn func(w *world.World)) error {
	select {
	case s.commands <- command{fn: fn}:
		return nil
	case <-s.stopped:
		return ErrSessionStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Call runs fn on the session loop and waits for it to finish
func (s *Session) Call(ctx context.Context, fn func(w *world.World)) error {
	cmd := command{fn: fn, done: make(chan struct{})}
	select {
	case s.commands <- cmd:
	case <-s.stopped:
		return ErrSessionStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-cmd.done:
		return nil
	case <-s.stopped:
		return ErrSessionStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// publish broadcasts pending tile edits and changed borders. Loop only.
func (s *Session) publish() {
	gen := s.world.Generation()
	if updates := s.world.Flush(); len(updates) > 0 {
		s.broadcast(network.MsgTypeTiles, network.TilesPayload{Generation: gen, Updates: updates})
	}
	if segs, ok := s.world.TakeBorders(); ok {
		s.broadcast(network.MsgTypeBorders, network.BordersPayload{Generation: gen, Segments: segs})
	}
}

// SendSnapshot sends the full render state to conn. Loop only.
func (s *Session) SendSnapshot(conn *Connection) {
	conn.SendMessage(&network.ServerMessage{
		Type:    network.MsgTypeSnapshot,
		Payload: network.NewSnapshotPayload(s.world.Snapshot()),
	})
}

// BroadcastSnapshot sends the full render state to every viewer. Loop only.
func (s *Session) BroadcastSnapshot() {
	s.broadcast(network.MsgTypeSnapshot, network.NewSnapshotPayload(s.world.Snapshot()))
}

func (s *Session) broadcast(msgType string, payload interface{}) {
	data, err := network.Encode(msgType, payload)
	if err != nil {
		log.Printf("Failed to broadcast: %v", err)
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, conn := range s.connections {
		conn.SendRaw(data)
	}
}

// AddViewer adds a viewer to the session
func (s *Session) AddViewer(viewer *models.Viewer, conn *Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.viewers[viewer.ID]; !exists && len(s.viewers) >= s.config.Session.MaxViewers {
		return fmt.Errorf("%w: %d viewers", ErrSessionFull, len(s.viewers))
	}
	s.viewers[viewer.ID] = viewer
	s.connections[viewer.ID] = conn

	log.Printf("Viewer %s (%s) joined session %s", viewer.Username, viewer.ID, s.ID)
	return nil
}

// RemoveViewer removes a viewer from the session if conn is still its
// connection. Reports whether anything was removed.
func (s *Session) RemoveViewer(viewerID string, conn *Connection) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	viewer, exists := s.viewers[viewerID]
	if !exists || s.connections[viewerID] != conn {
		return false
	}
	log.Printf("Viewer %s (%s) left session %s", viewer.Username, viewerID, s.ID)
	delete(s.viewers, viewerID)
	delete(s.connections, viewerID)
	return true
}

// GetViewer retrieves a viewer by ID
func (s *Session) GetViewer(viewerID string) (*models.Viewer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	viewer, exists := s.viewers[viewerID]
	return viewer, exists
}

// GetViewers returns all viewers in the session
func (s *Session) GetViewers() []*models.Viewer {
	s.mu.RLock()
	defer s.mu.RUnlock()

	viewers := make([]*models.Viewer, 0, len(s.viewers))
	for _, viewer := range s.viewers {
		viewers = append(viewers, viewer)
	}
	return viewers
}

// BroadcastExcept sends a message to all viewers except the specified connection
func (s *Session) BroadcastExcept(exclude *Connection, msg *network.ServerMessage) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, conn := range s.connections {
		if conn != exclude {
			conn.SendMessage(msg)
		}
	}
}

// Status returns the current session status. generation is passed in since
// only the loop may read the world.
func (s *Session) Status(generation uint64) network.SessionStatus {
	s.mu.RLock()
	count := len(s.viewers)
	s.mu.RUnlock()

	return network.SessionStatus{
		State:       "running",
		ViewerCount: count,
		MaxViewers:  s.config.Session.MaxViewers,
		ServerTick:  atomic.LoadInt64(&s.tick),
		Generation:  generation,
		Uptime:      int64(time.Since(s.CreatedAt).Seconds()),
	}
}
