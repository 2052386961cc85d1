package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"

	"github.com/gravitas-games/irongrid/internal/config"
	"github.com/gravitas-games/irongrid/internal/store"
	"github.com/gravitas-games/irongrid/internal/world"
	"github.com/gravitas-games/irongrid/pkg/models"
)

// Server represents the terrain server
type Server struct {
	config       *config.Config
	session      *Session
	upgrader     websocket.Upgrader
	httpSrv      *http.Server
	jwtValidator *JWTValidator
	redis        *redis.Client
	exports      store.Exports

	// Connection tracking
	connections map[*Connection]bool
	connMu      sync.RWMutex
	anonymous   int64

	// Shutdown
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new server instance and starts its session loop. Redis is
// used for exports and the token blacklist when an address is configured;
// tokens are required when a public key URL is configured.
func New(cfg *config.Config) (*Server, error) {
	log.Println("Initializing server...")

	ctx, cancel := context.WithCancel(context.Background())

	srv := &Server{
		config:      cfg,
		connections: make(map[*Connection]bool),
		ctx:         ctx,
		cancel:      cancel,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	if cfg.Redis.Address != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			cancel()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		log.Println("Connected to Redis")
		srv.redis = redisClient
		srv.exports = store.NewRedisExports(redisClient, cfg.Export.KeyPrefix, cfg.Export.TTL)
	} else {
		log.Println("No Redis address configured, keeping exports in memory")
		srv.exports = store.NewMemoryExports(cfg.Export.TTL)
	}

	if cfg.JWT.PublicKeyURL != "" {
		jwtValidator, err := NewJWTValidator(ctx, cfg, srv.redis)
		if err != nil {
			srv.closeRedis()
			cancel()
			return nil, fmt.Errorf("failed to initialize JWT validator: %w", err)
		}
		srv.jwtValidator = jwtValidator
	} else {
		log.Println("No JWT public key configured, accepting anonymous viewers")
	}

	session, err := NewSession("main", cfg)
	if err != nil {
		srv.closeRedis()
		cancel()
		return nil, err
	}
	srv.session = session
	go session.Run(ctx)

	log.Println("Server initialized successfully")
	return srv, nil
}

// Handler returns the HTTP routes served by the server
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/export", s.handleExport)
	mux.HandleFunc("/exports/", s.handleStoredExport)
	return mux
}

// Start begins listening for connections
func (s *Server) Start(addr string) error {
	log.Printf("Starting WebSocket server on %s", addr)

	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Printf("WebSocket endpoint: ws://%s/ws", addr)
	log.Printf("Health endpoint: http://%s/health", addr)
	log.Printf("Export endpoint: http://%s/export", addr)

	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	log.Println("Shutting down server...")

	// Stops the session loop and every write pump
	s.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
	}

	s.connMu.RLock()
	conns := make([]*Connection, 0, len(s.connections))
	for conn := range s.connections {
		conns = append(conns, conn)
	}
	s.connMu.RUnlock()
	for _, conn := range conns {
		conn.Close()
	}

	s.closeRedis()

	log.Println("Server shutdown complete")
	return nil
}

func (s *Server) closeRedis() {
	if s.redis == nil {
		return
	}
	if err := s.redis.Close(); err != nil {
		log.Printf("Redis close error: %v", err)
	}
}

// authenticate resolves the viewer behind a request
func (s *Server) authenticate(r *http.Request) (*models.Viewer, error) {
	if s.jwtValidator == nil {
		id := atomic.AddInt64(&s.anonymous, 1)
		return models.Anonymous(strconv.FormatInt(id, 10)), nil
	}
	tokenString := extractTokenFromHeader(r)
	if tokenString == "" {
		return nil, ErrMissingToken
	}
	return s.jwtValidator.ValidateToken(r.Context(), tokenString)
}

// handleWebSocket handles WebSocket connection requests
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	log.Printf("New WebSocket connection request from %s", r.RemoteAddr)

	viewer, err := s.authenticate(r)
	if err != nil {
		log.Printf("Rejected connection from %s: %v", r.RemoteAddr, err)
		http.Error(w, fmt.Sprintf("Invalid token: %v", err), http.StatusUnauthorized)
		return
	}

	log.Printf("Authenticated viewer: %s (%s) from %s", viewer.Username, viewer.ID, r.RemoteAddr)

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	conn := NewConnection(ws, s, viewer)

	s.connMu.Lock()
	s.connections[conn] = true
	s.connMu.Unlock()

	log.Printf("WebSocket connection established: %s (%s)", viewer.Username, r.RemoteAddr)

	// Blocks until the peer goes away
	conn.Handle()

	s.connMu.Lock()
	delete(s.connections, conn)
	s.connMu.Unlock()

	log.Printf("WebSocket connection closed: %s (%s)", viewer.Username, r.RemoteAddr)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// handleExport serializes the current map, stores it and returns it as a
// download
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var (
		name string
		data []byte
		err  error
	)
	callErr := s.session.Call(r.Context(), func(wd *world.World) {
		name, data, err = wd.Export(time.Now())
	})
	if callErr != nil {
		http.Error(w, callErr.Error(), http.StatusServiceUnavailable)
		return
	}
	if err != nil {
		log.Printf("Export failed: %v", err)
		http.Error(w, "Export failed", http.StatusInternalServerError)
		return
	}

	if err := s.exports.Put(r.Context(), name, data); err != nil {
		// The download still works without storage
		log.Printf("Failed to store export: %v", err)
	}

	writeExport(w, name, data)
}

// handleStoredExport returns an export saved by handleExport
func (s *Server) handleStoredExport(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/exports/")
	data, err := s.exports.Get(r.Context(), name)
	switch {
	case errors.Is(err, store.ErrInvalidName):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case err != nil:
		log.Printf("Failed to load export %s: %v", name, err)
		http.Error(w, "Failed to load export", http.StatusInternalServerError)
		return
	}
	writeExport(w, name, data)
}

func writeExport(w http.ResponseWriter, name string, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", name))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
