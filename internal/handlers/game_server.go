// internal/handlers/game_server.go
package handlers

import (
	"net/http"

	"github.com/jason-s-yu/kargo/internal/auth"
	"github.com/jason-s-yu/kargo/internal/middleware"
	"github.com/jason-s-yu/kargo/internal/monitor"
	"github.com/jason-s-yu/kargo/internal/room"
	"github.com/sirupsen/logrus"
)

// Subprotocol is the WebSocket subprotocol clients must request.
const Subprotocol = "kargo"

// GameServer is a high-level struct that holds everything the HTTP and
// WebSocket handlers share.
type GameServer struct {
	Registry *room.Registry
	Hub      *Hub
	Tokens   *auth.Issuer
	Monitor  *monitor.Monitor
	Logger   *logrus.Logger

	OutboxSize     int
	AllowedOrigins []string
}

// ServerOptions configures NewGameServer. Registry and Tokens are required.
type ServerOptions struct {
	Registry       *room.Registry
	Tokens         *auth.Issuer
	Monitor        *monitor.Monitor
	Logger         *logrus.Logger
	OutboxSize     int
	AllowedOrigins []string
}

// NewGameServer builds the hub and subscribes it to room changes.
func NewGameServer(opts ServerOptions) *GameServer {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Monitor == nil {
		opts.Monitor = monitor.NewMonitor("kargo")
	}
	if opts.OutboxSize < 1 {
		opts.OutboxSize = 16
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	hub := NewHub(opts.Registry, opts.Logger)
	opts.Registry.OnChange(hub.BroadcastRoom)

	return &GameServer{
		Registry:       opts.Registry,
		Hub:            hub,
		Tokens:         opts.Tokens,
		Monitor:        opts.Monitor,
		Logger:         opts.Logger,
		OutboxSize:     opts.OutboxSize,
		AllowedOrigins: opts.AllowedOrigins,
	}
}

// Connect registers a new client and returns the handler for its inbound messages.
func (gs *GameServer) Connect() *ConnHandler {
	c := NewClient(gs.OutboxSize, gs.Logger)
	gs.Hub.Register(c)
	gs.Monitor.ConnectionOpened()
	return &ConnHandler{
		client: c,
		gs:     gs,
		log:    gs.Logger.WithField("conn", c.ID),
	}
}

// Routes mounts every endpoint on a new mux.
func (gs *GameServer) Routes() *http.ServeMux {
	logged := middleware.LogMiddleware(gs.Logger)
	mux := http.NewServeMux()

	mux.Handle("GET /ws", logged(GameWSHandler(gs)))
	mux.Handle("GET /rooms", logged(ListRoomsHandler(gs)))
	mux.Handle("GET /rooms/{roomId}/state", logged(RoomStateHandler(gs)))
	mux.HandleFunc("GET /ping", PingHandler)
	mux.Handle("GET /metrics", gs.Monitor.Handler())
	return mux
}
