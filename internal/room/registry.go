// internal/room/registry.go
package room

import (
	crand "crypto/rand"
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jason-s-yu/kargo/internal/game"
	"github.com/jason-s-yu/kargo/internal/models"
	"github.com/sirupsen/logrus"
)

// Options configures a Registry. Every field is optional.
type Options struct {
	Hooks Hooks
	// NewSource returns the shuffle source for a new room. Defaults to a
	// ChaCha8 generator with a 32-byte seed from crypto/rand.
	NewSource func() game.Source
	Logger    *logrus.Logger
}

// Registry is the only way to reach a room. It owns the room table and the
// connection -> room index; each Room guards its own state.
//
// Lock order is registry then room. Rooms never call back into the registry.
type Registry struct {
	mu       sync.Mutex
	rooms    map[uuid.UUID]*Room
	conns    map[uuid.UUID]uuid.UUID // connID -> roomID
	onChange func(roomID uuid.UUID)

	hooks     Hooks
	newSource func() game.Source
	logger    *logrus.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(opts Options) *Registry {
	if opts.NewSource == nil {
		opts.NewSource = defaultSource
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Registry{
		rooms:     make(map[uuid.UUID]*Room),
		conns:     make(map[uuid.UUID]uuid.UUID),
		hooks:     opts.Hooks,
		newSource: opts.NewSource,
		logger:    opts.Logger,
	}
}

// OnChange installs fn to be called, outside every lock, after each state
// transition or roster change of a room.
func (g *Registry) OnChange(fn func(roomID uuid.UUID)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onChange = fn
}

// Create opens a new room with hostName seated and bound to connID.
func (g *Registry) Create(connID uuid.UUID, hostName string) (roomID, playerID uuid.UUID, err error) {
	g.mu.Lock()
	if _, seated := g.conns[connID]; seated {
		g.mu.Unlock()
		return uuid.Nil, uuid.Nil, game.Conflict(game.ReasonAlreadySeated)
	}

	roomID, err = uuid.NewRandom()
	if err != nil {
		g.mu.Unlock()
		return uuid.Nil, uuid.Nil, err
	}
	r := New(roomID, g.newSource(), g.hooks, g.logger)
	playerID, err = r.AddPlayer(connID, hostName)
	if err != nil {
		g.mu.Unlock()
		return uuid.Nil, uuid.Nil, err
	}
	g.rooms[roomID] = r
	g.conns[connID] = roomID
	n := len(g.rooms)
	g.mu.Unlock()

	g.logger.WithFields(logrus.Fields{"room": roomID, "host": playerID}).Info("room created")
	g.roomsActive(n)
	g.notify(roomID)
	return roomID, playerID, nil
}

// Join seats name in roomID and binds it to connID.
func (g *Registry) Join(connID, roomID uuid.UUID, name string) (uuid.UUID, error) {
	g.mu.Lock()
	if _, seated := g.conns[connID]; seated {
		g.mu.Unlock()
		return uuid.Nil, game.Conflict(game.ReasonAlreadySeated)
	}
	r, ok := g.rooms[roomID]
	if !ok {
		g.mu.Unlock()
		return uuid.Nil, game.NotFound(game.ReasonRoomNotFound)
	}
	playerID, err := r.AddPlayer(connID, name)
	if err != nil {
		g.mu.Unlock()
		return uuid.Nil, err
	}
	g.conns[connID] = roomID
	g.mu.Unlock()

	g.notify(roomID)
	return playerID, nil
}

// Get returns the room with the given id.
func (g *Registry) Get(roomID uuid.UUID) (*Room, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.rooms[roomID]
	return r, ok
}

// Submit applies an action for playerID, who must be bound to connID.
func (g *Registry) Submit(connID, roomID, playerID uuid.UUID, a models.GameAction) error {
	r, ok := g.Get(roomID)
	if !ok {
		return game.NotFound(game.ReasonRoomNotFound)
	}
	if err := r.Apply(connID, playerID, a); err != nil {
		return err
	}
	g.notify(roomID)
	return nil
}

// RemoveConnection unbinds connID from whatever room it is seated in. A lobby
// that loses its last player is deleted. It reports the room the connection
// was bound to.
func (g *Registry) RemoveConnection(connID uuid.UUID) (uuid.UUID, bool) {
	g.mu.Lock()
	roomID, ok := g.conns[connID]
	if !ok {
		g.mu.Unlock()
		return uuid.Nil, false
	}
	delete(g.conns, connID)

	r, exists := g.rooms[roomID]
	if !exists {
		g.mu.Unlock()
		return roomID, true
	}
	_, bound, empty := r.Unbind(connID)
	if empty {
		delete(g.rooms, roomID)
	}
	n := len(g.rooms)
	g.mu.Unlock()

	if empty {
		g.logger.WithField("room", roomID).Info("room empty, deleted")
		g.roomsActive(n)
	} else if bound {
		g.notify(roomID)
	}
	return roomID, true
}

// RoomOf returns the room connID is seated in.
func (g *Registry) RoomOf(connID uuid.UUID) (uuid.UUID, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, ok := g.conns[connID]
	return id, ok
}

// Lobbies lists the rooms still accepting players, oldest first.
func (g *Registry) Lobbies() []Summary {
	g.mu.Lock()
	rooms := make([]*Room, 0, len(g.rooms))
	for _, r := range g.rooms {
		rooms = append(rooms, r)
	}
	g.mu.Unlock()

	out := make([]Summary, 0, len(rooms))
	for _, r := range rooms {
		if s := r.Summary(); s.Phase == game.PhaseLobby {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Len returns the number of live rooms.
func (g *Registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.rooms)
}

func (g *Registry) notify(roomID uuid.UUID) {
	g.mu.Lock()
	fn := g.onChange
	g.mu.Unlock()
	if fn != nil {
		fn(roomID)
	}
}

func (g *Registry) roomsActive(n int) {
	if g.hooks.Observer != nil {
		g.hooks.Observer.RoomsActive(n)
	}
}

func defaultSource() game.Source {
	var seed [32]byte
	// crypto/rand.Read never returns an error
	crand.Read(seed[:])
	return rand.New(rand.NewChaCha8(seed))
}
