// internal/room/room.go
package room

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/kargo/internal/game"
	"github.com/jason-s-yu/kargo/internal/models"
	"github.com/sirupsen/logrus"
)

// ActivitySink receives every activity entry a room records.
type ActivitySink interface {
	PublishActivity(roomID uuid.UUID, entry ActivityEntry)
}

// DealRecorder receives the full state of a room the moment its game starts.
type DealRecorder interface {
	RecordDeal(roomID uuid.UUID, st game.State)
}

// Observer is notified of action outcomes and registry size.
type Observer interface {
	ActionApplied(action models.ActionType, elapsed time.Duration)
	ActionRejected(action models.ActionType, kind game.ErrorKind)
	RoomsActive(n int)
}

// Hooks bundles the optional collaborators of a room. Nil members are skipped.
type Hooks struct {
	Activity ActivitySink
	Deals    DealRecorder
	Observer Observer
}

// Room owns one game state and the bindings between live connections and
// seated players. All methods are safe for concurrent use.
type Room struct {
	ID        uuid.UUID
	CreatedAt time.Time

	mu       sync.Mutex
	state    game.State
	version  uint64
	seats    map[uuid.UUID]uuid.UUID // playerID -> connID
	conns    map[uuid.UUID]uuid.UUID // connID -> playerID
	activity ActivityLog
	rng      game.Source
	hooks    Hooks
	log      *logrus.Entry
}

// Binding pairs a live connection with the player it controls.
type Binding struct {
	ConnID   uuid.UUID
	PlayerID uuid.UUID
}

// Summary is the public listing of a room.
type Summary struct {
	RoomID    uuid.UUID  `json:"roomId"`
	Phase     game.Phase `json:"phase"`
	Players   int        `json:"players"`
	CreatedAt time.Time  `json:"createdAt"`
}

// View is everything one seat is allowed to know about the room.
type View struct {
	RoomID    uuid.UUID          `json:"roomId"`
	You       uuid.UUID          `json:"you"`
	Version   uint64             `json:"version"`
	State     game.ObfGameState  `json:"state"`
	Connected map[uuid.UUID]bool `json:"connected"`
	Activity  []ActivityEntry    `json:"activity"`
}

// New creates an empty lobby room.
func New(id uuid.UUID, rng game.Source, hooks Hooks, logger *logrus.Logger) *Room {
	return &Room{
		ID:        id,
		CreatedAt: time.Now(),
		state:     game.NewState(),
		seats:     make(map[uuid.UUID]uuid.UUID),
		conns:     make(map[uuid.UUID]uuid.UUID),
		rng:       rng,
		hooks:     hooks,
		log:       logger.WithField("room", id),
	}
}

// AddPlayer seats a new player named name and binds connID to it.
func (r *Room) AddPlayer(connID uuid.UUID, name string) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.Phase != game.PhaseLobby {
		return uuid.Nil, game.Illegal(game.ReasonGameStarted)
	}
	if _, bound := r.conns[connID]; bound {
		return uuid.Nil, game.Conflict(game.ReasonAlreadySeated)
	}
	if len(r.state.Players) >= game.MaxPlayers {
		return uuid.Nil, game.Illegal(game.ReasonRoomFull)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = fmt.Sprintf("player %d", len(r.state.Players)+1)
	}
	p, err := models.NewPlayer(name)
	if err != nil {
		return uuid.Nil, fmt.Errorf("new player: %w", err)
	}

	r.state = r.state.WithPlayer(p)
	r.version++
	r.seats[p.ID] = connID
	r.conns[connID] = p.ID
	r.record(p.Name, "joined the room")

	r.log.WithFields(logrus.Fields{"player": p.ID, "conn": connID}).Info("player seated")
	return p.ID, nil
}

// Apply validates a on behalf of playerID and, if legal, replaces the state
// with its reduction. connID must be the connection bound to playerID.
func (r *Room) Apply(connID, playerID uuid.UUID, a models.GameAction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if bound, ok := r.conns[connID]; !ok || bound != playerID {
		r.rejected(a.Type, game.KindUnauthorized)
		return game.Unauthorized(game.ReasonNotBound)
	}
	if err := game.Validate(r.state, playerID, a); err != nil {
		r.rejected(a.Type, game.KindOf(err))
		return err
	}

	start := time.Now()
	next, err := game.Reduce(r.state, playerID, a, r.rng)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"player": playerID,
			"action": a.Type,
		}).WithError(err).Error("state invariant violated, transition discarded")
		return err
	}

	prevPhase := r.state.Phase
	r.state = next
	r.version++

	name := r.nameOf(playerID)
	r.record(name, describe(a))
	if prevPhase == game.PhaseLobby && next.Phase == game.PhaseTurn {
		r.record("", fmt.Sprintf("game started, %s goes first", r.nameOf(next.TurnPlayerID)))
		if r.hooks.Deals != nil {
			r.hooks.Deals.RecordDeal(r.ID, next.Clone())
		}
	}

	if r.hooks.Observer != nil {
		r.hooks.Observer.ActionApplied(a.Type, time.Since(start))
	}
	r.log.WithFields(logrus.Fields{
		"player":  playerID,
		"action":  a.Type,
		"version": r.version,
	}).Debug("action applied")
	return nil
}

// Unbind detaches connID. In lobby the player is unseated as well; once a
// game is dealt the seat and its cards stay. empty reports a lobby with no
// players left.
func (r *Room) Unbind(connID uuid.UUID) (playerID uuid.UUID, bound, empty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	playerID, bound = r.conns[connID]
	if !bound {
		return uuid.Nil, false, false
	}
	delete(r.conns, connID)
	delete(r.seats, playerID)

	name := r.nameOf(playerID)
	if r.state.Phase == game.PhaseLobby {
		r.state = r.state.WithoutPlayer(playerID)
		r.version++
		r.record(name, "left the room")
		empty = len(r.state.Players) == 0
	} else {
		r.record(name, "disconnected")
	}
	r.log.WithFields(logrus.Fields{"player": playerID, "conn": connID}).Info("connection unbound")
	return playerID, true, empty
}

// View projects the room for playerID.
func (r *Room) View(playerID uuid.UUID) View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.viewLocked(playerID)
}

func (r *Room) viewLocked(playerID uuid.UUID) View {
	connected := make(map[uuid.UUID]bool, len(r.state.Players))
	for _, p := range r.state.Players {
		_, ok := r.seats[p.ID]
		connected[p.ID] = ok
	}
	return View{
		RoomID:    r.ID,
		You:       playerID,
		Version:   r.version,
		State:     game.Project(r.state, playerID),
		Connected: connected,
		Activity:  r.activity.Recent(ActivityFeedSize),
	}
}

// Views returns the projection for every bound connection, taken from a
// single version of the state.
func (r *Room) Views() map[uuid.UUID]View {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[uuid.UUID]View, len(r.conns))
	for connID, playerID := range r.conns {
		out[connID] = r.viewLocked(playerID)
	}
	return out
}

// Connections lists the current bindings.
func (r *Room) Connections() []Binding {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Binding, 0, len(r.conns))
	for c, p := range r.conns {
		out = append(out, Binding{ConnID: c, PlayerID: p})
	}
	return out
}

// BoundPlayer returns the player connID controls.
func (r *Room) BoundPlayer(connID uuid.UUID) (uuid.UUID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.conns[connID]
	return p, ok
}

// Snapshot returns a deep copy of the authoritative state.
func (r *Room) Snapshot() game.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Clone()
}

// HasPlayer reports whether playerID holds a seat.
func (r *Room) HasPlayer(playerID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.PlayerIndex(playerID) >= 0
}

// Summary returns the listing entry for the room.
func (r *Room) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Summary{
		RoomID:    r.ID,
		Phase:     r.state.Phase,
		Players:   len(r.state.Players),
		CreatedAt: r.CreatedAt,
	}
}

// Activity returns the newest n activity entries.
func (r *Room) Activity(n int) []ActivityEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activity.Recent(n)
}

func (r *Room) nameOf(playerID uuid.UUID) string {
	if p, ok := r.state.Player(playerID); ok {
		return p.Name
	}
	return playerID.String()
}

func (r *Room) record(player, description string) {
	e := ActivityEntry{
		ID:          uuid.New(),
		Timestamp:   time.Now().UTC(),
		Player:      player,
		Description: description,
	}
	r.activity.Append(e)
	if r.hooks.Activity != nil {
		r.hooks.Activity.PublishActivity(r.ID, e)
	}
}

func (r *Room) rejected(action models.ActionType, kind game.ErrorKind) {
	if r.hooks.Observer != nil {
		r.hooks.Observer.ActionRejected(action, kind)
	}
	lvl := logrus.DebugLevel
	if kind == game.KindUnauthorized {
		lvl = logrus.WarnLevel
	}
	r.log.WithFields(logrus.Fields{"action": action, "kind": kind}).Log(lvl, "action rejected")
}

func describe(a models.GameAction) string {
	switch a.Type {
	case models.ActionReady:
		return "is ready"
	case models.ActionDraw:
		return "drew a card"
	case models.ActionDiscard:
		return "discarded"
	case models.ActionSwapWithHand:
		return "swapped the drawn card into their hand"
	case models.ActionSwapWithDiscard:
		return "took the top of the discard pile"
	}
	return string(a.Type)
}
