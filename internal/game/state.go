// internal/game/state.go
package game

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/kargo/internal/models"
)

// Phase is the room-level stage of a game.
type Phase string

const (
	PhaseLobby Phase = "lobby"
	PhaseDealt Phase = "dealt"
	PhaseTurn  Phase = "turn"
)

// TurnStep is the sub-stage within the active player's turn.
type TurnStep string

const (
	StepDraw TurnStep = "draw"
	StepPlay TurnStep = "play"
)

const (
	DeckSize   = 52
	HandSize   = 4
	MinPlayers = 2
	MaxPlayers = 8
)

// State is the authoritative game state of one room. A State is treated as a
// value: every transition produces a new one and never edits the old.
type State struct {
	Phase        Phase           `json:"phase"`
	Players      []models.Player `json:"players"`
	Deck         []models.Card   `json:"deck"`
	Discard      []models.Card   `json:"discard"`
	DrawnCard    *models.Card    `json:"drawnCard,omitempty"`
	TurnPlayerID uuid.UUID       `json:"turnPlayerId"`
	TurnIndex    int             `json:"turnIndex"`
	TurnStep     TurnStep        `json:"turnStep"`
}

// NewState returns an empty lobby.
func NewState() State {
	return State{
		Phase:    PhaseLobby,
		Players:  []models.Player{},
		Deck:     []models.Card{},
		Discard:  []models.Card{},
		TurnStep: StepDraw,
	}
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := s
	if s.Players != nil {
		out.Players = make([]models.Player, len(s.Players))
		for i, p := range s.Players {
			out.Players[i] = p.Clone()
		}
	}
	out.Deck = models.CloneCards(s.Deck)
	out.Discard = models.CloneCards(s.Discard)
	if s.DrawnCard != nil {
		c := *s.DrawnCard
		out.DrawnCard = &c
	}
	return out
}

// PlayerIndex returns the seat of id, or -1.
func (s State) PlayerIndex(id uuid.UUID) int {
	for i, p := range s.Players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// Player returns the player record for id.
func (s State) Player(id uuid.UUID) (models.Player, bool) {
	if i := s.PlayerIndex(id); i >= 0 {
		return s.Players[i], true
	}
	return models.Player{}, false
}

// WithPlayer returns a copy of s with p seated last.
func (s State) WithPlayer(p models.Player) State {
	next := s.Clone()
	next.Players = append(next.Players, p.Clone())
	return next
}

// WithoutPlayer returns a copy of s with id unseated. Only meaningful in lobby.
func (s State) WithoutPlayer(id uuid.UUID) State {
	next := s.Clone()
	if i := next.PlayerIndex(id); i >= 0 {
		next.Players = append(next.Players[:i], next.Players[i+1:]...)
	}
	return next
}

// CardCount counts every card the room holds, wherever it sits.
func (s State) CardCount() int {
	n := len(s.Deck) + len(s.Discard)
	for _, p := range s.Players {
		n += len(p.Hand)
	}
	if s.DrawnCard != nil {
		n++
	}
	return n
}

func (s State) allReady() bool {
	if len(s.Players) < MinPlayers {
		return false
	}
	for _, p := range s.Players {
		if !p.Ready {
			return false
		}
	}
	return true
}
