// internal/game/sync_state.go
package game

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/kargo/internal/models"
)

// ObfCard is a card as one viewer may see it. Face-down cards carry only ID.
type ObfCard struct {
	ID   uuid.UUID   `json:"id"`
	Suit models.Suit `json:"suit,omitempty"`
	Rank models.Rank `json:"rank,omitempty"`
}

// Known reports whether the face is visible.
func (c ObfCard) Known() bool {
	return c.Rank != ""
}

// ObfPlayerState is one seat from the perspective of the viewer.
type ObfPlayerState struct {
	PlayerID      uuid.UUID `json:"playerId"`
	Name          string    `json:"name"`
	Ready         bool      `json:"ready"`
	KargoCalled   bool      `json:"kargoCalled"`
	IsCurrentTurn bool      `json:"isCurrentTurn"`
	HandSize      int       `json:"handSize"`
	Hand          []ObfCard `json:"hand"`
}

// ObfGameState is the masked snapshot sent to a single viewer.
type ObfGameState struct {
	Phase        Phase            `json:"phase"`
	Players      []ObfPlayerState `json:"players"`
	DeckCount    int              `json:"deckCount"`
	DiscardTop   *ObfCard         `json:"discardTop,omitempty"`
	DrawnCard    *ObfCard         `json:"drawnCard,omitempty"`
	TurnPlayerID uuid.UUID        `json:"turnPlayerId"`
	TurnIndex    int              `json:"turnIndex"`
	TurnStep     TurnStep         `json:"turnStep"`
}

// Project builds the snapshot viewer is allowed to see. Every slice in the
// result is freshly allocated, so it is safe to hand to an untrusted client.
func Project(st State, viewer uuid.UUID) ObfGameState {
	obf := ObfGameState{
		Phase:        st.Phase,
		Players:      make([]ObfPlayerState, 0, len(st.Players)),
		DeckCount:    len(st.Deck),
		TurnPlayerID: st.TurnPlayerID,
		TurnIndex:    st.TurnIndex,
		TurnStep:     st.TurnStep,
	}

	if n := len(st.Discard); n > 0 {
		top := faceUp(st.Discard[n-1])
		obf.DiscardTop = &top
	}

	inTurn := st.Phase == PhaseTurn
	if st.DrawnCard != nil && inTurn && st.TurnPlayerID == viewer {
		drawn := faceUp(*st.DrawnCard)
		obf.DrawnCard = &drawn
	}

	for _, p := range st.Players {
		ps := ObfPlayerState{
			PlayerID:      p.ID,
			Name:          p.Name,
			Ready:         p.Ready,
			KargoCalled:   p.KargoCalled,
			IsCurrentTurn: inTurn && p.ID == st.TurnPlayerID,
			HandSize:      len(p.Hand),
			Hand:          make([]ObfCard, len(p.Hand)),
		}
		own := p.ID == viewer
		for i, c := range p.Hand {
			if own {
				ps.Hand[i] = faceUp(c)
			} else {
				ps.Hand[i] = ObfCard{ID: c.ID}
			}
		}
		obf.Players = append(obf.Players, ps)
	}

	return obf
}

func faceUp(c models.Card) ObfCard {
	return ObfCard{ID: c.ID, Suit: c.Suit, Rank: c.Rank}
}
