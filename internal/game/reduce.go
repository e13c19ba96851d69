// internal/game/reduce.go
package game

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/kargo/internal/models"
)

// Reduce applies an action that Validate accepted and returns the next state.
// st is never modified. rng is only consumed when the action starts the game.
//
// A non-nil error wraps ErrInvariant and means st contradicted what Validate
// promised; the caller must keep st.
func Reduce(st State, playerID uuid.UUID, a models.GameAction, rng Source) (State, error) {
	next := st.Clone()
	idx := next.PlayerIndex(playerID)
	if idx < 0 {
		return st, invariantf("player %s not seated", playerID)
	}
	player := &next.Players[idx]

	switch a.Type {
	case models.ActionReady:
		player.Ready = true
		if next.allReady() {
			started, err := startGame(next, rng)
			if err != nil {
				return st, err
			}
			return started, nil
		}

	case models.ActionDraw:
		card, ok := pop(&next.Deck)
		if !ok {
			return st, invariantf("draw from empty deck")
		}
		next.DrawnCard = &card
		next.TurnStep = StepPlay

	case models.ActionDiscard:
		card, err := takeFromHand(player, a.CardID)
		if err != nil {
			return st, err
		}
		next.Discard = append(next.Discard, card)
		// a held drawn card goes on top, it is never kept
		if next.DrawnCard != nil {
			next.Discard = append(next.Discard, *next.DrawnCard)
		}
		advanceTurn(&next)

	case models.ActionSwapWithHand:
		if next.DrawnCard == nil {
			return st, invariantf("swap with hand without a drawn card")
		}
		replaced, err := replaceInHand(player, a.TargetCardID, *next.DrawnCard)
		if err != nil {
			return st, err
		}
		next.Discard = append(next.Discard, replaced)
		next.DrawnCard = nil
		advanceTurn(&next)

	case models.ActionSwapWithDiscard:
		top, ok := pop(&next.Discard)
		if !ok {
			return st, invariantf("swap with empty discard pile")
		}
		replaced, err := replaceInHand(player, a.TargetCardID, top)
		if err != nil {
			return st, err
		}
		next.Discard = append(next.Discard, replaced)
		next.DrawnCard = nil
		next.TurnStep = StepPlay

	default:
		return st, invariantf("action %q reached the reducer", a.Type)
	}

	return next, nil
}

// startGame deals a fresh shuffled deck and opens the first turn. Dealing and
// the first turn happen in one transition, so PhaseDealt is never observed.
func startGame(st State, rng Source) (State, error) {
	fresh, err := BuildDeck()
	if err != nil {
		return State{}, invariantf("build deck: %v", err)
	}
	deck := ShuffleDeck(fresh, rng)

	st.Discard = []models.Card{}
	st.DrawnCard = nil
	for i := range st.Players {
		st.Players[i].Hand = make([]models.Card, 0, HandSize)
	}
	for pass := 0; pass < HandSize; pass++ {
		for i := range st.Players {
			card, ok := pop(&deck)
			if !ok {
				return State{}, invariantf("deck ran out dealing to %d players", len(st.Players))
			}
			st.Players[i].Hand = append(st.Players[i].Hand, card)
		}
	}
	st.Deck = deck

	st.TurnIndex = 0
	st.TurnPlayerID = st.Players[0].ID
	st.TurnStep = StepDraw
	st.Phase = PhaseTurn
	return st, nil
}

// advanceTurn hands the turn to the next seat.
func advanceTurn(st *State) {
	st.TurnIndex = (st.TurnIndex + 1) % len(st.Players)
	st.TurnPlayerID = st.Players[st.TurnIndex].ID
	st.TurnStep = StepDraw
	st.DrawnCard = nil
}

func takeFromHand(p *models.Player, cardID *uuid.UUID) (models.Card, error) {
	if cardID == nil {
		return models.Card{}, invariantf("missing card id for %s", p.ID)
	}
	slot := p.HandIndex(*cardID)
	if slot < 0 {
		return models.Card{}, invariantf("card %s not in hand of %s", *cardID, p.ID)
	}
	card := p.Hand[slot]
	p.Hand = append(p.Hand[:slot], p.Hand[slot+1:]...)
	return card, nil
}

// replaceInHand puts in into the slot holding cardID and returns what was there.
func replaceInHand(p *models.Player, cardID *uuid.UUID, in models.Card) (models.Card, error) {
	if cardID == nil {
		return models.Card{}, invariantf("missing target card id for %s", p.ID)
	}
	slot := p.HandIndex(*cardID)
	if slot < 0 {
		return models.Card{}, invariantf("card %s not in hand of %s", *cardID, p.ID)
	}
	out := p.Hand[slot]
	p.Hand[slot] = in
	return out, nil
}
