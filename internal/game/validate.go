// internal/game/validate.go
package game

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/kargo/internal/models"
)

// Validate reports whether playerID may apply a to st. It returns nil when the
// action is legal, in which case Reduce accepts it without re-checking, or an
// *Error carrying the first failed precondition.
func Validate(st State, playerID uuid.UUID, a models.GameAction) error {
	idx := st.PlayerIndex(playerID)
	if idx < 0 {
		return NotFound(ReasonPlayerNotFound)
	}
	player := st.Players[idx]

	switch a.Type {
	case models.ActionReady:
		if st.Phase != PhaseLobby {
			return Illegal(ReasonNotInLobby)
		}
		return nil

	case models.ActionDraw:
		if err := checkTurn(st, playerID, StepDraw); err != nil {
			return err
		}
		if len(st.Deck) == 0 {
			return Illegal(ReasonDeckEmpty)
		}
		return nil

	case models.ActionDiscard:
		if err := checkTurn(st, playerID, StepPlay); err != nil {
			return err
		}
		return checkHandCard(player, a.CardID)

	case models.ActionSwapWithHand:
		if err := checkTurn(st, playerID, StepPlay); err != nil {
			return err
		}
		if st.DrawnCard == nil {
			return Illegal(ReasonNoDrawnCard)
		}
		return checkHandCard(player, a.TargetCardID)

	case models.ActionSwapWithDiscard:
		if err := checkTurn(st, playerID, StepDraw); err != nil {
			return err
		}
		if len(st.Discard) == 0 {
			return Illegal(ReasonDiscardEmpty)
		}
		return checkHandCard(player, a.TargetCardID)
	}

	return &Error{Kind: KindUnknownAction, Reason: ReasonUnknownAction}
}

// checkTurn applies the phase, step and ownership gates, in that order.
func checkTurn(st State, playerID uuid.UUID, want TurnStep) error {
	if st.Phase != PhaseTurn {
		return Illegal(ReasonNotInTurn)
	}
	if st.TurnStep != want {
		if want == StepDraw {
			return Illegal(ReasonAlreadyDrew)
		}
		return Illegal(ReasonMustDrawFirst)
	}
	if st.TurnPlayerID != playerID {
		return Illegal(ReasonNotYourTurn)
	}
	return nil
}

func checkHandCard(p models.Player, cardID *uuid.UUID) error {
	if cardID == nil || *cardID == uuid.Nil {
		return Illegal(ReasonCardRequired)
	}
	if p.HandIndex(*cardID) < 0 {
		return Illegal(ReasonCardNotInHand)
	}
	return nil
}
