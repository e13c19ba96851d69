package models

import "github.com/google/uuid"

// ActionType names a player intent.
type ActionType string

const (
	ActionReady           ActionType = "READY"
	ActionDraw            ActionType = "DRAW"
	ActionDiscard         ActionType = "DISCARD"
	ActionSwapWithHand    ActionType = "SWAP_WITH_HAND"
	ActionSwapWithDiscard ActionType = "SWAP_WITH_DISCARD"
)

// GameAction captures a player's in-game move. CardID is used by DISCARD and
// TargetCardID by the two swap actions; both are nil when absent.
type GameAction struct {
	Type         ActionType `json:"type"`
	CardID       *uuid.UUID `json:"cardId,omitempty"`
	TargetCardID *uuid.UUID `json:"targetCardId,omitempty"`
}
