// internal/game/errors.go
package game

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a rejected request.
type ErrorKind string

const (
	KindNotFound      ErrorKind = "not_found"
	KindUnauthorized  ErrorKind = "unauthorized"
	KindIllegalAction ErrorKind = "illegal_action"
	KindUnknownAction ErrorKind = "unknown_action"
	KindConflict      ErrorKind = "conflict" // connection already seated in a room
)

// Rejection reasons reported to clients.
const (
	ReasonRoomNotFound   = "room not found"
	ReasonPlayerNotFound = "player not found"
	ReasonGameStarted    = "game already started"
	ReasonRoomFull       = "room is full"
	ReasonAlreadySeated  = "connection already seated in a room"
	ReasonNotBound       = "connection is not bound to this player"
	ReasonUnknownAction  = "unknown action"
	ReasonNotInLobby     = "game is not in lobby"
	ReasonNotInTurn      = "game is not in progress"
	ReasonNotYourTurn    = "not your turn"
	ReasonMustDrawFirst  = "must draw first"
	ReasonAlreadyDrew    = "already drew this turn"
	ReasonDeckEmpty      = "deck is empty"
	ReasonDiscardEmpty   = "discard pile is empty"
	ReasonNoDrawnCard    = "no drawn card"
	ReasonCardRequired   = "card id required"
	ReasonCardNotInHand  = "card not in hand"
)

// Error is a rejected request. Nothing changes state when one is returned.
type Error struct {
	Kind   ErrorKind
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func NotFound(reason string) *Error     { return &Error{Kind: KindNotFound, Reason: reason} }
func Unauthorized(reason string) *Error { return &Error{Kind: KindUnauthorized, Reason: reason} }
func Illegal(reason string) *Error      { return &Error{Kind: KindIllegalAction, Reason: reason} }
func Conflict(reason string) *Error     { return &Error{Kind: KindConflict, Reason: reason} }

// KindOf returns the kind of a rejection, or "" if err is not one.
func KindOf(err error) ErrorKind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return ""
}

// ErrInvariant marks state corruption: something validation guaranteed was
// not there when the reducer looked. It is never a client mistake.
var ErrInvariant = errors.New("game state invariant violated")

func invariantf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvariant, fmt.Sprintf(format, args...))
}
