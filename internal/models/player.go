package models

import "github.com/google/uuid"

// Player is a seat in a room. ID is stable for the player's session and is
// never the id of the connection that created it.
type Player struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Ready       bool      `json:"ready"`
	Hand        []Card    `json:"hand"`
	KargoCalled bool      `json:"kargoCalled"`
}

// NewPlayer returns a lobby player with a fresh id and an empty hand.
func NewPlayer(name string) (Player, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return Player{}, err
	}
	return Player{
		ID:   id,
		Name: name,
		Hand: []Card{},
	}, nil
}

// Clone returns a copy of p whose hand shares no memory with p.
func (p Player) Clone() Player {
	p.Hand = CloneCards(p.Hand)
	return p
}

// HandIndex returns the slot holding cardID, or -1.
func (p Player) HandIndex(cardID uuid.UUID) int {
	for i, c := range p.Hand {
		if c.ID == cardID {
			return i
		}
	}
	return -1
}
