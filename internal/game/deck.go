// internal/game/deck.go
package game

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jason-s-yu/kargo/internal/models"
)

// Source is the randomness a room shuffles with. *rand.Rand from math/rand/v2
// satisfies it.
type Source interface {
	IntN(n int) int
}

// BuildDeck returns the 52-card deck in suit-major, rank-minor order. Card ids
// come from crypto/rand and never from the shuffle source, so an id seen by an
// opponent says nothing about the deck order.
func BuildDeck() ([]models.Card, error) {
	deck := make([]models.Card, 0, DeckSize)
	for _, suit := range models.Suits {
		for _, rank := range models.Ranks {
			id, err := uuid.NewRandom()
			if err != nil {
				return nil, fmt.Errorf("card id: %w", err)
			}
			deck = append(deck, models.Card{ID: id, Suit: suit, Rank: rank})
		}
	}
	return deck, nil
}

// ShuffleDeck returns a Fisher-Yates permutation of deck. deck is not modified.
func ShuffleDeck(deck []models.Card, rng Source) []models.Card {
	out := make([]models.Card, len(deck))
	copy(out, deck)
	for i := len(out) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// pop removes and returns the last card of *cards.
func pop(cards *[]models.Card) (models.Card, bool) {
	n := len(*cards)
	if n == 0 {
		return models.Card{}, false
	}
	c := (*cards)[n-1]
	*cards = (*cards)[:n-1]
	return c, true
}
