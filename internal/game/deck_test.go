package game

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jason-s-yu/kargo/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDeck(t *testing.T) {
	deck, err := BuildDeck()
	require.NoError(t, err)
	require.Len(t, deck, DeckSize)

	ids := make(map[uuid.UUID]bool, DeckSize)
	faces := make(map[string]bool, DeckSize)
	for _, c := range deck {
		assert.NotEqual(t, uuid.Nil, c.ID)
		ids[c.ID] = true
		faces[string(c.Suit)+string(c.Rank)] = true
	}
	assert.Len(t, ids, DeckSize, "card ids must be unique")
	assert.Len(t, faces, DeckSize, "every suit and rank appears once")

	// suit-major, rank-minor
	assert.Equal(t, models.SuitSpades, deck[0].Suit)
	assert.Equal(t, models.RankAce, deck[0].Rank)
	assert.Equal(t, models.SuitClubs, deck[DeckSize-1].Suit)
	assert.Equal(t, models.RankKing, deck[DeckSize-1].Rank)
}

func TestBuildDeckFreshIDs(t *testing.T) {
	a, err := BuildDeck()
	require.NoError(t, err)
	b, err := BuildDeck()
	require.NoError(t, err)
	assert.NotEqual(t, a[0].ID, b[0].ID)
}

func TestShuffleDeterminism(t *testing.T) {
	deck, err := BuildDeck()
	require.NoError(t, err)

	first := ShuffleDeck(deck, seeded(42))
	second := ShuffleDeck(deck, seeded(42))
	assert.Equal(t, first, second, "same seed gives the same permutation")

	other := ShuffleDeck(deck, seeded(43))
	assert.NotEqual(t, first, other)
}

func TestShuffleLeavesInputAlone(t *testing.T) {
	deck, err := BuildDeck()
	require.NoError(t, err)
	before := models.CloneCards(deck)

	shuffled := ShuffleDeck(deck, seeded(5))
	assert.Equal(t, before, deck)
	assert.ElementsMatch(t, deck, shuffled)
}
