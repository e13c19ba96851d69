// internal/database/deal.go
package database

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/kargo/internal/game"
	"github.com/jason-s-yu/kargo/internal/models"
	"github.com/sirupsen/logrus"
)

// DealSnapshot is everything needed to replay a game from its first turn.
type DealSnapshot struct {
	RoomID       uuid.UUID     `json:"roomId"`
	Players      []DealSeat    `json:"players"`
	Deck         []models.Card `json:"deck"`
	TurnPlayerID uuid.UUID     `json:"turnPlayerId"`
}

// DealSeat is one player's opening hand.
type DealSeat struct {
	PlayerID uuid.UUID     `json:"playerId"`
	Name     string        `json:"name"`
	Hand     []models.Card `json:"hand"`
}

// NewDealSnapshot captures the opening deal of st.
func NewDealSnapshot(roomID uuid.UUID, st game.State) DealSnapshot {
	snap := DealSnapshot{
		RoomID:       roomID,
		Players:      make([]DealSeat, 0, len(st.Players)),
		Deck:         models.CloneCards(st.Deck),
		TurnPlayerID: st.TurnPlayerID,
	}
	for _, p := range st.Players {
		snap.Players = append(snap.Players, DealSeat{
			PlayerID: p.ID,
			Name:     p.Name,
			Hand:     models.CloneCards(p.Hand),
		})
	}
	return snap
}

// DealStore persists opening deals into room_deals.
type DealStore struct {
	db      TxStarter
	logger  *logrus.Logger
	timeout time.Duration
}

// NewDealStore returns a store writing through db.
func NewDealStore(db TxStarter, logger *logrus.Logger) *DealStore {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &DealStore{db: db, logger: logger, timeout: 5 * time.Second}
}

// UpsertDeal stores snap, replacing any earlier deal for the same room.
func (s *DealStore) UpsertDeal(ctx context.Context, snap DealSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return pgx.BeginTxFunc(ctx, s.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			INSERT INTO room_deals (room_id, deal, started_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (room_id)
			DO UPDATE SET deal = EXCLUDED.deal, started_at = EXCLUDED.started_at
		`
		_, e := tx.Exec(ctx, q, snap.RoomID, data)
		return e
	})
}

// RecordDeal upserts the deal in the background.
func (s *DealStore) RecordDeal(roomID uuid.UUID, st game.State) {
	snap := NewDealSnapshot(roomID, st)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := s.UpsertDeal(ctx, snap); err != nil {
			s.logger.WithField("room", roomID).WithError(err).Error("failed to store opening deal")
			return
		}
		s.logger.WithField("room", roomID).Debug("opening deal stored")
	}()
}
