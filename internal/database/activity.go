// internal/database/activity.go
package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ActivityRow is one persisted room activity entry.
type ActivityRow struct {
	EntryID     uuid.UUID
	RoomID      uuid.UUID
	Player      string
	Description string
	OccurredAt  time.Time
}

// InsertActivityBatch writes rows in a single transaction. Rows already
// stored are skipped, so a retried batch is harmless.
func InsertActivityBatch(ctx context.Context, db TxStarter, rows []ActivityRow) error {
	if len(rows) == 0 {
		return nil
	}
	return pgx.BeginTxFunc(ctx, db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			INSERT INTO room_activity (entry_id, room_id, player, description, occurred_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (entry_id) DO NOTHING
		`
		batch := &pgx.Batch{}
		for _, r := range rows {
			batch.Queue(q, r.EntryID, r.RoomID, r.Player, r.Description, r.OccurredAt)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}
