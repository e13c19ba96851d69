// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/kargo/internal/room"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DefaultQueueName is the Redis list activity records are pushed onto.
const DefaultQueueName = "kargo_activity"

// ActivityRecord is the queued form of a room activity entry, as consumed by the historian.
type ActivityRecord struct {
	EntryID     uuid.UUID `json:"entry_id"`
	RoomID      uuid.UUID `json:"room_id"`
	Player      string    `json:"player"`
	Description string    `json:"description"`
	Timestamp   int64     `json:"timestamp"` // epoch millis
}

// NewActivityRecord converts a room entry.
func NewActivityRecord(roomID uuid.UUID, e room.ActivityEntry) ActivityRecord {
	return ActivityRecord{
		EntryID:     e.ID,
		RoomID:      roomID,
		Player:      e.Player,
		Description: e.Description,
		Timestamp:   e.Timestamp.UnixMilli(),
	}
}

// ConnectRedis opens a client for addr and checks it answers.
func ConnectRedis(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// ActivityQueue is a Redis list of ActivityRecords.
type ActivityQueue struct {
	rdb    redis.Cmdable
	name   string
	logger *logrus.Logger
}

// NewActivityQueue binds a queue name to a client. An empty name uses DefaultQueueName.
func NewActivityQueue(rdb redis.Cmdable, name string, logger *logrus.Logger) *ActivityQueue {
	if name == "" {
		name = DefaultQueueName
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ActivityQueue{rdb: rdb, name: name, logger: logger}
}

// Push serializes rec and appends it to the queue.
func (q *ActivityQueue) Push(ctx context.Context, rec ActivityRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal ActivityRecord: %w", err)
	}
	if err := q.rdb.RPush(ctx, q.name, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", q.name, err)
	}
	return nil
}

// Pop blocks up to timeout for the next record. ok is false when the wait
// timed out with nothing queued.
func (q *ActivityQueue) Pop(ctx context.Context, timeout time.Duration) (rec ActivityRecord, ok bool, err error) {
	res, err := q.rdb.BLPop(ctx, timeout, q.name).Result()
	if errors.Is(err, redis.Nil) {
		return ActivityRecord{}, false, nil
	}
	if err != nil {
		return ActivityRecord{}, false, fmt.Errorf("BLPop %s: %w", q.name, err)
	}
	// res[0] is the queue name and res[1] the payload
	if len(res) < 2 {
		return ActivityRecord{}, false, nil
	}
	if err := json.Unmarshal([]byte(res[1]), &rec); err != nil {
		return ActivityRecord{}, false, fmt.Errorf("invalid activity record: %w", err)
	}
	return rec, true, nil
}
