// internal/cache/publisher.go
package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/kargo/internal/room"
	"github.com/sirupsen/logrus"
)

// publishTimeout bounds a single push to Redis.
const publishTimeout = 2 * time.Second

// DefaultPublishBuffer is the number of records a publisher holds while Redis is slow.
const DefaultPublishBuffer = 256

// Pusher appends a record to the activity queue. *ActivityQueue implements it.
type Pusher interface {
	Push(ctx context.Context, rec ActivityRecord) error
}

// ActivityPublisher is the room.ActivitySink backed by Redis. Entries are
// handed to one worker through a bounded buffer, so they reach Redis in the
// order rooms produced them and a room never waits on the network. When the
// buffer is full new entries are dropped with a warning.
type ActivityPublisher struct {
	pusher Pusher
	buf    chan ActivityRecord
	logger *logrus.Logger
}

// NewActivityPublisher returns a publisher holding up to size records.
func NewActivityPublisher(pusher Pusher, size int, logger *logrus.Logger) *ActivityPublisher {
	if size <= 0 {
		size = DefaultPublishBuffer
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ActivityPublisher{
		pusher: pusher,
		buf:    make(chan ActivityRecord, size),
		logger: logger,
	}
}

// PublishActivity queues e without blocking.
func (p *ActivityPublisher) PublishActivity(roomID uuid.UUID, e room.ActivityEntry) {
	select {
	case p.buf <- NewActivityRecord(roomID, e):
	default:
		p.logger.WithField("room", roomID).Warn("activity buffer full, dropped entry")
	}
}

// Pending returns the number of buffered records.
func (p *ActivityPublisher) Pending() int {
	return len(p.buf)
}

// Run pushes buffered records until ctx is done, then pushes whatever is
// still buffered before returning.
func (p *ActivityPublisher) Run(ctx context.Context) {
	for {
		select {
		case rec := <-p.buf:
			p.push(context.Background(), rec)
		case <-ctx.Done():
			p.drain()
			return
		}
	}
}

func (p *ActivityPublisher) drain() {
	for {
		select {
		case rec := <-p.buf:
			p.push(context.Background(), rec)
		default:
			return
		}
	}
}

func (p *ActivityPublisher) push(parent context.Context, rec ActivityRecord) {
	ctx, cancel := context.WithTimeout(parent, publishTimeout)
	defer cancel()
	if err := p.pusher.Push(ctx, rec); err != nil {
		p.logger.WithField("room", rec.RoomID).WithError(err).Warn("failed to publish activity")
	}
}
