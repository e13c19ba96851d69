// internal/historian/historian.go
package historian

import (
	"context"
	"sync"
	"time"

	"github.com/jason-s-yu/kargo/internal/cache"
	"github.com/jason-s-yu/kargo/internal/database"
	"github.com/sirupsen/logrus"
)

// Queue yields activity records as they are published.
type Queue interface {
	Pop(ctx context.Context, timeout time.Duration) (cache.ActivityRecord, bool, error)
}

// Store persists a batch of activity rows.
type Store interface {
	InsertActivity(ctx context.Context, rows []database.ActivityRow) error
}

// StoreFunc adapts a function to Store.
type StoreFunc func(ctx context.Context, rows []database.ActivityRow) error

func (f StoreFunc) InsertActivity(ctx context.Context, rows []database.ActivityRow) error {
	return f(ctx, rows)
}

// Config tunes batching. MaxPending caps the rows held in memory; once it is
// reached Run stops popping and the rest stay queued in Redis.
type Config struct {
	BatchSize  int
	FlushDelay time.Duration
	PopTimeout time.Duration
	MaxPending int
}

// Service drains the activity queue into the store in batches, flushing when
// a batch fills or FlushDelay passes, whichever is first.
type Service struct {
	queue  Queue
	store  Store
	cfg    Config
	logger *logrus.Logger

	mu       sync.Mutex
	batch    []database.ActivityRow
	inFlight int
}

// New returns a service with defaults filled in.
func New(queue Queue, store Store, cfg Config, logger *logrus.Logger) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.FlushDelay <= 0 {
		cfg.FlushDelay = 500 * time.Millisecond
	}
	if cfg.PopTimeout <= 0 {
		cfg.PopTimeout = 3 * time.Second
	}
	if cfg.MaxPending < cfg.BatchSize {
		cfg.MaxPending = 10 * cfg.BatchSize
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{
		queue:  queue,
		store:  store,
		cfg:    cfg,
		logger: logger,
		batch:  make([]database.ActivityRow, 0, cfg.BatchSize),
	}
}

// Run blocks until ctx is done, then flushes whatever is still pending.
func (s *Service) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.flushLoop(ctx)
	}()

	s.logger.Info("historian started")
	for ctx.Err() == nil {
		if s.Pending() >= s.cfg.MaxPending {
			select {
			case <-ctx.Done():
			case <-time.After(s.cfg.FlushDelay):
			}
			continue
		}
		rec, ok, err := s.queue.Pop(ctx, s.cfg.PopTimeout)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			s.logger.WithError(err).Error("queue pop failed")
			continue
		}
		if !ok {
			continue
		}
		s.add(ctx, rec)
	}

	wg.Wait()
	// final flush gets its own deadline since ctx is already done
	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Flush(flushCtx)
	s.logger.Info("historian stopped")
}

func (s *Service) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.FlushDelay)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Flush(ctx)
		}
	}
}

func (s *Service) add(ctx context.Context, rec cache.ActivityRecord) {
	s.mu.Lock()
	s.batch = append(s.batch, toRow(rec))
	full := len(s.batch) >= s.cfg.BatchSize
	s.mu.Unlock()
	if full {
		s.Flush(ctx)
	}
}

// Flush writes the pending batch. On failure the rows are put back so the
// next flush retries them; Run stops popping while they hold the buffer full.
func (s *Service) Flush(ctx context.Context) {
	s.mu.Lock()
	if len(s.batch) == 0 {
		s.mu.Unlock()
		return
	}
	rows := s.batch
	s.batch = make([]database.ActivityRow, 0, s.cfg.BatchSize)
	s.inFlight += len(rows)
	s.mu.Unlock()

	err := s.store.InsertActivity(ctx, rows)

	s.mu.Lock()
	s.inFlight -= len(rows)
	if err != nil {
		s.batch = append(rows, s.batch...)
	}
	s.mu.Unlock()
	if err != nil {
		s.logger.WithError(err).WithField("rows", len(rows)).Error("flush failed")
		return
	}
	s.logger.WithField("rows", len(rows)).Debug("flushed activity")
}

// Pending returns the number of rows held in memory, including a batch
// that is being written.
func (s *Service) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batch) + s.inFlight
}

func toRow(rec cache.ActivityRecord) database.ActivityRow {
	return database.ActivityRow{
		EntryID:     rec.EntryID,
		RoomID:      rec.RoomID,
		Player:      rec.Player,
		Description: rec.Description,
		OccurredAt:  time.UnixMilli(rec.Timestamp).UTC(),
	}
}
