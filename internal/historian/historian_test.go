// internal/historian/historian_test.go
package historian

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/kargo/internal/cache"
	"github.com/jason-s-yu/kargo/internal/database"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chanQueue hands out records pushed onto a channel.
type chanQueue chan cache.ActivityRecord

func (q chanQueue) Pop(ctx context.Context, timeout time.Duration) (cache.ActivityRecord, bool, error) {
	select {
	case rec := <-q:
		return rec, true, nil
	case <-time.After(timeout):
		return cache.ActivityRecord{}, false, nil
	case <-ctx.Done():
		return cache.ActivityRecord{}, false, ctx.Err()
	}
}

type memStore struct {
	mu      sync.Mutex
	batches [][]database.ActivityRow
	fail    bool
}

func (m *memStore) InsertActivity(_ context.Context, rows []database.ActivityRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("db down")
	}
	m.batches = append(m.batches, rows)
	return nil
}

func (m *memStore) setFail(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = fail
}

func (m *memStore) rows() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.batches {
		n += len(b)
	}
	return n
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func record(desc string) cache.ActivityRecord {
	return cache.ActivityRecord{
		EntryID:     uuid.New(),
		RoomID:      uuid.New(),
		Player:      "ann",
		Description: desc,
		Timestamp:   time.Now().UnixMilli(),
	}
}

func TestBatchFlushesWhenFull(t *testing.T) {
	store := &memStore{}
	svc := New(chanQueue(nil), store, Config{BatchSize: 3, FlushDelay: time.Hour}, quietLogger())
	ctx := context.Background()

	svc.add(ctx, record("a"))
	svc.add(ctx, record("b"))
	assert.Equal(t, 0, store.rows())
	svc.add(ctx, record("c"))

	require.Len(t, store.batches, 1)
	assert.Len(t, store.batches[0], 3)
	assert.Equal(t, "a", store.batches[0][0].Description)
	assert.Zero(t, svc.Pending())
}

func TestFailedFlushKeepsRows(t *testing.T) {
	store := &memStore{fail: true}
	svc := New(chanQueue(nil), store, Config{BatchSize: 10}, quietLogger())
	ctx := context.Background()

	svc.add(ctx, record("a"))
	svc.add(ctx, record("b"))
	svc.Flush(ctx)
	assert.Equal(t, 2, svc.Pending())

	store.fail = false
	svc.Flush(ctx)
	assert.Equal(t, 2, store.rows())
	assert.Zero(t, svc.Pending())
}

func TestRunDrainsQueueAndFlushesOnStop(t *testing.T) {
	q := make(chanQueue, 8)
	store := &memStore{}
	svc := New(q, store, Config{BatchSize: 100, FlushDelay: 20 * time.Millisecond, PopTimeout: 10 * time.Millisecond}, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()

	for i := 0; i < 5; i++ {
		q <- record("x")
	}
	assert.Eventually(t, func() bool { return store.rows() == 5 }, 2*time.Second, 10*time.Millisecond)

	q <- record("late")
	cancel()
	<-done
	assert.GreaterOrEqual(t, store.rows(), 5)
	assert.Zero(t, svc.Pending())
}

func TestStoreOutageLeavesRecordsQueued(t *testing.T) {
	q := make(chanQueue, 50)
	for i := 0; i < 50; i++ {
		q <- record("x")
	}
	store := &memStore{fail: true}
	svc := New(q, store, Config{
		BatchSize:  3,
		MaxPending: 6,
		FlushDelay: 5 * time.Millisecond,
		PopTimeout: 5 * time.Millisecond,
	}, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return svc.Pending() == 6 }, 2*time.Second, 5*time.Millisecond)
	for i := 0; i < 20; i++ {
		require.LessOrEqual(t, svc.Pending(), 6)
		time.Sleep(5 * time.Millisecond)
	}
	assert.GreaterOrEqual(t, len(q), 50-6, "records past the cap stay in the queue")

	store.setFail(false)
	assert.Eventually(t, func() bool { return store.rows() == 50 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done
	assert.Zero(t, svc.Pending())
}

func TestToRow(t *testing.T) {
	rec := record("drew a card")
	row := toRow(rec)
	assert.Equal(t, rec.EntryID, row.EntryID)
	assert.Equal(t, rec.RoomID, row.RoomID)
	assert.Equal(t, rec.Timestamp, row.OccurredAt.UnixMilli())
}
