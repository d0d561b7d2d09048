package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"adaptive-dialogue-be/pkg/memory"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyStore fails the first failures SaveTurn calls, then delegates.
type flakyStore struct {
	memory.Store
	mu       sync.Mutex
	failures int
	calls    int
}

func (s *flakyStore) SaveTurn(ctx context.Context, sessionID string, turn memory.Turn, embedding []float32) error {
	s.mu.Lock()
	s.calls++
	fail := s.calls <= s.failures
	s.mu.Unlock()
	if fail {
		return errors.New("database unavailable")
	}
	return s.Store.SaveTurn(ctx, sessionID, turn, embedding)
}

func (s *flakyStore) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newTestQueue(t *testing.T, store memory.Store) *PersistenceQueue {
	t.Helper()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubSub.Close() })

	queue := NewPersistenceQueue(pubSub, "persistence.retry", store, nopLogger{})
	queue.retryDelay = 5 * time.Millisecond
	return queue
}

func TestPersistenceQueueReplaysUntilWriteLands(t *testing.T) {
	backing := memory.NewInMemoryStore()
	store := &flakyStore{Store: backing, failures: 2}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	queue := newTestQueue(t, store)
	require.NoError(t, queue.Consume(ctx))

	turn := sampleTurn(3)
	require.NoError(t, queue.Enqueue(ctx, "s1", turn, []float32{0.1, 0.2}))

	require.Eventually(t, func() bool {
		data, err := backing.LoadSession(ctx, "s1")
		return err == nil && data != nil && len(data.Turns) == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.GreaterOrEqual(t, store.callCount(), 3)

	data, err := backing.LoadSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 3, data.Turns[0].TurnNumber)
	assert.Equal(t, "PRESENCE", data.Turns[0].Mode)
}

func TestPersistenceQueueAcksMalformedPayload(t *testing.T) {
	backing := memory.NewInMemoryStore()
	store := &flakyStore{Store: backing}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubSub.Close() })
	queue := NewPersistenceQueue(pubSub, "persistence.retry", store, nopLogger{})
	queue.retryDelay = 5 * time.Millisecond
	require.NoError(t, queue.Consume(ctx))

	msg := message.NewMessage(watermill.NewUUID(), []byte("{not json"))
	require.NoError(t, pubSub.Publish("persistence.retry", msg))

	// A malformed message must not reach the store.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, store.callCount())
}
