package memory

import (
	"context"
	"testing"

	"adaptive-dialogue-be/pkg/embedding"
	convmem "adaptive-dialogue-be/pkg/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticEmbedder struct{}

func (staticEmbedder) Generate(text string, taskType string) (*embedding.EmbeddingResponse, error) {
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: []float32{1, 0, 0}},
	}, nil
}

func newRegistry() (*ConversationRegistry, *convmem.InMemoryStore) {
	store := convmem.NewInMemoryStore()
	registry := NewConversationRegistry(store, staticEmbedder{}, nil, convmem.DefaultConfig())
	return registry, store
}

func TestRegistryAcquireRegistersNewSession(t *testing.T) {
	registry, store := newRegistry()
	ctx := context.Background()

	mem, err := registry.Acquire(ctx, "sess-1", "user-1")
	require.NoError(t, err)
	require.NotNil(t, mem)
	assert.Equal(t, 0, mem.TurnCount())
	assert.Equal(t, 1, registry.Len())

	// The session row exists even before the first turn.
	require.NoError(t, store.UpdateSummary(ctx, "sess-1", "итог"))
	data, err := store.LoadSession(ctx, "sess-1")
	require.NoError(t, err)
	require.NotNil(t, data)
}

func TestRegistryAcquireReturnsSameInstance(t *testing.T) {
	registry, _ := newRegistry()
	ctx := context.Background()

	first, err := registry.Acquire(ctx, "sess-1", "user-1")
	require.NoError(t, err)
	_, err = first.AddTurn(ctx, convmem.TurnInput{UserInput: "привет", BotResponse: "Здравствуйте."})
	require.NoError(t, err)

	second, err := registry.Acquire(ctx, "sess-1", "user-1")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, second.TurnCount())
}

func TestRegistryRehydratesAfterEviction(t *testing.T) {
	registry, _ := newRegistry()
	ctx := context.Background()

	mem, err := registry.Acquire(ctx, "sess-1", "user-1")
	require.NoError(t, err)
	_, err = mem.AddTurn(ctx, convmem.TurnInput{
		UserInput:   "мне тревожно",
		BotResponse: "Слышу вас.",
		Mode:        "PRESENCE",
	})
	require.NoError(t, err)

	registry.Evict("sess-1")
	_, cached := registry.Peek("sess-1")
	assert.False(t, cached)

	revived, err := registry.Acquire(ctx, "sess-1", "user-1")
	require.NoError(t, err)
	assert.NotSame(t, mem, revived)
	assert.Equal(t, 1, revived.TurnCount())
}
