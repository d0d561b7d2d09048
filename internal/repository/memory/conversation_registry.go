package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"adaptive-dialogue-be/pkg/embedding"
	convmem "adaptive-dialogue-be/pkg/memory"

	"github.com/patrickmn/go-cache"
)

// ConversationRegistry keeps hydrated per-session ConversationMemory
// instances with TTL eviction, so a busy session is rebuilt from the store
// once instead of on every request. Idle sessions drop out after an hour;
// their durable state stays in the store and rehydrates on the next visit.
type ConversationRegistry struct {
	cache      *cache.Cache
	mu         sync.Mutex
	store      convmem.Store
	embedder   embedding.EmbeddingProvider
	summarizer convmem.Summarizer
	cfg        convmem.Config
}

func NewConversationRegistry(
	store convmem.Store,
	embedder embedding.EmbeddingProvider,
	summarizer convmem.Summarizer,
	cfg convmem.Config,
) *ConversationRegistry {
	// Default expiration one hour, expired entries purged every 10 minutes
	c := cache.New(1*time.Hour, 10*time.Minute)
	return &ConversationRegistry{
		cache:      c,
		store:      store,
		embedder:   embedder,
		summarizer: summarizer,
		cfg:        cfg,
	}
}

// Acquire returns the live memory for a session, hydrating from the store on
// a cache miss and registering the session row when it is brand new. Each hit
// refreshes the TTL.
func (r *ConversationRegistry) Acquire(ctx context.Context, sessionID, userID string) (*convmem.ConversationMemory, error) {
	if x, found := r.cache.Get(sessionID); found {
		r.cache.Set(sessionID, x, cache.DefaultExpiration)
		return x.(*convmem.ConversationMemory), nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another request may have hydrated while this one waited on the lock.
	if x, found := r.cache.Get(sessionID); found {
		return x.(*convmem.ConversationMemory), nil
	}

	mem := convmem.NewConversationMemory(sessionID, userID, r.store, r.embedder, r.summarizer, r.cfg)
	found, err := mem.Hydrate(ctx)
	if err != nil {
		return nil, fmt.Errorf("hydrate session %s: %w", sessionID, err)
	}
	if !found {
		if err := r.store.CreateSession(ctx, sessionID, userID, nil); err != nil {
			return nil, fmt.Errorf("register session %s: %w", sessionID, err)
		}
	}

	r.cache.Set(sessionID, mem, cache.DefaultExpiration)
	return mem, nil
}

// Peek returns the cached memory without hydrating on a miss.
func (r *ConversationRegistry) Peek(sessionID string) (*convmem.ConversationMemory, bool) {
	if x, found := r.cache.Get(sessionID); found {
		return x.(*convmem.ConversationMemory), true
	}
	return nil, false
}

// Evict drops the cached instance. Durable state is untouched.
func (r *ConversationRegistry) Evict(sessionID string) {
	r.cache.Delete(sessionID)
}

// Len reports how many sessions are currently cached.
func (r *ConversationRegistry) Len() int {
	return r.cache.ItemCount()
}
