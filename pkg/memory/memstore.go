package memory

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"
)

type memSession struct {
	data       SessionData
	embeddings map[int][]float32
}

// InMemoryStore implements Store without any external dependency. It backs
// tests and degraded operation when the durable store is unreachable; the
// semantics mirror the Postgres implementation.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*memSession
}

var _ Store = (*InMemoryStore)(nil)

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]*memSession)}
}

func (s *InMemoryStore) CreateSession(_ context.Context, sessionID, userID string, metadata map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := s.sessions[sessionID]; ok {
		existing.data.LastActive = now
		if existing.data.UserID == "" {
			existing.data.UserID = userID
		}
		if existing.data.Metadata == nil {
			existing.data.Metadata = metadata
		}
		return nil
	}

	s.sessions[sessionID] = &memSession{
		data: SessionData{
			SessionID:  sessionID,
			UserID:     userID,
			CreatedAt:  now,
			LastActive: now,
			Status:     "active",
			Metadata:   metadata,
		},
		embeddings: make(map[int][]float32),
	}
	return nil
}

func (s *InMemoryStore) ensureLocked(sessionID string) *memSession {
	sess, ok := s.sessions[sessionID]
	if !ok {
		now := time.Now().UTC()
		sess = &memSession{
			data: SessionData{
				SessionID:  sessionID,
				CreatedAt:  now,
				LastActive: now,
				Status:     "active",
			},
			embeddings: make(map[int][]float32),
		}
		s.sessions[sessionID] = sess
	}
	return sess
}

func (s *InMemoryStore) SaveTurn(_ context.Context, sessionID string, turn Turn, embedding []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.ensureLocked(sessionID)
	replaced := false
	for i := range sess.data.Turns {
		if sess.data.Turns[i].TurnNumber == turn.TurnNumber {
			sess.data.Turns[i] = turn
			replaced = true
			break
		}
	}
	if !replaced {
		sess.data.Turns = append(sess.data.Turns, turn)
		sort.Slice(sess.data.Turns, func(i, j int) bool {
			return sess.data.Turns[i].TurnNumber < sess.data.Turns[j].TurnNumber
		})
	}
	if embedding != nil {
		sess.embeddings[turn.TurnNumber] = embedding
	}
	sess.data.LastActive = time.Now().UTC()
	return nil
}

func (s *InMemoryStore) UpdateWorkingState(_ context.Context, sessionID string, state map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.ensureLocked(sessionID)
	sess.data.WorkingState = state
	sess.data.LastActive = time.Now().UTC()
	return nil
}

func (s *InMemoryStore) UpdateSummary(_ context.Context, sessionID, summary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.ensureLocked(sessionID)
	sess.data.Summary = summary
	sess.data.LastActive = time.Now().UTC()
	return nil
}

func (s *InMemoryStore) LoadSession(_ context.Context, sessionID string) (*SessionData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	if len(sess.data.Turns) == 0 && sess.data.Summary == "" && sess.data.WorkingState == nil {
		// An empty shell reads as "not found".
		return nil, nil
	}

	out := sess.data
	out.Turns = make([]Turn, len(sess.data.Turns))
	copy(out.Turns, sess.data.Turns)
	return &out, nil
}

func (s *InMemoryStore) SearchSimilarTurns(_ context.Context, sessionID string, embedding []float32, topK int, minSimilarity float64, maxTurnNumber int) ([]ScoredTurn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}

	var matches []ScoredTurn
	for _, turn := range sess.data.Turns {
		if maxTurnNumber > 0 && turn.TurnNumber > maxTurnNumber {
			continue
		}
		vector, ok := sess.embeddings[turn.TurnNumber]
		if !ok {
			continue
		}
		similarity := CosineSimilarity(embedding, vector)
		if similarity < minSimilarity {
			continue
		}
		matches = append(matches, ScoredTurn{
			TurnNumber:         turn.TurnNumber,
			UserInput:          turn.UserInput,
			BotResponsePreview: preview(turn.BotResponse, responsePreviewChars),
			UserState:          turn.UserState,
			Concepts:           turn.Concepts,
			Similarity:         similarity,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (s *InMemoryStore) DeleteTurnsBelow(_ context.Context, sessionID string, floor int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}

	kept := sess.data.Turns[:0]
	for _, turn := range sess.data.Turns {
		if turn.TurnNumber >= floor {
			kept = append(kept, turn)
		} else {
			delete(sess.embeddings, turn.TurnNumber)
		}
	}
	sess.data.Turns = kept
	return nil
}

func (s *InMemoryStore) ClearSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	sess.data.Turns = nil
	sess.data.Summary = ""
	sess.data.WorkingState = nil
	sess.embeddings = make(map[int][]float32)
	sess.data.LastActive = time.Now().UTC()
	return nil
}

func (s *InMemoryStore) DeleteSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	return nil
}

// CosineSimilarity compares two vectors; zero-magnitude vectors score zero.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
