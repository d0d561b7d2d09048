package memory

import (
	"context"
	"time"
)

// Turn is one user/bot exchange within a session.
type Turn struct {
	TurnNumber   int
	UserInput    string
	BotResponse  string
	Mode         string
	Timestamp    time.Time
	Confidence   *float64
	BlocksUsed   int
	Concepts     []string
	UserState    string
	UserFeedback string // "positive" | "negative" | "neutral", empty when none
	UserRating   int    // 1..5, zero when none
}

// ScoredTurn is a past exchange found by semantic search.
type ScoredTurn struct {
	TurnNumber         int
	UserInput          string
	BotResponsePreview string
	UserState          string
	Concepts           []string
	Similarity         float64
}

// SessionData is everything a store holds for one session.
type SessionData struct {
	SessionID    string
	UserID       string
	CreatedAt    time.Time
	LastActive   time.Time
	Status       string
	WorkingState map[string]interface{}
	Summary      string
	Metadata     map[string]interface{}
	Turns        []Turn
}

// Store is the session persistence boundary. The durable implementation is
// backed by Postgres, the in-memory one backs tests and degraded operation;
// both honor the same upsert and null semantics.
type Store interface {
	// CreateSession is an idempotent upsert: an existing session keeps its
	// user id and metadata and only refreshes last_active.
	CreateSession(ctx context.Context, sessionID, userID string, metadata map[string]interface{}) error

	// SaveTurn upserts a turn keyed by (session_id, turn_number) plus its
	// embedding when given, and bumps last_active. The whole write is atomic.
	SaveTurn(ctx context.Context, sessionID string, turn Turn, embedding []float32) error

	UpdateWorkingState(ctx context.Context, sessionID string, state map[string]interface{}) error
	UpdateSummary(ctx context.Context, sessionID, summary string) error

	// LoadSession returns nil when no session row exists and no durable
	// summary survives either; an empty new session reads as "not found".
	LoadSession(ctx context.Context, sessionID string) (*SessionData, error)

	// SearchSimilarTurns runs vector search over the session's stored turn
	// embeddings. maxTurnNumber > 0 excludes turns above it (the ones the
	// short-term tier already covers).
	SearchSimilarTurns(ctx context.Context, sessionID string, embedding []float32, topK int, minSimilarity float64, maxTurnNumber int) ([]ScoredTurn, error)

	// DeleteTurnsBelow removes turns and embeddings with turn_number < floor.
	DeleteTurnsBelow(ctx context.Context, sessionID string, floor int) error

	// ClearSession removes all turns, embeddings, summary and working state
	// but keeps the session row for continued use.
	ClearSession(ctx context.Context, sessionID string) error

	// DeleteSession removes the session and every dependent row.
	DeleteSession(ctx context.Context, sessionID string) error
}
