package entity

import (
	"time"
)

// TurnEmbedding is the semantic-recall record of a single exchange. It is
// rebuildable from turn history and stores only a preview of the response.
type TurnEmbedding struct {
	SessionId          string
	TurnNumber         int
	UserInput          string
	BotResponsePreview string
	UserState          *string
	Concepts           []string
	Timestamp          time.Time
	EmbeddingValue     []float32
}

// ScoredTurnEmbedding wraps TurnEmbedding with its similarity score.
type ScoredTurnEmbedding struct {
	Embedding  *TurnEmbedding
	Similarity float64 // 0.0 to 1.0 (1.0 = identical)
}
