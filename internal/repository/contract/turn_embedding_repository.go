package contract

import (
	"context"

	"adaptive-dialogue-be/internal/entity"
	"adaptive-dialogue-be/internal/repository/specification"
)

type TurnEmbeddingRepository interface {
	Upsert(ctx context.Context, embedding *entity.TurnEmbedding) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.TurnEmbedding, error)
	DeleteBelow(ctx context.Context, sessionId string, floor int) error
	DeleteBySession(ctx context.Context, sessionId string) error
	// SearchSimilar returns past exchanges of one session ranked by cosine
	// similarity, filtered by threshold. maxTurnNumber bounds the newest turn
	// considered so the short-term window is not recalled twice; pass a
	// negative value to search the whole session.
	SearchSimilar(ctx context.Context, sessionId string, embedding []float32, limit int, threshold float64, maxTurnNumber int) ([]*entity.ScoredTurnEmbedding, error)
}
