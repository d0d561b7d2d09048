package implementation

import (
	"context"

	"adaptive-dialogue-be/internal/entity"
	"adaptive-dialogue-be/internal/mapper"
	"adaptive-dialogue-be/internal/model"
	"adaptive-dialogue-be/internal/repository/contract"
	"adaptive-dialogue-be/internal/repository/specification"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TurnEmbeddingRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.TurnEmbeddingMapper
}

func NewTurnEmbeddingRepository(db *gorm.DB) contract.TurnEmbeddingRepository {
	return &TurnEmbeddingRepositoryImpl{
		db:     db,
		mapper: mapper.NewTurnEmbeddingMapper(),
	}
}

func (r *TurnEmbeddingRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *TurnEmbeddingRepositoryImpl) Upsert(ctx context.Context, embedding *entity.TurnEmbedding) error {
	m := r.mapper.ToModel(embedding)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "session_id"}, {Name: "turn_number"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"user_input", "bot_response_preview", "user_state", "concepts",
			"timestamp", "embedding_value",
		}),
	}).Create(m).Error
}

func (r *TurnEmbeddingRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.TurnEmbedding, error) {
	var models []*model.TurnEmbedding
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *TurnEmbeddingRepositoryImpl) DeleteBelow(ctx context.Context, sessionId string, floor int) error {
	query := r.applySpecifications(r.db.WithContext(ctx),
		specification.BySessionID{SessionID: sessionId},
		specification.TurnNumberBelow{Floor: floor},
	)
	return query.Delete(&model.TurnEmbedding{}).Error
}

func (r *TurnEmbeddingRepositoryImpl) DeleteBySession(ctx context.Context, sessionId string) error {
	query := r.applySpecifications(r.db.WithContext(ctx),
		specification.BySessionID{SessionID: sessionId},
	)
	return query.Delete(&model.TurnEmbedding{}).Error
}

// SearchSimilar runs a pgvector cosine-distance query scoped to one session.
// Cosine distance in pgvector is 1 - cosine_similarity, so the similarity is
// computed as 1 - (embedding_value <=> query_vector).
func (r *TurnEmbeddingRepositoryImpl) SearchSimilar(
	ctx context.Context,
	sessionId string,
	embedding []float32,
	limit int,
	threshold float64,
	maxTurnNumber int,
) ([]*entity.ScoredTurnEmbedding, error) {
	if limit <= 0 {
		limit = 3
	}

	type result struct {
		model.TurnEmbedding
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	query := r.db.WithContext(ctx).
		Table("turn_embeddings").
		Select("turn_embeddings.*, 1 - (embedding_value <=> ?) as similarity", queryVector).
		Where("1 - (embedding_value <=> ?) >= ?", queryVector, threshold)
	query = specification.BySessionID{SessionID: sessionId}.Apply(query)

	if maxTurnNumber >= 0 {
		query = specification.TurnNumberAtMost{Max: maxTurnNumber}.Apply(query)
	}

	err := query.
		Order("similarity DESC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scored := make([]*entity.ScoredTurnEmbedding, len(results))
	for i, res := range results {
		scored[i] = &entity.ScoredTurnEmbedding{
			Embedding:  r.mapper.ToEntity(&res.TurnEmbedding),
			Similarity: res.Similarity,
		}
	}
	return scored, nil
}
