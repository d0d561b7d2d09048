package mapper

import (
	"adaptive-dialogue-be/internal/entity"
	"adaptive-dialogue-be/internal/model"

	"github.com/pgvector/pgvector-go"
)

type TurnEmbeddingMapper struct{}

func NewTurnEmbeddingMapper() *TurnEmbeddingMapper {
	return &TurnEmbeddingMapper{}
}

func (m *TurnEmbeddingMapper) ToEntity(e *model.TurnEmbedding) *entity.TurnEmbedding {
	if e == nil {
		return nil
	}

	return &entity.TurnEmbedding{
		SessionId:          e.SessionId,
		TurnNumber:         e.TurnNumber,
		UserInput:          e.UserInput,
		BotResponsePreview: e.BotResponsePreview,
		UserState:          e.UserState,
		Concepts:           jsonToStrings(e.Concepts),
		Timestamp:          e.Timestamp,
		EmbeddingValue:     e.EmbeddingValue.Slice(),
	}
}

func (m *TurnEmbeddingMapper) ToModel(e *entity.TurnEmbedding) *model.TurnEmbedding {
	if e == nil {
		return nil
	}

	concepts := e.Concepts
	if concepts == nil {
		concepts = []string{}
	}

	return &model.TurnEmbedding{
		SessionId:          e.SessionId,
		TurnNumber:         e.TurnNumber,
		UserInput:          e.UserInput,
		BotResponsePreview: e.BotResponsePreview,
		UserState:          e.UserState,
		Concepts:           toJSON(concepts),
		Timestamp:          e.Timestamp,
		EmbeddingValue:     pgvector.NewVector(e.EmbeddingValue),
	}
}

func (m *TurnEmbeddingMapper) ToEntities(embeddings []*model.TurnEmbedding) []*entity.TurnEmbedding {
	entities := make([]*entity.TurnEmbedding, len(embeddings))
	for i, e := range embeddings {
		entities[i] = m.ToEntity(e)
	}
	return entities
}
