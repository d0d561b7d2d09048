package mapper

import (
	"adaptive-dialogue-be/internal/entity"
	"adaptive-dialogue-be/internal/model"
)

type TurnMapper struct{}

func NewTurnMapper() *TurnMapper {
	return &TurnMapper{}
}

func (m *TurnMapper) ToEntity(t *model.ConversationTurn) *entity.ConversationTurn {
	if t == nil {
		return nil
	}

	var feedback *entity.FeedbackKind
	if t.UserFeedback != nil {
		f := entity.FeedbackKind(*t.UserFeedback)
		feedback = &f
	}

	return &entity.ConversationTurn{
		SessionId:    t.SessionId,
		TurnNumber:   t.TurnNumber,
		UserInput:    t.UserInput,
		BotResponse:  t.BotResponse,
		Mode:         t.Mode,
		Timestamp:    t.Timestamp,
		Confidence:   t.Confidence,
		BlocksUsed:   t.BlocksUsed,
		Concepts:     jsonToStrings(t.Concepts),
		UserState:    t.UserState,
		UserFeedback: feedback,
		UserRating:   t.UserRating,
	}
}

func (m *TurnMapper) ToModel(t *entity.ConversationTurn) *model.ConversationTurn {
	if t == nil {
		return nil
	}

	var feedback *string
	if t.UserFeedback != nil {
		f := string(*t.UserFeedback)
		feedback = &f
	}

	concepts := t.Concepts
	if concepts == nil {
		concepts = []string{}
	}

	return &model.ConversationTurn{
		SessionId:    t.SessionId,
		TurnNumber:   t.TurnNumber,
		UserInput:    t.UserInput,
		BotResponse:  t.BotResponse,
		Mode:         t.Mode,
		Timestamp:    t.Timestamp,
		Confidence:   t.Confidence,
		BlocksUsed:   t.BlocksUsed,
		Concepts:     toJSON(concepts),
		UserState:    t.UserState,
		UserFeedback: feedback,
		UserRating:   t.UserRating,
	}
}

func (m *TurnMapper) ToEntities(turns []*model.ConversationTurn) []*entity.ConversationTurn {
	entities := make([]*entity.ConversationTurn, len(turns))
	for i, t := range turns {
		entities[i] = m.ToEntity(t)
	}
	return entities
}
