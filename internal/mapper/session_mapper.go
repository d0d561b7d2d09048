package mapper

import (
	"adaptive-dialogue-be/internal/entity"
	"adaptive-dialogue-be/internal/model"
)

type SessionMapper struct{}

func NewSessionMapper() *SessionMapper {
	return &SessionMapper{}
}

func (m *SessionMapper) ToEntity(s *model.Session) *entity.Session {
	if s == nil {
		return nil
	}

	return &entity.Session{
		SessionId:    s.SessionId,
		UserId:       s.UserId,
		CreatedAt:    s.CreatedAt,
		LastActive:   s.LastActive,
		Status:       entity.SessionStatus(s.Status),
		WorkingState: jsonToMap(s.WorkingState),
		Summary:      s.Summary,
		Metadata:     jsonToMap(s.Metadata),
	}
}

func (m *SessionMapper) ToModel(s *entity.Session) *model.Session {
	if s == nil {
		return nil
	}

	status := string(s.Status)
	if status == "" {
		status = string(entity.SessionStatusActive)
	}

	return &model.Session{
		SessionId:    s.SessionId,
		UserId:       s.UserId,
		CreatedAt:    s.CreatedAt,
		LastActive:   s.LastActive,
		Status:       status,
		WorkingState: toJSON(s.WorkingState),
		Summary:      s.Summary,
		Metadata:     toJSON(s.Metadata),
	}
}

func (m *SessionMapper) ToEntities(sessions []*model.Session) []*entity.Session {
	entities := make([]*entity.Session, len(sessions))
	for i, s := range sessions {
		entities[i] = m.ToEntity(s)
	}
	return entities
}
