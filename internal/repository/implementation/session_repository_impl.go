package implementation

import (
	"context"
	"errors"
	"time"

	"adaptive-dialogue-be/internal/entity"
	"adaptive-dialogue-be/internal/mapper"
	"adaptive-dialogue-be/internal/model"
	"adaptive-dialogue-be/internal/repository/contract"
	"adaptive-dialogue-be/internal/repository/specification"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SessionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SessionMapper
}

func NewSessionRepository(db *gorm.DB) contract.SessionRepository {
	return &SessionRepositoryImpl{
		db:     db,
		mapper: mapper.NewSessionMapper(),
	}
}

func (r *SessionRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *SessionRepositoryImpl) Upsert(ctx context.Context, session *entity.Session) error {
	m := r.mapper.ToModel(session)
	if m.LastActive.IsZero() {
		m.LastActive = time.Now().UTC()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = m.LastActive
	}

	// Existing sessions keep their user_id/metadata once set; last_active is
	// always refreshed (idempotent create contract).
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"last_active": gorm.Expr("excluded.last_active"),
			"user_id":     gorm.Expr("COALESCE(sessions.user_id, excluded.user_id)"),
			"metadata":    gorm.Expr("COALESCE(sessions.metadata, excluded.metadata)"),
		}),
	}).Create(m).Error
}

func (r *SessionRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Session, error) {
	var m model.Session
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *SessionRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Session, error) {
	var models []*model.Session
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *SessionRepositoryImpl) UpdateWorkingState(ctx context.Context, sessionId string, workingState map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.Session{}).
		Where("session_id = ?", sessionId).
		Updates(map[string]interface{}{
			"working_state": mapper.MarshalJSON(workingState),
			"last_active":   time.Now().UTC(),
		}).Error
}

func (r *SessionRepositoryImpl) UpdateSummary(ctx context.Context, sessionId string, summary string) error {
	return r.db.WithContext(ctx).Model(&model.Session{}).
		Where("session_id = ?", sessionId).
		Updates(map[string]interface{}{
			"summary":     summary,
			"last_active": time.Now().UTC(),
		}).Error
}

func (r *SessionRepositoryImpl) TouchLastActive(ctx context.Context, sessionId string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.Session{}).
		Where("session_id = ? AND last_active < ?", sessionId, at).
		Update("last_active", at).Error
}

func (r *SessionRepositoryImpl) Delete(ctx context.Context, sessionId string) error {
	return r.db.WithContext(ctx).Where("session_id = ?", sessionId).Delete(&model.Session{}).Error
}

func (r *SessionRepositoryImpl) ArchiveOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.Session{}).
		Where("status = ? AND last_active < ?", string(entity.SessionStatusActive), cutoff).
		Update("status", string(entity.SessionStatusArchived))
	return result.RowsAffected, result.Error
}

func (r *SessionRepositoryImpl) DeleteArchivedOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status = ? AND last_active < ?", string(entity.SessionStatusArchived), cutoff).
		Delete(&model.Session{})
	return result.RowsAffected, result.Error
}

func (r *SessionRepositoryImpl) ListForUser(ctx context.Context, userId string, limit int) ([]*entity.SessionOverview, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}

	type row struct {
		model.Session
		TurnsCount int
	}
	var rows []row

	err := r.db.WithContext(ctx).
		Table("sessions").
		Select("sessions.*, COUNT(conversation_turns.id) AS turns_count").
		Joins("LEFT JOIN conversation_turns ON conversation_turns.session_id = sessions.session_id").
		Where("(sessions.user_id = ? OR sessions.session_id = ?) AND sessions.status != ?",
			userId, userId, string(entity.SessionStatusArchived)).
		Group("sessions.session_id").
		Order("sessions.last_active DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	sessionMapper := mapper.NewSessionMapper()
	overviews := make([]*entity.SessionOverview, 0, len(rows))
	for i := range rows {
		e := sessionMapper.ToEntity(&rows[i].Session)
		overview := &entity.SessionOverview{
			SessionId:  e.SessionId,
			UserId:     e.UserId,
			CreatedAt:  e.CreatedAt,
			LastActive: e.LastActive,
			Status:     e.Status,
			Metadata:   e.Metadata,
			TurnsCount: rows[i].TurnsCount,
		}

		var last model.ConversationTurn
		lastQuery := r.applySpecifications(r.db.WithContext(ctx),
			specification.BySessionID{SessionID: e.SessionId},
			specification.OrderBy{Field: "turn_number", Desc: true},
		)
		err := lastQuery.First(&last).Error
		if err == nil {
			overview.LastUserInput = &last.UserInput
			overview.LastBotResponse = &last.BotResponse
			ts := last.Timestamp
			overview.LastTurnTimestamp = &ts
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		overviews = append(overviews, overview)
	}
	return overviews, nil
}
