package service

import (
	"context"
	"fmt"
	"time"

	"adaptive-dialogue-be/internal/entity"
	"adaptive-dialogue-be/internal/pkg/logger"
	"adaptive-dialogue-be/internal/repository/specification"
	"adaptive-dialogue-be/internal/repository/unitofwork"
	"adaptive-dialogue-be/pkg/memory"

	"github.com/google/uuid"
)

const embeddingPreviewChars = 200

// SessionStore is the Postgres-backed memory.Store. Turn writes run inside a
// unit of work so the turn row, its embedding and the session's last_active
// land together or not at all.
type SessionStore struct {
	uowFactory unitofwork.RepositoryFactory
	logger     logger.ILogger
}

var _ memory.Store = (*SessionStore)(nil)

func NewSessionStore(uowFactory unitofwork.RepositoryFactory, log logger.ILogger) *SessionStore {
	return &SessionStore{
		uowFactory: uowFactory,
		logger:     log,
	}
}

func (s *SessionStore) CreateSession(ctx context.Context, sessionID, userID string, metadata map[string]interface{}) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	now := time.Now().UTC()

	session := &entity.Session{
		SessionId:  sessionID,
		CreatedAt:  now,
		LastActive: now,
		Status:     entity.SessionStatusActive,
		Metadata:   metadata,
	}
	if userID != "" {
		session.UserId = &userID
	}
	return uow.SessionRepository().Upsert(ctx, session)
}

func (s *SessionStore) SaveTurn(ctx context.Context, sessionID string, turn memory.Turn, embedding []float32) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("begin save turn: %w", err)
	}

	if err := uow.TurnRepository().Upsert(ctx, turnToEntity(sessionID, turn)); err != nil {
		_ = uow.Rollback()
		return fmt.Errorf("save turn %d: %w", turn.TurnNumber, err)
	}

	if embedding != nil {
		record := &entity.TurnEmbedding{
			SessionId:          sessionID,
			TurnNumber:         turn.TurnNumber,
			UserInput:          turn.UserInput,
			BotResponsePreview: clipRunes(turn.BotResponse, embeddingPreviewChars),
			Concepts:           turn.Concepts,
			Timestamp:          turn.Timestamp,
			EmbeddingValue:     embedding,
		}
		if turn.UserState != "" {
			state := turn.UserState
			record.UserState = &state
		}
		if err := uow.TurnEmbeddingRepository().Upsert(ctx, record); err != nil {
			_ = uow.Rollback()
			return fmt.Errorf("save turn %d embedding: %w", turn.TurnNumber, err)
		}
	}

	at := turn.Timestamp
	if at.IsZero() {
		at = time.Now().UTC()
	}
	if err := uow.SessionRepository().TouchLastActive(ctx, sessionID, at); err != nil {
		_ = uow.Rollback()
		return fmt.Errorf("touch session %s: %w", sessionID, err)
	}

	return uow.Commit()
}

func (s *SessionStore) UpdateWorkingState(ctx context.Context, sessionID string, state map[string]interface{}) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.SessionRepository().UpdateWorkingState(ctx, sessionID, state)
}

func (s *SessionStore) UpdateSummary(ctx context.Context, sessionID, summary string) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.SessionRepository().UpdateSummary(ctx, sessionID, summary)
}

func (s *SessionStore) LoadSession(ctx context.Context, sessionID string) (*memory.SessionData, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	session, err := uow.SessionRepository().FindOne(ctx, specification.BySessionID{SessionID: sessionID})
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	if session == nil {
		return nil, nil
	}

	turnEntities, err := uow.TurnRepository().FindAll(ctx,
		specification.BySessionID{SessionID: sessionID},
		specification.OrderBy{Field: "turn_number"},
	)
	if err != nil {
		return nil, fmt.Errorf("load session %s turns: %w", sessionID, err)
	}

	summary := ""
	if session.Summary != nil {
		summary = *session.Summary
	}
	// A bare row without history, summary or working state reads as absent so
	// a fresh ConversationMemory does not hydrate from it.
	if len(turnEntities) == 0 && summary == "" && len(session.WorkingState) == 0 {
		return nil, nil
	}

	data := &memory.SessionData{
		SessionID:    session.SessionId,
		CreatedAt:    session.CreatedAt,
		LastActive:   session.LastActive,
		Status:       string(session.Status),
		WorkingState: session.WorkingState,
		Summary:      summary,
		Metadata:     session.Metadata,
		Turns:        make([]memory.Turn, 0, len(turnEntities)),
	}
	if session.UserId != nil {
		data.UserID = *session.UserId
	}
	for _, e := range turnEntities {
		data.Turns = append(data.Turns, turnFromEntity(e))
	}
	return data, nil
}

func (s *SessionStore) SearchSimilarTurns(ctx context.Context, sessionID string, embedding []float32, topK int, minSimilarity float64, maxTurnNumber int) ([]memory.ScoredTurn, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	bound := maxTurnNumber
	if bound <= 0 {
		bound = -1
	}
	scored, err := uow.TurnEmbeddingRepository().SearchSimilar(ctx, sessionID, embedding, topK, minSimilarity, bound)
	if err != nil {
		return nil, fmt.Errorf("semantic search %s: %w", sessionID, err)
	}

	results := make([]memory.ScoredTurn, 0, len(scored))
	for _, item := range scored {
		turn := memory.ScoredTurn{
			TurnNumber:         item.Embedding.TurnNumber,
			UserInput:          item.Embedding.UserInput,
			BotResponsePreview: item.Embedding.BotResponsePreview,
			Concepts:           item.Embedding.Concepts,
			Similarity:         item.Similarity,
		}
		if item.Embedding.UserState != nil {
			turn.UserState = *item.Embedding.UserState
		}
		results = append(results, turn)
	}
	return results, nil
}

func (s *SessionStore) DeleteTurnsBelow(ctx context.Context, sessionID string, floor int) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("begin rotation: %w", err)
	}
	if err := uow.TurnRepository().DeleteBelow(ctx, sessionID, floor); err != nil {
		_ = uow.Rollback()
		return fmt.Errorf("rotate turns below %d: %w", floor, err)
	}
	if err := uow.TurnEmbeddingRepository().DeleteBelow(ctx, sessionID, floor); err != nil {
		_ = uow.Rollback()
		return fmt.Errorf("rotate embeddings below %d: %w", floor, err)
	}
	return uow.Commit()
}

func (s *SessionStore) ClearSession(ctx context.Context, sessionID string) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("begin clear: %w", err)
	}
	if err := uow.TurnRepository().DeleteBySession(ctx, sessionID); err != nil {
		_ = uow.Rollback()
		return fmt.Errorf("clear session %s turns: %w", sessionID, err)
	}
	if err := uow.TurnEmbeddingRepository().DeleteBySession(ctx, sessionID); err != nil {
		_ = uow.Rollback()
		return fmt.Errorf("clear session %s embeddings: %w", sessionID, err)
	}
	if err := uow.SessionRepository().UpdateSummary(ctx, sessionID, ""); err != nil {
		_ = uow.Rollback()
		return fmt.Errorf("clear session %s summary: %w", sessionID, err)
	}
	if err := uow.SessionRepository().UpdateWorkingState(ctx, sessionID, nil); err != nil {
		_ = uow.Rollback()
		return fmt.Errorf("clear session %s working state: %w", sessionID, err)
	}
	return uow.Commit()
}

func (s *SessionStore) DeleteSession(ctx context.Context, sessionID string) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	if err := uow.TurnRepository().DeleteBySession(ctx, sessionID); err != nil {
		_ = uow.Rollback()
		return fmt.Errorf("delete session %s turns: %w", sessionID, err)
	}
	if err := uow.TurnEmbeddingRepository().DeleteBySession(ctx, sessionID); err != nil {
		_ = uow.Rollback()
		return fmt.Errorf("delete session %s embeddings: %w", sessionID, err)
	}
	if err := uow.SessionRepository().Delete(ctx, sessionID); err != nil {
		_ = uow.Rollback()
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	return uow.Commit()
}

// CreateUserSession starts a fresh owned session with listing metadata and
// returns its id.
func (s *SessionStore) CreateUserSession(ctx context.Context, userID, title string) (string, error) {
	if title == "" {
		title = "New chat"
	}
	sessionID := uuid.NewString()
	metadata := map[string]interface{}{
		"source":        "web_ui",
		"title":         title,
		"owner_user_id": userID,
	}
	if err := s.CreateSession(ctx, sessionID, userID, metadata); err != nil {
		return "", err
	}
	return sessionID, nil
}

// ListUserSessions returns the user's non-archived sessions, most recently
// active first, with turn counts and last exchange previews.
func (s *SessionStore) ListUserSessions(ctx context.Context, userID string, limit int) ([]*entity.SessionOverview, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.SessionRepository().ListForUser(ctx, userID, limit)
}

// ArchiveOldSessions flips active sessions idle for more than activeDays and
// returns the ids of the sessions it archived.
func (s *SessionStore) ArchiveOldSessions(ctx context.Context, activeDays int) ([]string, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	cutoff := time.Now().UTC().AddDate(0, 0, -activeDays)

	idle, err := uow.SessionRepository().FindAll(ctx,
		specification.ByStatus{Status: string(entity.SessionStatusActive)},
		specification.LastActiveBefore{Cutoff: cutoff},
	)
	if err != nil {
		return nil, fmt.Errorf("list idle sessions: %w", err)
	}
	if len(idle) == 0 {
		return nil, nil
	}

	if _, err := uow.SessionRepository().ArchiveOlderThan(ctx, cutoff); err != nil {
		return nil, fmt.Errorf("archive idle sessions: %w", err)
	}

	ids := make([]string, 0, len(idle))
	for _, session := range idle {
		ids = append(ids, session.SessionId)
	}
	return ids, nil
}

// DeleteArchivedSessions hard-deletes sessions archived and idle past
// archiveDays, dependent rows included. Returns the ids it removed.
func (s *SessionStore) DeleteArchivedSessions(ctx context.Context, archiveDays int) ([]string, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	cutoff := time.Now().UTC().AddDate(0, 0, -archiveDays)

	stale, err := uow.SessionRepository().FindAll(ctx,
		specification.ByStatus{Status: string(entity.SessionStatusArchived)},
		specification.LastActiveBefore{Cutoff: cutoff},
	)
	if err != nil {
		return nil, fmt.Errorf("list stale sessions: %w", err)
	}

	var deleted []string
	for _, session := range stale {
		if err := s.DeleteSession(ctx, session.SessionId); err != nil {
			s.logger.Error("session_store", "failed to delete stale session", map[string]interface{}{
				"session_id": session.SessionId,
				"error":      err.Error(),
			})
			continue
		}
		deleted = append(deleted, session.SessionId)
	}
	return deleted, nil
}

// RetentionReport is the outcome of one cleanup sweep.
type RetentionReport struct {
	ArchivedIDs []string
	DeletedIDs  []string
}

func (r RetentionReport) Archived() int64 { return int64(len(r.ArchivedIDs)) }
func (r RetentionReport) Deleted() int64  { return int64(len(r.DeletedIDs)) }

// RunRetentionCleanup archives idle sessions, then purges long-archived ones.
func (s *SessionStore) RunRetentionCleanup(ctx context.Context, activeDays, archiveDays int) (RetentionReport, error) {
	var report RetentionReport

	archived, err := s.ArchiveOldSessions(ctx, activeDays)
	if err != nil {
		return report, fmt.Errorf("archive sweep: %w", err)
	}
	report.ArchivedIDs = archived

	deleted, err := s.DeleteArchivedSessions(ctx, archiveDays)
	if err != nil {
		return report, fmt.Errorf("purge sweep: %w", err)
	}
	report.DeletedIDs = deleted

	s.logger.Info("session_store", "retention cleanup finished", map[string]interface{}{
		"archived": report.Archived(),
		"deleted":  report.Deleted(),
	})
	return report, nil
}

func turnToEntity(sessionID string, turn memory.Turn) *entity.ConversationTurn {
	e := &entity.ConversationTurn{
		SessionId:   sessionID,
		TurnNumber:  turn.TurnNumber,
		UserInput:   turn.UserInput,
		BotResponse: turn.BotResponse,
		Mode:        turn.Mode,
		Timestamp:   turn.Timestamp,
		Confidence:  turn.Confidence,
		BlocksUsed:  turn.BlocksUsed,
		Concepts:    turn.Concepts,
	}
	if turn.UserState != "" {
		state := turn.UserState
		e.UserState = &state
	}
	if turn.UserFeedback != "" {
		kind := entity.FeedbackKind(turn.UserFeedback)
		e.UserFeedback = &kind
	}
	if turn.UserRating != 0 {
		rating := turn.UserRating
		e.UserRating = &rating
	}
	return e
}

func turnFromEntity(e *entity.ConversationTurn) memory.Turn {
	turn := memory.Turn{
		TurnNumber:  e.TurnNumber,
		UserInput:   e.UserInput,
		BotResponse: e.BotResponse,
		Mode:        e.Mode,
		Timestamp:   e.Timestamp,
		Confidence:  e.Confidence,
		BlocksUsed:  e.BlocksUsed,
		Concepts:    e.Concepts,
	}
	if e.UserState != nil {
		turn.UserState = *e.UserState
	}
	if e.UserFeedback != nil {
		turn.UserFeedback = string(*e.UserFeedback)
	}
	if e.UserRating != nil {
		turn.UserRating = *e.UserRating
	}
	return turn
}

func clipRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
