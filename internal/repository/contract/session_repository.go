package contract

import (
	"context"
	"time"

	"adaptive-dialogue-be/internal/entity"
	"adaptive-dialogue-be/internal/repository/specification"
)

type SessionRepository interface {
	// Upsert is the idempotent create: on conflict it refreshes last_active
	// and keeps the existing user_id/metadata when already set.
	Upsert(ctx context.Context, session *entity.Session) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Session, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Session, error)
	UpdateWorkingState(ctx context.Context, sessionId string, workingState map[string]interface{}) error
	UpdateSummary(ctx context.Context, sessionId string, summary string) error
	TouchLastActive(ctx context.Context, sessionId string, at time.Time) error
	Delete(ctx context.Context, sessionId string) error
	// ArchiveOlderThan flips active sessions idle since before the cutoff.
	ArchiveOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	// DeleteArchivedOlderThan hard-deletes archived sessions past the cutoff.
	DeleteArchivedOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	// ListForUser returns non-archived sessions with counts and the last
	// exchange preview, most recently active first.
	ListForUser(ctx context.Context, userId string, limit int) ([]*entity.SessionOverview, error)
}
