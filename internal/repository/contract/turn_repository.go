package contract

import (
	"context"

	"adaptive-dialogue-be/internal/entity"
	"adaptive-dialogue-be/internal/repository/specification"
)

type TurnRepository interface {
	// Upsert is keyed by (session_id, turn_number); re-saving the same turn
	// number overwrites all mutable fields (feedback attach after the fact).
	Upsert(ctx context.Context, turn *entity.ConversationTurn) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ConversationTurn, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ConversationTurn, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// DeleteBelow drops rotated-out turns with turn_number < floor.
	DeleteBelow(ctx context.Context, sessionId string, floor int) error
	DeleteBySession(ctx context.Context, sessionId string) error
}
