package unitofwork

import (
	"context"

	"adaptive-dialogue-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	SessionRepository() contract.SessionRepository
	TurnRepository() contract.TurnRepository
	TurnEmbeddingRepository() contract.TurnEmbeddingRepository
}
