package model

import (
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type TurnEmbedding struct {
	Id                 int64           `gorm:"primaryKey;autoIncrement"`
	SessionId          string          `gorm:"type:text;not null;uniqueIndex:idx_embeddings_session_number,priority:1;index"`
	TurnNumber         int             `gorm:"not null;uniqueIndex:idx_embeddings_session_number,priority:2"`
	UserInput          string          `gorm:"type:text;not null"`
	BotResponsePreview string          `gorm:"type:text"`
	UserState          *string         `gorm:"type:text"`
	Concepts           datatypes.JSON  `gorm:"type:jsonb"`
	Timestamp          time.Time       `gorm:"not null"`
	EmbeddingValue     pgvector.Vector `gorm:"type:vector(768)"` // nomic-embed-text dimensionality
}

func (TurnEmbedding) TableName() string {
	return "turn_embeddings"
}
