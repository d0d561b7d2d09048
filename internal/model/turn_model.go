package model

import (
	"time"

	"gorm.io/datatypes"
)

type ConversationTurn struct {
	Id           int64          `gorm:"primaryKey;autoIncrement"`
	SessionId    string         `gorm:"type:text;not null;uniqueIndex:idx_turns_session_number,priority:1;index"`
	TurnNumber   int            `gorm:"not null;uniqueIndex:idx_turns_session_number,priority:2"`
	UserInput    string         `gorm:"type:text;not null"`
	BotResponse  string         `gorm:"type:text;not null"`
	Mode         string         `gorm:"type:text;not null"`
	Timestamp    time.Time      `gorm:"not null"`
	Confidence   *float64
	BlocksUsed   int            `gorm:"default:0"`
	Concepts     datatypes.JSON `gorm:"type:jsonb"`
	UserState    *string        `gorm:"type:text"`
	UserFeedback *string        `gorm:"type:text"`
	UserRating   *int
}

func (ConversationTurn) TableName() string {
	return "conversation_turns"
}
