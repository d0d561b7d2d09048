package model

import (
	"time"

	"gorm.io/datatypes"
)

type Session struct {
	SessionId    string         `gorm:"type:text;primaryKey"`
	UserId       *string        `gorm:"type:text;index"`
	CreatedAt    time.Time      `gorm:"autoCreateTime"`
	LastActive   time.Time      `gorm:"index;not null"`
	Status       string         `gorm:"type:text;not null;default:'active';index"`
	WorkingState datatypes.JSON `gorm:"type:jsonb"`
	Summary      *string        `gorm:"type:text"`
	Metadata     datatypes.JSON `gorm:"type:jsonb"`
}

func (Session) TableName() string {
	return "sessions"
}
