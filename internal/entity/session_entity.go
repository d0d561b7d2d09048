package entity

import (
	"time"
)

type SessionStatus string

const (
	SessionStatusActive   SessionStatus = "active"
	SessionStatusArchived SessionStatus = "archived"
)

type Session struct {
	SessionId    string
	UserId       *string
	CreatedAt    time.Time
	LastActive   time.Time
	Status       SessionStatus
	WorkingState map[string]interface{}
	Summary      *string
	Metadata     map[string]interface{}
}

// SessionOverview is a lightweight listing row with the last exchange preview.
type SessionOverview struct {
	SessionId         string
	UserId            *string
	CreatedAt         time.Time
	LastActive        time.Time
	Status            SessionStatus
	Metadata          map[string]interface{}
	TurnsCount        int
	LastUserInput     *string
	LastBotResponse   *string
	LastTurnTimestamp *time.Time
}
