package entity

import (
	"time"
)

type FeedbackKind string

const (
	FeedbackPositive FeedbackKind = "positive"
	FeedbackNegative FeedbackKind = "negative"
	FeedbackNeutral  FeedbackKind = "neutral"
)

type ConversationTurn struct {
	SessionId    string
	TurnNumber   int
	UserInput    string
	BotResponse  string
	Mode         string
	Timestamp    time.Time
	Confidence   *float64
	BlocksUsed   int
	Concepts     []string
	UserState    *string
	UserFeedback *FeedbackKind
	UserRating   *int // 1..5
}
