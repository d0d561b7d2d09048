package specification

import (
	"time"

	"gorm.io/gorm"
)

// BySessionID filters rows belonging to one session
type BySessionID struct {
	SessionID string
}

func (s BySessionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("session_id = ?", s.SessionID)
}

// ByStatus filters sessions by lifecycle status
type ByStatus struct {
	Status string
}

func (s ByStatus) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", s.Status)
}

// LastActiveBefore selects sessions idle since before the cutoff.
// Used by retention sweeps to batch by timestamp instead of table locks.
type LastActiveBefore struct {
	Cutoff time.Time
}

func (s LastActiveBefore) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("last_active < ?", s.Cutoff)
}

// TurnNumberBelow selects turns older than a rotation floor
type TurnNumberBelow struct {
	Floor int
}

func (s TurnNumberBelow) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("turn_number < ?", s.Floor)
}

// TurnNumberAtMost bounds the newest turn included (semantic recall excludes
// the short-term window)
type TurnNumberAtMost struct {
	Max int
}

func (s TurnNumberAtMost) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("turn_number <= ?", s.Max)
}
