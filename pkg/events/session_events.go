package events

import "time"

const (
	TypeSessionArchived   = "SESSION_ARCHIVED"
	TypeSessionDeleted    = "SESSION_DELETED"
	TypeRetentionFinished = "RETENTION_FINISHED"
)

// NewSessionArchivedEvent marks one session flipped to archived by the sweep.
func NewSessionArchivedEvent(sessionID string) Event {
	return BaseEvent{
		Type: TypeSessionArchived,
		Data: map[string]interface{}{
			"session_id": sessionID,
		},
		OccurredAt: time.Now().UTC(),
	}
}

// NewSessionDeletedEvent marks a session hard-deleted with its turns.
func NewSessionDeletedEvent(sessionID string) Event {
	return BaseEvent{
		Type: TypeSessionDeleted,
		Data: map[string]interface{}{
			"session_id": sessionID,
		},
		OccurredAt: time.Now().UTC(),
	}
}

// NewRetentionFinishedEvent reports the totals of one cleanup sweep.
func NewRetentionFinishedEvent(archived, deleted int64, activeDays, archiveDays int) Event {
	return BaseEvent{
		Type: TypeRetentionFinished,
		Data: map[string]interface{}{
			"archived":     archived,
			"deleted":      deleted,
			"active_days":  activeDays,
			"archive_days": archiveDays,
		},
		OccurredAt: time.Now().UTC(),
	}
}
