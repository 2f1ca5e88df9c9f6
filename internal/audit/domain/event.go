package domain

import "time"

// AuditEvent is one append-only record of something the core decided or
// observed. Events are never mutated or deleted.
type AuditEvent struct {
	ID        string
	EventType string
	SubjectID string
	SessionID string
	Metadata  string
	Origin    string
	CreatedAt time.Time
}
