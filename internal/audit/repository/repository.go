package repository

import (
	"context"

	"attendance-control-plane/internal/audit/domain"
)

// Repository defines persistence for audit events. Append and read only;
// there is deliberately no update or delete.
type Repository interface {
	Create(ctx context.Context, e *domain.AuditEvent) error
	// ListBySubject returns the subject's events newest first. eventTypes
	// narrows the result to the given types; empty means all.
	ListBySubject(ctx context.Context, subjectID string, eventTypes []string, limit, offset int32) ([]*domain.AuditEvent, error)
	ListBySession(ctx context.Context, sessionID string, limit, offset int32) ([]*domain.AuditEvent, error)
}
